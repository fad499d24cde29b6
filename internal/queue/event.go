// Package queue defines message payloads exchanged over the broker and the
// background consumer that processes them.
package queue

// GoodsStatusQueueName is the durable queue carrying status transitions.
const GoodsStatusQueueName = "goods.status-changed"

// GoodsStatusChangedEvent is published whenever a waybill moves to a new
// transport status.  It carries enough context for downstream consumers to
// log or notify without querying the primary database.
type GoodsStatusChangedEvent struct {
	GoodsID    uint64 `json:"goods_id"`
	GoodsName  string `json:"goods_name"`
	WaybillNo  string `json:"waybill_no"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	UserID     uint64 `json:"user_id"`
	ChangedAt  string `json:"changed_at"` // RFC 3339 UTC
}
