package model

import "time"

// Transport statuses stored in goods.status.  New goods start as pending;
// the remaining values are driven by the mini-program workflow.
const (
	GoodsStatusPending      = "pending"
	GoodsStatusCollected    = "collected"
	GoodsStatusTransporting = "transporting"
	GoodsStatusDelivered    = "delivered"
	GoodsStatusCancelled    = "cancelled"
	GoodsStatusException    = "exception"
)

// GoodsStatuses lists every valid status value, used for request validation.
var GoodsStatuses = []string{
	GoodsStatusPending,
	GoodsStatusCollected,
	GoodsStatusTransporting,
	GoodsStatusDelivered,
	GoodsStatusCancelled,
	GoodsStatusException,
}

// ValidGoodsStatus reports whether s is a known transport status.
func ValidGoodsStatus(s string) bool {
	for _, v := range GoodsStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Goods represents a freight item in the `goods` table.  All descriptive
// fields are optional: drivers often register a waybill with only partial
// information and fill in the rest later.
type Goods struct {
	ID            uint64     `json:"id"`
	Name          *string    `json:"name"`
	WaybillNo     *string    `json:"waybillNo"`
	ReceiverName  *string    `json:"receiverName"`
	ReceiverPhone *string    `json:"receiverPhone"`
	SenderName    *string    `json:"senderName"`
	SenderPhone   *string    `json:"senderPhone"`
	Volume        *float64   `json:"volume"`  // m³
	Weight        *float64   `json:"weight"`  // kg
	Freight       *float64   `json:"freight"` // yuan
	Status        string     `json:"status"`
	Remark        *string    `json:"remark"`
	Images        StringList `json:"images"`
	CreatedBy     uint64     `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// Creator is joined from users for list/detail responses.
	Creator *GoodsCreator `json:"creator,omitempty"`
}

// GoodsCreator is the subset of the creating user embedded in goods rows.
type GoodsCreator struct {
	ID       uint64  `json:"id"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar"`
}
