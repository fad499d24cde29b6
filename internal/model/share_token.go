package model

import "time"

// CertificateShareToken represents a row in `certificate_share_tokens`.
// A driver generates one to let a third party (e.g. a dispatcher) view a
// vehicle's certificate images without logging in.  Tokens are random UUIDs
// with a fixed seven-day lifetime and no use-count limit.
type CertificateShareToken struct {
	ID        uint64    `json:"id"`
	Token     string    `json:"token"`
	VehicleID uint64    `json:"vehicleId"`
	ExpireAt  time.Time `json:"expireAt"`
	UseCount  uint64    `json:"useCount"`
	CreatedAt time.Time `json:"createdAt"`
}
