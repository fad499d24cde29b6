package model

import "time"

// Fleet represents a team of drivers in the `fleets` table.
type Fleet struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Fleet roster roles stored in fleet_members.role.
const (
	FleetRoleAdmin  = "admin"
	FleetRoleMember = "member"
)

// FleetMember represents a roster entry in the `fleet_members` table.
type FleetMember struct {
	ID       uint64    `json:"id"`
	FleetID  uint64    `json:"fleetId"`
	UserID   uint64    `json:"userId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`

	// Nickname is joined from users for roster responses.
	Nickname string `json:"nickname,omitempty"`
}
