package model

import "time"

// Roles stored in users.role.  The same table backs both business systems:
// mini-program users log in with WeChat and carry RoleUser, back-office
// accounts additionally have a username/password pair and one of the two
// admin roles.
const (
	RoleUser     = "user"
	RoleAdmin    = "admin"    // administrator of one back-office system
	RoleSysAdmin = "sysAdmin" // system-wide administrator
)

// IsAdminRole reports whether a role grants back-office (dc) access.
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSysAdmin
}

// User represents a row in the `users` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	OpenID      – WeChat openid, unique; synthetic for back-office accounts.
//	Nickname    – display name.
//	Username    – back-office login name (nullable, unique).
//	Password    – bcrypt hash of the back-office password (nullable).
//	Avatar      – avatar URL (nullable).
//	Phone       – phone number (nullable).
//	Role        – user | admin | sysAdmin.
//	LastLoginAt – time of most recent login (nullable).
type User struct {
	ID          uint64     `json:"id"`
	OpenID      string     `json:"-"`
	Nickname    string     `json:"nickname"`
	Username    *string    `json:"username,omitempty"`
	Password    *string    `json:"-"`
	Avatar      *string    `json:"avatar"`
	Phone       *string    `json:"phone"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
