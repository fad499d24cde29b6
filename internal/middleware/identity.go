package middleware

// identity.go defines the request-scoped authentication state shared by the
// parse-phase middleware (which fills it in) and the enforcement middlewares
// and handlers (which read it).  Downstream code must read principals from
// here instead of re-parsing tokens.

import (
	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/utils"
)

// Principal is a verified identity attached to the request.  A nil
// *Principal means "absent"; presence is therefore carried by the pointer,
// never by the value of UserID.  This matters because user id 0 is the
// legitimate long-lived website pseudo-user, not a zero value.
type Principal struct {
	UserID uint64
	Role   string
}

// AuthState holds the two independent principal slots for a request.  The
// business slot is filled from the lpwx (mini-program) token namespace, the
// admin slot from the dc (back-office) namespace.  Both may be populated in
// the same request: the shared case-read endpoint accepts either.  Populating
// one slot never clears or consults the other.
//
// Whenever a slot is empty its Err field carries the reason (see the Reason*
// constants in utils); it is never left ambiguous.
type AuthState struct {
	User     *Principal // business (lpwx) principal
	UserErr  string     // why User is nil; "" once populated
	Admin    *Principal // administrative (dc) principal
	AdminErr string     // why Admin is nil; "" once populated
}

// NewAuthState returns a state with both slots empty and reason NoToken,
// the mandatory starting point of every parse.
func NewAuthState() *AuthState {
	return &AuthState{UserErr: utils.ReasonNoToken, AdminErr: utils.ReasonNoToken}
}

// authStateKey is the Echo context key the state is stored under.
const authStateKey = "authState"

// SetAuthState attaches the parsed state to the request context.
func SetAuthState(c echo.Context, st *AuthState) { c.Set(authStateKey, st) }

// GetAuthState returns the request's auth state.  If the parse middleware
// did not run, an empty no-token state is returned so enforcement still
// fails closed.
func GetAuthState(c echo.Context) *AuthState {
	if st, ok := c.Get(authStateKey).(*AuthState); ok && st != nil {
		return st
	}
	return NewAuthState()
}

// BusinessUser returns the business principal, or nil.
func BusinessUser(c echo.Context) *Principal { return GetAuthState(c).User }

// AdminUser returns the administrative principal, or nil.
func AdminUser(c echo.Context) *Principal { return GetAuthState(c).Admin }
