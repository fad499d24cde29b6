package middleware

// auth.go is the parse phase of the authentication chain.  It runs on every
// request, classifies the path into a credential scope, verifies whatever
// tokens the scope admits, and records the outcome in the request AuthState.
// It never rejects a request itself; rejection is the enforcement phase's
// job (see enforce.go).  This split keeps public endpoints cheap and lets
// the shared case-read surface accept either of two identities.

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/utils"
)

// AccountStore resolves an admin token's subject to a persisted account.
// The role stored in an admin token is never trusted; it is re-read here on
// every request so revoking admin rights takes effect immediately.  A nil
// user with nil error means the account does not exist.
type AccountStore interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

// resolveTimeout bounds the account lookup so a stalled database cannot hang
// the parse phase; on timeout the admin slot degrades to Forbidden.
const resolveTimeout = 3 * time.Second

// Authenticate returns the parse-phase middleware.  Whatever happens inside,
// it always attaches an AuthState and calls the next handler: a panic while
// parsing marks both slots ParseError instead of propagating, so a crafted
// token can never turn into a 500.
func Authenticate(cfg config.Config, store AccountStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := NewAuthState()
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.Logger().Errorf("auth parse panic: %v", r)
						st = NewAuthState()
						st.UserErr = utils.ReasonParseError
						st.AdminErr = utils.ReasonParseError
					}
				}()
				parseCredentials(c, cfg, store, st)
			}()
			SetAuthState(c, st)
			return next(c)
		}
	}
}

// parseCredentials applies the scope rule table: which header feeds which
// token namespace.  Scopes that admit only one header ignore the other
// entirely, so e.g. a business token sent via Authorization to an lpwx
// endpoint is treated as no token at all.
func parseCredentials(c echo.Context, cfg config.Config, store AccountStore, st *AuthState) {
	h := c.Request().Header
	switch ClassifyScope(c.Request().Method, c.Request().URL.Path) {
	case ScopeLpwx:
		parseBusiness(c, cfg, st, customToken(h))
	case ScopeLpwxFleet:
		parseBusiness(c, cfg, st, bearerToken(h))
	case ScopeDc:
		parseAdmin(c, cfg, store, st, customToken(h))
	case ScopeDcCasesRead:
		parseBusiness(c, cfg, st, bearerToken(h))
		raw := customToken(h)
		if raw == "" && st.User == nil {
			// Legacy back-office clients send the admin token in
			// Authorization on reads.  Only fall back to it when the
			// business side did not already consume that header.
			raw = bearerToken(h)
		}
		parseAdmin(c, cfg, store, st, raw)
	default:
		parseBusiness(c, cfg, st, customToken(h))
	}
}

// wellFormed is the cheap pre-verification shape check: three dot-separated
// segments.  Anything else is reported as a format error, distinct from a
// signature failure, so clients misconfiguring the header get a usable hint.
func wellFormed(token string) bool {
	parts := strings.Split(token, ".")
	return len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != ""
}

// parseBusiness verifies a business-namespace token and fills the business
// slot.  An empty raw token leaves the slot at its NoToken default.
func parseBusiness(c echo.Context, cfg config.Config, st *AuthState, raw string) {
	if raw == "" {
		return
	}
	if !wellFormed(raw) {
		st.UserErr = utils.ReasonInvalidFormat
		return
	}
	claims, err := utils.VerifyBusinessToken(cfg.JWTSecret, raw)
	if err != nil {
		st.UserErr = utils.TokenErrorReason(err)
		c.Logger().Warnf("business token rejected: %s", st.UserErr)
		return
	}
	st.User = &Principal{UserID: claims.UserID, Role: claims.Role}
	st.UserErr = ""
}

// parseAdmin verifies an admin-namespace token, then resolves the subject
// against the account store.  A missing account, a non-admin role, or a
// storage failure all leave the slot empty with reason Forbidden; the
// lookup failure is logged but deliberately not surfaced as a 500.
func parseAdmin(c echo.Context, cfg config.Config, store AccountStore, st *AuthState, raw string) {
	if raw == "" {
		return
	}
	if !wellFormed(raw) {
		st.AdminErr = utils.ReasonInvalidFormat
		return
	}
	claims, err := utils.VerifyAdminToken(cfg.AdminJWTSecret, raw)
	if err != nil {
		st.AdminErr = utils.TokenErrorReason(err)
		c.Logger().Warnf("admin token rejected: %s", st.AdminErr)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), resolveTimeout)
	defer cancel()
	acct, err := store.FindByID(ctx, claims.UserID)
	if err != nil {
		c.Logger().Errorf("admin account lookup failed for user %d: %v", claims.UserID, err)
		st.AdminErr = utils.ReasonForbidden
		return
	}
	if acct == nil || !model.IsAdminRole(acct.Role) {
		st.AdminErr = utils.ReasonForbidden
		return
	}
	st.Admin = &Principal{UserID: claims.UserID, Role: acct.Role}
	st.AdminErr = ""
}
