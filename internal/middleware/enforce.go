package middleware

// enforce.go is the enforcement phase of the authentication chain.  Each
// enforcer guards one route tree, reads the AuthState the parse phase left
// behind, and converts an empty slot into a 401 whose message depends on the
// recorded reason.  CORS preflights always pass so the browser can complete
// the handshake before credentials exist.

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/utils"
)

// MsgAdminRequired is the 403 body for authenticated-but-unauthorized.
const MsgAdminRequired = "需要管理员权限"

// businessAuthMessage maps a business-slot reason to the mini-program's
// user-facing text.  The mini-program only distinguishes expiry and absence;
// every other failure collapses into the generic line.
func businessAuthMessage(reason string) string {
	switch reason {
	case utils.ReasonExpired:
		return "登录已过期，请重新登录"
	case utils.ReasonNoToken:
		return "未登录，请先登录"
	default:
		return "未登录或令牌无效"
	}
}

// adminAuthMessage maps an admin-slot reason to the back-office text.  The
// SPA shows these verbatim, including the header hint on format errors, so
// the wording is part of the wire contract.
func adminAuthMessage(reason, header string) string {
	switch reason {
	case utils.ReasonExpired:
		return "登录已过期，请重新登录"
	case utils.ReasonNoToken:
		return "未登录，请先登录"
	case utils.ReasonInvalidFormat:
		return fmt.Sprintf("令牌格式错误，请检查 %s 是否正确设置", header)
	case utils.ReasonInvalid:
		return "令牌无效，请重新登录"
	default:
		if reason == "" {
			reason = "Unknown"
		}
		return fmt.Sprintf("未登录或令牌无效 (%s)", reason)
	}
}

// RequireUser guards the mini-program tree: any authenticated business
// principal passes, regardless of role.  The login endpoints and the shared
// certificate view (accessed by people without accounts) stay public.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if c.Request().Method == http.MethodOptions ||
				!strings.HasPrefix(path, PathLpwxPrefix) ||
				strings.HasPrefix(path, PathLpwxAuthPrefix) ||
				strings.HasPrefix(path, PathSharedCertView) {
				return next(c)
			}
			st := GetAuthState(c)
			if st.User == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, businessAuthMessage(st.UserErr))
			}
			return next(c)
		}
	}
}

// RequireDcAdmin guards the back-office tree except the case group, which
// has its own enforcer.  An authenticated admin principal is required; the
// parse phase already re-checked the stored role, but the role test is kept
// here so the enforcer stands on its own.
func RequireDcAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if c.Request().Method == http.MethodOptions ||
				!strings.HasPrefix(path, PathDcPrefix) ||
				path == PathDcLogin ||
				inCasesGroup(path) {
				return next(c)
			}
			st := GetAuthState(c)
			if st.Admin == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, adminAuthMessage(st.AdminErr, HeaderXToken))
			}
			if !model.IsAdminRole(st.Admin.Role) {
				return echo.NewHTTPError(http.StatusForbidden, MsgAdminRequired)
			}
			return next(c)
		}
	}
}

// RequireCases guards the shared case surface.  Reads are open to the
// website's pseudo-user (business principal with subject id 0) and to any
// admin; every write requires an admin.  A business token with a non-zero
// subject grants nothing here: a mini-program login is not a website
// credential.
func RequireCases() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			path := c.Request().URL.Path
			if method == http.MethodOptions || !inCasesGroup(path) {
				return next(c)
			}
			st := GetAuthState(c)
			if method == http.MethodGet || method == http.MethodHead {
				if st.Admin != nil || (st.User != nil && st.User.UserID == 0) {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, caseReadFailureMessage(st))
			}
			if st.Admin == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, adminAuthMessage(st.AdminErr, HeaderXToken))
			}
			if !model.IsAdminRole(st.Admin.Role) {
				return echo.NewHTTPError(http.StatusForbidden, MsgAdminRequired)
			}
			return next(c)
		}
	}
}

// caseReadFailureMessage picks which slot's reason to report when a case
// read fails.  If a business credential was presented but rejected, its
// reason is the more useful one; otherwise the admin slot's reason covers
// both the no-token case and a rejected admin credential.
func caseReadFailureMessage(st *AuthState) string {
	if st.UserErr != "" && st.UserErr != utils.ReasonNoToken {
		return adminAuthMessage(st.UserErr, "Authorization")
	}
	if st.User != nil {
		// populated but with a non-zero subject: authenticated elsewhere,
		// not authorized here
		return adminAuthMessage(utils.ReasonForbidden, HeaderXToken)
	}
	return adminAuthMessage(st.AdminErr, HeaderXToken)
}
