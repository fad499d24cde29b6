package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/utils"
)

const (
	bizSecret   = "test-business-secret"
	adminSecret = "test-admin-secret"
)

// stubStore is an in-memory AccountStore.
type stubStore struct {
	users     map[uint64]*model.User
	err       error
	panicking bool
}

func (s *stubStore) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	if s.panicking {
		panic("stub store exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func adminAccount(id uint64, role string) *stubStore {
	return &stubStore{users: map[uint64]*model.User{id: {ID: id, Role: role}}}
}

// snapshot is what the catch-all handler reports back: which slots the
// parse phase populated.
type snapshot struct {
	BusinessID   *uint64 `json:"businessId"`
	BusinessRole string  `json:"businessRole"`
	AdminID      *uint64 `json:"adminId"`
	AdminRole    string  `json:"adminRole"`
}

// newEnv builds an Echo instance with the full auth chain and a catch-all
// route, mirroring how the router stacks the middlewares in production.
func newEnv(store AccountStore) *echo.Echo {
	cfg := config.Config{JWTSecret: bizSecret, AdminJWTSecret: adminSecret}
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "internal"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}
		_ = c.JSON(code, echo.Map{"code": code, "message": msg})
	}
	e.Use(Authenticate(cfg, store))
	e.Use(RequireUser())
	e.Use(RequireDcAdmin())
	e.Use(RequireCases())
	e.Any("/*", func(c echo.Context) error {
		st := GetAuthState(c)
		var snap snapshot
		if st.User != nil {
			id := st.User.UserID
			snap.BusinessID = &id
			snap.BusinessRole = st.User.Role
		}
		if st.Admin != nil {
			id := st.Admin.UserID
			snap.AdminID = &id
			snap.AdminRole = st.Admin.Role
		}
		return c.JSON(http.StatusOK, snap)
	})
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string, headers map[string]string) (*httptest.ResponseRecorder, snapshot, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var snap snapshot
	var msg string
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	} else {
		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		msg = body.Message
	}
	return rec, snap, msg
}

func bizToken(t *testing.T, id uint64, role string) string {
	t.Helper()
	s, err := utils.SignBusinessToken(bizSecret, id, role, time.Hour)
	require.NoError(t, err)
	return s
}

func admToken(t *testing.T, id uint64) string {
	t.Helper()
	s, err := utils.SignAdminToken(adminSecret, id, time.Hour)
	require.NoError(t, err)
	return s
}

func TestLpwxAcceptsXTokenOnly(t *testing.T) {
	e := newEnv(&stubStore{})
	token := bizToken(t, 42, "user")

	rec, snap, _ := do(t, e, http.MethodGet, "/api/lpwx/goods", map[string]string{"X-Token": token})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.BusinessID)
	assert.Equal(t, uint64(42), *snap.BusinessID)
	assert.Equal(t, "user", snap.BusinessRole)
	assert.Nil(t, snap.AdminID)

	// the same token via Authorization is invisible on this tree
	rec, _, msg := do(t, e, http.MethodGet, "/api/lpwx/goods", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录，请先登录", msg)
}

func TestLpwxNoToken(t *testing.T) {
	e := newEnv(&stubStore{})
	rec, _, msg := do(t, e, http.MethodGet, "/api/lpwx/goods", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录，请先登录", msg)
}

func TestLpwxExpiredToken(t *testing.T) {
	e := newEnv(&stubStore{})
	expired, err := utils.SignBusinessToken(bizSecret, 42, "user", -time.Minute)
	require.NoError(t, err)

	rec, _, msg := do(t, e, http.MethodGet, "/api/lpwx/goods", map[string]string{"X-Token": expired})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "登录已过期，请重新登录", msg)
}

func TestLpwxMalformedToken(t *testing.T) {
	e := newEnv(&stubStore{})
	rec, _, msg := do(t, e, http.MethodGet, "/api/lpwx/goods", map[string]string{"X-Token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录或令牌无效", msg)
}

func TestLpwxPublicPaths(t *testing.T) {
	e := newEnv(&stubStore{})

	rec, _, _ := do(t, e, http.MethodPost, "/api/lpwx/auth/wx-login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _, _ = do(t, e, http.MethodGet, "/api/lpwx/fleet/certificates/shared/some-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreflightAlwaysPasses(t *testing.T) {
	e := newEnv(&stubStore{})
	for _, path := range []string{"/api/lpwx/goods", "/api/dc/upload", "/api/dc/cases"} {
		rec, _, _ := do(t, e, http.MethodOptions, path, nil)
		assert.Equalf(t, http.StatusOK, rec.Code, "OPTIONS %s", path)
	}
}

func TestFleetAcceptsAuthorizationOnly(t *testing.T) {
	e := newEnv(&stubStore{})
	token := bizToken(t, 42, "user")

	rec, snap, _ := do(t, e, http.MethodGet, "/api/lpwx/fleet/vehicles", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.BusinessID)
	assert.Equal(t, uint64(42), *snap.BusinessID)

	// X-Token is not a fleet-console credential
	rec, _, msg := do(t, e, http.MethodGet, "/api/lpwx/fleet/vehicles", map[string]string{"X-Token": token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录，请先登录", msg)
}

func TestDcAdminResolved(t *testing.T) {
	e := newEnv(adminAccount(7, model.RoleSysAdmin))

	rec, snap, _ := do(t, e, http.MethodPost, "/api/dc/upload", map[string]string{"X-Token": admToken(t, 7)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.AdminID)
	assert.Equal(t, uint64(7), *snap.AdminID)
	assert.Equal(t, model.RoleSysAdmin, snap.AdminRole)
	assert.Nil(t, snap.BusinessID)
}

func TestDcAdminRoleComesFromStore(t *testing.T) {
	// a valid admin-namespace token whose subject is no longer an admin
	e := newEnv(adminAccount(7, model.RoleUser))

	rec, _, msg := do(t, e, http.MethodPost, "/api/dc/upload", map[string]string{"X-Token": admToken(t, 7)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录或令牌无效 (Forbidden)", msg)
}

func TestDcAdminUnknownSubject(t *testing.T) {
	e := newEnv(&stubStore{})
	rec, _, msg := do(t, e, http.MethodPost, "/api/dc/upload", map[string]string{"X-Token": admToken(t, 99)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录或令牌无效 (Forbidden)", msg)
}

func TestDcAdminStoreFailureFailsClosed(t *testing.T) {
	e := newEnv(&stubStore{err: errors.New("connection refused")})
	rec, _, msg := do(t, e, http.MethodPost, "/api/dc/upload", map[string]string{"X-Token": admToken(t, 7)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录或令牌无效 (Forbidden)", msg)
}

func TestDcTokenFailureMessages(t *testing.T) {
	e := newEnv(adminAccount(7, model.RoleAdmin))

	expired, err := utils.SignAdminToken(adminSecret, 7, -time.Minute)
	require.NoError(t, err)
	rec, _, msg := do(t, e, http.MethodPost, "/api/dc/upload", map[string]string{"X-Token": expired})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "登录已过期，请重新登录", msg)

	rec, _, msg = do(t, e, http.MethodPost, "/api/dc/upload", map[string]string{"X-Token": "malformed"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "令牌格式错误，请检查 X-Token 是否正确设置", msg)

	// well-formed but signed with the business secret
	wrong := bizToken(t, 7, "user")
	rec, _, msg = do(t, e, http.MethodPost, "/api/dc/upload", map[string]string{"X-Token": wrong})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "令牌无效，请重新登录", msg)

	rec, _, msg = do(t, e, http.MethodPost, "/api/dc/upload", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录，请先登录", msg)
}

func TestDcLoginIsPublic(t *testing.T) {
	e := newEnv(&stubStore{})
	rec, _, _ := do(t, e, http.MethodPost, "/api/dc/auth/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCaseReadWebsiteToken(t *testing.T) {
	e := newEnv(&stubStore{})
	// the website pseudo-user: business token with subject 0
	website := bizToken(t, 0, "user")

	rec, snap, _ := do(t, e, http.MethodGet, "/api/dc/cases", map[string]string{"Authorization": "Bearer " + website})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.BusinessID)
	assert.Equal(t, uint64(0), *snap.BusinessID)
}

func TestCaseReadRejectsOrdinaryBusinessToken(t *testing.T) {
	e := newEnv(&stubStore{})
	// a mini-program login is not a website credential
	driver := bizToken(t, 42, "user")

	rec, _, msg := do(t, e, http.MethodGet, "/api/dc/cases", map[string]string{"Authorization": "Bearer " + driver})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, msg)
}

func TestCaseReadAdminViaXToken(t *testing.T) {
	e := newEnv(adminAccount(7, model.RoleAdmin))
	rec, snap, _ := do(t, e, http.MethodGet, "/api/dc/cases/3", map[string]string{"X-Token": admToken(t, 7)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.AdminID)
	assert.Equal(t, uint64(7), *snap.AdminID)
}

func TestCaseReadAdminAuthorizationFallback(t *testing.T) {
	// legacy back-office clients send the admin token in Authorization on
	// reads; with no business credential in the way it must still resolve
	e := newEnv(adminAccount(7, model.RoleAdmin))
	rec, snap, _ := do(t, e, http.MethodGet, "/api/dc/cases", map[string]string{"Authorization": "Bearer " + admToken(t, 7)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.AdminID)
	assert.Equal(t, uint64(7), *snap.AdminID)
}

func TestCaseReadBothSlots(t *testing.T) {
	e := newEnv(adminAccount(7, model.RoleAdmin))
	headers := map[string]string{
		"Authorization": "Bearer " + bizToken(t, 0, "user"),
		"X-Token":       admToken(t, 7),
	}
	rec, snap, _ := do(t, e, http.MethodGet, "/api/dc/cases", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.BusinessID)
	require.NotNil(t, snap.AdminID)
	assert.Equal(t, uint64(0), *snap.BusinessID)
	assert.Equal(t, uint64(7), *snap.AdminID)
}

func TestCaseReadNoToken(t *testing.T) {
	e := newEnv(&stubStore{})
	rec, _, msg := do(t, e, http.MethodGet, "/api/dc/cases", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录，请先登录", msg)
}

func TestCaseWriteRequiresAdmin(t *testing.T) {
	e := newEnv(adminAccount(7, model.RoleAdmin))

	// the website pseudo-user may read but never write
	rec, _, _ := do(t, e, http.MethodPost, "/api/dc/cases", map[string]string{"Authorization": "Bearer " + bizToken(t, 0, "user")})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, snap, _ := do(t, e, http.MethodPost, "/api/dc/cases", map[string]string{"X-Token": admToken(t, 7)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.AdminID)
}

func TestParsePanicDegradesToParseError(t *testing.T) {
	e := newEnv(&stubStore{panicking: true})
	rec, _, msg := do(t, e, http.MethodPost, "/api/dc/upload", map[string]string{"X-Token": admToken(t, 7)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "未登录或令牌无效 (ParseError)", msg)
}

func TestOtherPathsParseBestEffort(t *testing.T) {
	e := newEnv(&stubStore{})
	token := bizToken(t, 42, "user")

	// outside both trees nothing is enforced, but X-Token still parses
	rec, snap, _ := do(t, e, http.MethodGet, "/api/other/thing", map[string]string{"X-Token": token})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, snap.BusinessID)
	assert.Equal(t, uint64(42), *snap.BusinessID)

	rec, snap, _ = do(t, e, http.MethodGet, "/api/other/thing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, snap.BusinessID)
}
