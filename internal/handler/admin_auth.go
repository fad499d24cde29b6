package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/middleware"
	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/repository"
	"github.com/landport/freight-api/internal/utils"
)

// AdminAuthHandler implements back-office login.  Tokens issued here live in
// the admin namespace; they carry only the subject id, and the role is
// re-read from the users table on every subsequent request.
type AdminAuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAdminAuthHandler(cfg config.Config, users *repository.UserRepo) *AdminAuthHandler {
	return &AdminAuthHandler{Cfg: cfg, Users: users}
}

type adminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginUser struct {
	ID       uint64  `json:"id"`
	Username *string `json:"username"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Role     string  `json:"role"`
}

type adminLoginResp struct {
	Token string         `json:"token"`
	User  adminLoginUser `json:"user"`
}

// Login verifies a username/password pair against the stored bcrypt hash.
// The failure messages are part of the back-office frontend's contract.
func (h *AdminAuthHandler) Login(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "请输入用户名和密码")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "用户名或密码错误")
		}
		return internalError(c, "load admin account", err)
	}
	if u.Password == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "该用户未设置密码")
	}
	if !utils.VerifyPassword(*u.Password, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "用户名或密码错误")
	}
	if !model.IsAdminRole(u.Role) {
		return echo.NewHTTPError(http.StatusForbidden, "该用户不是管理员")
	}

	if err := h.Users.TouchLastLogin(ctx, u.ID); err != nil {
		c.Logger().Warnf("touch last login for admin %d: %v", u.ID, err)
	}

	token, err := utils.SignAdminToken(h.Cfg.AdminJWTSecret, u.ID, h.Cfg.AdminJWTTTL)
	if err != nil {
		return internalError(c, "sign admin token", err)
	}
	resp := adminLoginResp{Token: token, User: adminLoginUser{
		ID: u.ID, Username: u.Username, Nickname: u.Nickname, Avatar: u.Avatar, Role: u.Role,
	}}
	return c.JSON(http.StatusOK, envelope{Code: 200, Message: "登录成功", Data: resp})
}

// Me returns the resolved admin principal's account.
func (h *AdminAuthHandler) Me(c echo.Context) error {
	p := middleware.AdminUser(c)
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "未登录，请先登录")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return internalError(c, "load admin account", err)
	}
	if u == nil {
		return echo.NewHTTPError(http.StatusNotFound, "用户不存在")
	}
	return ok(c, u)
}
