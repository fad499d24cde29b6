package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/repository"
	"github.com/landport/freight-api/internal/service"
	"github.com/landport/freight-api/internal/utils"
)

// AuthHandler implements WeChat login and profile management for the
// mini-program.  Tokens issued here live in the business namespace and are
// presented back via the X-Token header (or Authorization, on the fleet
// console routes).
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Wechat *service.WechatClient
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, wechat *service.WechatClient) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Wechat: wechat}
}

// wxLoginReq carries the login code plus optional profile fields.  Both the
// old and new mini-program field spellings are accepted.
type wxLoginReq struct {
	Code      string `json:"code"`
	Token     string `json:"token"` // older clients send the js code as "token"
	Nickname  string `json:"nickname"`
	NickName  string `json:"nickName"`
	Avatar    string `json:"avatar"`
	AvatarURL string `json:"avatarUrl"`
	Phone     string `json:"phone"`
}

type wxLoginUser struct {
	ID       uint64  `json:"id"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

type wxLoginResp struct {
	Token string      `json:"token"`
	User  wxLoginUser `json:"user"`
}

// WxLogin exchanges a mini-program js code for an API token, creating the
// user on first login and refreshing any profile fields the client sent.
// A role field in the request body is deliberately ignored: roles are
// assigned in storage, never by the client.
func (h *AuthHandler) WxLogin(c echo.Context) error {
	var req wxLoginReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}
	code := req.Code
	if code == "" {
		code = req.Token
	}
	if code == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "需提供 code 或 token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	openID, err := h.Wechat.CodeToOpenID(ctx, code)
	if err != nil {
		if errors.Is(err, service.ErrWechatRejected) {
			return echo.NewHTTPError(http.StatusUnauthorized, "微信登录失败，请重试")
		}
		return internalError(c, "wechat code exchange", err)
	}

	u, created, err := h.Users.FindOrCreateByOpenID(ctx, openID)
	if err != nil {
		return internalError(c, "find or create user", err)
	}

	nickname := firstNonEmpty(req.Nickname, req.NickName)
	avatar := firstNonEmpty(req.Avatar, req.AvatarURL)
	if nickname != "" || avatar != "" || req.Phone != "" {
		if err := h.Users.UpdateProfile(ctx, u.ID, optional(nickname), optional(avatar), optional(req.Phone)); err != nil {
			return internalError(c, "refresh profile", err)
		}
		if nickname != "" {
			u.Nickname = nickname
		}
		if avatar != "" {
			u.Avatar = &avatar
		}
		if req.Phone != "" {
			phone := req.Phone
			u.Phone = &phone
		}
	}
	if err := h.Users.TouchLastLogin(ctx, u.ID); err != nil {
		c.Logger().Warnf("touch last login for user %d: %v", u.ID, err)
	}

	token, err := utils.SignBusinessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.JWTTTL)
	if err != nil {
		return internalError(c, "sign token", err)
	}

	msg := "登录成功"
	if created {
		msg = "注册并登录成功"
	}
	resp := wxLoginResp{Token: token, User: wxLoginUser{
		ID: u.ID, Nickname: u.Nickname, Avatar: u.Avatar, Phone: u.Phone, Role: u.Role,
	}}
	return c.JSON(http.StatusOK, envelope{Code: 200, Message: msg, Data: resp})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// optional maps "" to nil for the COALESCE-based profile update.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Profile returns the authenticated driver's account.
func (h *AuthHandler) Profile(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return internalError(c, "load profile", err)
	}
	if u == nil {
		return echo.NewHTTPError(http.StatusNotFound, "用户不存在")
	}
	return ok(c, u)
}

type profileReq struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Phone    *string `json:"phone"`
}

// UpdateProfile writes the fields a driver may edit; absent fields are left
// unchanged.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, p.UserID, req.Nickname, req.Avatar, req.Phone); err != nil {
		return internalError(c, "update profile", err)
	}
	return okMessage(c, "更新成功")
}
