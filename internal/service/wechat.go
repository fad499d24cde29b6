// Package service holds the small amount of logic that talks to systems
// outside MySQL: the WeChat credential exchange and the event publisher.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/landport/freight-api/internal/config"
)

// ErrWechatRejected is returned when WeChat answers with a business error,
// e.g. an expired or already-used js code.
var ErrWechatRejected = errors.New("wechat rejected code")

// WechatClient exchanges a mini-program js code for an openid via the
// jscode2session endpoint.  In mock mode (local development without WeChat
// credentials) the openid is derived from the code instead, so login flows
// stay testable offline.
type WechatClient struct {
	appID  string
	secret string
	mock   bool
	http   *http.Client
}

// NewWechatClient builds a client from configuration.
func NewWechatClient(cfg config.Config) *WechatClient {
	return &WechatClient{
		appID:  cfg.WechatAppID,
		secret: cfg.WechatSecret,
		mock:   cfg.WechatMock,
		http:   &http.Client{Timeout: 8 * time.Second},
	}
}

type sessionResp struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

// CodeToOpenID resolves a login code to the user's openid.
func (w *WechatClient) CodeToOpenID(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("empty js code")
	}
	if w.mock {
		return "dev_" + code, nil
	}

	u := "https://api.weixin.qq.com/sns/jscode2session?appid=" + url.QueryEscape(w.appID) +
		"&secret=" + url.QueryEscape(w.secret) +
		"&js_code=" + url.QueryEscape(code) +
		"&grant_type=authorization_code"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("jscode2session: %w", err)
	}
	defer resp.Body.Close()

	var body sessionResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("jscode2session decode: %w", err)
	}
	if body.ErrCode != 0 || body.OpenID == "" {
		return "", fmt.Errorf("%w: errcode=%d errmsg=%s", ErrWechatRejected, body.ErrCode, body.ErrMsg)
	}
	return body.OpenID, nil
}
