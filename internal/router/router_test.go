package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(err, c)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorEnvelope(t *testing.T) {
	code, body := render(t, echo.NewHTTPError(http.StatusUnauthorized, "未登录，请先登录"))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, http.StatusUnauthorized, body.Code)
	assert.Equal(t, "未登录，请先登录", body.Message)
}

func TestErrorEnvelopeOpaque500(t *testing.T) {
	// raw errors never leak their text
	code, body := render(t, errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "服务器内部错误", body.Message)
}

func TestErrorEnvelopeRouteNotFound(t *testing.T) {
	// echo reports unknown routes with its English default text
	code, body := render(t, echo.NewHTTPError(http.StatusNotFound))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "接口不存在", body.Message)
}
