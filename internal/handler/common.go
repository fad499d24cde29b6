// Package handler defines the HTTP handlers for both business surfaces: the
// logistics mini-program under /api/lpwx and the agency back office under
// /api/dc.  Every success response uses the envelope the frontends expect:
// {"code":200,"message":...,"data":...}.  Failures are returned as
// *echo.HTTPError and rendered by the router's error handler.
package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/middleware"
)

// dbTimeout bounds every handler-issued database call.
const dbTimeout = 5 * time.Second

type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ok writes the standard success envelope with the read-path message.
func ok(c echo.Context, data interface{}) error {
	return okWith(c, "获取成功", data)
}

// okWith writes a success envelope with an operation-specific message.
func okWith(c echo.Context, msg string, data interface{}) error {
	return c.JSON(http.StatusOK, envelope{Code: 200, Message: msg, Data: data})
}

// okMessage writes a success envelope with a custom message and no data.
func okMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, envelope{Code: 200, Message: msg})
}

// Pagination is the list metadata block used by every paginated endpoint.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// pageOf builds the metadata for one page of total rows.
func pageOf(page, pageSize int, total int64) Pagination {
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}
}

// listPayload is the body of every paginated list response.
type listPayload struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// pageParams reads ?page= and ?pageSize= with the conventional defaults and
// a hard cap that keeps a single query from dragging the whole table over.
func pageParams(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// pathID reads a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "无效的ID")
	}
	return id, nil
}

// currentUser returns the authenticated business principal.  The enforcer
// guarantees presence on protected routes; the error covers handlers that
// are also reachable publicly.
func currentUser(c echo.Context) (*middleware.Principal, error) {
	p := middleware.BusinessUser(c)
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "未登录，请先登录")
	}
	return p, nil
}

// internalError logs the cause and returns the opaque 500 the frontends
// expect; storage details never reach the response body.
func internalError(c echo.Context, what string, err error) error {
	c.Logger().Errorf("%s: %v", what, err)
	return echo.NewHTTPError(http.StatusInternalServerError, "服务器内部错误")
}

// money renders a yuan amount the way the mini-program displays it, with
// two decimal places as a string.
func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
