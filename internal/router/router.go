// Package router wires handlers, middleware and static assets onto an Echo
// instance.  The authentication chain is global: the parse phase runs on
// every request, then one enforcer per route tree decides rejection.
package router

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/handler"
	"github.com/landport/freight-api/internal/middleware"
	"github.com/landport/freight-api/internal/repository"
	"github.com/landport/freight-api/internal/service"
)

// errorBody is the wire shape of every failure: {"code":...,"message":...}.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HTTPErrorHandler renders every error in the envelope the frontends parse.
// Non-HTTP errors become an opaque 500; their cause is logged, not leaked.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "服务器内部错误"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	} else {
		c.Logger().Errorf("unhandled error: %v", err)
	}
	// echo's own routing errors carry English defaults
	if code == http.StatusNotFound && msg == http.StatusText(code) {
		msg = "接口不存在"
	}
	if code == http.StatusMethodNotAllowed && msg == http.StatusText(code) {
		msg = "请求方法不允许"
	}
	if err := c.JSON(code, errorBody{Code: code, Message: msg}); err != nil {
		c.Logger().Errorf("write error response: %v", err)
	}
}

// Setup builds the full application: repositories, handlers, the
// authentication chain and every route of both surfaces.
func Setup(e *echo.Echo, cfg config.Config, db *sql.DB, rdb *redis.Client) {
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	users := repository.NewUserRepo(db)
	goods := repository.NewGoodsRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	records := repository.NewTransportRecordRepo(db)
	cases := repository.NewCaseRepo(db)
	shares := repository.NewShareTokenRepo(db)
	fleets := repository.NewFleetRepo(db)

	// Parse phase first, then the three enforcers.  Each enforcer ignores
	// paths outside its tree, so stacking them globally is safe.
	e.Use(middleware.Authenticate(cfg, users))
	e.Use(middleware.RequireUser())
	e.Use(middleware.RequireDcAdmin())
	e.Use(middleware.RequireCases())

	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	loginLimit := middleware.NewLoginRateLimit(rlCfg, rdb)
	caseCache := middleware.NewResponseCache(cacheCfg, rdb)

	auth := handler.NewAuthHandler(cfg, users, service.NewWechatClient(cfg))
	adminAuth := handler.NewAdminAuthHandler(cfg, users)
	goodsH := handler.NewGoodsHandler(goods, users)
	vehiclesH := handler.NewVehicleHandler(vehicles)
	recordsH := handler.NewRecordHandler(records, vehicles)
	statsH := handler.NewStatsHandler(records)
	sharesH := handler.NewShareHandler(shares, vehicles)
	teamH := handler.NewTeamHandler(fleets)
	casesH := handler.NewCaseHandler(cases, rdb, cacheCfg)
	uploadH := handler.NewUploadHandler(cfg)

	e.GET("/healthz", handler.Health)
	e.Static("/uploads", cfg.UploadDir)

	registerLpwxRoutes(e, auth, goodsH, vehiclesH, recordsH, statsH, sharesH, teamH, uploadH, loginLimit)
	registerDcRoutes(e, adminAuth, casesH, uploadH, loginLimit, caseCache)
}
