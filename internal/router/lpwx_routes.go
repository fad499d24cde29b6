package router

import (
	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/handler"
)

// registerLpwxRoutes wires the mini-program surface.  Credentials arrive in
// X-Token except under /api/lpwx/fleet/, where the fleet console sends a
// standard Authorization bearer token; the global auth chain already
// handles both, so routes here carry no extra middleware beyond the login
// rate limit.
func registerLpwxRoutes(
	e *echo.Echo,
	auth *handler.AuthHandler,
	goods *handler.GoodsHandler,
	vehicles *handler.VehicleHandler,
	records *handler.RecordHandler,
	stats *handler.StatsHandler,
	shares *handler.ShareHandler,
	team *handler.TeamHandler,
	upload *handler.UploadHandler,
	loginLimit echo.MiddlewareFunc,
) {
	g := e.Group("/api/lpwx")

	// public
	g.POST("/auth/wx-login", auth.WxLogin, loginLimit)

	// profile
	g.GET("/user/profile", auth.Profile)
	g.PUT("/user/profile", auth.UpdateProfile)

	// waybills; the static list paths must register before /goods/:id
	g.GET("/goods/list", goods.List)
	g.GET("/goods/list-all", goods.ListAll)
	g.GET("/goods/stats", goods.Stats)
	g.GET("/goods/reconciliation", goods.Reconciliation)
	g.GET("/goods/:id", goods.Get)
	g.POST("/goods", goods.Create)
	g.PUT("/goods/:id", goods.Update)
	g.PUT("/goods/:id/status", goods.UpdateStatus)
	g.PATCH("/goods/:id/status", goods.UpdateStatus)
	g.DELETE("/goods/:id", goods.Delete)

	// uploads
	g.POST("/upload/goods-image", upload.GoodsImage)
	g.POST("/upload/multiple-images", upload.GoodsImages)

	// fleet console (Authorization bearer)
	f := g.Group("/fleet")
	f.GET("/vehicles", vehicles.List)
	f.GET("/vehicles/:id", vehicles.Get)
	f.POST("/vehicles", vehicles.Create)
	f.PUT("/vehicles/:id", vehicles.Update)
	f.DELETE("/vehicles/:id", vehicles.Delete)

	f.GET("/records", records.List)
	f.GET("/records/:id", records.Get)
	f.POST("/records", records.Create)
	f.PUT("/records/:id", records.Update)
	f.DELETE("/records/:id", records.Delete)
	f.POST("/records/reconcile", records.Reconcile)

	f.GET("/stats/overview", stats.Overview)
	f.GET("/stats/reconciliation", stats.Reconciliation)

	f.POST("/certificates/:vehicleId/share", shares.Create)
	// public: the recipient of a share link has no account
	f.GET("/certificates/shared/:token", shares.View)

	f.GET("/team", team.Team)
	f.POST("/upload", upload.VehicleImage)
}
