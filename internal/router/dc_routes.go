package router

import (
	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/handler"
)

// registerDcRoutes wires the back-office surface.  Admin credentials arrive
// in X-Token; case reads additionally accept the website's long-lived
// business token via Authorization, which the global auth chain resolves.
// The list cache only fronts GET /api/dc/cases traffic.
func registerDcRoutes(
	e *echo.Echo,
	auth *handler.AdminAuthHandler,
	cases *handler.CaseHandler,
	upload *handler.UploadHandler,
	loginLimit echo.MiddlewareFunc,
	caseCache echo.MiddlewareFunc,
) {
	g := e.Group("/api/dc")

	// public
	g.POST("/auth/login", auth.Login, loginLimit)

	// session introspection, admin token required
	g.GET("/auth/me", auth.Me)

	// case catalogue: reads shared with the website, writes admin-only
	g.GET("/cases", cases.List, caseCache)
	g.GET("/cases/:id", cases.Get, caseCache)
	g.POST("/cases", cases.Create)
	g.PUT("/cases/:id", cases.Update)
	g.DELETE("/cases/:id", cases.Delete)

	// uploads (paths deliberately do not reveal the admin surface)
	g.POST("/upload/goods-image", upload.AdminImage)
	g.POST("/upload/multiple-images", upload.AdminImages)
}
