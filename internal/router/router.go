package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/mugeunji/studio-reservation/internal/handler"
	"github.com/mugeunji/studio-reservation/internal/middleware"
	"github.com/mugeunji/studio-reservation/internal/model"
)

// Handlers bundles everything the router wires up.
type Handlers struct {
	Auth        *handler.AuthHandler
	Reservation *handler.ReservationHandler
	Admin       *handler.AdminHandler
	UserImport  *handler.UserImportHandler
	WS          *handler.WSHandler
	Time        *handler.TimeHandler
	RateLimit   echo.MiddlewareFunc // applied to the booking write path
}

// Register wires all routes.  Reads (grid snapshot, open time, server
// time, the WebSocket feed and static pages) are public; booking requires
// a token; everything under /admin additionally requires the admin role.
func Register(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/healthz", handler.Health)
	e.GET("/time", h.Time.Now)
	e.GET("/schedule/open-time", h.Admin.GetSchedule)
	e.POST("/login", h.Auth.Login)
	e.GET("/reservations", h.Reservation.List)
	e.GET("/ws", h.WS.Serve)

	// Static frontend: the grid page and the admin console.
	e.Static("/static", "static")
	e.File("/", "static/index.html")
	e.File("/admin", "static/admin.html")

	auth := e.Group("")
	auth.Use(middleware.JWTAuth(jwtSecret))
	if h.RateLimit != nil {
		auth.POST("/reservations", h.Reservation.Create, h.RateLimit)
	} else {
		auth.POST("/reservations", h.Reservation.Create)
	}

	admin := e.Group("/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("/reservation", h.Admin.ForceReservation)
	admin.DELETE("/reservation", h.Admin.DeleteReservation)
	admin.POST("/clear", h.Admin.ClearReservations)
	admin.GET("/schedule", h.Admin.GetSchedule)
	admin.POST("/schedule", h.Admin.SetSchedule)
	admin.GET("/settings", h.Admin.GetSettings)
	admin.PUT("/settings", h.Admin.UpdateSettings)
	admin.POST("/users/import", h.UserImport.Import)
}
