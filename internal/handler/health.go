package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mugeunji/studio-reservation/internal/clock"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// TimeHandler reports the server's current time in the studio's regional
// offset.  Clients use it to count down to the scheduled opening without
// trusting their local clocks.
type TimeHandler struct {
	Clock clock.Clock
}

func NewTimeHandler(clk clock.Clock) *TimeHandler { return &TimeHandler{Clock: clk} }

// Now handles GET /time.
func (h *TimeHandler) Now(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"server_time": h.Clock.Now().Format(time.RFC3339),
	})
}
