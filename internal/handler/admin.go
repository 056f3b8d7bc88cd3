package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mugeunji/studio-reservation/internal/ledger"
	"github.com/mugeunji/studio-reservation/internal/model"
)

// AdminHandler exposes the override and scheduling surface.  Every route
// behind it requires the admin role; the force-write path skips the gate,
// quota and privileged-group rules on purpose.
type AdminHandler struct {
	Ledger *ledger.Ledger
}

func NewAdminHandler(l *ledger.Ledger) *AdminHandler {
	return &AdminHandler{Ledger: l}
}

type adminSlotReq struct {
	Day       string `json:"day"`
	TimeIndex int    `json:"time_index"`
	Username  string `json:"username"`
}

// ForceReservation handles POST /admin/reservation.  It writes the slot
// for the given user, evicting whatever booking occupies it.
func (h *AdminHandler) ForceReservation(c echo.Context) error {
	var req adminSlotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	slot := model.Slot{Day: req.Day, TimeIndex: req.TimeIndex}
	if !slot.Valid() || req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day, time index or username"})
	}
	if _, err := h.Ledger.ForceCreateReservation(c.Request().Context(), req.Username, []model.Slot{slot}); err != nil {
		return writeLedgerError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "reservation updated successfully"})
}

// DeleteReservation handles DELETE /admin/reservation.  Missing slots are
// not an engine error, but the admin UI wants a 404 when nothing was
// removed, so the removed count decides the status.
func (h *AdminHandler) DeleteReservation(c echo.Context) error {
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	slot := model.Slot{Day: req.Day, TimeIndex: req.TimeIndex}
	if !slot.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day or time index"})
	}
	removed, err := h.Ledger.DeleteReservations(c.Request().Context(), []model.Slot{slot})
	if err != nil {
		return writeLedgerError(c, err)
	}
	if removed == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation deleted successfully", "removed": removed})
}

// ClearReservations handles POST /admin/clear: wipe the grid except the
// sentinel owner's slots.
func (h *AdminHandler) ClearReservations(c echo.Context) error {
	removed, err := h.Ledger.ClearReservations(c.Request().Context())
	if err != nil {
		return writeLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "reservations cleared", "removed": removed})
}

type scheduleReq struct {
	OpenDatetime string `json:"open_datetime"`
}

// SetSchedule handles POST /admin/schedule.  It records the opens-at
// instant; the auto-clear fires on its own once requests enter the
// pre-open window.
func (h *AdminHandler) SetSchedule(c echo.Context) error {
	var req scheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	opensAt, err := time.Parse(time.RFC3339, req.OpenDatetime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid datetime format, want RFC3339"})
	}
	if err := h.Ledger.ScheduleOpening(c.Request().Context(), opensAt); err != nil {
		return writeLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "reservation opening scheduled successfully",
		"clear_time": opensAt.Add(-20 * time.Minute).Format(time.RFC3339),
		"open_time":  opensAt.Format(time.RFC3339),
	})
}

// GetSchedule handles GET /admin/schedule and the public
// GET /schedule/open-time.  open_datetime is null when nothing is
// scheduled.
func (h *AdminHandler) GetSchedule(c echo.Context) error {
	settings, err := h.Ledger.GetSettings(c.Request().Context())
	if err != nil {
		return writeLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"open_datetime": settings[model.KeyReservationOpensAt],
	})
}

// GetSettings handles GET /admin/settings: the raw key/value map.
func (h *AdminHandler) GetSettings(c echo.Context) error {
	settings, err := h.Ledger.GetSettings(c.Request().Context())
	if err != nil {
		return writeLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /admin/settings.  All given keys are applied
// as one transaction; null values clear a key.
func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	var values map[string]*string
	if err := c.Bind(&values); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(values) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no settings given"})
	}
	// A malformed opens-at string would poison every later gate check,
	// so it is rejected here rather than stored.
	if v, ok := values[model.KeyReservationOpensAt]; ok && v != nil {
		if _, err := time.Parse(time.RFC3339, *v); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_opens_at must be RFC3339"})
		}
	}
	if err := h.Ledger.UpdateSettings(c.Request().Context(), values); err != nil {
		return writeLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "settings updated successfully"})
}
