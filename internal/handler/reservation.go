package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mugeunji/studio-reservation/internal/ledger"
	"github.com/mugeunji/studio-reservation/internal/model"
)

// ReservationHandler exposes the slot grid to authenticated users.  All
// validation of slot shapes happens here; the engine assumes well-formed
// slots and enforces the business rules.
type ReservationHandler struct {
	Ledger *ledger.Ledger
}

func NewReservationHandler(l *ledger.Ledger) *ReservationHandler {
	return &ReservationHandler{Ledger: l}
}

type slotReq struct {
	Day       string `json:"day"`
	TimeIndex int    `json:"time_index"`
}

// parseSlots validates and deduplicates a requested slot list.
func parseSlots(reqs []slotReq) ([]model.Slot, bool) {
	seen := make(map[model.Slot]bool, len(reqs))
	out := make([]model.Slot, 0, len(reqs))
	for _, r := range reqs {
		s := model.Slot{Day: r.Day, TimeIndex: r.TimeIndex}
		if !s.Valid() {
			return nil, false
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, true
}

// List handles GET /reservations: the full current snapshot, no auth.
func (h *ReservationHandler) List(c echo.Context) error {
	snapshot, err := h.Ledger.GetAllReservations(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, snapshot)
}

// Create handles POST /reservations.  The body is a JSON array of slots;
// all of them are booked for the caller as one atomic unit or none are.
func (h *ReservationHandler) Create(c echo.Context) error {
	username, ok := c.Get("username").(string)
	if !ok || username == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body []slotReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one slot is required"})
	}
	slots, ok := parseSlots(body)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day or time index"})
	}

	if _, err := h.Ledger.CreateReservation(c.Request().Context(), username, slots); err != nil {
		return writeLedgerError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "reservations created successfully"})
}

// writeLedgerError maps the engine's error taxonomy onto HTTP statuses.
// The reason strings are forwarded verbatim; they are written for users.
func writeLedgerError(c echo.Context, err error) error {
	var notOpen *ledger.NotOpenError
	var quota *ledger.QuotaExceededError
	var conflict *ledger.SlotConflictError
	switch {
	case errors.As(err, &notOpen):
		return c.JSON(http.StatusForbidden, echo.Map{"error": notOpen.Reason})
	case errors.Is(err, ledger.ErrUnknownUser):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.As(err, &quota):
		return c.JSON(http.StatusForbidden, echo.Map{"error": quota.Error()})
	case errors.Is(err, ledger.ErrPrivilegedSlotDenied):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, ledger.ErrPrivilegedGroupNotAtomic):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": conflict.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
