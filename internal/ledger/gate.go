package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/store"
)

// clearWindow is how long before a scheduled opening the grid is wiped so
// everyone starts the race from an empty board.
const clearWindow = 20 * time.Minute

type gateResult struct {
	open    bool
	reason  string // set when closed
	cleared bool   // the auto-clear fired in this evaluation
}

// evaluateGate runs the availability state machine inside the caller's
// transaction.  There is no background timer: the check piggybacks on the
// write path, so the last_cleared_for guard is the only thing preventing
// duplicate clears when concurrent requests race through the pre-open
// window.
//
// With no opening scheduled the gate simply follows the enabled flag.
// With one scheduled:
//   - inside [opensAt-20m, opensAt): fire the one-shot clear if
//     last_cleared_for differs from the stored opens-at string, then stay
//     closed until the instant arrives;
//   - past opensAt: consume the schedule (enabled=true, opens_at=null)
//     and open.  The consumption writes commit together with the booking.
func (l *Ledger) evaluateGate(ctx context.Context, tx store.Tx) (gateResult, error) {
	raw, err := tx.Settings(ctx)
	if err != nil {
		return gateResult{}, storeErr("read settings", err)
	}
	s := model.ParseSettings(raw)

	if s.OpensAt == nil {
		if s.Enabled {
			return gateResult{open: true}, nil
		}
		return gateResult{reason: "disabled by admin"}, nil
	}

	opensAt, err := time.Parse(time.RFC3339, *s.OpensAt)
	if err != nil {
		return gateResult{}, storeErr("parse opens-at", err)
	}
	now := l.clock.Now()

	if now.Before(opensAt) {
		inWindow := !now.Before(opensAt.Add(-clearWindow))
		alreadyCleared := s.LastClearedFor != nil && *s.LastClearedFor == *s.OpensAt
		if inWindow && !alreadyCleared {
			if _, err := tx.DeleteReservationsExcept(ctx, l.clearExempt); err != nil {
				return gateResult{}, storeErr("auto-clear", err)
			}
			if err := tx.UpdateSettings(ctx, map[string]*string{
				model.KeyLastClearedFor: s.OpensAt,
			}); err != nil {
				return gateResult{}, storeErr("mark cleared", err)
			}
			return gateResult{
				reason:  fmt.Sprintf("cleared; opens at %s", *s.OpensAt),
				cleared: true,
			}, nil
		}
		return gateResult{reason: fmt.Sprintf("opens at %s", *s.OpensAt)}, nil
	}

	// The scheduled instant has passed: consume the schedule and open.
	enabled := "true"
	if err := tx.UpdateSettings(ctx, map[string]*string{
		model.KeyReservationEnabled: &enabled,
		model.KeyReservationOpensAt: nil,
	}); err != nil {
		return gateResult{}, storeErr("consume schedule", err)
	}
	return gateResult{open: true}, nil
}
