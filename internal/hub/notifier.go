package hub

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mugeunji/studio-reservation/internal/model"
)

// TypeReservationUpdate marks a frame carrying the full grid snapshot.
// Every change pushes the whole current state, so a client can always
// replace its view wholesale instead of merging deltas.
const TypeReservationUpdate = "RESERVATION_UPDATE"

// Frame is the wire format of one push message.
type Frame struct {
	Type string              `json:"type"`
	Data []model.Reservation `json:"data"`
}

// SnapshotFrame encodes a reservation snapshot as a push frame.
func SnapshotFrame(snapshot []model.Reservation) ([]byte, error) {
	if snapshot == nil {
		snapshot = []model.Reservation{}
	}
	return json.Marshal(Frame{Type: TypeReservationUpdate, Data: snapshot})
}

// ReservationsChanged implements ledger.Notifier by broadcasting the new
// snapshot to every observer.
func (h *Hub) ReservationsChanged(_ context.Context, snapshot []model.Reservation) {
	payload, err := SnapshotFrame(snapshot)
	if err != nil {
		log.Printf("hub: encode snapshot failed: %v", err)
		return
	}
	h.Broadcast(payload)
}
