package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mugeunji/studio-reservation/internal/hub"
	"github.com/mugeunji/studio-reservation/internal/ledger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The grid is public read; any origin may watch it.
		return true
	},
}

// WSHandler serves the live grid feed.  A client gets the full snapshot
// on connect and a fresh snapshot frame after every change.
type WSHandler struct {
	Ledger *ledger.Ledger
	Hub    *hub.Hub
}

func NewWSHandler(l *ledger.Ledger, h *hub.Hub) *WSHandler {
	return &WSHandler{Ledger: l, Hub: h}
}

// Serve handles GET /ws.  The snapshot is fetched inside Subscribe so a
// change committing during the handshake cannot slip between the read
// and the subscription.  The read loop exists only to detect disconnect;
// clients are not expected to send anything meaningful.
func (h *WSHandler) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // Upgrade already wrote the error response
	}

	err = h.Hub.Subscribe(conn, func() ([]byte, error) {
		snapshot, err := h.Ledger.GetAllReservations(ctx)
		if err != nil {
			return nil, err
		}
		return hub.SnapshotFrame(snapshot)
	})
	if err != nil {
		conn.Close()
		return nil
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.Hub.Unsubscribe(conn)
	conn.Close()
	return nil
}
