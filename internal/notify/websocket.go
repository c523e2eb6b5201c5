package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-progress/internal/locale"
)

const writeTimeout = 10 * time.Second

// ServeUser upgrades the request to a WebSocket and streams the user's
// notifications until the client goes away or the gateway closes.
// Achievement texts follow the request's Accept-Language.
func (g *Gateway) ServeUser(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "user_id", userID, "error", err)
		return
	}
	defer conn.CloseNow()

	sub := g.Subscribe(userID)
	defer sub.Close()

	printer := locale.Printer(r.Header.Get("Accept-Language"))
	ctx := conn.CloseRead(r.Context())

	slog.Info("notification stream opened", "user_id", userID)
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification stream closed", "user_id", userID)
			return
		case n, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if n.Achievement != nil {
				localized := locale.Achievement(printer, *n.Achievement)
				n.Achievement = &localized
			}
			if err := write(ctx, conn, n); err != nil {
				slog.Warn("notification write failed", "user_id", userID, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, n)
}
