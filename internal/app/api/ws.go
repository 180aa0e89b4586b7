package api

import (
	"encoding/json"
	"net/http"
	"time"

	"app/pkg/ws"

	"github.com/gorilla/websocket"
)

// events streams transcription lifecycle events to the hosting session /
// control panel. Delivery is best effort, see notifications.Client.
func (api *API) events(w http.ResponseWriter, r *http.Request) {
	wsConn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		api.logger.Error("failed to upgrade websocket connection", "err", err)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	wsClient, done := ws.NewWsClient(wsConn)

	defer func() {
		api.logger.Info("closing events websocket connection")
		_ = wsClient.Close()
	}()

	events, unsub := api.notifications.Subscribe(r.Context())
	defer unsub()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-done:
			break loop
		case event, ok := <-events:
			if !ok {
				break loop
			}

			data, err := json.Marshal(&event)
			if err != nil {
				api.logger.Error("failed to marshal event", "err", err)

				continue
			}

			if err := wsClient.Send(&ws.Message{
				MsgType: websocket.TextMessage,
				Message: data,
			}); err != nil {
				break loop
			}
		case <-ticker.C:
			if err := wsClient.Send(&ws.Message{
				MsgType: websocket.PingMessage,
				Message: nil,
			}); err != nil {
				break loop
			}
		}
	}
}
