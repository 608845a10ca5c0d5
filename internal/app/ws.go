package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/grousion/grousion/internal/fanout"
)

// wsSubscribeFrame is the first frame a client sends: the session to watch
// and optionally which entity kinds it cares about. An empty entity list
// subscribes to everything.
type wsSubscribeFrame struct {
	SessionID string   `json:"session_id"`
	Entities  []string `json:"entities,omitempty"`
}

// wsChangeFrame tells the client which entity kinds changed since its last
// signal. Clients reconcile by re-fetching the session view.
type wsChangeFrame struct {
	SessionID string   `json:"session_id"`
	Entities  []string `json:"entities"`
}

type wsErrorFrame struct {
	Error string `json:"error"`
}

func newWSHandler(hub *fanout.Hub) http.Handler {
	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, hub)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
}

func handleWSConn(conn *websocket.Conn, hub *fanout.Hub) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var frame wsSubscribeFrame
	if err := decoder.Decode(&frame); err != nil {
		return
	}
	sessionID := strings.TrimSpace(frame.SessionID)
	if sessionID == "" {
		_ = encoder.Encode(wsErrorFrame{Error: "session_id is required"})
		return
	}

	sub := hub.Subscribe(sessionID, frame.Entities)
	defer sub.Close()

	// The reader only watches for disconnect; frames after the subscribe
	// are ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var discard json.RawMessage
			if err := decoder.Decode(&discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-sub.Changed():
			entities := sub.Drain()
			if len(entities) == 0 {
				continue
			}
			if err := encoder.Encode(wsChangeFrame{SessionID: sessionID, Entities: entities}); err != nil {
				return
			}
		}
	}
}
