package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// httpWS streams every published overlay snapshot to the client as JSON
// text messages. If the client can't keep up, the watcher channel drops
// snapshots; the client always receives a valid (possibly skipped-ahead)
// state, never a partial one.
func (s *Server) httpWS(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warnf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := s.Monitor.AddWatcher()
	defer s.Monitor.RemoveWatcher(ch)

	// Reader, just to notice the client going away
	closed := make(chan bool)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	}()

	for {
		select {
		case state := <-ch:
			if err := conn.WriteJSON(state); err != nil {
				s.Log.Infof("Websocket viewer disconnected: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
