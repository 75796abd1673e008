package server

import (
	"net/http"

	"github.com/arguscam/argus/server/www"
	"github.com/julienschmidt/httprouter"
)

// SetupHTTP runs the HTTP surface. port example: ":8080"
// This blocks; run it on the main goroutine after capture has started.
func (s *Server) SetupHTTP(port string) error {
	router := httprouter.New()
	router.GET("/api/ping", www.Handle(s.Log, s.httpPing))
	router.GET("/api/state", www.Handle(s.Log, s.httpState))
	router.GET("/api/snapshot", www.Handle(s.Log, s.httpSnapshot))
	router.GET("/api/ws", s.httpWS)

	s.Log.Infof("Listening on %v", port)
	return http.ListenAndServe(port, router)
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendText(w, "pong")
}

// httpState returns the most recently published overlay state.
func (s *Server) httpState(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	state := s.Monitor.LatestState()
	if state == nil {
		www.PanicServiceUnavailable("No detections published yet")
	}
	www.SendJSON(w, state)
}

// httpSnapshot returns the latest frame as JPEG, with overlays drawn in.
func (s *Server) httpSnapshot(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	frame := s.Monitor.LatestFrame()
	if frame == nil {
		www.PanicServiceUnavailable("No frame captured yet")
	}
	jpg, err := RenderOverlay(frame.Image, s.Monitor.LatestState())
	if err != nil {
		www.Panic(http.StatusInternalServerError, err.Error())
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(jpg)
}
