// Package server ties the frame source, the vision pipeline, and the HTTP
// surface together into the running application.
package server

import (
	"github.com/arguscam/argus/server/camera"
	"github.com/arguscam/argus/server/monitor"
	"github.com/cyclopcam/logs"
)

type Server struct {
	Log     logs.Log
	Monitor *monitor.Monitor
	Source  camera.FrameSource
}

func NewServer(logger logs.Log, source camera.FrameSource, mon *monitor.Monitor) *Server {
	return &Server{
		Log:     logger,
		Monitor: mon,
		Source:  source,
	}
}

// Start begins capture. The source blocks here until it is allowed to
// capture; a refusal is fatal to capture and there is no automatic retry.
func (s *Server) Start() error {
	return s.Source.Start(s.Monitor.OnFrame)
}

func (s *Server) Shutdown() {
	s.Source.Stop()
	s.Monitor.Close()
}
