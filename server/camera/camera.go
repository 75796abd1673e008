// Package camera provides decoded frame sources for the vision pipeline.
package camera

import (
	"time"

	"github.com/bmharper/cimg/v2"
)

// Frame is one decoded camera frame.
type Frame struct {
	Image *cimg.Image // RGB pixels
	ID    int64       // Monotonic frame number, assigned by the source
	PTS   time.Time   // Presentation time
}

// FrameSource delivers decoded frames.
// Start blocks until the source is ready to capture (connected, permission
// granted), and returns an error if capture cannot begin; there is no
// automatic retry. Once started, the source calls deliver sequentially, one
// frame at a time, in order, from a single goroutine.
type FrameSource interface {
	Start(deliver func(*Frame)) error
	Stop()
}
