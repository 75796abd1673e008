package monitor

import (
	"time"

	"github.com/arguscam/argus/server/camera"
	"github.com/bmharper/cimg/v2"
)

// Functions used by unit tests

// InjectTestFrame feeds a synthetic frame through the pipeline ingress, as
// if the camera had delivered it.
func (m *Monitor) InjectTestFrame(width, height int, pts time.Time) {
	m.OnFrame(&camera.Frame{
		Image: cimg.NewImage(width, height, cimg.PixelFormatRGB),
		PTS:   pts,
	})
}

// Flush blocks until every completion queued before the call has been
// processed by the results goroutine. Tests use it to reach quiescence
// before asserting on pipeline state.
func (m *Monitor) Flush() {
	barrier := make(chan struct{})
	m.resultQueue <- resultMsg{barrier: barrier}
	<-barrier
}
