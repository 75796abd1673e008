package monitor

import (
	"time"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/arguscam/argus/pkg/perfstats"
	"github.com/google/uuid"
)

// TrackedObject is one identity-preserving track, as rendered.
// SYNC-TRACKED-OBJECT
type TrackedObject struct {
	ID         uuid.UUID  `json:"id"`
	Label      string     `json:"label,omitempty"`
	Box        nn.Rect    `json:"box"`
	Confidence float32    `json:"confidence"`
	Trail      []nn.Point `json:"trail,omitempty"` // recent box centers, oldest first
}

// RenderState is the merged per-frame overlay state consumed by the
// rendering layer. Each publication replaces the previous state wholesale;
// there is no incremental diffing contract.
// SYNC-RENDER-STATE
type RenderState struct {
	FrameID   int64            `json:"frameID"`
	Time      time.Time        `json:"time"`
	Objects   []nn.Observation `json:"objects"`
	Faces     []nn.Observation `json:"faces"`
	Landmarks []nn.Observation `json:"landmarks"`
	Tracked   []TrackedObject  `json:"tracked"`
}

func orEmpty(list []nn.Observation) []nn.Observation {
	if list == nil {
		// non-nil, so that we always get an array in our JSON output
		return []nn.Observation{}
	}
	return list
}

// publish snapshots the merged pipeline state and hands it to the rendering
// layer: the latest-state slot plus every watcher channel. Always a full
// copy, never references into live state. Runs on the results goroutine.
func (m *Monitor) publish() {
	start := time.Now()
	state := &RenderState{
		Time:      time.Now(),
		Objects:   orEmpty(nn.CloneObservations(m.objects)),
		Faces:     orEmpty(nn.CloneObservations(m.faces)),
		Landmarks: orEmpty(nn.CloneObservations(m.landmarks)),
		Tracked:   m.tracker.snapshot(),
	}
	m.frameLock.Lock()
	if m.lastFrame != nil {
		state.FrameID = m.lastFrame.ID
	}
	m.frameLock.Unlock()

	m.latestLock.Lock()
	m.latest = state
	m.latestLock.Unlock()

	m.sendToWatchers(state)
	perfstats.UpdateMovingAverage(&m.avgTimeNSPerFramePublish, time.Now().Sub(start).Nanoseconds())
}

// LatestState returns the most recently published snapshot, or nil before
// the first publication. The caller owns nothing in it besides reading.
func (m *Monitor) LatestState() *RenderState {
	m.latestLock.Lock()
	defer m.latestLock.Unlock()
	return m.latest
}
