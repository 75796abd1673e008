package monitor

import (
	"sort"
	"time"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/bmharper/flatbush-go"
	"github.com/bmharper/ringbuffer"
	"github.com/google/uuid"
)

// trackerPool manages the bounded set of active per-object tracking
// requests, plus a free list of recycled requests available for reuse.
// Every method runs on the results goroutine; that single-consumer
// discipline is the pool's only synchronization.
//
// Invariants:
//   - len(active) <= maxActiveTracks
//   - a track's identity never changes while active, and is dropped from
//     the active map in the same step that its request returns to the pool
type trackerPool struct {
	mon    *Monitor
	sub    *SequenceSubmitter
	active map[uuid.UUID]*track
	pool   []*InferenceRequest
}

// track correlates one tracking request with its target's last known state.
type track struct {
	id         uuid.UUID
	label      string
	req        *InferenceRequest
	lastBox    nn.Rect
	confidence float32
	firstSeen  time.Time
	history    ringbuffer.RingP[timeAndBox]
}

type timeAndBox struct {
	time time.Time
	box  nn.Rect
}

func newTrackerPool(m *Monitor, sub *SequenceSubmitter) *trackerPool {
	return &trackerPool{
		mon:    m,
		sub:    sub,
		active: map[uuid.UUID]*track{},
	}
}

// isAlreadyTracked is true if the detection's box has any strictly positive
// overlap with any active track's last known box. Deliberately coarse: any
// overlap counts, however small, with no IoU threshold. Tightening this
// changes track-starting behavior materially.
func (p *trackerPool) isAlreadyTracked(det nn.Observation) bool {
	if len(p.active) == 0 {
		return false
	}
	fb := flatbush.NewFlatbush[float32]()
	fb.Reserve(len(p.active))
	tracks := make([]*track, 0, len(p.active))
	for _, t := range p.active {
		fb.Add(t.lastBox.X, t.lastBox.Y, t.lastBox.X2(), t.lastBox.Y2())
		tracks = append(tracks, t)
	}
	fb.Finish()
	for _, j := range fb.SearchFast(det.Box.X, det.Box.Y, det.Box.X2(), det.Box.Y2(), nil) {
		if det.Box.Intersects(tracks[j].lastBox) {
			return true
		}
	}
	return false
}

// startTracking begins pursuing a detection, unless it is already covered by
// an active track, or the cap is reached. Prefers reusing a pooled request
// over allocating a new one.
func (p *trackerPool) startTracking(det nn.Observation, pts time.Time) {
	if p.isAlreadyTracked(det) {
		return
	}
	if len(p.active) >= maxActiveTracks {
		// Not an error: the object simply goes untracked until a slot frees
		return
	}

	// Nothing is tracking, so the sequence context holds only dead
	// correlation state. Swap it for a fresh one and let the pooled
	// requests go, so that engine resources don't accumulate across idle
	// periods. The cost is a burst of reallocation on the next tracks.
	if len(p.active) == 0 && len(p.pool) > 0 {
		if err := p.sub.Reset(); err != nil {
			p.mon.Log.Errorf("Tracking sequence reset failed: %v", err)
			return
		}
		p.pool = p.pool[:0]
	}

	seed := nn.Observation{
		ID:         det.ID,
		Kind:       nn.RequestTrackObject,
		Box:        det.Box,
		Confidence: det.Confidence,
	}
	var req *InferenceRequest
	if n := len(p.pool); n > 0 {
		req = p.pool[n-1]
		p.pool = p.pool[:n-1]
		req.reuse(seed)
	} else {
		var err error
		req, err = p.mon.newInferenceRequest(nn.RequestTrackObject)
		if err != nil {
			p.mon.Log.Errorf("Failed to create tracking request: %v", err)
			return
		}
		req.engineReq.SetObservation(seed)
	}

	t := &track{
		id:         det.ID,
		label:      det.Label,
		req:        req,
		lastBox:    det.Box,
		confidence: det.Confidence,
		firstSeen:  pts,
		history:    ringbuffer.NewRingP[timeAndBox](trackHistorySize),
	}
	t.history.Add(timeAndBox{time: pts, box: det.Box})
	p.active[t.id] = t
	p.sub.attach(req)
	req.enable(func(results []nn.Observation, err error) {
		p.onTrackResult(t, results, err)
	})
}

// onTrackResult consumes one tracking completion for one tracked object.
// This is the sole path by which tracks terminate.
func (p *trackerPool) onTrackResult(t *track, results []nn.Observation, err error) {
	if err != nil {
		p.mon.failResult("tracking", err)
		return
	}
	if len(results) == 0 {
		// The engine has nothing to report for this target at all, not even a
		// low-confidence guess. Without this, the track would sit active
		// forever with no path to termination.
		p.recycle(t)
		p.mon.publish()
		return
	}
	obs := results[0]
	if obs.Confidence > minTrackConfidence {
		t.lastBox = obs.Box
		t.confidence = obs.Confidence
		t.history.Add(timeAndBox{time: time.Now(), box: obs.Box})
		// Same target, next frame: feed the engine its own latest estimate
		t.req.reuse(nn.Observation{
			ID:         t.id,
			Kind:       nn.RequestTrackObject,
			Box:        obs.Box,
			Confidence: obs.Confidence,
		})
	} else {
		p.recycle(t)
	}
	p.mon.publish()
}

// recycle terminates a track: the engine is told this is the target's final
// frame, and the request leaves the active map and returns to the pool in
// one step, which also removes the track from the rendered state.
func (p *trackerPool) recycle(t *track) {
	t.req.setFinalFrame()
	t.req.disable()
	p.sub.detach(t.req)
	delete(p.active, t.id)
	p.pool = append(p.pool, t.req)
}

// snapshot renders the active tracks as a sorted, fully copied list.
func (p *trackerPool) snapshot() []TrackedObject {
	out := make([]TrackedObject, 0, len(p.active))
	for _, t := range p.active {
		obj := TrackedObject{
			ID:         t.id,
			Label:      t.label,
			Box:        t.lastBox,
			Confidence: t.confidence,
		}
		for i := 0; i < t.history.Len(); i++ {
			obj.Trail = append(obj.Trail, t.history.Peek(i).box.Center())
		}
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := p.active[out[i].ID], p.active[out[j].ID]
		if !a.firstSeen.Equal(b.firstSeen) {
			return a.firstSeen.Before(b.firstSeen)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
