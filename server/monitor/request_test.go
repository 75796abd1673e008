package monitor

import (
	"testing"
	"time"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/arguscam/argus/pkg/nn/nnsim"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// A completion that was submitted before the request was disabled must not
// fire the callback, even though the engine delivers it afterwards.
func TestDisableSuppressesInFlightResult(t *testing.T) {
	m, eng := newTestMonitor(t)

	m.InjectTestFrame(640, 480, time.Now())
	subs := eng.TakeSubmissions()
	faceSub := findSubmission(t, subs, nn.RequestFaceDetect)

	m.faceReq.disable()
	faceSub.Complete(faceSub.Batch[0], []nn.Observation{{
		ID:         uuid.New(),
		Kind:       nn.RequestFaceDetect,
		Box:        nn.Rect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2},
		Confidence: 0.9,
	}})
	m.Flush()

	require.Nil(t, m.faces)
	require.Nil(t, m.LatestState())
}

// An engine that delivers the same submission twice (once after the track
// was recycled) must not resurrect the track.
func TestRecycledTrackIgnoresDuplicateResult(t *testing.T) {
	m, eng := newTestMonitor(t)
	now := time.Now()

	det := detection(0.3, 0.3, 0.1, 0.1)
	m.tracker.startTracking(det, now)
	m.InjectTestFrame(640, 480, now)

	var seqSub *nnsim.Submission
	for _, sub := range eng.TakeSubmissions() {
		if sub.Seq != nil {
			seqSub = sub
		}
	}
	require.NotNil(t, seqSub)

	lowConf := []nn.Observation{{ID: det.ID, Kind: nn.RequestTrackObject, Box: det.Box, Confidence: 0.1}}
	seqSub.Complete(seqSub.Batch[0], lowConf)
	m.Flush()
	require.Empty(t, m.tracker.active)
	require.Len(t, m.tracker.pool, 1)

	// The duplicate carries a stale generation and is dropped
	highConf := []nn.Observation{{ID: det.ID, Kind: nn.RequestTrackObject, Box: det.Box, Confidence: 0.9}}
	seqSub.Complete(seqSub.Batch[0], highConf)
	m.Flush()
	require.Empty(t, m.tracker.active)
	require.Len(t, m.tracker.pool, 1)
}
