package nnsim

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/bmharper/cimg/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type completion struct {
	obs []nn.Observation
	err error
}

// capture returns an OnComplete handler feeding ch. Completions arrive on
// engine goroutines, so assertions happen back on the test goroutine.
func capture(ch chan completion) func([]nn.Observation, error) {
	return func(obs []nn.Observation, err error) {
		ch <- completion{obs: obs, err: err}
	}
}

func collect(t *testing.T, ch chan completion) []nn.Observation {
	t.Helper()
	select {
	case c := <-ch:
		require.NoError(t, c.err)
		return c.obs
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for auto completion")
		return nil
	}
}

func inBounds(t *testing.T, box nn.Rect) {
	t.Helper()
	require.GreaterOrEqual(t, box.X, float32(0))
	require.GreaterOrEqual(t, box.Y, float32(0))
	require.LessOrEqual(t, box.X2(), float32(1))
	require.LessOrEqual(t, box.Y2(), float32(1))
}

func TestAutoEngineCompletes(t *testing.T) {
	eng := NewAutoEngine(1)
	defer eng.Close()
	img := cimg.NewImage(64, 64, cimg.PixelFormatRGB)

	results := make(chan completion, 10)
	for _, kind := range []nn.RequestKind{nn.RequestObjectDetect, nn.RequestFaceDetect, nn.RequestFaceLandmarks} {
		req, err := eng.NewRequest(kind)
		require.NoError(t, err)
		req.OnComplete(capture(results))
		require.NoError(t, eng.Submit([]nn.EngineRequest{req}, img))

		obs := collect(t, results)
		require.Len(t, obs, 1)
		require.Equal(t, kind, obs[0].Kind)
		inBounds(t, obs[0].Box)
		if kind == nn.RequestFaceLandmarks {
			require.Len(t, obs[0].Landmarks, 5)
		}
	}
}

func TestAutoEngineTrackFollowsSeed(t *testing.T) {
	eng := NewAutoEngine(1)
	defer eng.Close()
	img := cimg.NewImage(64, 64, cimg.PixelFormatRGB)

	seq, err := eng.NewSequence()
	require.NoError(t, err)
	req, err := eng.NewRequest(nn.RequestTrackObject)
	require.NoError(t, err)

	id := uuid.New()
	req.SetObservation(nn.Observation{
		ID:         id,
		Kind:       nn.RequestTrackObject,
		Box:        nn.Rect{X: 0.4, Y: 0.4, Width: 0.1, Height: 0.1},
		Confidence: 0.9,
	})
	results := make(chan completion, 10)
	req.OnComplete(capture(results))

	// The simulated track keeps the seeded identity and wanders smoothly,
	// staying inside the frame.
	for i := 0; i < 20; i++ {
		require.NoError(t, seq.Submit([]nn.EngineRequest{req}, img))
		obs := collect(t, results)
		require.Len(t, obs, 1)
		require.Equal(t, id, obs[0].ID)
		inBounds(t, obs[0].Box)
	}
}

// Once Close returns, no completion handler may fire: Monitor.Close closes
// its results queue right after closing the engine, and a straggling
// delivery would send on a closed channel.
func TestCloseWaitsForAutoCompletions(t *testing.T) {
	eng := NewAutoEngine(1)
	img := cimg.NewImage(64, 64, cimg.PixelFormatRGB)

	req, err := eng.NewRequest(nn.RequestObjectDetect)
	require.NoError(t, err)

	var closeReturned atomic.Bool
	var deliveredAfterClose atomic.Bool
	req.OnComplete(func(obs []nn.Observation, err error) {
		// Keep the engine worker busy long enough that a Close which
		// doesn't wait would return mid-delivery
		time.Sleep(50 * time.Millisecond)
		if closeReturned.Load() {
			deliveredAfterClose.Store(true)
		}
	})
	require.NoError(t, eng.Submit([]nn.EngineRequest{req}, img))

	eng.Close()
	closeReturned.Store(true)
	require.False(t, deliveredAfterClose.Load())

	// And nothing is accepted afterwards
	require.ErrorIs(t, eng.Submit([]nn.EngineRequest{req}, img), ErrClosed)
}

func TestManualEngineBookkeeping(t *testing.T) {
	eng := NewEngine()
	defer eng.Close()
	img := cimg.NewImage(64, 64, cimg.PixelFormatRGB)

	req, err := eng.NewRequest(nn.RequestObjectDetect)
	require.NoError(t, err)
	require.Equal(t, 1, eng.RequestsCreated(nn.RequestObjectDetect))

	require.NoError(t, eng.Submit([]nn.EngineRequest{req}, img))
	subs := eng.TakeSubmissions()
	require.Len(t, subs, 1)
	require.Same(t, req, subs[0].Find(nn.RequestObjectDetect))
	require.Empty(t, eng.TakeSubmissions())
}

func TestClosedSequenceRejectsSubmit(t *testing.T) {
	eng := NewEngine()
	defer eng.Close()

	seq, err := eng.NewSequence()
	require.NoError(t, err)
	req, err := eng.NewRequest(nn.RequestTrackObject)
	require.NoError(t, err)

	require.NoError(t, seq.Close())
	err = seq.Submit([]nn.EngineRequest{req}, cimg.NewImage(8, 8, cimg.PixelFormatRGB))
	require.Error(t, err)
}
