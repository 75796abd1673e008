package camera

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, 85, 0))
	require.NoError(t, err)
	return jpg
}

// serveMJPEG is a minimal multipart/x-mixed-replace camera
func serveMJPEG(t *testing.T, frames [][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		for _, jpg := range frames {
			fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %v\r\n\r\n", len(jpg))
			w.Write(jpg)
			fmt.Fprint(w, "\r\n")
		}
		fmt.Fprint(w, "--frame--\r\n")
	}))
}

func TestMJPEGSource(t *testing.T) {
	jpg := testJPEG(t, 320, 240)
	srv := serveMJPEG(t, [][]byte{jpg, jpg, jpg})
	defer srv.Close()

	frames := make(chan *Frame, 10)
	src := NewMJPEGSource(logs.NewTestingLog(t), srv.URL)
	require.NoError(t, src.Start(func(f *Frame) { frames <- f }))

	for i := 1; i <= 3; i++ {
		select {
		case f := <-frames:
			require.Equal(t, int64(i), f.ID)
			require.Equal(t, 320, f.Image.Width)
			require.Equal(t, 240, f.Image.Height)
			require.False(t, f.PTS.IsZero())
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out waiting for frame %v", i)
		}
	}
	src.Stop()
}

func TestMJPEGSourceSkipsBadFrame(t *testing.T) {
	good := testJPEG(t, 320, 240)
	srv := serveMJPEG(t, [][]byte{good, []byte("this is not a jpeg"), good})
	defer srv.Close()

	frames := make(chan *Frame, 10)
	src := NewMJPEGSource(logs.NewTestingLog(t), srv.URL)
	require.NoError(t, src.Start(func(f *Frame) { frames <- f }))
	defer src.Stop()

	// The corrupt part is logged and skipped, delivery continues
	got := 0
	for got < 2 {
		select {
		case <-frames:
			got++
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out after %v frames", got)
		}
	}
}

func TestMJPEGSourceRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such camera", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewMJPEGSource(logs.NewTestingLog(t), srv.URL)
	err := src.Start(func(f *Frame) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "refused")
}

func TestMJPEGSourceNotMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>camera admin page</html>")
	}))
	defer srv.Close()

	src := NewMJPEGSource(logs.NewTestingLog(t), srv.URL)
	err := src.Start(func(f *Frame) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not an MJPEG stream")
}

func TestSyntheticSource(t *testing.T) {
	frames := make(chan *Frame, 10)
	src := NewSyntheticSource(160, 120, 50)
	require.NoError(t, src.Start(func(f *Frame) { frames <- f }))

	for i := 1; i <= 2; i++ {
		select {
		case f := <-frames:
			require.Equal(t, int64(i), f.ID)
			require.Equal(t, 160, f.Image.Width)
			require.Equal(t, 120, f.Image.Height)
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out waiting for frame %v", i)
		}
	}
	src.Stop()
}
