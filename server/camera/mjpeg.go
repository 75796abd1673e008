package camera

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
)

// MJPEGSource reads an MJPEG-over-HTTP stream (multipart/x-mixed-replace),
// the ubiquitous format for IP webcams. Each part is one JPEG frame.
type MJPEGSource struct {
	Log logs.Log
	URL string

	resp      *http.Response
	nextID    int64
	mustStop  atomic.Bool
	stopped   chan bool
	lastErrAt time.Time
}

func NewMJPEGSource(logger logs.Log, url string) *MJPEGSource {
	return &MJPEGSource{
		Log: logger,
		URL: url,
	}
}

// Start connects to the camera. The HTTP round trip is the blocking
// "may I capture" step; if the camera refuses, capture never begins.
func (s *MJPEGSource) Start(deliver func(*Frame)) error {
	resp, err := http.Get(s.URL)
	if err != nil {
		return fmt.Errorf("connect to camera %v: %w", s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("camera %v refused: %v", s.URL, resp.Status)
	}
	mediaType, mparams, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || mparams["boundary"] == "" {
		resp.Body.Close()
		return fmt.Errorf("camera %v is not an MJPEG stream (Content-Type %v)", s.URL, resp.Header.Get("Content-Type"))
	}
	s.resp = resp
	s.stopped = make(chan bool)
	go s.readLoop(multipart.NewReader(resp.Body, mparams["boundary"]), deliver)
	return nil
}

func (s *MJPEGSource) Stop() {
	s.mustStop.Store(true)
	if s.resp != nil {
		s.resp.Body.Close()
		<-s.stopped
	}
}

func (s *MJPEGSource) readLoop(reader *multipart.Reader, deliver func(*Frame)) {
	for !s.mustStop.Load() {
		part, err := reader.NextPart()
		if err != nil {
			if !s.mustStop.Load() {
				s.Log.Errorf("Camera %v stream ended: %v", s.URL, err)
			}
			break
		}
		raw, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			s.fail("read frame", err)
			continue
		}
		img, err := cimg.Decompress(raw)
		if err != nil {
			s.fail("decode frame", err)
			continue
		}
		s.nextID++
		deliver(&Frame{
			Image: img,
			ID:    s.nextID,
			PTS:   time.Now(),
		})
	}
	close(s.stopped)
}

func (s *MJPEGSource) fail(op string, err error) {
	if time.Now().Sub(s.lastErrAt) > 15*time.Second {
		s.Log.Errorf("Camera %v: %v: %v", s.URL, op, err)
		s.lastErrAt = time.Now()
	}
}
