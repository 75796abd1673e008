package monitor

import (
	"time"

	"github.com/arguscam/argus/pkg/nn"
)

// setupPipeline wires one submitter+request pair per detection kind.
// Object detection runs through the fixed-size submitter; face and landmark
// detection submit frames at their native size; tracking requests share one
// sequence submitter, managed by the tracker pool.
func (m *Monitor) setupPipeline() error {
	var err error
	m.objectSub = newFixedImageSubmitter(m, nnFixedWidth, nnFixedHeight)
	m.faceSub = newImageSubmitter(m)
	m.landmarkSub = newImageSubmitter(m)
	if m.trackSub, err = newSequenceSubmitter(m); err != nil {
		return err
	}
	m.tracker = newTrackerPool(m, m.trackSub)

	if m.objectReq, err = m.newInferenceRequest(nn.RequestObjectDetect); err != nil {
		return err
	}
	if m.faceReq, err = m.newInferenceRequest(nn.RequestFaceDetect); err != nil {
		return err
	}
	if m.landmarkReq, err = m.newInferenceRequest(nn.RequestFaceLandmarks); err != nil {
		return err
	}
	m.objectSub.add(m.objectReq)
	m.faceSub.add(m.faceReq)
	m.landmarkSub.add(m.landmarkReq)

	m.objectReq.enable(m.onObjectResults)
	m.faceReq.enable(m.onFaceResults)
	m.landmarkReq.enable(m.onLandmarkResults)
	return nil
}

func filterKind(results []nn.Observation, kind nn.RequestKind) []nn.Observation {
	out := make([]nn.Observation, 0, len(results))
	for _, r := range results {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func (m *Monitor) onObjectResults(results []nn.Observation, err error) {
	if err != nil {
		m.failResult("object detection", err)
		return
	}
	m.objects = filterKind(results, nn.RequestObjectDetect)
	now := time.Now()
	for _, det := range m.objects {
		m.tracker.startTracking(det, now)
	}
	m.publish()
}

func (m *Monitor) onFaceResults(results []nn.Observation, err error) {
	if err != nil {
		m.failResult("face detection", err)
		return
	}
	m.faces = filterKind(results, nn.RequestFaceDetect)
	now := time.Now()
	for _, face := range m.faces {
		m.tracker.startTracking(face, now)
	}
	if len(m.faces) > 0 {
		// Landmarks are only worth computing when there's a face. Re-submit
		// the cached frame; by now it may be a frame or two behind the
		// camera, which is fine (results are not required to be
		// frame-consistent).
		if frame := m.LatestFrame(); frame != nil {
			m.landmarkSub.Submit(frame)
		}
	} else {
		m.landmarks = nil
	}
	m.publish()
}

func (m *Monitor) onLandmarkResults(results []nn.Observation, err error) {
	if err != nil {
		m.failResult("landmark detection", err)
		return
	}
	m.landmarks = filterKind(results, nn.RequestFaceLandmarks)
	m.publish()
}
