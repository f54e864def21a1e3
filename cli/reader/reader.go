package reader

import (
	"fmt"
	"math"

	"github.com/pithecene-io/depthstream/types"
	"github.com/pithecene-io/depthstream/wire"
)

// InspectRecording summarizes a decoded recording.
func InspectRecording(path string, rec *wire.Recording) *InspectRecordingResponse {
	resp := &InspectRecordingResponse{
		Path:    path,
		Outcome: OutcomeTruncated,
		Frames:  len(rec.Frames),
	}
	if h := rec.Header; h != nil {
		resp.ProtocolVersion = h.ProtocolVersion
		resp.JobID = h.JobID
		resp.SessionID = h.SessionID
		resp.BackendURL = h.BackendURL
		resp.Mode = string(h.Mode)
		resp.StartedAt = h.StartedAt
	}
	if e := rec.End; e != nil {
		ended := e.EndedAt
		resp.Outcome = string(e.Outcome)
		resp.Error = e.Error
		resp.EndedAt = &ended
		resp.FramesReceived = e.Stats.FramesReceived
		resp.FramesSent = e.Stats.FramesSent
		resp.FramesDropped = e.Stats.Dropped()
	}

	resp.MinDeltaMs = -1
	for i, f := range rec.Frames {
		resp.ImageBytes += int64(len(f.Image))
		resp.DepthBytes += int64(len(f.Depth))
		if f.HasDepth() {
			resp.DepthFrames++
			if resp.DepthSize == "" && f.DepthSize != nil {
				resp.DepthSize = formatSize(*f.DepthSize)
			}
		}
		if i == 0 {
			resp.FirstTs = f.TimestampMs
			resp.ImageSize = formatSize(f.ImageSize)
			continue
		}
		delta := f.TimestampMs - rec.Frames[i-1].TimestampMs
		if resp.MinDeltaMs < 0 || delta < resp.MinDeltaMs {
			resp.MinDeltaMs = delta
		}
	}
	if resp.MinDeltaMs < 0 {
		resp.MinDeltaMs = 0
	}
	if n := len(rec.Frames); n > 0 {
		resp.LastTs = rec.Frames[n-1].TimestampMs
		resp.SpanMs = resp.LastTs - resp.FirstTs
	}
	if resp.SpanMs > 0 {
		hz := float64(resp.Frames-1) * 1000 / float64(resp.SpanMs)
		resp.EffectiveHz = math.Round(hz*100) / 100
	}
	return resp
}

// ListFrames returns one row per recorded frame.
func ListFrames(rec *wire.Recording, opts ListFramesOptions) []FrameItem {
	items := make([]FrameItem, 0, len(rec.Frames))
	var prev int64
	for i, f := range rec.Frames {
		var delta int64
		if i > 0 {
			delta = f.TimestampMs - prev
		}
		prev = f.TimestampMs
		if opts.DepthOnly && !f.HasDepth() {
			continue
		}
		items = append(items, frameItem(i, delta, f))
		if opts.Limit > 0 && len(items) >= opts.Limit {
			break
		}
	}
	return items
}

func frameItem(seq int, delta int64, f *types.WireMessage) FrameItem {
	return FrameItem{
		Seq:         seq,
		TimestampMs: f.TimestampMs,
		DeltaMs:     delta,
		HasDepth:    f.HasDepth(),
		ImageBytes:  len(f.Image),
		DepthBytes:  len(f.Depth),
		ImageSize:   formatSize(f.ImageSize),
	}
}

func formatSize(s types.Size) string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}
