package reader

import (
	"fmt"
	"math"

	"github.com/pithecene-io/depthstream/encoder"
	"github.com/pithecene-io/depthstream/wire"
)

// FrameDetail is a decoded view of one recorded frame.
type FrameDetail struct {
	Seq         int        `json:"seq" yaml:"seq"`
	JobID       string     `json:"job_id" yaml:"job_id"`
	TimestampMs int64      `json:"ts" yaml:"ts"`
	ImageSize   string     `json:"image_size" yaml:"image_size"`
	ImageBytes  int        `json:"image_bytes" yaml:"image_bytes"`
	DepthSize   string     `json:"depth_size,omitempty" yaml:"depth_size,omitempty"`
	DepthBytes  int        `json:"depth_bytes" yaml:"depth_bytes"`
	Intrinsics  [3]float64 `json:"intrinsics_diag" yaml:"intrinsics_diag"`
	Position    [3]float64 `json:"position" yaml:"position"`

	// Depth statistics over pixels with a measured distance.
	DepthValid int     `json:"depth_valid" yaml:"depth_valid"`
	DepthMinM  float64 `json:"depth_min_m" yaml:"depth_min_m"`
	DepthMaxM  float64 `json:"depth_max_m" yaml:"depth_max_m"`
	DepthMeanM float64 `json:"depth_mean_m" yaml:"depth_mean_m"`
}

// DecodeFrame decodes frame seq of rec. maxDepth must match the range the
// recording was encoded with.
func DecodeFrame(rec *wire.Recording, seq int, maxDepth float64) (*FrameDetail, error) {
	if seq < 0 || seq >= len(rec.Frames) {
		return nil, fmt.Errorf("frame %d out of range (recording has %d frames)", seq, len(rec.Frames))
	}
	f := rec.Frames[seq]
	d := &FrameDetail{
		Seq:         seq,
		JobID:       f.JobID,
		TimestampMs: f.TimestampMs,
		ImageSize:   formatSize(f.ImageSize),
		ImageBytes:  len(f.Image),
		DepthBytes:  len(f.Depth),
		Intrinsics:  [3]float64{f.Intrinsics[0][0], f.Intrinsics[1][1], f.Intrinsics[2][2]},
		Position:    [3]float64{f.CameraPose[0][3], f.CameraPose[1][3], f.CameraPose[2][3]},
	}
	if !f.HasDepth() {
		return d, nil
	}
	if f.DepthSize != nil {
		d.DepthSize = formatSize(*f.DepthSize)
	}

	depth, err := encoder.DecodeDepth(f.Depth, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", seq, err)
	}
	var sum float64
	for _, m := range depth.Meters {
		if m <= 0 {
			continue
		}
		v := float64(m)
		if d.DepthValid == 0 || v < d.DepthMinM {
			d.DepthMinM = v
		}
		if v > d.DepthMaxM {
			d.DepthMaxM = v
		}
		sum += v
		d.DepthValid++
	}
	if d.DepthValid > 0 {
		d.DepthMeanM = round3(sum / float64(d.DepthValid))
		d.DepthMinM = round3(d.DepthMinM)
		d.DepthMaxM = round3(d.DepthMaxM)
	}
	return d, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
