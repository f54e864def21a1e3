package encoder

import (
	"bytes"
	"math"
	"testing"

	"github.com/pithecene-io/depthstream/types"
)

func testFrame(w, h int, withDepth bool) *types.SensorFrame {
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pix[4*i+0] = uint8(i * 7)
		pix[4*i+1] = uint8(i * 13)
		pix[4*i+2] = uint8(i * 29)
		pix[4*i+3] = 0xff
	}
	f := &types.SensorFrame{
		TimestampMs: 1700000000150,
		Color:       types.ColorImage{Width: w, Height: h, Format: types.PixelFormatRGBA, Pix: pix},
		Intrinsics:  types.Mat3{{500, 0, float64(w) / 2}, {0, 500, float64(h) / 2}, {0, 0, 1}},
		Pose:        types.Identity4(),
	}
	f.Pose[0][3] = 1.25
	if withDepth {
		meters := make([]float32, w*h)
		for i := range meters {
			meters[i] = float32(i%97) * 0.1
		}
		f.Depth = &types.DepthMap{Width: w, Height: h, Meters: meters}
	}
	return f
}

func TestEncode_Deterministic(t *testing.T) {
	enc := New(Options{})
	frame := testFrame(32, 24, true)

	a, err := enc.Encode("job_42", frame)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := enc.Encode("job_42", frame)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if !bytes.Equal(a.Image, b.Image) {
		t.Error("color payloads differ between identical encodes")
	}
	if !bytes.Equal(a.Depth, b.Depth) {
		t.Error("depth payloads differ between identical encodes")
	}
}

func TestEncode_Fields(t *testing.T) {
	frame := testFrame(16, 8, true)
	msg, err := New(Options{}).Encode("job_42", frame)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if msg.Type != types.FrameMessageType {
		t.Errorf("Type = %q, want %q", msg.Type, types.FrameMessageType)
	}
	if msg.JobID != "job_42" || msg.TimestampMs != frame.TimestampMs {
		t.Errorf("identity = (%q, %d)", msg.JobID, msg.TimestampMs)
	}
	if msg.ImageSize != (types.Size{W: 16, H: 8}) {
		t.Errorf("ImageSize = %+v", msg.ImageSize)
	}
	if msg.DepthSize == nil || *msg.DepthSize != (types.Size{W: 16, H: 8}) {
		t.Errorf("DepthSize = %+v", msg.DepthSize)
	}
	if msg.Intrinsics != frame.Intrinsics || msg.CameraPose != frame.Pose {
		t.Error("intrinsics or pose not copied verbatim")
	}
	size, err := ImageSize(msg.Image)
	if err != nil {
		t.Fatalf("ImageSize failed: %v", err)
	}
	if size != msg.ImageSize {
		t.Errorf("jpeg header size = %+v, want %+v", size, msg.ImageSize)
	}
}

func TestEncode_DoesNotMutateInput(t *testing.T) {
	frame := testFrame(8, 8, true)
	frame.Color.Format = types.PixelFormatBGRA
	colorBefore := append([]byte(nil), frame.Color.Pix...)
	depthBefore := append([]float32(nil), frame.Depth.Meters...)

	if _, err := New(Options{}).Encode("job", frame); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(colorBefore, frame.Color.Pix) {
		t.Error("color buffer mutated")
	}
	for i := range depthBefore {
		if depthBefore[i] != frame.Depth.Meters[i] {
			t.Fatal("depth buffer mutated")
		}
	}
}

func TestDepth_RoundTrip(t *testing.T) {
	const maxDepth = DefaultMaxDepthMeters
	w, h := 11, 7
	meters := make([]float32, w*h)
	for i := range meters {
		meters[i] = float32(i) * 0.1037
	}
	frame := testFrame(w, h, false)
	frame.Depth = &types.DepthMap{Width: w, Height: h, Meters: meters}

	msg, err := New(Options{}).Encode("job", frame)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := DecodeDepth(msg.Depth, maxDepth)
	if err != nil {
		t.Fatalf("DecodeDepth failed: %v", err)
	}
	if got.Width != w || got.Height != h {
		t.Fatalf("decoded %dx%d, want %dx%d", got.Width, got.Height, w, h)
	}

	bound := maxDepth / 65535
	for i, m := range meters {
		want := math.Min(float64(m), maxDepth)
		if diff := math.Abs(float64(got.Meters[i]) - want); diff > bound {
			t.Errorf("pixel %d: got %v, want %v (diff %v > %v)", i, got.Meters[i], want, diff, bound)
		}
	}
}

func TestQuantize_Clamping(t *testing.T) {
	tests := []struct {
		name   string
		meters float32
		want   uint16
	}{
		{"zero", 0, 0},
		{"negative", -1, 0},
		{"nan", float32(math.NaN()), 0},
		{"positive inf", float32(math.Inf(1)), 0},
		{"ceiling", 8, 65535},
		{"above ceiling", 12.5, 65535},
		{"midpoint", 4, 32768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quantize(tt.meters, 8); got != tt.want {
				t.Errorf("Quantize(%v) = %d, want %d", tt.meters, got, tt.want)
			}
		})
	}
}

func TestEncode_DegradedModeWithoutDepth(t *testing.T) {
	msg, err := New(Options{}).Encode("job", testFrame(8, 8, false))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if msg.Depth != nil || msg.DepthSize != nil {
		t.Errorf("depth present in degraded mode: %d bytes, size %+v", len(msg.Depth), msg.DepthSize)
	}
	if msg.HasDepth() {
		t.Error("HasDepth = true")
	}
}

func TestEncode_ColorOnlyStripsDepth(t *testing.T) {
	msg, err := New(Options{ColorOnly: true}).Encode("job", testFrame(8, 8, true))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if msg.HasDepth() || msg.DepthSize != nil {
		t.Error("ColorOnly encoder emitted depth")
	}
}

func TestEncode_PixelFormats(t *testing.T) {
	w, h := 9, 5
	stride := 12
	nv12 := make([]byte, stride*h+stride*((h+1)/2))
	for i := range nv12 {
		nv12[i] = uint8(i)
	}

	tests := []struct {
		name  string
		color types.ColorImage
	}{
		{"rgba", testFrame(w, h, false).Color},
		{"bgra", types.ColorImage{Width: w, Height: h, Format: types.PixelFormatBGRA, Pix: make([]byte, w*h*4)}},
		{"gray padded stride", types.ColorImage{Width: w, Height: h, Stride: stride, Format: types.PixelFormatGray, Pix: make([]byte, stride*h)}},
		{"nv12 odd width", types.ColorImage{Width: w, Height: h, Stride: stride, Format: types.PixelFormatNV12, Pix: nv12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := testFrame(w, h, false)
			frame.Color = tt.color
			msg, err := New(Options{}).Encode("job", frame)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(msg.Image) == 0 {
				t.Error("empty color payload")
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *types.SensorFrame)
		opts   Options
		kind   ErrorKind
	}{
		{
			name:   "unsupported format",
			mutate: func(f *types.SensorFrame) { f.Color.Format = "yuyv" },
			kind:   ColorEncodeFailed,
		},
		{
			name:   "short color buffer",
			mutate: func(f *types.SensorFrame) { f.Color.Pix = f.Color.Pix[:10] },
			kind:   ColorEncodeFailed,
		},
		{
			name:   "zero width",
			mutate: func(f *types.SensorFrame) { f.Color.Width = 0 },
			kind:   ColorEncodeFailed,
		},
		{
			name:   "depth length mismatch",
			mutate: func(f *types.SensorFrame) { f.Depth.Meters = f.Depth.Meters[:3] },
			kind:   DepthEncodeFailed,
		},
		{
			name:   "over budget",
			mutate: func(*types.SensorFrame) {},
			opts:   Options{MaxMessageBytes: 16},
			kind:   MessageTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := testFrame(8, 8, true)
			tt.mutate(frame)
			_, err := New(tt.opts).Encode("job", frame)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestDecodeDepth_RejectsColorPayload(t *testing.T) {
	msg, err := New(Options{}).Encode("job", testFrame(4, 4, false))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := DecodeDepth(msg.Image, 8); err == nil {
		t.Error("expected error decoding a JPEG as depth")
	}
}
