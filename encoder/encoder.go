// Package encoder converts sensor frames into wire messages.
//
// Color is compressed to JPEG. Depth is clamped to [0, MaxDepthMeters],
// quantized to 16 bits with round-to-nearest and stored as a lossless
// 16-bit grayscale PNG. Intrinsics and pose are copied verbatim.
//
// Encoding is deterministic: the same frame always produces byte-identical
// payloads. The input frame is neither mutated nor retained.
package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/pithecene-io/depthstream/types"
)

// Defaults.
const (
	DefaultJPEGQuality     = 60
	DefaultMaxDepthMeters  = 8.0
	DefaultMaxMessageBytes = 4 * 1024 * 1024
)

// depthLevels is the number of quantization steps above zero.
const depthLevels = math.MaxUint16

// Options configures an Encoder. Zero values select the defaults.
type Options struct {
	// JPEGQuality is 1..100.
	JPEGQuality int
	// MaxDepthMeters is the clamping ceiling of the depth range.
	MaxDepthMeters float64
	// MaxMessageBytes bounds color plus depth payload bytes.
	MaxMessageBytes int
	// ColorOnly strips depth even when the frame carries it.
	ColorOnly bool
}

func (o Options) withDefaults() Options {
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	if o.JPEGQuality > 100 {
		o.JPEGQuality = 100
	}
	if o.MaxDepthMeters <= 0 {
		o.MaxDepthMeters = DefaultMaxDepthMeters
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return o
}

// Encoder turns SensorFrames into WireMessages.
// An Encoder holds no per-frame state and is safe for concurrent use.
type Encoder struct {
	opts Options
	png  png.Encoder
}

// New creates an encoder.
func New(opts Options) *Encoder {
	return &Encoder{
		opts: opts.withDefaults(),
		png:  png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Options returns the effective options.
func (e *Encoder) Options() Options {
	return e.opts
}

// Encode compresses one frame for jobID.
//
// Errors are *EncodeError:
//   - ColorEncodeFailed: unsupported pixel format, bad dimensions or short buffer
//   - DepthEncodeFailed: depth buffer does not match its dimensions
//   - MessageTooLarge: payloads exceed MaxMessageBytes
func (e *Encoder) Encode(jobID string, frame *types.SensorFrame) (*types.WireMessage, error) {
	if frame == nil {
		return nil, &EncodeError{Kind: ColorEncodeFailed, Msg: "nil frame"}
	}

	img, err := colorImage(&frame.Color)
	if err != nil {
		return nil, &EncodeError{Kind: ColorEncodeFailed, Msg: "convert color buffer", Err: err}
	}
	var colorBuf bytes.Buffer
	if err := jpeg.Encode(&colorBuf, img, &jpeg.Options{Quality: e.opts.JPEGQuality}); err != nil {
		return nil, &EncodeError{Kind: ColorEncodeFailed, Msg: "jpeg encode", Err: err}
	}

	msg := &types.WireMessage{
		Type:        types.FrameMessageType,
		JobID:       jobID,
		TimestampMs: frame.TimestampMs,
		Image:       colorBuf.Bytes(),
		ImageSize:   types.Size{W: frame.Color.Width, H: frame.Color.Height},
		Intrinsics:  frame.Intrinsics,
		CameraPose:  frame.Pose,
	}

	if frame.HasDepth() && !e.opts.ColorOnly {
		depth, err := e.encodeDepth(frame.Depth)
		if err != nil {
			return nil, err
		}
		msg.Depth = depth
		msg.DepthSize = &types.Size{W: frame.Depth.Width, H: frame.Depth.Height}
	}

	if n := msg.PayloadBytes(); n > e.opts.MaxMessageBytes {
		return nil, &EncodeError{
			Kind: MessageTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", n, e.opts.MaxMessageBytes),
		}
	}
	return msg, nil
}

func (e *Encoder) encodeDepth(d *types.DepthMap) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, &EncodeError{Kind: DepthEncodeFailed, Msg: "validate depth map", Err: err}
	}

	img := image.NewGray16(image.Rect(0, 0, d.Width, d.Height))
	for i, m := range d.Meters {
		q := Quantize(m, e.opts.MaxDepthMeters)
		img.Pix[2*i] = uint8(q >> 8)
		img.Pix[2*i+1] = uint8(q)
	}

	var buf bytes.Buffer
	if err := e.png.Encode(&buf, img); err != nil {
		return nil, &EncodeError{Kind: DepthEncodeFailed, Msg: "png encode", Err: err}
	}
	return buf.Bytes(), nil
}

// Quantize maps a distance in meters to its 16-bit level.
// NaN, infinities and negative values map to 0; distances above
// maxDepth clamp to the range ceiling.
func Quantize(meters float32, maxDepth float64) uint16 {
	m := float64(meters)
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return 0
	}
	if m >= maxDepth {
		return depthLevels
	}
	return uint16(math.Round(m / maxDepth * depthLevels))
}

// Dequantize maps a 16-bit level back to meters.
func Dequantize(q uint16, maxDepth float64) float32 {
	return float32(float64(q) / depthLevels * maxDepth)
}

// QuantizationError returns the worst-case round-trip error in meters for
// distances inside [0, maxDepth].
func QuantizationError(maxDepth float64) float64 {
	return maxDepth / depthLevels / 2
}

// DecodeDepth decodes a depth payload produced by Encode.
func DecodeDepth(payload []byte, maxDepth float64) (*types.DepthMap, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepthMeters
	}
	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode depth png: %w", err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, fmt.Errorf("depth payload is %T, want 16-bit grayscale", img)
	}

	b := gray.Bounds()
	d := &types.DepthMap{
		Width:  b.Dx(),
		Height: b.Dy(),
		Meters: make([]float32, b.Dx()*b.Dy()),
	}
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			q := gray.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			d.Meters[y*d.Width+x] = Dequantize(q, maxDepth)
		}
	}
	return d, nil
}

// ImageSize decodes only the header of a color payload.
func ImageSize(payload []byte) (types.Size, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return types.Size{}, fmt.Errorf("decode image header: %w", err)
	}
	return types.Size{W: cfg.Width, H: cfg.Height}, nil
}
