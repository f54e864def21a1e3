package types

import "fmt"

// PixelFormat identifies the memory layout of a color buffer.
type PixelFormat string

// Supported color pixel formats.
const (
	// PixelFormatRGBA is 8-bit interleaved R, G, B, A.
	PixelFormatRGBA PixelFormat = "rgba"
	// PixelFormatBGRA is 8-bit interleaved B, G, R, A (common camera output).
	PixelFormatBGRA PixelFormat = "bgra"
	// PixelFormatNV12 is a Y plane followed by an interleaved CbCr plane at
	// half resolution (bi-planar 4:2:0, the native camera format on phones).
	PixelFormatNV12 PixelFormat = "nv12"
	// PixelFormatGray is 8-bit luminance.
	PixelFormatGray PixelFormat = "gray"
)

// BytesPerPixel returns the bytes per pixel of interleaved formats and 1 for
// planar formats (the Y plane stride unit).
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA, PixelFormatBGRA:
		return 4
	case PixelFormatNV12, PixelFormatGray:
		return 1
	default:
		return 0
	}
}

// Mat3 is a row-major 3x3 matrix (camera intrinsics).
type Mat3 [3][3]float64

// Mat4 is a row-major 4x4 matrix (camera-to-world pose).
type Mat4 [4][4]float64

// Identity4 returns the 4x4 identity matrix.
func Identity4() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// ColorImage is one device-native color buffer.
type ColorImage struct {
	Width  int
	Height int
	// Stride is the row length in bytes. Zero means tightly packed.
	Stride int
	Format PixelFormat
	Pix    []byte
}

// RowStride returns the effective row length in bytes.
func (c *ColorImage) RowStride() int {
	if c.Stride > 0 {
		return c.Stride
	}
	return c.Width * c.Format.BytesPerPixel()
}

// DepthMap is a per-pixel distance raster in meters.
type DepthMap struct {
	Width  int
	Height int
	Meters []float32
}

// Validate checks that the buffer covers the declared dimensions.
func (d *DepthMap) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid depth dimensions %dx%d", d.Width, d.Height)
	}
	if len(d.Meters) != d.Width*d.Height {
		return fmt.Errorf("depth buffer has %d values, want %d", len(d.Meters), d.Width*d.Height)
	}
	return nil
}

// SensorFrame is one synchronized sample from the sensor subsystem.
// Color and depth belong to the same TimestampMs. Frames are ephemeral:
// the session controller owns a frame for one encode-and-send cycle only.
type SensorFrame struct {
	// TimestampMs is the capture time in milliseconds.
	TimestampMs int64
	Color       ColorImage
	// Depth is nil when the device or this invocation has no depth.
	Depth      *DepthMap
	Intrinsics Mat3
	Pose       Mat4
}

// HasDepth reports whether the frame carries a depth map.
func (f *SensorFrame) HasDepth() bool {
	return f.Depth != nil
}
