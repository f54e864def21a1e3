package encoder

import (
	"fmt"
	"image"

	"github.com/pithecene-io/depthstream/types"
)

// colorImage wraps or converts a device buffer into an image the JPEG
// encoder accepts. Interleaved RGBA and gray buffers are wrapped without
// copying; BGRA and NV12 are converted into fresh buffers.
func colorImage(c *types.ColorImage) (image.Image, error) {
	if c.Width <= 0 || c.Height <= 0 {
		return nil, fmt.Errorf("invalid color dimensions %dx%d", c.Width, c.Height)
	}
	bpp := c.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("unsupported pixel format %q", c.Format)
	}
	stride := c.RowStride()
	if stride < c.Width*bpp {
		return nil, fmt.Errorf("stride %d shorter than row of %d bytes", stride, c.Width*bpp)
	}
	rect := image.Rect(0, 0, c.Width, c.Height)
	lumaLen := stride*(c.Height-1) + c.Width*bpp

	switch c.Format {
	case types.PixelFormatRGBA:
		if len(c.Pix) < lumaLen {
			return nil, shortBuffer(c, lumaLen)
		}
		return &image.RGBA{Pix: c.Pix, Stride: stride, Rect: rect}, nil

	case types.PixelFormatGray:
		if len(c.Pix) < lumaLen {
			return nil, shortBuffer(c, lumaLen)
		}
		return &image.Gray{Pix: c.Pix, Stride: stride, Rect: rect}, nil

	case types.PixelFormatBGRA:
		if len(c.Pix) < lumaLen {
			return nil, shortBuffer(c, lumaLen)
		}
		img := image.NewRGBA(rect)
		for y := 0; y < c.Height; y++ {
			src := c.Pix[y*stride : y*stride+c.Width*4]
			dst := img.Pix[y*img.Stride : y*img.Stride+c.Width*4]
			for x := 0; x < len(src); x += 4 {
				dst[x+0] = src[x+2]
				dst[x+1] = src[x+1]
				dst[x+2] = src[x+0]
				dst[x+3] = src[x+3]
			}
		}
		return img, nil

	case types.PixelFormatNV12:
		return nv12Image(c, stride, rect)

	default:
		return nil, fmt.Errorf("unsupported pixel format %q", c.Format)
	}
}

// nv12Image splits an NV12 buffer (Y plane, then interleaved CbCr at half
// resolution, both with the same row stride) into a 4:2:0 YCbCr image.
func nv12Image(c *types.ColorImage, stride int, rect image.Rectangle) (image.Image, error) {
	cw := (c.Width + 1) / 2
	ch := (c.Height + 1) / 2
	uvOffset := stride * c.Height
	need := uvOffset + stride*(ch-1) + cw*2
	if len(c.Pix) < need {
		return nil, shortBuffer(c, need)
	}

	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
	for y := 0; y < c.Height; y++ {
		copy(img.Y[y*img.YStride:y*img.YStride+c.Width], c.Pix[y*stride:y*stride+c.Width])
	}
	for y := 0; y < ch; y++ {
		row := c.Pix[uvOffset+y*stride : uvOffset+y*stride+cw*2]
		for x := 0; x < cw; x++ {
			img.Cb[y*img.CStride+x] = row[2*x]
			img.Cr[y*img.CStride+x] = row[2*x+1]
		}
	}
	return img, nil
}

func shortBuffer(c *types.ColorImage, need int) error {
	return fmt.Errorf("%s buffer has %d bytes, need %d for %dx%d", c.Format, len(c.Pix), need, c.Width, c.Height)
}
