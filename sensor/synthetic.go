package sensor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pithecene-io/depthstream/types"
)

// SyntheticConfig configures a Synthetic source.
type SyntheticConfig struct {
	Width  int
	Height int
	// FPS is the native delivery rate. Zero means 30.
	FPS float64
	// Depth enables depth maps on every frame.
	Depth bool
	// DepthEvery, when > 1, attaches depth to every Nth frame only,
	// mimicking platforms that omit depth on some callbacks.
	DepthEvery int
	// Unavailable makes Start fail with ErrUnavailable.
	Unavailable bool
}

// Synthetic generates a deterministic scene: a color gradient that drifts
// with the frame index and a tilted depth plane with a bump, seen from a
// camera moving along the x axis.
type Synthetic struct {
	config SyntheticConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

var _ Source = (*Synthetic)(nil)

// NewSynthetic creates a synthetic source.
func NewSynthetic(config SyntheticConfig) *Synthetic {
	if config.Width <= 0 {
		config.Width = 256
	}
	if config.Height <= 0 {
		config.Height = 192
	}
	if config.FPS <= 0 {
		config.FPS = 30
	}
	return &Synthetic{config: config}
}

// Start begins delivering frames on a ticker goroutine.
func (s *Synthetic) Start(ctx context.Context, handler FrameHandler) error {
	if s.config.Unavailable {
		return fmt.Errorf("synthetic camera: %w", ErrUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	interval := time.Duration(float64(time.Second) / s.config.FPS)
	go s.run(runCtx, interval, handler, s.done)
	return nil
}

func (s *Synthetic) run(ctx context.Context, interval time.Duration, handler FrameHandler, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			handler(s.Frame(i, now.UnixMilli()))
		}
	}
}

// Stop cancels delivery and waits for the generator goroutine.
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Frame renders frame i with timestamp tsMs. Identical arguments always
// produce identical frames.
func (s *Synthetic) Frame(i int, tsMs int64) *types.SensorFrame {
	w, h := s.config.Width, s.config.Height

	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := (y*w + x) * 4
			pix[o+0] = uint8((x + i*3) % 256)
			pix[o+1] = uint8((y + i*2) % 256)
			pix[o+2] = uint8(((x + y) / 2) % 256)
			pix[o+3] = 0xff
		}
	}

	frame := &types.SensorFrame{
		TimestampMs: tsMs,
		Color: types.ColorImage{
			Width:  w,
			Height: h,
			Format: types.PixelFormatRGBA,
			Pix:    pix,
		},
		Intrinsics: types.Mat3{
			{float64(w), 0, float64(w) / 2},
			{0, float64(w), float64(h) / 2},
			{0, 0, 1},
		},
		Pose: types.Identity4(),
	}
	frame.Pose[0][3] = float64(i) * 0.01

	if s.withDepth(i) {
		frame.Depth = syntheticDepth(w, h, i)
	}
	return frame
}

func (s *Synthetic) withDepth(i int) bool {
	if !s.config.Depth {
		return false
	}
	if s.config.DepthEvery > 1 {
		return i%s.config.DepthEvery == 0
	}
	return true
}

// syntheticDepth renders a floor plane receding from 1 m to 6 m with a
// bump that moves with the frame index.
func syntheticDepth(w, h, i int) *types.DepthMap {
	meters := make([]float32, w*h)
	cx := float64((i*4)%w) + 0.5
	cy := float64(h) / 2
	r := float64(h) / 4
	for y := 0; y < h; y++ {
		base := 1 + 5*float64(h-1-y)/float64(max(h-1, 1))
		for x := 0; x < w; x++ {
			d := base
			dx, dy := float64(x)-cx, float64(y)-cy
			if dist := math.Hypot(dx, dy); dist < r {
				d -= 0.5 * (1 - dist/r)
			}
			meters[y*w+x] = float32(d)
		}
	}
	return &types.DepthMap{Width: w, Height: h, Meters: meters}
}
