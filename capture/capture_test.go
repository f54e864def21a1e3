package capture

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pithecene-io/depthstream/metrics"
	"github.com/pithecene-io/depthstream/probe"
	"github.com/pithecene-io/depthstream/sensor"
	"github.com/pithecene-io/depthstream/session"
	"github.com/pithecene-io/depthstream/transport"
	"github.com/pithecene-io/depthstream/types"
	"github.com/pithecene-io/depthstream/wire"
)

type fixture struct {
	facade Facade
	dialer *transport.StubDialer
	source *sensor.Manual
	scene  *sensor.Synthetic
}

func newFixture(t *testing.T, p probe.Probe) *fixture {
	t.Helper()
	f := &fixture{
		dialer: transport.NewStubDialer(),
		source: sensor.NewManual(),
		scene:  sensor.NewSynthetic(sensor.SyntheticConfig{Width: 8, Height: 6, Depth: true}),
	}
	f.facade = New(Config{
		Probe: p,
		Session: session.Config{
			Dialer: f.dialer,
			Source: f.source,
		},
	})
	t.Cleanup(func() { f.facade.Stop(context.Background()) })
	return f
}

func TestFacade_NoDepthScenario(t *testing.T) {
	f := newFixture(t, probe.Static{Capture: true, Depth: false})

	status, err := f.facade.Start(t.Context(), "job_7", "https://backend.example")
	if err != nil || status != types.StatusStarted {
		t.Fatalf("Start = (%s, %v), want started", status, err)
	}
	for _, ts := range []int64{0, 100, 200} {
		f.source.Push(f.scene.Frame(int(ts), ts))
	}

	sent := f.dialer.Last().Sent()
	if len(sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(sent))
	}
	for i, msg := range sent {
		if msg.HasDepth() || msg.DepthSize != nil {
			t.Errorf("message %d carries depth", i)
		}
		if len(msg.Image) == 0 {
			t.Errorf("message %d has no image", i)
		}
	}
	if urls := f.dialer.URLs(); urls[0] != "wss://backend.example/ws/scan/job_7" {
		t.Errorf("channel url = %s", urls[0])
	}
}

func TestFacade_AlreadyActive(t *testing.T) {
	f := newFixture(t, probe.Full)

	if status, err := f.facade.Start(t.Context(), "job_1", "ws://host"); err != nil || status != types.StatusStarted {
		t.Fatalf("first Start = (%s, %v)", status, err)
	}
	status, err := f.facade.Start(t.Context(), "job_2", "ws://host")
	if err != nil || status != types.StatusAlreadyActive {
		t.Fatalf("second Start = (%s, %v), want alreadyActive", status, err)
	}
	if f.facade.State() != types.StateStreaming {
		t.Errorf("State = %s, want streaming", f.facade.State())
	}

	f.facade.Stop(t.Context())
	f.facade.Stop(t.Context())
	if got := f.dialer.Last().CloseCalls(); got != 1 {
		t.Errorf("channel closed %d times, want 1", got)
	}
	if r := f.facade.LastResult(); r == nil || r.Job.JobID != "job_1" {
		t.Errorf("LastResult = %+v", r)
	}
}

func TestFacade_ReprobesDepthOnEachStart(t *testing.T) {
	var depth atomic.Bool
	depth.Store(true)
	f := newFixture(t, probe.Func{
		Capture: func() bool { return true },
		Depth:   depth.Load,
	})

	ctrl := Controller(f.facade)
	if ctrl == nil {
		t.Fatal("streaming facade has no controller")
	}

	if _, err := f.facade.Start(t.Context(), "job_1", "ws://host"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if mode := ctrl.Job().Mode; mode != types.ModeDepth {
		t.Errorf("first mode = %s, want depth", mode)
	}
	f.facade.Stop(t.Context())

	depth.Store(false)
	if _, err := f.facade.Start(t.Context(), "job_2", "ws://host"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if mode := ctrl.Job().Mode; mode != types.ModeColorOnly {
		t.Errorf("second mode = %s, want color_only", mode)
	}
}

func TestFacade_Unsupported(t *testing.T) {
	collector := metrics.NewCollector("json", "")
	dialer := transport.NewStubDialer()
	facade := New(Config{
		Probe:   probe.Static{},
		Session: session.Config{Dialer: dialer, Source: sensor.NewManual(), Collector: collector},
	})

	for range 2 {
		status, err := facade.Start(t.Context(), "job_1", "ws://host")
		if err != nil || status != types.StatusUnsupported {
			t.Fatalf("Start = (%s, %v), want unsupported", status, err)
		}
	}
	facade.Stop(t.Context())

	if Controller(facade) != nil {
		t.Error("unsupported facade exposes a controller")
	}
	if len(dialer.URLs()) != 0 {
		t.Error("unsupported facade opened a channel")
	}
	if facade.State() != types.StateIdle || facade.LastResult() != nil {
		t.Error("unsupported facade reports a session")
	}
	if collector.Snapshot().SessionsUnsupported != 2 {
		t.Error("unsupported starts not counted")
	}
}

func TestFacade_SensorUnavailableIsUnsupported(t *testing.T) {
	f := newFixture(t, probe.Full)
	f.source.StartErr = errors.New("camera permission denied")

	status, err := f.facade.Start(t.Context(), "job_1", "ws://host")
	if err != nil || status != types.StatusUnsupported {
		t.Fatalf("Start = (%s, %v), want unsupported", status, err)
	}
	if f.facade.State() != types.StateIdle {
		t.Errorf("State = %s, want idle", f.facade.State())
	}
}

func TestFacade_Errors(t *testing.T) {
	t.Run("connection", func(t *testing.T) {
		f := newFixture(t, probe.Full)
		f.dialer.OpenErr = errors.New("connection refused")

		status, err := f.facade.Start(t.Context(), "job_1", "ws://host")
		var ce *Error
		if !errors.As(err, &ce) || ce.Kind != KindConnection {
			t.Fatalf("Start = (%s, %v), want connection error", status, err)
		}
		if !errors.Is(err, session.ErrConnection) {
			t.Error("connection error does not wrap session.ErrConnection")
		}
		if r := f.facade.LastResult(); r == nil || r.Outcome != types.OutcomeFailed {
			t.Errorf("LastResult = %+v, want failed", r)
		}
	})

	t.Run("invalid argument", func(t *testing.T) {
		f := newFixture(t, probe.Full)
		_, err := f.facade.Start(t.Context(), "", "ws://host")
		if Classify(err) != KindInvalidArgument {
			t.Errorf("Classify(%v) = %s, want invalid_argument", err, Classify(err))
		}
		_, err = f.facade.Start(t.Context(), "job_1", "mailto:ops@example.com")
		if Classify(err) != KindInvalidArgument {
			t.Errorf("Classify(%v) = %s, want invalid_argument", err, Classify(err))
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{session.ErrConnection, KindConnection},
		{session.ErrInvalidArgument, KindInvalidArgument},
		{session.ErrAborted, KindAborted},
		{errors.New("boom"), KindInternal},
		{&Error{Kind: KindConnection, Err: errors.New("x")}, KindConnection},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestFacade_StreamsOverWebSocket(t *testing.T) {
	sink := transport.NewSink(transport.SinkConfig{ProgressEvery: 1})
	srv := httptest.NewServer(sink.Handler())
	defer srv.Close()
	defer sink.Close()

	source := sensor.NewManual()
	scene := sensor.NewSynthetic(sensor.SyntheticConfig{Width: 16, Height: 12, Depth: true})
	facade := New(Config{
		Probe: probe.Full,
		Session: session.Config{
			Dialer: &transport.WSDialer{Codec: wire.MustCodec(wire.FormatMsgpack)},
			Source: source,
		},
	})
	ctrl := Controller(facade)

	status, err := facade.Start(t.Context(), "job_42", srv.URL)
	if err != nil || status != types.StatusStarted {
		t.Fatalf("Start = (%s, %v)", status, err)
	}

	for _, ts := range []int64{0, 50, 150, 250} {
		source.Push(scene.Frame(int(ts), ts))
		sent := ctrl.Stats().FramesSent
		waitFor(t, func() bool {
			s, ok := sink.Session("job_42")
			return ok && s.Frames == sent
		})
	}
	waitFor(t, func() bool { return ctrl.Stats().LastAckFrames == 3 })

	facade.Stop(t.Context())

	s, _ := sink.Session("job_42")
	if s.Frames != 3 || s.DepthFrames != 3 || s.LastTs != 250 {
		t.Errorf("sink session = %+v", s)
	}
	if r := facade.LastResult(); r == nil || r.Outcome != types.OutcomeCompleted || r.Stats.FramesThrottled != 1 {
		t.Errorf("result = %+v", r)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
