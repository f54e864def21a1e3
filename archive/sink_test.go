package archive

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/depthstream/metrics"
	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/types"
)

var startedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testJob() *types.CaptureJob {
	return &types.CaptureJob{
		JobID:      "job_42",
		SessionID:  "sess-1",
		BackendURL: "wss://host",
		ChannelURL: "wss://host/ws/scan/job_42",
		Mode:       types.ModeDepth,
		StartedAt:  startedAt,
	}
}

func testMessage(ts int64, depth bool) *types.WireMessage {
	msg := &types.WireMessage{
		Type:        types.FrameMessageType,
		JobID:       "job_42",
		TimestampMs: ts,
		Image:       []byte{0xff, 0xd8, 0xff},
		ImageSize:   types.Size{W: 4, H: 3},
		CameraPose:  types.Identity4(),
	}
	if depth {
		msg.Depth = []byte{0x89, 'P', 'N', 'G'}
		msg.DepthSize = &types.Size{W: 4, H: 3}
	}
	return msg
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

func newTestSink(client Client, mutate func(*Config)) *Sink {
	cfg := Config{
		Source:        "ipad-7",
		FlushEvery:    100,
		FlushInterval: time.Hour,
		Clock:         func() time.Time { return startedAt.Add(5 * time.Second) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewSink(cfg, client)
}

func TestSink_SessionRecords(t *testing.T) {
	client := NewStubClient()
	sink := newTestSink(client, nil)

	if err := sink.Begin(testJob()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for i, ts := range []int64{0, 100, 200} {
		if err := sink.Record(testMessage(ts, i != 1)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	stats := policy.Stats{FramesReceived: 4, FramesAccepted: 3, FramesThrottled: 1, FramesSent: 3}
	if err := sink.End(types.OutcomeCompleted, nil, stats); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	records := client.Records()
	if len(records) != 5 {
		t.Fatalf("wrote %d records, want 5", len(records))
	}
	kinds := []string{RecordKindSession, RecordKindFrame, RecordKindFrame, RecordKindFrame, RecordKindSessionEnd}
	for i, want := range kinds {
		r := records[i]
		if r["record_kind"] != want {
			t.Errorf("record %d kind = %v, want %s", i, r["record_kind"], want)
		}
		if r["job_id"] != "job_42" || r["source"] != "ipad-7" || r["day"] != "2026-03-14" {
			t.Errorf("record %d partition = %v/%v/%v", i, r["source"], r["day"], r["job_id"])
		}
	}
	if records[2]["has_depth"] != false || records[2]["seq"] != int64(1) {
		t.Errorf("second frame record = %v", records[2])
	}
	if _, ok := records[1]["image"]; ok {
		t.Error("frame record inlines image bytes")
	}

	end := records[4]
	if end["outcome"] != "completed" || end["frames_sent_total"] != int64(3) || end["frames_dropped_total"] != int64(1) {
		t.Errorf("end record = %v", end)
	}
	if end["duration_ms"] != int64(5000) {
		t.Errorf("duration_ms = %v, want 5000", end["duration_ms"])
	}
	if _, ok := end["error"]; ok {
		t.Error("completed session has an error field")
	}
}

func TestSink_BackgroundFlush(t *testing.T) {
	client := NewStubClient()
	sink := newTestSink(client, func(c *Config) { c.FlushEvery = 2 })

	if err := sink.Begin(testJob()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	_ = sink.Record(testMessage(0, true))
	_ = sink.Record(testMessage(100, true))

	waitFor(t, func() bool { return len(client.Records()) == 3 })
	_ = sink.End(types.OutcomeCompleted, nil, policy.Stats{})

	if n := client.Batches(); n != 3 {
		t.Errorf("batches = %d, want header, frames, end", n)
	}
}

func TestSink_FailedSession(t *testing.T) {
	client := NewStubClient()
	sink := newTestSink(client, nil)
	_ = sink.Begin(testJob())

	cause := errors.New("connection error: backend error: out of memory")
	if err := sink.End(types.OutcomeFailed, cause, policy.Stats{SendFailures: 5}); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	records := client.Records()
	end := records[len(records)-1]
	if end["outcome"] != "failed" || end["error"] != cause.Error() || end["send_failures_total"] != int64(5) {
		t.Errorf("end record = %v", end)
	}
}

func TestSink_StorePayloads(t *testing.T) {
	client := NewStubClient()
	sink := newTestSink(client, func(c *Config) {
		c.StorePayloads = true
		c.Dataset = "scans"
	})
	_ = sink.Begin(testJob())
	_ = sink.Record(testMessage(0, true))
	_ = sink.Record(testMessage(100, false))
	_ = sink.End(types.OutcomeCompleted, nil, policy.Stats{})

	files := client.Files()
	if len(files) != 3 {
		t.Fatalf("wrote %d files, want 3: %v", len(files), files)
	}
	prefix := "datasets/scans/partitions/source=ipad-7/day=2026-03-14/job_id=job_42/files/"
	for _, f := range files {
		if !strings.HasPrefix(f, prefix) {
			t.Errorf("file %s outside %s", f, prefix)
		}
	}
	frame := client.Records()[1]
	if frame["image_file"] != "000000_0.jpg" || frame["depth_file"] != "000000_0_depth.png" {
		t.Errorf("frame file refs = %v / %v", frame["image_file"], frame["depth_file"])
	}
}

func TestSink_Lifecycle(t *testing.T) {
	sink := newTestSink(NewStubClient(), nil)

	if err := sink.Record(testMessage(0, false)); !errors.Is(err, ErrNoSession) {
		t.Errorf("Record before Begin = %v, want ErrNoSession", err)
	}
	if err := sink.End(types.OutcomeCompleted, nil, policy.Stats{}); err != nil {
		t.Errorf("End without session = %v, want nil", err)
	}
	if err := sink.Begin(testJob()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := sink.Begin(testJob()); !errors.Is(err, ErrSessionOpen) {
		t.Errorf("second Begin = %v, want ErrSessionOpen", err)
	}
	_ = sink.End(types.OutcomeCompleted, nil, policy.Stats{})
	if err := sink.Begin(testJob()); err != nil {
		t.Errorf("Begin after End = %v", err)
	}
	_ = sink.Close()
}

func TestSink_BufferFull(t *testing.T) {
	sink := newTestSink(NewStubClient(), func(c *Config) { c.MaxBuffered = 2 })
	_ = sink.Begin(testJob())
	defer sink.Close()

	_ = sink.Record(testMessage(0, false))
	_ = sink.Record(testMessage(100, false))
	if err := sink.Record(testMessage(200, false)); !errors.Is(err, ErrBufferFull) {
		t.Errorf("Record over capacity = %v, want ErrBufferFull", err)
	}
}

func TestSink_WriteFailuresAreCounted(t *testing.T) {
	client := NewStubClient()
	client.WriteErr = errors.New("no space left on device")
	collector := metrics.NewCollector("json", "fs")
	sink := newTestSink(client, func(c *Config) { c.Collector = collector })

	_ = sink.Begin(testJob())
	_ = sink.Record(testMessage(0, false))
	err := sink.End(types.OutcomeCompleted, nil, policy.Stats{})
	if err == nil {
		t.Fatal("End succeeded despite write failures")
	}
	if got := collector.Snapshot().ArchiveWriteFailure; got != 3 {
		t.Errorf("ArchiveWriteFailure = %d, want 3", got)
	}
}

func TestSink_CloseEndsOpenSession(t *testing.T) {
	client := NewStubClient()
	sink := newTestSink(client, nil)
	_ = sink.Begin(testJob())

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !client.Closed() {
		t.Error("client not closed")
	}
	records := client.Records()
	if len(records) == 0 || records[len(records)-1]["outcome"] != "failed" {
		t.Errorf("records = %v, want trailing failed session_end", records)
	}
}

// sharedFactory returns a StoreFactory that always returns store, so write
// and read datasets share one in-memory state.
func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func TestLodeSink_WriteAndQuery(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	client, err := NewLodeClientWithFactory("", factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	collector := metrics.NewCollector("msgpack", "memory")
	sink := newTestSink(client, func(c *Config) {
		c.Collector = collector
		c.StorePayloads = true
	})

	if err := sink.Begin(testJob()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for _, ts := range []int64{0, 100, 200} {
		_ = sink.Record(testMessage(ts, true))
	}
	if err := sink.End(types.OutcomeCompleted, nil, policy.Stats{FramesSent: 3}); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	ds, err := NewReadDataset(DefaultDataset, factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	summary, err := QuerySession(t.Context(), ds, "job_42", "")
	if err != nil {
		t.Fatalf("QuerySession failed: %v", err)
	}
	if !summary.Complete() || summary.FrameCount != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if toString(summary.Session["channel_url"]) != "wss://host/ws/scan/job_42" {
		t.Errorf("session record = %v", summary.Session)
	}
	if toInt64(summary.End["frames_sent_total"]) != 3 {
		t.Errorf("end record = %v", summary.End)
	}
	for i, f := range summary.Frames {
		if toInt64(f["seq"]) != int64(i) {
			t.Errorf("frame %d seq = %v", i, f["seq"])
		}
	}
	if s := collector.Snapshot(); s.ArchiveWriteSuccess == 0 || s.ArchiveWriteFailure != 0 {
		t.Errorf("archive metrics = %+v", s)
	}

	if _, err := QuerySession(t.Context(), ds, "job_42", "other-device"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("QuerySession other source = %v, want ErrSessionNotFound", err)
	}
	if _, err := QuerySession(t.Context(), ds, "job_4", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("QuerySession prefix id = %v, want ErrSessionNotFound", err)
	}
}

func TestNewReadDatasetFS(t *testing.T) {
	ds, err := NewReadDatasetFS("", t.TempDir())
	if err != nil {
		t.Fatalf("NewReadDatasetFS failed: %v", err)
	}
	if string(ds.ID()) != DefaultDataset {
		t.Errorf("Dataset ID = %q, want %q", ds.ID(), DefaultDataset)
	}
}

func TestDeriveDay(t *testing.T) {
	local := time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	if got := DeriveDay(local); got != "2026-03-15" {
		t.Errorf("DeriveDay = %s, want 2026-03-15", got)
	}
}
