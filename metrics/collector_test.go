package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("json", "fs")

	c.IncSessionStarted()
	c.IncSessionStarted()
	c.IncSessionCompleted()
	c.IncSessionFailed()
	c.IncSessionUnsupported()
	c.IncSessionRejected()
	c.IncConnectFailure()
	c.IncConnectionLost()
	c.IncControlMessage()
	c.IncControlMessage()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteFailure()

	s := c.Snapshot()
	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"SessionsStarted", s.SessionsStarted, 2},
		{"SessionsCompleted", s.SessionsCompleted, 1},
		{"SessionsFailed", s.SessionsFailed, 1},
		{"SessionsUnsupported", s.SessionsUnsupported, 1},
		{"SessionsRejected", s.SessionsRejected, 1},
		{"ConnectFailures", s.ConnectFailures, 1},
		{"ConnectionsLost", s.ConnectionsLost, 1},
		{"ControlMessages", s.ControlMessages, 2},
		{"ArchiveWriteSuccess", s.ArchiveWriteSuccess, 1},
		{"ArchiveWriteFailure", s.ArchiveWriteFailure, 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("msgpack", "s3").Snapshot()
	if s.WireFormat != "msgpack" || s.StorageBackend != "s3" {
		t.Errorf("dimensions = %q/%q", s.WireFormat, s.StorageBackend)
	}
}

func TestCollector_AbsorbFrameStatsAccumulates(t *testing.T) {
	c := NewCollector("json", "")
	c.AbsorbFrameStats(30, 10, 20, 1, 0, 4096)
	c.AbsorbFrameStats(3, 2, 1, 0, 1, 100)

	s := c.Snapshot()
	if s.FramesReceived != 33 || s.FramesSent != 12 || s.FramesDropped != 21 {
		t.Errorf("frames = %d/%d/%d", s.FramesReceived, s.FramesSent, s.FramesDropped)
	}
	if s.EncodeFailures != 1 || s.SendFailures != 1 || s.BytesSent != 4196 {
		t.Errorf("failures/bytes = %d/%d/%d", s.EncodeFailures, s.SendFailures, s.BytesSent)
	}
}

func TestCollector_NilReceiver(t *testing.T) {
	var c *Collector
	c.IncSessionStarted()
	c.IncConnectFailure()
	c.AbsorbFrameStats(1, 1, 1, 1, 1, 1)
	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v, want zero", s)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("json", "")
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.IncControlMessage()
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()
	if got := c.Snapshot().ControlMessages; got != 800 {
		t.Errorf("ControlMessages = %d, want 800", got)
	}
}
