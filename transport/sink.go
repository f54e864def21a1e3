package transport

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pithecene-io/depthstream/log"
	"github.com/pithecene-io/depthstream/types"
	"github.com/pithecene-io/depthstream/wire"
)

// SinkConfig configures a development backend sink.
type SinkConfig struct {
	// ProgressEvery sends a progress message after every N frames.
	// Zero means every frame.
	ProgressEvery int
	// ReadLimit bounds inbound message size. Zero means 16 MiB.
	ReadLimit int64
	// OnFrame observes every decoded frame.
	OnFrame func(jobID string, msg *types.WireMessage)
	// Logger is optional.
	Logger *log.Logger
}

// SinkSession summarizes one job's stream as seen by the sink.
type SinkSession struct {
	JobID       string    `json:"job_id" yaml:"job_id"`
	Connected   bool      `json:"connected" yaml:"connected"`
	Frames      int64     `json:"frames" yaml:"frames"`
	DepthFrames int64     `json:"depth_frames" yaml:"depth_frames"`
	Bytes       int64     `json:"bytes" yaml:"bytes"`
	Rejected    int64     `json:"rejected" yaml:"rejected"`
	LastTs      int64     `json:"last_ts" yaml:"last_ts"`
	FirstSeen   time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen    time.Time `json:"last_seen" yaml:"last_seen"`
}

// Sink is a minimal reconstruction backend stand-in. It accepts frame
// streams at /ws/scan/{job_id}, validates and counts frames, and answers
// with progress control messages in the encoding the client used.
type Sink struct {
	config   SinkConfig
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*SinkSession
	conns    map[*websocket.Conn]struct{}
}

// NewSink creates a sink.
func NewSink(config SinkConfig) *Sink {
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = 1
	}
	if config.ReadLimit <= 0 {
		config.ReadLimit = 16 * 1024 * 1024
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Sink{
		config:   config,
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		sessions: make(map[string]*SinkSession),
		conns:    make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the sink's HTTP routes.
func (s *Sink) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.serveSessions).Methods(http.MethodGet)
	r.HandleFunc(ScanPath+"{job_id}", s.serveScan).Methods(http.MethodGet)
	return r
}

// Sessions returns a snapshot of every job seen, ordered by job id.
func (s *Sink) Sessions() []SinkSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SinkSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

// Session returns the snapshot for jobID.
func (s *Sink) Session(jobID string) (SinkSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[jobID]
	if !ok {
		return SinkSession{}, false
	}
	return *sess, true
}

// Close drops every open stream.
func (s *Sink) Close() error {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return nil
}

func (s *Sink) serveSessions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Sessions())
}

func (s *Sink) serveScan(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	if err := types.ValidateJobID(jobID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Warn("upgrade failed", map[string]any{"job_id": jobID, "error": err.Error()})
		return
	}
	conn.SetReadLimit(s.config.ReadLimit)

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	sess, ok := s.sessions[jobID]
	if !ok {
		sess = &SinkSession{JobID: jobID, FirstSeen: time.Now().UTC()}
		s.sessions[jobID] = sess
	}
	sess.Connected = true
	s.mu.Unlock()

	logger := s.logger.ForJob(&types.CaptureJob{JobID: jobID})
	logger.Info("stream connected", map[string]any{"remote": r.RemoteAddr})

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		sess.Connected = false
		frames := sess.Frames
		s.mu.Unlock()
		_ = conn.Close()
		logger.Info("stream disconnected", map[string]any{"frames": frames})
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		binary := messageType == websocket.BinaryMessage
		codec := wire.MustCodec(wire.FormatJSON)
		if binary {
			codec = wire.MustCodec(wire.FormatMsgpack)
		}

		msg, err := codec.DecodeFrame(data)
		if err == nil && msg.JobID != jobID {
			err = &wire.FrameError{Kind: wire.FrameErrorDecode, Msg: "frame job_id " + msg.JobID + " does not match channel"}
		}
		if err != nil {
			s.mu.Lock()
			sess.Rejected++
			s.mu.Unlock()
			logger.Warn("rejected message", map[string]any{"error": err.Error()})
			continue
		}

		s.mu.Lock()
		sess.Frames++
		if msg.HasDepth() {
			sess.DepthFrames++
		}
		sess.Bytes += int64(msg.PayloadBytes())
		sess.LastTs = msg.TimestampMs
		sess.LastSeen = time.Now().UTC()
		frames := sess.Frames
		s.mu.Unlock()

		if s.config.OnFrame != nil {
			s.config.OnFrame(jobID, msg)
		}

		if frames%int64(s.config.ProgressEvery) == 0 {
			reply, err := codec.EncodeControl(&types.ControlMessage{
				Type:   types.ControlProgress,
				Frames: &frames,
				Status: "receiving",
			})
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(messageType, reply); err != nil {
				return
			}
		}
	}
}
