package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrSessionNotFound is returned when no archived session matches.
var ErrSessionNotFound = errors.New("no archived session found")

// NewReadDataset opens a dataset with the write path's codec and layout.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewReadDatasetFS opens a dataset on the filesystem.
func NewReadDatasetFS(dataset, rootPath string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(rootPath))
}

// NewReadDatasetS3 opens a dataset on S3.
func NewReadDatasetS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := S3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewReadDataset(dataset, factory)
}

// SessionSummary is an archived session reassembled from its records.
type SessionSummary struct {
	JobID string `json:"job_id" yaml:"job_id"`
	// Session is the session record, nil if it was never written.
	Session map[string]any `json:"session,omitempty" yaml:"session,omitempty"`
	// End is the session_end record, nil for a session still running or
	// one that ended without archiving.
	End map[string]any `json:"end,omitempty" yaml:"end,omitempty"`
	// Frames are the frame records ordered by seq.
	Frames []map[string]any `json:"-" yaml:"-"`
	// FrameCount is len(Frames).
	FrameCount int `json:"frame_count" yaml:"frame_count"`
}

// Complete reports whether the session_end record exists.
func (s *SessionSummary) Complete() bool {
	return s.End != nil
}

// QuerySession reassembles the most recent archived session of jobID.
// source filters by the source partition when non-empty.
func QuerySession(ctx context.Context, ds lode.Dataset, jobID, source string) (*SessionSummary, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID())+"/snapshots")
	}

	summary := &SessionSummary{JobID: jobID}
	var sessionID string

	// Latest first; the first session record found pins the session id.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatches(snap, "job_id", jobID) || !snapshotMatches(snap, "source", source) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || toString(record["job_id"]) != jobID {
				continue
			}
			if source != "" && toString(record["source"]) != source {
				continue
			}
			sid := toString(record["session_id"])
			if sessionID == "" && sid != "" {
				sessionID = sid
			}
			if sid != sessionID {
				continue
			}
			switch record["record_kind"] {
			case RecordKindSession:
				summary.Session = record
			case RecordKindSessionEnd:
				summary.End = record
			case RecordKindFrame:
				summary.Frames = append(summary.Frames, record)
			}
		}
	}

	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	sort.SliceStable(summary.Frames, func(i, j int) bool {
		return toInt64(summary.Frames[i]["seq"]) < toInt64(summary.Frames[j]["seq"])
	})
	summary.FrameCount = len(summary.Frames)
	return summary, nil
}

// snapshotMatches checks a snapshot's file paths for an exact Hive
// key=value segment. An empty value matches everything.
func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	segment := key + "=" + value
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 converts a decoded JSON number.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}
