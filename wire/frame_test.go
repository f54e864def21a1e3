package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/depthstream/types"
)

// encodeFrame encodes a payload with length prefix.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

func sampleMessage(ts int64) *types.WireMessage {
	return &types.WireMessage{
		Type:        types.FrameMessageType,
		JobID:       "job_42",
		TimestampMs: ts,
		Image:       []byte{0xff, 0xd8, 0xff, 0xe0, 0x00},
		Depth:       []byte{0x89, 'P', 'N', 'G'},
		ImageSize:   types.Size{W: 640, H: 480},
		DepthSize:   &types.Size{W: 256, H: 192},
		Intrinsics:  types.Mat3{{500, 0, 320}, {0, 500, 240}, {0, 0, 1}},
		CameraPose:  types.Identity4(),
	}
}

func TestFrameDecoder_MultipleFrames(t *testing.T) {
	var stream []byte
	for _, ts := range []int64{0, 150, 300} {
		payload, err := msgpack.Marshal(sampleMessage(ts))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		stream, err = AppendFrame(stream, payload)
		if err != nil {
			t.Fatalf("AppendFrame: %v", err)
		}
	}

	decoder := NewFrameDecoder(bytes.NewReader(stream))
	var got []int64
	for {
		payload, err := decoder.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		v, err := DecodeRecord(payload)
		if err != nil {
			t.Fatalf("DecodeRecord failed: %v", err)
		}
		msg, ok := v.(*types.WireMessage)
		if !ok {
			t.Fatalf("decoded %T, want *types.WireMessage", v)
		}
		got = append(got, msg.TimestampMs)
	}

	if len(got) != 3 || got[0] != 0 || got[1] != 150 || got[2] != 300 {
		t.Errorf("timestamps = %v, want [0 150 300]", got)
	}
}

func TestFrameDecoder_PartialFrame(t *testing.T) {
	payload, _ := msgpack.Marshal(sampleMessage(0))
	frame := encodeFrame(payload)
	truncated := frame[:LengthPrefixSize+len(payload)/2]

	_, err := NewFrameDecoder(bytes.NewReader(truncated)).ReadFrame()
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
	if !IsFatalFrameError(err) {
		t.Error("partial frames must be fatal")
	}
}

func TestFrameDecoder_OversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(MaxPayloadSize+1))

	_, err := NewFrameDecoder(&buf).ReadFrame()

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %v", err)
	}
	if frameErr.Kind != FrameErrorTooLarge || !frameErr.IsFatal() {
		t.Errorf("Kind = %v fatal=%v, want fatal FrameErrorTooLarge", frameErr.Kind, frameErr.IsFatal())
	}
}

func TestFrameDecoder_EmptyStream(t *testing.T) {
	_, err := NewFrameDecoder(bytes.NewReader(nil)).ReadFrame()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got: %v", err)
	}
}

func TestFrameDecoder_TruncatedLengthPrefix(t *testing.T) {
	_, err := NewFrameDecoder(bytes.NewReader([]byte{0x00, 0x00})).ReadFrame()
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got: %v", err)
	}
}

func TestDecodeRecord_MalformedMsgpack(t *testing.T) {
	_, err := DecodeRecord([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	if err == nil {
		t.Fatal("expected decode error for malformed msgpack")
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorDecode {
		t.Errorf("Kind = %v, want FrameErrorDecode", frameErr.Kind)
	}
	if IsFatalFrameError(err) {
		t.Error("decode errors should not be fatal")
	}
}

func TestDecodeRecord_UnknownType(t *testing.T) {
	payload, _ := msgpack.Marshal(map[string]any{"type": "telemetry"})
	_, err := DecodeRecord(payload)

	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorUnknownType {
		t.Errorf("err = %v, want FrameErrorUnknownType", err)
	}
}

func TestFrameError_Unwrap(t *testing.T) {
	err := &FrameError{Kind: FrameErrorPartial, Msg: "read failed", Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Unwrap should allow errors.Is to find underlying error")
	}
	if err.Error() != "read failed: unexpected EOF" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsFatalFrameError_NonFrameError(t *testing.T) {
	if IsFatalFrameError(errors.New("regular error")) {
		t.Error("regular errors should not be fatal frame errors")
	}
	if IsFatalFrameError(nil) {
		t.Error("nil should not be a fatal frame error")
	}
	if IsFatalFrameError(io.EOF) {
		t.Error("io.EOF should not be a fatal frame error")
	}
}
