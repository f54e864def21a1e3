package wire

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/depthstream/types"
)

// Format selects the live message encoding.
type Format string

const (
	// FormatJSON sends frames as JSON text messages with base64 payloads.
	FormatJSON Format = "json"
	// FormatMsgpack sends frames as msgpack binary messages with raw payloads.
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates a configured format name. Empty selects JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown wire format %q (want json or msgpack)", s)
	}
}

// Codec encodes and decodes live channel messages.
// Both codecs use the same field names.
type Codec interface {
	Format() Format
	// Binary reports whether messages travel as binary frames.
	Binary() bool
	EncodeFrame(msg *types.WireMessage) ([]byte, error)
	DecodeFrame(data []byte) (*types.WireMessage, error)
	EncodeControl(msg *types.ControlMessage) ([]byte, error)
	// DecodeControl decodes a backend control message. Unknown types are
	// reported as FrameErrorUnknownType so callers can skip them.
	DecodeControl(data []byte) (*types.ControlMessage, error)
}

// NewCodec returns the codec for format.
func NewCodec(format Format) (Codec, error) {
	switch format {
	case "", FormatJSON:
		return jsonCodec{}, nil
	case FormatMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown wire format %q", format)
	}
}

// MustCodec is NewCodec for statically known formats.
func MustCodec(format Format) Codec {
	c, err := NewCodec(format)
	if err != nil {
		panic(err)
	}
	return c
}

type jsonCodec struct{}

var _ Codec = jsonCodec{}

func (jsonCodec) Format() Format { return FormatJSON }
func (jsonCodec) Binary() bool   { return false }

func (jsonCodec) EncodeFrame(msg *types.WireMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) DecodeFrame(data []byte) (*types.WireMessage, error) {
	var probe typeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode message type", Err: err}
	}
	if probe.Type != types.FrameMessageType {
		return nil, &FrameError{Kind: FrameErrorUnknownType, Msg: fmt.Sprintf("unexpected message type %q", probe.Type)}
	}
	var msg types.WireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame", Err: err}
	}
	return &msg, nil
}

func (jsonCodec) EncodeControl(msg *types.ControlMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) DecodeControl(data []byte) (*types.ControlMessage, error) {
	var msg types.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode control message", Err: err}
	}
	return checkControl(&msg)
}

type msgpackCodec struct{}

var _ Codec = msgpackCodec{}

func (msgpackCodec) Format() Format { return FormatMsgpack }
func (msgpackCodec) Binary() bool   { return true }

func (msgpackCodec) EncodeFrame(msg *types.WireMessage) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (msgpackCodec) DecodeFrame(data []byte) (*types.WireMessage, error) {
	var probe typeProbe
	if err := msgpack.Unmarshal(data, &probe); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode message type", Err: err}
	}
	if probe.Type != types.FrameMessageType {
		return nil, &FrameError{Kind: FrameErrorUnknownType, Msg: fmt.Sprintf("unexpected message type %q", probe.Type)}
	}
	var msg types.WireMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame", Err: err}
	}
	return &msg, nil
}

func (msgpackCodec) EncodeControl(msg *types.ControlMessage) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (msgpackCodec) DecodeControl(data []byte) (*types.ControlMessage, error) {
	var msg types.ControlMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode control message", Err: err}
	}
	return checkControl(&msg)
}

func checkControl(msg *types.ControlMessage) (*types.ControlMessage, error) {
	switch msg.Type {
	case types.ControlAck, types.ControlProgress, types.ControlDone, types.ControlError:
		return msg, nil
	default:
		return nil, &FrameError{Kind: FrameErrorUnknownType, Msg: fmt.Sprintf("unknown control type %q", msg.Type)}
	}
}

// DecodeControlAny decodes a control message of either encoding.
// Backends may answer binary frames with text control messages.
func DecodeControlAny(data []byte, binary bool) (*types.ControlMessage, error) {
	if binary {
		return msgpackCodec{}.DecodeControl(data)
	}
	return jsonCodec{}.DecodeControl(data)
}
