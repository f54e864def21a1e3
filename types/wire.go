package types

// FrameMessageType is the type discriminant of frame messages.
const FrameMessageType = "frame"

// Size is an image dimension pair.
type Size struct {
	W int `msgpack:"w" json:"w"`
	H int `msgpack:"h" json:"h"`
}

// WireMessage is the encoded, transmittable form of one accepted SensorFrame.
// Byte payloads marshal as base64 in JSON and as raw bytes in msgpack.
type WireMessage struct {
	// Type is always "frame".
	Type  string `msgpack:"type" json:"type"`
	JobID string `msgpack:"job_id" json:"job_id"`
	// TimestampMs is the frame capture time.
	TimestampMs int64 `msgpack:"ts" json:"ts"`
	// Image is the compressed color image (JPEG).
	Image []byte `msgpack:"image" json:"image"`
	// Depth is the compressed depth raster (16-bit PNG); omitted in color-only mode.
	Depth      []byte `msgpack:"depth,omitempty" json:"depth,omitempty"`
	ImageSize  Size   `msgpack:"image_size" json:"image_size"`
	DepthSize  *Size  `msgpack:"depth_size,omitempty" json:"depth_size,omitempty"`
	Intrinsics Mat3   `msgpack:"intrinsics" json:"intrinsics"`
	CameraPose Mat4   `msgpack:"camera_pose" json:"camera_pose"`
}

// PayloadBytes returns the size of the compressed payloads.
func (m *WireMessage) PayloadBytes() int {
	return len(m.Image) + len(m.Depth)
}

// HasDepth reports whether the message carries a depth payload.
func (m *WireMessage) HasDepth() bool {
	return len(m.Depth) > 0
}

// ControlType is the type discriminant of backend control messages.
type ControlType string

// Control message types sent by the backend on the same channel.
const (
	ControlAck      ControlType = "ack"
	ControlProgress ControlType = "progress"
	ControlDone     ControlType = "done"
	ControlError    ControlType = "error"
)

// ControlMessage is an inbound message from the reconstruction backend.
type ControlMessage struct {
	Type ControlType `msgpack:"type" json:"type"`
	// Frames is the number of frames the backend has received, when reported.
	Frames *int64 `msgpack:"frames,omitempty" json:"frames,omitempty"`
	// Status is a free-form backend status line.
	Status  string `msgpack:"status,omitempty" json:"status,omitempty"`
	Message string `msgpack:"message,omitempty" json:"message,omitempty"`
}
