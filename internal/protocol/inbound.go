package protocol

import "encoding/json"

// Error codes attached to recoverable error payloads.
const (
	CodeInvalidJSON        = "invalid_json"
	CodeUnknownType        = "unknown_type"
	CodeInvalidFrameBuffer = "invalid_frame_buffer"
	CodeSessionNotFound    = "session_not_found"
)

// WireError describes a recoverable protocol-level failure. It carries the
// error code the client sees; the session is never affected.
type WireError struct {
	Code    string
	Message string
}

func (e *WireError) Error() string {
	return e.Code + ": " + e.Message
}

// Inbound is the closed set of messages a camera client may send. Decoding
// is exhaustive: anything outside these variants yields a WireError.
type Inbound interface {
	isInbound()
}

// FramesMessage submits a batch of base64-encoded frames for analysis.
type FramesMessage struct {
	Frames    []string `json:"frames"`
	FPS       float64  `json:"fps,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

func (FramesMessage) isInbound() {}

// Validate rejects empty or missing frame buffers.
func (m FramesMessage) Validate() *WireError {
	if len(m.Frames) == 0 {
		return &WireError{Code: CodeInvalidFrameBuffer, Message: "frame buffer is empty or missing"}
	}
	for _, f := range m.Frames {
		if f == "" {
			return &WireError{Code: CodeInvalidFrameBuffer, Message: "frame buffer contains an empty frame"}
		}
	}
	return nil
}

// HeartbeatMessage asks for a heartbeat_ack.
type HeartbeatMessage struct{}

func (HeartbeatMessage) isInbound() {}

// StatusMessage asks for the session's statistics snapshot.
type StatusMessage struct{}

func (StatusMessage) isInbound() {}

type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound parses one inbound message. Malformed JSON, an unknown tag,
// or a frames body with the wrong shape all produce a WireError the caller
// turns into an error payload for the sender.
func DecodeInbound(data []byte) (Inbound, *WireError) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &WireError{Code: CodeInvalidJSON, Message: "message is not valid JSON"}
	}

	switch env.Type {
	case "frames":
		var m FramesMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &WireError{Code: CodeInvalidFrameBuffer, Message: "frames payload has the wrong shape"}
		}
		return m, nil
	case "heartbeat":
		return HeartbeatMessage{}, nil
	case "status":
		return StatusMessage{}, nil
	case "":
		return nil, &WireError{Code: CodeUnknownType, Message: "message has no type tag"}
	default:
		return nil, &WireError{Code: CodeUnknownType, Message: "unrecognized message type: " + env.Type}
	}
}
