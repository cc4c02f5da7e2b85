// Package protocol defines the wire shapes exchanged with camera and console
// clients. All messages are JSON objects tagged by a "type" field; timestamps
// are milliseconds since the Unix epoch.
package protocol

import "time"

type MessageType string

const (
	// Camera-facing broadcasts.
	MsgAdvice       MessageType = "advice"
	MsgTelemetry    MessageType = "telemetry"
	MsgTask         MessageType = "task"
	MsgEnvironment  MessageType = "environment"
	MsgReasoning    MessageType = "reasoning"
	MsgHeartbeat    MessageType = "heartbeat"
	MsgHeartbeatAck MessageType = "heartbeat_ack"
	MsgFrameAck     MessageType = "frame_ack"
	MsgStatus       MessageType = "status"
	MsgError        MessageType = "error"

	// Console-facing broadcasts.
	MsgClientConnected    MessageType = "client_connected"
	MsgClientDisconnected MessageType = "client_disconnected"
	MsgFramesReceived     MessageType = "frames_received"
	MsgAdviceSent         MessageType = "advice_sent"
)

// Now returns the current wire timestamp.
func Now() int64 {
	return time.Now().UnixMilli()
}

type Advice struct {
	Type               MessageType `json:"type"`
	Priority           string      `json:"priority"`
	Category           string      `json:"category"`
	Message            string      `json:"message"`
	SuppressDurationMS int64       `json:"suppress_duration_ms"`
	Timestamp          int64       `json:"timestamp"`
}

// Telemetry carries a snapshot of the stand-in sensor pipeline. All scores
// are bounded; see telemetry.Source for the documented ranges.
type Telemetry struct {
	Type        MessageType `json:"type"`
	Stability   float64     `json:"stability"`
	Brightness  float64     `json:"brightness"`
	MotionLevel float64     `json:"motion_level"`
	FocusScore  float64     `json:"focus_score"`
	Timestamp   int64       `json:"timestamp"`
}

type Task struct {
	Type         MessageType `json:"type"`
	TaskID       string      `json:"task_id"`
	TaskName     string      `json:"task_name"`
	Description  string      `json:"description"`
	TargetMotion string      `json:"target_motion"`
	State        string      `json:"state"`
	Progress     float64     `json:"progress"`
	Reason       string      `json:"reason"`
	Timestamp    int64       `json:"timestamp"`
}

type Environment struct {
	Type              MessageType `json:"type"`
	Tags              []string    `json:"tags"`
	ShootabilityScore float64     `json:"shootability_score"`
	Constraints       []string    `json:"constraints"`
	Timestamp         int64       `json:"timestamp"`
}

type Reasoning struct {
	Type      MessageType `json:"type"`
	TaskID    string      `json:"task_id"`
	Text      string      `json:"text"`
	Timestamp int64       `json:"timestamp"`
}

type Heartbeat struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp int64       `json:"timestamp"`
}

type HeartbeatAck struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

type FrameAck struct {
	Type       MessageType `json:"type"`
	FrameCount int         `json:"frame_count"`
	Timestamp  int64       `json:"timestamp"`
}

// Status answers an inbound status query with the session's counters.
type Status struct {
	Type                MessageType `json:"type"`
	SessionID           string      `json:"session_id"`
	CreatedAt           int64       `json:"created_at"`
	PrimaryConnections  int         `json:"primary_connections"`
	ObserverConnections int         `json:"observer_connections"`
	FramesReceivedTotal int64       `json:"frames_received_total"`
	MessagesSentTotal   int64       `json:"messages_sent_total"`
	LastHeartbeatAt     int64       `json:"last_heartbeat_at"`
	Timestamp           int64       `json:"timestamp"`
}

type ErrorPayload struct {
	Type        MessageType `json:"type"`
	Code        string      `json:"code"`
	Message     string      `json:"message"`
	Recoverable bool        `json:"recoverable"`
	Timestamp   int64       `json:"timestamp"`
}

type ClientConnected struct {
	Type      MessageType `json:"type"`
	Count     int         `json:"count"`
	Timestamp int64       `json:"timestamp"`
}

type ClientDisconnected struct {
	Type      MessageType `json:"type"`
	Count     int         `json:"count"`
	Timestamp int64       `json:"timestamp"`
}

type FramesReceived struct {
	Type      MessageType `json:"type"`
	Count     int         `json:"count"`
	Total     int64       `json:"total"`
	Timestamp int64       `json:"timestamp"`
}

type AdviceSent struct {
	Type      MessageType `json:"type"`
	Advice    Advice      `json:"advice"`
	Timestamp int64       `json:"timestamp"`
}

// NewError builds a recoverable error payload. Every error the coordinator
// emits is recoverable; a client that receives one may retry or reset its own
// state, the session is unaffected.
func NewError(code, message string) ErrorPayload {
	return ErrorPayload{
		Type:        MsgError,
		Code:        code,
		Message:     message,
		Recoverable: true,
		Timestamp:   Now(),
	}
}
