package protocol

import "testing"

func TestDecodeInboundFrames(t *testing.T) {
	msg, werr := DecodeInbound([]byte(`{"type":"frames","frames":["a","b"],"fps":24}`))
	if werr != nil {
		t.Fatalf("DecodeInbound: %v", werr)
	}
	frames, ok := msg.(FramesMessage)
	if !ok {
		t.Fatalf("decoded %T, want FramesMessage", msg)
	}
	if len(frames.Frames) != 2 {
		t.Errorf("frames = %d, want 2", len(frames.Frames))
	}
	if frames.FPS != 24 {
		t.Errorf("fps = %v, want 24", frames.FPS)
	}
	if verr := frames.Validate(); verr != nil {
		t.Errorf("Validate: %v", verr)
	}
}

func TestDecodeInboundHeartbeatAndStatus(t *testing.T) {
	msg, werr := DecodeInbound([]byte(`{"type":"heartbeat"}`))
	if werr != nil {
		t.Fatalf("heartbeat decode: %v", werr)
	}
	if _, ok := msg.(HeartbeatMessage); !ok {
		t.Errorf("decoded %T, want HeartbeatMessage", msg)
	}

	msg, werr = DecodeInbound([]byte(`{"type":"status"}`))
	if werr != nil {
		t.Fatalf("status decode: %v", werr)
	}
	if _, ok := msg.(StatusMessage); !ok {
		t.Errorf("decoded %T, want StatusMessage", msg)
	}
}

func TestDecodeInboundErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{"NotJSON", `{{{`, CodeInvalidJSON},
		{"MissingType", `{"frames":["a"]}`, CodeUnknownType},
		{"UnknownType", `{"type":"selfie"}`, CodeUnknownType},
		{"FramesNotArray", `{"type":"frames","frames":"abc"}`, CodeInvalidFrameBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, werr := DecodeInbound([]byte(tt.raw))
			if werr == nil {
				t.Fatalf("decoded %T, want error", msg)
			}
			if werr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", werr.Code, tt.wantCode)
			}
		})
	}
}

func TestFramesValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     FramesMessage
		wantErr bool
	}{
		{"Valid", FramesMessage{Frames: []string{"x", "y", "z"}}, false},
		{"Empty", FramesMessage{Frames: []string{}}, true},
		{"Missing", FramesMessage{}, true},
		{"EmptyFrame", FramesMessage{Frames: []string{"x", ""}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			werr := tt.msg.Validate()
			if (werr != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", werr, tt.wantErr)
			}
			if werr != nil && werr.Code != CodeInvalidFrameBuffer {
				t.Errorf("code = %q, want %q", werr.Code, CodeInvalidFrameBuffer)
			}
		})
	}
}

func TestNewErrorIsRecoverable(t *testing.T) {
	p := NewError(CodeSessionNotFound, "no such session")
	if !p.Recoverable {
		t.Error("error payload should be recoverable")
	}
	if p.Type != MsgError {
		t.Errorf("type = %q, want %q", p.Type, MsgError)
	}
	if p.Timestamp == 0 {
		t.Error("timestamp not set")
	}
}
