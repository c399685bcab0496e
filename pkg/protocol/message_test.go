package protocol

import (
	"encoding/json"
	"testing"

	"github.com/presencelabs/go-presence/pkg/gesture"
)

func TestNewMessage_SetsTimestamp(t *testing.T) {
	msg, err := NewMessage(TypePing, PingData{ID: "p1"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if msg.Type != TypePing {
		t.Errorf("Type = %s, want ping", msg.Type)
	}
	if msg.Timestamp == 0 {
		t.Error("Timestamp not set")
	}
}

func TestParseMessage_RoundTrip(t *testing.T) {
	obs := gesture.Observation{YawDeg: -42.5, Smile: 0.7, LeftEyeOpen: 0.9, RightEyeOpen: 0.85}
	msg, err := NewObservationMessage(obs, "f-3")
	if err != nil {
		t.Fatalf("NewObservationMessage: %v", err)
	}

	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if parsed.Type != TypeObservation {
		t.Fatalf("Type = %s, want observation", parsed.Type)
	}

	var d ObservationData
	if err := parsed.ParseData(&d); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if d.FrameID != "f-3" {
		t.Errorf("FrameID = %s, want f-3", d.FrameID)
	}
	if got := d.Observation(); got != obs {
		t.Errorf("Observation = %+v, want %+v", got, obs)
	}
}

func TestObservationData_MissingEyeMetricsDefaultOpen(t *testing.T) {
	parsed, err := ParseMessage([]byte(`{"type":"observation","data":{"smile":0.1}}`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	var d ObservationData
	if err := parsed.ParseData(&d); err != nil {
		t.Fatalf("ParseData: %v", err)
	}

	obs := d.Observation()
	if obs.LeftEyeOpen != 1.0 || obs.RightEyeOpen != 1.0 {
		t.Fatalf("eyes = %v/%v, want 1.0/1.0 for omitted metrics", obs.LeftEyeOpen, obs.RightEyeOpen)
	}
}

func TestObservationData_OmittedEyesCannotBlink(t *testing.T) {
	// A producer that never reports eye metrics must not complete a
	// blink: absent values read as open, so the closed phase never
	// starts.
	payloads := []string{
		`{"left_eye_open":0.95,"right_eye_open":0.95}`,
		`{"smile":0.1}`, // no eye data at all
		`{"left_eye_open":0.95,"right_eye_open":0.95}`,
	}

	attempt := gesture.NewAttempt(gesture.KindBlink, gesture.DefaultConfig())
	defer attempt.Close()

	for i, p := range payloads {
		var d ObservationData
		if err := json.Unmarshal([]byte(p), &d); err != nil {
			t.Fatalf("payload %d: %v", i, err)
		}
		out := attempt.Consume(d.Observation(), gesture.FrameRef{})
		if out.Status == gesture.StatusDetected {
			t.Fatalf("payload %d detected a blink without eye data", i)
		}
	}
	if attempt.Detected() {
		t.Fatal("blink detected although no closed frame was ever sent")
	}
}

func TestObservationData_ExplicitZeroEyesStayClosed(t *testing.T) {
	var d ObservationData
	if err := json.Unmarshal([]byte(`{"left_eye_open":0,"right_eye_open":0}`), &d); err != nil {
		t.Fatal(err)
	}
	obs := d.Observation()
	if obs.LeftEyeOpen != 0 || obs.RightEyeOpen != 0 {
		t.Fatalf("eyes = %v/%v, want explicit 0.0 preserved", obs.LeftEyeOpen, obs.RightEyeOpen)
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseData_NilDataIsNoop(t *testing.T) {
	msg := &Message{Type: TypeCancel}
	var d ObservationData
	if err := msg.ParseData(&d); err != nil {
		t.Errorf("ParseData with nil data: %v", err)
	}
}

func TestFrameMessage_RoundTrip(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0}
	msg, err := NewFrameMessage("f-1", 640, 480, jpeg)
	if err != nil {
		t.Fatalf("NewFrameMessage: %v", err)
	}

	var d FrameData
	if err := msg.ParseData(&d); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	got, err := DecodeFrame(d)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if string(got) != string(jpeg) {
		t.Errorf("decoded frame differs from input")
	}
	if d.Width != 640 || d.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", d.Width, d.Height)
	}
}

func TestChallengeMessage_CarriesInstruction(t *testing.T) {
	msg, err := NewChallengeMessage("a-1", gesture.KindHeadTurn, gesture.DefaultSequence(), 50000)
	if err != nil {
		t.Fatalf("NewChallengeMessage: %v", err)
	}

	var d ChallengeData
	if err := msg.ParseData(&d); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if d.Kind != gesture.KindHeadTurn {
		t.Errorf("Kind = %s", d.Kind)
	}
	if len(d.Sequence) != 4 {
		t.Errorf("Sequence len = %d, want 4", len(d.Sequence))
	}
	if d.Instruction == "" {
		t.Error("Instruction empty")
	}
	if d.TimeoutMs != 50000 {
		t.Errorf("TimeoutMs = %d", d.TimeoutMs)
	}
}
