package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestForSessionAddsAuditFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")

	ForSession(log, "start", "exam-1", "user-1").Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	for key, want := range map[string]string{"op": "start", "exam_id": "exam-1", "user_id": "user-1", "message": "hello"} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "not-a-level", "json")

	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line should be filtered at info level, got %s", buf.String())
	}
	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Error("info line should be written")
	}
}
