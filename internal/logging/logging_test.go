package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zerolog.Level{
		"":       zerolog.InfoLevel,
		"debug":  zerolog.DebugLevel,
		" WARN ": zerolog.WarnLevel,
		"error":  zerolog.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNew_WritesJSONWithTimestamp(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf)
	logger.Info().Str("sheet", "Sheet1").Int("kept", 3).Msg("解析完成")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if entry["message"] != "解析完成" || entry["sheet"] != "Sheet1" || entry["kept"] != float64(3) {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Fatalf("missing timestamp: %v", entry)
	}
}
