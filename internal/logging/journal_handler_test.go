package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

func TestJournalKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"module", "MODULE"},
		{"host_power_on", "HOST_POWER_ON"},
		{"raw.path", "RAW_PATH"},
		{"led-group", "LED_GROUP"},
	}
	for _, tt := range tests {
		if got := journalKey(tt.in); got != tt.want {
			t.Errorf("journalKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddAttrToFields(t *testing.T) {
	fields := map[string]string{}
	at := time.Date(2025, 1, 27, 10, 30, 0, 0, time.UTC)

	addAttrToFields(fields, "", slog.Int("host", 0))
	addAttrToFields(fields, "", slog.Bool("asserted", true))
	addAttrToFields(fields, "", slog.Time("at", at))
	addAttrToFields(fields, "", slog.Group("state", slog.Bool("boot_started", false)))
	addAttrToFields(fields, "LED_", slog.String("group", "power_on"))
	addAttrToFields(fields, "", slog.Attr{})

	want := map[string]string{
		"HOST":               "0",
		"ASSERTED":           "true",
		"AT":                 "2025-01-27T10:30:00Z",
		"STATE_BOOT_STARTED": "false",
		"LED_GROUP":          "power_on",
	}
	if len(fields) != len(want) {
		t.Errorf("got %d fields %v, want %d", len(fields), fields, len(want))
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%s] = %q, want %q", k, fields[k], v)
		}
	}
}

func TestJournalHandlerLevel(t *testing.T) {
	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelWarn)
	h := NewJournalHandler(levelVar)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	levelVar.Set(slog.LevelDebug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("handler should follow its level variable")
	}
}

func TestJournalHandlerWithAttrsAndGroup(t *testing.T) {
	h := NewJournalHandler(nil).
		WithAttrs([]slog.Attr{slog.String("module", "led")}).
		WithGroup("req")
	jh, ok := h.(*JournalHandler)
	if !ok {
		t.Fatalf("WithGroup returned %T", h)
	}
	if jh.attrs["MODULE"] != "led" {
		t.Errorf("MODULE = %q, want led", jh.attrs["MODULE"])
	}
	if jh.prefix != "REQ_" {
		t.Errorf("prefix = %q, want REQ_", jh.prefix)
	}
}

func TestPriority(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  journal.Priority
	}{
		{slog.LevelDebug, journal.PriDebug},
		{slog.LevelInfo, journal.PriInfo},
		{slog.LevelWarn, journal.PriWarning},
		{slog.LevelError, journal.PriErr},
		{slog.LevelError + 4, journal.PriErr},
	}
	for _, tt := range tests {
		if got := priority(tt.level); got != tt.want {
			t.Errorf("priority(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
