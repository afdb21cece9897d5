package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalHandler is a slog.Handler that sends records to the systemd journal.
// Attribute keys become upper-case journal fields, groups joined with '_'.
type JournalHandler struct {
	level  slog.Leveler
	attrs  map[string]string
	prefix string
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &JournalHandler{
		level: level,
		attrs: map[string]string{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the log record to the journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]string, len(h.attrs)+r.NumAttrs()+1)
	for k, v := range h.attrs {
		fields[k] = v
	}
	fields["SYSLOG_IDENTIFIER"] = Identifier

	r.Attrs(func(attr slog.Attr) bool {
		addAttrToFields(fields, h.prefix, attr)
		return true
	})

	if err := journal.Send(r.Message, priority(r.Level), fields); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send to journal: %v\n", err)
		return err
	}
	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(map[string]string, len(h.attrs)+len(attrs))
	for k, v := range h.attrs {
		fields[k] = v
	}
	for _, attr := range attrs {
		addAttrToFields(fields, h.prefix, attr)
	}
	return &JournalHandler{level: h.level, attrs: fields, prefix: h.prefix}
}

// WithGroup returns a new handler with a group prefix.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{level: h.level, attrs: h.attrs, prefix: h.prefix + journalKey(name) + "_"}
}

func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalKey maps an attribute key onto the journal field alphabet.
func journalKey(key string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(key))
}

func addAttrToFields(fields map[string]string, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := prefix + journalKey(attr.Key)
	switch attr.Value.Kind() {
	case slog.KindGroup:
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = key + "_"
		}
		for _, a := range attr.Value.Group() {
			addAttrToFields(fields, groupPrefix, a)
		}
	case slog.KindInt64:
		fields[key] = strconv.FormatInt(attr.Value.Int64(), 10)
	case slog.KindUint64:
		fields[key] = strconv.FormatUint(attr.Value.Uint64(), 10)
	case slog.KindBool:
		fields[key] = strconv.FormatBool(attr.Value.Bool())
	case slog.KindTime:
		fields[key] = attr.Value.Time().Format(time.RFC3339Nano)
	default:
		fields[key] = attr.Value.String()
	}
}

// IsJournalAvailable checks if the systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
