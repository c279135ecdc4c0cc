package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// Identifier is the SYSLOG_IDENTIFIER of journal records.
const Identifier = "hbclk"

// JournalHandler is a slog.Handler that sends records to the systemd journal.
type JournalHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the record to the journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := mapLevelToPriority(r.Level)

	fields := map[string]string{
		"SYSLOG_IDENTIFIER": Identifier,
	}

	for _, attr := range h.attrs {
		addAttrToFields(fields, attr, h.groups)
	}

	r.Attrs(func(attr slog.Attr) bool {
		addAttrToFields(fields, attr, h.groups)
		return true
	})

	if err := journal.Send(r.Message, priority, fields); err != nil {
		return fmt.Errorf("journal send: %w", err)
	}

	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JournalHandler{
		level:  h.level,
		attrs:  append(slices.Clone(h.attrs), attrs...),
		groups: h.groups,
	}
}

// WithGroup returns a new handler with a group prefix.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &JournalHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: append(slices.Clone(h.groups), name),
	}
}

func mapLevelToPriority(level slog.Level) journal.Priority {
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

// addAttrToFields flattens attr into upper-case journal fields, joining groups with underscores.
func addAttrToFields(fields map[string]string, attr slog.Attr, groups []string) {
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, "_") + "_" + key
	}
	key = strings.ToUpper(key)

	switch attr.Value.Kind() {
	case slog.KindInt64:
		fields[key] = strconv.FormatInt(attr.Value.Int64(), 10)
	case slog.KindUint64:
		fields[key] = strconv.FormatUint(attr.Value.Uint64(), 10)
	case slog.KindBool:
		fields[key] = strconv.FormatBool(attr.Value.Bool())
	case slog.KindGroup:
		newGroups := append(slices.Clone(groups), attr.Key)
		for _, a := range attr.Value.Group() {
			addAttrToFields(fields, a, newGroups)
		}
	default:
		fields[key] = attr.Value.String()
	}
}

// IsJournalAvailable checks if the systemd journal socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
