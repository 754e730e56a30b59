package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler renders one header line per record followed by an indented
// field list. Info records show a curated subset; debug records show every
// attribute verbatim.
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// consoleLine is a record split into the parts the header shows and the
// fields listed beneath it.
type consoleLine struct {
	when      time.Time
	level     slog.Level
	component string
	viz       string
	message   string
	source    string
	fields    []kv
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	line := h.split(record)

	var buf bytes.Buffer
	buf.Grow(192 + len(line.fields)*32)
	line.writeHeader(&buf)
	if line.level < slog.LevelInfo {
		line.writeAll(&buf)
	} else {
		line.writeCurated(&buf)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) split(record slog.Record) consoleLine {
	line := consoleLine{
		when:    record.Time,
		level:   record.Level,
		message: strings.TrimSpace(record.Message),
	}
	if line.when.IsZero() {
		line.when = time.Now()
	}
	if line.message == "" {
		line.message = "(no message)"
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			line.source = filepath.Base(src.File) + ":" + strconv.Itoa(src.Line)
		}
	}

	var c kvCollector
	c.addAll(h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		c.add(h.groups, attr)
		return true
	})
	for _, item := range c.items {
		switch item.key {
		case FieldComponent:
			line.component = attrString(item.value)
		case FieldViz:
			line.viz = attrString(item.value)
		default:
			line.fields = append(line.fields, item)
		}
	}
	return line
}

// writeHeader prints "2026-01-02 15:04:05 INFO [server] tension – message".
func (l consoleLine) writeHeader(buf *bytes.Buffer) {
	buf.WriteString(formatTimestamp(l.when))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(l.level))
	if l.component != "" {
		buf.WriteString(" [" + l.component + "]")
	}
	if l.viz != "" {
		buf.WriteString(" " + l.viz)
	}
	buf.WriteString(" – ")
	buf.WriteString(l.message)
	if l.source != "" {
		buf.WriteString(" [" + l.source + "]")
	}
	buf.WriteByte('\n')
}

func (l consoleLine) writeAll(buf *bytes.Buffer) {
	for _, item := range l.fields {
		buf.WriteString("    " + item.key + ": " + formatValue(item.value) + "\n")
	}
}

func (l consoleLine) writeCurated(buf *bytes.Buffer) {
	selected, hidden := selectInfoFields(l.fields)
	for _, field := range selected {
		buf.WriteString("    - " + field.label + ": " + field.value + "\n")
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		buf.WriteString("    + " + strconv.Itoa(hidden) + " more fields hidden\n")
	}
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

type kv struct {
	key   string
	value slog.Value
}

// kvCollector flattens grouped attributes into dotted keys. A repeated key
// keeps its first position but takes the latest value, so a request-scoped
// override replaces a logger-level default in place.
type kvCollector struct {
	items []kv
	index map[string]int
}

func (c *kvCollector) addAll(prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		c.add(prefix, attr)
	}
}

func (c *kvCollector) add(prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix = append(append([]string(nil), prefix...), attr.Key)
		}
		c.addAll(prefix, value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(prefix, ".") + "." + key
	}
	if key == "" {
		return
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if pos, ok := c.index[key]; ok {
		c.items[pos].value = value
		return
	}
	c.index[key] = len(c.items)
	c.items = append(c.items, kv{key: key, value: value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
