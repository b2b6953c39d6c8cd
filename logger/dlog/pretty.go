package dlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/context"
)

type color int

const (
	timeFormat = "[2006-01-02 15:04:05.000]"

	reset = "\033[0m"

	green        color = 32
	cyan         color = 36
	lightGray    color = 37
	lightRed     color = 91
	lightYellow  color = 93
	lightBlue    color = 94
	lightMagenta color = 95
	white        color = 97
)

func colorizer(colorCode color, v string) string {
	return fmt.Sprintf("\033[%sm%s%s", strconv.Itoa(int(colorCode)), v, reset)
}

// DualWriter copies console output into a file. Either side may be nil.
type DualWriter struct {
	Stdout io.Writer
	File   io.Writer
}

func (t DualWriter) Write(p []byte) (n int, err error) {
	n, err = t.WriteStd(p)
	if err != nil {
		return n, err
	}
	return t.WriteFile(p)
}

func (t DualWriter) WriteStd(p []byte) (int, error) {
	if t.Stdout == nil {
		return len(p), nil
	}
	return t.Stdout.Write(p)
}

func (t DualWriter) WriteFile(p []byte) (int, error) {
	if t.File == nil {
		return len(p), nil
	}
	return t.File.Write(p)
}

// Handler renders records as a colourised line followed by the record's
// attributes as indented JSON. Debug records skip the console.
type Handler struct {
	h        slog.Handler
	r        func([]string, slog.Attr) slog.Attr
	b        *bytes.Buffer
	m        *sync.Mutex
	writer   DualWriter
	colorize bool
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{h: h.h.WithAttrs(attrs), b: h.b, r: h.r, m: h.m, writer: h.writer, colorize: h.colorize}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{h: h.h.WithGroup(name), b: h.b, r: h.r, m: h.m, writer: h.writer, colorize: h.colorize}
}

func (h *Handler) computeAttrs(ctx context.Context, r slog.Record) (map[string]any, error) {
	h.m.Lock()
	defer func() {
		h.b.Reset()
		h.m.Unlock()
	}()
	if err := h.h.Handle(ctx, r); err != nil {
		return nil, fmt.Errorf("error when calling inner handler's Handle: %w", err)
	}

	var attrs map[string]any
	if err := json.Unmarshal(h.b.Bytes(), &attrs); err != nil {
		return nil, fmt.Errorf("error when unmarshaling inner handler's Handle result: %w", err)
	}
	return attrs, nil
}

func (h *Handler) levelColor(level slog.Level) color {
	switch {
	case level <= slog.LevelDebug:
		return lightGray
	case level <= slog.LevelInfo:
		return cyan
	case level < slog.LevelWarn:
		return lightBlue
	case level < slog.LevelError:
		return lightYellow
	case level <= slog.LevelError+1:
		return lightRed
	default:
		return lightMagenta
	}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	colorize := func(_ color, value string) string {
		return value
	}
	if h.colorize {
		colorize = colorizer
	}

	var level string
	levelAttr := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(r.Level)}
	if h.r != nil {
		levelAttr = h.r([]string{}, levelAttr)
	}
	if !levelAttr.Equal(slog.Attr{}) {
		level = colorize(h.levelColor(r.Level), levelAttr.Value.String()+":")
	}

	var timestamp string
	timeAttr := slog.Attr{Key: slog.TimeKey, Value: slog.StringValue(r.Time.Format(timeFormat))}
	if h.r != nil {
		timeAttr = h.r([]string{}, timeAttr)
	}
	if !timeAttr.Equal(slog.Attr{}) {
		timestamp = colorize(lightGray, timeAttr.Value.String())
	}

	var msg string
	msgAttr := slog.Attr{Key: slog.MessageKey, Value: slog.StringValue(r.Message)}
	if h.r != nil {
		msgAttr = h.r([]string{}, msgAttr)
	}
	if !msgAttr.Equal(slog.Attr{}) {
		msg = colorize(white, msgAttr.Value.String())
	}

	attrs, err := h.computeAttrs(ctx, r)
	if err != nil {
		return err
	}
	var file string
	if source, ok := attrs["source"].(map[string]any); ok {
		if name, ok := source["file"].(string); ok {
			line, _ := source["line"].(float64)
			file = name + ":" + strconv.Itoa(int(line))
			delete(attrs, "source")
			attrs["called_function"] = source["function"]
		}
	}

	var jsonBytes []byte
	if len(attrs) > 0 {
		jsonBytes, err = json.MarshalIndent(attrs, "", "  ")
		if err != nil {
			return fmt.Errorf("error when marshaling attrs: %w", err)
		}
	}

	parts := make([]string, 0, 5)
	for _, part := range []string{timestamp, level, file, msg} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(jsonBytes) > 0 {
		parts = append(parts, colorize(green, string(jsonBytes)))
	}
	line := []byte(strings.Join(parts, " ") + "\n")

	if r.Level <= slog.LevelDebug {
		_, err = h.writer.WriteFile(line)
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

func suppressDefaults(next func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey ||
			a.Key == slog.LevelKey ||
			a.Key == slog.MessageKey {
			return slog.Attr{}
		}
		if next == nil {
			return a
		}
		return next(groups, a)
	}
}

func New(handlerOptions *slog.HandlerOptions, options ...Option) *Handler {
	if handlerOptions == nil {
		handlerOptions = &slog.HandlerOptions{}
	}

	buf := &bytes.Buffer{}
	handler := &Handler{
		b: buf,
		h: slog.NewJSONHandler(buf, &slog.HandlerOptions{
			Level:       handlerOptions.Level,
			AddSource:   handlerOptions.AddSource,
			ReplaceAttr: suppressDefaults(handlerOptions.ReplaceAttr),
		}),
		r: handlerOptions.ReplaceAttr,
		m: &sync.Mutex{},
	}

	for _, opt := range options {
		opt(handler)
	}

	return handler
}

func NewHandler(writer DualWriter, opts *slog.HandlerOptions) *Handler {
	return New(opts, WithDestinationWriter(writer), WithColor())
}

type Option func(h *Handler)

func WithDestinationWriter(writer DualWriter) Option {
	return func(h *Handler) {
		h.writer = writer
	}
}

func WithColor() Option {
	return func(h *Handler) {
		h.colorize = true
	}
}
