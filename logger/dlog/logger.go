package dlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	slogmulti "github.com/samber/slog-multi"
)

// Log is the process logger. Setup replaces it.
var Log = slog.Default()

type Config struct {
	Level       string
	Dir         string
	Files       bool
	ArchiveCron string
	Stdout      io.Writer
}

// Logger is a fanned-out slog.Logger plus the files and archive schedule
// behind it.
type Logger struct {
	*slog.Logger
	archiver *Archiver
	cron     *cron.Cron
	files    []*os.File
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// Setup builds the logger and makes it the default. With Files set, text
// and JSON copies are written under Dir and archived on ArchiveCron.
func Setup(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}

	l := &Logger{}
	if !cfg.Files {
		l.Logger = slog.New(NewHandler(DualWriter{Stdout: cfg.Stdout}, opts))
		install(l.Logger)
		return l, nil
	}

	if err = os.MkdirAll(cfg.Dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	l.archiver = NewArchiver(cfg.Dir)

	pretty, err := l.open(cfg.Dir, "pretty.log")
	if err != nil {
		return nil, err
	}
	text, err := l.open(cfg.Dir, "default.txt")
	if err != nil {
		l.Close()
		return nil, err
	}
	jsonFile, err := l.open(cfg.Dir, "default.json")
	if err != nil {
		l.Close()
		return nil, err
	}

	l.Logger = slog.New(slogmulti.Fanout(
		NewHandler(DualWriter{Stdout: cfg.Stdout, File: pretty}, opts),
		slog.NewTextHandler(text, opts),
		slog.NewJSONHandler(jsonFile, opts),
	))
	install(l.Logger)

	if cfg.ArchiveCron != "" {
		l.cron = cron.New()
		entryID, err := l.cron.AddFunc(cfg.ArchiveCron, l.archiver.Process)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("archive schedule %q: %w", cfg.ArchiveCron, err)
		}
		l.cron.Start()
		l.Debug("Created cron", "entryID", entryID, "spec", cfg.ArchiveCron)
	}
	return l, nil
}

func (l *Logger) open(dir, name string) (*LockedFile, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	l.files = append(l.files, f)
	return &LockedFile{Archiver: l.archiver, File: f}, nil
}

// Close stops the archive schedule and closes the log files.
func (l *Logger) Close() {
	if l.cron != nil {
		<-l.cron.Stop().Done()
	}
	for _, f := range l.files {
		_ = f.Close()
	}
}

func install(logger *slog.Logger) {
	Log = logger
	slog.SetDefault(logger)
}

func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}
