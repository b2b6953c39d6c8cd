package dlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Archiver moves the day's log files into a dated directory. Writes through
// a LockedFile wait while an archive run is copying.
type Archiver struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

func NewArchiver(dir string) *Archiver {
	return &Archiver{dir: dir, now: time.Now}
}

// Process archives every regular file in the log directory into
// <dir>/<yesterday>[-n] and truncates the originals.
func (a *Archiver) Process() {
	if _, err := a.archive(); err != nil {
		Log.Error("Failed to archive logs", "dir", a.dir, "err", err)
	}
}

func (a *Archiver) archive() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	yesterday := a.now().AddDate(0, 0, -1).Format("2006-01-02")
	base := filepath.Join(a.dir, yesterday)

	archiveDir := base
	counter := 1
	err := os.Mkdir(archiveDir, 0755)
	for os.IsExist(err) {
		archiveDir = base + "-" + strconv.Itoa(counter)
		counter++
		err = os.Mkdir(archiveDir, 0755)
	}
	if err != nil {
		return "", fmt.Errorf("creating archive dir: %w", err)
	}

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return "", fmt.Errorf("reading log dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		src := filepath.Join(a.dir, entry.Name())
		written, err := copyFile(filepath.Join(archiveDir, entry.Name()), src)
		if err != nil {
			return "", err
		}
		if err = os.Truncate(src, 0); err != nil {
			return "", fmt.Errorf("truncating %s: %w", src, err)
		}
		Log.Debug("Archived log", "fileName", entry.Name(), "written", written)
	}
	return archiveDir, nil
}

func copyFile(dst, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", dst, err)
	}
	defer out.Close()
	n, err := io.Copy(out, in)
	if err != nil {
		return n, fmt.Errorf("copying %s: %w", src, err)
	}
	return n, nil
}

type LockedFile struct {
	Archiver *Archiver
	File     *os.File
}

func (f *LockedFile) Write(p []byte) (int, error) {
	if f.Archiver != nil {
		f.Archiver.mu.RLock()
		defer f.Archiver.mu.RUnlock()
	}
	return f.File.Write(p)
}
