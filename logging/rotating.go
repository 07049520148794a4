package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const filePrefix = "rotations-"

var numberedFile = regexp.MustCompile(`^rotations-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer over weekly log files. A week's file is
// split into numbered parts once it reaches maxFileSize, and files older
// than the retention period are removed once a day.
type RotatingLogger struct {
	dir         string
	retention   time.Duration
	maxFileSize int64

	mu      sync.Mutex
	current *os.File
	week    string
	size    atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewRotatingLogger creates a rotating logger. maxFileSize <= 0 disables
// size based splitting.
func NewRotatingLogger(dir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		dir:         dir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Open creates the log directory, opens the current week's file and starts
// the retention cleanup loop.
func (rl *RotatingLogger) Open() error {
	if err := os.MkdirAll(rl.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", rl.dir, err)
	}

	rl.mu.Lock()
	err := rl.rotate(weekKey(time.Now()), false)
	rl.mu.Unlock()
	if err != nil {
		return err
	}

	go rl.cleanupLoop(24 * time.Hour)
	return nil
}

// weekKey returns the ISO week of t as YYYY-Www
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// rotate switches to the file for week (caller must hold mu)
func (rl *RotatingLogger) rotate(week string, full bool) error {
	if rl.current != nil {
		_ = rl.current.Close()
		rl.current = nil
	}

	name := rl.fileFor(week, full)
	path := filepath.Join(rl.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.current = file
	rl.week = week
	rl.size.Store(0)
	if info, err := file.Stat(); err == nil {
		rl.size.Store(info.Size())
	}
	return nil
}

// fileFor picks the file to append to for week. full means the file in use
// reached its size limit and a new numbered part is needed.
func (rl *RotatingLogger) fileFor(week string, full bool) string {
	base := fmt.Sprintf("%s%s.log", filePrefix, week)

	highest, lastName, lastSize := rl.lastPart(week)
	if highest == 0 {
		info, err := os.Stat(filepath.Join(rl.dir, base))
		if err != nil || (!full && !rl.tooBig(info.Size())) {
			return base
		}
	} else if !full && !rl.tooBig(lastSize) {
		return lastName
	}

	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, highest+1)
}

func (rl *RotatingLogger) tooBig(size int64) bool {
	return rl.maxFileSize > 0 && size >= rl.maxFileSize
}

// lastPart returns the highest numbered part of week with its name and size
func (rl *RotatingLogger) lastPart(week string) (int, string, int64) {
	matches, _ := filepath.Glob(filepath.Join(rl.dir, fmt.Sprintf("%s%s_??.log", filePrefix, week)))

	highest := 0
	var name string
	var size int64
	for _, match := range matches {
		sub := numberedFile.FindStringSubmatch(filepath.Base(match))
		if len(sub) < 2 {
			continue
		}
		num, _ := strconv.Atoi(sub[1])
		if num <= highest {
			continue
		}
		highest = num
		name = filepath.Base(match)
		size = 0
		if info, err := os.Stat(match); err == nil {
			size = info.Size()
		}
	}
	return highest, name, size
}

// Write appends p to the current file, rotating first when the week changed
// or the write would exceed the size limit.
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(time.Now())
	switch {
	case rl.current == nil || rl.week != week:
		if err := rl.rotate(week, false); err != nil {
			return 0, err
		}
	case rl.maxFileSize > 0 && rl.size.Load()+int64(len(p)) > rl.maxFileSize && rl.size.Load() > 0:
		if err := rl.rotate(week, true); err != nil {
			return 0, err
		}
	}

	n, err := rl.current.Write(p)
	rl.size.Add(int64(n))
	return n, err
}

func (rl *RotatingLogger) cleanupLoop(every time.Duration) {
	defer close(rl.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			if _, err := rl.cleanupOldLogs(); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			}
		}
	}
}

// cleanupOldLogs removes log files last modified before the retention period
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rl.dir, name)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Close stops the cleanup loop and closes the current file
func (rl *RotatingLogger) Close() error {
	started := false
	rl.closeOnce.Do(func() {
		close(rl.stop)
		started = true
	})
	if started {
		select {
		case <-rl.done:
		case <-time.After(time.Second):
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.current == nil {
		return nil
	}
	err := rl.current.Close()
	rl.current = nil
	return err
}
