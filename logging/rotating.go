package logging

import (
	"context"
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

const (
	filePrefix         = "dispensacao-"
	defaultMaxFileSize = 100 * 1024 * 1024
)

var numberedFile = regexp.MustCompile(`^dispensacao-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer over one log file per ISO week. A week that
// outgrows maxFileSize continues in numbered files (_01, _02, ...). Files older
// than the retention period are removed once a day.
type RotatingLogger struct {
	logDir      string
	currentFile *os.File
	currentWeek string
	retention   time.Duration
	maxFileSize int64
	currentSize atomic.Int64
	mu          sync.Mutex

	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
	startOnce   sync.Once
}

// NewRotatingLogger creates a rotating logger with the default 100MB file cap
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, defaultMaxFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a rotating logger; maxFileSize 0 means no cap
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the ISO week as YYYY-Www
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// open creates the log directory and the file of the current week.
func (rl *RotatingLogger) open() error {
	if err := os.MkdirAll(rl.logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", rl.logDir, err)
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.doRotate(getWeekKey(time.Now()))
}

// doRotate switches to the file for targetWeek (caller must hold the lock)
func (rl *RotatingLogger) doRotate(targetWeek string) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rl.currentFile = nil
	}

	sizeRotation := rl.currentWeek == targetWeek && rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize
	name := rl.pickFile(targetWeek, sizeRotation)

	path := filepath.Join(rl.logDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek
	rl.currentSize.Store(0)
	if info, err := file.Stat(); err == nil {
		rl.currentSize.Store(info.Size())
	}
	return nil
}

// pickFile returns the file to append to for the week: the base file while it
// has room, else the highest numbered file with room, else a new numbered one.
func (rl *RotatingLogger) pickFile(week string, sizeRotation bool) string {
	base := filePrefix + week + ".log"

	if !sizeRotation {
		info, err := os.Stat(filepath.Join(rl.logDir, base))
		if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
			return base
		}
	}

	highest, lastName, lastSize := rl.highestNumbered(week)
	if lastName != "" && lastSize < rl.maxFileSize {
		return lastName
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, highest+1)
}

func (rl *RotatingLogger) highestNumbered(week string) (int, string, int64) {
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, filePrefix+week+"_??.log"))

	highest := 0
	var name string
	var size int64
	for _, match := range matches {
		m := numberedFile.FindStringSubmatch(filepath.Base(match))
		if len(m) < 2 {
			continue
		}
		num, _ := strconv.Atoi(m[1])
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

// Write appends p to the current file, rotating on week change or size cap
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(time.Now())
	rotate := rl.currentFile == nil || rl.currentWeek != week
	if !rotate && rl.maxFileSize > 0 {
		size := rl.currentSize.Load()
		if size+int64(len(p)) > rl.maxFileSize && size > 0 {
			rl.currentSize.Store(rl.maxFileSize)
			rotate = true
		}
	}

	if rotate {
		if err := rl.doRotate(week); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// cleanupOldLogs removes log files last modified before the retention window
func (rl *RotatingLogger) cleanupOldLogs() error {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
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
		if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
			deleted++
		}
	}

	if deleted > 0 {
		// Console only, the file handler may be the caller
		fmt.Fprintf(os.Stderr, "Cleaned up %d old log files\n", deleted)
	}
	return nil
}

// startCleanup runs the daily retention sweep until Close
func (rl *RotatingLogger) startCleanup() {
	rl.startOnce.Do(func() {
		go func() {
			defer close(rl.cleanupDone)
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()

			for {
				select {
				case <-rl.ctx.Done():
					return
				case <-ticker.C:
					if err := rl.cleanupOldLogs(); err != nil {
						fmt.Fprintf(os.Stderr, "failed to cleanup old logs: %v\n", err)
					}
				}
			}
		}()
	})
}

// Close stops the cleanup goroutine and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.cancel()

	rl.startOnce.Do(func() { close(rl.cleanupDone) })
	select {
	case <-rl.cleanupDone:
	case <-time.After(5 * time.Second):
		fmt.Fprintln(os.Stderr, "Warning: log cleanup goroutine did not stop in time")
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.currentFile == nil {
		return nil
	}
	err := rl.currentFile.Close()
	rl.currentFile = nil
	return err
}
