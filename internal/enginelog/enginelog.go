// Package enginelog provides a dedicated, rotating, leveled logger for the
// search engine core, plus a TIMER_DEBUG-gated profiling-span collector
// (spec §6). It follows the teacher's internal/errlog pattern (mutex-guarded
// singleton, gzip-compressed rotation, explicit Init/Close) generalized from
// an error-only log to Info/Warn/Error levels.
package enginelog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// maxFileSize is the threshold in bytes before rotation.
	maxFileSize = 100 << 20
	// maxBackups is the number of compressed archives to keep.
	maxBackups = 5
	logFileName = "engine.log"
)

// Level identifies the severity of a log line.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

var (
	global *logger
	mu     sync.Mutex
)

type logger struct {
	mu         sync.Mutex
	file       *os.File
	dir        string
	path       string
	size       int64
	buf        []byte
	closed     bool
	maxRotSize int64
}

// Init opens (or creates) the log file under dir. Safe to call multiple
// times; a second call while already initialized is a no-op, matching the
// teacher's errlog.Init semantics.
func Init(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create engine log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, logFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open engine log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat engine log file: %w", err)
	}

	global = &logger{
		file:       f,
		dir:        dir,
		path:       path,
		size:       info.Size(),
		buf:        make([]byte, 0, 4096),
		maxRotSize: maxFileSize,
	}
	return nil
}

// Close flushes and closes the log file. Safe to call when not initialized.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		return
	}
	global.close()
	global = nil
}

func log(level Level, format string, args ...interface{}) {
	mu.Lock()
	l := global
	mu.Unlock()
	if l == nil {
		return
	}
	l.logf(level, format, args...)
}

// Info logs an informational line. No-op if Init was never called.
func Info(format string, args ...interface{}) { log(LevelInfo, format, args...) }

// Warn logs a warning line (used for the per-doc failures spec §4.4/§4.7
// tolerate and count rather than propagate).
func Warn(format string, args ...interface{}) { log(LevelWarn, format, args...) }

// Error logs an error line.
func Error(format string, args ...interface{}) { log(LevelError, format, args...) }

func (l *logger) logf(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.file == nil {
		return
	}

	now := time.Now()
	l.buf = l.buf[:0]
	l.buf = now.AppendFormat(l.buf, "2006/01/02 15:04:05")
	l.buf = append(l.buf, " ["+level.String()+"] "...)
	l.buf = fmt.Appendf(l.buf, format, args...)
	if len(l.buf) == 0 || l.buf[len(l.buf)-1] != '\n' {
		l.buf = append(l.buf, '\n')
	}

	n, err := l.file.Write(l.buf)
	if err != nil {
		return
	}
	l.size += int64(n)
	if l.size >= l.maxRotSize {
		l.rotate()
	}
}

func (l *logger) rotate() {
	l.file.Sync()
	l.file.Close()
	l.file = nil

	ts := time.Now().Format("20060102-150405")
	archivePath := filepath.Join(l.dir, fmt.Sprintf("engine-%s.log.gz", ts))

	if err := compressFile(l.path, archivePath); err == nil {
		os.Truncate(l.path, 0)
	} else {
		os.Truncate(l.path, 0)
	}
	l.pruneArchives()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	l.file = f
	l.size = 0
}

func (l *logger) pruneArchives() {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return
	}
	var archives []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "engine-") && strings.HasSuffix(name, ".log.gz") {
			archives = append(archives, name)
		}
	}
	if len(archives) <= maxBackups {
		return
	}
	sort.Strings(archives)
	for _, name := range archives[:len(archives)-maxBackups] {
		os.Remove(filepath.Join(l.dir, name))
	}
}

func (l *logger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.file != nil {
		l.file.Sync()
		l.file.Close()
		l.file = nil
	}
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	gw, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
