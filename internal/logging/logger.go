// Package logging is a small tagged, leveled logger. Each package derives its
// own logger with a tag, and levels are set per tag through the LOGLEVEL
// environment variable or Configure.
package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Destination shared by a root logger and everything derived from it, so lines
// from different goroutines never interleave.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

type Logger struct {
	tag string

	// Level used when no directive names this tag. Without one, the default
	// level applies.
	fallback    Level
	hasFallback bool

	level atomic.Int32
	out   *sink
}

var (
	registryMu sync.Mutex
	registry   []*Logger
)

func newLogger(tag string, fallback Level, hasFallback bool, out *sink) *Logger {
	log := &Logger{tag: tag, fallback: fallback, hasFallback: hasFallback, out: out}
	log.level.Store(int32(log.determineLevel()))
	registryMu.Lock()
	registry = append(registry, log)
	registryMu.Unlock()
	return log
}

// Re-evaluate the level of every logger after the directives changed.
func relevel() {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, log := range registry {
		log.level.Store(int32(log.determineLevel()))
	}
}

// New returns a root logger writing to out.
func New(tag string, out io.Writer) *Logger {
	return newLogger(tag, 0, false, &sink{w: out})
}

// DefaultLogger writes to stderr. Packages derive from it with WithTag.
var DefaultLogger = newLogger("", 0, false, &sink{w: os.Stderr})

// SetDestination redirects this logger and every logger sharing its output.
func (log *Logger) SetDestination(out io.Writer) {
	log.out.mu.Lock()
	log.out.w = out
	log.out.mu.Unlock()
}

// WithTag derives a logger with the given tag, sharing this logger's output.
func (log *Logger) WithTag(tag string) *Logger {
	return newLogger(tag, log.fallback, log.hasFallback, log.out)
}

// WithDefaultLevel derives a logger that logs at level unless a directive
// says otherwise.
func (log *Logger) WithDefaultLevel(level Level) *Logger {
	return newLogger(log.tag, level, true, log.out)
}

func (log *Logger) Tag() string {
	return log.tag
}

func (log *Logger) Level() Level {
	return Level(log.level.Load())
}

// Enabled reports whether a message at the given level would be written. Use
// it to skip building expensive arguments.
func (log *Logger) Enabled(level Level) bool {
	return level <= log.Level()
}

var linePool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 256)
		return &b
	},
}

// Log writes one line at the given level, attributed to the caller calldepth
// frames above Log's caller.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if !log.Enabled(level) {
		return
	}

	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}

	bp := linePool.Get().(*[]byte)
	b := (*bp)[:0]
	b = append(b, prefixColor.Sprint(time.Now().Format(timestampFormat))...)
	b = append(b, ' ')
	b = append(b, level.color().Sprintf("%c/%s", level.letter(), log.tag)...)
	b = append(b, prefixColor.Sprintf("[%s:%d] ", filepath.Base(file), line)...)
	b = fmt.Appendf(b, format, a...)
	if len(b) == 0 || b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}

	// Nowhere to report a failed write.
	log.out.mu.Lock()
	log.out.w.Write(b)
	log.out.mu.Unlock()

	*bp = b
	linePool.Put(bp)
}

func (log *Logger) Error(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
}

func (log *Logger) Warn(format string, a ...interface{}) {
	log.Log(Warn, 1, format, a...)
}

func (log *Logger) Info(format string, a ...interface{}) {
	log.Log(Info, 1, format, a...)
}

func (log *Logger) Debug(format string, a ...interface{}) {
	log.Log(Debug, 1, format, a...)
}

// Trace logs at numeric level n, from 2 (least verbose) to 9.
func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}

// Dump logs a message followed by a hex dump of buf at numeric level n.
func (log *Logger) Dump(n int, buf []byte, format string, a ...interface{}) {
	if !log.Enabled(Level(n)) {
		return
	}
	log.Log(Level(n), 1, "%s\n%s", fmt.Sprintf(format, a...), hex.Dump(buf))
}
