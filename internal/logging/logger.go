package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fatih/color"
)

const timestampFormat = "2006-01-02 15:04:05.000"

type Logger struct {
	// Messages more verbose than this level are discarded.
	Level

	// Tag identifying the package or component that logs.
	Tag string

	out io.Writer

	// Shared by all derived loggers so that lines never interleave.
	mu *sync.Mutex
}

// DefaultLogger writes to stderr. Packages derive their own logger from it:
//
//	var log = logging.DefaultLogger.WithTag("publish")
var DefaultLogger = &Logger{defaultLevel, "", os.Stderr, new(sync.Mutex)}

var timestampColor = color.New(color.FgWhite)

// SetDestination redirects this logger, and loggers derived from it
// afterwards, to out.
func (log *Logger) SetDestination(out io.Writer) {
	log.mu.Lock()
	log.out = out
	log.mu.Unlock()
}

// WithTag derives a logger with the given tag. The level comes from a
// matching LOGLEVEL directive, or else from the parent.
func (log *Logger) WithTag(tag string) *Logger {
	return &Logger{determineLevel(tag, log.Level), tag, log.out, log.mu}
}

// WithLevel derives a logger that logs at exactly the given level.
func (log *Logger) WithLevel(level Level) *Logger {
	return &Logger{level, log.Tag, log.out, log.mu}
}

// Enabled reports whether messages at level would be written.
func (log *Logger) Enabled(level Level) bool {
	return level <= log.Level
}

type buffer []byte

func (b *buffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

var bufPool = sync.Pool{
	New: func() interface{} {
		return make(buffer, 0, 256)
	},
}

// Log a message at the given level. Include the file and line number from
// 'calldepth' steps up the call stack.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if !log.Enabled(level) {
		return
	}

	buf := bufPool.Get().(buffer)
	defer func() { bufPool.Put(buf[:0]) }()

	timestampColor.Fprint(&buf, time.Now().Format(timestampFormat))

	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}
	level.color().Fprintf(&buf, " %c/%s[%s:%d] ", level.letter(), log.Tag, filepath.Base(file), line)

	fmt.Fprintf(&buf, format, a...)
	if n := len(format); n == 0 || format[n-1] != '\n' {
		buf = append(buf, '\n')
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	if _, err := log.out.Write(buf); err != nil {
		panic(fmt.Sprintf("Failed to log to %v: %v", log.out, err))
	}
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

func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}
