package logging

import (
	"encoding/json"
	"io"
	"maps"
	"os"
	"sync"
	"time"
)

// StdoutLogger writes one JSON object per line. The zero value logs at info
// level to stdout.
type StdoutLogger struct {
	Level Level
	Out   io.Writer

	mu sync.Mutex
}

func NewStdoutLogger(level Level) *StdoutLogger {
	return &StdoutLogger{Level: level, Out: os.Stdout}
}

func (l *StdoutLogger) log(level Level, msg string, fields map[string]any) {
	if level < l.Level {
		return
	}

	entry := make(map[string]any, len(fields)+3)
	maps.Copy(entry, fields)
	entry["level"] = level.String()
	entry["msg"] = msg
	entry["time"] = time.Now().UTC().Format(time.RFC3339)

	for k, v := range entry {
		if err, ok := v.(error); ok {
			entry[k] = err.Error()
		}
	}

	b, _ := json.Marshal(entry)
	b = append(b, '\n')

	out := l.Out
	if out == nil {
		out = os.Stdout
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	out.Write(b)
}

func (l *StdoutLogger) Debug(msg string, fields map[string]any) {
	l.log(LevelDebug, msg, fields)
}

func (l *StdoutLogger) Info(msg string, fields map[string]any) {
	l.log(LevelInfo, msg, fields)
}

func (l *StdoutLogger) Warn(msg string, fields map[string]any) {
	l.log(LevelWarn, msg, fields)
}

func (l *StdoutLogger) Error(msg string, fields map[string]any) {
	l.log(LevelError, msg, fields)
}
