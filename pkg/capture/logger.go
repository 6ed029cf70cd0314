package capture

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// Config enables the capture file.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Renderer renders a value for the capture. The manager satisfies it.
type Renderer interface {
	GetValueAsString(vid zwave.ValueID) (string, error)
}

// FileLogger appends notifications to a capture file. It is safe for
// concurrent use; register FileLogger.Watch with the logger as context.
type FileLogger struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *cbor.Encoder
	session  string
	renderer Renderer
	closed   bool
	written  uint64
}

// NewFileLogger opens path for appending. Each logger tags its records
// with a fresh session id. renderer may be nil.
func NewFileLogger(path string, renderer Renderer) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:     f,
		encoder:  encMode.NewEncoder(f),
		session:  uuid.NewString(),
		renderer: renderer,
	}, nil
}

// Session returns the id stamped on this logger's records.
func (l *FileLogger) Session() string { return l.session }

// Watch records n.
func (l *FileLogger) Watch(n zwave.Notification, _ any) {
	var reading string
	if l.renderer != nil && (n.Type == zwave.NotificationValueChanged || n.Type == zwave.NotificationValueRefreshed) {
		reading, _ = l.renderer.GetValueAsString(n.ValueID)
	}
	rec := NewRecord(l.session, n, reading)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if err := l.encoder.Encode(rec); err != nil {
		log.Warn().Err(err).Str("component", "capture").Msg("Writing capture record")
		return
	}
	l.written++
}

// Written returns the number of records written.
func (l *FileLogger) Written() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Close closes the file. Later notifications are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}
