package logging

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"letraz-harvester/internal/logging/types"
)

// sink holds the adapters and level shared by a logger and every logger derived from it
type sink struct {
	mu       sync.RWMutex
	adapters map[string]types.LogAdapter
	level    atomic.Int32
}

// MultiLogger is the main implementation of the Logger interface.
// Derived loggers (WithField, WithContext) write to the same adapters.
type MultiLogger struct {
	sink    *sink
	context context.Context
	fields  map[string]interface{}
}

// NewMultiLogger creates a new MultiLogger instance
func NewMultiLogger() *MultiLogger {
	s := &sink{adapters: make(map[string]types.LogAdapter)}
	s.level.Store(int32(InfoLevel))
	return &MultiLogger{
		sink:    s,
		context: context.Background(),
		fields:  make(map[string]interface{}),
	}
}

// Debug logs a debug message
func (l *MultiLogger) Debug(message string, fields ...map[string]interface{}) {
	l.Log(DebugLevel, message, fields...)
}

// Info logs an info message
func (l *MultiLogger) Info(message string, fields ...map[string]interface{}) {
	l.Log(InfoLevel, message, fields...)
}

// Warn logs a warning message
func (l *MultiLogger) Warn(message string, fields ...map[string]interface{}) {
	l.Log(WarnLevel, message, fields...)
}

// Error logs an error message
func (l *MultiLogger) Error(message string, fields ...map[string]interface{}) {
	l.Log(ErrorLevel, message, fields...)
}

// Fatal logs a fatal message and exits
func (l *MultiLogger) Fatal(message string, fields ...map[string]interface{}) {
	l.Log(FatalLevel, message, fields...)
	l.Close()
	os.Exit(1)
}

// Log logs a message at the specified level
func (l *MultiLogger) Log(level LogLevel, message string, fields ...map[string]interface{}) {
	if level < l.GetLevel() {
		return
	}

	entry := &types.LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
		Context:   l.context,
		Fields:    l.mergeFields(fields...),
	}

	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()

	for name, adapter := range l.sink.adapters {
		if err := adapter.Write(entry); err != nil {
			// stderr, not the logger, to avoid recursion
			fmt.Fprintf(os.Stderr, "logging adapter %s error: %v\n", name, err)
		}
	}
}

// WithContext returns a new logger with the specified context
func (l *MultiLogger) WithContext(ctx context.Context) Logger {
	return &MultiLogger{sink: l.sink, context: ctx, fields: l.copyFields()}
}

// WithField returns a new logger with the specified field
func (l *MultiLogger) WithField(key string, value interface{}) Logger {
	fields := l.copyFields()
	fields[key] = value
	return &MultiLogger{sink: l.sink, context: l.context, fields: fields}
}

// WithFields returns a new logger with the specified fields
func (l *MultiLogger) WithFields(fields map[string]interface{}) Logger {
	return &MultiLogger{sink: l.sink, context: l.context, fields: l.mergeFields(fields)}
}

// SetLevel sets the minimum log level
func (l *MultiLogger) SetLevel(level LogLevel) {
	l.sink.level.Store(int32(level))
}

// GetLevel returns the current log level
func (l *MultiLogger) GetLevel() LogLevel {
	return LogLevel(l.sink.level.Load())
}

// AddAdapter adds a new log adapter
func (l *MultiLogger) AddAdapter(adapter types.LogAdapter) error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	name := adapter.Name()
	if _, exists := l.sink.adapters[name]; exists {
		return fmt.Errorf("adapter %s already exists", name)
	}

	l.sink.adapters[name] = adapter
	return nil
}

// RemoveAdapter removes a log adapter
func (l *MultiLogger) RemoveAdapter(adapterName string) error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	adapter, exists := l.sink.adapters[adapterName]
	if !exists {
		return fmt.Errorf("adapter %s not found", adapterName)
	}

	if err := adapter.Close(); err != nil {
		return fmt.Errorf("failed to close adapter %s: %w", adapterName, err)
	}

	delete(l.sink.adapters, adapterName)
	return nil
}

// Health reports the first unhealthy adapter, if any
func (l *MultiLogger) Health() error {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()

	names := make([]string, 0, len(l.sink.adapters))
	for name := range l.sink.adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := l.sink.adapters[name].Health(); err != nil {
			return fmt.Errorf("adapter %s: %w", name, err)
		}
	}
	return nil
}

// Close closes all adapters
func (l *MultiLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	var errs []string
	for name, adapter := range l.sink.adapters {
		if err := adapter.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("adapter %s: %v", name, err))
		}
	}
	l.sink.adapters = make(map[string]types.LogAdapter)

	if len(errs) > 0 {
		return fmt.Errorf("failed to close adapters: %s", strings.Join(errs, ", "))
	}

	return nil
}

func (l *MultiLogger) copyFields() map[string]interface{} {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return fields
}

func (l *MultiLogger) mergeFields(additionalFields ...map[string]interface{}) map[string]interface{} {
	fields := l.copyFields()
	for _, fieldMap := range additionalFields {
		for k, v := range fieldMap {
			fields[k] = v
		}
	}
	return fields
}
