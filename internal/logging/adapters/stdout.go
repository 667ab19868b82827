package adapters

import (
	"fmt"
	"io"
	"os"
	"sync"

	"letraz-harvester/internal/logging/types"
)

// StdoutAdapter implements the LogAdapter interface for stdout output
type StdoutAdapter struct {
	name      string
	format    string
	colorized bool
	out       io.Writer
	mu        sync.Mutex
}

// StdoutConfig represents configuration for the stdout adapter
type StdoutConfig struct {
	Format    string `yaml:"format"`   // json or text
	Colorized bool   `yaml:"colorize"` // ANSI colours in text mode
	// Writer overrides os.Stdout
	Writer io.Writer `yaml:"-"`
}

// NewStdoutAdapter creates a new stdout adapter
func NewStdoutAdapter(name string, config StdoutConfig) *StdoutAdapter {
	out := config.Writer
	if out == nil {
		out = os.Stdout
	}
	return &StdoutAdapter{
		name:      name,
		format:    config.Format,
		colorized: config.Colorized,
		out:       out,
	}
}

// Write writes a log entry to stdout
func (a *StdoutAdapter) Write(entry *types.LogEntry) error {
	output, err := formatEntry(entry, a.format, a.colorized)
	if err != nil {
		return fmt.Errorf("failed to format log entry: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = fmt.Fprintln(a.out, output)
	return err
}

// Close is a no-op for stdout
func (a *StdoutAdapter) Close() error {
	return nil
}

// Health always succeeds for stdout
func (a *StdoutAdapter) Health() error {
	return nil
}

// Name returns the name of the adapter
func (a *StdoutAdapter) Name() string {
	return a.name
}
