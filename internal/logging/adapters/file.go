package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"letraz-harvester/internal/logging/types"
)

// FileAdapter implements the LogAdapter interface for file output with size rotation
type FileAdapter struct {
	name        string
	config      FileConfig
	currentFile *os.File
	currentSize int64
	mu          sync.Mutex
}

// FileConfig represents configuration for the file adapter
type FileConfig struct {
	FilePath   string `yaml:"path"`        // path to log file
	Format     string `yaml:"format"`      // json or text
	MaxSize    int64  `yaml:"max_size"`    // bytes before rotation, 0 disables rotation
	MaxBackups int    `yaml:"max_backups"` // rotated files kept
}

// NewFileAdapter creates a new file adapter, creating parent directories as needed
func NewFileAdapter(name string, config FileConfig) (*FileAdapter, error) {
	if config.MaxBackups <= 0 {
		config.MaxBackups = 5
	}
	if config.Format == "" {
		config.Format = "json"
	}

	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	adapter := &FileAdapter{name: name, config: config}
	if err := adapter.openFile(); err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return adapter, nil
}

// Write writes a log entry to the file
func (a *FileAdapter) Write(entry *types.LogEntry) error {
	output, err := formatEntry(entry, a.config.Format, false)
	if err != nil {
		return fmt.Errorf("failed to format log entry: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentFile == nil {
		return fmt.Errorf("log file %s is closed", a.config.FilePath)
	}

	line := output + "\n"
	if a.config.MaxSize > 0 && a.currentSize+int64(len(line)) > a.config.MaxSize && a.currentSize > 0 {
		if err := a.rotate(); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	n, err := a.currentFile.WriteString(line)
	if err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}
	a.currentSize += int64(n)

	return nil
}

// Close closes the current file
func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentFile == nil {
		return nil
	}
	err := a.currentFile.Close()
	a.currentFile = nil
	return err
}

// Health checks the log file is still open and writable
func (a *FileAdapter) Health() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentFile == nil {
		return fmt.Errorf("log file %s is closed", a.config.FilePath)
	}
	if _, err := a.currentFile.Stat(); err != nil {
		return fmt.Errorf("log file %s unavailable: %w", a.config.FilePath, err)
	}
	return nil
}

// Name returns the name of the adapter
func (a *FileAdapter) Name() string {
	return a.name
}

func (a *FileAdapter) openFile() error {
	file, err := os.OpenFile(a.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	a.currentFile = file
	a.currentSize = info.Size()
	return nil
}

// rotate renames the current file with a timestamp suffix and prunes old backups.
// Caller holds a.mu.
func (a *FileAdapter) rotate() error {
	if err := a.currentFile.Close(); err != nil {
		return err
	}
	a.currentFile = nil

	backup := fmt.Sprintf("%s.%s", a.config.FilePath, time.Now().Format("20060102-150405.000"))
	if err := os.Rename(a.config.FilePath, backup); err != nil {
		return err
	}

	if err := a.openFile(); err != nil {
		return err
	}

	return a.pruneBackups()
}

func (a *FileAdapter) pruneBackups() error {
	matches, err := filepath.Glob(a.config.FilePath + ".*")
	if err != nil {
		return err
	}

	backups := matches[:0]
	for _, m := range matches {
		if !strings.HasSuffix(m, ".lock") {
			backups = append(backups, m)
		}
	}
	if len(backups) <= a.config.MaxBackups {
		return nil
	}

	// timestamp suffixes sort chronologically
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-a.config.MaxBackups] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
