package logging

import (
	"fmt"
	"sync"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/logging/adapters"
)

// Manager manages the logging system initialization and configuration
type Manager struct {
	factory *AdapterFactory
	logger  *MultiLogger
}

// NewManager creates a new logging manager
func NewManager() *Manager {
	return &Manager{
		factory: NewAdapterFactory(),
		logger:  NewMultiLogger(),
	}
}

// Initialize initializes the logging system from configuration
func (m *Manager) Initialize(cfg *config.Config) error {
	m.logger.SetLevel(ParseLogLevel(cfg.Logging.Level))

	enabled := 0
	for _, ac := range cfg.Logging.Adapters {
		if !ac.Enabled {
			continue
		}

		adapter, err := m.factory.CreateAdapter(AdapterConfig{
			Name:    ac.Name,
			Type:    ac.Type,
			Enabled: ac.Enabled,
			Options: ac.Options,
		})
		if err != nil {
			return fmt.Errorf("failed to create adapter %s: %w", ac.Name, err)
		}

		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to add adapter %s: %w", ac.Name, err)
		}
		enabled++
	}

	if enabled == 0 {
		adapter := adapters.NewStdoutAdapter("stdout", adapters.StdoutConfig{Format: cfg.Logging.Format})
		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to add stdout adapter: %w", err)
		}
	}

	return nil
}

// GetLogger returns the initialized logger
func (m *Manager) GetLogger() Logger {
	return m.logger
}

// Close closes the logging system
func (m *Manager) Close() error {
	if m.logger != nil {
		return m.logger.Close()
	}
	return nil
}

var (
	globalManager *Manager
	globalMu      sync.Mutex
)

// InitializeLogging initializes the global logging system
func InitializeLogging(cfg *config.Config) error {
	manager := NewManager()
	if err := manager.Initialize(cfg); err != nil {
		return err
	}

	globalMu.Lock()
	globalManager = manager
	globalMu.Unlock()
	return nil
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		manager := NewManager()
		_ = manager.logger.AddAdapter(adapters.NewStdoutAdapter("fallback_stdout", adapters.StdoutConfig{Format: "json"}))
		globalManager = manager
	}
	return globalManager.GetLogger()
}

// CloseLogging closes the global logging system
func CloseLogging() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		return globalManager.Close()
	}
	return nil
}

// LogWithRequestID creates a logger carrying the request ID
func LogWithRequestID(requestID string) Logger {
	return GetGlobalLogger().WithField("request_id", requestID)
}

// ForComponent returns a logger tagged with the component name
func ForComponent(logger Logger, component string) Logger {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return logger.WithField("component", component)
}

// NewMemoryLogger returns a logger writing to an in-memory adapter, for tests
func NewMemoryLogger() (Logger, *adapters.MemoryAdapter) {
	mem := adapters.NewMemoryAdapter("memory")
	logger := NewMultiLogger()
	logger.SetLevel(DebugLevel)
	_ = logger.AddAdapter(mem)
	return logger, mem
}

// Nop returns a logger that discards everything
func Nop() Logger {
	logger := NewMultiLogger()
	logger.SetLevel(FatalLevel + 1)
	return logger
}
