package logging

import (
	"fmt"
	"time"

	"letraz-harvester/internal/logging/adapters"
	"letraz-harvester/internal/logging/types"
)

// AdapterFactory creates logging adapters based on configuration
type AdapterFactory struct{}

// NewAdapterFactory creates a new adapter factory
func NewAdapterFactory() *AdapterFactory {
	return &AdapterFactory{}
}

// CreateAdapter creates a logging adapter based on the provided configuration
func (f *AdapterFactory) CreateAdapter(adapterConfig types.AdapterConfig) (types.LogAdapter, error) {
	switch adapterConfig.Type {
	case "stdout":
		return adapters.NewStdoutAdapter(adapterConfig.Name, adapters.StdoutConfig{
			Format:    getStringOption(adapterConfig.Options, "format", "json"),
			Colorized: getBoolOption(adapterConfig.Options, "colorize", false),
		}), nil
	case "file":
		return f.createFileAdapter(adapterConfig)
	case "betterstack":
		return f.createBetterstackAdapter(adapterConfig)
	case "memory":
		return adapters.NewMemoryAdapter(adapterConfig.Name), nil
	default:
		return nil, fmt.Errorf("unsupported adapter type: %s", adapterConfig.Type)
	}
}

func (f *AdapterFactory) createFileAdapter(adapterConfig types.AdapterConfig) (types.LogAdapter, error) {
	config := adapters.FileConfig{
		FilePath:   getStringOption(adapterConfig.Options, "path", ""),
		Format:     getStringOption(adapterConfig.Options, "format", "json"),
		MaxSize:    getInt64Option(adapterConfig.Options, "max_size", 0),
		MaxBackups: getIntOption(adapterConfig.Options, "max_backups", 5),
	}

	if config.FilePath == "" {
		return nil, fmt.Errorf("path is required for file adapter")
	}

	return adapters.NewFileAdapter(adapterConfig.Name, config)
}

func (f *AdapterFactory) createBetterstackAdapter(adapterConfig types.AdapterConfig) (types.LogAdapter, error) {
	config := adapters.BetterstackConfig{
		SourceToken: getStringOption(adapterConfig.Options, "source_token", ""),
		Endpoint:    getStringOption(adapterConfig.Options, "endpoint", "https://in.logs.betterstack.com"),
		MaxRetries:  getIntOption(adapterConfig.Options, "max_retries", 3),
		Timeout:     getDurationOption(adapterConfig.Options, "timeout", 10*time.Second),
		UserAgent:   getStringOption(adapterConfig.Options, "user_agent", "letraz-harvester/1.0"),
	}

	return adapters.NewBetterstackAdapter(adapterConfig.Name, config)
}

func getStringOption(options map[string]interface{}, key string, defaultValue string) string {
	if str, ok := options[key].(string); ok && str != "" {
		return str
	}
	return defaultValue
}

func getIntOption(options map[string]interface{}, key string, defaultValue int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

func getInt64Option(options map[string]interface{}, key string, defaultValue int64) int64 {
	switch v := options[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return defaultValue
}

func getBoolOption(options map[string]interface{}, key string, defaultValue bool) bool {
	if b, ok := options[key].(bool); ok {
		return b
	}
	return defaultValue
}

func getDurationOption(options map[string]interface{}, key string, defaultValue time.Duration) time.Duration {
	if str, ok := options[key].(string); ok {
		if duration, err := time.ParseDuration(str); err == nil {
			return duration
		}
	}
	return defaultValue
}
