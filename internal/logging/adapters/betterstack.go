package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"letraz-harvester/internal/logging/types"
)

// BetterstackAdapter ships each entry to the Betterstack HTTP ingestion endpoint
type BetterstackAdapter struct {
	name          string
	config        BetterstackConfig
	httpClient    *http.Client
	mu            sync.Mutex
	healthy       bool
	lastError     error
	lastErrorTime time.Time
}

// BetterstackConfig represents configuration for the Betterstack adapter
type BetterstackConfig struct {
	SourceToken string        `yaml:"source_token"`
	Endpoint    string        `yaml:"endpoint"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	// RetryBackoff is multiplied by the attempt number between retries
	RetryBackoff time.Duration `yaml:"-"`
}

// BetterstackLogEntry represents a log entry in Betterstack format
type BetterstackLogEntry struct {
	Timestamp time.Time              `json:"dt"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// NewBetterstackAdapter creates a new Betterstack adapter
func NewBetterstackAdapter(name string, config BetterstackConfig) (*BetterstackAdapter, error) {
	if config.SourceToken == "" {
		return nil, fmt.Errorf("source_token is required for Betterstack adapter")
	}
	if config.Endpoint == "" {
		config.Endpoint = "https://in.logs.betterstack.com"
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "letraz-harvester/1.0"
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = time.Second
	}

	return &BetterstackAdapter{
		name:   name,
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		healthy: true,
	}, nil
}

// Write sends a log entry to Betterstack
func (a *BetterstackAdapter) Write(entry *types.LogEntry) error {
	fields := make(map[string]interface{}, len(entry.Fields))
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields[k] = v
	}

	payload, err := json.Marshal(BetterstackLogEntry{
		Timestamp: entry.Timestamp,
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Fields:    fields,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	sendErr := a.send(payload)

	a.mu.Lock()
	defer a.mu.Unlock()
	if sendErr != nil {
		a.healthy = false
		a.lastError = sendErr
		a.lastErrorTime = time.Now()
		return fmt.Errorf("failed to send log to Betterstack: %w", sendErr)
	}
	a.healthy = true
	a.lastError = nil
	return nil
}

// Close releases idle connections
func (a *BetterstackAdapter) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// Health returns the last delivery error, if any
func (a *BetterstackAdapter) Health() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.healthy {
		return fmt.Errorf("adapter unhealthy: %v (last error at %v)", a.lastError, a.lastErrorTime)
	}
	return nil
}

// Name returns the name of the adapter
func (a *BetterstackAdapter) Name() string {
	return a.name
}

func (a *BetterstackAdapter) send(payload []byte) error {
	var lastErr error
	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * a.config.RetryBackoff)
		}

		retry, err := a.post(payload)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

// post performs one delivery attempt and reports whether a failure is retryable
func (a *BetterstackAdapter) post(payload []byte) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.SourceToken)
	req.Header.Set("User-Agent", a.config.UserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return false, fmt.Errorf("unauthorized: invalid source token")
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	default:
		return false, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}
}
