package adapters

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letraz-harvester/internal/logging/types"
)

func testEntry(msg string) *types.LogEntry {
	return &types.LogEntry{
		Level:     types.WarnLevel,
		Message:   msg,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Fields:    map[string]interface{}{"source": "naukri", "err": errors.New("boom")},
	}
}

func TestStdoutAdapterText(t *testing.T) {
	var buf bytes.Buffer
	a := NewStdoutAdapter("console", StdoutConfig{Format: "text", Writer: &buf})

	require.NoError(t, a.Write(testEntry("card failed")))
	line := buf.String()
	assert.Contains(t, line, "[WARN] card failed")
	// fields sorted by key
	assert.True(t, strings.Index(line, "err=boom") < strings.Index(line, "source=naukri"))
}

func TestStdoutAdapterJSON(t *testing.T) {
	var buf bytes.Buffer
	a := NewStdoutAdapter("console", StdoutConfig{Format: "json", Writer: &buf})
	require.NoError(t, a.Write(testEntry("card failed")))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "warn", decoded["level"])
	assert.Equal(t, "boom", decoded["err"])
	assert.Equal(t, "naukri", decoded["source"])
}

func TestFileAdapterRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "harvester.log")
	a, err := NewFileAdapter("file", FileConfig{FilePath: path, MaxSize: 200, MaxBackups: 1})
	require.NoError(t, err)
	defer a.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Write(testEntry(strings.Repeat("x", 80))))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, a.Health())

	backups, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileAdapterClosed(t *testing.T) {
	a, err := NewFileAdapter("file", FileConfig{FilePath: filepath.Join(t.TempDir(), "a.log")})
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.Error(t, a.Write(testEntry("late")))
	assert.Error(t, a.Health())
}

func TestBetterstackAdapter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body BetterstackLogEntry
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "card failed", body.Message)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	a, err := NewBetterstackAdapter("bs", BetterstackConfig{
		SourceToken:  "tok",
		Endpoint:     srv.URL,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, a.Write(testEntry("card failed")))
	assert.Equal(t, int32(2), calls.Load())
	assert.NoError(t, a.Health())
}

func TestBetterstackAdapterUnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a, err := NewBetterstackAdapter("bs", BetterstackConfig{SourceToken: "bad", Endpoint: srv.URL, MaxRetries: 3, RetryBackoff: time.Millisecond})
	require.NoError(t, err)

	assert.Error(t, a.Write(testEntry("x")))
	assert.Equal(t, int32(1), calls.Load())
	assert.Error(t, a.Health())
}

func TestBetterstackRequiresToken(t *testing.T) {
	_, err := NewBetterstackAdapter("bs", BetterstackConfig{})
	assert.Error(t, err)
}
