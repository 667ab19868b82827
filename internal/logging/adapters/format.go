package adapters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"letraz-harvester/internal/logging/types"
)

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorReset  = "\033[0m"
)

// formatEntry renders an entry as a single line in the requested format
func formatEntry(entry *types.LogEntry, format string, colorized bool) (string, error) {
	if strings.EqualFold(format, "text") {
		return formatText(entry, colorized), nil
	}
	return formatJSON(entry)
}

func formatJSON(entry *types.LogEntry) (string, error) {
	logData := make(map[string]interface{}, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		logData[k] = v
	}
	logData["level"] = entry.Level.String()
	logData["message"] = entry.Message
	logData["time"] = entry.Timestamp.Format(time.RFC3339)

	data, err := json.Marshal(logData)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatText(entry *types.LogEntry, colorized bool) string {
	level := strings.ToUpper(entry.Level.String())
	if colorized {
		level = colorizeLevel(level)
	}

	var b strings.Builder
	b.WriteString(entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteString(" [")
	b.WriteString(level)
	b.WriteString("] ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}

	return b.String()
}

func colorizeLevel(level string) string {
	switch level {
	case "DEBUG":
		return colorGray + level + colorReset
	case "INFO":
		return colorBlue + level + colorReset
	case "WARN":
		return colorYellow + level + colorReset
	case "ERROR", "FATAL":
		return colorRed + level + colorReset
	default:
		return level
	}
}
