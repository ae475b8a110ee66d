package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestNewWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "hub")
	l.WithField("channel", "#go").Infof("buffered %d", 3)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "hub", recs[0]["component"])
	assert.Equal(t, "#go", recs[0]["channel"])
	assert.Equal(t, "buffered 3", recs[0]["message"])
	assert.Equal(t, "info", recs[0]["level"])
}

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "hub")
	l.LogEvent("warn", "line_skipped", "", "bad terminator")
	l.LogEvent("bogus", "topic", "#go", "")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "warn", recs[0]["level"])
	assert.Equal(t, "line_skipped", recs[0]["event"])
	assert.Equal(t, "bad terminator", recs[0]["detail"])
	assert.NotContains(t, recs[0], "channel")

	assert.Equal(t, "info", recs[1]["level"])
	assert.Equal(t, "#go", recs[1]["channel"])
	assert.NotContains(t, recs[1], "detail")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "api").WithFields(map[string]interface{}{"conn": "abc", "kind": "Join"}).Warn("dropped")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "abc", recs[0]["conn"])
	assert.Equal(t, "Join", recs[0]["kind"])
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "circd.log", cfg.FilePath)
	assert.False(t, cfg.LogToFile)
}
