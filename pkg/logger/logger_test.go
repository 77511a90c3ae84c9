package logger

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nalanda/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"warn by default", &config.LoggingConfig{}, false},
		{"debug", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "n.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf))

	l.WithField("course", "Physics").WithError(errors.New("boom")).Warn("course failed")
	out := buf.String()
	assert.Contains(t, out, `"course":"Physics"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"message":"course failed"`)

	buf.Reset()
	l.InfoWithFields("written", Fields{"bytes": int64(12), "skipped": false})
	assert.Contains(t, buf.String(), `"bytes":12`)
	assert.Contains(t, buf.String(), `"skipped":false`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestLogRequest(t *testing.T) {
	tl := NewTestLogger()
	req, _ := http.NewRequest(http.MethodHead, "http://portal/mod/resource/view.php?id=1", nil)

	LogRequest(tl, req, 200, 15*time.Millisecond)
	LogRequest(tl, req, 404, time.Millisecond)

	require.Len(t, tl.GetMessages(), 2)
	assert.Equal(t, "DEBUG", tl.GetMessages()[0].Level)
	assert.Equal(t, "WARN", tl.GetMessages()[1].Level)
	assert.Equal(t, 404, tl.GetMessages()[1].Fields["status"])
}

func TestTestLoggerSharesCapture(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("section", "Lectures").WithError(errors.New("no filename"))
	child.Warn("link skipped")

	msgs := tl.GetMessagesByLevel("WARN")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Lectures", msgs[0].Fields["section"])
	assert.EqualError(t, msgs[0].Error, "no filename")
	assert.True(t, tl.HasMessage("skipped"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.WithFields(Fields{"a": 1}).WithError(errors.New("x")).Error("ignored")
	})
}
