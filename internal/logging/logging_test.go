package logging

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user-none/retrobackend/internal/env"
)

type hostLine struct {
	level env.LogLevel
	text  string
}

func capture() (*[]hostLine, env.LogFunc) {
	var lines []hostLine
	return &lines, func(level env.LogLevel, text string) {
		lines = append(lines, hostLine{level, text})
	}
}

func TestHostLoggerMapsLevels(t *testing.T) {
	lines, fn := capture()
	logger := NewHost("demo", log.DebugLevel, fn)

	logger.Debug("probing")
	logger.Info("loaded", "name", "game.sms")
	logger.Warn("odd sample count", "frame", 12)
	logger.Error("state rejected", "err", "size mismatch")

	require.Len(t, *lines, 4)
	assert.Equal(t, env.LogDebug, (*lines)[0].level)
	assert.Equal(t, env.LogInfo, (*lines)[1].level)
	assert.Equal(t, env.LogWarn, (*lines)[2].level)
	assert.Equal(t, env.LogError, (*lines)[3].level)

	assert.Equal(t, "[demo] loaded name=game.sms\n", (*lines)[1].text)
	assert.Equal(t, "[demo] state rejected err=\"size mismatch\"\n", (*lines)[3].text)
}

func TestHostLoggerRespectsLevel(t *testing.T) {
	lines, fn := capture()
	logger := NewHost("demo", log.WarnLevel, fn)

	logger.Info("hidden")
	logger.Warn("shown")

	require.Len(t, *lines, 1)
	assert.Contains(t, (*lines)[0].text, "shown")
}

func TestNewHostWithoutCallbackUsesStderr(t *testing.T) {
	logger := NewHost("demo", log.InfoLevel, nil)
	assert.NotNil(t, logger)
}

func TestHostLevel(t *testing.T) {
	assert.Equal(t, env.LogWarn, hostLevel("WARN"))
	assert.Equal(t, env.LogError, hostLevel("fatal"))
	assert.Equal(t, env.LogInfo, hostLevel("something"))
}
