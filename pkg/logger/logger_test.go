package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(Config{Level: "chatty", Format: "console"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)

	log, err := New(Config{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNamedLoggerCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).Named("tracker")

	log.Info("cycle completed", String("airport", "OSL"), Int("flights", 3))
	log.With(String("flight", "SK4167")).Warn("no match", Error(errors.New("missing")))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "tracker", entries[0].LoggerName)
	assert.Equal(t, "OSL", entries[0].ContextMap()["airport"])
	assert.EqualValues(t, 3, entries[0].ContextMap()["flights"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "SK4167", entries[1].ContextMap()["flight"])
	assert.Equal(t, "missing", entries[1].ContextMap()["error"])
}
