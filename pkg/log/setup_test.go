package log

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Defaults(t *testing.T) {
	logger := Setup("", "")
	require.NotNil(t, logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestSetup_Level(t *testing.T) {
	logger := Setup("debug", "text")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestSetup_InvalidLevelFallsBack(t *testing.T) {
	logger := Setup("nope", "text")
	logger.SetOutput(io.Discard)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestSetup_JSONFormat(t *testing.T) {
	logger := Setup("info", "json")
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
