package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	logger, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
}

func TestNew_ConsoleDebug(t *testing.T) {
	logger, err := New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Level: "warn", Format: "json"}.Validate())
	assert.Error(t, Config{Level: "loud"}.Validate())
	assert.Error(t, Config{Format: "xml"}.Validate())
}
