package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wzt1001/lightrag-on-aws/internal/config"
)

func TestResolveLogging_FileFillsUnsetFlags(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	appConfig := &Config{}
	model := &config.Model{Logging: &config.Logging{Level: "debug", Format: "json"}}

	// --- Act ---
	level, format := resolveLogging(appConfig, model)

	// --- Assert ---
	require.Equal(t, "debug", level)
	require.Equal(t, "json", format)
}

func TestResolveLogging_FlagsWinOverFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	appConfig := &Config{LogLevel: "error", LogFormat: "text"}
	model := &config.Model{Logging: &config.Logging{Level: "debug", Format: "json"}}

	// --- Act ---
	level, format := resolveLogging(appConfig, model)

	// --- Assert ---
	require.Equal(t, "error", level)
	require.Equal(t, "text", format)
}

func TestResolveLogging_DefaultsWhenNothingSet(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	appConfig := &Config{}

	// --- Act ---
	level, format := resolveLogging(appConfig, &config.Model{})

	// --- Assert ---
	require.Equal(t, "warn", level)
	require.Equal(t, "text", format)
}
