package hclconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_Load_DecodesAllBlocks(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeConfig(t, "console.hcl", `
		server {
			base_url = "http://localhost:8020/"
			timeout  = "45s"
		}
		logging {
			level  = "debug"
			format = "json"
		}
		defaults {
			query_mode = "local"
		}
	`)

	// --- Act ---
	model, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, model.Server)
	require.Equal(t, "http://localhost:8020", model.Server.BaseURL, "trailing slash is trimmed")
	require.Equal(t, 45*time.Second, model.Server.Timeout)
	require.Equal(t, "debug", model.Logging.Level)
	require.Equal(t, "json", model.Logging.Format)
	require.Equal(t, "local", model.Defaults.QueryMode)
}

func TestLoader_Load_InterpolatesEnvironment(t *testing.T) {
	// No t.Parallel: t.Setenv forbids it.

	// --- Arrange ---
	t.Setenv("LIGHTRAG_URL", "http://rag.internal:9000")
	path := writeConfig(t, "console.hcl", `
		server {
			base_url = env.LIGHTRAG_URL
		}
	`)

	// --- Act ---
	model, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "http://rag.internal:9000", model.Server.BaseURL)
}

func TestLoader_Load_MissingPathIsSkipped(t *testing.T) {
	t.Parallel()

	// --- Act ---
	model, err := NewLoader().Load(context.Background(), "does/not/exist.hcl")

	// --- Assert ---
	require.NoError(t, err)
	require.Nil(t, model.Server)
}

func TestLoader_Load_RejectsInvalidTimeout(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeConfig(t, "console.hcl", `
		server {
			base_url = "http://localhost:8020"
			timeout  = "soon"
		}
	`)

	// --- Act ---
	_, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.ErrorContains(t, err, "invalid server timeout")
}

func TestLoader_Load_RejectsInvalidLoggingLevel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeConfig(t, "console.hcl", `
		logging {
			level = "verbose"
		}
	`)

	// --- Act ---
	_, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.ErrorContains(t, err, "invalid logging level")
}

func TestLoader_Load_RejectsMalformedHCL(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeConfig(t, "broken.hcl", `server { base_url = `)

	// --- Act ---
	_, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.Error(t, err)
}

func TestLoader_Load_WalksDirectories(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`
		server { base_url = "http://first:1" }
	`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))

	// --- Act ---
	model, err := NewLoader().Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "http://first:1", model.Server.BaseURL)
}
