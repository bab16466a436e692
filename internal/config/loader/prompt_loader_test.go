package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
default: short
templates:
  - name: short
    user: "Return {{ .Example }}"
    fields:
      - name: disease
      - name: confidence
        type: number
        example: "50"
    required: [disease]
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestPromptLoaderLoadsCatalog(t *testing.T) {
	l, err := newPromptLoader(writeCatalog(t, catalogYAML), false)
	require.NoError(t, err)

	snap := l.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, "short", l.Catalog().Default().Name)

	r, err := l.Catalog().Default().Render()
	require.NoError(t, err)
	assert.Contains(t, r.User, `"confidence": 50`)
}

func TestPromptLoaderKeepsPreviousOnBadReload(t *testing.T) {
	path := writeCatalog(t, catalogYAML)
	l, err := newPromptLoader(path, false)
	require.NoError(t, err)

	var notified int
	l.Subscribe(func(PromptSnapshot) { notified++ })

	require.NoError(t, os.WriteFile(path, []byte("templates: []\n"), 0o644))
	require.NoError(t, l.v.ReadInConfig())
	assert.Error(t, l.reload())
	assert.Equal(t, "short", l.Catalog().Default().Name)
	assert.Equal(t, int64(1), l.Snapshot().Version)

	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))
	require.NoError(t, l.v.ReadInConfig())
	require.NoError(t, l.reload())
	l.notify()
	assert.Equal(t, 1, notified)
	assert.Equal(t, int64(2), l.Snapshot().Version)
}

func TestPromptLoaderRequiresPath(t *testing.T) {
	_, err := NewPromptLoader(" ")
	assert.Error(t, err)

	_, err = NewPromptLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
