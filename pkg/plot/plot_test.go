package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traces() []Trace {
	s := core.Series{
		Times:    []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0},
		Values:   []float64{0, 0, 5, 9, 0, 0},
		PadLeft:  2,
		PadRight: 2,
	}
	return []Trace{{Name: "TIC", Series: s}, {Name: "m/z 195.0877", Series: s}}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tic.png")
	require.NoError(t, SavePNG(path, traces(), Options{Title: "sample"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "expected a PNG header")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, traces(), Options{Title: "sample", Full: true}))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "m/z 195.0877")
}

func TestSaveHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tic.html")
	require.NoError(t, SaveHTML(path, traces(), Options{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestNoTraces(t *testing.T) {
	assert.ErrorIs(t, SavePNG(filepath.Join(t.TempDir(), "x.png"), nil, Options{}), ErrNoTraces)
	assert.ErrorIs(t, WriteHTML(&bytes.Buffer{}, nil, Options{}), ErrNoTraces)
}
