package tui_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roomservice/internal/presentation/tui"
)

func TestPlainRenderer(t *testing.T) {
	render, err := tui.PlainRenderer()
	require.NoError(t, err)

	out, err := render("Welcome back.\n\n1. **select_category** <category>\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back.")
	assert.Contains(t, out, "select_category")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}

func TestIsTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, tui.IsTerminal(f))

	render, err := tui.NewRenderer(f)
	require.NoError(t, err)
	assert.NotNil(t, render)
}
