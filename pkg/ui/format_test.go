package ui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormatRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	assert.Equal(t, FormatText, DetectFormat(os.Stdout))
}

func TestDetectFormatPlainForRegularFile(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, FormatText, DetectFormat(f))
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "text", FormatText.String())
	assert.Equal(t, "term", FormatTerminal.String())
	assert.Equal(t, "text", Format(99).String())
}
