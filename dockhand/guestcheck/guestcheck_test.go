package guestcheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		release string
		want    Generation
	}{
		{"5.15.133.1-microsoft-standard-WSL2", WSL2},
		{"6.6.36.6-microsoft-standard-WSL2+", WSL2},
		// Windows 10 2004 ships a WSL2 kernel without the WSL2 marker.
		{"4.19.128-microsoft-standard", WSL2},
		{"5.10.16.3-microsoft-standard", WSL2},
		{"4.4.0-19041-Microsoft", WSL1},
		{"6.5.0-44-generic", NotWSL},
		{"", NotWSL},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, Classify(tt.release), "release %q", tt.release)
	}
}

func TestClassifyCustomKernelViaInterop(t *testing.T) {
	interop := filepath.Join(t.TempDir(), "WSLInterop")

	// An unmarked release outside WSL stays unclassified.
	assert.Equal(t, NotWSL, classifyAt("5.15.90.4", interop))

	require.NoError(t, os.WriteFile(interop, []byte("enabled\n"), 0o644))
	assert.Equal(t, WSL2, classifyAt("5.15.90.4", interop))

	// The fallback never upgrades a kernel the release already identifies.
	assert.Equal(t, WSL1, classifyAt("4.4.0-19041-Microsoft", interop))
}
