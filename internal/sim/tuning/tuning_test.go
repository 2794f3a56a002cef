package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShippedTuning(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
	assert.Equal(t, 700*time.Millisecond, got.Gesture.BlockWindow())
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gesture:\n  pinch_ratio: 0.35\ndensity:\n  desktop:\n    lights: -5\n"), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.35, got.Gesture.PinchRatio)
	assert.Equal(t, 0.4, got.Gesture.MinScore)
	assert.Equal(t, 0, got.Density.Desktop.Lights, "negative counts clamp to zero")
	assert.Equal(t, 160, got.Density.Desktop.Ornaments)
	assert.Equal(t, 60, got.TickRateHz)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_rate_hz: [nope"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "tuning.yaml")
}

func TestNormalize(t *testing.T) {
	in := Tuning{TickRateHz: 1000, Reveal: Reveal{ShowMs: -1}, Gesture: Gesture{BlockWindowMs: -3}}
	got := in.Normalize()
	assert.Equal(t, 240, got.TickRateHz)
	assert.Equal(t, 0, got.Reveal.ShowMs)
	assert.Equal(t, 0, got.Gesture.BlockWindowMs)
	assert.Equal(t, Defaults().Tree, got.Tree)
	assert.Equal(t, 30, got.Greetings.RefreshSeconds)
}

func TestDensityFor(t *testing.T) {
	d := Defaults().Density
	assert.Equal(t, d.Mobile, d.For(820))
	assert.Equal(t, d.Mobile, d.For(375))
	assert.Equal(t, d.Desktop, d.For(821))
	assert.Equal(t, d.Desktop, d.For(0))
	assert.Equal(t, Counts{Foliage: 20000, Ornaments: 160, Elements: 180, Lights: 200}, d.Desktop.Max(d.Mobile))
}
