package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grandtree.dev/internal/sim/tuning"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "/christmas-tree", cfg.WalinePath)
	assert.False(t, bool(cfg.EnableGestureControl), "gesture control is opt-in")
	assert.True(t, cfg.ShowOthersBlessings.Enabled())
	assert.False(t, cfg.WalineConfigured())

	base := tuning.Defaults()
	assert.Equal(t, base, cfg.Apply(base))
}

func TestFlags(t *testing.T) {
	cases := map[string]bool{"true": true, " true ": true, "TRUE": false, "1": false, "yes": false, "": false}
	for in, want := range cases {
		cfg, err := LoadFrom(map[string]string{"GRANDTREE_ENABLE_GESTURE_CONTROL": in})
		require.NoError(t, err)
		assert.Equal(t, want, bool(cfg.EnableGestureControl), "%q", in)
	}

	cfg, err := LoadFrom(map[string]string{"GRANDTREE_SHOW_OTHERS_BLESSINGS": "false"})
	require.NoError(t, err)
	assert.False(t, cfg.ShowOthersBlessings.Enabled())
	cfg, err = LoadFrom(map[string]string{"GRANDTREE_SHOW_OTHERS_BLESSINGS": "no"})
	require.NoError(t, err)
	assert.True(t, cfg.ShowOthersBlessings.Enabled())
}

func TestDensityOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"GRANDTREE_FOLIAGE_DENSITY":     "lots",
		"GRANDTREE_PHOTO_DENSITY":       "-4",
		"GRANDTREE_ELEMENT_DENSITY":     "90",
		"GRANDTREE_LIGHT_DENSITY":       "120px",
		"GRANDTREE_ENVELOPE_DENSITY":    "12",
		"GRANDTREE_TREE_ROTATION_SPEED": "1.5x",
	})
	require.NoError(t, err)

	got := cfg.Apply(tuning.Defaults())
	assert.Equal(t, 20000, got.Density.Desktop.Foliage, "non-numeric falls back")
	assert.Equal(t, 0, got.Density.Desktop.Ornaments, "negative clamps to zero")
	assert.Equal(t, 90, got.Density.Desktop.Elements)
	assert.Equal(t, 120, got.Density.Desktop.Lights, "leading digits are used")
	assert.Equal(t, 12, got.Greetings.Envelopes)
	assert.Equal(t, float32(1.5), got.Camera.RotationSpeed)
	assert.Equal(t, tuning.Defaults().Density.Mobile, got.Density.Mobile)
}

func TestLeadingNumber(t *testing.T) {
	cases := []struct {
		in       string
		fraction bool
		want     string
	}{
		{"42", false, "42"},
		{"  -7abc", false, "-7"},
		{"3.9", false, "3"},
		{"3.9", true, "3.9"},
		{".5", true, ".5"},
		{"-", false, ""},
		{"abc", true, ""},
		{"", false, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, leadingNumber(tc.in, tc.fraction), "%q", tc.in)
	}
}

func TestWalineConfigured(t *testing.T) {
	assert.True(t, Config{WalineServerURL: "https://waline.example.org"}.WalineConfigured())
	assert.False(t, Config{WalineServerURL: "https://your-waline-server.example.com"}.WalineConfigured())
}
