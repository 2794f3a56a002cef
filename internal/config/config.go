// Package config reads deployment settings from GRANDTREE_* environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"grandtree.dev/internal/sim/tuning"
)

// Config holds environment overrides. Density and speed values that are unset or not
// numeric fall back to the tuning file.
type Config struct {
	WalineServerURL string `env:"GRANDTREE_WALINE_SERVER_URL"`
	WalinePath      string `env:"GRANDTREE_WALINE_PATH"        envDefault:"/christmas-tree"`

	EnableGestureControl Flag `env:"GRANDTREE_ENABLE_GESTURE_CONTROL"`
	EnableCommentReply   Flag `env:"GRANDTREE_ENABLE_COMMENT_REPLY"`

	FoliageDensity  Count `env:"GRANDTREE_FOLIAGE_DENSITY"`
	PhotoDensity    Count `env:"GRANDTREE_PHOTO_DENSITY"`
	EnvelopeDensity Count `env:"GRANDTREE_ENVELOPE_DENSITY"`
	ElementDensity  Count `env:"GRANDTREE_ELEMENT_DENSITY"`
	LightDensity    Count `env:"GRANDTREE_LIGHT_DENSITY"`

	TreeRotationSpeed Number `env:"GRANDTREE_TREE_ROTATION_SPEED"`

	ShowOthersBlessings OptOut `env:"GRANDTREE_SHOW_OTHERS_BLESSINGS"`
	ShowDebugButton     Flag   `env:"GRANDTREE_SHOW_DEBUG_BUTTON"`
	ShowSenderEmail     Flag   `env:"GRANDTREE_SHOW_SENDER_EMAIL"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses an explicit environment instead of the process one.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Apply overlays the environment onto t. Density overrides replace the desktop profile.
func (c Config) Apply(t tuning.Tuning) tuning.Tuning {
	d := &t.Density.Desktop
	d.Foliage = c.FoliageDensity.Or(d.Foliage)
	d.Ornaments = c.PhotoDensity.Or(d.Ornaments)
	d.Elements = c.ElementDensity.Or(d.Elements)
	d.Lights = c.LightDensity.Or(d.Lights)
	t.Greetings.Envelopes = c.EnvelopeDensity.Or(t.Greetings.Envelopes)
	t.Camera.RotationSpeed = float32(c.TreeRotationSpeed.Or(float64(t.Camera.RotationSpeed)))
	return t
}

// WalineConfigured reports whether a real greeting server is set.
func (c Config) WalineConfigured() bool {
	u := strings.TrimSpace(c.WalineServerURL)
	return u != "" && u != "https://your-waline-server.example.com"
}

// Flag is true only for the exact (trimmed) value "true".
type Flag bool

func (f *Flag) UnmarshalText(b []byte) error {
	*f = strings.TrimSpace(string(b)) == "true"
	return nil
}

// OptOut is true unless the value is exactly "false".
type OptOut struct {
	off bool
}

func (o *OptOut) UnmarshalText(b []byte) error {
	o.off = string(b) == "false"
	return nil
}

func (o OptOut) Enabled() bool { return !o.off }

// Count is an integer parsed from the leading digits of the value. Values with no
// leading number are treated as unset; negative values clamp to zero.
type Count struct {
	n   int
	set bool
}

func (c *Count) UnmarshalText(b []byte) error {
	s := leadingNumber(string(b), false)
	n, err := strconv.Atoi(s)
	if err != nil {
		*c = Count{}
		return nil
	}
	*c = Count{n: max(0, n), set: true}
	return nil
}

func (c Count) Or(def int) int {
	if !c.set {
		return def
	}
	return c.n
}

func (c Count) Set() bool { return c.set }

// Number is a float parsed from the leading numeric prefix of the value; no prefix means
// unset.
type Number struct {
	v   float64
	set bool
}

func (n *Number) UnmarshalText(b []byte) error {
	v, err := strconv.ParseFloat(leadingNumber(string(b), true), 64)
	if err != nil {
		*n = Number{}
		return nil
	}
	*n = Number{v: v, set: true}
	return nil
}

func (n Number) Or(def float64) float64 {
	if !n.set {
		return def
	}
	return n.v
}

// leadingNumber returns the longest prefix of s (after leading spaces) that looks like a
// signed integer, or a decimal when fraction is set.
func leadingNumber(s string, fraction bool) string {
	s = strings.TrimLeft(s, " \t\r\n")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if fraction && i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > i+1 || digits > 0 {
			digits += j - i - 1
			i = j
		}
	}
	if digits == 0 {
		return ""
	}
	return s[:i]
}
