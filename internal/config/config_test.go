package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/stripcast/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 105, c.Pixels)
	assert.Equal(t, ":21324", c.Listen)
	require.Len(t, c.Sinks, 2)
	assert.Equal(t, KindSPI, c.Sinks[0].Kind)
	assert.Equal(t, &Sample{Start: 30, End: 75, Count: 15}, c.Sinks[1].Sample)
	require.NotNil(t, c.SecureToggle)
	assert.Equal(t, 7, c.SecureToggle.Group)
	assert.Equal(t, &Sample{Start: 40, End: 65, Count: 1}, c.SecureToggle.Sample)
}

func TestLoadOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stripcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pixels: 60
flush_hz: 120
sinks:
  - kind: opc
    addr: 127.0.0.1:7890
    channel: 1
  - kind: debug
    dir: dbg
    columns: 1024
secure_toggle:
  kind: hue
  group: 3
  sample: {start: 10, end: 20, count: 2}
hue:
  hub: 10.0.0.2
  username: me
  client_key: 00ff
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, c.Pixels)
	assert.Equal(t, 120.0, c.FlushHz)
	assert.Equal(t, 60.0, c.EffectHz)
	assert.Equal(t, ":21324", c.Listen)
	require.Len(t, c.Sinks, 2)
	assert.Equal(t, Sink{Kind: KindOPC, Addr: "127.0.0.1:7890", Channel: 1}, c.Sinks[0])
	assert.Equal(t, "00ff", c.Hue.ClientKey)
	assert.Equal(t, 3, c.SecureToggle.Group)
	require.NoError(t, c.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	c := Default()
	c.Pixels = 42
	c.SecureToggle.Sample = &Sample{Start: 0, End: 40, Count: 4}
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pixels: [1"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pixels", func(c *Config) { c.Pixels = 0 }},
		{"zero flush rate", func(c *Config) { c.FlushHz = 0 }},
		{"negative effect rate", func(c *Config) { c.EffectHz = -1 }},
		{"zero refresh", func(c *Config) { c.RefreshS = 0 }},
		{"no sinks", func(c *Config) { c.Sinks = nil }},
		{"unknown kind", func(c *Config) { c.Sinks[0].Kind = "serial" }},
		{"relay without addr", func(c *Config) { c.Sinks[1].Addr = "" }},
		{"sample past buffer", func(c *Config) { c.Sinks[1].Sample.End = 106 }},
		{"sample count too large", func(c *Config) { c.Sinks[1].Sample.Count = 46 }},
		{"empty sample range", func(c *Config) { c.Sinks[1].Sample.Start = 75 }},
		{"debug without dir", func(c *Config) { c.Sinks = append(c.Sinks, Sink{Kind: KindDebug, Columns: 8}) }},
		{"toggle not hue", func(c *Config) { c.SecureToggle.Kind = KindRelay }},
		{"hue without hub", func(c *Config) { c.Hue.Hub = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
