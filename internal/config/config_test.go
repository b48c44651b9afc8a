package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-bridge/internal/printing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeConfig(t, "[auth]\napi_key = \"k\"\n")
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.Auth.ApiKey)
	assert.Equal(t, 48, cfg.Printer.CharWidth)
	assert.Equal(t, 17800, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Barcode.ModuleWidth)
	assert.Equal(t, 20, cfg.Barcode.ErrorCorrection)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadReadsPrinterSection(t *testing.T) {
	p := writeConfig(t, `
[printer]
profile = "TM-T20"
char_width = 42

[barcode]
module_width = 4
rows = 10
truncated = true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Printer.CharWidth)

	req := cfg.Barcode.Request("id")
	assert.Equal(t, printing.BarcodeRequest{
		Content:         "id",
		ModuleWidth:     4,
		Rows:            10,
		ErrorCorrection: 20,
		Options:         printing.Truncated,
	}, req)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "negative width", body: "[printer]\nchar_width = -4\n"},
		{name: "module width", body: "[barcode]\nmodule_width = 9\n"},
		{name: "rows", body: "[barcode]\nrows = 2\n"},
		{name: "error correction", body: "[barcode]\nerror_correction = 41\n"},
		{name: "port", body: "[server]\nport = 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_CHAR_WIDTH", "32")
	t.Setenv("BRIDGE_API_KEY", "from-env")
	cfg, err := Load(writeConfig(t, "[printer]\nchar_width = 48\n"))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Printer.CharWidth)
	assert.Equal(t, "from-env", cfg.Auth.ApiKey)
}

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 48, cfg.Printer.CharWidth)
	assert.FileExists(t, p)

	_, created, err = LoadOrCreate(p)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.toml")
	var cfg Config
	cfg.Printer.CharWidth = 56
	cfg.Auth.ApiKey = "secret"
	require.NoError(t, Save(p, &cfg))

	loaded, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 56, loaded.Printer.CharWidth)
	assert.Equal(t, "secret", loaded.Auth.ApiKey)
}
