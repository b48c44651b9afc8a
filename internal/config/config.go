package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"receipt-bridge/internal/printing"
)

type Config struct {
	Server struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"server"`

	Auth struct {
		ApiKey string `toml:"api_key"`
	} `toml:"auth"`

	Printer struct {
		Profile   string `toml:"profile"`
		CharWidth int    `toml:"char_width"`
	} `toml:"printer"`

	Barcode Barcode `toml:"barcode"`

	BLE struct {
		DeviceNameContains      string `toml:"device_name_contains"`
		PrinterAddress          string `toml:"printer_address"`
		ServiceUUID             string `toml:"service_uuid"`
		WriteCharacteristicUUID string `toml:"write_characteristic_uuid"`
		ChunkSize               int    `toml:"chunk_size"`
		WriteWithResponse       bool   `toml:"write_with_response"`
	} `toml:"ble"`

	Logging struct {
		FilePath       string `toml:"file_path"`
		Level          string `toml:"level"`
		ConsoleVerbose bool   `toml:"console_verbose"`
		MaxSizeMB      int    `toml:"max_size_mb"`
		MaxBackups     int    `toml:"max_backups"`
		MaxAgeDays     int    `toml:"max_age_days"`
		Compress       bool   `toml:"compress"`
	} `toml:"logging"`

	CORS struct {
		AllowOrigins        string `toml:"allow_origins"`
		AllowOriginPatterns string `toml:"allow_origin_patterns"`
	} `toml:"cors"`
}

// Barcode holds the PDF417 parameters used for list identifiers.
type Barcode struct {
	ModuleWidth      int  `toml:"module_width"`
	Rows             int  `toml:"rows"`
	HeightMultiplier int  `toml:"height_multiplier"`
	DataColumns      int  `toml:"data_columns"`
	ErrorCorrection  int  `toml:"error_correction"`
	Truncated        bool `toml:"truncated"`
}

func (b Barcode) Request(content string) printing.BarcodeRequest {
	opt := printing.Standard
	if b.Truncated {
		opt = printing.Truncated
	}
	return printing.BarcodeRequest{
		Content:          content,
		ModuleWidth:      b.ModuleWidth,
		Rows:             b.Rows,
		HeightMultiplier: b.HeightMultiplier,
		DataColumns:      b.DataColumns,
		ErrorCorrection:  b.ErrorCorrection,
		Options:          opt,
	}
}

func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrCreate loads path, writing a default file first when none exists.
// created reports whether the file was just written.
func LoadOrCreate(path string) (cfg *Config, created bool, err error) {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		var def Config
		if err := Save(path, &def); err != nil {
			return nil, false, fmt.Errorf("write default config: %w", err)
		}
		created = true
	}
	cfg, err = Load(path)
	return cfg, created, err
}

func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 17800
	}
	if cfg.Printer.Profile == "" {
		cfg.Printer.Profile = "TM-P80"
	}
	if cfg.Printer.CharWidth == 0 {
		cfg.Printer.CharWidth = 48
	}
	if cfg.Barcode.ModuleWidth == 0 {
		cfg.Barcode.ModuleWidth = 3
	}
	if cfg.Barcode.ErrorCorrection == 0 {
		cfg.Barcode.ErrorCorrection = 20
	}
	if cfg.BLE.ChunkSize == 0 {
		cfg.BLE.ChunkSize = 180
	}
	if cfg.BLE.PrinterAddress == "" {
		cfg.BLE.PrinterAddress = "66:22:B6:5C:5C:3C"
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = "logs/app.log"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 28
	}
	if cfg.CORS.AllowOrigins == "" {
		cfg.CORS.AllowOrigins = "http://localhost:3000"
	}
}

// Validate rejects settings the encoder would refuse on every job.
func Validate(cfg *Config) error {
	if cfg.Printer.CharWidth <= 0 {
		return fmt.Errorf("printer.char_width must be positive, got %d", cfg.Printer.CharWidth)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	// an empty payload is always small enough, so any error is a parameter error
	if err := cfg.Barcode.Request("").Validate(); err != nil {
		return fmt.Errorf("barcode: %w", err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	ApplyDefaults(cfg)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	encoder := toml.NewEncoder(file)
	return encoder.Encode(cfg)
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("BRIDGE_CORS_ALLOW_ORIGINS"); val != "" {
		cfg.CORS.AllowOrigins = val
	}
	if val := os.Getenv("BRIDGE_CORS_ALLOW_ORIGIN_PATTERNS"); val != "" {
		cfg.CORS.AllowOriginPatterns = val
	}
	if val := os.Getenv("BRIDGE_API_KEY"); val != "" {
		cfg.Auth.ApiKey = val
	}
	if val := os.Getenv("BRIDGE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("BRIDGE_CHAR_WIDTH"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Printer.CharWidth = n
		}
	}
}
