package main

import (
	"flag"
	"log"
	"os"
	"time"

	"receipt-bridge/internal/config"
	"receipt-bridge/internal/httpapi"
	"receipt-bridge/internal/logging"
	"receipt-bridge/internal/printing"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	dumpTest := flag.String("dump-test", "", "write the calibration page to this file and exit")
	flag.Parse()

	cfg, created, err := config.LoadOrCreate(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if created {
		log.Printf("wrote default config to %s; set the printer address and api key, then restart", *configPath)
		os.Exit(1)
	}

	if *dumpTest != "" {
		if err := writeCalibration(cfg, *dumpTest); err != nil {
			log.Fatalf("calibration page: %v", err)
		}
		return
	}

	logger, err := logging.New(logging.Options{
		FilePath:       cfg.Logging.FilePath,
		Level:          cfg.Logging.Level,
		ConsoleVerbose: cfg.Logging.ConsoleVerbose,
		MaxSizeMB:      cfg.Logging.MaxSizeMB,
		MaxBackups:     cfg.Logging.MaxBackups,
		MaxAgeDays:     cfg.Logging.MaxAgeDays,
		Compress:       cfg.Logging.Compress,
	})
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	defer logger.Close()

	logger.Info("printer profile=%s char_width=%d", cfg.Printer.Profile, cfg.Printer.CharWidth)

	srv := httpapi.NewServer(cfg, *configPath, logger)
	if err := srv.Run(); err != nil {
		logger.Error("server stopped: %v", err)
		log.Fatal(err)
	}
}

// writeCalibration lets the page be sent with e.g. `cat page.bin > /dev/usb/lp0`.
func writeCalibration(cfg *config.Config, path string) error {
	f, err := printing.NewLineFormatter(cfg.Printer.CharWidth)
	if err != nil {
		return err
	}
	data, err := printing.CalibrationPage(f, time.Now())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
