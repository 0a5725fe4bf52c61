// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/msomdec/stitchworks/internal/icon"
)

type Config struct {
	// LibraryDir holds one folder per stitch catalog.
	LibraryDir string
	// IndexPath is the SQLite database indexing the library.
	IndexPath string
	Addr      string
	IconColor string
	LogLevel  slog.Level
}

func Load() (Config, error) {
	cfg := Config{
		LibraryDir: getenv("STITCHWORKS_LIBRARY_DIR", "./data/library"),
		IndexPath:  getenv("STITCHWORKS_INDEX_PATH", "./data/library.db"),
		Addr:       getenv("STITCHWORKS_ADDR", ":8080"),
		IconColor:  getenv("STITCHWORKS_ICON_COLOR", "#000000"),
	}

	if _, err := icon.ParseHexColor(cfg.IconColor); err != nil {
		return Config{}, fmt.Errorf("STITCHWORKS_ICON_COLOR: %w", err)
	}

	level, err := parseLevel(getenv("STITCHWORKS_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("STITCHWORKS_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level
	return cfg, nil
}

// ColorContext is the color context icons are drawn with.
func (c Config) ColorContext() icon.ColorContext {
	cc := icon.DefaultColorContext()
	if fg, err := icon.ParseHexColor(c.IconColor); err == nil {
		cc.Foreground = fg
	}
	return cc
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, err
	}
	return level, nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
