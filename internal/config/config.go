package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Reader  ReaderConfig  `json:"reader"`
	Writer  WriterConfig  `json:"writer"`
	Preview PreviewConfig `json:"preview"`
	Probe   ProbeConfig   `json:"probe"`
}

// ReaderConfig holds configuration for loading annotations
type ReaderConfig struct {
	Extension string `json:"extension"`
	Lenient   bool   `json:"lenient"`
}

// WriterConfig holds configuration for output generation
type WriterConfig struct {
	OutputPrefix    string `json:"output_prefix"`
	TimestampLayout string `json:"timestamp_layout"`
	XMLIndent       string `json:"xml_indent"`
	JSONIndent      string `json:"json_indent"`
}

// PreviewConfig holds configuration for preview and crop rendering
type PreviewConfig struct {
	Format     string `json:"format"`
	Quality    int    `json:"quality"`
	Lossless   bool   `json:"lossless"`
	Stroke     int    `json:"stroke"`
	DrawLabels bool   `json:"draw_labels"`
}

// ProbeConfig holds configuration for reading sizes from image files
type ProbeConfig struct {
	FillMissingSize bool `json:"fill_missing_size"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{
			Extension: ".xml",
			Lenient:   false,
		},
		Writer: WriterConfig{
			OutputPrefix:    "voc2coco",
			TimestampLayout: "20060102150405",
			XMLIndent:       "\t",
			JSONIndent:      "",
		},
		Preview: PreviewConfig{
			Format:     "png",
			Quality:    92,
			Lossless:   false,
			Stroke:     0,
			DrawLabels: true,
		},
		Probe: ProbeConfig{
			FillMissingSize: true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys absent from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Reader.Extension != "" && !strings.HasPrefix(c.Reader.Extension, ".") {
		return fmt.Errorf("reader.extension must start with a dot")
	}

	if c.Writer.OutputPrefix == "" {
		return fmt.Errorf("writer.output_prefix cannot be empty")
	}

	if strings.ContainsAny(c.Writer.OutputPrefix, `/\`) {
		return fmt.Errorf("writer.output_prefix must not contain path separators")
	}

	if c.Writer.TimestampLayout == "" {
		return fmt.Errorf("writer.timestamp_layout cannot be empty")
	}

	// A layout without any time fields produces the same name on every run.
	ref := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	if ref.Format(c.Writer.TimestampLayout) == c.Writer.TimestampLayout {
		return fmt.Errorf("writer.timestamp_layout contains no time fields")
	}

	if strings.Trim(c.Writer.XMLIndent, " \t") != "" || strings.Trim(c.Writer.JSONIndent, " \t") != "" {
		return fmt.Errorf("writer indents may only contain spaces and tabs")
	}

	switch strings.ToLower(c.Preview.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("preview.format must be one of jpg, png, webp")
	}

	if c.Preview.Quality < 1 || c.Preview.Quality > 100 {
		return fmt.Errorf("preview.quality must be between 1 and 100")
	}

	if c.Preview.Stroke < 0 {
		return fmt.Errorf("preview.stroke must not be negative")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "coco-voc", "config.json")
}
