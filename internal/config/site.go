package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Site holds presentation metadata shown on every rendered page.
type Site struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	BaseURL       string `yaml:"base_url"`
	TimezoneLabel string `yaml:"timezone_label"`
}

// DefaultSite returns the metadata used when no site file is configured.
func DefaultSite() *Site {
	return &Site{
		Title:         "Comment Archive",
		TimezoneLabel: "UTC",
	}
}

// LoadSite reads site metadata from a YAML file. An empty path yields the
// defaults; fields missing from the file keep their default values.
func LoadSite(path string) (*Site, error) {
	site := DefaultSite()
	if path == "" {
		return site, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config: %w", err)
	}

	if err := yaml.Unmarshal(content, site); err != nil {
		return nil, fmt.Errorf("failed to parse site config %s: %w", path, err)
	}

	return site, nil
}
