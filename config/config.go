// Package config holds the browser and tool settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const configFileName = "toshi_browser.yaml"

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Format FormatConfig `yaml:"format"`
	Scene  SceneConfig  `yaml:"scene"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`
	WebDir  string `yaml:"web_dir"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type FormatConfig struct {
	Version  string `yaml:"version"`  // auto, v1 or v2
	Encoding string `yaml:"encoding"` // charmap name, see ListEncodings
}

type SceneConfig struct {
	// ApplyV1Positions adds the v1 cell/instance position vectors to the instance transforms.
	ApplyV1Positions bool     `yaml:"apply_v1_positions"`
	LoadAllMeshSlots bool     `yaml:"load_all_mesh_slots"`
	CommonPaths      []string `yaml:"common_paths"`
	CommonAssets     []string `yaml:"common_assets"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8000",
			DataDir: "",
			WebDir:  "web",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Format: FormatConfig{
			Version:  "auto",
			Encoding: GetEncoding().String(),
		},
		Scene: SceneConfig{
			CommonPaths: []string{"Data/Blob_FX"},
			CommonAssets: []string{
				"AssetPack.trb",
				"CommonAssets.trb",
				"InstanceAssetPack.trb",
				"LevelAssets.trb",
				"RegionAssets.trb",
				"Region1Assets.trb",
				"WorldAssets.trb",
			},
		},
	}
}

// Load builds the configuration from defaults, then the config file, then flags.
// An empty path searches the working and user config directories.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyFlags(cfg)

	if err := cfg.Apply(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply pushes the settings read by library code into the package globals.
func (c *Config) Apply() error {
	v, err := ParseFormatVersion(c.Format.Version)
	if err != nil {
		return err
	}
	SetFormatVersion(v)

	if c.Format.Encoding != "" {
		if err := SetEncoding(c.Format.Encoding); err != nil {
			return err
		}
	}
	return nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read config %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "Failed to parse config %q", path)
	}
	return nil
}

func findConfigFile() string {
	candidates := []string{configFileName}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, configFileName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "toshi_browser"), nil
}

func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "Failed to create %q", filepath.Dir(path))
	}
	return os.WriteFile(path, data, 0644)
}
