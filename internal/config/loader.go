package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched in the working directory.
const DefaultConfigFile = ".aaofetch"

// EnvPrefix is the prefix of environment variable overrides (AAOFETCH_*).
const EnvPrefix = "AAOFETCH"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the YAML configuration file.
// Every field is optional; zero values leave the defaults untouched.
type File struct {
	ListingURL    string            `yaml:"listingURL,omitempty"`
	ListingParams map[string]string `yaml:"listingParams,omitempty"`
	PageParam     string            `yaml:"pageParam,omitempty"`
	ContentRegion string            `yaml:"contentRegion,omitempty"`
	DownloadDir   string            `yaml:"downloadDir,omitempty"`
	LogFile       string            `yaml:"logFile,omitempty"`
	MaxPages      int               `yaml:"maxPages,omitempty"`
	Timeout       time.Duration     `yaml:"timeout,omitempty"`
	PageDelay     *DelayRange       `yaml:"pageDelay,omitempty"`
	DocumentDelay *DelayRange       `yaml:"documentDelay,omitempty"`
	UserAgent     string            `yaml:"userAgent,omitempty"`
	RespectRobots *bool             `yaml:"respectRobots,omitempty"`
	Proxy         string            `yaml:"proxy,omitempty"`
	SaveToDB      *bool             `yaml:"saveToDB,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .aaofetch in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// Apply copies every non-zero field of the file onto cfg.
func (f *File) Apply(cfg *Config) {
	if f.ListingURL != "" {
		cfg.ListingURL = f.ListingURL
	}
	if len(f.ListingParams) > 0 {
		cfg.ListingParams = make(map[string]string, len(f.ListingParams))
		for k, v := range f.ListingParams {
			cfg.ListingParams[k] = v
		}
	}
	if f.PageParam != "" {
		cfg.PageParam = f.PageParam
	}
	if f.ContentRegion != "" {
		cfg.ContentRegion = f.ContentRegion
	}
	if f.DownloadDir != "" {
		cfg.DownloadDir = f.DownloadDir
	}
	if f.LogFile != "" {
		cfg.LogFile = f.LogFile
	}
	if f.MaxPages != 0 {
		cfg.MaxPages = f.MaxPages
	}
	if f.Timeout != 0 {
		cfg.Timeout = f.Timeout
	}
	if f.PageDelay != nil {
		cfg.PageDelay = *f.PageDelay
	}
	if f.DocumentDelay != nil {
		cfg.DocumentDelay = *f.DocumentDelay
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.RespectRobots != nil {
		cfg.RespectRobots = *f.RespectRobots
	}
	if f.Proxy != "" {
		cfg.ProxyAddress = f.Proxy
	}
	if f.SaveToDB != nil {
		cfg.SaveToDB = *f.SaveToDB
	}
}

// Environment holds overrides read from AAOFETCH_* variables.
// Unset variables leave the corresponding setting untouched.
type Environment struct {
	ListingURL    string        `envconfig:"LISTING_URL"`
	DownloadDir   string        `envconfig:"DOWNLOAD_DIR"`
	LogFile       string        `envconfig:"LOG_FILE"`
	MaxPages      int           `envconfig:"MAX_PAGES"`
	Timeout       time.Duration `envconfig:"TIMEOUT"`
	UserAgent     string        `envconfig:"USER_AGENT"`
	Proxy         string        `envconfig:"PROXY"`
	DBDir         string        `envconfig:"DB_DIR"`
	RespectRobots *bool         `envconfig:"RESPECT_ROBOTS"`
	SaveToDB      *bool         `envconfig:"SAVE_TO_DB"`
}

// LoadEnvironment reads AAOFETCH_* overrides. When dotenvPath names an
// existing file it is loaded first; variables already set in the process
// environment take precedence over the file.
func LoadEnvironment(dotenvPath string) (*Environment, error) {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
			}
		}
	}

	var env Environment
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return &env, nil
}

// Apply copies every set override onto cfg.
func (e *Environment) Apply(cfg *Config) {
	if e.ListingURL != "" {
		cfg.ListingURL = e.ListingURL
	}
	if e.DownloadDir != "" {
		cfg.DownloadDir = e.DownloadDir
	}
	if e.LogFile != "" {
		cfg.LogFile = e.LogFile
	}
	if e.MaxPages != 0 {
		cfg.MaxPages = e.MaxPages
	}
	if e.Timeout != 0 {
		cfg.Timeout = e.Timeout
	}
	if e.UserAgent != "" {
		cfg.UserAgent = e.UserAgent
	}
	if e.Proxy != "" {
		cfg.ProxyAddress = e.Proxy
	}
	if e.DBDir != "" {
		cfg.DBDir = e.DBDir
	}
	if e.RespectRobots != nil {
		cfg.RespectRobots = *e.RespectRobots
	}
	if e.SaveToDB != nil {
		cfg.SaveToDB = *e.SaveToDB
	}
}
