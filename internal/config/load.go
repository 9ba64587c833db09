package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrConfigNotFound = errors.New("config not found")

const appName = "hyprdictate"

// GetConfigDir returns $XDG_CONFIG_HOME/hyprdictate, creating it if needed.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// GetEnvPath returns the optional dotenv file read before env overrides.
func GetEnvPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "env"), nil
}

// GetDataDir returns $XDG_DATA_HOME/hyprdictate (default ~/.local/share/hyprdictate).
func GetDataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile decodes path on top of DefaultConfig and applies environment
// overrides.
func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: run hyprdictate configure", ErrConfigNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Printf("Config: loading configuration from %s", configPath)
	config := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.applyEnvOverrides(filepath.Join(filepath.Dir(configPath), "env")); err != nil {
		return nil, err
	}
	config.applyThreadsDefault()
	config.expandPaths()

	log.Printf("Config: configuration loaded successfully")
	return config, nil
}

// Save writes config to path as TOML.
func Save(config *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("# Hyprdictate configuration\n# Changes are applied to the next dictation without restarting the daemon.\n\n"); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// envOverrides are read from HYPRDICTATE_* variables. Empty means unset.
type envOverrides struct {
	TranscriptionExecutable  string `envconfig:"TRANSCRIPTION_EXECUTABLE"`
	TranscriptionModel       string `envconfig:"TRANSCRIPTION_MODEL"`
	TranscriptionLanguage    string `envconfig:"TRANSCRIPTION_LANGUAGE"`
	PostProcessingEnabled    string `envconfig:"POSTPROCESSING_ENABLED"`
	PostProcessingExecutable string `envconfig:"POSTPROCESSING_EXECUTABLE"`
	PostProcessingModel      string `envconfig:"POSTPROCESSING_MODEL"`
	GlossaryFile             string `envconfig:"GLOSSARY_FILE"`
}

func (c *Config) applyEnvOverrides(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("Config: error loading %s: %v", envFile, err)
	}

	var env envOverrides
	if err := envconfig.Process(appName, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	setIf := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setIf(&c.Transcription.Executable, env.TranscriptionExecutable)
	setIf(&c.Transcription.Model, env.TranscriptionModel)
	setIf(&c.Transcription.Language, env.TranscriptionLanguage)
	setIf(&c.PostProcessing.Executable, env.PostProcessingExecutable)
	setIf(&c.PostProcessing.Model, env.PostProcessingModel)
	setIf(&c.PostProcessing.GlossaryFile, env.GlossaryFile)

	if env.PostProcessingEnabled != "" {
		enabled, err := strconv.ParseBool(env.PostProcessingEnabled)
		if err != nil {
			return fmt.Errorf("invalid HYPRDICTATE_POSTPROCESSING_ENABLED %q: %w", env.PostProcessingEnabled, err)
		}
		c.PostProcessing.Enabled = enabled
	}
	return nil
}

// applyThreadsDefault sets default threads for local transcription if not explicitly set
func (c *Config) applyThreadsDefault() {
	if c.Transcription.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Transcription.Threads = threads
	}
}

func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Transcription.Executable,
		&c.Transcription.Model,
		&c.PostProcessing.Executable,
		&c.PostProcessing.Model,
		&c.PostProcessing.GlossaryFile,
		&c.Recording.Directory,
		&c.Output.HistoryPath,
	} {
		*p = ExpandHome(*p)
	}
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
