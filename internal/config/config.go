package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultVoiceDir       = "storage/voices"
	defaultOutputDir      = "storage/output"
	defaultFinalDir       = "storage/final"
	defaultProjectsDir    = "storage/projects"
	defaultRetentionHours = 48
	defaultEngineURL      = "http://127.0.0.1:9000"
	defaultFFmpegPath     = "ffmpeg"
	defaultFFprobePath    = "ffprobe"
)

// apiKeyEnv is the environment variable holding the shared secret expected in
// the x-api-key header. Deliberately not part of the yaml file.
const apiKeyEnv = "API_KEY"

// Config describes runtime configuration for the service.
type Config struct {
	Port           int    `yaml:"port"`
	VoiceDir       string `yaml:"voice_dir"`
	OutputDir      string `yaml:"output_dir"`
	FinalDir       string `yaml:"final_dir"`
	ProjectsDir    string `yaml:"projects_dir"`
	RetentionHours int    `yaml:"retention_hours"`
	EngineURL      string `yaml:"engine_url"`
	FFmpegPath     string `yaml:"ffmpeg_path"`
	FFprobePath    string `yaml:"ffprobe_path"`
	APIKey         string `yaml:"-"`
}

// Default returns the built-in configuration used when no file is present.
func Default() Config {
	return Config{
		Port:           defaultPort,
		VoiceDir:       defaultVoiceDir,
		OutputDir:      defaultOutputDir,
		FinalDir:       defaultFinalDir,
		ProjectsDir:    defaultProjectsDir,
		RetentionHours: defaultRetentionHours,
		EngineURL:      defaultEngineURL,
		FFmpegPath:     defaultFFmpegPath,
		FFprobePath:    defaultFFprobePath,
	}
}

// Load reads YAML config from the provided path. If the file does not exist
// or is empty, defaults are returned with no error. The API key is always
// taken from the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	cfg.APIKey = os.Getenv(apiKeyEnv)
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by deployment
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	return normalize(cfg)
}

func normalize(cfg Config) (Config, error) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.VoiceDir == "" {
		cfg.VoiceDir = defaultVoiceDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.FinalDir == "" {
		cfg.FinalDir = defaultFinalDir
	}
	if cfg.ProjectsDir == "" {
		cfg.ProjectsDir = defaultProjectsDir
	}
	if cfg.EngineURL == "" {
		cfg.EngineURL = defaultEngineURL
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = defaultFFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = defaultFFprobePath
	}
	// retention governs when downloaded project folders are reclaimed; values
	// below an hour would delete sources while a client may still want a retry
	if cfg.RetentionHours < 1 {
		return cfg, fmt.Errorf("invalid retention_hours: %d (must be >= 1)", cfg.RetentionHours)
	}
	return cfg, nil
}
