package cfg

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"ames-pricer/internal/common"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Scaler           ArtifactSettings
	Model            ArtifactSettings
	PythonPath       string
	InferenceTimeout time.Duration
	LogMin           float64
	LogMax           float64
	PriceMin         float64
	PriceMax         float64
	Page             PageSettings
	LogLevel         string
	LogFormat        string
}

type ConfigFile struct {
	Server struct {
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"readTimeout"`
		WriteTimeout string `yaml:"writeTimeout"`
	} `yaml:"server"`

	Artifacts struct {
		Scaler     ArtifactSettings `yaml:"scaler"`
		Model      ArtifactSettings `yaml:"model"`
		PythonPath string           `yaml:"pythonPath"`
		Timeout    string           `yaml:"timeout"`
	} `yaml:"artifacts"`

	Bounds struct {
		LogMin   float64 `yaml:"logMin"`
		LogMax   float64 `yaml:"logMax"`
		PriceMin float64 `yaml:"priceMin"`
		PriceMax float64 `yaml:"priceMax"`
	} `yaml:"bounds"`

	Page PageSettings `yaml:"page"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE, then
// the environment. Environment variables override file values.
func Load() (Settings, error) {
	if err := loadDotEnv(getEnvOrDefault(common.EnvEnvFile, common.DefaultEnvFile)); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv never overrides variables already set in the process.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return buildSettings(config)
}

func loadFromEnv() (Settings, error) {
	return buildSettings(ConfigFile{})
}

func buildSettings(config ConfigFile) (Settings, error) {
	// Parse durations
	readTimeout, err := getDurationFromEnvOrConfig(common.EnvReadTimeout, config.Server.ReadTimeout, common.DefaultReadTimeout)
	if err != nil {
		return Settings{}, err
	}
	writeTimeout, err := getDurationFromEnvOrConfig(common.EnvWriteTimeout, config.Server.WriteTimeout, common.DefaultWriteTimeout)
	if err != nil {
		return Settings{}, err
	}
	inferenceTimeout, err := getDurationFromEnvOrConfig(common.EnvInferenceTimeout, config.Artifacts.Timeout, common.DefaultInferenceTimeout)
	if err != nil {
		return Settings{}, err
	}

	// Parse numbers
	port, err := getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort)
	if err != nil {
		return Settings{}, err
	}
	logMin, err := getFloatFromEnvOrConfig(common.EnvLogMin, config.Bounds.LogMin, common.DefaultLogMin)
	if err != nil {
		return Settings{}, err
	}
	logMax, err := getFloatFromEnvOrConfig(common.EnvLogMax, config.Bounds.LogMax, common.DefaultLogMax)
	if err != nil {
		return Settings{}, err
	}
	priceMin, err := getFloatFromEnvOrConfig(common.EnvPriceMin, config.Bounds.PriceMin, common.DefaultPriceMin)
	if err != nil {
		return Settings{}, err
	}
	priceMax, err := getFloatFromEnvOrConfig(common.EnvPriceMax, config.Bounds.PriceMax, common.DefaultPriceMax)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Scaler: ArtifactSettings{
			Backend: getStringFromEnvOrConfig(common.EnvScalerBackend, config.Artifacts.Scaler.Backend, common.DefaultBackend),
			Path:    getStringFromEnvOrConfig(common.EnvScalerPath, config.Artifacts.Scaler.Path, common.DefaultScalerPath),
		},
		Model: ArtifactSettings{
			Backend: getStringFromEnvOrConfig(common.EnvModelBackend, config.Artifacts.Model.Backend, common.DefaultBackend),
			Path:    getStringFromEnvOrConfig(common.EnvModelPath, config.Artifacts.Model.Path, common.DefaultModelPath),
			URL:     getStringFromEnvOrConfig(common.EnvModelURL, config.Artifacts.Model.URL, ""),
		},
		PythonPath:       getStringFromEnvOrConfig(common.EnvPythonPath, config.Artifacts.PythonPath, ""),
		InferenceTimeout: inferenceTimeout,
		LogMin:           logMin,
		LogMax:           logMax,
		PriceMin:         priceMin,
		PriceMax:         priceMax,
		Page: PageSettings{
			Title:    getStringFromEnvOrConfig(common.EnvPageTitle, config.Page.Title, common.DefaultPageTitle),
			Caption:  getStringFromEnvOrConfig(common.EnvPageCaption, config.Page.Caption, common.DefaultPageCaption),
			Footnote: getStringFromEnvOrConfig(common.EnvPageFootnote, config.Page.Footnote, common.DefaultPageFootnote),
		},
		LogLevel:  strings.ToLower(getStringFromEnvOrConfig(common.EnvLogLevel, config.Log.Level, common.DefaultLogLevel)),
		LogFormat: strings.ToLower(getStringFromEnvOrConfig(common.EnvLogFormat, config.Log.Format, common.DefaultLogFormat)),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getStringFromEnvOrConfig(key, configValue, defaultValue string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	if configValue != "" {
		return configValue
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) (int, error) {
	if env := os.Getenv(key); env != "" {
		val, err := strconv.Atoi(env)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q", key, env)
		}
		return val, nil
	}
	if configValue != 0 {
		return configValue, nil
	}
	return defaultValue, nil
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) (float64, error) {
	if env := os.Getenv(key); env != "" {
		val, err := strconv.ParseFloat(env, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q", key, env)
		}
		return val, nil
	}
	if configValue != 0 {
		return configValue, nil
	}
	return defaultValue, nil
}

// getDurationFromEnvOrConfig rejects malformed durations instead of silently
// falling back, like the numeric getters above.
func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) (time.Duration, error) {
	raw := getStringFromEnvOrConfig(key, configValue, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, raw)
	}
	return d, nil
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", settings.Port)
	}

	// Validate time durations
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 5m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}
	if settings.InferenceTimeout < 100*time.Millisecond || settings.InferenceTimeout > time.Minute {
		return fmt.Errorf("inference timeout must be between 100ms and 1m, got %v", settings.InferenceTimeout)
	}

	// Validate artifacts
	switch settings.Scaler.Backend {
	case BackendNative, BackendPython:
	default:
		return fmt.Errorf("scaler backend must be %s or %s, got %q", BackendNative, BackendPython, settings.Scaler.Backend)
	}
	if settings.Scaler.Path == "" {
		return fmt.Errorf("scaler path cannot be empty")
	}
	switch settings.Model.Backend {
	case BackendNative, BackendPython:
		if settings.Model.Path == "" {
			return fmt.Errorf("model path cannot be empty")
		}
	case BackendRemote:
		if settings.Model.URL == "" {
			return fmt.Errorf("model URL is required for the %s backend", BackendRemote)
		}
		if !strings.HasPrefix(settings.Model.URL, "http://") && !strings.HasPrefix(settings.Model.URL, "https://") {
			return fmt.Errorf("model URL must be http or https, got %q", settings.Model.URL)
		}
	default:
		return fmt.Errorf("model backend must be %s, %s or %s, got %q", BackendNative, BackendPython, BackendRemote, settings.Model.Backend)
	}

	// Validate float values - output bounds
	for name, v := range map[string]float64{
		"log min": settings.LogMin, "log max": settings.LogMax,
		"price min": settings.PriceMin, "price max": settings.PriceMax,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
	}
	if settings.LogMin >= settings.LogMax {
		return fmt.Errorf("log min must be below log max, got %v >= %v", settings.LogMin, settings.LogMax)
	}
	if settings.PriceMin < 0 || settings.PriceMin >= settings.PriceMax {
		return fmt.Errorf("price bounds must satisfy 0 <= min < max, got [%v, %v]", settings.PriceMin, settings.PriceMax)
	}

	// Validate page and logging
	if strings.TrimSpace(settings.Page.Title) == "" {
		return fmt.Errorf("page title cannot be empty")
	}
	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}
	if settings.LogFormat != common.LogFormatConsole && settings.LogFormat != common.LogFormatJSON {
		return fmt.Errorf("log format must be %s or %s, got %q", common.LogFormatConsole, common.LogFormatJSON, settings.LogFormat)
	}

	return nil
}
