package common

import "time"

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvEnvFile          = "ENV_FILE"
	EnvPort             = "PORT"
	EnvReadTimeout      = "READ_TIMEOUT"
	EnvWriteTimeout     = "WRITE_TIMEOUT"
	EnvScalerPath       = "SCALER_PATH"
	EnvScalerBackend    = "SCALER_BACKEND"
	EnvModelPath        = "MODEL_PATH"
	EnvModelBackend     = "MODEL_BACKEND"
	EnvModelURL         = "MODEL_URL"
	EnvPythonPath       = "PYTHON_PATH"
	EnvInferenceTimeout = "INFERENCE_TIMEOUT"
	EnvLogMin           = "LOG_MIN"
	EnvLogMax           = "LOG_MAX"
	EnvPriceMin         = "PRICE_MIN"
	EnvPriceMax         = "PRICE_MAX"
	EnvPageTitle        = "PAGE_TITLE"
	EnvPageCaption      = "PAGE_CAPTION"
	EnvPageFootnote     = "PAGE_FOOTNOTE"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
)

// Configuration defaults
const (
	DefaultPort             = 8501
	DefaultEnvFile          = ".env"
	DefaultScalerPath       = "scaler.json"
	DefaultModelPath        = "xgboost_ames_model.json"
	DefaultBackend          = "native"
	DefaultLogMin           = 8.0
	DefaultLogMax           = 14.0
	DefaultPriceMin         = 50000.0
	DefaultPriceMax         = 1000000.0
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultPageTitle        = "Ames Housing Price Prediction"
	DefaultPageCaption      = "XGBoost-based house price estimation"
	DefaultPageFootnote     = "Prediction based on historical Ames Housing data"
	DefaultReadTimeout      = 10 * time.Second
	DefaultWriteTimeout     = 30 * time.Second
	DefaultInferenceTimeout = 5 * time.Second
)

// Log output formats
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)
