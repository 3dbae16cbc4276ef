package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr     string `env:"ADDR"      envDefault:":5000"`
	DBPath   string `env:"DB_PATH"   envDefault:"summaries.sqlite"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ModelPath        string `env:"MODEL_PATH"         envDefault:"models/legal_led_final"`
	ModelName        string `env:"MODEL_NAME"         envDefault:"legal_led_final"`
	InferenceBaseURL string `env:"INFERENCE_BASE_URL" envDefault:"http://localhost:8000/v1"`
	InferenceAPIKey  string `env:"INFERENCE_API_KEY"`

	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"0s"`

	MaxInputTokens    int     `env:"MAX_INPUT_TOKENS"     envDefault:"8000"`
	MaxLength         int     `env:"MAX_LENGTH"           envDefault:"2048"`
	MinLength         int     `env:"MIN_LENGTH"           envDefault:"50"`
	NumBeams          int     `env:"NUM_BEAMS"            envDefault:"4"`
	LengthPenalty     float64 `env:"LENGTH_PENALTY"       envDefault:"2.0"`
	NoRepeatNgramSize int     `env:"NO_REPEAT_NGRAM_SIZE" envDefault:"3"`

	QueueSize    int           `env:"QUEUE_SIZE"    envDefault:"100"`
	CacheEntries int           `env:"CACHE_ENTRIES" envDefault:"256"`
	CacheTTL     time.Duration `env:"CACHE_TTL"     envDefault:"24h"`

	FetchURLs        bool          `env:"FETCH_URLS"        envDefault:"false"`
	JudgmentFeeds    []string      `env:"JUDGMENT_FEEDS"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" envDefault:"720h"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
