package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TrainConfig holds configuration for the legalsum-trainer CLI.
type TrainConfig struct {
	Dataset  DatasetConfig  `yaml:"dataset"`
	Encoding EncodingConfig `yaml:"encoding"`
	Training TrainingConfig `yaml:"training"`
	Trainer  TrainerConfig  `yaml:"trainer"`
	DBPath   string         `yaml:"db_path"`
	LogLevel string         `yaml:"log_level"`
}

// DatasetConfig selects and filters the source examples.
type DatasetConfig struct {
	Name          string  `yaml:"name"`
	Config        string  `yaml:"config"`
	Split         string  `yaml:"split"`
	HubURL        string  `yaml:"hub_url"`
	TokenEnv      string  `yaml:"token_env"` // Environment variable holding a Hugging Face token
	File          string  `yaml:"file"`      // Local JSONL export; overrides the hub when set
	TextColumn    string  `yaml:"text_column"`
	SummaryColumn string  `yaml:"summary_column"`
	MinTextLength int     `yaml:"min_text_length"`
	MaxExamples   int     `yaml:"max_examples"`
	Seed          uint64  `yaml:"seed"`
	Train         float64 `yaml:"train_fraction"`
	Validation    float64 `yaml:"validation_fraction"`
	Test          float64 `yaml:"test_fraction"`
}

// EncodingConfig controls tokenization of prepared examples.
type EncodingConfig struct {
	TokenizerPath   string `yaml:"tokenizer_path"`
	SourceMaxLength int    `yaml:"source_max_length"`
	TargetMaxLength int    `yaml:"target_max_length"`
	Workers         int    `yaml:"workers"`
	OutputDir       string `yaml:"output_dir"`
}

// TrainingConfig mirrors the trainer hyperparameters.
type TrainingConfig struct {
	BaseModel                 string  `yaml:"base_model"`
	OutputDir                 string  `yaml:"output_dir"`
	FinalDir                  string  `yaml:"final_dir"`
	PerDeviceTrainBatchSize   int     `yaml:"per_device_train_batch_size"`
	PerDeviceEvalBatchSize    int     `yaml:"per_device_eval_batch_size"`
	GradientAccumulationSteps int     `yaml:"gradient_accumulation_steps"`
	LearningRate              float64 `yaml:"learning_rate"`
	NumTrainEpochs            int     `yaml:"num_train_epochs"`
	SaveSteps                 int     `yaml:"save_steps"`
	EvalSteps                 int     `yaml:"eval_steps"`
	LoggingSteps              int     `yaml:"logging_steps"`
	EvalStrategy              string  `yaml:"eval_strategy"`
	FP16                      bool    `yaml:"fp16"`
	GradientCheckpointing     bool    `yaml:"gradient_checkpointing"`
	MaxGradNorm               float64 `yaml:"max_grad_norm"`
	WarmupRatio               float64 `yaml:"warmup_ratio"`
	Optim                     string  `yaml:"optim"`
	SaveTotalLimit            int     `yaml:"save_total_limit"`
	LoadBestModelAtEnd        bool    `yaml:"load_best_model_at_end"`
	MetricForBestModel        string  `yaml:"metric_for_best_model"`
	GreaterIsBetter           bool    `yaml:"greater_is_better"`
}

// TrainerConfig describes the external process that runs the training loop.
type TrainerConfig struct {
	Command []string `yaml:"command"`
	Device  string   `yaml:"device"` // Exported as CUDA_VISIBLE_DEVICES
	WorkDir string   `yaml:"work_dir"`
}

// DefaultTrainConfig returns the default trainer configuration.
func DefaultTrainConfig() *TrainConfig {
	return &TrainConfig{
		Dataset: DatasetConfig{
			Name:          "ninadn/indian-legal",
			Config:        "default",
			Split:         "train",
			HubURL:        "https://datasets-server.huggingface.co",
			TokenEnv:      "HF_TOKEN",
			TextColumn:    "Text",
			SummaryColumn: "Summary",
			MinTextLength: 100,
			MaxExamples:   2500,
			Seed:          42,
			Train:         0.8,
			Validation:    0.1,
			Test:          0.1,
		},
		Encoding: EncodingConfig{
			TokenizerPath:   "models/led-base-16384",
			SourceMaxLength: 16384,
			TargetMaxLength: 1024,
			Workers:         4,
			OutputDir:       "data/indian-legal",
		},
		Training: TrainingConfig{
			BaseModel:                 "allenai/led-base-16384",
			OutputDir:                 "./legal_led_model",
			FinalDir:                  "./legal_led_final",
			PerDeviceTrainBatchSize:   2,
			PerDeviceEvalBatchSize:    4,
			GradientAccumulationSteps: 8,
			LearningRate:              2e-5,
			NumTrainEpochs:            3,
			SaveSteps:                 25,
			EvalSteps:                 25,
			LoggingSteps:              10,
			EvalStrategy:              "steps",
			FP16:                      true,
			GradientCheckpointing:     true,
			MaxGradNorm:               1.0,
			WarmupRatio:               0.1,
			Optim:                     "adamw_torch",
			SaveTotalLimit:            2,
			LoadBestModelAtEnd:        true,
			MetricForBestModel:        "loss",
			GreaterIsBetter:           false,
		},
		Trainer: TrainerConfig{
			Command: []string{"python3", "-m", "legalsum_trainer"},
			Device:  "1",
		},
		DBPath:   "summaries.sqlite",
		LogLevel: "info",
	}
}

// LoadTrainConfig reads a YAML file over the defaults. A missing file yields
// the defaults.
func LoadTrainConfig(path string) (*TrainConfig, error) {
	cfg := DefaultTrainConfig()

	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *TrainConfig) Validate() error {
	if c.Dataset.File == "" && c.Dataset.Name == "" {
		return errors.New("dataset.name or dataset.file must be set")
	}

	if c.Encoding.SourceMaxLength <= 0 || c.Encoding.TargetMaxLength <= 0 {
		return errors.New("encoding max lengths must be positive")
	}

	if c.Training.PerDeviceTrainBatchSize <= 0 || c.Training.GradientAccumulationSteps <= 0 {
		return errors.New("training batch size and accumulation steps must be positive")
	}

	if c.Training.WarmupRatio < 0 || c.Training.WarmupRatio > 1 {
		return fmt.Errorf("training.warmup_ratio %v is out of range", c.Training.WarmupRatio)
	}

	if len(c.Trainer.Command) == 0 {
		return errors.New("trainer.command is empty")
	}

	return nil
}

// Save writes the configuration as YAML.
func (c *TrainConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
