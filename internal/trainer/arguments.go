// Package trainer hands a prepared dataset to the external training process
// and records the checkpoints it leaves behind.
package trainer

import (
	"legalsum/internal/config"
)

// Arguments uses the field names of the trainer's TrainingArguments so the
// job file can be splatted into it unchanged.
type Arguments struct {
	OutputDir                 string  `json:"output_dir"`
	PerDeviceTrainBatchSize   int     `json:"per_device_train_batch_size"`
	PerDeviceEvalBatchSize    int     `json:"per_device_eval_batch_size"`
	GradientAccumulationSteps int     `json:"gradient_accumulation_steps"`
	LearningRate              float64 `json:"learning_rate"`
	NumTrainEpochs            int     `json:"num_train_epochs"`
	SaveSteps                 int     `json:"save_steps"`
	EvalSteps                 int     `json:"eval_steps"`
	LoggingSteps              int     `json:"logging_steps"`
	EvalStrategy              string  `json:"eval_strategy"`
	FP16                      bool    `json:"fp16"`
	GradientCheckpointing     bool    `json:"gradient_checkpointing"`
	ReportTo                  string  `json:"report_to"`
	MaxGradNorm               float64 `json:"max_grad_norm"`
	WarmupSteps               int     `json:"warmup_steps"`
	DataloaderPinMemory       bool    `json:"dataloader_pin_memory"`
	Optim                     string  `json:"optim"`
	SaveTotalLimit            int     `json:"save_total_limit"`
	LoadBestModelAtEnd        bool    `json:"load_best_model_at_end"`
	MetricForBestModel        string  `json:"metric_for_best_model"`
	GreaterIsBetter           bool    `json:"greater_is_better"`
}

// Plan is the step budget derived from the train split size.
type Plan struct {
	TrainExamples int `json:"train_examples"`
	TotalSteps    int `json:"total_steps"`
	WarmupSteps   int `json:"warmup_steps"`
}

// NewPlan computes total optimizer steps as examples * epochs divided by the
// effective batch (batch size * accumulation), truncated, and the warmup as
// the truncated ratio of it.
func NewPlan(trainExamples int, cfg config.TrainingConfig) Plan {
	effectiveBatch := cfg.PerDeviceTrainBatchSize * cfg.GradientAccumulationSteps
	if effectiveBatch <= 0 {
		return Plan{TrainExamples: trainExamples}
	}

	total := trainExamples * cfg.NumTrainEpochs / effectiveBatch

	return Plan{
		TrainExamples: trainExamples,
		TotalSteps:    total,
		WarmupSteps:   int(cfg.WarmupRatio * float64(total)),
	}
}

func NewArguments(cfg config.TrainingConfig, plan Plan) Arguments {
	return Arguments{
		OutputDir:                 cfg.OutputDir,
		PerDeviceTrainBatchSize:   cfg.PerDeviceTrainBatchSize,
		PerDeviceEvalBatchSize:    cfg.PerDeviceEvalBatchSize,
		GradientAccumulationSteps: cfg.GradientAccumulationSteps,
		LearningRate:              cfg.LearningRate,
		NumTrainEpochs:            cfg.NumTrainEpochs,
		SaveSteps:                 cfg.SaveSteps,
		EvalSteps:                 cfg.EvalSteps,
		LoggingSteps:              cfg.LoggingSteps,
		EvalStrategy:              cfg.EvalStrategy,
		FP16:                      cfg.FP16,
		GradientCheckpointing:     cfg.GradientCheckpointing,
		ReportTo:                  "none",
		MaxGradNorm:               cfg.MaxGradNorm,
		WarmupSteps:               plan.WarmupSteps,
		DataloaderPinMemory:       false,
		Optim:                     cfg.Optim,
		SaveTotalLimit:            cfg.SaveTotalLimit,
		LoadBestModelAtEnd:        cfg.LoadBestModelAtEnd,
		MetricForBestModel:        cfg.MetricForBestModel,
		GreaterIsBetter:           cfg.GreaterIsBetter,
	}
}
