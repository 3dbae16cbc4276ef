package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTrainConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadTrainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Dataset.Name != "ninadn/indian-legal" || cfg.Dataset.MaxExamples != 2500 || cfg.Dataset.Seed != 42 {
		t.Fatalf("unexpected dataset defaults: %+v", cfg.Dataset)
	}

	if cfg.Encoding.SourceMaxLength != 16384 || cfg.Encoding.TargetMaxLength != 1024 {
		t.Fatalf("unexpected encoding defaults: %+v", cfg.Encoding)
	}

	if cfg.Training.OutputDir != "./legal_led_model" || cfg.Training.FinalDir != "./legal_led_final" {
		t.Fatalf("unexpected training dirs: %+v", cfg.Training)
	}

	if cfg.Trainer.Device != "1" {
		t.Fatalf("unexpected device: %q", cfg.Trainer.Device)
	}
}

func TestLoadTrainConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yaml")
	content := `
dataset:
  file: data/rows.jsonl
  max_examples: 10
training:
  num_train_epochs: 1
trainer:
  command: ["sh", "-c", "true"]
  device: "0"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadTrainConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Dataset.File != "data/rows.jsonl" || cfg.Dataset.MaxExamples != 10 {
		t.Fatalf("unexpected dataset config: %+v", cfg.Dataset)
	}

	if cfg.Dataset.TextColumn != "Text" {
		t.Fatalf("expected untouched defaults to survive, got %q", cfg.Dataset.TextColumn)
	}

	if cfg.Training.NumTrainEpochs != 1 || cfg.Training.PerDeviceTrainBatchSize != 2 {
		t.Fatalf("unexpected training config: %+v", cfg.Training)
	}

	if len(cfg.Trainer.Command) != 3 || cfg.Trainer.Device != "0" {
		t.Fatalf("unexpected trainer config: %+v", cfg.Trainer)
	}
}

func TestLoadTrainConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "dataset: ["},
		{"empty command", "trainer:\n  command: []\n"},
		{"zero source length", "encoding:\n  source_max_length: 0\n"},
		{"warmup ratio", "training:\n  warmup_ratio: 2\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "train.yaml")
			if err := os.WriteFile(path, []byte(test.content), 0o600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			if _, err := LoadTrainConfig(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTrainConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yaml")

	cfg := DefaultTrainConfig()
	cfg.Dataset.Seed = 7
	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadTrainConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loaded.Dataset.Seed != 7 {
		t.Fatalf("unexpected seed: %d", loaded.Dataset.Seed)
	}
}
