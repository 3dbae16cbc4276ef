package trainer

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"legalsum/internal/config"
	"legalsum/internal/dataset"
	"legalsum/internal/domain"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	JobFile          = "legalsum_job.json"
	checkpointPrefix = "checkpoint-"
	waitDelay        = 10 * time.Second
)

// Job is everything the external trainer needs to run one fine-tuning pass.
type Job struct {
	BaseModel      string                  `json:"base_model"`
	DatasetDir     string                  `json:"dataset_dir"`
	Files          map[domain.Split]string `json:"files"`
	FinalDir       string                  `json:"final_dir"`
	ModelOptions   map[string]bool         `json:"model_options"`
	Plan           Plan                    `json:"plan"`
	TrainArguments Arguments               `json:"training_arguments"`
}

type CheckpointStore interface {
	UpsertCheckpoint(ctx context.Context, c domain.Checkpoint) error
}

type Driver struct {
	command  []string
	device   string
	workDir  string
	training config.TrainingConfig
	store    CheckpointStore
	log      *slog.Logger
}

func NewDriver(cfg *config.TrainConfig, store CheckpointStore, log *slog.Logger) (*Driver, error) {
	if len(cfg.Trainer.Command) == 0 {
		return nil, errors.New("trainer command is empty")
	}

	training := cfg.Training
	var err error
	if training.OutputDir, err = resolveDir(cfg.Trainer.WorkDir, training.OutputDir); err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if training.FinalDir, err = resolveDir(cfg.Trainer.WorkDir, training.FinalDir); err != nil {
		return nil, fmt.Errorf("resolve final dir: %w", err)
	}

	return &Driver{
		command:  slices.Clone(cfg.Trainer.Command),
		device:   cfg.Trainer.Device,
		workDir:  cfg.Trainer.WorkDir,
		training: training,
		store:    store,
		log:      log,
	}, nil
}

// resolveDir makes dir absolute. Relative dirs belong to the trainer's
// working directory when one is configured.
func resolveDir(workDir, dir string) (string, error) {
	if dir == "" || filepath.IsAbs(dir) {
		return dir, nil
	}
	if workDir != "" {
		dir = filepath.Join(workDir, dir)
	}

	return filepath.Abs(dir)
}

// Run writes the job file for the prepared dataset in datasetDir, runs the
// trainer to completion and registers the checkpoints it produced.
func (d *Driver) Run(ctx context.Context, datasetDir string) ([]domain.Checkpoint, error) {
	manifest, err := dataset.ReadManifest(datasetDir)
	if err != nil {
		return nil, err
	}

	plan := NewPlan(manifest.Counts[domain.SplitTrain], d.training)
	if plan.TotalSteps == 0 {
		return nil, fmt.Errorf(
			"train split of %d examples gives no optimizer steps",
			plan.TrainExamples,
		)
	}

	jobPath, err := d.writeJob(datasetDir, manifest, plan)
	if err != nil {
		return nil, err
	}
	d.log.InfoContext(ctx, "Training job is written",
		"jobPath", jobPath,
		"trainExamples", plan.TrainExamples,
		"totalSteps", plan.TotalSteps,
		"warmupSteps", plan.WarmupSteps)

	start := time.Now()
	if err = d.runCommand(ctx, jobPath); err != nil {
		return nil, err
	}
	d.log.InfoContext(ctx, "Trainer is finished",
		"elapsedSeconds", time.Since(start).Seconds())

	checkpoints, err := DiscoverCheckpoints(d.training.OutputDir, d.training.FinalDir)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range checkpoints {
		checkpoints[i].CreatedAt = now
		if err = d.store.UpsertCheckpoint(ctx, checkpoints[i]); err != nil {
			return nil, fmt.Errorf("record checkpoint %s: %w", checkpoints[i].Path, err)
		}
	}
	d.log.InfoContext(ctx, "Checkpoints are recorded",
		"checkpointCount", len(checkpoints))

	return checkpoints, nil
}

func (d *Driver) writeJob(datasetDir string, m dataset.Manifest, plan Plan) (string, error) {
	if err := os.MkdirAll(d.training.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	absDatasetDir, err := filepath.Abs(datasetDir)
	if err != nil {
		return "", fmt.Errorf("resolve dataset dir: %w", err)
	}

	job := Job{
		BaseModel:  d.training.BaseModel,
		DatasetDir: absDatasetDir,
		Files:      m.Files,
		FinalDir:   d.training.FinalDir,
		ModelOptions: map[string]bool{
			"gradient_checkpointing": d.training.GradientCheckpointing,
			"use_cache":              false,
		},
		Plan:           plan,
		TrainArguments: NewArguments(d.training, plan),
	}

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	path, err := filepath.Abs(filepath.Join(d.training.OutputDir, JobFile))
	if err != nil {
		return "", fmt.Errorf("resolve job path: %w", err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write job: %w", err)
	}

	return path, nil
}

func (d *Driver) runCommand(ctx context.Context, jobPath string) error {
	args := append(slices.Clone(d.command[1:]), "--job", jobPath)

	cmd := exec.CommandContext(ctx, d.command[0], args...)
	cmd.Dir = d.workDir
	cmd.Env = append(os.Environ(), "CUDA_VISIBLE_DEVICES="+d.device)
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("trainer stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("trainer stderr: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("start trainer: %w", err)
	}
	d.log.InfoContext(ctx, "Trainer is started",
		"command", d.command[0],
		"pid", cmd.Process.Pid,
		"device", d.device)

	var wg sync.WaitGroup
	wg.Go(func() { d.forward(ctx, "stdout", stdout) })
	wg.Go(func() { d.forward(ctx, "stderr", stderr) })
	wg.Wait()

	if err = cmd.Wait(); err != nil {
		return fmt.Errorf("trainer failed: %w", err)
	}

	return nil
}

func (d *Driver) forward(ctx context.Context, stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		d.log.InfoContext(ctx, "Trainer output",
			"stream", stream,
			"line", line)
	}

	if err := scanner.Err(); err != nil {
		d.log.WarnContext(ctx, "Failed to read trainer output",
			"error", err,
			"stream", stream)
	}
}

// DiscoverCheckpoints lists checkpoint-<step> directories under outputDir in
// step order and, when finalDir exists, appends it as the final checkpoint.
// Paths are absolute so they stay stable as database keys.
func DiscoverCheckpoints(outputDir, finalDir string) ([]domain.Checkpoint, error) {
	var checkpoints []domain.Checkpoint

	if isDir(outputDir) {
		matches, err := doublestar.Glob(os.DirFS(outputDir), checkpointPrefix+"*")
		if err != nil {
			return nil, fmt.Errorf("glob checkpoints: %w", err)
		}

		for _, m := range matches {
			step, err := strconv.ParseInt(strings.TrimPrefix(m, checkpointPrefix), 10, 64)
			if err != nil {
				continue
			}

			path, err := filepath.Abs(filepath.Join(outputDir, m))
			if err != nil {
				return nil, fmt.Errorf("resolve checkpoint: %w", err)
			}

			if !isDir(path) {
				continue
			}

			checkpoints = append(checkpoints, domain.Checkpoint{Path: path, Step: step})
		}
	}

	slices.SortFunc(checkpoints, func(a, b domain.Checkpoint) int {
		return cmp.Compare(a.Step, b.Step)
	})

	if finalDir != "" && isDir(finalDir) {
		path, err := filepath.Abs(finalDir)
		if err != nil {
			return nil, fmt.Errorf("resolve final dir: %w", err)
		}

		var step int64
		if len(checkpoints) > 0 {
			step = checkpoints[len(checkpoints)-1].Step
		}

		checkpoints = append(checkpoints, domain.Checkpoint{Path: path, Step: step, Final: true})
	}

	return checkpoints, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
