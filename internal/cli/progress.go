package cli

import (
	"fmt"
	"os"
	"sync"

	"legalsum/internal/domain"

	"github.com/schollz/progressbar/v3"
)

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(os.Stderr)
		}),
	)
}

// loadProgress draws one bar for dataset loading. A negative total (local
// files) renders a spinner.
func loadProgress() func(loaded, total int) {
	var bar *progressbar.ProgressBar

	return func(loaded, total int) {
		if bar == nil {
			bar = newBar(total, "[cyan]Loading[reset]")
		}
		_ = bar.Set(loaded)
	}
}

// encodeProgress draws one bar per split. It is called from encoder workers.
func encodeProgress() func(split domain.Split, done, total int) {
	var (
		mu      sync.Mutex
		bars    = make(map[domain.Split]*progressbar.ProgressBar)
		shown   = make(map[domain.Split]int)
		current domain.Split
	)

	return func(split domain.Split, done, total int) {
		mu.Lock()
		defer mu.Unlock()

		bar, ok := bars[split]
		if !ok {
			if prev, ok := bars[current]; ok {
				_ = prev.Finish()
			}
			bar = newBar(total, fmt.Sprintf("[cyan]Encoding %s[reset]", split))
			bars[split] = bar
			current = split
		}

		if done > shown[split] {
			shown[split] = done
			_ = bar.Set(done)
		}
	}
}
