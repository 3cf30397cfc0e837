package cli

import (
	"io"
	"time"

	"github.com/ppiankov/qaforge/internal/logging"
	"github.com/ppiankov/qaforge/internal/pipeline"
	"github.com/schollz/progressbar/v3"
)

// barProgress renders stage progress as a terminal progress bar
type barProgress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// newProgress returns a progress bar on terminals and nil elsewhere, so
// piped runs produce only the summary and structured logs
func newProgress(w io.Writer) pipeline.Progress {
	if !logging.IsTerminal(w) {
		return nil
	}
	return &barProgress{w: w}
}

func (p *barProgress) Begin(stage string, total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(stage),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *barProgress) Step() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *barProgress) End() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
