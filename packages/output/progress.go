package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

// Progress draws a bar over the cases of a run. It is driven by the
// runner's case hook and writes to stderr so reports on stdout stay clean.
type Progress struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	writer  io.Writer
	passed  int
	failed  int
	skipped int
}

// NewProgress creates a bar for total cases.
func NewProgress(total int, w io.Writer) *Progress {
	if w == nil {
		w = os.Stderr
	}
	p := &Progress{writer: w}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(p.description()),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return p
}

func (p *Progress) description() string {
	return color.CyanString("Cases: ") +
		color.GreenString("[passed: %d", p.passed) +
		" | " +
		color.RedString("failed: %d", p.failed) +
		" | " +
		color.YellowString("skipped: %d]", p.skipped)
}

// Observe is a runner.CaseHook.
func (p *Progress) Observe(cr *runner.CaseResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case cr.Skipped:
		p.skipped++
	case cr.Passed:
		p.passed++
	default:
		p.failed++
	}
	_ = p.bar.Set(p.passed + p.failed + p.skipped)
	p.bar.Describe(p.description())
}

// Counts returns the cases seen so far.
func (p *Progress) Counts() (passed, failed, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passed, p.failed, p.skipped
}

func (p *Progress) Finish() {
	_ = p.bar.Finish()
}
