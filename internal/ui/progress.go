package ui

import (
	"io"

	"github.com/cheggaaa/pb/v3"

	"github.com/Sternrassler/vacancy-stats/pkg/stats"
)

const progressTemplate pb.ProgressBarTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{string . "category"}}`

// ProgressBar shows how many categories of one provider are done.
type ProgressBar struct {
	bar *pb.ProgressBar
}

// NewProgressBar starts a bar over total categories writing to w.
func NewProgressBar(w io.Writer, title string, total int) *ProgressBar {
	bar := progressTemplate.New(total)
	bar.SetWriter(w)
	bar.Set("prefix", title)
	bar.Start()
	return &ProgressBar{bar: bar}
}

// Update is a stats.ProgressFunc.
func (p *ProgressBar) Update(progress stats.Progress) {
	status := progress.Category
	if progress.Stats.Failed() {
		status += " (skipped)"
	}
	p.bar.Set("category", status)
	p.bar.SetCurrent(int64(progress.Index))
}

// Current returns the number of finished categories.
func (p *ProgressBar) Current() int64 {
	return p.bar.Current()
}

// Finish stops the bar.
func (p *ProgressBar) Finish() {
	p.bar.Finish()
}
