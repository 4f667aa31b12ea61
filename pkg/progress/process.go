package progress

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ProcessReporter periodically reports the progress of a long running
// synchronous operation such as copying a theme tree.
type ProcessReporter struct {
	*Reporter
	Template          ProcessTemplate
	progressCount     atomic.Int64
	doneContext       context.Context
	cancel            context.CancelFunc
	progressionPeriod time.Duration
	wg                sync.WaitGroup
}

type ProcessReporterOptions struct {
	ReportPeriod time.Duration
	Template     ProcessTemplate
}

type ProcessTemplate struct {
	PresentAction string // Present tense of the action e.g. "copying"
	PastAction    string // Past tense of the action e.g. "copied"
	Subject       string // The subject being processed in plural form e.g. "files"
}

func (r *Reporter) NewProcess(opts *ProcessReporterOptions) *ProcessReporter {
	period := opts.ReportPeriod
	if period <= 0 {
		period = 2 * time.Second
	}

	return &ProcessReporter{
		Template:          opts.Template,
		Reporter:          r,
		progressionPeriod: period,
	}
}

func (p *ProcessReporter) Start(ctx context.Context) {
	p.doneContext, p.cancel = context.WithCancel(ctx)

	p.Reporter.Progress("%s %s", p.Template.PresentAction, p.Template.Subject)
	ticker := time.NewTicker(p.progressionPeriod)
	p.wg.Add(1)

	go func() {
		defer ticker.Stop()
		defer p.wg.Done()

		for {
			select {
			case <-ticker.C:
				p.sendProgress()
			case <-p.doneContext.Done():
				return
			}
		}
	}()
}

// Done stops the ticker and returns the final count.
func (p *ProcessReporter) Done() int {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	return p.Count()
}

func (p *ProcessReporter) Increment(delta int) {
	p.progressCount.Add(int64(delta))
}

func (p *ProcessReporter) Count() int {
	return int(p.progressCount.Load())
}

func (p *ProcessReporter) sendProgress() {
	p.Reporter.Progress("%s %d %s so far", p.Template.PastAction, p.Count(), p.Template.Subject)
}
