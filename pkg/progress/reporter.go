package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type Kind int

const (
	KindHeading Kind = iota
	KindProgress
	KindSuccess
	KindFailure
	KindWarning
	KindInfo
)

// Reporter writes human readable progress lines. It is safe for use from
// the process ticker goroutine.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer

	heading *color.Color
	success *color.Color
	failure *color.Color
	warning *color.Color
	info    *color.Color
}

func NewReporter(out, errOut io.Writer) *Reporter {
	return &Reporter{
		out:     out,
		err:     errOut,
		heading: color.New(color.Bold),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		warning: color.New(color.FgYellow),
		info:    color.New(color.FgBlue),
	}
}

func (p *Reporter) write(kind Kind, s string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch kind {
	case KindHeading:
		p.heading.Fprintf(p.out, "\n* %s\n", strings.ToUpper(s))
	case KindProgress:
		fmt.Fprintf(p.out, "→ %s\n", s)
	case KindSuccess:
		p.success.Fprintf(p.out, "✔ %s\n", s)
	case KindFailure:
		p.failure.Fprintf(p.err, "✖ %s\n", s)
	case KindWarning:
		p.warning.Fprintf(p.out, "⚠ %s\n", s)
	case KindInfo:
		p.info.Fprintf(p.out, "ℹ %s\n", s)
	default:
		fmt.Fprintln(p.out, s)
	}
}

func (p *Reporter) Heading(s string) {
	p.write(KindHeading, s)
}

func (p *Reporter) Progress(s string, args ...any) {
	p.write(KindProgress, fmt.Sprintf(s, args...))
}

func (p *Reporter) BasicProgress(s string) {
	p.Progress("%s", s)
}

func (p *Reporter) Success(s string, args ...any) {
	p.write(KindSuccess, fmt.Sprintf(s, args...))
}

func (p *Reporter) Failure(s string, args ...any) {
	p.write(KindFailure, fmt.Sprintf(s, args...))
}

func (p *Reporter) Warning(s string, args ...any) {
	p.write(KindWarning, fmt.Sprintf(s, args...))
}

func (p *Reporter) Info(s string, args ...any) {
	p.write(KindInfo, fmt.Sprintf(s, args...))
}

// Detail writes captured command output to the error stream, indented under
// the preceding failure line.
func (p *Reporter) Detail(s string) {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, line := range strings.Split(s, "\n") {
		fmt.Fprintf(p.err, "    %s\n", line)
	}
}

type Result struct {
	Success string
	Failure string
}

// Sends a failure progress if err is not nil, else a success progress
func (p *Reporter) Result(err error, result Result) {
	if err != nil {
		p.Failure("%s", result.Failure)
	} else {
		p.Success("%s", result.Success)
	}
}
