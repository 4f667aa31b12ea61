package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tvandinther/themedist/pkg/deploy"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Bold(true)
)

// Banner renders a boxed title, e.g. the final deployment status.
func (p *Reporter) Banner(title string, ok bool) {
	style := bannerStyle.BorderForeground(lipgloss.Color("2"))
	if !ok {
		style = bannerStyle.BorderForeground(lipgloss.Color("1"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.out
	if !ok {
		w = p.err
	}
	fmt.Fprintf(w, "\n%s\n", style.Render(title))
}

// Plan prints the configuration of a run before it starts.
func (p *Reporter) Plan(cfg deploy.Config) {
	mode := "repository"
	if !cfg.Repository {
		mode = "directory"
	}
	build := cfg.BuildCommand
	if build == "" {
		build = "(none)"
	}

	rows := [][2]string{
		{"Source", cfg.SourceDir},
		{"Target", cfg.TargetDir},
		{"Mode", mode},
		{"Build", build},
	}
	if cfg.Repository {
		remote := cfg.RemoteURL
		if remote == "" {
			remote = "(none)"
		}
		branch := cfg.TargetBranch
		if branch == "" {
			branch = "(current)"
		}
		rows = append(rows,
			[2]string{"Remote", remote},
			[2]string{"Branch", branch},
			[2]string{"Commit", fmt.Sprintf("%v", cfg.AutoCommit)},
			[2]string{"Push", fmt.Sprintf("%v", cfg.AutoPush)},
		)
		if cfg.Review.Provider != "" {
			rows = append(rows, [2]string{"Review", fmt.Sprintf("%s into %s", cfg.Review.Provider, cfg.Review.Base)})
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.out, "Deployment:")
	printRows(p, rows, 1)
}

// Summary prints the result of a run as aligned key/value lines.
func (p *Reporter) Summary(result *deploy.Result) {
	s := result.Summary
	rows := [][2]string{
		{"Outcome", string(result.Outcome)},
		{"Target", s.TargetDir},
	}
	if s.RemoteURL != "" {
		rows = append(rows, [2]string{"Remote", s.RemoteURL})
	}
	if s.Branch != "" {
		rows = append(rows, [2]string{"Branch", s.Branch})
	}
	rows = append(rows, [2]string{"Files copied", fmt.Sprintf("%d", s.FilesCopied)})
	if s.Commit != "" {
		rows = append(rows, [2]string{"Commit", s.Commit})
	}
	if s.ReviewURL != "" {
		rows = append(rows, [2]string{"Review", s.ReviewURL})
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.out, "Summary:")
	printRows(p, rows, 1)

	if len(s.Warnings) > 0 {
		fmt.Fprintln(p.out, "Warnings:")
		for _, w := range s.Warnings {
			fmt.Fprintf(p.out, "  - %s\n", w)
		}
	}
}

func printRows(p *Reporter, rows [][2]string, indent int) {
	labelWidth := 0
	for _, row := range rows {
		if len(row[0]) > labelWidth {
			labelWidth = len(row[0])
		}
	}

	padding := strings.Repeat("  ", indent)
	for _, row := range rows {
		label := fmt.Sprintf("%-*s", labelWidth, row[0])
		fmt.Fprintf(p.out, "%s%s : %s\n", padding, labelStyle.Render(label), row[1])
	}
}
