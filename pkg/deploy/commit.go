package deploy

import (
	"fmt"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
)

const TimestampLayout = "2006-01-02 15:04:05"

type CommitData struct {
	Message string
	Branch  string
	Source  string
	Target  string
	Time    time.Time
}

// RenderCommitMessage renders the mustache template with the commit data.
// The timestamp is always rendered in UTC. Values are not HTML escaped.
func RenderCommitMessage(template string, data CommitData) (string, error) {
	if template == "" {
		template = DefaultCommitTemplate
	}

	context := map[string]any{
		"message":   data.Message,
		"timestamp": data.Time.UTC().Format(TimestampLayout),
		"branch":    data.Branch,
		"source":    data.Source,
		"target":    data.Target,
	}

	rendered, err := mustache.RenderRaw(template, true, context)
	if err != nil {
		return "", fmt.Errorf("failed to render commit template: %w", err)
	}

	rendered = strings.TrimSpace(rendered)
	if rendered == "" {
		return "", fmt.Errorf("commit template %q rendered an empty message", template)
	}

	return rendered, nil
}
