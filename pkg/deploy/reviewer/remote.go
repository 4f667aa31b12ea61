package reviewer

import (
	"fmt"
	"net/url"
	"strings"
)

// repositoryPath extracts "owner/repo" (or "group/subgroup/repo") from a
// remote URL. Both URL and scp-like ssh forms are accepted.
func repositoryPath(remote string) (string, error) {
	var p string

	if i := strings.Index(remote, "://"); i >= 0 {
		u, err := url.Parse(remote)
		if err != nil {
			return "", fmt.Errorf("failed to parse remote URL: %w", err)
		}
		p = u.Path
	} else if host, path, ok := strings.Cut(remote, ":"); ok && host != "" {
		p = path
	} else {
		return "", fmt.Errorf("unrecognised remote URL %q", remote)
	}

	p = strings.Trim(strings.TrimSuffix(strings.TrimSpace(p), ".git"), "/")
	if strings.Count(p, "/") < 1 {
		return "", fmt.Errorf("remote URL %q does not name an owner and repository", remote)
	}

	return p, nil
}

func getOwnerRepo(remote string) (string, string, error) {
	p, err := repositoryPath(remote)
	if err != nil {
		return "", "", err
	}

	i := strings.LastIndex(p, "/")

	return p[:i], p[i+1:], nil
}
