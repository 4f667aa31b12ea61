package validators

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/tvandinther/themedist/pkg/deploy"
)

// RequiredPaths checks that every listed slash separated path exists in the
// tree, e.g. "layout/theme.liquid" for a Shopify theme.
type RequiredPaths struct {
	Paths []string
}

func (r *RequiredPaths) GetTitle() string {
	return "Required Paths"
}

func (r *RequiredPaths) ValidateTree(ctx context.Context, tree fs.FS, sendMsg func(string)) (*deploy.ValidationResult, error) {
	result := &deploy.ValidationResult{
		IsValid: true,
		Errors:  make([]error, 0),
	}

	for _, p := range r.Paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := path.Clean(strings.TrimPrefix(p, "/"))
		_, err := fs.Stat(tree, name)
		if errors.Is(err, fs.ErrNotExist) {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Errorf("required path %s is missing", name))
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to stat %s: %w", name, err)
		}
	}

	sendMsg(fmt.Sprintf("checked %d required paths", len(r.Paths)))

	return result, nil
}
