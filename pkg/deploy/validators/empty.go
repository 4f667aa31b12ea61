package validators

import (
	"context"
	"errors"
	"io/fs"

	"github.com/tvandinther/themedist/pkg/deploy"
)

var errFound = errors.New("found")

// EmptyTree rejects a build output without a single file, which would
// otherwise wipe the distribution tree.
type EmptyTree struct {
	MetadataDir string
}

func (e *EmptyTree) GetTitle() string {
	return "Empty Tree"
}

func (e *EmptyTree) ValidateTree(ctx context.Context, tree fs.FS, sendMsg func(string)) (*deploy.ValidationResult, error) {
	result := &deploy.ValidationResult{
		IsValid: false,
		Errors:  make([]error, 0),
	}

	err := fs.WalkDir(tree, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.Name() == e.MetadataDir && path != "." {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return errFound
		}

		return nil
	})

	if errors.Is(err, errFound) {
		result.IsValid = true
		return result, nil
	}
	if err != nil {
		return result, err
	}

	result.Errors = append(result.Errors, errors.New("source tree contains no files"))

	return result, nil
}
