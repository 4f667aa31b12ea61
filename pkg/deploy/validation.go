package deploy

import (
	"context"
	"io/fs"
)

type ValidationResult struct {
	IsValid bool
	Errors  []error
}

type Validator interface {
	GetTitle() string
	ValidateTree(ctx context.Context, tree fs.FS, sendMsg func(string)) (*ValidationResult, error)
}
