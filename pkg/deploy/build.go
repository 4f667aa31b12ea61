package deploy

import "context"

type Builder interface {
	Build(ctx context.Context, sendMsg func(string)) error
}
