package deploy

import "context"

type ReviewRequest struct {
	RemoteURL string
	Head      string
	Base      string
	Title     string
	Body      string
}

type CreateReviewResult struct {
	Created bool
	Existed bool
	URL     string
}

type Reviewer interface {
	CreateReview(ctx context.Context, req *ReviewRequest, sendMsg func(string)) (*CreateReviewResult, error)
}
