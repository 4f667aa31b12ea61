package reviewer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/tvandinther/themedist/pkg/deploy"
)

type Gitlab struct {
	Client *gitlab.Client
}

func NewGitlab(baseURL, token string) (*Gitlab, error) {
	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}

	return &Gitlab{Client: client}, nil
}

func (g *Gitlab) CreateReview(ctx context.Context, req *deploy.ReviewRequest, sendMsg func(string)) (*deploy.CreateReviewResult, error) {
	projectId, err := repositoryPath(req.RemoteURL)
	if err != nil {
		return nil, err
	}

	slog.Debug("listing merge requests to find existing", "projectId", projectId)
	mergeRequests, _, err := g.Client.MergeRequests.ListProjectMergeRequests(projectId, &gitlab.ListProjectMergeRequestsOptions{
		State:        gitlab.Ptr("opened"),
		SourceBranch: gitlab.Ptr(req.Head),
		TargetBranch: gitlab.Ptr(req.Base),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list repository merge requests: %w", err)
	}

	if len(mergeRequests) != 0 {
		sendMsg("merge request already exists")
		return &deploy.CreateReviewResult{
			Created: true,
			Existed: true,
			URL:     mergeRequests[0].WebURL,
		}, nil
	}

	mr, response, err := g.Client.MergeRequests.CreateMergeRequest(projectId, &gitlab.CreateMergeRequestOptions{
		SourceBranch: gitlab.Ptr(req.Head),
		TargetBranch: gitlab.Ptr(req.Base),
		Title:        gitlab.Ptr(req.Title),
		Description:  gitlab.Ptr(req.Body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create merge request: %w", err)
	}
	if response != nil && response.StatusCode != http.StatusCreated {
		sendMsg(fmt.Sprintf("received %d status code", response.StatusCode))
		return nil, fmt.Errorf("did not receive 201 CREATED status code")
	}

	sendMsg("merge request created")
	slog.Debug("created merge request", "url", mr.WebURL)

	return &deploy.CreateReviewResult{
		Created: true,
		URL:     mr.WebURL,
	}, nil
}
