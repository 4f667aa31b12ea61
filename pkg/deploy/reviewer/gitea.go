package reviewer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"code.gitea.io/sdk/gitea"
	"github.com/tvandinther/themedist/pkg/deploy"
)

type Gitea struct {
	client *gitea.Client
}

const giteaPageSize = 50

// NewGitea builds a client without contacting the server. The version check
// the SDK runs by default is skipped; pass gitea.SetGiteaVersion to pin one.
func NewGitea(baseURL, token string, options ...gitea.ClientOption) (*Gitea, error) {
	opts := append([]gitea.ClientOption{gitea.SetToken(token), gitea.SetGiteaVersion("")}, options...)
	client, err := gitea.NewClient(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitea client: %w", err)
	}

	return &Gitea{client: client}, nil
}

func (g *Gitea) CreateReview(ctx context.Context, req *deploy.ReviewRequest, sendMsg func(string)) (*deploy.CreateReviewResult, error) {
	owner, repo, err := getOwnerRepo(req.RemoteURL)
	if err != nil {
		return nil, err
	}

	g.client.SetContext(ctx)

	for page := 1; ; page++ {
		pullRequests, _, err := g.client.ListRepoPullRequests(owner, repo, gitea.ListPullRequestsOptions{
			State: gitea.StateOpen,
			ListOptions: gitea.ListOptions{
				Page:     page,
				PageSize: giteaPageSize,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list repository pull requests: %w", err)
		}

		for _, pr := range pullRequests {
			if pr.Base == nil || pr.Head == nil {
				continue
			}
			slog.Debug("checking pull request for branch match", "base", pr.Base.Ref, "head", pr.Head.Ref)
			if pr.Base.Ref == req.Base && pr.Head.Ref == req.Head {
				sendMsg("pull request already exists")
				return &deploy.CreateReviewResult{
					Created: true,
					Existed: true,
					URL:     pr.HTMLURL,
				}, nil
			}
		}

		// A short page is the last one, also when the server ignores page.
		if len(pullRequests) < giteaPageSize {
			break
		}
	}

	pullRequest, response, err := g.client.CreatePullRequest(owner, repo, gitea.CreatePullRequestOption{
		Head:  req.Head,
		Base:  req.Base,
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}
	if response != nil && response.StatusCode != http.StatusCreated {
		sendMsg(fmt.Sprintf("received %d status code", response.StatusCode))
		return nil, fmt.Errorf("did not receive 201 CREATED status code")
	}

	sendMsg("pull request created")

	return &deploy.CreateReviewResult{
		Created: true,
		URL:     pullRequest.HTMLURL,
	}, nil
}
