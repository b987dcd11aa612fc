package interfaces

import (
	"context"

	"github.com/m-mizutani/covcomment/pkg/domain/model"
)

type GitHubService interface {
	GetWorkflowRun(ctx context.Context, repo model.Repository, runID int64) (*model.WorkflowRun, error)
	FetchArtifact(ctx context.Context, repo model.Repository, runID int64, name string) (*model.ArtifactContent, error)
	GetRepositoryInfo(ctx context.Context, repoPath string) (*model.Repository, error)
}

// CommentPublisher creates or replaces the single marked comment on a pull request.
type CommentPublisher interface {
	Publish(ctx context.Context, repo model.Repository, prNumber int, marker, body string) (*model.Comment, model.PublishResult, error)
}
