package usecase

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/interfaces"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type CoverageCommentUseCase struct {
	github    interfaces.GitHubService
	publisher interfaces.CommentPublisher
	config    *model.Config
}

type CoverageCommentUseCaseOptions struct {
	GitHub    interfaces.GitHubService
	Publisher interfaces.CommentPublisher
	Config    *model.Config
}

func NewCoverageCommentUseCase(opts CoverageCommentUseCaseOptions) *CoverageCommentUseCase {
	config := opts.Config
	if config == nil {
		config = model.DefaultConfig()
	}
	return &CoverageCommentUseCase{
		github:    opts.GitHub,
		publisher: opts.Publisher,
		config:    config,
	}
}

type CoverageCommentInput struct {
	Repo  model.Repository
	RunID int64
	// Run is used as-is when the event payload already carried it.
	Run    *model.WorkflowRun
	DryRun bool
}

type CoverageCommentResult struct {
	Skipped     bool
	SkipReason  string
	Run         *model.WorkflowRun
	PullRequest *model.PullRequest
	Totals      model.FileCoverage
	Body        string
	Comment     *model.Comment
	Publish     model.PublishResult
}

// Execute fetches the coverage artifact of a finished run and posts or
// updates the coverage comment on the originating pull request.
func (u *CoverageCommentUseCase) Execute(ctx context.Context, input CoverageCommentInput) (*CoverageCommentResult, error) {
	logger := ctxlog.From(ctx)

	run := input.Run
	if run == nil {
		if input.RunID == 0 {
			return nil, domain.ErrConfiguration.Wrap(goerr.New("workflow run ID is required"))
		}
		fetched, err := u.github.GetWorkflowRun(ctx, input.Repo, input.RunID)
		if err != nil {
			return nil, err
		}
		run = fetched
	}

	if reason := skipReason(run); reason != "" {
		logger.Info("skipping workflow run",
			slog.Int64("run_id", run.ID),
			slog.String("reason", reason),
		)
		return &CoverageCommentResult{Skipped: true, SkipReason: reason, Run: run}, nil
	}

	content, err := u.github.FetchArtifact(ctx, input.Repo, run.ID, u.config.Artifact)
	if err != nil {
		return nil, err
	}

	pr, err := ResolvePullRequest(content, u.config.PRFile)
	if err != nil {
		return nil, err
	}

	lcovData, ok := content.File(u.config.LcovFile)
	if !ok {
		return nil, goerr.Wrap(domain.ErrNotFound, "lcov file not found in artifact",
			goerr.V("file", u.config.LcovFile),
			goerr.V("artifact", u.config.Artifact),
		)
	}

	report, err := ParseLcov(bytes.NewReader(lcovData))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse lcov file", goerr.V("file", u.config.LcovFile))
	}

	body := Render(report, RenderOptions{
		Marker:     u.config.Marker,
		Title:      u.config.Title,
		BasePath:   u.config.BasePath,
		MaxFiles:   u.config.FileLimit(),
		Thresholds: u.config.Thresholds,
		Run:        run,
	})

	result := &CoverageCommentResult{
		Run:         run,
		PullRequest: pr,
		Totals:      report.Totals(),
		Body:        body,
	}

	logger.Info("rendered coverage comment",
		slog.Int("pr", pr.Number),
		slog.Int("files", len(report.Files)),
		slog.Float64("line_coverage", result.Totals.Lines.Percent()),
	)

	if input.DryRun {
		return result, nil
	}

	comment, published, err := u.publisher.Publish(ctx, input.Repo, pr.Number, u.config.Marker, body)
	if err != nil {
		return nil, err
	}
	result.Comment = comment
	result.Publish = published

	return result, nil
}

func skipReason(run *model.WorkflowRun) string {
	if !run.Succeeded() {
		return "workflow run did not succeed"
	}
	if !run.IsPullRequestEvent() {
		return "workflow run was not triggered by a pull request"
	}
	return ""
}
