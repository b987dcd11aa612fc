package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/interfaces"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// artifactsPerPage is the page size when listing the artifacts of a run.
	artifactsPerPage = 100
	// maxArtifactRedirects bounds redirects when resolving the archive URL.
	maxArtifactRedirects = 10
	// maxArtifactSize caps the downloaded archive.
	maxArtifactSize = 100 << 20
	downloadTimeout = 2 * time.Minute
)

type GitHubService struct {
	authService interfaces.AuthService
	httpClient  *http.Client
}

func NewGitHubService(authService interfaces.AuthService) interfaces.GitHubService {
	return &GitHubService{
		authService: authService,
		httpClient:  &http.Client{Timeout: downloadTimeout},
	}
}

func (s *GitHubService) GetRepositoryInfo(ctx context.Context, repoPath string) (*model.Repository, error) {
	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = repoPath
	output, err := cmd.Output()
	if err != nil {
		return nil, domain.ErrRepository.Wrap(err)
	}

	remoteURL := strings.TrimSpace(string(output))
	owner, name := parseGitHubURL(remoteURL)
	if owner == "" || name == "" {
		return nil, domain.ErrRepository.Wrap(goerr.New("failed to parse GitHub URL: " + remoteURL))
	}

	return &model.Repository{
		Owner: owner,
		Name:  name,
	}, nil
}

func parseGitHubURL(url string) (owner, repo string) {
	url = strings.TrimSuffix(url, ".git")

	for _, prefix := range []string{"git@github.com:", "https://github.com/", "ssh://git@github.com/"} {
		if !strings.HasPrefix(url, prefix) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(url, prefix), "/")
		if len(parts) == 2 {
			return parts[0], parts[1]
		}
	}

	return "", ""
}

func (s *GitHubService) GetWorkflowRun(ctx context.Context, repo model.Repository, runID int64) (*model.WorkflowRun, error) {
	client, err := s.authService.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}

	run, resp, err := client.Actions.GetWorkflowRunByID(ctx, repo.Owner, repo.Name, runID)
	if err != nil {
		return nil, goerr.Wrap(classifyAPIError(err, resp), "failed to get workflow run",
			goerr.V("repo", repo.FullName()),
			goerr.V("run_id", runID),
		)
	}

	workflowRun := convertWorkflowRun(run)

	ctxlog.From(ctx).Debug("fetched workflow run",
		slog.String("repo", repo.FullName()),
		slog.Int64("run_id", workflowRun.ID),
		slog.String("event", workflowRun.Event),
		slog.String("conclusion", string(workflowRun.Conclusion)),
	)

	return workflowRun, nil
}

// FetchArtifact downloads the artifact called name from the run and unpacks it.
func (s *GitHubService) FetchArtifact(ctx context.Context, repo model.Repository, runID int64, name string) (*model.ArtifactContent, error) {
	logger := ctxlog.From(ctx)

	client, err := s.authService.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}

	artifact, err := s.findArtifact(ctx, client, repo, runID, name)
	if err != nil {
		return nil, err
	}

	downloadURL, resp, err := client.Actions.DownloadArtifact(ctx, repo.Owner, repo.Name, artifact.ID, maxArtifactRedirects)
	if err != nil {
		return nil, goerr.Wrap(classifyAPIError(err, resp), "failed to resolve artifact download URL",
			goerr.V("artifact", name),
			goerr.V("artifact_id", artifact.ID),
		)
	}

	data, err := s.download(ctx, downloadURL.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download artifact", goerr.V("artifact", name))
	}

	files, err := extractArchive(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unpack artifact", goerr.V("artifact", name))
	}

	logger.Debug("fetched artifact",
		slog.String("name", artifact.Name),
		slog.Int64("id", artifact.ID),
		slog.Int("archive_size", len(data)),
		slog.Int("files", len(files)),
	)

	return &model.ArtifactContent{
		Artifact: *artifact,
		Files:    files,
	}, nil
}

func (s *GitHubService) findArtifact(ctx context.Context, client *github.Client, repo model.Repository, runID int64, name string) (*model.Artifact, error) {
	opts := &github.ListOptions{PerPage: artifactsPerPage}

	for {
		list, resp, err := client.Actions.ListWorkflowRunArtifacts(ctx, repo.Owner, repo.Name, runID, opts)
		if err != nil {
			return nil, goerr.Wrap(classifyAPIError(err, resp), "failed to list artifacts",
				goerr.V("repo", repo.FullName()),
				goerr.V("run_id", runID),
			)
		}

		for _, a := range list.Artifacts {
			if a.GetName() != name {
				continue
			}
			if a.GetExpired() {
				return nil, goerr.Wrap(domain.ErrNotFound, "artifact has expired",
					goerr.V("artifact", name),
					goerr.V("run_id", runID),
				)
			}
			return &model.Artifact{
				ID:          a.GetID(),
				Name:        a.GetName(),
				SizeInBytes: a.GetSizeInBytes(),
				Expired:     a.GetExpired(),
			}, nil
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return nil, goerr.Wrap(domain.ErrNotFound, "artifact not found in workflow run",
		goerr.V("artifact", name),
		goerr.V("run_id", runID),
	)
}

// download fetches the archive from the pre-signed URL. The URL carries its own
// credentials, so the plain client is used to keep the token off the storage host.
func (s *GitHubService) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.ErrArtifact.Wrap(err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.ErrAPIRequest.Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound.Wrap(goerr.New("artifact archive is gone"))
	case resp.StatusCode != http.StatusOK:
		return nil, domain.ErrAPIRequest.Wrap(goerr.New("unexpected status downloading artifact",
			goerr.V("status", resp.StatusCode),
		))
	}

	return readLimited(resp.Body, maxArtifactSize)
}

// classifyAPIError maps a go-github failure onto the domain sentinels.
func classifyAPIError(err error, resp *github.Response) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return domain.ErrAPIRequest.Wrap(err)
	}

	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	var errResp *github.ErrorResponse
	if status == 0 && errors.As(err, &errResp) && errResp.Response != nil {
		status = errResp.Response.StatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuthentication.Wrap(err)
	case http.StatusNotFound, http.StatusGone:
		return domain.ErrNotFound.Wrap(err)
	default:
		return domain.ErrAPIRequest.Wrap(err)
	}
}

func convertWorkflowRun(run *github.WorkflowRun) *model.WorkflowRun {
	workflowRun := &model.WorkflowRun{
		ID:         run.GetID(),
		WorkflowID: run.GetWorkflowID(),
		Name:       run.GetName(),
		Event:      run.GetEvent(),
		Status:     convertStatus(run.GetStatus()),
		HeadSHA:    run.GetHeadSHA(),
		URL:        run.GetHTMLURL(),
		CreatedAt:  run.GetCreatedAt().Time,
		UpdatedAt:  run.GetUpdatedAt().Time,
	}

	if run.GetStatus() == "completed" {
		workflowRun.Conclusion = convertConclusion(run.GetConclusion())
	}

	for _, pr := range run.PullRequests {
		if pr.GetNumber() > 0 {
			workflowRun.PullRequests = append(workflowRun.PullRequests, pr.GetNumber())
		}
	}

	return workflowRun
}

func convertStatus(status string) model.WorkflowStatus {
	switch status {
	case "queued":
		return model.WorkflowStatusQueued
	case "in_progress":
		return model.WorkflowStatusInProgress
	case "completed":
		return model.WorkflowStatusCompleted
	default:
		return model.WorkflowStatus(status)
	}
}

func convertConclusion(conclusion string) model.WorkflowConclusion {
	switch conclusion {
	case "success":
		return model.WorkflowConclusionSuccess
	case "failure":
		return model.WorkflowConclusionFailure
	case "cancelled":
		return model.WorkflowConclusionCancelled
	case "skipped":
		return model.WorkflowConclusionSkipped
	case "timed_out":
		return model.WorkflowConclusionTimedOut
	default:
		return model.WorkflowConclusion(conclusion)
	}
}
