package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v74/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/interfaces"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// CommentsPerPage is the number of comments to fetch per API call.
	CommentsPerPage = 100
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// maxCommentPages bounds the search for an existing comment.
	maxCommentPages = 1000
)

type CommentPublisher struct {
	authService interfaces.AuthService
	newBackOff  func() backoff.BackOff
	maxRetries  uint64
}

type CommentPublisherOptions struct {
	Auth interfaces.AuthService
	// BackOff returns a fresh policy per API call; defaults to exponential.
	BackOff    func() backoff.BackOff
	MaxRetries *uint64
}

func NewCommentPublisher(opts CommentPublisherOptions) interfaces.CommentPublisher {
	p := &CommentPublisher{
		authService: opts.Auth,
		newBackOff:  opts.BackOff,
		maxRetries:  DefaultMaxRetries,
	}
	if p.newBackOff == nil {
		p.newBackOff = defaultBackOff
	}
	if opts.MaxRetries != nil {
		p.maxRetries = *opts.MaxRetries
	}
	return p
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

// Publish replaces the body of the PR comment carrying the marker, or creates
// one when none exists. The marker line is prepended to body if missing so a
// later run can always find the comment again.
func (p *CommentPublisher) Publish(ctx context.Context, repo model.Repository, prNumber int, marker, body string) (*model.Comment, model.PublishResult, error) {
	logger := ctxlog.From(ctx)

	if prNumber <= 0 {
		return nil, "", domain.ErrPublish.Wrap(goerr.New("invalid PR number", goerr.V("pr", prNumber)))
	}
	if marker == "" {
		return nil, "", domain.ErrPublish.Wrap(goerr.New("comment marker must not be empty"))
	}

	markerLine := MarkerLine(marker)
	if !strings.Contains(body, markerLine) {
		body = markerLine + "\n" + body
	}

	client, err := p.authService.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, "", err
	}

	existing, err := p.findExistingComment(ctx, client, repo, prNumber, markerLine)
	if err != nil {
		return nil, "", publishError(err, "failed to search for existing comment", repo, prNumber)
	}

	if existing != nil {
		if existing.GetBody() == body {
			logger.Info("existing comment is up to date",
				slog.Int64("comment_id", existing.GetID()),
				slog.Int("pr", prNumber),
			)
			return toComment(existing, prNumber), model.PublishResultUnchanged, nil
		}

		logger.Info("updating existing comment",
			slog.Int64("comment_id", existing.GetID()),
			slog.Int("pr", prNumber),
		)

		var updated *github.IssueComment
		err := p.retry(ctx, "edit comment", func() error {
			c, resp, err := client.Issues.EditComment(ctx, repo.Owner, repo.Name, existing.GetID(), &github.IssueComment{
				Body: github.Ptr(body),
			})
			if err != nil {
				return classifyAPIError(err, resp)
			}
			updated = c
			return nil
		})
		if err != nil {
			return nil, "", publishError(err, "failed to update comment", repo, prNumber)
		}

		return toComment(updated, prNumber), model.PublishResultUpdated, nil
	}

	logger.Info("creating new comment", slog.Int("pr", prNumber))

	var created *github.IssueComment
	published := model.PublishResultCreated
	attempt := 0
	err = p.retry(ctx, "create comment", func() error {
		attempt++
		if attempt > 1 {
			// A failed create may still have been stored by GitHub.
			stored, err := p.findExistingComment(ctx, client, repo, prNumber, markerLine)
			if err != nil {
				return err
			}
			if stored != nil {
				logger.Info("comment exists after failed create",
					slog.Int64("comment_id", stored.GetID()),
					slog.Int("pr", prNumber),
				)
				if stored.GetBody() == body {
					created = stored
					return nil
				}
				c, resp, err := client.Issues.EditComment(ctx, repo.Owner, repo.Name, stored.GetID(), &github.IssueComment{
					Body: github.Ptr(body),
				})
				if err != nil {
					return classifyAPIError(err, resp)
				}
				created = c
				published = model.PublishResultUpdated
				return nil
			}
		}

		c, resp, err := client.Issues.CreateComment(ctx, repo.Owner, repo.Name, prNumber, &github.IssueComment{
			Body: github.Ptr(body),
		})
		if err != nil {
			return classifyAPIError(err, resp)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, "", publishError(err, "failed to create comment", repo, prNumber)
	}

	return toComment(created, prNumber), published, nil
}

// findExistingComment walks every comment page and returns the first one carrying markerLine.
func (p *CommentPublisher) findExistingComment(ctx context.Context, client *github.Client, repo model.Repository, prNumber int, markerLine string) (*github.IssueComment, error) {
	logger := ctxlog.From(ctx)

	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{
			Page:    1,
			PerPage: CommentsPerPage,
		},
	}

	for page := 0; page < maxCommentPages; page++ {
		var comments []*github.IssueComment
		var nextPage int
		err := p.retry(ctx, "list comments", func() error {
			c, resp, err := client.Issues.ListComments(ctx, repo.Owner, repo.Name, prNumber, opts)
			if err != nil {
				return classifyAPIError(err, resp)
			}
			comments = c
			if resp != nil {
				nextPage = resp.NextPage
			}
			return nil
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list comments", goerr.V("page", opts.Page))
		}

		for _, comment := range comments {
			if strings.Contains(comment.GetBody(), markerLine) {
				logger.Debug("found existing comment",
					slog.Int64("comment_id", comment.GetID()),
					slog.Int("page", opts.Page),
				)
				return comment, nil
			}
		}

		if nextPage == 0 {
			return nil, nil
		}
		opts.Page = nextPage
	}

	logger.Warn("reached page limit while searching for comment", slog.Int("page", opts.Page))
	return nil, nil
}

func (p *CommentPublisher) retry(ctx context.Context, call string, op func() error) error {
	logger := ctxlog.From(ctx)
	policy := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, next time.Duration) {
		logger.Warn("GitHub API call failed, retrying",
			slog.String("call", call),
			slog.Duration("backoff", next),
			slog.String("error", err.Error()),
		)
	})
}

// isRetryableError reports whether a failed API call may succeed when repeated.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		code := errResp.Response.StatusCode
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

func publishError(err error, msg string, repo model.Repository, prNumber int) error {
	if !errors.Is(err, domain.ErrAuthentication) {
		err = domain.ErrPublish.Wrap(err)
	}
	return goerr.Wrap(err, msg,
		goerr.V("repo", repo.FullName()),
		goerr.V("pr", prNumber),
	)
}

func toComment(c *github.IssueComment, prNumber int) *model.Comment {
	return &model.Comment{
		ID:       c.GetID(),
		PRNumber: prNumber,
		Body:     c.GetBody(),
		URL:      c.GetHTMLURL(),
	}
}
