package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
)

type AuthService struct {
	token   string
	baseURL string
}

// NewAuthService builds GitHub clients from a static token. baseURL is the REST
// API root (GITHUB_API_URL); empty means api.github.com.
func NewAuthService(token, baseURL string) interfaces.AuthService {
	return &AuthService{
		token:   strings.TrimSpace(token),
		baseURL: baseURL,
	}
}

func (s *AuthService) GetToken(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", domain.ErrAuthentication.Wrap(goerr.New("GitHub token is not set, use --token or GITHUB_TOKEN"))
	}
	return s.token, nil
}

func (s *AuthService) GetAuthenticatedClient(ctx context.Context) (*github.Client, error) {
	logger := ctxlog.From(ctx)
	token, err := s.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	if s.baseURL != "" {
		endpoint := s.baseURL
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, domain.ErrConfiguration.Wrap(goerr.Wrap(err, "invalid GitHub API URL", goerr.V("url", s.baseURL)))
		}
		client.BaseURL = u
		logger.Debug("using custom GitHub API endpoint", slog.String("url", u.String()))
	}

	return client, nil
}
