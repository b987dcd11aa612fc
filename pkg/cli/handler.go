package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/interfaces"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/covcomment/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func RunCoverageComment(ctx context.Context, cmd *cli.Command) error {
	logLevel := slog.LevelWarn
	if cmd.Bool("debug") {
		logLevel = slog.LevelDebug
	} else if cmd.Bool("verbose") {
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	ctx = ctxlog.With(ctx, logger)

	config := ConfigFromCommand(cmd)

	appConfig, err := loadAppConfig(ctx, config)
	if err != nil {
		return err
	}

	authService := usecase.NewAuthService(config.Token, config.APIURL)
	githubService := usecase.NewGitHubService(authService)

	input, err := resolveInput(ctx, config, githubService)
	if err != nil {
		return err
	}

	uc := usecase.NewCoverageCommentUseCase(usecase.CoverageCommentUseCaseOptions{
		GitHub:    githubService,
		Publisher: usecase.NewCommentPublisher(usecase.CommentPublisherOptions{Auth: authService}),
		Config:    appConfig,
	})

	result, err := uc.Execute(ctx, *input)
	if err != nil {
		return err
	}

	printResult(os.Stdout, result, config.DryRun)
	return nil
}

func loadAppConfig(ctx context.Context, config *Config) (*model.Config, error) {
	logger := ctxlog.From(ctx)
	service := usecase.NewConfigService()

	var base *model.Config
	if config.ConfigPath != "" {
		loaded, err := service.Load(config.ConfigPath)
		if err != nil {
			return nil, err
		}
		base = loaded
	} else {
		currentDir, err := os.Getwd()
		if err != nil {
			return nil, domain.ErrConfiguration.Wrap(err)
		}
		loaded, path, err := service.LoadFromDirectory(currentDir)
		if err != nil {
			return nil, err
		}
		if path != "" {
			logger.Info("loaded config file", slog.String("path", path))
		}
		base = loaded
	}

	merged := config.Apply(base)
	if err := merged.Validate(); err != nil {
		return nil, domain.ErrConfiguration.Wrap(err)
	}
	return merged, nil
}

// resolveInput works out which repository and run to act on. An explicit
// --run-id wins over the event payload; the run is then fetched from the API.
func resolveInput(ctx context.Context, config *Config, githubService interfaces.GitHubService) (*usecase.CoverageCommentInput, error) {
	input := &usecase.CoverageCommentInput{
		RunID:  config.RunID,
		DryRun: config.DryRun,
	}

	var event *usecase.WorkflowRunEvent
	if config.RunID == 0 {
		if config.EventPath == "" {
			return nil, domain.ErrConfiguration.Wrap(goerr.New("no workflow run given, set --run-id or GITHUB_EVENT_PATH"))
		}
		loaded, err := usecase.LoadWorkflowRunEvent(config.EventPath)
		if err != nil {
			return nil, err
		}
		event = loaded
		input.Run = event.Run
		input.RunID = event.Run.ID
	}

	switch {
	case config.Repo != "":
		repo, err := model.ParseRepository(config.Repo)
		if err != nil {
			return nil, domain.ErrConfiguration.Wrap(err)
		}
		input.Repo = repo
	case event != nil && event.Repo != nil:
		input.Repo = *event.Repo
	default:
		currentDir, err := os.Getwd()
		if err != nil {
			return nil, domain.ErrConfiguration.Wrap(err)
		}
		repo, err := githubService.GetRepositoryInfo(ctx, currentDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get repository info: %w\nSet --repo or GITHUB_REPOSITORY", err)
		}
		input.Repo = *repo
	}

	return input, nil
}

func printResult(w io.Writer, result *usecase.CoverageCommentResult, dryRun bool) {
	if result.Skipped {
		color.New(color.FgYellow).Fprintf(w, "⏭️  Skipped run #%d: %s\n", result.Run.ID, result.SkipReason)
		return
	}

	lines := result.Totals.Lines
	summary := fmt.Sprintf("%.2f%% line coverage (%d/%d)", lines.Percent(), lines.Hit, lines.Found)

	if dryRun {
		fmt.Fprintf(w, "%s\n", result.Body)
		color.New(color.FgCyan).Fprintf(w, "🔍 Dry run for PR #%d: %s\n", result.PullRequest.Number, summary)
		return
	}

	var verb string
	switch result.Publish {
	case model.PublishResultCreated:
		verb = "Created"
	case model.PublishResultUpdated:
		verb = "Updated"
	default:
		verb = "Kept"
	}

	url := ""
	if result.Comment != nil && result.Comment.URL != "" {
		url = " " + result.Comment.URL
	}
	color.New(color.FgGreen).Fprintf(w, "✅ %s coverage comment on PR #%d: %s%s\n",
		verb, result.PullRequest.Number, summary, url)
}
