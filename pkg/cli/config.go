package cli

import (
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

type Config struct {
	Token      string
	Repo       string
	APIURL     string
	EventPath  string
	RunID      int64
	ConfigPath string
	DryRun     bool

	// Overrides holds config values given explicitly on the command line.
	Overrides model.Config
}

func NewConfig() *Config {
	return &Config{}
}

// ConfigFromCommand collects flag values. Only flags that were set end up in
// Overrides so the config file keeps precedence over flag defaults.
func ConfigFromCommand(cmd *cli.Command) *Config {
	config := &Config{
		Token:      cmd.String("token"),
		Repo:       cmd.String("repo"),
		APIURL:     cmd.String("api-url"),
		EventPath:  cmd.String("event-path"),
		RunID:      cmd.Int64("run-id"),
		ConfigPath: cmd.String("config"),
		DryRun:     cmd.Bool("dry-run"),
	}

	overrides := map[string]*string{
		"artifact":  &config.Overrides.Artifact,
		"lcov-file": &config.Overrides.LcovFile,
		"pr-file":   &config.Overrides.PRFile,
		"marker":    &config.Overrides.Marker,
		"title":     &config.Overrides.Title,
		"base-path": &config.Overrides.BasePath,
	}
	for name, dst := range overrides {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}

	return config
}

// Apply returns base with the command line overrides merged in.
func (c *Config) Apply(base *model.Config) *model.Config {
	merged := *base
	merged.Merge(&c.Overrides)
	return &merged
}

func DefineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "token",
			Usage:   "GitHub token with pull-requests:write and actions:read",
			Sources: cli.EnvVars("GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Repository in owner/name form",
			Sources: cli.EnvVars("GITHUB_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "GitHub REST API base URL",
			Sources: cli.EnvVars("GITHUB_API_URL"),
		},
		&cli.StringFlag{
			Name:    "event-path",
			Usage:   "Path to the workflow_run event payload",
			Sources: cli.EnvVars("GITHUB_EVENT_PATH"),
		},
		&cli.Int64Flag{
			Name:  "run-id",
			Usage: "ID of the completed workflow run; overrides the event payload",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (default: .covcomment.yml or .github/covcomment.yml)",
		},
		&cli.StringFlag{
			Name:  "artifact",
			Usage: "Name of the coverage artifact",
			Value: model.DefaultArtifactName,
		},
		&cli.StringFlag{
			Name:  "lcov-file",
			Usage: "lcov file inside the artifact",
			Value: model.DefaultLcovFile,
		},
		&cli.StringFlag{
			Name:  "pr-file",
			Usage: "File inside the artifact holding the pull request number",
			Value: model.DefaultPRFile,
		},
		&cli.StringFlag{
			Name:  "marker",
			Usage: "Identifier used to find the comment to update",
			Value: model.DefaultMarker,
		},
		&cli.StringFlag{
			Name:  "title",
			Usage: "Comment title",
			Value: model.DefaultTitle,
		},
		&cli.StringFlag{
			Name:  "base-path",
			Usage: "Prefix stripped from source file paths",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Print the comment instead of posting it",
			Value: false,
		},
	}
}
