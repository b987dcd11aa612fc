package cli

import (
	"github.com/urfave/cli/v3"
)

func NewCommand() *cli.Command {
	flags := append(DefineFlags(),
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
			Value: false,
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable verbose logging",
			Value: false,
		},
	)

	return &cli.Command{
		Name:    "covcomment",
		Usage:   "Post lcov coverage results as a pull request comment",
		Version: "0.1.0",
		Description: `covcomment runs in a workflow triggered by "workflow_run: completed". It downloads the
coverage artifact of the finished run, reads the pull request number stored in it and
creates or updates a single coverage comment on that pull request.

The run, repository and token are taken from the GitHub Actions environment by default.
Use --run-id and --repo to target a run explicitly.`,
		Flags:  flags,
		Action: RunCoverageComment,
		Commands: []*cli.Command{
			NewConfigCommand(),
		},
	}
}
