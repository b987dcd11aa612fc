package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/m-mizutani/covcomment/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// NewConfigCommand creates a new config command
func NewConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage covcomment configuration",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Generate configuration template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path for config file",
						Value:   filepath.Join(".github", "covcomment.yml"),
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Force overwrite existing file",
					},
				},
				Action: configInitAction,
			},
		},
	}
}

func configInitAction(ctx context.Context, cmd *cli.Command) error {
	service := usecase.NewConfigService()

	outputPath := cmd.String("output")
	force := cmd.Bool("force")

	if err := service.SaveTemplate(outputPath, force); err != nil {
		return fmt.Errorf("failed to create config template: %w", err)
	}

	fmt.Printf("Config template written to %s\n", outputPath)
	return nil
}
