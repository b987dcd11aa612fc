package usecase

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/interfaces"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// configCandidates are searched in order; the first existing file wins.
var configCandidates = []string{
	".covcomment.yml",
	".covcomment.yaml",
	filepath.Join(".github", "covcomment.yml"),
	filepath.Join(".github", "covcomment.yaml"),
}

const configTemplate = `# covcomment configuration
# Values here are overridden by command line flags.

# Name of the artifact uploaded by the build workflow
artifact: coverage

# Files inside the artifact
lcov_file: lcov.info
pr_file: pr-number.txt

# Identifies the comment to update on re-runs. Use a different marker per
# coverage report when several reports are posted on the same pull request.
marker: coverage
title: Coverage Report

# Prefix stripped from source paths in the per-file table
# base_path: /home/runner/work/my-repo/my-repo

# Number of files listed in the per-file table, 0 disables the table
max_files: 50

# Line coverage thresholds in percent for the status icon
thresholds:
  warning: 80
  failure: 50
`

type configService struct{}

// NewConfigService creates a new ConfigService instance
func NewConfigService() interfaces.ConfigService {
	return &configService{}
}

// Load reads the YAML file at path and merges it over the defaults.
func (c *configService) Load(path string) (*model.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is given by the user
	if err != nil {
		return nil, domain.ErrConfiguration.Wrap(goerr.Wrap(err, "failed to read config file", goerr.V("path", path)))
	}

	var loaded model.Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&loaded); err != nil && !errors.Is(err, io.EOF) {
		return nil, domain.ErrConfiguration.Wrap(goerr.Wrap(err, "failed to parse config file", goerr.V("path", path)))
	}

	config := model.DefaultConfig()
	config.Merge(&loaded)
	if err := config.Validate(); err != nil {
		return nil, domain.ErrConfiguration.Wrap(goerr.Wrap(err, "invalid config file", goerr.V("path", path)))
	}

	return config, nil
}

// LoadFromDirectory loads the first config file found in dir. With no file it
// returns the defaults and an empty path; on a parse failure the path is still returned.
func (c *configService) LoadFromDirectory(dir string) (*model.Config, string, error) {
	path := c.findConfigInDirectory(dir)
	if path == "" {
		return model.DefaultConfig(), "", nil
	}

	config, err := c.Load(path)
	if err != nil {
		return nil, path, err
	}
	return config, path, nil
}

func (c *configService) findConfigInDirectory(dir string) string {
	for _, name := range configCandidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func (c *configService) GenerateTemplate() string {
	return configTemplate
}

// SaveTemplate writes the template to path, refusing to overwrite unless force is set.
func (c *configService) SaveTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return domain.ErrConfiguration.Wrap(goerr.New("config file already exists, use --force to overwrite", goerr.V("path", path)))
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return domain.ErrConfiguration.Wrap(err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return domain.ErrConfiguration.Wrap(err)
	}

	return nil
}
