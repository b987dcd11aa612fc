package model

import (
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultArtifactName = "coverage"
	DefaultLcovFile     = "lcov.info"
	DefaultPRFile       = "pr-number.txt"
	DefaultMarker       = "coverage"
	DefaultTitle        = "Coverage Report"
	DefaultMaxFiles     = 50
)

// Config represents the application configuration
type Config struct {
	Artifact   string     `yaml:"artifact,omitempty"`
	LcovFile   string     `yaml:"lcov_file,omitempty"`
	PRFile     string     `yaml:"pr_file,omitempty"`
	Marker     string     `yaml:"marker,omitempty"`
	Title      string     `yaml:"title,omitempty"`
	BasePath   string     `yaml:"base_path,omitempty"`
	MaxFiles   *int       `yaml:"max_files,omitempty"`
	Thresholds Thresholds `yaml:"thresholds,omitempty"`
}

// Thresholds decide the status emoji of the line coverage headline, in percent.
type Thresholds struct {
	Warning float64 `yaml:"warning,omitempty"`
	Failure float64 `yaml:"failure,omitempty"`
}

func DefaultConfig() *Config {
	maxFiles := DefaultMaxFiles
	return &Config{
		Artifact: DefaultArtifactName,
		LcovFile: DefaultLcovFile,
		PRFile:   DefaultPRFile,
		Marker:   DefaultMarker,
		Title:    DefaultTitle,
		MaxFiles: &maxFiles,
		Thresholds: Thresholds{
			Warning: 80,
			Failure: 50,
		},
	}
}

// Merge overwrites fields of c with the non-zero fields of other.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Artifact != "" {
		c.Artifact = other.Artifact
	}
	if other.LcovFile != "" {
		c.LcovFile = other.LcovFile
	}
	if other.PRFile != "" {
		c.PRFile = other.PRFile
	}
	if other.Marker != "" {
		c.Marker = other.Marker
	}
	if other.Title != "" {
		c.Title = other.Title
	}
	if other.BasePath != "" {
		c.BasePath = other.BasePath
	}
	if other.MaxFiles != nil {
		maxFiles := *other.MaxFiles
		c.MaxFiles = &maxFiles
	}
	if other.Thresholds.Warning != 0 {
		c.Thresholds.Warning = other.Thresholds.Warning
	}
	if other.Thresholds.Failure != 0 {
		c.Thresholds.Failure = other.Thresholds.Failure
	}
}

// FileLimit returns the per-file table cap; 0 means no per-file table.
func (c *Config) FileLimit() int {
	if c.MaxFiles == nil {
		return DefaultMaxFiles
	}
	return *c.MaxFiles
}

func (c *Config) Validate() error {
	if c.Artifact == "" {
		return goerr.New("artifact name must not be empty")
	}
	if c.LcovFile == "" {
		return goerr.New("lcov file name must not be empty")
	}
	if c.PRFile == "" {
		return goerr.New("PR number file name must not be empty")
	}
	if c.Marker == "" {
		return goerr.New("comment marker must not be empty")
	}
	if c.MaxFiles != nil && *c.MaxFiles < 0 {
		return goerr.New("max_files must not be negative", goerr.V("max_files", *c.MaxFiles))
	}

	w, f := c.Thresholds.Warning, c.Thresholds.Failure
	if w < 0 || w > 100 || f < 0 || f > 100 {
		return goerr.New("thresholds must be between 0 and 100",
			goerr.V("warning", w),
			goerr.V("failure", f),
		)
	}
	if f > w {
		return goerr.New("failure threshold must not exceed warning threshold",
			goerr.V("warning", w),
			goerr.V("failure", f),
		)
	}

	return nil
}
