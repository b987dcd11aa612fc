package model_test

import (
	"testing"

	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func TestConfigDefaults(t *testing.T) {
	config := model.DefaultConfig()
	gt.NoError(t, config.Validate())
	gt.Equal(t, config.Artifact, "coverage")
	gt.Equal(t, config.LcovFile, "lcov.info")
	gt.Equal(t, config.PRFile, "pr-number.txt")
	gt.Equal(t, config.FileLimit(), 50)
}

func TestConfigMerge(t *testing.T) {
	t.Run("non-zero fields overwrite", func(t *testing.T) {
		zero := 0
		config := model.DefaultConfig()
		config.Merge(&model.Config{
			Artifact: "lcov-report",
			BasePath: "/home/runner/work/repo/repo/",
			MaxFiles: &zero,
			Thresholds: model.Thresholds{
				Warning: 90,
			},
		})

		gt.Equal(t, config.Artifact, "lcov-report")
		gt.Equal(t, config.LcovFile, "lcov.info")
		gt.Equal(t, config.BasePath, "/home/runner/work/repo/repo/")
		gt.Equal(t, config.FileLimit(), 0)
		gt.Equal(t, config.Thresholds.Warning, 90.0)
		gt.Equal(t, config.Thresholds.Failure, 50.0)
	})

	t.Run("nil is ignored", func(t *testing.T) {
		config := model.DefaultConfig()
		config.Merge(nil)
		gt.Equal(t, config.Artifact, "coverage")
	})
}

func TestConfigValidate(t *testing.T) {
	negative := -1

	testCases := []struct {
		name   string
		modify func(c *model.Config)
	}{
		{name: "empty artifact", modify: func(c *model.Config) { c.Artifact = "" }},
		{name: "empty lcov file", modify: func(c *model.Config) { c.LcovFile = "" }},
		{name: "empty PR file", modify: func(c *model.Config) { c.PRFile = "" }},
		{name: "empty marker", modify: func(c *model.Config) { c.Marker = "" }},
		{name: "negative max files", modify: func(c *model.Config) { c.MaxFiles = &negative }},
		{name: "threshold above 100", modify: func(c *model.Config) { c.Thresholds.Warning = 120 }},
		{name: "failure above warning", modify: func(c *model.Config) {
			c.Thresholds.Warning = 40
			c.Thresholds.Failure = 60
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := model.DefaultConfig()
			tc.modify(config)
			gt.Error(t, config.Validate())
		})
	}
}
