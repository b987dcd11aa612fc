package interfaces

import (
	"github.com/m-mizutani/covcomment/pkg/domain/model"
)

// ConfigService handles configuration file operations
type ConfigService interface {
	Load(path string) (*model.Config, error)
	LoadFromDirectory(dir string) (*model.Config, string, error)
	GenerateTemplate() string
	SaveTemplate(path string, force bool) error
}
