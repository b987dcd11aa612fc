package usecase

import (
	"encoding/json"
	"os"

	"github.com/google/go-github/v74/github"
	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// WorkflowRunEvent is the part of a workflow_run webhook payload we act on.
type WorkflowRunEvent struct {
	Action string
	Repo   *model.Repository
	Run    *model.WorkflowRun
}

// LoadWorkflowRunEvent decodes the event payload found at GITHUB_EVENT_PATH.
func LoadWorkflowRunEvent(path string) (*WorkflowRunEvent, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the Actions runner
	if err != nil {
		return nil, domain.ErrConfiguration.Wrap(goerr.Wrap(err, "failed to read event payload", goerr.V("path", path)))
	}

	var event github.WorkflowRunEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, goerr.Wrap(domain.ErrParse.Wrap(err), "failed to decode event payload", goerr.V("path", path))
	}

	if event.WorkflowRun == nil || event.WorkflowRun.GetID() == 0 {
		return nil, goerr.Wrap(domain.ErrParse, "event payload has no workflow_run", goerr.V("path", path))
	}

	result := &WorkflowRunEvent{
		Action: event.GetAction(),
		Run:    convertWorkflowRun(event.WorkflowRun),
	}

	if event.Repo != nil && event.Repo.GetOwner().GetLogin() != "" && event.Repo.GetName() != "" {
		result.Repo = &model.Repository{
			Owner: event.Repo.GetOwner().GetLogin(),
			Name:  event.Repo.GetName(),
		}
	}

	return result, nil
}
