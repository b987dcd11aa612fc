package usecase_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/covcomment/pkg/usecase"
	"github.com/m-mizutani/gt"
)

const workflowRunPayload = `{
  "action": "completed",
  "workflow_run": {
    "id": 77,
    "workflow_id": 5,
    "name": "Build",
    "event": "pull_request",
    "status": "completed",
    "conclusion": "success",
    "head_sha": "0123456789abcdef",
    "html_url": "https://github.com/octo/repo/actions/runs/77",
    "pull_requests": [{"number": 42}]
  },
  "repository": {
    "name": "repo",
    "full_name": "octo/repo",
    "owner": {"login": "octo"}
  }
}`

func TestLoadWorkflowRunEvent(t *testing.T) {
	t.Run("decodes run and repository", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "event.json")
		writeFile(t, path, workflowRunPayload)

		event, err := usecase.LoadWorkflowRunEvent(path)
		gt.NoError(t, err)
		gt.Equal(t, event.Action, "completed")
		gt.Equal(t, *event.Repo, model.Repository{Owner: "octo", Name: "repo"})
		gt.Equal(t, event.Run.ID, int64(77))
		gt.Equal(t, event.Run.Event, "pull_request")
		gt.Equal(t, event.Run.PullRequests, []int{42})
		gt.True(t, event.Run.Succeeded())
	})

	t.Run("payload of another event", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "event.json")
		writeFile(t, path, `{"action":"opened","pull_request":{"number":1}}`)

		_, err := usecase.LoadWorkflowRunEvent(path)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, domain.ErrParse))
	})

	t.Run("broken JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "event.json")
		writeFile(t, path, `{"workflow_run":`)

		_, err := usecase.LoadWorkflowRunEvent(path)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, domain.ErrParse))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := usecase.LoadWorkflowRunEvent(filepath.Join(t.TempDir(), "none.json"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, domain.ErrConfiguration))
	})
}
