package model

// PullRequest is the target for comment creation/update.
type PullRequest struct {
	Number int
}

// Comment is an issue comment on a pull request.
type Comment struct {
	ID       int64
	PRNumber int
	Body     string
	URL      string
}

type PublishResult string

const (
	PublishResultCreated   PublishResult = "created"
	PublishResultUpdated   PublishResult = "updated"
	PublishResultUnchanged PublishResult = "unchanged"
)
