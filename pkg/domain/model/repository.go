package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

type Repository struct {
	Owner string
	Name  string
}

func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepository parses "owner/name" as given in GITHUB_REPOSITORY.
func ParseRepository(fullName string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, goerr.New("repository must be in owner/name form", goerr.V("repository", fullName))
	}
	return Repository{Owner: owner, Name: name}, nil
}
