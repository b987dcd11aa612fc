package usecase

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// ResolvePullRequest reads the originating PR number from the marker file in
// the artifact. The file must hold a single positive decimal integer.
func ResolvePullRequest(content *model.ArtifactContent, fileName string) (*model.PullRequest, error) {
	data, ok := content.File(fileName)
	if !ok {
		return nil, goerr.Wrap(domain.ErrParse, "PR number file not found in artifact", goerr.V("file", fileName))
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, goerr.Wrap(domain.ErrParse, "PR number file is empty", goerr.V("file", fileName))
	}

	if strings.IndexFunc(raw, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return nil, goerr.Wrap(domain.ErrParse, "PR number must contain only decimal digits",
			goerr.V("file", fileName),
			goerr.V("value", raw),
		)
	}

	number, err := strconv.Atoi(raw)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrParse.Wrap(err), "PR number is not numeric",
			goerr.V("file", fileName),
			goerr.V("value", raw),
		)
	}
	if number <= 0 {
		return nil, goerr.Wrap(domain.ErrParse, "PR number must be positive",
			goerr.V("file", fileName),
			goerr.V("value", raw),
		)
	}

	return &model.PullRequest{Number: number}, nil
}
