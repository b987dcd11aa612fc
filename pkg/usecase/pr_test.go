package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/covcomment/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestResolvePullRequest(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string][]byte
		want    int
		wantErr bool
	}{
		{
			name:  "plain number",
			files: map[string][]byte{"pr-number.txt": []byte("42")},
			want:  42,
		},
		{
			name:  "surrounding whitespace",
			files: map[string][]byte{"pr-number.txt": []byte("  1234\r\n")},
			want:  1234,
		},
		{
			name:  "file in subdirectory",
			files: map[string][]byte{"meta/pr-number.txt": []byte("9\n")},
			want:  9,
		},
		{
			name:    "missing file",
			files:   map[string][]byte{"lcov.info": []byte("SF:a.go")},
			wantErr: true,
		},
		{
			name:    "empty file",
			files:   map[string][]byte{"pr-number.txt": []byte(" \n")},
			wantErr: true,
		},
		{
			name:    "not numeric",
			files:   map[string][]byte{"pr-number.txt": []byte("refs/pull/42/merge")},
			wantErr: true,
		},
		{
			name:    "two numbers",
			files:   map[string][]byte{"pr-number.txt": []byte("42\n43\n")},
			wantErr: true,
		},
		{
			name:    "explicit plus sign",
			files:   map[string][]byte{"pr-number.txt": []byte("+7\n")},
			wantErr: true,
		},
		{
			name:    "too large",
			files:   map[string][]byte{"pr-number.txt": []byte("99999999999999999999")},
			wantErr: true,
		},
		{
			name:    "zero",
			files:   map[string][]byte{"pr-number.txt": []byte("0")},
			wantErr: true,
		},
		{
			name:    "negative",
			files:   map[string][]byte{"pr-number.txt": []byte("-5")},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			content := &model.ArtifactContent{Files: tc.files}

			pr, err := usecase.ResolvePullRequest(content, "pr-number.txt")
			if tc.wantErr {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, domain.ErrParse))
				return
			}
			gt.NoError(t, err)
			gt.Equal(t, pr.Number, tc.want)
		})
	}
}
