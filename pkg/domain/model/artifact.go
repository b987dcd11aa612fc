package model

import (
	"path"
	"sort"
	"strings"
)

// Artifact is a named blob produced by a workflow run.
type Artifact struct {
	ID          int64
	Name        string
	SizeInBytes int64
	Expired     bool
}

// ArtifactContent holds the unpacked files of an artifact keyed by slash separated path.
type ArtifactContent struct {
	Artifact Artifact
	Files    map[string][]byte
}

// File looks up a file by exact path first, then by base name. When several
// files share the base name the lexically first path wins.
func (c *ArtifactContent) File(name string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if data, ok := c.Files[name]; ok {
		return data, true
	}

	var matches []string
	base := path.Base(name)
	for p := range c.Files {
		if path.Base(p) == base {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}

	sort.Strings(matches)
	return c.Files[matches[0]], true
}
