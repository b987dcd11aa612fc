package usecase

import (
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/goerr/v2"
)

// extractArchive unpacks an artifact zip into memory, keyed by cleaned slash path.
func extractArchive(data []byte) (map[string][]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.ErrArtifact.Wrap(err)
	}

	files := make(map[string][]byte, len(reader.File))
	var total int64
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		name := path.Clean("/" + file.Name)
		name = strings.TrimPrefix(name, "/")
		if name == "" || name == "." {
			continue
		}

		content, err := readZipFile(file, maxArtifactSize-total)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read file in artifact", goerr.V("file", file.Name))
		}
		total += int64(len(content))
		files[name] = content
	}

	return files, nil
}

func readZipFile(file *zip.File, limit int64) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, domain.ErrArtifact.Wrap(err)
	}
	defer rc.Close()

	return readLimited(rc, limit)
}

// readLimited reads r fully, failing when more than limit bytes are available.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit < 0 {
		limit = 0
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, domain.ErrArtifact.Wrap(err)
	}
	if int64(len(data)) > limit {
		return nil, domain.ErrArtifact.Wrap(goerr.New("artifact exceeds size limit", goerr.V("limit", limit)))
	}
	return data, nil
}
