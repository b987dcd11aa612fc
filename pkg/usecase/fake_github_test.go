package usecase_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/zip"
	"github.com/m-mizutani/covcomment/pkg/domain/interfaces"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/covcomment/pkg/usecase"
	"github.com/m-mizutani/gt"
)

const testToken = "ghs_test_token"

var testRepo = model.Repository{Owner: "octo", Name: "repo"}

type fakeArtifact struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Size    int64  `json:"size_in_bytes"`
	Expired bool   `json:"expired"`
}

type fakeComment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
}

// fakeGitHub serves the subset of the GitHub REST API used by covcomment.
type fakeGitHub struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	run       map[string]any
	artifacts []fakeArtifact
	archives  map[int64][]byte
	comments  []*fakeComment
	nextID    int64

	// failStatus makes the next failCount API calls return that status.
	failStatus int
	failCount  int
	// lostCreates makes the next creates store the comment but answer 502.
	lostCreates int

	createCalls int
	editCalls   int
	listCalls   int
	perPage     int
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()

	f := &fakeGitHub{
		t:        t,
		archives: make(map[int64][]byte),
		nextID:   1000,
		run: map[string]any{
			"id":            int64(77),
			"workflow_id":   int64(5),
			"name":          "Build",
			"event":         "pull_request",
			"status":        "completed",
			"conclusion":    "success",
			"head_sha":      "0123456789abcdef",
			"html_url":      "https://github.com/octo/repo/actions/runs/77",
			"pull_requests": []map[string]any{{"number": 42}},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/actions/runs/{id}", f.handleGetRun)
	mux.HandleFunc("GET /repos/{owner}/{repo}/actions/runs/{id}/artifacts", f.handleListArtifacts)
	mux.HandleFunc("GET /repos/{owner}/{repo}/actions/artifacts/{id}/zip", f.handleArtifactZip)
	mux.HandleFunc("GET /blob/{id}", f.handleBlob)
	mux.HandleFunc("GET /repos/{owner}/{repo}/issues/{number}/comments", f.handleListComments)
	mux.HandleFunc("POST /repos/{owner}/{repo}/issues/{number}/comments", f.handleCreateComment)
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/issues/comments/{id}", f.handleEditComment)

	f.server = httptest.NewServer(f.withAuth(mux))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeGitHub) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// blob downloads are pre-signed and carry no token
		if !strings.HasPrefix(r.URL.Path, "/blob/") && r.Header.Get("Authorization") != "Bearer "+testToken {
			f.writeError(w, http.StatusUnauthorized, "Bad credentials")
			return
		}

		f.mu.Lock()
		if f.failCount > 0 {
			f.failCount--
			status := f.failStatus
			f.mu.Unlock()
			f.writeError(w, status, http.StatusText(status))
			return
		}
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (f *fakeGitHub) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	gt.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func (f *fakeGitHub) writeError(w http.ResponseWriter, status int, msg string) {
	f.writeJSON(w, status, map[string]string{"message": msg})
}

func (f *fakeGitHub) handleGetRun(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.PathValue("id") != fmt.Sprint(f.run["id"]) {
		f.writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	f.writeJSON(w, http.StatusOK, f.run)
}

func (f *fakeGitHub) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writeJSON(w, http.StatusOK, map[string]any{
		"total_count": len(f.artifacts),
		"artifacts":   f.artifacts,
	})
}

func (f *fakeGitHub) handleArtifactZip(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	gt.NoError(f.t, err)

	f.mu.Lock()
	_, ok := f.archives[id]
	f.mu.Unlock()
	if !ok {
		f.writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/blob/%d", f.server.URL, id))
	w.WriteHeader(http.StatusFound)
}

func (f *fakeGitHub) handleBlob(w http.ResponseWriter, r *http.Request) {
	gt.Equal(f.t, r.Header.Get("Authorization"), "")

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	gt.NoError(f.t, err)

	f.mu.Lock()
	data, ok := f.archives[id]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	_, _ = w.Write(data)
}

func (f *fakeGitHub) handleListComments(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	perPage := f.perPage
	if perPage == 0 {
		perPage = 100
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		gt.NoError(f.t, err)
		page = n
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(f.comments) {
		start = len(f.comments)
	}
	if end > len(f.comments) {
		end = len(f.comments)
	}

	if end < len(f.comments) {
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=%d&per_page=%d>; rel="next"`, f.server.URL, r.URL.Path, page+1, perPage))
	}
	f.writeJSON(w, http.StatusOK, f.comments[start:end])
}

func (f *fakeGitHub) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req fakeComment
	gt.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++

	f.nextID++
	comment := &fakeComment{
		ID:      f.nextID,
		Body:    req.Body,
		HTMLURL: fmt.Sprintf("https://github.com/octo/repo/pull/%s#issuecomment-%d", r.PathValue("number"), f.nextID),
	}
	f.comments = append(f.comments, comment)
	if f.lostCreates > 0 {
		f.lostCreates--
		f.writeError(w, http.StatusBadGateway, "Bad Gateway")
		return
	}
	f.writeJSON(w, http.StatusCreated, comment)
}

func (f *fakeGitHub) handleEditComment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	gt.NoError(f.t, err)

	var req fakeComment
	gt.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.editCalls++

	for _, c := range f.comments {
		if c.ID == id {
			c.Body = req.Body
			f.writeJSON(w, http.StatusOK, c)
			return
		}
	}
	f.writeError(w, http.StatusNotFound, "Not Found")
}

// addArtifact registers an artifact whose archive holds files.
func (f *fakeGitHub) addArtifact(id int64, name string, files map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data := buildZip(f.t, files)
	f.artifacts = append(f.artifacts, fakeArtifact{ID: id, Name: name, Size: int64(len(data))})
	f.archives[id] = data
}

func (f *fakeGitHub) addComment(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.comments = append(f.comments, &fakeComment{ID: f.nextID, Body: body})
}

func (f *fakeGitHub) failNext(status, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = status
	f.failCount = count
}

func (f *fakeGitHub) commentBodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	bodies := make([]string, 0, len(f.comments))
	for _, c := range f.comments {
		bodies = append(bodies, c.Body)
	}
	return bodies
}

func (f *fakeGitHub) auth() interfaces.AuthService {
	return usecase.NewAuthService(testToken, f.server.URL)
}

func (f *fakeGitHub) publisher() interfaces.CommentPublisher {
	retries := uint64(3)
	return usecase.NewCommentPublisher(usecase.CommentPublisherOptions{
		Auth:       f.auth(),
		BackOff:    func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		MaxRetries: &retries,
	})
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		gt.NoError(t, err)
		_, err = w.Write([]byte(content))
		gt.NoError(t, err)
	}
	gt.NoError(t, zw.Close())
	return buf.Bytes()
}
