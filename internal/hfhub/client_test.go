package hfhub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpforge/bertrun/internal/testutil"
)

// fakeHub is a minimal in-memory Hub API: tree listing, resolve downloads and
// NDJSON commits for a single repository.
type fakeHub struct {
	mu     sync.Mutex
	repoID string
	files  map[string][]byte
	// commits counts commit API calls.
	commits int
	// failures makes the next n resolve requests return 500.
	failures int
	// lastAuth records the Authorization header of the last request.
	lastAuth string
}

func newFakeHub(repoID string) *fakeHub {
	return &fakeHub{repoID: repoID, files: map[string][]byte{}}
}

func (h *fakeHub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/models/"+h.repoID, func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/datasets/"+h.repoID, func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		w.WriteHeader(http.StatusOK)
	})

	tree := func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		h.mu.Lock()
		defer h.mu.Unlock()
		var entries []RepoFile
		for path, content := range h.files {
			entries = append(entries, RepoFile{Type: "file", Path: path, Size: int64(len(content))})
		}
		json.NewEncoder(w).Encode(entries)
	}
	mux.HandleFunc("/api/models/"+h.repoID+"/tree/main", tree)
	mux.HandleFunc("/api/datasets/"+h.repoID+"/tree/main", tree)

	resolve := func(prefix string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			h.record(r)
			h.mu.Lock()
			if h.failures > 0 {
				h.failures--
				h.mu.Unlock()
				http.Error(w, "flaky", http.StatusInternalServerError)
				return
			}
			path := strings.TrimPrefix(r.URL.Path, prefix)
			content, ok := h.files[path]
			h.mu.Unlock()
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(content)
		}
	}
	mux.HandleFunc("/"+h.repoID+"/resolve/main/", resolve("/"+h.repoID+"/resolve/main/"))
	mux.HandleFunc("/datasets/"+h.repoID+"/resolve/main/", resolve("/datasets/"+h.repoID+"/resolve/main/"))

	commit := func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		dec := json.NewDecoder(r.Body)
		h.mu.Lock()
		defer h.mu.Unlock()
		h.commits++
		for {
			var line struct {
				Key   string          `json:"key"`
				Value json.RawMessage `json:"value"`
			}
			if err := dec.Decode(&line); err != nil {
				break
			}
			if line.Key != "file" {
				continue
			}
			var file struct {
				Path     string `json:"path"`
				Content  string `json:"content"`
				Encoding string `json:"encoding"`
			}
			if err := json.Unmarshal(line.Value, &file); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			content, err := base64.StdEncoding.DecodeString(file.Content)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.files[file.Path] = content
		}
		w.WriteHeader(http.StatusOK)
	}
	mux.HandleFunc("/api/models/"+h.repoID+"/commit/main", commit)
	mux.HandleFunc("/api/datasets/"+h.repoID+"/commit/main", commit)

	return mux
}

func (h *fakeHub) record(r *http.Request) {
	h.mu.Lock()
	h.lastAuth = r.Header.Get("Authorization")
	h.mu.Unlock()
}

func newTestClient(t *testing.T, hub *fakeHub, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(hub.handler())
	t.Cleanup(srv.Close)
	opts = append([]Option{WithEndpoint(srv.URL), WithLogger(testutil.NewTestLogger(t))}, opts...)
	return NewClient(opts...)
}

func TestRepoExists(t *testing.T) {
	hub := newFakeHub("nlpforge/modernbert-base-ckpts")
	client := newTestClient(t, hub, WithToken("hf_test"))

	exists, err := client.RepoExists(context.Background(), RepoTypeModel, "nlpforge/modernbert-base-ckpts")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "Bearer hf_test", hub.lastAuth)

	exists, err = client.RepoExists(context.Background(), RepoTypeModel, "nlpforge/no-such-repo")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListFiles(t *testing.T) {
	hub := newFakeHub("bert-data/c4-mds")
	hub.files["data/shard.00000.mds"] = []byte("shard0")
	hub.files["index.json"] = []byte("{}")
	client := newTestClient(t, hub)

	files, err := client.ListFiles(context.Background(), RepoTypeDataset, "bert-data/c4-mds", "main")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestSnapshotDownload(t *testing.T) {
	hub := newFakeHub("bert-data/c4-mds")
	hub.files["train/shard.00000.mds"] = []byte("shard0")
	hub.files["train/shard.00001.mds"] = []byte("shard1")
	hub.files["val/shard.00000.mds"] = []byte("val0")
	client := newTestClient(t, hub)

	dest := t.TempDir()
	locals, err := client.Snapshot(context.Background(), RepoTypeDataset, "bert-data/c4-mds", "main", dest,
		DownloadOptions{Pattern: "train/*.mds", Workers: 2})
	require.NoError(t, err)
	require.Len(t, locals, 2)

	content, err := os.ReadFile(filepath.Join(dest, "train", "shard.00000.mds"))
	require.NoError(t, err)
	assert.Equal(t, "shard0", string(content))

	_, err = os.Stat(filepath.Join(dest, "val", "shard.00000.mds"))
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshotNoMatches(t *testing.T) {
	hub := newFakeHub("bert-data/c4-mds")
	hub.files["train/shard.00000.mds"] = []byte("shard0")
	client := newTestClient(t, hub)

	_, err := client.Snapshot(context.Background(), RepoTypeDataset, "bert-data/c4-mds", "main", t.TempDir(),
		DownloadOptions{Pattern: "test/*.mds"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files")
}

func TestDownloadRetries(t *testing.T) {
	hub := newFakeHub("bert-data/c4-mds")
	hub.files["train/shard.00000.mds"] = []byte("shard0")
	hub.failures = 2
	client := newTestClient(t, hub)

	dest := t.TempDir()
	_, err := client.Snapshot(context.Background(), RepoTypeDataset, "bert-data/c4-mds", "main", dest,
		DownloadOptions{Retries: 2, RetryWait: time.Millisecond})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dest, "train", "shard.00000.mds"))
	require.NoError(t, err)
	assert.Equal(t, "shard0", string(content))
}

func TestDownloadRetriesExhausted(t *testing.T) {
	hub := newFakeHub("bert-data/c4-mds")
	hub.files["train/shard.00000.mds"] = []byte("shard0")
	hub.failures = 10
	client := newTestClient(t, hub)

	_, err := client.Snapshot(context.Background(), RepoTypeDataset, "bert-data/c4-mds", "main", t.TempDir(),
		DownloadOptions{Retries: 1, RetryWait: time.Millisecond})
	require.Error(t, err)
}

func TestUpload(t *testing.T) {
	hub := newFakeHub("nlpforge/modernbert-base-ckpts")
	client := newTestClient(t, hub)

	err := client.Upload(context.Background(), RepoTypeModel, "nlpforge/modernbert-base-ckpts", "main",
		"Add config", []UploadFile{{Path: "config.yaml", Content: []byte("run_name: x")}})
	require.NoError(t, err)
	assert.Equal(t, []byte("run_name: x"), hub.files["config.yaml"])
}

func TestUploadNothing(t *testing.T) {
	client := NewClient()
	err := client.Upload(context.Background(), RepoTypeModel, "x/y", "main", "msg", nil)
	assert.Error(t, err)
}

func TestScanCheckpoints(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"ep0-ba7000-rank0.pt",
		"ep0-ba3500-rank0.pt",
		"ep0-ba3500-rank1.pt",
		"latest-rank0.pt.symlink",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ep1-ba9000-rank0.pt"), 0o755))

	names, err := ScanCheckpoints(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"ep0-ba3500-rank0.pt", "ep0-ba7000-rank0.pt"}, names)
}

func TestSyncCheckpoints(t *testing.T) {
	hub := newFakeHub("nlpforge/modernbert-base-ckpts")
	hub.files["ep0-ba3500-rank0.pt"] = []byte("already there")
	client := newTestClient(t, hub)

	dir := t.TempDir()
	for i, name := range []string{"ep0-ba3500-rank0.pt", "ep0-ba7000-rank0.pt", "ep0-ba10500-rank0.pt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(fmt.Sprintf("ckpt %d", i)), 0o644))
	}

	result, err := client.SyncCheckpoints(context.Background(), "nlpforge/modernbert-base-ckpts", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"ep0-ba3500-rank0.pt"}, result.Skipped)
	assert.Equal(t, []string{"ep0-ba10500-rank0.pt", "ep0-ba7000-rank0.pt"}, result.Uploaded)
	assert.Equal(t, 2, hub.commits)
	assert.Equal(t, []byte("ckpt 2"), hub.files["ep0-ba10500-rank0.pt"])

	// A second sync finds nothing new.
	result, err = client.SyncCheckpoints(context.Background(), "nlpforge/modernbert-base-ckpts", dir)
	require.NoError(t, err)
	assert.Empty(t, result.Uploaded)
	assert.Len(t, result.Skipped, 3)
}

func TestSyncCheckpointsMissingRepo(t *testing.T) {
	hub := newFakeHub("nlpforge/modernbert-base-ckpts")
	client := newTestClient(t, hub)

	_, err := client.SyncCheckpoints(context.Background(), "nlpforge/other-repo", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
