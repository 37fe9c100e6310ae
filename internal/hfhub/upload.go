package hfhub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
)

// UploadFile is one file of a commit: its destination path in the repository
// and its content.
type UploadFile struct {
	Path    string
	Content []byte
}

// commitLine is one NDJSON line of the Hub commit API payload.
type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary string `json:"summary"`
}

type commitFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Upload commits files to a repository revision in a single commit.
func (c *Client) Upload(ctx context.Context, repoType RepoType, repoID, revision, message string, files []UploadFile) error {
	if len(files) == 0 {
		return fmt.Errorf("nothing to upload")
	}
	if revision == "" {
		revision = "main"
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	if err := enc.Encode(commitLine{Key: "header", Value: commitHeader{Summary: message}}); err != nil {
		return err
	}
	for _, file := range files {
		line := commitLine{Key: "file", Value: commitFile{
			Path:     file.Path,
			Content:  base64.StdEncoding.EncodeToString(file.Content),
			Encoding: "base64",
		}}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	u := fmt.Sprintf("%s/api/%s/%s/commit/%s",
		c.endpoint, repoType.apiPlural(), repoID, url.PathEscape(revision))

	resp, err := c.do(ctx, http.MethodPost, u, &body, "application/x-ndjson")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp, u)
	}
	c.logger.Info("uploaded commit", "repo", repoID, "files", len(files), "message", message)
	return nil
}

// UploadLocalFile commits one local file to the repository under destPath.
func (c *Client) UploadLocalFile(ctx context.Context, repoType RepoType, repoID, revision, localPath, destPath, message string) error {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return c.Upload(ctx, repoType, repoID, revision, message, []UploadFile{{Path: destPath, Content: content}})
}
