package hfhub

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// checkpointSuffix selects the rank-0 checkpoint files worth publishing;
// other ranks only carry sharded optimizer state.
const checkpointSuffix = "-rank0.pt"

// ScanCheckpoints lists rank-0 checkpoint files at the top level of a save
// folder, sorted by name.
func ScanCheckpoints(saveFolder string) ([]string, error) {
	entries, err := os.ReadDir(saveFolder)
	if err != nil {
		return nil, fmt.Errorf("scan save folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), checkpointSuffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// SyncResult reports what a checkpoint sync did.
type SyncResult struct {
	// Uploaded names the checkpoints pushed this time, in upload order.
	Uploaded []string
	// Skipped names the checkpoints already present in the repository.
	Skipped []string
}

// SyncCheckpoints uploads new rank-0 checkpoints from a save folder to a model
// repository. Checkpoints already in the repository are skipped; each new one
// is committed individually so a failure mid-sync loses at most one file.
func (c *Client) SyncCheckpoints(ctx context.Context, repoID, saveFolder string) (*SyncResult, error) {
	exists, err := c.RepoExists(ctx, RepoTypeModel, repoID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("repository %s does not exist or is not accessible", repoID)
	}

	remote, err := c.ListFiles(ctx, RepoTypeModel, repoID, "main")
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(remote))
	for _, file := range remote {
		have[file.Path] = true
	}

	local, err := ScanCheckpoints(saveFolder)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	for _, name := range local {
		if have[name] {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		c.logger.Info("uploading checkpoint", "repo", repoID, "checkpoint", name)
		err := c.UploadLocalFile(ctx, RepoTypeModel, repoID, "main",
			filepath.Join(saveFolder, name), name, fmt.Sprintf("Add checkpoint %s", name))
		if err != nil {
			return result, fmt.Errorf("upload %s: %w", name, err)
		}
		result.Uploaded = append(result.Uploaded, name)
	}
	return result, nil
}
