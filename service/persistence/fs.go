package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
	"github.com/viant/approvals/service/dao/criteria"
)

// FS stores one JSON document per workflow under a base path. Any afs
// backend works (file, mem, s3, gs).
type FS struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ Store = (*FS)(nil)

// NewFS creates a filesystem-backed workflow store.
func NewFS(basePath string) (*FS, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	fs := afs.New()
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, &types.DegradedError{Cause: err}
		}
	}
	basePath = url.Normalize(basePath, file.Scheme)
	return &FS{basePath: basePath, fs: fs}, nil
}

// Persist writes the workflow's JSON document.
func (s *FS) Persist(ctx context.Context, workflow *model.Workflow) error {
	if workflow == nil || workflow.ID == "" {
		return fmt.Errorf("cannot persist workflow without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(workflow)
	if err != nil {
		return &types.DegradedError{Cause: err}
	}
	if err := s.fs.Upload(ctx, s.workflowPath(workflow.ID), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return &types.DegradedError{Cause: err}
	}
	return nil
}

// Load retrieves one workflow by id.
func (s *FS) Load(ctx context.Context, id string) (*model.Workflow, error) {
	if id == "" {
		return nil, types.NewNotFoundError("workflow", id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	filePath := s.workflowPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, &types.DegradedError{Cause: err}
	}
	if !exists {
		return nil, types.NewNotFoundError("workflow", id)
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, &types.DegradedError{Cause: err}
	}
	workflow := &model.Workflow{}
	if err := json.Unmarshal(data, workflow); err != nil {
		return nil, &types.DegradedError{Cause: err}
	}
	return workflow, nil
}

// Remove deletes a workflow's document.
func (s *FS) Remove(ctx context.Context, id string) error {
	if id == "" {
		return types.NewNotFoundError("workflow", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	filePath := s.workflowPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return &types.DegradedError{Cause: err}
	}
	if !exists {
		return types.NewNotFoundError("workflow", id)
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return &types.DegradedError{Cause: err}
	}
	return nil
}

// LoadActive retrieves all non-terminal workflows. Unreadable documents are
// logged and skipped so one corrupt file does not block recovery.
func (s *FS) LoadActive(ctx context.Context) ([]*model.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, &types.DegradedError{Cause: err}
	}
	var result []*model.Workflow
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			log.Printf("failed to read workflow %v: %v", object.URL(), err)
			continue
		}
		workflow := &model.Workflow{}
		if err := json.Unmarshal(data, workflow); err != nil {
			log.Printf("failed to decode workflow %v: %v", object.URL(), err)
			continue
		}
		if !criteria.FilterByStatus(workflow.Status, activeFilter) {
			continue
		}
		result = append(result, workflow)
	}
	return result, nil
}

func (s *FS) workflowPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.json", id))
}
