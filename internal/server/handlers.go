// file: internal/server/handlers.go
// version: 1.1.0
// guid: 4ee3b93c-243f-40a2-a7d5-690869bf1b2e

package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/album-enricher/internal/agent"
)

// RefreshRequest is the optional body of POST /api/v1/refresh. Without
// directories the whole library root is refreshed.
type RefreshRequest struct {
	Dirs []string `json:"dirs"`
}

// RefreshStatus describes the pass runner state.
type RefreshStatus struct {
	Running bool           `json:"running"`
	Last    *agent.Summary `json:"last,omitempty"`
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": s.runner != nil && s.runner.Running(),
	})
}

func itemParam(c *gin.Context) (string, bool) {
	item := strings.TrimSpace(c.Query("item"))
	if item == "" {
		RespondWithBadRequest(c, "missing item query parameter")
		return "", false
	}
	return item, true
}

func (s *Server) getState(c *gin.Context) {
	item, ok := itemParam(c)
	if !ok {
		return
	}
	state, err := s.store.GetProviderState(item, s.provider)
	if err != nil {
		RespondWithInternalError(c, "failed to load provider state")
		return
	}
	if state == nil {
		RespondWithNotFound(c, "provider state", item)
		return
	}
	RespondWithOK(c, state)
}

func (s *Server) listStates(c *gin.Context) {
	states, err := s.store.ListProviderStates(s.provider)
	if err != nil {
		RespondWithInternalError(c, "failed to list provider states")
		return
	}
	RespondWithList(c, states, len(states))
}

func (s *Server) getRecord(c *gin.Context) {
	item, ok := itemParam(c)
	if !ok {
		return
	}
	rec, err := s.store.GetAlbumRecord(item)
	if err != nil {
		RespondWithInternalError(c, "failed to load album record")
		return
	}
	if rec == nil {
		RespondWithNotFound(c, "album record", item)
		return
	}
	RespondWithOK(c, rec)
}

func (s *Server) refreshStatus(c *gin.Context) {
	if s.runner == nil {
		RespondWithOK(c, RefreshStatus{})
		return
	}
	RespondWithOK(c, RefreshStatus{Running: s.runner.Running(), Last: s.runner.LastSummary()})
}

func (s *Server) triggerRefresh(c *gin.Context) {
	if s.runner == nil {
		RespondWithError(c, http.StatusServiceUnavailable, "refresh runner not configured", "UNAVAILABLE")
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondWithBadRequest(c, "invalid request: "+err.Error())
		return
	}

	if s.root == "" {
		RespondWithBadRequest(c, "no library root configured")
		return
	}

	var err error
	if len(req.Dirs) > 0 {
		dirs, dirErr := s.libraryDirs(req.Dirs)
		if dirErr != nil {
			RespondWithBadRequest(c, dirErr.Error())
			return
		}
		_, err = s.runner.StartDirs(s.passCtx, dirs)
	} else {
		_, err = s.runner.Start(s.passCtx, s.root)
	}

	if errors.Is(err, agent.ErrBusy) {
		RespondWithConflict(c, err.Error())
		return
	}
	if err != nil {
		RespondWithInternalError(c, "failed to start refresh")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// libraryDirs resolves dirs against the library root and rejects any that
// fall outside it. Relative dirs are taken relative to the root.
func (s *Server) libraryDirs(dirs []string) ([]string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("invalid library root: %w", err)
	}
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			return nil, errors.New("empty directory in dirs")
		}
		abs := filepath.Clean(dir)
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, abs)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("directory %q is outside the library root", dir)
		}
		out = append(out, abs)
	}
	return out, nil
}
