package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/report-review/internal/ingestion"
)

const maxUploadBytes = 256 << 20

// UploadResponse lists the files stored by /upload
type UploadResponse struct {
	Saved      []string `json:"saved"`
	Skipped    []string `json:"skipped"`
	UploadRoot string   `json:"upload_root"`
}

// TreeNode is one entry of the upload tree
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     string      `json:"type"` // "dir" or "file"
	Size     int64       `json:"size,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// handleUpload stores multipart "files" under the optional "department" folder
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.fail(w, &ErrValidation{Field: "files", Message: err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	target, err := safeJoin(s.uploadRoot, r.FormValue("department"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		s.fail(w, fmt.Errorf("failed to create %s: %w", s.relPath(target), err))
		return
	}

	resp := UploadResponse{Saved: []string{}, Skipped: []string{}, UploadRoot: UploadDir}
	for _, header := range r.MultipartForm.File["files"] {
		name := sanitizeFilename(header.Filename)
		if name == "" {
			resp.Skipped = append(resp.Skipped, header.Filename)
			continue
		}
		if _, ok := ingestion.DetectFileType(name); !ok {
			resp.Skipped = append(resp.Skipped, name)
			continue
		}
		dest := filepath.Join(target, name)
		if err := saveUpload(header, dest); err != nil {
			s.fail(w, fmt.Errorf("failed to save %s: %w", name, err))
			return
		}
		resp.Saved = append(resp.Saved, s.relPath(dest))
	}

	s.logger.Info("files uploaded",
		zap.Int("saved", len(resp.Saved)),
		zap.Int("skipped", len(resp.Skipped)))
	s.jsonResponse(w, http.StatusOK, resp)
}

func saveUpload(header *multipart.FileHeader, dest string) error {
	src, err := header.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// handleTree returns the upload directory as a nested tree
func (s *Server) handleTree(w http.ResponseWriter, _ *http.Request) {
	node, err := s.buildTree(s.uploadRoot)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, node)
}

// buildTree lists directories before files, each sorted case-insensitively
func (s *Server) buildTree(dir string) (*TreeNode, error) {
	node := &TreeNode{Name: filepath.Base(dir), Path: s.relPath(dir), Type: "dir", Children: []*TreeNode{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return node, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.relPath(dir), err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			child, err := s.buildTree(path)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		node.Children = append(node.Children, &TreeNode{
			Name: entry.Name(),
			Path: s.relPath(path),
			Type: "file",
			Size: info.Size(),
		})
	}
	return node, nil
}

// handleMkdir creates a directory under the upload root
func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := decodeRequest(r, &req, false); err != nil {
		s.fail(w, err)
		return
	}
	target, err := safeJoin(s.uploadRoot, req.Path)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		s.fail(w, fmt.Errorf("failed to create %s: %w", req.Path, err))
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"created": req.Path})
}

// handleDelete removes a file or directory tree under the upload root
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := decodeRequest(r, &req, false); err != nil {
		s.fail(w, err)
		return
	}
	target, err := safeJoin(s.uploadRoot, req.Path)
	if err != nil {
		s.fail(w, err)
		return
	}
	if target == s.uploadRoot {
		s.fail(w, &ErrInvalidPath{Path: req.Path})
		return
	}
	if _, err := os.Lstat(target); err != nil {
		s.fail(w, &ErrNotFound{What: req.Path})
		return
	}
	if err := os.RemoveAll(target); err != nil {
		s.fail(w, fmt.Errorf("failed to delete %s: %w", req.Path, err))
		return
	}
	s.logger.Info("path deleted", zap.String("path", req.Path))
	s.jsonResponse(w, http.StatusOK, map[string]string{"deleted": req.Path})
}

// handleDownload sends a file from the upload or runs directory. The path
// is relative to the data root, as returned by the other endpoints.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if rel == "" {
		s.fail(w, &ErrValidation{Field: "path", Message: "missing path"})
		return
	}
	full, err := safeJoin(s.dataRoot, rel)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !within(s.uploadRoot, full) && !within(s.runsRoot, full) {
		s.fail(w, &ErrInvalidPath{Path: rel})
		return
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		s.fail(w, &ErrNotFound{What: rel})
		return
	}
	f, err := os.Open(full)
	if err != nil {
		s.fail(w, &ErrNotFound{What: rel})
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name()}))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
