package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"telecast/pkg/logx"
)

// Image extensions the upload endpoint accepts. Anything else is rejected
// before touching disk.
var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// handleUploadImage stores a multipart image under a random name and returns
// the URL a broadcast can reference as image_url.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.uploads.MaxBytesOrDefault()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExt[ext] {
		writeError(w, http.StatusBadRequest, "unsupported image type")
		return
	}

	dir := s.uploads.DirOrDefault()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error("create uploads dir", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not store image")
		return
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		s.log.Error("create upload file", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not store image")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		s.log.Error("write upload file", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "could not store image")
		return
	}

	prefix := s.uploads.PublicURL
	if prefix == "" {
		prefix = "/uploads"
	}
	writeData(w, http.StatusCreated, struct {
		URL string `json:"url"`
	}{strings.TrimRight(prefix, "/") + "/" + name})
}
