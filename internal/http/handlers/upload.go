package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

const maxUploadBytes = 10 << 20

var allowedImageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

type uploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Upload accepts a multipart image and writes it to the temporary storage
// tier. The object stays there until a save promotes it or cleanup reaps it.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowedImageExts[ext]; !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported image type")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable file")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "empty file")
		return
	}

	url, key, err := a.Media.Store(r.Context(), data, strings.TrimPrefix(ext, "."))
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("upload: store failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store upload")
		return
	}
	a.json(w, http.StatusCreated, uploadResponse{URL: url, Key: key})
}
