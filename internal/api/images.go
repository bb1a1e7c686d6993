package api

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fieldlens/arv/internal/imageutil"
	"github.com/fieldlens/arv/internal/models"
)

// thumbnail serves a scaled-down copy of a dataset image. Paths are
// resolved relative to the configured image root; anything escaping it
// is rejected.
func (s *Server) thumbnail(w http.ResponseWriter, r *http.Request, _ *models.ReviewSession) {
	if s.imageRoot == "" {
		writeError(w, http.StatusNotFound, "image serving is not configured")
		return
	}

	path := cleanImagePath(s.imageRoot, r.URL.Query().Get("path"))
	if path == "" {
		writeError(w, http.StatusBadRequest, "invalid image path")
		return
	}

	maxSize := imageutil.DefaultMaxSize
	if v := r.URL.Query().Get("max_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid max_size")
			return
		}
		maxSize = n
	}

	img, err := imageutil.Thumbnail(path, maxSize)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_ = imageutil.EncodePNG(w, img)
}

// newRequestID generates a ULID for request log correlation.
func newRequestID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
