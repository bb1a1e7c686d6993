// Package api exposes the review workflow as a JSON HTTP API. This is
// the functional contract the interactive display surface builds on;
// rendering itself lives outside the core.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fieldlens/arv/internal/models"
	"github.com/fieldlens/arv/internal/review"
	"github.com/fieldlens/arv/internal/sessions"
)

// Server provides the REST API handlers.
type Server struct {
	creds    *sessions.Credentials
	sessions sessions.Store
	engine   *review.Engine

	// imageRoot confines thumbnail requests; empty disables image serving.
	imageRoot string
}

// NewServer creates a new API server.
func NewServer(creds *sessions.Credentials, store sessions.Store, engine *review.Engine, imageRoot string) *Server {
	return &Server{
		creds:     creds,
		sessions:  store,
		engine:    engine,
		imageRoot: imageRoot,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/login", s.login)

	mux.HandleFunc("GET /api/v1/annotations/{index}", s.withSession(s.getAnnotation))
	mux.HandleFunc("GET /api/v1/annotations/{index}/candidate/{source}", s.withSession(s.getCandidate))
	mux.HandleFunc("POST /api/v1/session/advance", s.withSession(s.advance))
	mux.HandleFunc("POST /api/v1/reviews", s.withSession(s.submitReview))

	mux.HandleFunc("GET /api/v1/catalog/crops", s.withSession(s.listCrops))
	mux.HandleFunc("GET /api/v1/catalog/issues", s.withSession(s.listIssues))

	mux.HandleFunc("GET /api/v1/images/thumbnail", s.withSession(s.thumbnail))

	return corsMiddleware(requestLogger(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionHandler is an authenticated handler: the session is resolved,
// locked for the duration of the request, and passed through.
type sessionHandler func(w http.ResponseWriter, r *http.Request, session *models.ReviewSession)

// withSession resolves and locks the bearer-token session. Unknown or
// missing tokens get a uniform 401 so callers know to log in again.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "session invalid, please log in again")
			return
		}
		session := s.sessions.Resolve(token)
		if session == nil {
			writeError(w, http.StatusUnauthorized, "session invalid, please log in again")
			return
		}

		// Serialize concurrent requests on the same token.
		session.Lock()
		defer session.Unlock()

		next(w, r, session)
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !s.creds.Authenticate(req.Username, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	session, err := s.sessions.Open(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: session.Token, Username: session.Username})
}

// --- Annotations ---

type candidateView struct {
	Crop   string   `json:"crop"`
	Labels []string `json:"labels"`
	// Display is the comma-joined rendering, "No labels" when empty.
	Display string `json:"display"`
}

type annotationResponse struct {
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Position  string        `json:"position"`
	ImagePath string        `json:"image_path"`
	A         candidateView `json:"candidate_a"`
	B         candidateView `json:"candidate_b"`
}

func (s *Server) getAnnotation(w http.ResponseWriter, r *http.Request, session *models.ReviewSession) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid annotation index")
		return
	}

	result, err := s.engine.View(session, index)
	if err != nil {
		if errors.Is(err, review.ErrIndexOutOfRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, annotationResponse{
		Index:     result.Pair.Index,
		Total:     result.Total,
		Position:  result.Position,
		ImagePath: result.Pair.ImagePath,
		A: candidateView{
			Crop:    result.Pair.A.Crop,
			Labels:  result.Pair.A.Labels,
			Display: result.LabelsA,
		},
		B: candidateView{
			Crop:    result.Pair.B.Crop,
			Labels:  result.Pair.B.Labels,
			Display: result.LabelsB,
		},
	})
}

func (s *Server) getCandidate(w http.ResponseWriter, r *http.Request, _ *models.ReviewSession) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid annotation index")
		return
	}
	source := models.SelectedSource(r.PathValue("source"))
	if !source.Valid() {
		writeError(w, http.StatusBadRequest, "unknown annotation source (use label1 or label2)")
		return
	}

	// Read-only preview: resolve the pair without moving the cursor.
	pair, err := s.engine.Pair(index)
	if err != nil {
		if errors.Is(err, review.ErrIndexOutOfRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	candidate := review.Select(pair, source)
	writeJSON(w, http.StatusOK, candidateView{
		Crop:    candidate.Crop,
		Labels:  candidate.Labels,
		Display: review.FormatLabels(candidate.Labels),
	})
}

type advanceRequest struct {
	Delta int `json:"delta"`
}

type advanceResponse struct {
	Cursor   int    `json:"cursor"`
	Position string `json:"position"`
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request, session *models.ReviewSession) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	cursor, err := s.engine.Advance(session, req.Delta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, advanceResponse{
		Cursor:   cursor,
		Position: "Moved to annotation " + strconv.Itoa(cursor+1),
	})
}

// --- Reviews ---

type reviewRequest struct {
	Selected models.SelectedSource `json:"selected_annotation"`
	Crop     string                `json:"reviewer_crop"`
	Labels   []string              `json:"reviewer_labels"`
	Comments string                `json:"comments"`
}

type reviewResponse struct {
	Message    string `json:"message"`
	Reviewer   string `json:"reviewer"`
	RecordName string `json:"record_name"`
}

func (s *Server) submitReview(w http.ResponseWriter, r *http.Request, session *models.ReviewSession) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := s.engine.Submit(session, req.Selected, req.Crop, req.Labels, req.Comments)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrValidation), errors.Is(err, review.ErrIndexOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, reviewResponse{
		Message:    "Review saved successfully by " + result.Reviewer + " to " + result.RecordName,
		Reviewer:   result.Reviewer,
		RecordName: result.RecordName,
	})
}

// --- Catalog ---

func (s *Server) listCrops(w http.ResponseWriter, _ *http.Request, _ *models.ReviewSession) {
	writeJSON(w, http.StatusOK, map[string][]string{"crops": s.engine.Catalog().Crops()})
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request, _ *models.ReviewSession) {
	crop := r.URL.Query().Get("crop")
	if crop == "" {
		writeError(w, http.StatusBadRequest, "crop query parameter is required")
		return
	}
	issues := s.engine.Catalog().Issues(crop)
	if issues == nil {
		issues = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"issues": issues})
}

// cleanImagePath resolves a requested image path under root, rejecting
// escapes. Returns "" when the path is not allowed.
func cleanImagePath(root, requested string) string {
	if root == "" || requested == "" {
		return ""
	}
	joined := filepath.Join(root, filepath.Clean("/"+requested))
	rel, err := filepath.Rel(root, joined)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return joined
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("request", "id", newRequestID(), "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
