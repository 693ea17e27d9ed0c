package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/correlli/dify-pptx-app/internal/auth"
	"github.com/correlli/dify-pptx-app/internal/config"
	"github.com/correlli/dify-pptx-app/internal/pptx"
	"github.com/correlli/dify-pptx-app/internal/rate"
	"github.com/correlli/dify-pptx-app/internal/store"
	"github.com/correlli/dify-pptx-app/internal/store/filestore"

	_ "github.com/correlli/dify-pptx-app/docs" // swagger docs

	httpSwagger "github.com/swaggo/http-swagger"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

type Server struct {
	store   store.Store
	auth    *auth.Service
	limiter rate.Limiter
	cfg     config.Config
	log     *zap.Logger
	router  *mux.Router
}

func NewServer(st store.Store, authSvc *auth.Service, limiter rate.Limiter, cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{store: st, auth: authSvc, limiter: limiter, cfg: cfg, log: log}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanic)
	r.Use(s.requestLogger)
	r.Use(corsHeaders)

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/routes", s.handleRoutes).Methods(http.MethodGet)
	r.HandleFunc("/create-slide", s.requireAuth(s.handleCreateSlide)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/download-presentation", s.requireAuth(s.handleDownload)).Methods(http.MethodGet, http.MethodOptions)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

// requireAuth wraps a handler with the shared-secret gate. The key arrives
// in the X-API-Key header; nothing past the gate runs without it.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			// CORS preflight carries no credentials.
			w.WriteHeader(http.StatusOK)
			return
		}
		if err := s.auth.Authenticate(r.Header.Get("X-API-Key")); err != nil {
			writeError(w, http.StatusUnauthorized, errors.New("invalid or missing api key"))
			return
		}
		next(w, r)
	}
}

// handleHome godoc
//
//	@Summary	Service status
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/ [get]
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Presentation slide service is running",
	})
}

// handleRoutes godoc
//
//	@Summary	List registered routes
//	@Produce	json
//	@Success	200	{object}	map[string][]string
//	@Router		/routes [get]
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	var routes []string
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		if methods, err := route.GetMethods(); err == nil {
			tmpl = fmt.Sprintf("%s (%s)", tmpl, strings.Join(methods, ","))
		}
		routes = append(routes, tmpl)
		return nil
	})
	sort.Strings(routes)
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

type createSlideRequest struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	PresentationID string `json:"presentationId"`
	SlideLayout    string `json:"slideLayout"`
}

type createSlideResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	PresentationID string `json:"presentationId"`
}

// handleCreateSlide godoc
//
//	@Summary		Append a slide
//	@Description	Appends one slide to the presentation, creating the presentation on first use. Unknown slideLayout values fall back to "Title and Content".
//	@Tags			Slides
//	@Accept			json
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			slide	body		createSlideRequest	true	"Slide data"
//	@Success		200		{object}	createSlideResponse
//	@Failure		400		{object}	map[string]string	"Missing fields or invalid id"
//	@Failure		401		{object}	map[string]string	"Invalid api key"
//	@Failure		429		{object}	map[string]string	"Rate limited"
//	@Failure		500		{object}	map[string]string	"Storage failure"
//	@Router			/create-slide [post]
func (s *Server) handleCreateSlide(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r) {
		return
	}

	var req createSlideRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid json body"))
		return
	}
	if req.Title == "" || req.Content == "" || req.PresentationID == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing required fields: title, content, presentationId"))
		return
	}

	id, err := store.ParseID(req.PresentationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid presentationId"))
		return
	}

	h, err := s.store.OpenOrCreate(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	defer h.Close()

	if err := h.Doc().AppendSlide(req.Title, req.Content, req.SlideLayout); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := s.store.Persist(r.Context(), h); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, createSlideResponse{
		Success:        true,
		Message:        "Slide added successfully",
		PresentationID: id.String(),
	})
}

// handleDownload godoc
//
//	@Summary	Download a presentation
//	@Tags		Presentations
//	@Produce	application/vnd.openxmlformats-officedocument.presentationml.presentation
//	@Security	ApiKeyAuth
//	@Param		presentationId	query	string	true	"Presentation id"
//	@Success	200				{file}	binary
//	@Failure	400				{object}	map[string]string	"Missing or invalid id"
//	@Failure	401				{object}	map[string]string	"Invalid api key"
//	@Failure	404				{object}	map[string]string	"Presentation not found"
//	@Router		/download-presentation [get]
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("presentationId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing presentationId query parameter"))
		return
	}
	id, err := store.ParseID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid presentationId"))
		return
	}

	rc, size, err := s.store.Fetch(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", pptxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.String()+filestore.Extension))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are gone; nothing to send but the log line.
		s.log.Warn("download stream interrupted",
			zap.String("presentation_id", id.String()), zap.Error(err))
	}
}

// writeStoreError maps domain errors onto HTTP statuses. Unexpected errors
// become a generic 500 so internals never leak to the caller.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidID) || errors.Is(err, pptx.ErrEmptySlideText):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, errors.New("presentation not found"))
	default:
		s.log.Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request) bool {
	limit := s.cfg.RateLimits.SlidePerMinute
	if limit <= 0 {
		return true
	}
	key := r.Header.Get("X-API-Key")
	if key == "" {
		key = clientIP(r)
	}
	if ok, retry := s.limiter.Allow("slide:"+key, limit, time.Minute); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(rec, r)

		s.log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", clientIP(r)),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panic",
					zap.String("path", r.URL.Path), zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, errors.New("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(dest)
}
