package handler

import (
	"apexlens/internal/adapters/file"
	"apexlens/internal/core/domain"
	"apexlens/internal/core/domain/preset"
	"apexlens/internal/core/service"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	SessionCookie = "apexlens_session"
	uploadField   = "image"
	// multipart parts above this size spill to temporary files
	multipartMemory = 8 << 20
)

// Web serves the browser front-end. Every request is bound to one session controller through a
// cookie.
type Web struct {
	sessions       *service.Sessions
	catalog        *preset.Catalog
	renderer       *Renderer
	maxUploadBytes int64
}

func NewWeb(sessions *service.Sessions, catalog *preset.Catalog, renderer *Renderer, maxUploadBytes int64) *Web {
	return &Web{
		sessions:       sessions,
		catalog:        catalog,
		renderer:       renderer,
		maxUploadBytes: maxUploadBytes,
	}
}

// Router wires the routes and middleware.
func (h *Web) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatal().Err(err).Msg("embedded static assets missing")
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", h.index)
	r.Get("/api/state", h.state)
	r.Get("/download", h.download)
	r.Post("/upload", h.upload)
	r.Post("/enhance", h.enhance)
	r.Post("/compare", h.compare)
	r.Post("/reset", h.reset)
	r.Post("/analyze", h.analyze)

	return r
}

func (h *Web) index(w http.ResponseWriter, r *http.Request) {
	var view PageView
	if c, ok := h.lookup(r); ok {
		view = NewPageView(c.Snapshot(), h.catalog.List(), c.CanAnalyze())
	} else {
		view = NewPageView(domain.Snapshot{}, h.catalog.List(), false)
	}

	h.renderer.Render(w, http.StatusOK, "index.html", view)
}

func (h *Web) state(w http.ResponseWriter, r *http.Request) {
	var snapshot domain.Snapshot
	if c, ok := h.lookup(r); ok {
		snapshot = c.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(newStateResponse(snapshot)); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode state")
	}
}

func (h *Web) upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	fh, err := file.FirstFile(r.MultipartForm, uploadField)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	image, err := file.ReadUpload(fh)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to read upload")
		http.Error(w, "could not read upload", http.StatusBadRequest)
		return
	}

	c, ok := h.session(w, r)
	if !ok {
		return
	}

	c.Upload(image)
	zerolog.Ctx(r.Context()).Debug().
		Str("filename", fh.Filename).
		Int64("size", fh.Size).
		Str("mime", image.MIMEType()).
		Msg("image uploaded")

	redirectHome(w, r)
}

func (h *Web) enhance(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(r)
	if !ok {
		redirectHome(w, r)
		return
	}

	instruction := r.FormValue("instruction")
	if id := r.FormValue("preset"); id != "" {
		p, err := h.catalog.Get(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		instruction = p.Instruction
	}

	req, err := c.Begin(instruction)
	switch {
	case errors.Is(err, domain.ErrNoOriginal):
		redirectHome(w, r)
		return
	case errors.Is(err, domain.ErrEmptyInstruction):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logger := zerolog.Ctx(r.Context())
	go func() {
		err := c.Run(context.Background(), req)
		if err != nil && !errors.Is(err, domain.ErrStale) {
			logger.Err(err).Uint64("generation", req.Generation).Msg("failed to enhance image")
		}
	}()

	redirectHome(w, r)
}

func (h *Web) compare(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(r)
	if !ok {
		redirectHome(w, r)
		return
	}

	on, err := strconv.ParseBool(r.FormValue("on"))
	if err != nil {
		on = !c.Snapshot().Comparing
	}
	c.SetComparing(on)

	redirectHome(w, r)
}

func (h *Web) reset(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(r)
	if !ok {
		redirectHome(w, r)
		return
	}

	c.Reset()
	redirectHome(w, r)
}

func (h *Web) analyze(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(r)
	if !ok {
		redirectHome(w, r)
		return
	}

	err := c.Analyze(r.Context())
	switch {
	case err == nil, errors.Is(err, domain.ErrStale), errors.Is(err, domain.ErrNoOriginal):
		redirectHome(w, r)
	case errors.Is(err, domain.ErrNoAnalyzer):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	default:
		zerolog.Ctx(r.Context()).Err(err).Msg("failed to analyze image")
		http.Error(w, "image analysis failed", http.StatusBadGateway)
	}
}

func (h *Web) download(w http.ResponseWriter, r *http.Request) {
	var snapshot domain.Snapshot
	if c, ok := h.lookup(r); ok {
		snapshot = c.Snapshot()
	}

	if !snapshot.State.HasEdit() {
		http.Error(w, domain.ErrNoEdit.Error(), http.StatusNotFound)
		return
	}

	data, mimeType, err := snapshot.State.Edited.Decode()
	if err != nil {
		zerolog.Ctx(r.Context()).Err(err).Msg("failed to decode enhanced image")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+domain.DownloadFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// lookup resolves the controller for the request cookie without starting a session.
func (h *Web) lookup(r *http.Request) (*service.Controller, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}

	return h.sessions.Get(strings.TrimSpace(cookie.Value))
}

// session resolves the controller for the request cookie, starting a new session when the
// cookie is missing or has expired. Only uploads start sessions.
func (h *Web) session(w http.ResponseWriter, r *http.Request) (*service.Controller, bool) {
	var id string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = strings.TrimSpace(cookie.Value)
	}

	newID, c, err := h.sessions.GetOrCreate(id)
	if err != nil {
		zerolog.Ctx(r.Context()).Err(err).Msg("failed to create session")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}

	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return c, true
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
