package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-ha/reolink-nvr/addon/internal/configsync"
	"github.com/micro-ha/reolink-nvr/addon/internal/coordinator"
	"github.com/micro-ha/reolink-nvr/addon/internal/service"
	"github.com/micro-ha/reolink-nvr/addon/internal/storage"
)

type API struct {
	service     *service.Service
	coordinator *coordinator.Coordinator
	config      *configsync.Manager
	logger      *slog.Logger
	staticDir   string
}

func New(svc *service.Service, coord *coordinator.Coordinator, cfg *configsync.Manager, logger *slog.Logger, staticDir string) *API {
	return &API{service: svc, coordinator: coord, config: cfg, logger: logger, staticDir: staticDir}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(20 * time.Second))
	r.Use(stripIngressPrefix)
	r.Use(requestLogger(a.logger))

	r.Get("/healthz", a.health)
	r.Route("/api", func(api chi.Router) {
		api.Get("/devices", a.listDevices)
		api.Get("/devices/{id}", a.getDevice)
		api.Get("/entities", a.listEntities)
		api.Get("/cameras", a.listCameras)
		api.Get("/cameras/{channel}", a.getCamera)
		api.Post("/cameras/{channel}/register", a.registerCamera)
		api.Patch("/cameras/{channel}", a.patchCamera)
		api.Get("/events", a.listEvents)
		api.Post("/refresh", a.refresh)
	})

	r.Get("/*", a.static)
	r.Get("/", a.static)
	return r
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	_, configured := a.config.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"configured": configured,
		"available":  a.service.Available(),
	})
}

func (a *API) listDevices(w http.ResponseWriter, _ *http.Request) {
	if _, ok := a.config.Get(); !ok {
		writeError(w, http.StatusConflict, "integration_not_configured", "Integration not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": a.service.Devices()})
}

func (a *API) getDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, device := range a.service.Devices() {
		if device.Identifier == id {
			writeJSON(w, http.StatusOK, device)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Device not found")
}

func (a *API) listEntities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.service.EntityViews()})
}

func (a *API) listCameras(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListCameras(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getCamera(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(w, r)
	if !ok {
		return
	}
	camera, err := a.service.GetCamera(r.Context(), channel)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Camera not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, camera)
}

func (a *API) registerCamera(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(w, r)
	if !ok {
		return
	}
	var payload service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if err := a.service.RegisterCamera(r.Context(), channel, payload); err != nil {
		writeError(w, http.StatusInternalServerError, "register_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (a *API) patchCamera(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(w, r)
	if !ok {
		return
	}
	var payload service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if err := a.service.PatchCamera(r.Context(), channel, payload); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Camera override not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "patch_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	var channel *int
	if raw := strings.TrimSpace(r.URL.Query().Get("channel")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writeError(w, http.StatusBadRequest, "invalid_channel_filter", "channel must be a non-negative integer")
			return
		}
		channel = &value
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = value
	}
	items, err := a.service.ListEvents(r.Context(), channel, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) refresh(w http.ResponseWriter, _ *http.Request) {
	a.coordinator.TriggerRefresh()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (a *API) static(w http.ResponseWriter, r *http.Request) {
	if a.staticDir == "" {
		writeError(w, http.StatusNotFound, "frontend_missing", "Frontend dist not found")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}
	cleanPath := strings.TrimPrefix(filepath.Clean("/"+path), "/")
	fullPath := filepath.Join(a.staticDir, cleanPath)
	if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, fullPath)
		return
	}
	http.ServeFile(w, r, filepath.Join(a.staticDir, "index.html"))
}

func parseChannel(w http.ResponseWriter, r *http.Request) (int, bool) {
	channel, err := strconv.Atoi(chi.URLParam(r, "channel"))
	if err != nil || channel < 0 {
		writeError(w, http.StatusBadRequest, "invalid_channel", "channel must be a non-negative integer")
		return 0, false
	}
	return channel, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
