// Package httpapi exposes the control API of the sync daemon.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"musicfree/internal/app/playlists"
	"musicfree/internal/library"
	"musicfree/internal/middleware"
	"musicfree/internal/remote"
	"musicfree/internal/syncer"
)

// AuthService issues and checks control API tokens.
type AuthService interface {
	Login(password string) (string, time.Time, error)
	Validate(token string) (string, error)
}

// LibraryService coordinates library edits.
type LibraryService interface {
	Library(ctx context.Context) (library.Config, error)
	AddPlaylist(ctx context.Context, playlist library.LocalPlaylist) (library.Config, error)
	DeletePlaylist(ctx context.Context, id string) (library.Config, error)
	AddAudios(ctx context.Context, audios []library.LocalAudio) (library.Config, error)
	DeleteAudio(ctx context.Context, playlistID, audioID string) (library.Config, error)
	ToggleFavorite(ctx context.Context, audio library.LocalAudio) (library.Config, bool, error)
	IsFavorite(ctx context.Context, audioID string) (bool, error)
}

// SyncService exposes the sync runner.
type SyncService interface {
	Snapshot() syncer.StatusSnapshot
	Trigger(ctx context.Context, manual bool) bool
	Runs(ctx context.Context, limit int) ([]syncer.Run, error)
	Params(ctx context.Context) (syncer.Params, error)
	UpdateParams(ctx context.Context, fn func(syncer.Params) (syncer.Params, error)) (syncer.Params, error)
	RemoteInfo(ctx context.Context) (*remote.FileInfo, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	auth           AuthService
	library        LibraryService
	sync           SyncService
	allowedOrigins []string
}

// New configures a Server.
func New(auth AuthService, lib LibraryService, sync SyncService, allowedOrigins []string) *Server {
	return &Server{
		auth:           auth,
		library:        lib,
		sync:           sync,
		allowedOrigins: allowedOrigins,
	}
}

// Routes returns the router wrapped in the shared middleware. CORS sits
// outside the router so preflight requests never reach method matching.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.RequireAuth(s.auth))

	protected.HandleFunc("/library", s.handleLibrary).Methods(http.MethodGet)
	protected.HandleFunc("/playlists", s.handleAddPlaylist).Methods(http.MethodPost)
	protected.HandleFunc("/playlists/{id}", s.handleDeletePlaylist).Methods(http.MethodDelete)
	protected.HandleFunc("/playlists/{id}/audios/{audioID}", s.handleDeleteAudio).Methods(http.MethodDelete)
	protected.HandleFunc("/audios", s.handleAddAudios).Methods(http.MethodPost)
	protected.HandleFunc("/favorites", s.handleToggleFavorite).Methods(http.MethodPost)
	protected.HandleFunc("/favorites/{audioID}", s.handleIsFavorite).Methods(http.MethodGet)

	protected.HandleFunc("/sync", s.handleTriggerSync).Methods(http.MethodPost)
	protected.HandleFunc("/sync/status", s.handleSyncStatus).Methods(http.MethodGet)
	protected.HandleFunc("/sync/runs", s.handleSyncRuns).Methods(http.MethodGet)
	protected.HandleFunc("/sync/settings", s.handleGetSettings).Methods(http.MethodGet)
	protected.HandleFunc("/sync/settings", s.handleUpdateSettings).Methods(http.MethodPut)
	protected.HandleFunc("/sync/remote", s.handleRemoteInfo).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = middleware.CORS(s.allowedOrigins)(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.Recovery()(handler)
	return handler
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, expires, err := s.auth.Login(req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

// respondError maps service errors to status codes.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, playlists.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, playlists.ErrPlaylistNotFound), errors.Is(err, playlists.ErrAudioNotFound):
		status = http.StatusNotFound
	case errors.Is(err, library.ErrReservedPlaylist), errors.Is(err, syncer.ErrSyncInProgress):
		status = http.StatusConflict
	case errors.Is(err, syncer.ErrNotConfigured):
		status = http.StatusPreconditionFailed
	case errors.Is(err, syncer.ErrOffline):
		status = http.StatusServiceUnavailable
	case errors.Is(err, syncer.ErrInspectUnsupported):
		status = http.StatusNotImplemented
	case errors.Is(err, remote.ErrInvalidRepoURL):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
