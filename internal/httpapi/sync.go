package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"musicfree/internal/remote"
	"musicfree/internal/syncer"
)

// settingsResponse never carries the token itself.
type settingsResponse struct {
	RepoURL       string     `json:"repo_url"`
	HasToken      bool       `json:"has_token"`
	Transport     string     `json:"transport"`
	Interval      string     `json:"interval"`
	LastSyncTime  *time.Time `json:"last_sync_time,omitempty"`
	LastRemoteSHA string     `json:"last_remote_sha,omitempty"`
}

// settingsRequest updates only the fields that are present.
type settingsRequest struct {
	RepoURL   *string `json:"repo_url"`
	Token     *string `json:"token"`
	Transport *string `json:"transport"`
	Interval  *string `json:"interval"`
}

func newSettingsResponse(p syncer.Params) settingsResponse {
	transport := p.Transport
	if transport == "" {
		transport = syncer.TransportGitHub
	}
	return settingsResponse{
		RepoURL:       p.RepoURL,
		HasToken:      p.Token != "",
		Transport:     string(transport),
		Interval:      p.SyncInterval().String(),
		LastSyncTime:  p.LastSyncTime,
		LastRemoteSHA: p.LastRemoteSHA,
	}
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	params, err := s.sync.Params(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !params.Configured() {
		respondError(w, r, syncer.ErrNotConfigured)
		return
	}
	if !s.sync.Trigger(r.Context(), true) {
		respondError(w, r, syncer.ErrSyncInProgress)
		return
	}
	writeJSON(w, http.StatusAccepted, s.sync.Snapshot())
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.Snapshot())
}

func (s *Server) handleSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.sync.Runs(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]syncer.Run{"runs": runs})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	params, err := s.sync.Params(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(params))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		transport *syncer.Transport
		interval  *time.Duration
	)
	if req.Transport != nil {
		t := syncer.Transport(strings.ToLower(strings.TrimSpace(*req.Transport)))
		if !t.Valid() {
			writeError(w, http.StatusBadRequest, "transport must be one of: github, git")
			return
		}
		transport = &t
	}
	if req.Interval != nil {
		d, err := time.ParseDuration(*req.Interval)
		if err != nil || d < 10*time.Second {
			writeError(w, http.StatusBadRequest, "interval must be a duration of at least 10s")
			return
		}
		interval = &d
	}

	// The url is validated against the merged params under the update lock.
	next, err := s.sync.UpdateParams(r.Context(), func(p syncer.Params) (syncer.Params, error) {
		if req.RepoURL != nil {
			p.RepoURL = strings.TrimSpace(*req.RepoURL)
		}
		if req.Token != nil {
			p.Token = strings.TrimSpace(*req.Token)
		}
		if transport != nil {
			p.Transport = *transport
		}
		if interval != nil {
			p.Interval = *interval
		}
		if err := validateRepoURL(p.RepoURL, p.Transport); err != nil {
			return syncer.Params{}, err
		}
		return p, nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(next))
}

// validateRepoURL accepts an empty url, which disables syncing. The git
// transport also takes any clone url.
func validateRepoURL(repoURL string, t syncer.Transport) error {
	if repoURL == "" {
		return nil
	}
	if t == syncer.TransportGit && strings.Contains(repoURL, "://") {
		return nil
	}
	_, err := remote.ParseRepoURL(repoURL)
	return err
}

func (s *Server) handleRemoteInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.sync.RemoteInfo(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if info == nil {
		writeError(w, http.StatusNotFound, "remote library not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
