package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"musicfree/internal/library"
)

type audiosRequest struct {
	Audios []library.LocalAudio `json:"audios"`
}

type favoriteResponse struct {
	AudioID  string `json:"audio_id"`
	Favorite bool   `json:"favorite"`
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.library.Library(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleAddPlaylist(w http.ResponseWriter, r *http.Request) {
	var playlist library.LocalPlaylist
	if !decodeJSON(w, r, &playlist) {
		return
	}
	if playlist.Platform == "" {
		playlist.Platform = library.DefaultPlatform
	}
	cfg, err := s.library.AddPlaylist(r.Context(), playlist)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.library.DeletePlaylist(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleAddAudios(w http.ResponseWriter, r *http.Request) {
	var req audiosRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg, err := s.library.AddAudios(r.Context(), req.Audios)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleDeleteAudio(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cfg, err := s.library.DeleteAudio(r.Context(), vars["id"], vars["audioID"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var audio library.LocalAudio
	if !decodeJSON(w, r, &audio) {
		return
	}
	_, favorite, err := s.library.ToggleFavorite(r.Context(), audio)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResponse{AudioID: audio.Audio.ID, Favorite: favorite})
}

func (s *Server) handleIsFavorite(w http.ResponseWriter, r *http.Request) {
	audioID := mux.Vars(r)["audioID"]
	favorite, err := s.library.IsFavorite(r.Context(), audioID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResponse{AudioID: audioID, Favorite: favorite})
}
