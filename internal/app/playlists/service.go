// Package playlists applies user edits to the local library, removes files
// no playlist references any more and schedules a sync after each edit.
package playlists

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"musicfree/internal/library"
)

var (
	// ErrPlaylistNotFound signals an unknown playlist id.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrAudioNotFound signals an audio missing from the playlist.
	ErrAudioNotFound = errors.New("audio not found")
	// ErrInvalidInput signals a payload without the required ids.
	ErrInvalidInput = errors.New("invalid input")
)

// Library captures the library access and sync scheduling the service needs.
type Library interface {
	Library(ctx context.Context) (library.Config, error)
	UpdateLibrary(ctx context.Context, fn func(library.Config) (library.Config, error)) (library.Config, error)
	Trigger(ctx context.Context, manual bool) bool
}

// Files removes downloaded assets.
type Files interface {
	Remove(ctx context.Context, path string) error
}

// Service coordinates library edits.
type Service interface {
	Library(ctx context.Context) (library.Config, error)
	AddPlaylist(ctx context.Context, playlist library.LocalPlaylist) (library.Config, error)
	DeletePlaylist(ctx context.Context, id string) (library.Config, error)
	AddAudios(ctx context.Context, audios []library.LocalAudio) (library.Config, error)
	DeleteAudio(ctx context.Context, playlistID, audioID string) (library.Config, error)
	ToggleFavorite(ctx context.Context, audio library.LocalAudio) (library.Config, bool, error)
	IsFavorite(ctx context.Context, audioID string) (bool, error)
}

type service struct {
	lib   Library
	files Files
}

// New constructs a Service.
func New(lib Library, files Files) Service {
	return &service{lib: lib, files: files}
}

func (s *service) Library(ctx context.Context) (library.Config, error) {
	if err := ctx.Err(); err != nil {
		return library.Config{}, err
	}
	return s.lib.Library(ctx)
}

func (s *service) AddPlaylist(ctx context.Context, playlist library.LocalPlaylist) (library.Config, error) {
	if playlist.ID == "" {
		return library.Config{}, fmt.Errorf("%w: playlist id is required", ErrInvalidInput)
	}
	if err := validateAudios(playlist.Audios); err != nil {
		return library.Config{}, err
	}
	return s.edit(ctx, func(cfg library.Config) (library.Config, error) {
		return library.AddPlaylist(cfg, playlist), nil
	})
}

func (s *service) DeletePlaylist(ctx context.Context, id string) (library.Config, error) {
	var removed *library.LocalPlaylist
	next, err := s.edit(ctx, func(cfg library.Config) (library.Config, error) {
		out, hit, err := library.DeletePlaylist(cfg, id)
		if err != nil {
			return library.Config{}, err
		}
		if hit == nil {
			return library.Config{}, ErrPlaylistNotFound
		}
		removed = hit
		return out, nil
	})
	if err != nil {
		return library.Config{}, err
	}
	s.removeOrphans(ctx, library.OrphanedPaths(next, removed.CoverPath, removed.Audios))
	return next, nil
}

func (s *service) AddAudios(ctx context.Context, audios []library.LocalAudio) (library.Config, error) {
	if len(audios) == 0 {
		return library.Config{}, fmt.Errorf("%w: no audios given", ErrInvalidInput)
	}
	if err := validateAudios(audios); err != nil {
		return library.Config{}, err
	}
	return s.edit(ctx, func(cfg library.Config) (library.Config, error) {
		return library.AddAudios(cfg, audios), nil
	})
}

// DeleteAudio removes the audio from the playlist. Files are kept when the
// audio is only removed from favorites.
func (s *service) DeleteAudio(ctx context.Context, playlistID, audioID string) (library.Config, error) {
	var removed *library.LocalAudio
	next, err := s.edit(ctx, func(cfg library.Config) (library.Config, error) {
		if _, ok := cfg.Playlist(playlistID); !ok {
			return library.Config{}, ErrPlaylistNotFound
		}
		out, hit := library.DeleteAudio(cfg, audioID, playlistID)
		if hit == nil {
			return library.Config{}, ErrAudioNotFound
		}
		removed = hit
		return out, nil
	})
	if err != nil {
		return library.Config{}, err
	}
	if library.KindOf(playlistID) != library.KindFavorites {
		s.removeOrphans(ctx, library.OrphanedPaths(next, nil, []library.LocalAudio{*removed}))
	}
	return next, nil
}

func (s *service) ToggleFavorite(ctx context.Context, audio library.LocalAudio) (library.Config, bool, error) {
	if audio.Audio.ID == "" {
		return library.Config{}, false, fmt.Errorf("%w: audio id is required", ErrInvalidInput)
	}
	var favorite bool
	next, err := s.edit(ctx, func(cfg library.Config) (library.Config, error) {
		var out library.Config
		out, favorite = library.ToggleFavorite(cfg, audio)
		return out, nil
	})
	if err != nil {
		return library.Config{}, false, err
	}
	return next, favorite, nil
}

func (s *service) IsFavorite(ctx context.Context, audioID string) (bool, error) {
	cfg, err := s.Library(ctx)
	if err != nil {
		return false, err
	}
	return library.IsFavorite(cfg, audioID), nil
}

// edit saves the mutation and schedules a background sync. A pass already in
// flight picks the edit up when it persists.
func (s *service) edit(ctx context.Context, fn func(library.Config) (library.Config, error)) (library.Config, error) {
	if err := ctx.Err(); err != nil {
		return library.Config{}, err
	}
	next, err := s.lib.UpdateLibrary(ctx, fn)
	if err != nil {
		return library.Config{}, err
	}
	if !s.lib.Trigger(ctx, false) {
		log.Debug().Msg("sync already running, edit will be folded in")
	}
	return next, nil
}

func (s *service) removeOrphans(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.files.Remove(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to remove orphaned file")
		}
	}
}

func validateAudios(audios []library.LocalAudio) error {
	for i, a := range audios {
		if a.Audio.ID == "" {
			return fmt.Errorf("%w: audio %d has no id", ErrInvalidInput, i)
		}
	}
	return nil
}
