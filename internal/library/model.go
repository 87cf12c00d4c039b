// Package library models the synced music library document and the pure
// functions that diff and merge snapshots of it.
package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidConfig reports a payload that does not have the Config shape.
var ErrInvalidConfig = errors.New("invalid library config")

// Audio is a single track as known to its source platform.
type Audio struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	DownloadURL string   `json:"download_url"`
	Cover       string   `json:"cover,omitempty"`
	Platform    string   `json:"platform"`
	Duration    *float64 `json:"duration,omitempty"`
}

// LocalAudio is an Audio that has been downloaded on this device.
// Path and CoverPath only make sense on the device that wrote them.
type LocalAudio struct {
	Audio     Audio   `json:"audio"`
	Path      string  `json:"path"`
	CoverPath *string `json:"cover_path"`
}

// LocalPlaylist is an ordered collection of downloaded audios.
type LocalPlaylist struct {
	ID          string       `json:"id"`
	Title       string       `json:"title,omitempty"`
	Cover       string       `json:"cover,omitempty"`
	CoverPath   *string      `json:"cover_path"`
	Audios      []LocalAudio `json:"audios"`
	Platform    string       `json:"platform"`
	DownloadURL string       `json:"download_url,omitempty"`
}

// Kind returns the reserved-playlist variant of the playlist.
func (p LocalPlaylist) Kind() Kind {
	return KindOf(p.ID)
}

// Find returns the index of the audio with the given id, or -1.
func (p LocalPlaylist) Find(audioID string) int {
	for i, a := range p.Audios {
		if a.Audio.ID == audioID {
			return i
		}
	}
	return -1
}

// Config is the root library document, persisted locally and synced remotely.
type Config struct {
	Playlists []LocalPlaylist `json:"playlists"`
}

// Playlist returns the playlist with the given id.
func (c Config) Playlist(id string) (LocalPlaylist, bool) {
	for _, p := range c.Playlists {
		if p.ID == id {
			return p, true
		}
	}
	return LocalPlaylist{}, false
}

// CatchAll returns the reserved "all audios" playlist if present.
func (c Config) CatchAll() (LocalPlaylist, bool) {
	for _, p := range c.Playlists {
		if p.Kind() == KindCatchAll {
			return p, true
		}
	}
	return LocalPlaylist{}, false
}

// IsEmpty reports whether the library holds no meaningful content: at most
// one playlist, and that playlist has no audios.
func (c Config) IsEmpty() bool {
	switch len(c.Playlists) {
	case 0:
		return true
	case 1:
		return len(c.Playlists[0].Audios) == 0
	default:
		return false
	}
}

// AudioIDs returns the ids of every audio in every playlist.
func (c Config) AudioIDs() IDSet {
	ids := make(IDSet)
	for _, p := range c.Playlists {
		for _, a := range p.Audios {
			ids.Add(a.Audio.ID)
		}
	}
	return ids
}

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	out := Config{Playlists: make([]LocalPlaylist, 0, len(c.Playlists))}
	for _, p := range c.Playlists {
		out.Playlists = append(out.Playlists, p.clone())
	}
	return out
}

func (p LocalPlaylist) clone() LocalPlaylist {
	out := p
	out.CoverPath = cloneString(p.CoverPath)
	out.Audios = make([]LocalAudio, 0, len(p.Audios))
	for _, a := range p.Audios {
		out.Audios = append(out.Audios, a.clone())
	}
	return out
}

func (a LocalAudio) clone() LocalAudio {
	out := a
	out.CoverPath = cloneString(a.CoverPath)
	if a.Audio.Duration != nil {
		d := *a.Audio.Duration
		out.Audio.Duration = &d
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr is a convenience for building optional path fields.
func StringPtr(s string) *string {
	return &s
}

// Marshal renders the config as indented JSON.
func (c Config) Marshal() ([]byte, error) {
	// Empty collections serialise as [] rather than null.
	doc := Config{Playlists: make([]LocalPlaylist, len(c.Playlists))}
	copy(doc.Playlists, c.Playlists)
	for i := range doc.Playlists {
		if doc.Playlists[i].Audios == nil {
			doc.Playlists[i].Audios = []LocalAudio{}
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// ParseConfig decodes a Config document. Payloads that are not a JSON object
// with a playlists array yield ErrInvalidConfig. Playlists without an id and
// audios without an audio id are dropped.
func ParseConfig(data []byte) (Config, error) {
	var raw struct {
		Playlists json.RawMessage `json:"playlists"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	trimmed := bytes.TrimSpace(raw.Playlists)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Config{}, fmt.Errorf("%w: playlists must be an array", ErrInvalidConfig)
	}

	var playlists []LocalPlaylist
	if err := json.Unmarshal(trimmed, &playlists); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := Config{Playlists: make([]LocalPlaylist, 0, len(playlists))}
	for _, p := range playlists {
		if p.ID == "" {
			continue
		}
		audios := make([]LocalAudio, 0, len(p.Audios))
		for _, a := range p.Audios {
			if a.Audio.ID == "" {
				continue
			}
			audios = append(audios, a)
		}
		p.Audios = audios
		cfg.Playlists = append(cfg.Playlists, p)
	}
	return cfg, nil
}
