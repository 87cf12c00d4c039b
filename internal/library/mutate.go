package library

import "errors"

// ErrReservedPlaylist is returned when a mutation targets a reserved playlist
// that cannot be removed.
var ErrReservedPlaylist = errors.New("reserved playlist cannot be deleted")

// AddPlaylist inserts playlist into the library. When a playlist with the same
// id exists, the incoming audios come first (metadata overlaid on the existing
// entries, which keep their paths), followed by existing audios the incoming
// playlist does not carry; the merged playlist moves to the front. A new
// playlist is inserted right after the reserved playlists.
func AddPlaylist(c Config, playlist LocalPlaylist) Config {
	out := c.Clone()
	incoming := playlist.clone()

	for i, existing := range out.Playlists {
		if existing.ID != incoming.ID {
			continue
		}

		audios := make([]LocalAudio, 0, len(incoming.Audios)+len(existing.Audios))
		processed := make(IDSet, len(incoming.Audios))
		for _, a := range incoming.Audios {
			processed.Add(a.Audio.ID)
			if j := existing.Find(a.Audio.ID); j >= 0 {
				kept := existing.Audios[j]
				kept.Audio = overlayAudio(kept.Audio, a.Audio)
				audios = append(audios, kept)
				continue
			}
			audios = append(audios, a)
		}
		for _, a := range existing.Audios {
			if !processed.Has(a.Audio.ID) {
				audios = append(audios, a)
			}
		}

		incoming.Audios = audios
		if incoming.CoverPath == nil || *incoming.CoverPath == "" {
			incoming.CoverPath = existing.CoverPath
		}

		rest := append(out.Playlists[:i:i], out.Playlists[i+1:]...)
		out.Playlists = append([]LocalPlaylist{incoming}, rest...)
		return out
	}

	var reserved, regular []LocalPlaylist
	for _, p := range out.Playlists {
		if p.Kind().IsReserved() {
			reserved = append(reserved, p)
		} else {
			regular = append(regular, p)
		}
	}
	playlists := make([]LocalPlaylist, 0, len(out.Playlists)+1)
	playlists = append(playlists, reserved...)
	playlists = append(playlists, incoming)
	playlists = append(playlists, regular...)
	out.Playlists = playlists
	return out
}

// overlayAudio applies the non-empty fields of next onto base.
func overlayAudio(base, next Audio) Audio {
	if next.Title != "" {
		base.Title = next.Title
	}
	if next.DownloadURL != "" {
		base.DownloadURL = next.DownloadURL
	}
	if next.Cover != "" {
		base.Cover = next.Cover
	}
	if next.Platform != "" {
		base.Platform = next.Platform
	}
	if next.Duration != nil {
		d := *next.Duration
		base.Duration = &d
	}
	return base
}

// DeletePlaylist removes the playlist with the given id and returns the
// removed playlist. Reserved playlists are refused.
func DeletePlaylist(c Config, id string) (Config, *LocalPlaylist, error) {
	if KindOf(id).IsReserved() {
		return c, nil, ErrReservedPlaylist
	}
	out := Config{Playlists: make([]LocalPlaylist, 0, len(c.Playlists))}
	var removed *LocalPlaylist
	for _, p := range c.Playlists {
		if p.ID == id {
			cp := p.clone()
			removed = &cp
			continue
		}
		out.Playlists = append(out.Playlists, p.clone())
	}
	return out, removed, nil
}

// AddAudios prepends audios to the catch-all playlist, creating it when
// missing. Audios already present are skipped.
func AddAudios(c Config, audios []LocalAudio) Config {
	out := c.Clone()

	idx := -1
	for i, p := range out.Playlists {
		if p.Kind() == KindCatchAll {
			idx = i
			break
		}
	}
	if idx < 0 {
		out.Playlists = append(out.Playlists, NewAudioPlaylist())
		idx = len(out.Playlists) - 1
	}

	catchAll := out.Playlists[idx]
	existing := make(IDSet, len(catchAll.Audios))
	for _, a := range catchAll.Audios {
		existing.Add(a.Audio.ID)
	}
	fresh := make([]LocalAudio, 0, len(audios))
	for _, a := range audios {
		if existing.Has(a.Audio.ID) {
			continue
		}
		existing.Add(a.Audio.ID)
		fresh = append(fresh, a.clone())
	}
	catchAll.Audios = append(fresh, catchAll.Audios...)
	out.Playlists[idx] = catchAll
	return out
}

// DeleteAudio removes the audio from the given playlist and, unless the
// playlist is the favorites one, from favorites too. Playlists left empty are
// dropped, except the catch-all. The removed entry is returned when found.
func DeleteAudio(c Config, audioID, playlistID string) (Config, *LocalAudio) {
	var removed *LocalAudio
	fromFavorites := KindOf(playlistID) == KindFavorites

	out := Config{Playlists: make([]LocalPlaylist, 0, len(c.Playlists))}
	for _, p := range c.Playlists {
		cp := p.clone()
		if p.ID == playlistID || (!fromFavorites && p.Kind() == KindFavorites) {
			kept := cp.Audios[:0]
			for _, a := range cp.Audios {
				if a.Audio.ID == audioID {
					if p.ID == playlistID && removed == nil {
						hit := a.clone()
						removed = &hit
					}
					continue
				}
				kept = append(kept, a)
			}
			cp.Audios = kept
		}
		if len(cp.Audios) == 0 && cp.Kind() != KindCatchAll {
			continue
		}
		out.Playlists = append(out.Playlists, cp)
	}
	return out, removed
}

// ToggleFavorite adds the audio to the front of favorites or removes it. The
// favorites playlist is created at the front of the library on demand and
// dropped once empty. It reports whether the audio is now a favorite.
func ToggleFavorite(c Config, audio LocalAudio) (Config, bool) {
	out := c.Clone()

	idx := -1
	for i, p := range out.Playlists {
		if p.Kind() == KindFavorites {
			idx = i
			break
		}
	}
	if idx < 0 {
		out.Playlists = append([]LocalPlaylist{NewFavoritePlaylist()}, out.Playlists...)
		idx = 0
	}

	fav := out.Playlists[idx]
	if j := fav.Find(audio.Audio.ID); j >= 0 {
		fav.Audios = append(fav.Audios[:j:j], fav.Audios[j+1:]...)
		if len(fav.Audios) == 0 {
			out.Playlists = append(out.Playlists[:idx:idx], out.Playlists[idx+1:]...)
			return out, false
		}
		out.Playlists[idx] = fav
		return out, false
	}

	fav.Audios = append([]LocalAudio{audio.clone()}, fav.Audios...)
	out.Playlists[idx] = fav
	return out, true
}

// IsFavorite reports whether the audio id is in the favorites playlist.
func IsFavorite(c Config, audioID string) bool {
	for _, p := range c.Playlists {
		if p.Kind() == KindFavorites {
			return p.Find(audioID) >= 0
		}
	}
	return false
}

// OrphanedPaths returns the audio and cover paths referenced by the removed
// entries that no playlist of c references any more.
func OrphanedPaths(c Config, removedPlaylistCover *string, removed []LocalAudio) []string {
	used := make(IDSet)
	for _, p := range c.Playlists {
		if p.CoverPath != nil {
			used.Add(*p.CoverPath)
		}
		for _, a := range p.Audios {
			used.Add(a.Path)
			if a.CoverPath != nil {
				used.Add(*a.CoverPath)
			}
		}
	}

	var out []string
	emitted := make(IDSet)
	emit := func(path string) {
		if path == "" || used.Has(path) || emitted.Has(path) {
			return
		}
		emitted.Add(path)
		out = append(out, path)
	}
	for _, a := range removed {
		emit(a.Path)
		if a.CoverPath != nil {
			emit(*a.CoverPath)
		}
	}
	if removedPlaylistCover != nil {
		emit(*removedPlaylistCover)
	}
	return out
}
