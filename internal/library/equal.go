package library

// Structural equality for library documents. Slice order is significant,
// nil and empty slices are equal, optional fields compare by presence and value.

// Equal reports whether two configs describe the same library.
func (c Config) Equal(o Config) bool {
	if len(c.Playlists) != len(o.Playlists) {
		return false
	}
	for i := range c.Playlists {
		if !c.Playlists[i].Equal(o.Playlists[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two playlists are structurally identical.
func (p LocalPlaylist) Equal(o LocalPlaylist) bool {
	if p.ID != o.ID ||
		p.Title != o.Title ||
		p.Cover != o.Cover ||
		p.Platform != o.Platform ||
		p.DownloadURL != o.DownloadURL ||
		!equalStringPtr(p.CoverPath, o.CoverPath) ||
		len(p.Audios) != len(o.Audios) {
		return false
	}
	for i := range p.Audios {
		if !p.Audios[i].Equal(o.Audios[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two local audios are identical, paths included.
func (a LocalAudio) Equal(o LocalAudio) bool {
	return a.Path == o.Path &&
		equalStringPtr(a.CoverPath, o.CoverPath) &&
		a.Audio.Equal(o.Audio)
}

// Equal compares audio metadata.
func (a Audio) Equal(o Audio) bool {
	if a.ID != o.ID ||
		a.Title != o.Title ||
		a.DownloadURL != o.DownloadURL ||
		a.Cover != o.Cover ||
		a.Platform != o.Platform {
		return false
	}
	if (a.Duration == nil) != (o.Duration == nil) {
		return false
	}
	return a.Duration == nil || *a.Duration == *o.Duration
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
