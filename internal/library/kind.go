package library

import "sort"

const (
	// FavoritePlaylistID identifies the reserved favorites playlist.
	FavoritePlaylistID = "__favorite__"
	// FavoritePlaylistTitle is the display title of the favorites playlist.
	FavoritePlaylistTitle = "Favorites"

	// AudioPlaylistID identifies the reserved catch-all playlist holding every
	// individually downloaded audio.
	AudioPlaylistID = "__audio__"
	// AudioPlaylistTitle is the display title of the catch-all playlist.
	AudioPlaylistTitle = "Audios"

	// DefaultPlatform is used for playlists created locally.
	DefaultPlatform = "File"
)

// Kind distinguishes the reserved singleton playlists from regular ones.
type Kind int

const (
	// KindRegular is any user or platform playlist.
	KindRegular Kind = iota
	// KindFavorites is the favorites playlist.
	KindFavorites
	// KindCatchAll is the playlist holding every standalone audio.
	KindCatchAll
)

// KindOf maps a playlist id to its kind.
func KindOf(id string) Kind {
	switch id {
	case FavoritePlaylistID:
		return KindFavorites
	case AudioPlaylistID:
		return KindCatchAll
	default:
		return KindRegular
	}
}

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindFavorites:
		return "favorites"
	case KindCatchAll:
		return "catch-all"
	default:
		return "regular"
	}
}

// IsReserved returns true for the favorites and catch-all playlists.
func (k Kind) IsReserved() bool {
	return k == KindFavorites || k == KindCatchAll
}

// rank orders reserved playlists ahead of regular ones: favorites, then catch-all.
func (k Kind) rank() int {
	switch k {
	case KindFavorites:
		return 0
	case KindCatchAll:
		return 1
	default:
		return 2
	}
}

// SortReserved moves the reserved playlists to the front (favorites before
// catch-all). Regular playlists keep their relative order.
func SortReserved(playlists []LocalPlaylist) {
	sort.SliceStable(playlists, func(i, j int) bool {
		return playlists[i].Kind().rank() < playlists[j].Kind().rank()
	})
}

// NewFavoritePlaylist returns an empty favorites playlist.
func NewFavoritePlaylist() LocalPlaylist {
	return LocalPlaylist{
		ID:       FavoritePlaylistID,
		Title:    FavoritePlaylistTitle,
		Audios:   []LocalAudio{},
		Platform: DefaultPlatform,
	}
}

// NewAudioPlaylist returns an empty catch-all playlist.
func NewAudioPlaylist() LocalPlaylist {
	return LocalPlaylist{
		ID:       AudioPlaylistID,
		Title:    AudioPlaylistTitle,
		Audios:   []LocalAudio{},
		Platform: DefaultPlatform,
	}
}
