package library

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// IDSet is an unordered set of playlist or audio ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports membership. A nil set contains nothing.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same ids.
func (s IDSet) Equal(o IDSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

func (s IDSet) clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out.Add(id)
	}
	return out
}

// Diff describes how one config snapshot differs from another. Audio-level
// changes are tracked for the catch-all playlist only.
type Diff struct {
	AddedPlaylists    IDSet
	RemovedPlaylists  IDSet
	ModifiedPlaylists IDSet
	AddedAudios       IDSet
	RemovedAudios     IDSet
}

func newDiff() Diff {
	return Diff{
		AddedPlaylists:    make(IDSet),
		RemovedPlaylists:  make(IDSet),
		ModifiedPlaylists: make(IDSet),
		AddedAudios:       make(IDSet),
		RemovedAudios:     make(IDSet),
	}
}

// Empty reports whether no change was detected.
func (d Diff) Empty() bool {
	return len(d.AddedPlaylists) == 0 &&
		len(d.RemovedPlaylists) == 0 &&
		len(d.ModifiedPlaylists) == 0 &&
		len(d.AddedAudios) == 0 &&
		len(d.RemovedAudios) == 0
}

// Mask returns the local-deletion mask: only the removed sets are carried.
func (d Diff) Mask() Diff {
	m := newDiff()
	m.RemovedPlaylists = d.RemovedPlaylists.clone()
	m.RemovedAudios = d.RemovedAudios.clone()
	return m
}

// Compute returns the diff that turns prev into next. Playlists are matched by
// id, so the result does not depend on playlist order.
func Compute(prev, next Config) Diff {
	d := newDiff()

	oldByID := indexPlaylists(prev)
	newByID := indexPlaylists(next)

	for id, np := range newByID {
		op, ok := oldByID[id]
		switch {
		case !ok:
			d.AddedPlaylists.Add(id)
		case !op.Equal(np):
			d.ModifiedPlaylists.Add(id)
		}
	}
	for id := range oldByID {
		if _, ok := newByID[id]; !ok {
			d.RemovedPlaylists.Add(id)
		}
	}

	oldAudios := catchAllAudioIDs(prev)
	newAudios := catchAllAudioIDs(next)
	for id := range newAudios {
		if !oldAudios.Has(id) {
			d.AddedAudios.Add(id)
		}
	}
	for id := range oldAudios {
		if !newAudios.Has(id) {
			d.RemovedAudios.Add(id)
		}
	}

	log.Debug().
		Int("added_playlists", len(d.AddedPlaylists)).
		Int("removed_playlists", len(d.RemovedPlaylists)).
		Int("modified_playlists", len(d.ModifiedPlaylists)).
		Int("added_audios", len(d.AddedAudios)).
		Int("removed_audios", len(d.RemovedAudios)).
		Msg("config diff computed")

	return d
}

func indexPlaylists(c Config) map[string]LocalPlaylist {
	m := make(map[string]LocalPlaylist, len(c.Playlists))
	for _, p := range c.Playlists {
		m[p.ID] = p
	}
	return m
}

func catchAllAudioIDs(c Config) IDSet {
	ids := make(IDSet)
	p, ok := c.CatchAll()
	if !ok {
		return ids
	}
	for _, a := range p.Audios {
		ids.Add(a.Audio.ID)
	}
	return ids
}
