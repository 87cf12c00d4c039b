package library

// Merge reconciles a local snapshot with a remote one.
//
// Local order and local file paths win, remote wins for the metadata of audios
// both sides know, additions from either side are kept, and anything in the
// mask's removed sets is dropped even if the remote still lists it. Only the
// mask's RemovedPlaylists and RemovedAudios are consulted.
func Merge(local, remote Config, mask Diff) Config {
	remoteByID := indexPlaylists(remote)
	seen := make(IDSet, len(local.Playlists))

	merged := make([]LocalPlaylist, 0, len(local.Playlists)+len(remote.Playlists))
	for _, lp := range local.Playlists {
		seen.Add(lp.ID)
		if mask.RemovedPlaylists.Has(lp.ID) {
			continue
		}
		rp, ok := remoteByID[lp.ID]
		if !ok {
			merged = append(merged, withoutAudios(lp, mask.RemovedAudios))
			continue
		}
		merged = append(merged, mergePlaylist(lp, rp, mask.RemovedAudios))
	}

	for _, rp := range remote.Playlists {
		if seen.Has(rp.ID) || mask.RemovedPlaylists.Has(rp.ID) {
			continue
		}
		seen.Add(rp.ID)
		merged = append(merged, withoutAudios(rp, mask.RemovedAudios))
	}

	SortReserved(merged)
	return Config{Playlists: merged}
}

func mergePlaylist(local, remote LocalPlaylist, removed IDSet) LocalPlaylist {
	out := local.clone()

	remoteAudios := make(map[string]LocalAudio, len(remote.Audios))
	for _, a := range remote.Audios {
		remoteAudios[a.Audio.ID] = a
	}

	localIDs := make(IDSet, len(local.Audios))
	audios := make([]LocalAudio, 0, len(local.Audios)+len(remote.Audios))
	for _, la := range local.Audios {
		id := la.Audio.ID
		localIDs.Add(id)
		if removed.Has(id) {
			continue
		}
		merged := la.clone()
		if ra, ok := remoteAudios[id]; ok {
			merged.Audio = ra.clone().Audio
		}
		audios = append(audios, merged)
	}
	for _, ra := range remote.Audios {
		id := ra.Audio.ID
		if localIDs.Has(id) || removed.Has(id) {
			continue
		}
		localIDs.Add(id)
		audios = append(audios, ra.clone())
	}
	out.Audios = audios

	if out.CoverPath == nil || *out.CoverPath == "" {
		if remote.CoverPath != nil && *remote.CoverPath != "" {
			out.CoverPath = cloneString(remote.CoverPath)
		}
	}
	return out
}

func withoutAudios(p LocalPlaylist, removed IDSet) LocalPlaylist {
	out := p.clone()
	if len(removed) == 0 {
		return out
	}
	kept := out.Audios[:0]
	for _, a := range out.Audios {
		if !removed.Has(a.Audio.ID) {
			kept = append(kept, a)
		}
	}
	out.Audios = kept
	return out
}
