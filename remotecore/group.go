package remotecore

import (
	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

// RemotePlayableCollectionGroup wraps a library, a search history, the recently played,
// discoverables and pins groups, and any nested group or search result.
type RemotePlayableCollectionGroup struct {
	remotePlayable

	tracks    *remoteCollection[core.Track]
	albums    *remoteCollection[core.Album]
	artists   *remoteCollection[core.Artist]
	playlists *remoteCollection[core.Playlist]
	children  *remoteCollection[core.PlayableCollectionGroup]
}

func newRemotePlayableCollectionGroup(
	registry *Registry,
	descriptor remote.Descriptor,
	real core.PlayableCollectionGroup,
	detached bool,
) (*RemotePlayableCollectionGroup, error) {
	group := &RemotePlayableCollectionGroup{}
	declaration := &remote.Declaration{}
	group.declarePlayable(real, declaration)
	group.declareGroup(real, declaration)
	if err := group.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return group, nil
}

func (self *RemotePlayableCollectionGroup) declareGroup(real core.PlayableCollectionGroup, declaration *remote.Declaration) {
	owner := &self.remoteEntity
	self.tracks = newRemoteCollection(owner, core.CollectionTracks, func() core.Collection[core.Track] {
		return real.Tracks()
	}, declaration)
	self.albums = newRemoteCollection(owner, core.CollectionAlbums, func() core.Collection[core.Album] {
		return real.Albums()
	}, declaration)
	self.artists = newRemoteCollection(owner, core.CollectionArtists, func() core.Collection[core.Artist] {
		return real.Artists()
	}, declaration)
	self.playlists = newRemoteCollection(owner, core.CollectionPlaylists, func() core.Collection[core.Playlist] {
		return real.Playlists()
	}, declaration)
	self.children = newRemoteCollection(owner, core.CollectionChildren, func() core.Collection[core.PlayableCollectionGroup] {
		return real.Children()
	}, declaration)
}

func (self *RemotePlayableCollectionGroup) Tracks() core.Collection[core.Track] {
	return self.tracks
}

func (self *RemotePlayableCollectionGroup) Albums() core.Collection[core.Album] {
	return self.albums
}

func (self *RemotePlayableCollectionGroup) Artists() core.Collection[core.Artist] {
	return self.artists
}

func (self *RemotePlayableCollectionGroup) Playlists() core.Collection[core.Playlist] {
	return self.playlists
}

func (self *RemotePlayableCollectionGroup) Children() core.Collection[core.PlayableCollectionGroup] {
	return self.children
}
