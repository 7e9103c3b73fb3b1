package remotecore

import (
	"time"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

type RemoteTrack struct {
	remotePlayable

	artists *remoteCollection[core.Artist]
	genres  *remoteCollection[core.Genre]
}

func newRemoteTrack(registry *Registry, descriptor remote.Descriptor, real core.Track, detached bool) (*RemoteTrack, error) {
	track := &RemoteTrack{}
	declaration := &remote.Declaration{}
	track.declarePlayable(real, declaration)
	declaration.Properties = append(declaration.Properties,
		&remote.Property{
			Name: core.MemberTrackNumber,
			Get: func() any {
				return int64(real.TrackNumber())
			},
		},
		&remote.Property{
			Name: core.MemberIsExplicit,
			Get: func() any {
				return real.IsExplicit()
			},
		},
		&remote.Property{
			Name: core.MemberAlbum,
			Get: func() any {
				return entityValue(registry, KindAlbum, real.Album())
			},
		},
	)
	track.artists = newRemoteCollection(&track.remoteEntity, core.CollectionArtists, func() core.Collection[core.Artist] {
		return real.Artists()
	}, declaration)
	track.genres = newRemoteCollection(&track.remoteEntity, core.CollectionGenres, func() core.Collection[core.Genre] {
		return real.Genres()
	}, declaration)
	if err := track.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return track, nil
}

func (self *RemoteTrack) TrackNumber() int {
	return remote.AsInt(self.memberRemote.Get(core.MemberTrackNumber))
}

func (self *RemoteTrack) IsExplicit() bool {
	return remote.AsBool(self.memberRemote.Get(core.MemberIsExplicit))
}

func (self *RemoteTrack) Album() core.Album {
	if album, ok := self.entityMember(core.MemberAlbum).(core.Album); ok {
		return album
	}
	return nil
}

func (self *RemoteTrack) Artists() core.Collection[core.Artist] {
	return self.artists
}

func (self *RemoteTrack) Genres() core.Collection[core.Genre] {
	return self.genres
}

type RemoteAlbum struct {
	remotePlayable

	tracks  *remoteCollection[core.Track]
	artists *remoteCollection[core.Artist]
	genres  *remoteCollection[core.Genre]
}

func newRemoteAlbum(registry *Registry, descriptor remote.Descriptor, real core.Album, detached bool) (*RemoteAlbum, error) {
	album := &RemoteAlbum{}
	declaration := &remote.Declaration{}
	album.declarePlayable(real, declaration)
	declaration.Properties = append(declaration.Properties, &remote.Property{
		Name: core.MemberDatePublished,
		Get: func() any {
			return real.DatePublished()
		},
	})
	album.tracks = newRemoteCollection(&album.remoteEntity, core.CollectionTracks, func() core.Collection[core.Track] {
		return real.Tracks()
	}, declaration)
	album.artists = newRemoteCollection(&album.remoteEntity, core.CollectionArtists, func() core.Collection[core.Artist] {
		return real.Artists()
	}, declaration)
	album.genres = newRemoteCollection(&album.remoteEntity, core.CollectionGenres, func() core.Collection[core.Genre] {
		return real.Genres()
	}, declaration)
	if err := album.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return album, nil
}

func (self *RemoteAlbum) DatePublished() time.Time {
	return remote.AsTime(self.memberRemote.Get(core.MemberDatePublished))
}

func (self *RemoteAlbum) Tracks() core.Collection[core.Track] {
	return self.tracks
}

func (self *RemoteAlbum) Artists() core.Collection[core.Artist] {
	return self.artists
}

func (self *RemoteAlbum) Genres() core.Collection[core.Genre] {
	return self.genres
}

type RemoteArtist struct {
	remotePlayable

	tracks *remoteCollection[core.Track]
	albums *remoteCollection[core.Album]
	genres *remoteCollection[core.Genre]
}

func newRemoteArtist(registry *Registry, descriptor remote.Descriptor, real core.Artist, detached bool) (*RemoteArtist, error) {
	artist := &RemoteArtist{}
	declaration := &remote.Declaration{}
	artist.declarePlayable(real, declaration)
	artist.tracks = newRemoteCollection(&artist.remoteEntity, core.CollectionTracks, func() core.Collection[core.Track] {
		return real.Tracks()
	}, declaration)
	artist.albums = newRemoteCollection(&artist.remoteEntity, core.CollectionAlbums, func() core.Collection[core.Album] {
		return real.Albums()
	}, declaration)
	artist.genres = newRemoteCollection(&artist.remoteEntity, core.CollectionGenres, func() core.Collection[core.Genre] {
		return real.Genres()
	}, declaration)
	if err := artist.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return artist, nil
}

func (self *RemoteArtist) Tracks() core.Collection[core.Track] {
	return self.tracks
}

func (self *RemoteArtist) Albums() core.Collection[core.Album] {
	return self.albums
}

func (self *RemoteArtist) Genres() core.Collection[core.Genre] {
	return self.genres
}

type RemotePlaylist struct {
	remotePlayable

	tracks *remoteCollection[core.Track]
}

func newRemotePlaylist(registry *Registry, descriptor remote.Descriptor, real core.Playlist, detached bool) (*RemotePlaylist, error) {
	playlist := &RemotePlaylist{}
	declaration := &remote.Declaration{}
	playlist.declarePlayable(real, declaration)
	declaration.Properties = append(declaration.Properties, &remote.Property{
		Name: core.MemberOwner,
		Get: func() any {
			return entityValue(registry, KindUser, real.Owner())
		},
	})
	playlist.tracks = newRemoteCollection(&playlist.remoteEntity, core.CollectionTracks, func() core.Collection[core.Track] {
		return real.Tracks()
	}, declaration)
	if err := playlist.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return playlist, nil
}

func (self *RemotePlaylist) Owner() core.User {
	if user, ok := self.entityMember(core.MemberOwner).(core.User); ok {
		return user
	}
	return nil
}

func (self *RemotePlaylist) Tracks() core.Collection[core.Track] {
	return self.tracks
}
