package coretest

import (
	"context"
	"time"

	"bringyour.com/coresync/core"
)

type playable struct {
	entity

	name          string
	description   string
	playbackState core.PlaybackState
	duration      time.Duration
	lastPlayed    time.Time
	addedAt       time.Time

	images *Collection[core.Image]
	urls   *Collection[core.Url]
}

func (self *playable) initPlayable(sourceCore *Core, name string) {
	self.initEntity(sourceCore)
	self.name = name
	self.addedAt = time.Now().UTC()
	self.images = newCollection[core.Image](&self.entity, core.CollectionImages)
	self.urls = newCollection[core.Url](&self.entity, core.CollectionUrls)
}

func (self *playable) Name() string {
	return getProperty(&self.entity, &self.name)
}

func (self *playable) Description() string {
	return getProperty(&self.entity, &self.description)
}

func (self *playable) PlaybackState() core.PlaybackState {
	return getProperty(&self.entity, &self.playbackState)
}

func (self *playable) Duration() time.Duration {
	return getProperty(&self.entity, &self.duration)
}

func (self *playable) LastPlayed() time.Time {
	return getProperty(&self.entity, &self.lastPlayed)
}

func (self *playable) AddedAt() time.Time {
	return getProperty(&self.entity, &self.addedAt)
}

func (self *playable) Images() core.Collection[core.Image] {
	return self.images
}

func (self *playable) Urls() core.Collection[core.Url] {
	return self.urls
}

func (self *playable) ImageCollection() *Collection[core.Image] {
	return self.images
}

func (self *playable) UrlCollection() *Collection[core.Url] {
	return self.urls
}

func (self *playable) ChangeName(ctx context.Context, name string) error {
	setProperty(&self.entity, core.MemberName, &self.name, name)
	return nil
}

func (self *playable) ChangeDescription(ctx context.Context, description string) error {
	setProperty(&self.entity, core.MemberDescription, &self.description, description)
	return nil
}

func (self *playable) ChangeDuration(ctx context.Context, duration time.Duration) error {
	setProperty(&self.entity, core.MemberDuration, &self.duration, duration)
	return nil
}

func (self *playable) SetPlaybackState(playbackState core.PlaybackState) {
	setProperty(&self.entity, core.MemberPlaybackState, &self.playbackState, playbackState)
}

func (self *playable) Play(ctx context.Context) error {
	self.SetPlaybackState(core.PlaybackStatePlaying)
	setProperty(&self.entity, core.MemberLastPlayed, &self.lastPlayed, time.Now().UTC())
	return nil
}

func (self *playable) Pause(ctx context.Context) error {
	self.SetPlaybackState(core.PlaybackStatePaused)
	return nil
}

type Track struct {
	playable

	trackNumber int
	isExplicit  bool
	album       *Album

	artists *Collection[core.Artist]
	genres  *Collection[core.Genre]
}

func (self *Core) NewTrack(name string) *Track {
	track := &Track{}
	track.initPlayable(self, name)
	track.artists = newCollection[core.Artist](&track.entity, core.CollectionArtists)
	track.genres = newCollection[core.Genre](&track.entity, core.CollectionGenres)
	return track
}

func (self *Track) TrackNumber() int {
	return getProperty(&self.entity, &self.trackNumber)
}

func (self *Track) SetTrackNumber(trackNumber int) {
	setProperty(&self.entity, core.MemberTrackNumber, &self.trackNumber, trackNumber)
}

func (self *Track) IsExplicit() bool {
	return getProperty(&self.entity, &self.isExplicit)
}

func (self *Track) SetExplicit(isExplicit bool) {
	setProperty(&self.entity, core.MemberIsExplicit, &self.isExplicit, isExplicit)
}

func (self *Track) Album() core.Album {
	album := getProperty(&self.entity, &self.album)
	if album == nil {
		return nil
	}
	return album
}

func (self *Track) SetAlbum(album *Album) {
	self.mutex.Lock()
	self.album = album
	self.mutex.Unlock()
	var value core.Album
	if album != nil {
		value = album
	}
	self.fire(core.PropertyChange(core.MemberAlbum, value))
}

func (self *Track) Artists() core.Collection[core.Artist] {
	return self.artists
}

func (self *Track) Genres() core.Collection[core.Genre] {
	return self.genres
}

func (self *Track) ArtistCollection() *Collection[core.Artist] {
	return self.artists
}

func (self *Track) GenreCollection() *Collection[core.Genre] {
	return self.genres
}

type Album struct {
	playable

	datePublished time.Time

	tracks  *Collection[core.Track]
	artists *Collection[core.Artist]
	genres  *Collection[core.Genre]
}

func (self *Core) NewAlbum(name string) *Album {
	album := &Album{}
	album.initPlayable(self, name)
	album.tracks = newCollection[core.Track](&album.entity, core.CollectionTracks)
	album.artists = newCollection[core.Artist](&album.entity, core.CollectionArtists)
	album.genres = newCollection[core.Genre](&album.entity, core.CollectionGenres)
	return album
}

func (self *Album) DatePublished() time.Time {
	return getProperty(&self.entity, &self.datePublished)
}

func (self *Album) SetDatePublished(datePublished time.Time) {
	setProperty(&self.entity, core.MemberDatePublished, &self.datePublished, datePublished)
}

func (self *Album) Tracks() core.Collection[core.Track] {
	return self.tracks
}

func (self *Album) Artists() core.Collection[core.Artist] {
	return self.artists
}

func (self *Album) Genres() core.Collection[core.Genre] {
	return self.genres
}

func (self *Album) TrackCollection() *Collection[core.Track] {
	return self.tracks
}

func (self *Album) ArtistCollection() *Collection[core.Artist] {
	return self.artists
}

func (self *Album) GenreCollection() *Collection[core.Genre] {
	return self.genres
}

type Artist struct {
	playable

	tracks *Collection[core.Track]
	albums *Collection[core.Album]
	genres *Collection[core.Genre]
}

func (self *Core) NewArtist(name string) *Artist {
	artist := &Artist{}
	artist.initPlayable(self, name)
	artist.tracks = newCollection[core.Track](&artist.entity, core.CollectionTracks)
	artist.albums = newCollection[core.Album](&artist.entity, core.CollectionAlbums)
	artist.genres = newCollection[core.Genre](&artist.entity, core.CollectionGenres)
	return artist
}

func (self *Artist) Tracks() core.Collection[core.Track] {
	return self.tracks
}

func (self *Artist) Albums() core.Collection[core.Album] {
	return self.albums
}

func (self *Artist) Genres() core.Collection[core.Genre] {
	return self.genres
}

func (self *Artist) TrackCollection() *Collection[core.Track] {
	return self.tracks
}

func (self *Artist) AlbumCollection() *Collection[core.Album] {
	return self.albums
}

type Playlist struct {
	playable

	owner *User

	tracks *Collection[core.Track]
}

func (self *Core) NewPlaylist(name string) *Playlist {
	playlist := &Playlist{}
	playlist.initPlayable(self, name)
	playlist.tracks = newCollection[core.Track](&playlist.entity, core.CollectionTracks)
	return playlist
}

func (self *Playlist) Owner() core.User {
	owner := getProperty(&self.entity, &self.owner)
	if owner == nil {
		return nil
	}
	return owner
}

func (self *Playlist) SetOwner(owner *User) {
	self.mutex.Lock()
	self.owner = owner
	self.mutex.Unlock()
	var value core.User
	if owner != nil {
		value = owner
	}
	self.fire(core.PropertyChange(core.MemberOwner, value))
}

func (self *Playlist) Tracks() core.Collection[core.Track] {
	return self.tracks
}

func (self *Playlist) TrackCollection() *Collection[core.Track] {
	return self.tracks
}

// Group is a playable collection group: a library, a search history, or any nested group.
type Group struct {
	playable

	tracks    *Collection[core.Track]
	albums    *Collection[core.Album]
	artists   *Collection[core.Artist]
	playlists *Collection[core.Playlist]
	children  *Collection[core.PlayableCollectionGroup]
}

func (self *Core) NewGroup(name string) *Group {
	group := &Group{}
	group.initPlayable(self, name)
	group.tracks = newCollection[core.Track](&group.entity, core.CollectionTracks)
	group.albums = newCollection[core.Album](&group.entity, core.CollectionAlbums)
	group.artists = newCollection[core.Artist](&group.entity, core.CollectionArtists)
	group.playlists = newCollection[core.Playlist](&group.entity, core.CollectionPlaylists)
	group.children = newCollection[core.PlayableCollectionGroup](&group.entity, core.CollectionChildren)
	return group
}

func (self *Group) Tracks() core.Collection[core.Track] {
	return self.tracks
}

func (self *Group) Albums() core.Collection[core.Album] {
	return self.albums
}

func (self *Group) Artists() core.Collection[core.Artist] {
	return self.artists
}

func (self *Group) Playlists() core.Collection[core.Playlist] {
	return self.playlists
}

func (self *Group) Children() core.Collection[core.PlayableCollectionGroup] {
	return self.children
}

func (self *Group) TrackCollection() *Collection[core.Track] {
	return self.tracks
}

func (self *Group) AlbumCollection() *Collection[core.Album] {
	return self.albums
}

func (self *Group) ArtistCollection() *Collection[core.Artist] {
	return self.artists
}

func (self *Group) PlaylistCollection() *Collection[core.Playlist] {
	return self.playlists
}

func (self *Group) ChildCollection() *Collection[core.PlayableCollectionGroup] {
	return self.children
}
