package coretest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bringyour.com/coresync/core"
)

// Core is an in-memory core. Its id is the instance id.
type Core struct {
	entity

	instanceId  string
	name        string
	displayName string
	state       core.CoreState
	user        *User
	devices     []*Device

	library        *Group
	search         *Search
	recentlyPlayed *Group
	discoverables  *Group
	pins           *Group
}

func NewCore(instanceId string, name string) *Core {
	c := &Core{
		instanceId:  instanceId,
		name:        name,
		displayName: name,
		state:       core.CoreStateLoaded,
	}
	c.initEntity(c)
	c.id = instanceId
	c.library = c.NewGroup("Library")
	c.recentlyPlayed = c.NewGroup("Recently played")
	c.discoverables = c.NewGroup("Discoverables")
	c.pins = c.NewGroup("Pins")
	c.search = c.newSearch()
	return c
}

func (self *Core) InstanceId() string {
	return self.instanceId
}

func (self *Core) Name() string {
	return getProperty(&self.entity, &self.name)
}

func (self *Core) SetName(name string) {
	setProperty(&self.entity, core.MemberName, &self.name, name)
}

func (self *Core) DisplayName() string {
	return getProperty(&self.entity, &self.displayName)
}

func (self *Core) SetDisplayName(displayName string) {
	setProperty(&self.entity, core.MemberDisplayName, &self.displayName, displayName)
}

func (self *Core) State() core.CoreState {
	return getProperty(&self.entity, &self.state)
}

func (self *Core) SetState(state core.CoreState) {
	setProperty(&self.entity, core.MemberState, &self.state, state)
}

func (self *Core) User() core.User {
	user := getProperty(&self.entity, &self.user)
	if user == nil {
		return nil
	}
	return user
}

func (self *Core) SetUser(user *User) {
	self.mutex.Lock()
	self.user = user
	self.mutex.Unlock()
	var value core.User
	if user != nil {
		value = user
	}
	self.fire(core.PropertyChange(core.MemberUser, value))
}

func (self *Core) Devices() []core.Device {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	devices := make([]core.Device, len(self.devices))
	for i, device := range self.devices {
		devices[i] = device
	}
	return devices
}

func (self *Core) AddDevice(device *Device) {
	self.mutex.Lock()
	self.devices = append(self.devices, device)
	self.mutex.Unlock()
	self.fire(core.PropertyChange(core.MemberDevices, self.Devices()))
}

func (self *Core) Library() core.Library {
	return self.library
}

func (self *Core) Search() core.Search {
	return self.search
}

func (self *Core) RecentlyPlayed() core.PlayableCollectionGroup {
	return self.recentlyPlayed
}

func (self *Core) Discoverables() core.PlayableCollectionGroup {
	return self.discoverables
}

func (self *Core) Pins() core.PlayableCollectionGroup {
	return self.pins
}

func (self *Core) LibraryGroup() *Group {
	return self.library
}

func (self *Core) SearchEntity() *Search {
	return self.search
}

// Seed fills the library with `albumCount` albums of `tracksPerAlbum` tracks each,
// one artist per ten albums, and a playlist per artist.
func (self *Core) Seed(albumCount int, tracksPerAlbum int) {
	user := self.NewUser("listener")
	self.user = user

	var artist *Artist
	var playlist *Playlist
	for i := 0; i < albumCount; i += 1 {
		if i%10 == 0 {
			artist = self.NewArtist(fmt.Sprintf("Artist %d", i/10))
			self.library.artists.Seed(artist)
			playlist = self.NewPlaylist(fmt.Sprintf("Playlist %d", i/10))
			playlist.owner = user
			self.library.playlists.Seed(playlist)
		}

		album := self.NewAlbum(fmt.Sprintf("Album %d", i))
		album.datePublished = time.Date(2000+i%25, time.January, 1, 0, 0, 0, 0, time.UTC)
		album.images.Seed(self.NewImage(fmt.Sprintf("https://images.local/album/%d.jpg", i), 300, 300))
		album.artists.Seed(artist)
		artist.albums.Seed(album)
		self.library.albums.Seed(album)

		for j := 0; j < tracksPerAlbum; j += 1 {
			track := self.NewTrack(fmt.Sprintf("Album %d Track %d", i, j))
			track.trackNumber = j + 1
			track.duration = time.Duration(180+j) * time.Second
			track.album = album
			track.artists.Seed(artist)
			album.tracks.Seed(track)
			artist.tracks.Seed(track)
			playlist.tracks.Seed(track)
			self.library.tracks.Seed(track)
		}
	}
}

type Search struct {
	entity

	history *Group
}

func (self *Core) newSearch() *Search {
	search := &Search{
		history: self.NewGroup("Search history"),
	}
	search.initEntity(self)
	return search
}

func (self *Search) SearchHistory() core.SearchHistory {
	return self.history
}

func (self *Search) HistoryGroup() *Group {
	return self.history
}

// names of library artists and albums that start with the query
func (self *Search) AutoCompleteSuggestions(ctx context.Context, query string) ([]string, error) {
	library := self.sourceCore.library
	suggestions := []string{}
	match := func(name string) {
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(query)) {
			suggestions = append(suggestions, name)
		}
	}
	for _, artist := range library.artists.All() {
		match(artist.Name())
	}
	for _, album := range library.albums.All() {
		match(album.Name())
	}
	return suggestions, nil
}

// Results collects the library albums and tracks whose name contains the query into a new
// group, and records the group at the front of the search history.
func (self *Search) Results(ctx context.Context, query string) (core.PlayableCollectionGroup, error) {
	library := self.sourceCore.library
	results := self.sourceCore.NewGroup(query)
	contains := func(name string) bool {
		return strings.Contains(strings.ToLower(name), strings.ToLower(query))
	}
	for _, album := range library.albums.All() {
		if contains(album.Name()) {
			results.albums.Seed(album)
		}
	}
	for _, track := range library.tracks.All() {
		if contains(track.Name()) {
			results.tracks.Seed(track)
		}
	}
	if err := self.history.children.Add(ctx, results, 0); err != nil {
		return nil, err
	}
	return results, nil
}

type Image struct {
	entity

	uri    string
	height float64
	width  float64
}

func (self *Core) NewImage(uri string, height float64, width float64) *Image {
	image := &Image{
		uri:    uri,
		height: height,
		width:  width,
	}
	image.initEntity(self)
	return image
}

func (self *Image) Uri() string {
	return getProperty(&self.entity, &self.uri)
}

func (self *Image) Height() float64 {
	return getProperty(&self.entity, &self.height)
}

func (self *Image) Width() float64 {
	return getProperty(&self.entity, &self.width)
}

type Url struct {
	entity

	label string
	href  string
}

func (self *Core) NewUrl(label string, href string) *Url {
	url := &Url{
		label: label,
		href:  href,
	}
	url.initEntity(self)
	return url
}

func (self *Url) Label() string {
	return getProperty(&self.entity, &self.label)
}

func (self *Url) Href() string {
	return getProperty(&self.entity, &self.href)
}

type Genre struct {
	entity

	name string
}

func (self *Core) NewGenre(name string) *Genre {
	genre := &Genre{
		name: name,
	}
	genre.initEntity(self)
	return genre
}

func (self *Genre) Name() string {
	return getProperty(&self.entity, &self.name)
}

type User struct {
	entity

	displayName string
	fullName    string
	email       string
	region      string
	birthdate   time.Time
}

func (self *Core) NewUser(displayName string) *User {
	user := &User{
		displayName: displayName,
		fullName:    displayName,
		email:       fmt.Sprintf("%s@example.com", displayName),
		region:      "US",
		birthdate:   time.Date(1990, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	user.initEntity(self)
	return user
}

func (self *User) DisplayName() string {
	return getProperty(&self.entity, &self.displayName)
}

func (self *User) SetDisplayName(displayName string) {
	setProperty(&self.entity, core.MemberDisplayName, &self.displayName, displayName)
}

func (self *User) FullName() string {
	return getProperty(&self.entity, &self.fullName)
}

func (self *User) Email() string {
	return getProperty(&self.entity, &self.email)
}

func (self *User) Region() string {
	return getProperty(&self.entity, &self.region)
}

func (self *User) Birthdate() time.Time {
	return getProperty(&self.entity, &self.birthdate)
}
