package core

import (
	"context"
	"errors"
	"time"
)

// Domain contracts of a music source backend ("core").
// Concrete backends (file system, cloud storage, peer bootstrapping) live elsewhere and are
// consumed only through these interfaces.

var ErrUnsupported = errors.New("Unsupported operation.")

type PlaybackState int

const (
	PlaybackStateNone    PlaybackState = 0
	PlaybackStateLoading PlaybackState = 1
	PlaybackStatePlaying PlaybackState = 2
	PlaybackStatePaused  PlaybackState = 3
	PlaybackStateQueued  PlaybackState = 4
	PlaybackStateFailed  PlaybackState = 5
)

func (self PlaybackState) String() string {
	switch self {
	case PlaybackStateLoading:
		return "Loading"
	case PlaybackStatePlaying:
		return "Playing"
	case PlaybackStatePaused:
		return "Paused"
	case PlaybackStateQueued:
		return "Queued"
	case PlaybackStateFailed:
		return "Failed"
	default:
		return "None"
	}
}

type CoreState int

const (
	CoreStateUnloaded   CoreState = 0
	CoreStateNeedsSetup CoreState = 1
	CoreStateLoading    CoreState = 2
	CoreStateLoaded     CoreState = 3
	CoreStateFaulted    CoreState = 4
)

type RepeatState int

const (
	RepeatStateNone RepeatState = 0
	RepeatStateOne  RepeatState = 1
	RepeatStateAll  RepeatState = 2
)

type DeviceType int

const (
	DeviceTypeUnknown DeviceType = 0
	DeviceTypeLocal   DeviceType = 1
	DeviceTypeRemote  DeviceType = 2
)

// Entity is anything owned by a core that can be referenced across processes.
type Entity interface {
	Id() string
	SourceCore() Core
	// returns an unsub function
	AddChangeCallback(changeCallback ChangeFunction) func()
	Dispose() error
}

// Identified is the constraint of collection items. Every `Entity` satisfies it.
// `Entity` itself cannot be the constraint since it reaches `Collection` through `Core`.
type Identified interface {
	Id() string
}

// Collection is an ordered, index-addressed sequence of entities.
// `TotalCount` may be larger than the number of items currently materialized.
type Collection[T Identified] interface {
	TotalCount() int
	Items(ctx context.Context, limit int, offset int) ([]T, error)
	Add(ctx context.Context, item T, index int) error
	Remove(ctx context.Context, index int) error
	IsAddAvailable(ctx context.Context, index int) (bool, error)
	IsRemoveAvailable(ctx context.Context, index int) (bool, error)
}

type Playable interface {
	Entity

	Name() string
	Description() string
	PlaybackState() PlaybackState
	Duration() time.Duration
	LastPlayed() time.Time
	AddedAt() time.Time

	Images() Collection[Image]
	Urls() Collection[Url]

	ChangeName(ctx context.Context, name string) error
	ChangeDescription(ctx context.Context, description string) error
	ChangeDuration(ctx context.Context, duration time.Duration) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
}

type Track interface {
	Playable

	TrackNumber() int
	IsExplicit() bool
	// nil when the track has no album
	Album() Album

	Artists() Collection[Artist]
	Genres() Collection[Genre]
}

type Album interface {
	Playable

	DatePublished() time.Time

	Tracks() Collection[Track]
	Artists() Collection[Artist]
	Genres() Collection[Genre]
}

type Artist interface {
	Playable

	Tracks() Collection[Track]
	Albums() Collection[Album]
	Genres() Collection[Genre]
}

type Playlist interface {
	Playable

	// nil when the playlist has no owner
	Owner() User

	Tracks() Collection[Track]
}

type PlayableCollectionGroup interface {
	Playable

	Tracks() Collection[Track]
	Albums() Collection[Album]
	Artists() Collection[Artist]
	Playlists() Collection[Playlist]
	Children() Collection[PlayableCollectionGroup]
}

type Library interface {
	PlayableCollectionGroup
}

type SearchHistory interface {
	PlayableCollectionGroup
}

type Search interface {
	Entity

	SearchHistory() SearchHistory
	AutoCompleteSuggestions(ctx context.Context, query string) ([]string, error)
	Results(ctx context.Context, query string) (PlayableCollectionGroup, error)
}

type Image interface {
	Entity

	Uri() string
	Height() float64
	Width() float64
}

type Url interface {
	Entity

	Label() string
	Href() string
}

type Genre interface {
	Entity

	Name() string
}

type User interface {
	Entity

	DisplayName() string
	FullName() string
	Email() string
	Region() string
	Birthdate() time.Time
}

type Device interface {
	Entity

	Name() string
	Type() DeviceType
	IsActive() bool
	Volume() float64
	ShuffleState() bool
	RepeatState() RepeatState
	PlaybackState() PlaybackState
	Position() time.Duration
	// nil when nothing is playing
	NowPlaying() Track

	PlaybackQueue() Collection[Track]

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	ChangeVolume(ctx context.Context, volume float64) error
	ChangeShuffleState(ctx context.Context, shuffle bool) error
	ChangeRepeatState(ctx context.Context, repeatState RepeatState) error
	SwitchTo(ctx context.Context) error
}

// Core is the root of one music source. Its id is the instance id.
type Core interface {
	Entity

	InstanceId() string
	Name() string
	DisplayName() string
	State() CoreState

	// nil when no user is signed in
	User() User
	Devices() []Device
	Library() Library
	Search() Search
	RecentlyPlayed() PlayableCollectionGroup
	Discoverables() PlayableCollectionGroup
	Pins() PlayableCollectionGroup
}
