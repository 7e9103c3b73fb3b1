package core

// Change notifications raised by entities. A property write raises a `ChangeKindProperty`
// with the new value, a collection mutation raises a `ChangeKindCollection` with an
// index-addressed delta, and any other event raises a `ChangeKindEvent` with its arguments.

type ChangeKind int

const (
	ChangeKindProperty   ChangeKind = 0
	ChangeKindCollection ChangeKind = 1
	ChangeKindEvent      ChangeKind = 2
)

type DeltaOp int

const (
	DeltaOpAdd    DeltaOp = 0
	DeltaOpRemove DeltaOp = 1
)

func (self DeltaOp) String() string {
	switch self {
	case DeltaOpAdd:
		return "add"
	case DeltaOpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

type Delta struct {
	Op    DeltaOp
	Index int
	// the added or removed item, when known
	Item Entity
}

type Change struct {
	Kind   ChangeKind
	Member string
	Value  any
	Delta  Delta
	Args   []any
}

type ChangeFunction = func(change Change)

func PropertyChange(member string, value any) Change {
	return Change{
		Kind:   ChangeKindProperty,
		Member: member,
		Value:  value,
	}
}

func CollectionChange(member string, op DeltaOp, index int, item Entity) Change {
	return Change{
		Kind:   ChangeKindCollection,
		Member: member,
		Delta: Delta{
			Op:    op,
			Index: index,
			Item:  item,
		},
	}
}

func EventChange(member string, args ...any) Change {
	return Change{
		Kind:   ChangeKindEvent,
		Member: member,
		Args:   args,
	}
}

// member names shared by backends and the remote protocol
const (
	MemberName          = "Name"
	MemberDescription   = "Description"
	MemberPlaybackState = "PlaybackState"
	MemberDuration      = "Duration"
	MemberLastPlayed    = "LastPlayed"
	MemberAddedAt       = "AddedAt"

	MemberTrackNumber   = "TrackNumber"
	MemberIsExplicit    = "IsExplicit"
	MemberAlbum         = "Album"
	MemberDatePublished = "DatePublished"
	MemberOwner         = "Owner"

	MemberUri    = "Uri"
	MemberHeight = "Height"
	MemberWidth  = "Width"
	MemberLabel  = "Label"
	MemberHref   = "Href"

	MemberDisplayName = "DisplayName"
	MemberFullName    = "FullName"
	MemberEmail       = "Email"
	MemberRegion      = "Region"
	MemberBirthdate   = "Birthdate"

	MemberType         = "Type"
	MemberIsActive     = "IsActive"
	MemberVolume       = "Volume"
	MemberShuffleState = "ShuffleState"
	MemberRepeatState  = "RepeatState"
	MemberPosition     = "Position"
	MemberNowPlaying   = "NowPlaying"

	MemberState         = "State"
	MemberUser          = "User"
	MemberDevices       = "Devices"
	MemberSearchHistory = "SearchHistory"

	EventSeeked = "Seeked"
)

// collection member names
const (
	CollectionTracks        = "Tracks"
	CollectionAlbums        = "Albums"
	CollectionArtists       = "Artists"
	CollectionPlaylists     = "Playlists"
	CollectionChildren      = "Children"
	CollectionImages        = "Images"
	CollectionUrls          = "Urls"
	CollectionGenres        = "Genres"
	CollectionPlaybackQueue = "PlaybackQueue"
)

// CountMember is the property that carries the total count of a collection.
func CountMember(collection string) string {
	switch collection {
	case CollectionTracks:
		return "TotalTrackCount"
	case CollectionAlbums:
		return "TotalAlbumItemsCount"
	case CollectionArtists:
		return "TotalArtistItemsCount"
	case CollectionPlaylists:
		return "TotalPlaylistItemsCount"
	case CollectionChildren:
		return "TotalChildrenCount"
	case CollectionImages:
		return "TotalImageCount"
	case CollectionUrls:
		return "TotalUrlCount"
	case CollectionGenres:
		return "TotalGenreCount"
	default:
		return "Total" + collection + "Count"
	}
}
