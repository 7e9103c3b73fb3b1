package remotecore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/coretest"
	"bringyour.com/coresync/remote"
)

func TestCoreScalarConvergence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 1)
	defer harness.Close()

	assert.Equal(t, remote.SyncStateUnsynchronized, harness.client.SyncState())
	assert.Equal(t, nil, harness.client.Synchronize(ctx))
	assert.Equal(t, remote.SyncStateSynchronized, harness.client.SyncState())
	assert.Equal(t, "Test core", harness.client.Name())
	assert.Equal(t, core.CoreStateLoaded, harness.client.State())

	harness.real.SetName("Renamed")
	harness.real.SetDisplayName("Renamed core")
	harness.real.SetState(core.CoreStateLoading)
	eventually(t, 5*time.Second, func() bool {
		return harness.client.Name() == "Renamed" &&
			harness.client.DisplayName() == "Renamed core" &&
			harness.client.State() == core.CoreStateLoading
	})

	// reads on the host go through to the live core
	assert.Equal(t, "Renamed", harness.host.Name())
	assert.Equal(t, core.CoreStateLoading, harness.host.State())
}

func TestConcurrentPropertyWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 1)
	defer harness.Close()

	assert.Equal(t, nil, harness.client.Synchronize(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 32; i += 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			harness.real.SetName(fmt.Sprintf("Name %d", i))
		}()
	}
	wg.Wait()

	// the client ends on the host's final value whatever order the notifications ran in
	eventually(t, 5*time.Second, func() bool {
		return harness.client.Name() == harness.real.Name()
	})
	assert.Equal(t, remote.SyncStateSynchronized, harness.client.SyncState())
}

func TestNonUtf8Name(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 1)
	defer harness.Close()

	assert.Equal(t, nil, harness.client.Synchronize(ctx))

	// latin-1 tag data from a backend
	harness.real.SetName("Caf\xe9 core")
	eventually(t, 5*time.Second, func() bool {
		return harness.client.Name() == "Caf\xe9 core"
	})
	assert.Equal(t, uint64(0), harness.hostHandler.Stats().TransportFailures)

	harness.real.SetDisplayName("Caf\xe9")
	assert.Equal(t, nil, harness.client.Synchronize(ctx))
	assert.Equal(t, "Caf\xe9", harness.client.DisplayName())
	assert.Equal(t, remote.SyncStateSynchronized, harness.client.SyncState())
}

func TestLibraryItemsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 50)
	defer harness.Close()

	realAlbums := harness.real.LibraryGroup().AlbumCollection().All()
	for _, n := range []int{1, 5, 10, 50} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			albums, err := harness.client.Library().Albums().Items(ctx, n, 0)
			assert.Equal(t, nil, err)
			assert.Equal(t, n, len(albums))
			for i, album := range albums {
				assert.Equal(t, realAlbums[i].Id(), album.Id())
				assert.Equal(t, realAlbums[i].Name(), album.Name())
				assert.Equal(t, true, album.SourceCore() == core.Core(harness.client))
			}
		})
	}

	// paging past the end
	albums, err := harness.client.Library().Albums().Items(ctx, 10, 45)
	assert.Equal(t, nil, err)
	assert.Equal(t, 5, len(albums))
	albums, err = harness.client.Library().Albums().Items(ctx, 10, 50)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(albums))

	// errors of the live collection reach the caller
	_, err = harness.client.Library().Albums().Items(ctx, -1, 0)
	assert.NotEqual(t, nil, err)
}

func TestLibraryFirstPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 10)
	defer harness.Close()

	albums, err := harness.client.Library().Albums().Items(ctx, 10, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, 10, len(albums))
	for i, album := range albums {
		assert.Equal(t, fmt.Sprintf("Album %d", i), album.Name())
	}

	// items are reference-stable per path
	again, err := harness.client.Library().Albums().Items(ctx, 10, 0)
	assert.Equal(t, nil, err)
	for i := range albums {
		assert.Equal(t, true, albums[i] == again[i])
	}
}

func entityIds[T core.Entity](items []T) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Id()
	}
	return ids
}

func descriptorIds(descriptors []remote.Descriptor) []string {
	ids := make([]string, len(descriptors))
	for i, descriptor := range descriptors {
		ids[i] = descriptor.Id
	}
	return ids
}

func testCollectionConvergence[T core.Entity](
	t *testing.T,
	ctx context.Context,
	realCollection *coretest.Collection[T],
	clientCollection core.Collection[T],
	newItem T,
) {
	t.Helper()

	mirror := clientCollection.(*remoteCollection[T])
	owner := mirror.owner

	// a sync brings the whole collection over
	assert.Equal(t, nil, owner.Synchronize(ctx))
	assert.Equal(t, remote.SyncStateSynchronized, owner.State())
	assert.Equal(t, entityIds(realCollection.All()), descriptorIds(mirror.Mirror()))

	initialCount := realCollection.TotalCount()
	end := len(realCollection.All())
	converged := func(count int, length int) func() bool {
		return func() bool {
			return realCollection.TotalCount() == count &&
				clientCollection.TotalCount() == count &&
				len(mirror.Mirror()) == length
		}
	}

	// host side changes reach the client, including past the start of the mirror
	assert.Equal(t, nil, realCollection.Add(ctx, newItem, end))
	eventually(t, 5*time.Second, converged(initialCount+1, end+1))
	assert.Equal(t, newItem.Id(), mirror.Mirror()[end].Id)
	assert.Equal(t, entityIds(realCollection.All()), descriptorIds(mirror.Mirror()))

	assert.Equal(t, nil, realCollection.Remove(ctx, end))
	eventually(t, 5*time.Second, converged(initialCount, end))

	// client side changes are applied by the host and confirmed back
	middle := end / 2
	assert.Equal(t, nil, clientCollection.Add(ctx, newItem, middle))
	eventually(t, 5*time.Second, converged(initialCount+1, end+1))
	assert.Equal(t, newItem.Id(), realCollection.All()[middle].Id())
	assert.Equal(t, entityIds(realCollection.All()), descriptorIds(mirror.Mirror()))

	assert.Equal(t, nil, clientCollection.Remove(ctx, middle))
	eventually(t, 5*time.Second, converged(initialCount, end))
	assert.Equal(t, entityIds(realCollection.All()), descriptorIds(mirror.Mirror()))
	assert.Equal(t, remote.SyncStateSynchronized, owner.State())
}

func TestCollectionConvergence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 3)
	defer harness.Close()

	real := harness.real
	library := harness.syncedLibrary(t, ctx)
	realLibrary := real.LibraryGroup()

	t.Run("tracks", func(t *testing.T) {
		testCollectionConvergence[core.Track](t, ctx, realLibrary.TrackCollection(), library.Tracks(), real.NewTrack("New track"))
	})
	t.Run("albums", func(t *testing.T) {
		testCollectionConvergence[core.Album](t, ctx, realLibrary.AlbumCollection(), library.Albums(), real.NewAlbum("New album"))
	})
	t.Run("artists", func(t *testing.T) {
		testCollectionConvergence[core.Artist](t, ctx, realLibrary.ArtistCollection(), library.Artists(), real.NewArtist("New artist"))
	})
	t.Run("playlists", func(t *testing.T) {
		testCollectionConvergence[core.Playlist](t, ctx, realLibrary.PlaylistCollection(), library.Playlists(), real.NewPlaylist("New playlist"))
	})
	t.Run("children", func(t *testing.T) {
		testCollectionConvergence[core.PlayableCollectionGroup](t, ctx, realLibrary.ChildCollection(), library.Children(), real.NewGroup("New group"))
	})

	t.Run("images", func(t *testing.T) {
		albums, err := library.Albums().Items(ctx, 1, 0)
		assert.Equal(t, nil, err)
		realAlbum := realLibrary.AlbumCollection().All()[0].(*coretest.Album)
		testCollectionConvergence[core.Image](t, ctx, realAlbum.ImageCollection(), albums[0].Images(), real.NewImage("https://images.local/new.jpg", 64, 64))
	})
	t.Run("urls", func(t *testing.T) {
		albums, err := library.Albums().Items(ctx, 1, 0)
		assert.Equal(t, nil, err)
		realAlbum := realLibrary.AlbumCollection().All()[0].(*coretest.Album)
		testCollectionConvergence[core.Url](t, ctx, realAlbum.UrlCollection(), albums[0].Urls(), real.NewUrl("Home", "https://albums.local/0"))
	})
	t.Run("genres", func(t *testing.T) {
		tracks, err := library.Tracks().Items(ctx, 1, 0)
		assert.Equal(t, nil, err)
		realTrack := realLibrary.TrackCollection().All()[0].(*coretest.Track)
		testCollectionConvergence[core.Genre](t, ctx, realTrack.GenreCollection(), tracks[0].Genres(), real.NewGenre("Jazz"))
	})
	t.Run("playback queue", func(t *testing.T) {
		device := real.NewDevice("Speaker", core.DeviceTypeRemote)
		real.AddDevice(device)
		assert.Equal(t, nil, harness.client.Synchronize(ctx))
		devices := harness.client.Devices()
		assert.Equal(t, 1, len(devices))
		testCollectionConvergence[core.Track](t, ctx, device.PlaybackQueueCollection(), devices[0].PlaybackQueue(), real.NewTrack("Queued track"))
	})

	assert.Equal(t, uint64(0), harness.clientHandler.Stats().ApplyFailures)
}

func TestTotalCountConvergence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 2)
	defer harness.Close()

	// touch the library on both sides
	library := harness.syncedLibrary(t, ctx)
	assert.Equal(t, 4, library.Tracks().TotalCount())

	harness.real.LibraryGroup().TrackCollection().SetTotalCount(100)
	eventually(t, 5*time.Second, func() bool {
		return harness.client.Library().Tracks().TotalCount() == 100
	})
	assert.Equal(t, 100, harness.host.Library().Tracks().TotalCount())
}

func TestClientAddConfirmedByHost(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 5)
	defer harness.Close()

	library := harness.syncedLibrary(t, ctx)
	realAlbums := harness.real.LibraryGroup().AlbumCollection()
	before := realAlbums.TotalCount()
	assert.Equal(t, before, library.Albums().TotalCount())

	album := harness.real.NewAlbum("New album")
	assert.Equal(t, nil, library.Albums().Add(ctx, album, 0))

	eventually(t, 5*time.Second, func() bool {
		return realAlbums.TotalCount() == before+1
	})
	added := realAlbums.All()[0]
	assert.Equal(t, album.Id(), added.Id())
	assert.Equal(t, "New album", added.Name())
	assert.Equal(t, before+1, harness.host.Library().Albums().TotalCount())

	eventually(t, 5*time.Second, func() bool {
		return library.Albums().TotalCount() == before+1
	})

	// an unavailable add is refused by the host and the client does not change
	realAlbums.SetAddAvailable(false)
	available, err := library.Albums().IsAddAvailable(ctx, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, false, available)
	assert.Equal(t, nil, library.Albums().Add(ctx, harness.real.NewAlbum("Refused album"), 0))
	// calls on one path are served in order, so the add was handled before this returns
	removable, err := library.Albums().IsRemoveAvailable(ctx, 0)
	assert.Equal(t, before+1, realAlbums.TotalCount())
	assert.Equal(t, before+1, library.Albums().TotalCount())

	assert.Equal(t, nil, err)
	assert.Equal(t, true, removable)
	assert.Equal(t, nil, library.Albums().Remove(ctx, 0))
	eventually(t, 5*time.Second, func() bool {
		return realAlbums.TotalCount() == before && library.Albums().TotalCount() == before
	})
}

func TestHostAuthoritative(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := remote.DefaultLoopbackSettings()
	settings.FixedDelay = 50 * time.Millisecond
	harness := newTestHarnessWithSettings(t, ctx, 1, settings)
	defer harness.Close()

	albums, err := harness.client.Library().Albums().Items(ctx, 1, 0)
	assert.Equal(t, nil, err)
	clientAlbum := albums[0]
	realAlbum := harness.real.LibraryGroup().AlbumCollection().All()[0]

	assert.Equal(t, nil, clientAlbum.ChangeName(ctx, "From client"))
	// no optimistic update
	assert.Equal(t, "Album 0", clientAlbum.Name())
	eventually(t, 5*time.Second, func() bool {
		return realAlbum.Name() == "From client" && clientAlbum.Name() == "From client"
	})

	// competing writes converge on the host value
	assert.Equal(t, nil, clientAlbum.ChangeName(ctx, "Second from client"))
	assert.Equal(t, nil, realAlbum.ChangeName(ctx, "From host"))
	eventually(t, 5*time.Second, func() bool {
		return clientAlbum.Name() == realAlbum.Name() && realAlbum.Name() == "Second from client"
	})

	// read-only members are refused by the host
	syncEntity(t, ctx, clientAlbum)
	member := clientAlbum.(*RemoteAlbum).MemberRemote()
	assert.Equal(t, nil, member.Set(ctx, core.MemberPlaybackState, int64(core.PlaybackStatePlaying)))
	eventually(t, 5*time.Second, func() bool {
		return harness.hostHandler.Stats().ApplyFailures == 1
	})
	assert.Equal(t, core.PlaybackStateNone, realAlbum.PlaybackState())
	assert.Equal(t, core.PlaybackStateNone, clientAlbum.PlaybackState())
}

func TestEntityValuedProperties(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 2)
	defer harness.Close()

	library := harness.syncedLibrary(t, ctx)
	realLibrary := harness.real.LibraryGroup()

	tracks, err := library.Tracks().Items(ctx, 1, 0)
	assert.Equal(t, nil, err)
	track := tracks[0]
	syncEntity(t, ctx, track)
	realTrack := realLibrary.TrackCollection().All()[0]
	assert.Equal(t, 1, track.TrackNumber())
	assert.Equal(t, 180*time.Second, track.Duration())
	album := track.Album()
	assert.NotEqual(t, nil, album)
	assert.Equal(t, realTrack.Album().Id(), album.Id())
	assert.Equal(t, "Album 0", album.Name())

	playlists, err := library.Playlists().Items(ctx, 1, 0)
	assert.Equal(t, nil, err)
	syncEntity(t, ctx, playlists[0])
	owner := playlists[0].Owner()
	assert.NotEqual(t, nil, owner)
	syncEntity(t, ctx, owner)
	assert.Equal(t, "listener", owner.DisplayName())

	assert.Equal(t, nil, harness.client.Synchronize(ctx))
	user := harness.client.User()
	assert.Equal(t, harness.real.User().Id(), user.Id())
	// one wrapper per path
	assert.Equal(t, true, user == owner)

	// entity-valued changes are sent by reference
	otherUser := harness.real.NewUser("other")
	harness.real.SetUser(otherUser)
	eventually(t, 5*time.Second, func() bool {
		user := harness.client.User()
		return user != nil && user.Id() == otherUser.Id()
	})
	harness.real.SetUser(nil)
	eventually(t, 5*time.Second, func() bool {
		return harness.client.User() == nil
	})
}

func TestClientChangeCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness := newTestHarness(t, ctx, 2)
	defer harness.Close()

	library := harness.syncedLibrary(t, ctx)
	before := library.Tracks().TotalCount()

	changes := make(chan core.Change, 16)
	unsub := library.AddChangeCallback(func(change core.Change) {
		select {
		case changes <- change:
		default:
		}
	})
	defer unsub()

	nextChange := func() core.Change {
		select {
		case change := <-changes:
			return change
		case <-time.After(5 * time.Second):
			t.Fatal("No change.")
			return core.Change{}
		}
	}

	track := harness.real.NewTrack("New track")
	assert.Equal(t, nil, harness.real.LibraryGroup().TrackCollection().Add(ctx, track, 0))

	change := nextChange()
	assert.Equal(t, core.ChangeKindCollection, change.Kind)
	assert.Equal(t, core.CollectionTracks, change.Member)
	assert.Equal(t, core.DeltaOpAdd, change.Delta.Op)
	assert.Equal(t, 0, change.Delta.Index)
	item, ok := change.Delta.Item.(*RemoteTrack)
	assert.Equal(t, true, ok)
	assert.Equal(t, track.Id(), item.Id())
	assert.Equal(t, "New track", item.Name())

	change = nextChange()
	assert.Equal(t, core.ChangeKindProperty, change.Kind)
	assert.Equal(t, core.CountMember(core.CollectionTracks), change.Member)
	assert.Equal(t, before+1, change.Value)

	// no callbacks after unsub
	unsub()
	harness.real.LibraryGroup().SetPlaybackState(core.PlaybackStatePlaying)
	eventually(t, 5*time.Second, func() bool {
		return library.PlaybackState() == core.PlaybackStatePlaying
	})
	assert.Equal(t, 0, len(changes))
}
