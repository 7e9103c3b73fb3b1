package main

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/coretest"
	"bringyour.com/coresync/remote"
	"bringyour.com/coresync/remotecore"
)

// runDemo serves an in-memory core from a host registry, mirrors it in a client registry over
// a loopback, and walks the client through a library read, a host-side count change, and a
// client-side add.
func runDemo(ctx context.Context, settings *Settings, out *output) error {
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	real := coretest.NewCore(settings.Demo.InstanceId, settings.Demo.Name)
	real.Seed(settings.Demo.Albums, settings.Demo.TracksPerAlbum)

	hostHandler := remote.NewMessageHandler(cancelCtx, remote.RoleHost, settings.MessageHandlerSettings())
	clientHandler := remote.NewMessageHandler(cancelCtx, remote.RoleClient, settings.MessageHandlerSettings())
	loopback := remote.NewLoopback(cancelCtx, hostHandler, clientHandler, settings.LoopbackSettings())
	defer loopback.Close()

	hostRegistry := remotecore.NewHostRegistry(hostHandler)
	clientRegistry := remotecore.NewClientRegistry(clientHandler)

	host, err := hostRegistry.Wrap(real)
	if err != nil {
		return err
	}
	defer host.Dispose()
	client, err := clientRegistry.GetInstance(real.InstanceId())
	if err != nil {
		return err
	}
	defer client.Dispose()

	timeoutCtx, timeoutCancel := context.WithTimeout(cancelCtx, settings.Demo.Timeout)
	defer timeoutCancel()

	if err := client.Synchronize(timeoutCtx); err != nil {
		return fmt.Errorf("Could not synchronize core. %w", err)
	}
	out.Print("core", map[string]any{
		"instance_id": client.InstanceId(),
		"name":        client.Name(),
		"state":       client.State(),
		"sync":        client.SyncState().String(),
	})

	unsub := client.Library().AddChangeCallback(func(change core.Change) {
		fields := map[string]any{
			"member": change.Member,
		}
		switch change.Kind {
		case core.ChangeKindProperty:
			fields["value"] = change.Value
		case core.ChangeKindCollection:
			fields["op"] = change.Delta.Op.String()
			fields["index"] = change.Delta.Index
			if change.Delta.Item != nil {
				fields["item"] = change.Delta.Item.Id()
			}
		}
		out.Print("library_change", fields)
	})
	defer unsub()

	_, err = remote.TraceWithReturnError("[demo]read library", func() (int, error) {
		return readLibrary(timeoutCtx, settings, client, out)
	})
	if err != nil {
		return err
	}
	_, err = remote.TraceWithReturnError("[demo]change total count", func() (int, error) {
		return changeTotalCount(timeoutCtx, settings, real, host, client, out)
	})
	if err != nil {
		return err
	}
	_, err = remote.TraceWithReturnError("[demo]add from client", func() (int, error) {
		return addFromClient(timeoutCtx, real, client, out)
	})
	if err != nil {
		return err
	}

	hostStats := hostHandler.Stats()
	clientStats := clientHandler.Stats()
	loopbackStats := loopback.Stats()
	out.Print("stats", map[string]any{
		"host_sent":             hostStats.Sent,
		"host_apply_failures":   hostStats.ApplyFailures,
		"host_dropped_unknown":  hostStats.DroppedUnknown,
		"client_sent":           clientStats.Sent,
		"client_apply_failures": clientStats.ApplyFailures,
		"host_to_client":        loopbackStats.HostToClient,
		"client_to_host":        loopbackStats.ClientToHost,
		"lost":                  loopbackStats.Lost,
		"duplicated":            loopbackStats.Duplicated,
	})
	return nil
}

// first page of library albums, read through the client
func readLibrary(ctx context.Context, settings *Settings, client *remotecore.RemoteCore, out *output) (int, error) {
	albums, err := client.Library().Albums().Items(ctx, settings.Demo.PageSize, 0)
	if err != nil {
		return 0, fmt.Errorf("Could not read library albums. %w", err)
	}
	for i, album := range albums {
		out.Print("album", map[string]any{
			"index": i,
			"id":    album.Id(),
			"name":  album.Name(),
		})
	}
	return len(albums), nil
}

// a count change on the host reaches the client
func changeTotalCount(
	ctx context.Context,
	settings *Settings,
	real *coretest.Core,
	host *remotecore.RemoteCore,
	client *remotecore.RemoteCore,
	out *output,
) (int, error) {
	// wrap the host library so that real changes are published
	host.Library()
	library := client.Library().(*remotecore.RemotePlayableCollectionGroup)
	if err := library.Synchronize(ctx); err != nil {
		return 0, fmt.Errorf("Could not synchronize library. %w", err)
	}

	real.LibraryGroup().TrackCollection().SetTotalCount(settings.Demo.TotalCount)
	err := waitFor(ctx, func() bool {
		return library.Tracks().TotalCount() == settings.Demo.TotalCount
	})
	if err != nil {
		return 0, fmt.Errorf("Track count did not converge. %w", err)
	}
	clientCount := library.Tracks().TotalCount()
	out.Print("track_count", map[string]any{
		"host":   real.LibraryGroup().TrackCollection().TotalCount(),
		"client": clientCount,
	})
	return clientCount, nil
}

// an add from the client is applied by the host and confirmed back to the client
func addFromClient(ctx context.Context, real *coretest.Core, client *remotecore.RemoteCore, out *output) (int, error) {
	albums := client.Library().Albums()
	before := real.LibraryGroup().AlbumCollection().TotalCount()

	album := real.NewAlbum(fmt.Sprintf("Album added at %s", time.Now().Format(time.TimeOnly)))
	if err := albums.Add(ctx, album, 0); err != nil {
		return 0, fmt.Errorf("Could not add album. %w", err)
	}
	err := waitFor(ctx, func() bool {
		return real.LibraryGroup().AlbumCollection().TotalCount() == before+1 &&
			albums.TotalCount() == before+1
	})
	if err != nil {
		return 0, fmt.Errorf("Album count did not converge. %w", err)
	}
	clientCount := albums.TotalCount()
	out.Print("album_count", map[string]any{
		"host":   real.LibraryGroup().AlbumCollection().TotalCount(),
		"client": clientCount,
		"added":  album.Id(),
	})
	return clientCount, nil
}

func waitFor(ctx context.Context, condition func() bool) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if condition() {
			return nil
		}
		select {
		case <-ctx.Done():
			glog.Infof("[demo]wait canceled = %s\n", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
