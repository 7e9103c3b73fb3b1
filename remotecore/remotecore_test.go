package remotecore

import (
	"context"
	"flag"
	"testing"
	"time"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/coretest"
	"bringyour.com/coresync/remote"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

func eventually(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	endTime := time.Now().Add(timeout)
	for {
		if condition() {
			return
		}
		if endTime.Before(time.Now()) {
			t.Fatalf("Condition not met after %s.", timeout)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// a live core wrapped by a host registry, mirrored by a client registry over a loopback
type testHarness struct {
	real           *coretest.Core
	hostHandler    *remote.MessageHandler
	clientHandler  *remote.MessageHandler
	loopback       *remote.Loopback
	hostRegistry   *Registry
	clientRegistry *Registry
	host           *RemoteCore
	client         *RemoteCore
}

func newTestHarness(t *testing.T, ctx context.Context, albumCount int) *testHarness {
	return newTestHarnessWithSettings(t, ctx, albumCount, remote.DefaultLoopbackSettings())
}

func newTestHarnessWithSettings(
	t *testing.T,
	ctx context.Context,
	albumCount int,
	loopbackSettings *remote.LoopbackSettings,
) *testHarness {
	real := coretest.NewCore(remote.NewId().String(), "Test core")
	real.Seed(albumCount, 2)

	hostHandler := remote.NewMessageHandlerWithDefaults(ctx, remote.RoleHost)
	clientHandler := remote.NewMessageHandlerWithDefaults(ctx, remote.RoleClient)
	loopback := remote.NewLoopback(ctx, hostHandler, clientHandler, loopbackSettings)

	hostRegistry := NewHostRegistry(hostHandler)
	clientRegistry := NewClientRegistry(clientHandler)

	host, err := hostRegistry.Wrap(real)
	if err != nil {
		t.Fatal(err)
	}
	client, err := clientRegistry.GetInstance(real.InstanceId())
	if err != nil {
		t.Fatal(err)
	}
	return &testHarness{
		real:           real,
		hostHandler:    hostHandler,
		clientHandler:  clientHandler,
		loopback:       loopback,
		hostRegistry:   hostRegistry,
		clientRegistry: clientRegistry,
		host:           host,
		client:         client,
	}
}

func (self *testHarness) Close() {
	self.loopback.Close()
}

// the client library, with the host library wrapped and both synchronized
func (self *testHarness) syncedLibrary(t *testing.T, ctx context.Context) *RemotePlayableCollectionGroup {
	self.host.Library()
	library := self.client.Library().(*RemotePlayableCollectionGroup)
	if err := library.Synchronize(ctx); err != nil {
		t.Fatal(err)
	}
	return library
}

func syncEntity(t *testing.T, ctx context.Context, e core.Entity) {
	t.Helper()
	if err := e.(entity).base().Synchronize(ctx); err != nil {
		t.Fatal(err)
	}
}
