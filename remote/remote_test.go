package remote

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/exp/slices"

	"bringyour.com/coresync/core"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

// polls `condition` until it holds or the timeout passes
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

// the real side of a test entity
type testThing struct {
	mutex  sync.Mutex
	name   string
	volume float64
	items  []Descriptor
}

func (self *testThing) Name() string {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.name
}

func (self *testThing) setName(name string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.name = name
}

func (self *testThing) Items() []Descriptor {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return slices.Clone(self.items)
}

// inserts into the real items and publishes the delta, like a host wrapper does
func (self *testThing) addItem(hostMember *MemberRemote, index int, item Descriptor) error {
	func() {
		self.mutex.Lock()
		defer self.mutex.Unlock()
		self.items = slices.Insert(self.items, index, item)
	}()
	return hostMember.PublishDelta("Items", core.DeltaOpAdd, index, item)
}

func (self *testThing) Volume() float64 {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.volume
}

// a host member and a client member on the same path, joined by a loopback
type testPair struct {
	host         *MessageHandler
	client       *MessageHandler
	loopback     *Loopback
	thing        *testThing
	hostMember   *MemberRemote
	clientMember *MemberRemote
}

func newTestPath(id string) Path {
	return NewPath("core1", "Thing", id)
}

func newTestDeclaration(thing *testThing, hostMember **MemberRemote) *Declaration {
	return &Declaration{
		Properties: []*Property{
			{
				Name: "Name",
				Get: func() any {
					return thing.Name()
				},
				Set: func(ctx context.Context, value any) error {
					name := AsString(value)
					thing.setName(name)
					return (*hostMember).Publish("Name", name)
				},
			},
			{
				Name: "Volume",
				Get: func() any {
					return thing.Volume()
				},
			},
		},
		Methods: []*Method{
			{
				Name: "Sum",
				Invoke: func(ctx context.Context, args []any) (any, error) {
					total := int64(0)
					for _, arg := range args {
						total += AsInt64(arg)
					}
					return total, nil
				},
			},
			{
				Name: "Unsupported",
				Invoke: func(ctx context.Context, args []any) (any, error) {
					return nil, fmt.Errorf("%w: Unsupported", ErrUnsupported)
				},
			},
			{
				Name: "Fault",
				Invoke: func(ctx context.Context, args []any) (any, error) {
					return nil, errors.New("Fault.")
				},
			},
			{
				Name: "Panic",
				Invoke: func(ctx context.Context, args []any) (any, error) {
					panic("Panic.")
				},
			},
		},
		Collections: []*Collection{
			{
				Name: "Items",
				Snapshot: func(ctx context.Context) ([]Descriptor, error) {
					return thing.Items(), nil
				},
			},
		},
	}
}

func newTestPair(t *testing.T, ctx context.Context, settings *LoopbackSettings) *testPair {
	host := NewMessageHandlerWithDefaults(ctx, RoleHost)
	client := NewMessageHandlerWithDefaults(ctx, RoleClient)
	loopback := NewLoopback(ctx, host, client, settings)

	thing := &testThing{
		name:   "a",
		volume: 0.5,
	}
	path := newTestPath("a")

	var hostMember *MemberRemote
	var err error
	hostMember, err = NewMemberRemote(path, host, newTestDeclaration(thing, &hostMember))
	if err != nil {
		t.Fatal(err)
	}
	clientMember, err := NewMemberRemote(path, client, &Declaration{
		Collections: []*Collection{
			{Name: "Items"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &testPair{
		host:         host,
		client:       client,
		loopback:     loopback,
		thing:        thing,
		hostMember:   hostMember,
		clientMember: clientMember,
	}
}
