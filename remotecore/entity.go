package remotecore

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

// every typed wrapper
type entity interface {
	core.Entity
	base() *remoteEntity
}

// remoteEntity is the part shared by every typed wrapper: the identity, the member remote
// on the bus, and the bridge between domain changes and bus messages.
type remoteEntity struct {
	registry         *Registry
	kind             string
	id               string
	sourceInstanceId string
	memberRemote     *remote.MemberRemote
	// set in the host role
	realEntity core.Entity

	changeCallbacks *remote.CallbackList[core.ChangeFunction]
	unsubs          []func()
}

func (self *remoteEntity) init(
	registry *Registry,
	descriptor remote.Descriptor,
	real core.Entity,
	detached bool,
	declaration *remote.Declaration,
) error {
	self.registry = registry
	self.kind = descriptor.Kind
	self.id = descriptor.Id
	self.sourceInstanceId = descriptor.SourceCoreInstanceId
	self.realEntity = real
	self.changeCallbacks = remote.NewCallbackList[core.ChangeFunction]()

	if declaration.Initial == nil {
		declaration.Initial = map[string]any{}
	}
	if descriptor.Name != "" {
		declaration.Initial[core.MemberName] = descriptor.Name
	}

	path := descriptor.Path()
	if detached {
		self.memberRemote = remote.NewDetachedMemberRemote(path, declaration)
		return nil
	}
	memberRemote, err := remote.NewMemberRemote(path, registry.handler, declaration)
	if err != nil {
		return err
	}
	self.memberRemote = memberRemote
	if real != nil {
		self.unsubs = append(self.unsubs, real.AddChangeCallback(self.realChanged))
	} else {
		self.unsubs = append(self.unsubs, memberRemote.AddAppliedCallback(self.applied))
	}
	return nil
}

func (self *remoteEntity) base() *remoteEntity {
	return self
}

func (self *remoteEntity) Id() string {
	return self.id
}

func (self *remoteEntity) Kind() string {
	return self.kind
}

func (self *remoteEntity) Path() remote.Path {
	return self.memberRemote.Path()
}

func (self *remoteEntity) MemberRemote() *remote.MemberRemote {
	return self.memberRemote
}

func (self *remoteEntity) State() remote.SyncState {
	return self.memberRemote.State()
}

// Synchronize pulls every mirrored property of this entity from the host.
func (self *remoteEntity) Synchronize(ctx context.Context) error {
	return self.memberRemote.Synchronize(ctx)
}

func (self *remoteEntity) SourceCore() core.Core {
	if self.registry.role == remote.RoleClient && !self.memberRemote.IsDetached() {
		if remoteCore, err := self.registry.GetInstance(self.sourceInstanceId); err == nil {
			return remoteCore
		}
		return nil
	}
	if remoteCore, ok := self.registry.lookupCore(self.sourceInstanceId); ok {
		return remoteCore
	}
	if self.realEntity != nil {
		return self.realEntity.SourceCore()
	}
	return nil
}

// In the host role callbacks observe the real entity.
// In the client role they observe confirmed host messages.
func (self *remoteEntity) AddChangeCallback(changeCallback core.ChangeFunction) func() {
	if self.realEntity != nil {
		return self.realEntity.AddChangeCallback(changeCallback)
	}
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

// Dispose releases the wrapper and its path. The real entity is never disposed by its
// wrapper. Idempotent.
func (self *remoteEntity) Dispose() error {
	for _, unsub := range self.unsubs {
		unsub()
	}
	self.unsubs = nil
	self.changeCallbacks.Clear()
	self.memberRemote.Dispose()
	if !self.memberRemote.IsDetached() {
		self.registry.remove(self.memberRemote.Path(), self)
	}
	return nil
}

func (self *remoteEntity) descriptor() remote.Descriptor {
	return remote.Descriptor{
		Kind:                 self.kind,
		SourceCoreInstanceId: self.sourceInstanceId,
		Id:                   self.id,
		Name:                 remote.AsString(self.memberRemote.Get(core.MemberName)),
	}
}

func (self *remoteEntity) isClient() bool {
	return self.realEntity == nil
}

// host role. Mirrors a change of the real entity onto the bus.
func (self *remoteEntity) realChanged(change core.Change) {
	var err error
	switch change.Kind {
	case core.ChangeKindProperty:
		// concurrent writes may notify out of order. The value read at send time is the latest.
		err = self.memberRemote.PublishCurrent(change.Member)
		if errors.Is(err, remote.ErrUnknownMember) {
			err = self.memberRemote.Publish(change.Member, self.registry.toWire(change.Member, change.Value))
		}
	case core.ChangeKindCollection:
		var item remote.Descriptor
		if change.Delta.Op == core.DeltaOpAdd {
			item = self.registry.describe(collectionItemKinds[change.Member], change.Delta.Item)
		}
		err = self.memberRemote.PublishDelta(change.Member, change.Delta.Op, change.Delta.Index, item)
	case core.ChangeKindEvent:
		args := make([]any, len(change.Args))
		for i, arg := range change.Args {
			args[i] = self.registry.toWire(change.Member, arg)
		}
		err = self.memberRemote.RaiseEvent(change.Member, args...)
	}
	if err != nil {
		glog.Infof("[rc]%s publish %s error = %s\n", self.memberRemote.Path(), change.Member, err)
	}
}

// client role. Raises the domain change for a confirmed host message.
func (self *remoteEntity) applied(message *remote.Message) {
	var change core.Change
	switch v := message.Payload.(type) {
	case *remote.PropertyChanged:
		change = core.PropertyChange(message.Member, self.registry.fromWire(message.Member, v.Value))
	case *remote.CollectionDelta:
		var item core.Entity
		if v.Op == core.DeltaOpAdd {
			item = self.registry.entity(v.Item)
		}
		change = core.CollectionChange(message.Member, v.Op, v.Index, item)
	case *remote.EventRaised:
		args := make([]any, len(v.Args))
		for i, arg := range v.Args {
			args[i] = self.registry.fromWire(message.Member, arg)
		}
		change = core.EventChange(message.Member, args...)
	default:
		return
	}
	for _, changeCallback := range self.changeCallbacks.Get() {
		remote.HandleError(func() {
			changeCallback(change)
		})
	}
}

// argument helpers for host methods

func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func descriptorArg(args []any, i int) remote.Descriptor {
	descriptor, _ := remote.AsDescriptor(argAt(args, i))
	return descriptor
}

// wire value of an entity-valued property
func entityValue(registry *Registry, kind string, e core.Entity) any {
	if e == nil {
		return nil
	}
	return registry.describe(kind, e)
}

func (self *remoteEntity) entityMember(member string) core.Entity {
	descriptor, ok := remote.AsDescriptor(self.memberRemote.Get(member))
	if !ok {
		return nil
	}
	return self.registry.entity(descriptor)
}
