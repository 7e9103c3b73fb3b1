package remotecore

import (
	"github.com/golang/glog"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

// RemoteCore is the facade of one core instance. In the host role it wraps the live core.
// In the client role it is synthesized from the instance id, and every nested entity
// starts as an empty shell that fills in from host messages.
// Nested singletons (library, search, ...) are wrapped lazily on first access.
type RemoteCore struct {
	remoteEntity

	instanceId string
	realCore   core.Core
}

func newRemoteCore(registry *Registry, descriptor remote.Descriptor, real core.Core, detached bool) (*RemoteCore, error) {
	remoteCore := &RemoteCore{
		instanceId: descriptor.SourceCoreInstanceId,
		realCore:   real,
	}
	declaration := &remote.Declaration{
		Properties: []*remote.Property{
			{
				Name: core.MemberName,
				Get: func() any {
					return real.Name()
				},
			},
			{
				Name: core.MemberDisplayName,
				Get: func() any {
					return real.DisplayName()
				},
			},
			{
				Name: core.MemberState,
				Get: func() any {
					return int64(real.State())
				},
			},
			{
				Name: core.MemberUser,
				Get: func() any {
					return entityValue(registry, KindUser, real.User())
				},
			},
			{
				Name: core.MemberDevices,
				Get: func() any {
					return registry.toWire(core.MemberDevices, real.Devices())
				},
			},
		},
	}
	if err := remoteCore.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return remoteCore, nil
}

func (self *RemoteCore) InstanceId() string {
	return self.instanceId
}

func (self *RemoteCore) SourceCore() core.Core {
	return self
}

func (self *RemoteCore) Name() string {
	return remote.AsString(self.memberRemote.Get(core.MemberName))
}

func (self *RemoteCore) DisplayName() string {
	return remote.AsString(self.memberRemote.Get(core.MemberDisplayName))
}

func (self *RemoteCore) State() core.CoreState {
	return core.CoreState(remote.AsInt(self.memberRemote.Get(core.MemberState)))
}

// SyncState is the synchronization state of the facade itself.
func (self *RemoteCore) SyncState() remote.SyncState {
	return self.memberRemote.State()
}

func (self *RemoteCore) User() core.User {
	if user, ok := self.entityMember(core.MemberUser).(core.User); ok {
		return user
	}
	return nil
}

func (self *RemoteCore) Devices() []core.Device {
	devices := []core.Device{}
	for _, descriptor := range remote.AsDescriptors(self.memberRemote.Get(core.MemberDevices)) {
		if device, ok := self.registry.entity(descriptor).(core.Device); ok {
			devices = append(devices, device)
		}
	}
	return devices
}

func (self *RemoteCore) singleton(kind string, real func() core.Entity) entity {
	var realEntity core.Entity
	if self.realCore != nil {
		realEntity = real()
		if realEntity == nil {
			return nil
		}
	}
	e, err := self.registry.wrapSingleton(kind, self.instanceId, realEntity)
	if err != nil {
		glog.Infof("[rc]%s %s error = %s\n", self.instanceId, kind, err)
		return nil
	}
	return e
}

func (self *RemoteCore) group(kind string, real func() core.Entity) *RemotePlayableCollectionGroup {
	group, _ := self.singleton(kind, real).(*RemotePlayableCollectionGroup)
	return group
}

func (self *RemoteCore) Library() core.Library {
	if group := self.group(KindLibrary, func() core.Entity {
		if library := self.realCore.Library(); library != nil {
			return library
		}
		return nil
	}); group != nil {
		return group
	}
	return nil
}

func (self *RemoteCore) RecentlyPlayed() core.PlayableCollectionGroup {
	if group := self.group(KindRecentlyPlayed, func() core.Entity {
		if recentlyPlayed := self.realCore.RecentlyPlayed(); recentlyPlayed != nil {
			return recentlyPlayed
		}
		return nil
	}); group != nil {
		return group
	}
	return nil
}

func (self *RemoteCore) Discoverables() core.PlayableCollectionGroup {
	if group := self.group(KindDiscoverables, func() core.Entity {
		if discoverables := self.realCore.Discoverables(); discoverables != nil {
			return discoverables
		}
		return nil
	}); group != nil {
		return group
	}
	return nil
}

func (self *RemoteCore) Pins() core.PlayableCollectionGroup {
	if group := self.group(KindPins, func() core.Entity {
		if pins := self.realCore.Pins(); pins != nil {
			return pins
		}
		return nil
	}); group != nil {
		return group
	}
	return nil
}

func (self *RemoteCore) Search() core.Search {
	search, ok := self.singleton(KindSearch, func() core.Entity {
		if search := self.realCore.Search(); search != nil {
			return search
		}
		return nil
	}).(*RemoteSearch)
	if !ok {
		return nil
	}
	return search
}

// Dispose disposes every wrapper of this instance and releases the instance id.
// In the host role the live core is left untouched.
func (self *RemoteCore) Dispose() error {
	for _, e := range self.registry.coreEntities(self.instanceId) {
		e.Dispose()
	}
	return self.remoteEntity.Dispose()
}
