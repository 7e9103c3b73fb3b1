package remotecore

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/golang/glog"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

// entity type names used in identity paths
const (
	KindCore                    = "Core"
	KindLibrary                 = "Library"
	KindRecentlyPlayed          = "RecentlyPlayed"
	KindDiscoverables           = "Discoverables"
	KindPins                    = "Pins"
	KindSearch                  = "Search"
	KindSearchHistory           = "SearchHistory"
	KindPlayableCollectionGroup = "PlayableCollectionGroup"
	KindTrack                   = "Track"
	KindAlbum                   = "Album"
	KindArtist                  = "Artist"
	KindPlaylist                = "Playlist"
	KindDevice                  = "Device"
	KindImage                   = "Image"
	KindUrl                     = "Url"
	KindGenre                   = "Genre"
	KindUser                    = "User"
)

var ErrUnknownCore = errors.New("Unknown core instance.")

// item kind of each collection
var collectionItemKinds = map[string]string{
	core.CollectionTracks:        KindTrack,
	core.CollectionAlbums:        KindAlbum,
	core.CollectionArtists:       KindArtist,
	core.CollectionPlaylists:     KindPlaylist,
	core.CollectionChildren:      KindPlayableCollectionGroup,
	core.CollectionImages:        KindImage,
	core.CollectionUrls:          KindUrl,
	core.CollectionGenres:        KindGenre,
	core.CollectionPlaybackQueue: KindTrack,
}

// kind of each entity-valued property
var memberEntityKinds = map[string]string{
	core.MemberNowPlaying:    KindTrack,
	core.MemberAlbum:         KindAlbum,
	core.MemberOwner:         KindUser,
	core.MemberUser:          KindUser,
	core.MemberSearchHistory: KindSearchHistory,
}

// entities addressed by their role in the core rather than by a backend id,
// so that a client can compute the path from the instance id alone
var singletonKinds = map[string]bool{
	KindLibrary:        true,
	KindRecentlyPlayed: true,
	KindDiscoverables:  true,
	KindPins:           true,
	KindSearch:         true,
	KindSearchHistory:  true,
}

// creates the typed wrapper of one kind.
// `real` is set in the host role. `detached` wrappers are not registered on the bus.
type entityFactory func(registry *Registry, descriptor remote.Descriptor, real core.Entity, detached bool) (entity, error)

var entityFactories map[string]entityFactory

func init() {
	groupFactory := func(registry *Registry, descriptor remote.Descriptor, real core.Entity, detached bool) (entity, error) {
		var group core.PlayableCollectionGroup
		if real != nil {
			var ok bool
			if group, ok = real.(core.PlayableCollectionGroup); !ok {
				return nil, fmt.Errorf("%T is not a %s", real, descriptor.Kind)
			}
		}
		return newRemotePlayableCollectionGroup(registry, descriptor, group, detached)
	}
	entityFactories = map[string]entityFactory{
		KindLibrary:                 groupFactory,
		KindRecentlyPlayed:          groupFactory,
		KindDiscoverables:           groupFactory,
		KindPins:                    groupFactory,
		KindSearchHistory:           groupFactory,
		KindPlayableCollectionGroup: groupFactory,
		KindCore:                    typedFactory(newRemoteCore),
		KindSearch:                  typedFactory(newRemoteSearch),
		KindTrack:                   typedFactory(newRemoteTrack),
		KindAlbum:                   typedFactory(newRemoteAlbum),
		KindArtist:                  typedFactory(newRemoteArtist),
		KindPlaylist:                typedFactory(newRemotePlaylist),
		KindDevice:                  typedFactory(newRemoteDevice),
		KindImage:                   typedFactory(newRemoteImage),
		KindUrl:                     typedFactory(newRemoteUrl),
		KindGenre:                   typedFactory(newRemoteGenre),
		KindUser:                    typedFactory(newRemoteUser),
	}
}

func typedFactory[T core.Entity, W entity](
	newWrapper func(registry *Registry, descriptor remote.Descriptor, real T, detached bool) (W, error),
) entityFactory {
	return func(registry *Registry, descriptor remote.Descriptor, real core.Entity, detached bool) (entity, error) {
		var typedReal T
		if real != nil {
			var ok bool
			if typedReal, ok = real.(T); !ok {
				return nil, fmt.Errorf("%T is not a %s", real, descriptor.Kind)
			}
		}
		return newWrapper(registry, descriptor, typedReal, detached)
	}
}

// Registry maps instance ids to core facades for one role, and holds the arena of every
// typed wrapper of that role keyed by identity path.
type Registry struct {
	role    remote.Role
	handler *remote.MessageHandler

	mutex    sync.Mutex
	cores    map[string]*RemoteCore
	entities map[remote.Path]entity
}

func NewRegistry(role remote.Role, handler *remote.MessageHandler) *Registry {
	registry := &Registry{
		role:     role,
		handler:  handler,
		cores:    map[string]*RemoteCore{},
		entities: map[remote.Path]entity{},
	}
	if role == remote.RoleHost {
		handler.SetMissingPathCallback(registry.resolveMissingPath)
	}
	return registry
}

func NewHostRegistry(handler *remote.MessageHandler) *Registry {
	return NewRegistry(remote.RoleHost, handler)
}

func NewClientRegistry(handler *remote.MessageHandler) *Registry {
	return NewRegistry(remote.RoleClient, handler)
}

func (self *Registry) Role() remote.Role {
	return self.role
}

func (self *Registry) Handler() *remote.MessageHandler {
	return self.handler
}

// GetInstance returns the facade for `instanceId`, reference-stable for the lifetime of
// the facade. The client role synthesizes an empty facade on first use.
// The host role only returns cores that were wrapped with `Wrap`.
func (self *Registry) GetInstance(instanceId string) (*RemoteCore, error) {
	if self.role == remote.RoleHost {
		self.mutex.Lock()
		defer self.mutex.Unlock()
		if remoteCore, ok := self.cores[instanceId]; ok {
			return remoteCore, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownCore, instanceId)
	}
	return self.getOrCreateCore(instanceId, nil)
}

// Wrap returns the host facade of a live core. Idempotent per instance id.
func (self *Registry) Wrap(realCore core.Core) (*RemoteCore, error) {
	if self.role != remote.RoleHost {
		return nil, fmt.Errorf("Only the host role wraps a live core.")
	}
	return self.getOrCreateCore(realCore.InstanceId(), realCore)
}

func (self *Registry) getOrCreateCore(instanceId string, realCore core.Core) (*RemoteCore, error) {
	descriptor := remote.Descriptor{
		Kind:                 KindCore,
		SourceCoreInstanceId: instanceId,
		Id:                   instanceId,
	}
	var real core.Entity
	if realCore != nil {
		real = realCore
	}
	e, err := self.getOrCreate(descriptor, real)
	if err != nil {
		return nil, err
	}
	remoteCore := e.(*RemoteCore)

	self.mutex.Lock()
	defer self.mutex.Unlock()
	if existing, ok := self.cores[instanceId]; ok {
		return existing, nil
	}
	self.cores[instanceId] = remoteCore
	return remoteCore, nil
}

func (self *Registry) lookupCore(instanceId string) (*RemoteCore, bool) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	remoteCore, ok := self.cores[instanceId]
	return remoteCore, ok
}

// Entity returns the wrapper registered for `path`, if any.
func (self *Registry) Entity(path remote.Path) (core.Entity, bool) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	e, ok := self.entities[path]
	if !ok {
		return nil, false
	}
	return e, true
}

func (self *Registry) EntityCount() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return len(self.entities)
}

func (self *Registry) CoreCount() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return len(self.cores)
}

// concurrent get-or-add. Factories must not call back into the registry.
func (self *Registry) getOrCreate(descriptor remote.Descriptor, real core.Entity) (entity, error) {
	path := descriptor.Path()

	self.mutex.Lock()
	defer self.mutex.Unlock()

	if e, ok := self.entities[path]; ok {
		return e, nil
	}
	factory, ok := entityFactories[descriptor.Kind]
	if !ok {
		return nil, fmt.Errorf("Unknown entity kind: %s", descriptor.Kind)
	}
	e, err := factory(self, descriptor, real, false)
	if err != nil {
		return nil, err
	}
	self.entities[path] = e
	glog.V(2).Infof("[rc]%s create %s\n", self.role, path)
	return e, nil
}

func (self *Registry) remove(path remote.Path, base *remoteEntity) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if existing, ok := self.entities[path]; ok && existing.base() == base {
		delete(self.entities, path)
	}
	if base.kind == KindCore {
		if existing, ok := self.cores[base.sourceInstanceId]; ok && existing.base() == base {
			delete(self.cores, base.sourceInstanceId)
		}
	}
}

// entities of one core instance, excluding the core itself
func (self *Registry) coreEntities(instanceId string) []entity {
	self.mutex.Lock()
	entities := maps.Clone(self.entities)
	self.mutex.Unlock()

	coreEntities := []entity{}
	for _, e := range entities {
		if _, ok := e.(*RemoteCore); ok {
			continue
		}
		if e.base().sourceInstanceId == instanceId {
			coreEntities = append(coreEntities, e)
		}
	}
	return coreEntities
}

// host role: wraps a real entity in its host wrapper on first touch
func (self *Registry) wrap(kind string, real core.Entity) (entity, error) {
	return self.getOrCreate(describeEntity(kind, real), real)
}

func (self *Registry) wrapSingleton(kind string, instanceId string, real core.Entity) (entity, error) {
	descriptor := remote.Descriptor{
		Kind:                 kind,
		SourceCoreInstanceId: instanceId,
		Id:                   kind,
	}
	if self.role == remote.RoleClient {
		return self.getOrCreate(descriptor, nil)
	}
	return self.getOrCreate(descriptor, real)
}

// describe converts an entity into its wire reference.
// In the host role the entity is wrapped on first touch so that later messages on its
// path resolve.
func (self *Registry) describe(kind string, e core.Entity) remote.Descriptor {
	if e == nil {
		return remote.Descriptor{}
	}
	if w, ok := e.(entity); ok {
		return w.base().descriptor()
	}
	if self.role == remote.RoleHost {
		w, err := self.wrap(kind, e)
		if err == nil {
			return w.base().descriptor()
		}
		glog.Infof("[rc]%s wrap %s error = %s\n", self.role, kind, err)
	}
	return describeEntity(kind, e)
}

func describeEntity(kind string, e core.Entity) remote.Descriptor {
	descriptor := remote.Descriptor{
		Kind: kind,
		Id:   e.Id(),
	}
	if sourceCore := e.SourceCore(); sourceCore != nil {
		descriptor.SourceCoreInstanceId = sourceCore.InstanceId()
	}
	if named, ok := e.(interface{ Name() string }); ok {
		descriptor.Name = named.Name()
	}
	return descriptor
}

// entity returns the local representation of a reference: the registered wrapper,
// a new client shell, or, in the host role, a detached entity for a path the host never
// wrapped. Returns nil for the zero descriptor.
func (self *Registry) entity(descriptor remote.Descriptor) core.Entity {
	if descriptor.IsZero() {
		return nil
	}
	if self.role == remote.RoleClient {
		if descriptor.Kind == KindCore {
			remoteCore, err := self.getOrCreateCore(descriptor.SourceCoreInstanceId, nil)
			if err != nil {
				return nil
			}
			return remoteCore
		}
		e, err := self.getOrCreate(descriptor, nil)
		if err != nil {
			glog.Infof("[rc]%s materialize %s error = %s\n", self.role, descriptor, err)
			return nil
		}
		return e
	}
	if e, ok := self.Entity(descriptor.Path()); ok {
		return e
	}
	e, err := self.detached(descriptor)
	if err != nil {
		glog.Infof("[rc]%s detach %s error = %s\n", self.role, descriptor, err)
		return nil
	}
	return e
}

// resolve is the host side of an entity argument sent by a client. The real entity is
// used when the host has wrapped the path; otherwise a detached entity stands in.
func (self *Registry) resolve(descriptor remote.Descriptor) (core.Entity, error) {
	if descriptor.IsZero() {
		return nil, nil
	}
	self.mutex.Lock()
	e, ok := self.entities[descriptor.Path()]
	self.mutex.Unlock()
	if ok {
		if real := e.base().realEntity; real != nil {
			return real, nil
		}
		return e, nil
	}
	return self.detached(descriptor)
}

func (self *Registry) detached(descriptor remote.Descriptor) (entity, error) {
	factory, ok := entityFactories[descriptor.Kind]
	if !ok {
		return nil, fmt.Errorf("Unknown entity kind: %s", descriptor.Kind)
	}
	return factory(self, descriptor, nil, true)
}

// MissingPathFunction. Singletons of a wrapped core are wrapped lazily the first time a
// client addresses them.
func (self *Registry) resolveMissingPath(path remote.Path) bool {
	instanceId, kind, _, err := remote.ParsePath(path)
	if err != nil || !singletonKinds[kind] {
		return false
	}
	remoteCore, ok := self.lookupCore(instanceId)
	if !ok {
		return false
	}
	switch kind {
	case KindLibrary:
		remoteCore.Library()
	case KindRecentlyPlayed:
		remoteCore.RecentlyPlayed()
	case KindDiscoverables:
		remoteCore.Discoverables()
	case KindPins:
		remoteCore.Pins()
	case KindSearch:
		remoteCore.Search()
	case KindSearchHistory:
		remoteCore.Search().SearchHistory()
	}
	_, ok = self.handler.Member(path)
	return ok
}

// toWire normalizes a value raised by a real entity into a wire value
func (self *Registry) toWire(member string, value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case core.PlaybackState:
		return int64(v)
	case core.CoreState:
		return int64(v)
	case core.RepeatState:
		return int64(v)
	case core.DeviceType:
		return int64(v)
	case int:
		return int64(v)
	case []core.Device:
		descriptors := make([]remote.Descriptor, len(v))
		for i, device := range v {
			descriptors[i] = self.describe(KindDevice, device)
		}
		return descriptors
	case core.Entity:
		kind, ok := memberEntityKinds[member]
		if !ok {
			glog.Infof("[rc]%s no entity kind for %s\n", self.role, member)
			return nil
		}
		return self.describe(kind, v)
	default:
		return value
	}
}

// fromWire converts a mirrored value into the type the domain contract uses for `member`
func (self *Registry) fromWire(member string, value any) any {
	switch v := value.(type) {
	case remote.Descriptor:
		return self.entity(v)
	case []remote.Descriptor:
		if member == core.MemberDevices {
			devices := []core.Device{}
			for _, descriptor := range v {
				if device, ok := self.entity(descriptor).(core.Device); ok {
					devices = append(devices, device)
				}
			}
			return devices
		}
		entities := []core.Entity{}
		for _, descriptor := range v {
			if e := self.entity(descriptor); e != nil {
				entities = append(entities, e)
			}
		}
		return entities
	}
	switch member {
	case core.MemberPlaybackState:
		return core.PlaybackState(remote.AsInt(value))
	case core.MemberState:
		return core.CoreState(remote.AsInt(value))
	case core.MemberRepeatState:
		return core.RepeatState(remote.AsInt(value))
	case core.MemberType:
		return core.DeviceType(remote.AsInt(value))
	case core.MemberTrackNumber:
		return remote.AsInt(value)
	}
	if strings.HasPrefix(member, "Total") && strings.HasSuffix(member, "Count") {
		return remote.AsInt(value)
	}
	return value
}
