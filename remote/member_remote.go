package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/golang/glog"

	"bringyour.com/coresync/core"
)

// client state machine:
// SyncStateUnsynchronized
//
//	-> SyncStateSynchronizing (sync requested)
//	  -> SyncStateSynchronized (host published every declared property and collection,
//	     and no host message since the first of them was lost or failed to apply)
//
// any state -> SyncStateDesynchronized (sequence gap or failed apply)
// SyncStateDesynchronized -> SyncStateSynchronizing (sync requested)
type SyncState int

const (
	SyncStateUnsynchronized SyncState = 0
	SyncStateSynchronizing  SyncState = 1
	SyncStateSynchronized   SyncState = 2
	SyncStateDesynchronized SyncState = 3
)

func (self SyncState) String() string {
	switch self {
	case SyncStateUnsynchronized:
		return "Unsynchronized"
	case SyncStateSynchronizing:
		return "Synchronizing"
	case SyncStateSynchronized:
		return "Synchronized"
	case SyncStateDesynchronized:
		return "Desynchronized"
	default:
		return "Unknown"
	}
}

// Property is one mirrored value. `Get` and `Set` are only called in the host role,
// and operate on the real entity.
type Property struct {
	Name string
	Get  func() any
	// nil for read-only properties
	Set func(ctx context.Context, value any) error
}

type MethodFunction = func(ctx context.Context, args []any) (any, error)

// Collection is one mirrored collection. `Snapshot` is only called in the host role,
// and lists the items of the real collection in order.
type Collection struct {
	Name     string
	Snapshot func(ctx context.Context) ([]Descriptor, error)
}

// Method is invoked in the host role when a client calls it.
type Method struct {
	Name   string
	Invoke MethodFunction
}

// Declaration lists what an entity mirrors. Each entity kind builds its declaration
// explicitly at construction.
type Declaration struct {
	Properties  []*Property
	Methods     []*Method
	Collections []*Collection
	Events      []string
	// client-side values before the first host message, e.g. the name from a descriptor
	Initial map[string]any
}

// called on the client after a host message was applied to local state
type AppliedFunction = func(message *Message)

// MemberRemote binds one local entity instance to an identity path and a bus.
// In the host role it mirrors the real entity outward and serves calls.
// In the client role it holds the last confirmed host state and forwards writes and calls.
type MemberRemote struct {
	path    Path
	role    Role
	handler *MessageHandler

	properties  map[string]*Property
	methods     map[string]*Method
	declaration *Declaration

	// serializes sequence assignment with handoff to the transport
	sendMutex    sync.Mutex
	sendSequence uint64

	stateLock       sync.Mutex
	values          map[string]any
	collections     map[string][]Descriptor
	receivedAny     bool
	receiveSequence uint64
	syncState       SyncState
	// sequence of the message that last desynchronized the member
	desyncSequence uint64
	pendingCalls   map[Id]chan *MethodResult
	disposed       bool

	appliedCallbacks *CallbackList[AppliedFunction]
}

// registers the member on the handler under `path`
func NewMemberRemote(path Path, handler *MessageHandler, declaration *Declaration) (*MemberRemote, error) {
	member := newMemberRemote(path, handler.Role(), handler, declaration)
	if err := handler.register(member); err != nil {
		return nil, err
	}
	return member, nil
}

// a client-role member that is not on any bus. Reads serve the initial values.
func NewDetachedMemberRemote(path Path, declaration *Declaration) *MemberRemote {
	return newMemberRemote(path, RoleClient, nil, declaration)
}

func newMemberRemote(path Path, role Role, handler *MessageHandler, declaration *Declaration) *MemberRemote {
	if declaration == nil {
		declaration = &Declaration{}
	}
	properties := map[string]*Property{}
	for _, property := range declaration.Properties {
		properties[property.Name] = property
	}
	methods := map[string]*Method{}
	for _, method := range declaration.Methods {
		methods[method.Name] = method
	}
	values := map[string]any{}
	if role == RoleClient {
		maps.Copy(values, declaration.Initial)
	}
	collections := map[string][]Descriptor{}
	for _, collection := range declaration.Collections {
		collections[collection.Name] = []Descriptor{}
	}
	return &MemberRemote{
		path:        path,
		role:        role,
		handler:     handler,
		properties:  properties,
		methods:     methods,
		declaration: declaration,
		// a re-created host member continues above the sequences of the previous one
		sendSequence:     uint64(time.Now().UnixNano()),
		values:           values,
		collections:      collections,
		syncState:        SyncStateUnsynchronized,
		pendingCalls:     map[Id]chan *MethodResult{},
		appliedCallbacks: NewCallbackList[AppliedFunction](),
	}
}

func (self *MemberRemote) Path() Path {
	return self.path
}

func (self *MemberRemote) Role() Role {
	return self.role
}

func (self *MemberRemote) IsDetached() bool {
	return self.handler == nil
}

func (self *MemberRemote) State() SyncState {
	if self.role == RoleHost {
		// the host is the authority
		return SyncStateSynchronized
	}
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.syncState
}

func (self *MemberRemote) IsDisposed() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.disposed
}

func (self *MemberRemote) AddAppliedCallback(appliedCallback AppliedFunction) func() {
	callbackId := self.appliedCallbacks.Add(appliedCallback)
	return func() {
		self.appliedCallbacks.Remove(callbackId)
	}
}

// Get reads through to the real entity in the host role,
// and returns the last confirmed host value in the client role.
func (self *MemberRemote) Get(name string) any {
	if self.role == RoleHost {
		if property, ok := self.properties[name]; ok && property.Get != nil {
			return property.Get()
		}
	}
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.values[name]
}

// Items is the client mirror of a collection, replaced by sync snapshots and replayed from deltas.
func (self *MemberRemote) Items(collection string) []Descriptor {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return slices.Clone(self.collections[collection])
}

// Set writes a property. In the client role the write is sent to the host
// and local state does not change until the host confirms it.
func (self *MemberRemote) Set(ctx context.Context, name string, value any) error {
	if self.role == RoleHost {
		property, ok := self.properties[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownMember, name)
		}
		if property.Set == nil {
			return fmt.Errorf("%w: set %s", ErrUnsupported, name)
		}
		return property.Set(ctx, value)
	}
	return self.send(ctx, name, &PropertyChanged{
		Value: value,
	})
}

// Post sends a method call without waiting for the result.
// Returns once the transport accepted the message.
func (self *MemberRemote) Post(ctx context.Context, member string, args ...any) error {
	if self.role == RoleHost {
		_, err := self.invokeLocal(ctx, member, args)
		return err
	}
	return self.send(ctx, member, &MethodCall{
		CallId: NewId(),
		Args:   args,
	})
}

// Invoke sends a method call and waits for the correlated result.
func (self *MemberRemote) Invoke(ctx context.Context, member string, args ...any) (any, error) {
	if self.role == RoleHost {
		return self.invokeLocal(ctx, member, args)
	}

	callId := NewId()
	result := make(chan *MethodResult, 1)
	err := func() error {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		if self.disposed {
			return ErrDisposed
		}
		self.pendingCalls[callId] = result
		return nil
	}()
	if err != nil {
		return nil, err
	}
	defer func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		delete(self.pendingCalls, callId)
	}()

	if err := self.send(ctx, member, &MethodCall{
		CallId: callId,
		Args:   args,
	}); err != nil {
		return nil, err
	}

	timeout := self.handler.settings.InvokeTimeout
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-result:
		if !ok {
			return nil, ErrDisposed
		}
		return r.Value, r.Err(self.path, member)
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: no result for %s.%s after %s", ErrTransport, self.path, member, timeout)
	}
}

// Synchronize asks the host to publish every declared property and collection, and waits
// until it has. The host answers with the sequence of the first message it sent for the sync.
// Messages on a path are applied in order, so every snapshot was applied before the result.
func (self *MemberRemote) Synchronize(ctx context.Context) error {
	if self.role == RoleHost {
		return nil
	}
	self.setState(SyncStateSynchronizing)
	value, err := self.Invoke(ctx, SyncMember)

	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if err != nil {
		if self.syncState == SyncStateSynchronizing {
			self.syncState = SyncStateUnsynchronized
		}
		return err
	}
	syncSequence := uint64(AsInt64(value))
	switch self.syncState {
	case SyncStateSynchronizing:
		self.syncState = SyncStateSynchronized
	case SyncStateDesynchronized:
		// a loss before the sync is repaired by it
		if self.desyncSequence <= syncSequence {
			self.syncState = SyncStateSynchronized
		} else {
			glog.Infof("[mr]%s desynchronized during sync at %d > %d\n", self.path, self.desyncSequence, syncSequence)
		}
	}
	return nil
}

func (self *MemberRemote) setState(syncState SyncState) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.syncState = syncState
}

// host role

// PublishCurrent publishes the value of a declared property as read now.
// The read and the send are one step, so the last publish of a property carries its latest value.
func (self *MemberRemote) PublishCurrent(member string) error {
	property, ok := self.properties[member]
	if !ok || property.Get == nil {
		return fmt.Errorf("%w: %s", ErrUnknownMember, member)
	}
	return self.sendWith(self.handlerCtx(), member, func() (Payload, error) {
		return &PropertyChanged{
			Value: property.Get(),
		}, nil
	})
}

func (self *MemberRemote) Publish(member string, value any) error {
	return self.send(self.handlerCtx(), member, &PropertyChanged{
		Value: value,
	})
}

func (self *MemberRemote) PublishDelta(member string, op core.DeltaOp, index int, item Descriptor) error {
	return self.send(self.handlerCtx(), member, &CollectionDelta{
		Op:    op,
		Index: index,
		Item:  item,
	})
}

func (self *MemberRemote) RaiseEvent(member string, args ...any) error {
	return self.send(self.handlerCtx(), member, &EventRaised{
		Args: args,
	})
}

// publishAll answers a sync with every property and a snapshot of every collection.
// A failing member does not stop the others. Returns the sequence of the first message sent.
func (self *MemberRemote) publishAll(ctx context.Context) (int64, error) {
	self.sendMutex.Lock()
	syncSequence := self.sendSequence + 1
	self.sendMutex.Unlock()

	var errs []error
	for _, property := range self.declaration.Properties {
		if property.Get == nil {
			continue
		}
		err := self.sendWith(ctx, property.Name, func() (Payload, error) {
			return &PropertyChanged{
				Value: property.Get(),
			}, nil
		})
		if err != nil {
			glog.Infof("[mr]%s sync %s error = %s\n", self.path, property.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", property.Name, err))
		}
	}
	for _, collection := range self.declaration.Collections {
		if collection.Snapshot == nil {
			continue
		}
		err := self.sendWith(ctx, collection.Name, func() (Payload, error) {
			items, err := collection.Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			return &CollectionSnapshot{
				Items: items,
			}, nil
		})
		if err != nil {
			glog.Infof("[mr]%s sync %s error = %s\n", self.path, collection.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", collection.Name, err))
		}
	}
	return int64(syncSequence), errors.Join(errs...)
}

func (self *MemberRemote) invokeLocal(ctx context.Context, member string, args []any) (value any, err error) {
	if member == SyncMember {
		return self.publishAll(ctx)
	}
	method, ok := self.methods[member]
	if !ok || method.Invoke == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMember, member)
	}
	HandleError(func() {
		value, err = method.Invoke(ctx, args)
	}, func(handleErr error) {
		err = handleErr
	})
	return
}

func (self *MemberRemote) handlerCtx() context.Context {
	if self.handler == nil {
		return context.Background()
	}
	return self.handler.ctx
}

func (self *MemberRemote) send(ctx context.Context, member string, payload Payload) error {
	return self.sendWith(ctx, member, func() (Payload, error) {
		return payload, nil
	})
}

// the payload is built while holding `sendMutex`, so it reflects state no older than any
// payload sent before it on this member
func (self *MemberRemote) sendWith(ctx context.Context, member string, payloadFunc func() (Payload, error)) error {
	if self.handler == nil {
		return fmt.Errorf("%w: %s", ErrDetached, self.path)
	}
	if self.IsDisposed() {
		return fmt.Errorf("%w: %s", ErrDisposed, self.path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	self.sendMutex.Lock()
	defer self.sendMutex.Unlock()

	payload, err := payloadFunc()
	if err != nil {
		return err
	}
	message := &Message{
		Path:    self.path,
		Member:  member,
		Payload: payload,
	}
	if self.role == RoleHost {
		self.sendSequence += 1
		message.Sequence = self.sendSequence
	}
	return self.handler.send(ctx, message)
}

// apply is called by the handler for each inbound message on this path, in arrival order
func (self *MemberRemote) apply(message *Message) error {
	switch self.role {
	case RoleHost:
		return self.applyHost(message)
	default:
		return self.applyClient(message)
	}
}

func (self *MemberRemote) applyHost(message *Message) error {
	ctx := self.handlerCtx()
	switch v := message.Payload.(type) {
	case *PropertyChanged:
		// a client write
		return self.Set(ctx, message.Member, v.Value)
	case *MethodCall:
		value, err := self.invokeLocal(ctx, message.Member, v.Args)
		result := &MethodResult{
			CallId: v.CallId,
			Value:  value,
		}
		if err != nil {
			glog.V(1).Infof("[mr]%s %s fault = %s\n", self.path, message.Member, err)
			result.Value = nil
			result.Error = err.Error()
			result.Code = errorCode(err)
		}
		return self.send(ctx, message.Member, result)
	default:
		return fmt.Errorf("%w: host cannot apply %s", ErrApplyFailure, message.Kind())
	}
}

func (self *MemberRemote) applyClient(message *Message) error {
	var applyErr error
	notify := false
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.disposed {
			applyErr = ErrDisposed
			return
		}
		if !self.acceptSequence(message) {
			return
		}

		switch v := message.Payload.(type) {
		case *PropertyChanged:
			self.values[message.Member] = v.Value
			notify = true
		case *CollectionDelta:
			items := self.collections[message.Member]
			switch v.Op {
			case core.DeltaOpAdd:
				if v.Index < 0 || len(items) < v.Index {
					applyErr = fmt.Errorf("%w: %s add index %d out of range [0, %d]", ErrApplyFailure, message.Member, v.Index, len(items))
				} else {
					items = slices.Insert(items, v.Index, v.Item)
				}
			case core.DeltaOpRemove:
				if v.Index < 0 || len(items) <= v.Index {
					applyErr = fmt.Errorf("%w: %s remove index %d out of range [0, %d)", ErrApplyFailure, message.Member, v.Index, len(items))
				} else {
					items = slices.Delete(items, v.Index, v.Index+1)
				}
			default:
				applyErr = fmt.Errorf("%w: %s unknown delta op %d", ErrApplyFailure, message.Member, v.Op)
			}
			if applyErr != nil {
				self.desynchronize(message.Sequence)
			} else {
				self.collections[message.Member] = items
			}
			// the host applied the delta even when the mirror cannot
			notify = true
		case *CollectionSnapshot:
			if _, ok := self.collections[message.Member]; !ok {
				applyErr = fmt.Errorf("%w: snapshot of undeclared collection %s", ErrApplyFailure, message.Member)
				break
			}
			self.collections[message.Member] = slices.Clone(v.Items)
			notify = true
		case *EventRaised:
			notify = true
		case *MethodResult:
			if result, ok := self.pendingCalls[v.CallId]; ok {
				delete(self.pendingCalls, v.CallId)
				result <- v
			} else {
				// a result for another client on the same path, or a call that timed out
				glog.V(2).Infof("[mr]%s %s no pending call %s\n", self.path, message.Member, v.CallId)
			}
		case *MethodCall:
			applyErr = fmt.Errorf("%w: client cannot serve %s", ErrApplyFailure, message.Member)
		default:
			applyErr = fmt.Errorf("%w: unknown payload %T", ErrApplyFailure, v)
		}
	}()

	if notify {
		for _, appliedCallback := range self.appliedCallbacks.Get() {
			HandleError(func() {
				appliedCallback(message)
			})
		}
	}
	return applyErr
}

// must be called with `stateLock`
func (self *MemberRemote) acceptSequence(message *Message) bool {
	if message.Sequence == 0 {
		return true
	}
	if self.receivedAny {
		if message.Sequence <= self.receiveSequence {
			glog.V(1).Infof("[mr]%s drop duplicate %d <= %d\n", self.path, message.Sequence, self.receiveSequence)
			return false
		}
		if self.receiveSequence+1 < message.Sequence {
			glog.Infof("[mr]%s sequence gap %d -> %d\n", self.path, self.receiveSequence, message.Sequence)
			self.desynchronize(message.Sequence)
		}
	}
	self.receivedAny = true
	self.receiveSequence = message.Sequence
	return true
}

// must be called with `stateLock`
func (self *MemberRemote) desynchronize(sequence uint64) {
	self.syncState = SyncStateDesynchronized
	self.desyncSequence = sequence
}

// Dispose deregisters the path and fails pending calls. Idempotent.
func (self *MemberRemote) Dispose() error {
	pendingCalls := func() map[Id]chan *MethodResult {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		if self.disposed {
			return nil
		}
		self.disposed = true
		pendingCalls := self.pendingCalls
		self.pendingCalls = map[Id]chan *MethodResult{}
		for _, result := range pendingCalls {
			close(result)
		}
		return pendingCalls
	}()
	if pendingCalls == nil {
		return nil
	}
	if self.handler != nil {
		self.handler.unregister(self)
	}
	self.appliedCallbacks.Clear()
	return nil
}
