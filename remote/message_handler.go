package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/maps"

	"github.com/golang/glog"
)

// Logging convention for the remote packages:
// Info:
//     abnormal events. Silent on normal operation. This includes:
//     - dropped messages (unknown path, duplicate sequence)
//     - transport and apply failures
//     - desynchronization
// V(1):
//     host faults returned to clients
// V(2):
//     per-message trace. Frequent.

// Outbound callbacks hand a message to a transport. They must not deliver synchronously
// into a handler of the same process; queue and deliver from another goroutine.
// Returning an error means the transport did not accept the message.
type OutboundFunction = func(ctx context.Context, message *Message) error

// Offered an inbound path that has no member. Returns true if a member was registered
// for the path as a result (e.g. a lazily wrapped singleton).
type MissingPathFunction = func(path Path) bool

type MessageHandlerSettings struct {
	// upper bound on waiting for a method result when the context has no earlier deadline
	InvokeTimeout time.Duration
}

func DefaultMessageHandlerSettings() *MessageHandlerSettings {
	return &MessageHandlerSettings{
		InvokeTimeout: 30 * time.Second,
	}
}

type MessageHandlerStats struct {
	Sent              uint64
	TransportFailures uint64
	Digested          uint64
	DroppedUnknown    uint64
	ApplyFailures     uint64
	Members           int
}

// MessageHandler is the bus of one role. It routes inbound messages to the member
// registered for the message path, and fans every outbound message of its members
// out to the outbound callbacks.
type MessageHandler struct {
	ctx      context.Context
	role     Role
	settings *MessageHandlerSettings

	mutex       sync.RWMutex
	members     map[Path]*MemberRemote
	missingPath MissingPathFunction

	outboundCallbacks *CallbackList[OutboundFunction]

	sent              atomic.Uint64
	transportFailures atomic.Uint64
	digested          atomic.Uint64
	droppedUnknown    atomic.Uint64
	applyFailures     atomic.Uint64
}

func NewMessageHandlerWithDefaults(ctx context.Context, role Role) *MessageHandler {
	return NewMessageHandler(ctx, role, DefaultMessageHandlerSettings())
}

func NewMessageHandler(ctx context.Context, role Role, settings *MessageHandlerSettings) *MessageHandler {
	return &MessageHandler{
		ctx:               ctx,
		role:              role,
		settings:          settings,
		members:           map[Path]*MemberRemote{},
		outboundCallbacks: NewCallbackList[OutboundFunction](),
	}
}

func (self *MessageHandler) Role() Role {
	return self.role
}

func (self *MessageHandler) Ctx() context.Context {
	return self.ctx
}

// the `MessageOutbound` event. Returns an unsub function.
func (self *MessageHandler) AddMessageOutboundCallback(outboundCallback OutboundFunction) func() {
	callbackId := self.outboundCallbacks.Add(outboundCallback)
	return func() {
		self.outboundCallbacks.Remove(callbackId)
	}
}

func (self *MessageHandler) SetMissingPathCallback(missingPath MissingPathFunction) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.missingPath = missingPath
}

func (self *MessageHandler) Member(path Path) (*MemberRemote, bool) {
	self.mutex.RLock()
	defer self.mutex.RUnlock()
	member, ok := self.members[path]
	return member, ok
}

func (self *MessageHandler) Paths() []Path {
	self.mutex.RLock()
	members := maps.Clone(self.members)
	self.mutex.RUnlock()

	paths := make([]Path, 0, len(members))
	for path := range members {
		paths = append(paths, path)
	}
	return paths
}

func (self *MessageHandler) Stats() MessageHandlerStats {
	self.mutex.RLock()
	memberCount := len(self.members)
	self.mutex.RUnlock()

	return MessageHandlerStats{
		Sent:              self.sent.Load(),
		TransportFailures: self.transportFailures.Load(),
		Digested:          self.digested.Load(),
		DroppedUnknown:    self.droppedUnknown.Load(),
		ApplyFailures:     self.applyFailures.Load(),
		Members:           memberCount,
	}
}

func (self *MessageHandler) register(member *MemberRemote) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if existing, ok := self.members[member.path]; ok && existing != member {
		return fmt.Errorf("Member already registered for %s", member.path)
	}
	self.members[member.path] = member
	glog.V(2).Infof("[mh]%s register %s\n", self.role, member.path)
	return nil
}

func (self *MessageHandler) unregister(member *MemberRemote) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	// a newer member may have taken the path
	if existing, ok := self.members[member.path]; ok && existing == member {
		delete(self.members, member.path)
		glog.V(2).Infof("[mh]%s unregister %s\n", self.role, member.path)
	}
}

func (self *MessageHandler) send(ctx context.Context, message *Message) error {
	outboundCallbacks := self.outboundCallbacks.Get()
	if len(outboundCallbacks) == 0 {
		if self.role == RoleHost {
			// no clients attached
			return nil
		}
		self.transportFailures.Add(1)
		return fmt.Errorf("%w: no outbound channel for %s", ErrTransport, message.Path)
	}

	glog.V(2).Infof("[mh]%s -> %s\n", self.role, message)

	var errs []error
	for _, outboundCallback := range outboundCallbacks {
		var err error
		HandleError(func() {
			err = outboundCallback(ctx, message)
		}, func(handleErr error) {
			err = handleErr
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	if 0 < len(errs) {
		self.transportFailures.Add(1)
		err := errors.Join(errs...)
		glog.Infof("[mh]%s transport error %s = %s\n", self.role, message.Path, err)
		if errors.Is(err, ErrTransport) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	self.sent.Add(1)
	return nil
}

// DigestMessage applies one inbound message. Failures are logged and dropped here and
// never propagate into the transport.
func (self *MessageHandler) DigestMessage(message *Message) {
	self.digested.Add(1)
	glog.V(2).Infof("[mh]%s <- %s\n", self.role, message)

	member, ok := self.Member(message.Path)
	if !ok {
		self.mutex.RLock()
		missingPath := self.missingPath
		self.mutex.RUnlock()
		if missingPath != nil {
			resolved := false
			HandleError(func() {
				resolved = missingPath(message.Path)
			})
			if resolved {
				member, ok = self.Member(message.Path)
			}
		}
	}
	if !ok {
		self.droppedUnknown.Add(1)
		glog.Infof("[mh]%s drop %s: %s\n", self.role, ErrUnknownIdentityPath, message)
		return
	}

	var err error
	HandleError(func() {
		err = member.apply(message)
	}, func(handleErr error) {
		err = fmt.Errorf("%w: %s", ErrApplyFailure, handleErr)
	})
	if err != nil {
		self.applyFailures.Add(1)
		glog.Infof("[mh]%s apply error %s = %s\n", self.role, message, err)
	}
}

func (self *MessageHandler) DigestMessageBytes(b []byte) error {
	message, err := DecodeMessage(b)
	if err != nil {
		self.applyFailures.Add(1)
		glog.Infof("[mh]%s drop undecodable message = %s\n", self.role, err)
		return fmt.Errorf("%w: %s", ErrApplyFailure, err)
	}
	self.DigestMessage(message)
	return nil
}
