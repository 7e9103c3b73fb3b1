package remote

import (
	"context"
	"fmt"
	mathrand "math/rand"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// Loopback joins a host handler and a client handler in one process.
// Messages are encoded with the wire codec, queued in order per direction, and delivered
// after a fixed delay. Loss and duplication can be injected to exercise the
// per-path sequence checks. This is a test and demo harness, not a network transport.

type LoopbackSettings struct {
	FixedDelay  time.Duration
	BufferSize  int
	SendTimeout time.Duration
	// fraction of messages dropped on send, in [0, 1]
	LossFraction float64
	// fraction of messages delivered twice, in [0, 1]
	DuplicateFraction float64
}

func DefaultLoopbackSettings() *LoopbackSettings {
	return &LoopbackSettings{
		FixedDelay:  5 * time.Millisecond,
		BufferSize:  1024,
		SendTimeout: 5 * time.Second,
	}
}

type LoopbackStats struct {
	HostToClient uint64
	ClientToHost uint64
	Lost         uint64
	Duplicated   uint64
}

type Loopback struct {
	ctx    context.Context
	cancel context.CancelFunc

	hostToClient *loopbackLink
	clientToHost *loopbackLink

	unsubs []func()
}

func NewLoopbackWithDefaults(ctx context.Context, host *MessageHandler, client *MessageHandler) *Loopback {
	return NewLoopback(ctx, host, client, DefaultLoopbackSettings())
}

func NewLoopback(ctx context.Context, host *MessageHandler, client *MessageHandler, settings *LoopbackSettings) *Loopback {
	cancelCtx, cancel := context.WithCancel(ctx)

	hostToClient := newLoopbackLink(cancelCtx, "h->c", client, settings)
	clientToHost := newLoopbackLink(cancelCtx, "c->h", host, settings)
	go hostToClient.run()
	go clientToHost.run()

	loopback := &Loopback{
		ctx:          cancelCtx,
		cancel:       cancel,
		hostToClient: hostToClient,
		clientToHost: clientToHost,
	}
	loopback.unsubs = []func(){
		host.AddMessageOutboundCallback(hostToClient.send),
		client.AddMessageOutboundCallback(clientToHost.send),
	}
	return loopback
}

func (self *Loopback) Stats() LoopbackStats {
	return LoopbackStats{
		HostToClient: self.hostToClient.delivered.Load(),
		ClientToHost: self.clientToHost.delivered.Load(),
		Lost:         self.hostToClient.lost.Load() + self.clientToHost.lost.Load(),
		Duplicated:   self.hostToClient.duplicated.Load() + self.clientToHost.duplicated.Load(),
	}
}

// queued messages that were not delivered are discarded
func (self *Loopback) Close() {
	for _, unsub := range self.unsubs {
		unsub()
	}
	self.cancel()
}

type loopbackPack struct {
	messageBytes []byte
	deliverTime  time.Time
}

// one direction
type loopbackLink struct {
	ctx      context.Context
	tag      string
	receiver *MessageHandler
	settings *LoopbackSettings

	packs chan *loopbackPack

	delivered  atomic.Uint64
	lost       atomic.Uint64
	duplicated atomic.Uint64
}

func newLoopbackLink(ctx context.Context, tag string, receiver *MessageHandler, settings *LoopbackSettings) *loopbackLink {
	return &loopbackLink{
		ctx:      ctx,
		tag:      tag,
		receiver: receiver,
		settings: settings,
		packs:    make(chan *loopbackPack, settings.BufferSize),
	}
}

// OutboundFunction
func (self *loopbackLink) send(ctx context.Context, message *Message) error {
	messageBytes, err := EncodeMessage(message)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTransport, err)
	}

	if 0 < self.settings.LossFraction && mathrand.Float64() < self.settings.LossFraction {
		self.lost.Add(1)
		glog.V(2).Infof("[lb]%s lose %s\n", self.tag, message)
		return nil
	}

	pack := &loopbackPack{
		messageBytes: messageBytes,
		deliverTime:  time.Now().Add(self.settings.FixedDelay),
	}
	if err := self.enqueue(ctx, pack); err != nil {
		return err
	}
	if 0 < self.settings.DuplicateFraction && mathrand.Float64() < self.settings.DuplicateFraction {
		self.duplicated.Add(1)
		return self.enqueue(ctx, pack)
	}
	return nil
}

func (self *loopbackLink) enqueue(ctx context.Context, pack *loopbackPack) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-self.ctx.Done():
		return fmt.Errorf("%w: loopback closed", ErrTransport)
	case self.packs <- pack:
		return nil
	case <-time.After(self.settings.SendTimeout):
		glog.Infof("[lb]%s send timeout\n", self.tag)
		return fmt.Errorf("%w: loopback send timeout after %s", ErrTransport, self.settings.SendTimeout)
	}
}

func (self *loopbackLink) run() {
	for {
		select {
		case <-self.ctx.Done():
			return
		case pack := <-self.packs:
			if timeout := time.Until(pack.deliverTime); 0 < timeout {
				select {
				case <-self.ctx.Done():
					return
				case <-time.After(timeout):
				}
			}
			HandleError(func() {
				self.receiver.DigestMessageBytes(pack.messageBytes)
			})
			self.delivered.Add(1)
		}
	}
}
