package remotecore

import (
	"context"
	"time"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

// remotePlayable is the common part of every playable wrapper.
// Play and Pause are not carried by the protocol: the host wrapper delegates them to the
// real entity and the client wrapper returns `core.ErrUnsupported`.
type remotePlayable struct {
	remoteEntity

	realPlayable core.Playable

	images *remoteCollection[core.Image]
	urls   *remoteCollection[core.Url]
}

func (self *remotePlayable) declarePlayable(real core.Playable, declaration *remote.Declaration) {
	self.realPlayable = real
	declaration.Properties = append(declaration.Properties,
		&remote.Property{
			Name: core.MemberName,
			Get: func() any {
				return real.Name()
			},
			Set: func(ctx context.Context, value any) error {
				return real.ChangeName(ctx, remote.AsString(value))
			},
		},
		&remote.Property{
			Name: core.MemberDescription,
			Get: func() any {
				return real.Description()
			},
			Set: func(ctx context.Context, value any) error {
				return real.ChangeDescription(ctx, remote.AsString(value))
			},
		},
		&remote.Property{
			Name: core.MemberPlaybackState,
			Get: func() any {
				return int64(real.PlaybackState())
			},
		},
		&remote.Property{
			Name: core.MemberDuration,
			Get: func() any {
				return real.Duration()
			},
			Set: func(ctx context.Context, value any) error {
				return real.ChangeDuration(ctx, remote.AsDuration(value))
			},
		},
		&remote.Property{
			Name: core.MemberLastPlayed,
			Get: func() any {
				return real.LastPlayed()
			},
		},
		&remote.Property{
			Name: core.MemberAddedAt,
			Get: func() any {
				return real.AddedAt()
			},
		},
	)
	self.images = newRemoteCollection(&self.remoteEntity, core.CollectionImages, func() core.Collection[core.Image] {
		return real.Images()
	}, declaration)
	self.urls = newRemoteCollection(&self.remoteEntity, core.CollectionUrls, func() core.Collection[core.Url] {
		return real.Urls()
	}, declaration)
}

func (self *remotePlayable) Name() string {
	return remote.AsString(self.memberRemote.Get(core.MemberName))
}

func (self *remotePlayable) Description() string {
	return remote.AsString(self.memberRemote.Get(core.MemberDescription))
}

func (self *remotePlayable) PlaybackState() core.PlaybackState {
	return core.PlaybackState(remote.AsInt(self.memberRemote.Get(core.MemberPlaybackState)))
}

func (self *remotePlayable) Duration() time.Duration {
	return remote.AsDuration(self.memberRemote.Get(core.MemberDuration))
}

func (self *remotePlayable) LastPlayed() time.Time {
	return remote.AsTime(self.memberRemote.Get(core.MemberLastPlayed))
}

func (self *remotePlayable) AddedAt() time.Time {
	return remote.AsTime(self.memberRemote.Get(core.MemberAddedAt))
}

func (self *remotePlayable) Images() core.Collection[core.Image] {
	return self.images
}

func (self *remotePlayable) Urls() core.Collection[core.Url] {
	return self.urls
}

func (self *remotePlayable) ChangeName(ctx context.Context, name string) error {
	return self.memberRemote.Set(ctx, core.MemberName, name)
}

func (self *remotePlayable) ChangeDescription(ctx context.Context, description string) error {
	return self.memberRemote.Set(ctx, core.MemberDescription, description)
}

func (self *remotePlayable) ChangeDuration(ctx context.Context, duration time.Duration) error {
	return self.memberRemote.Set(ctx, core.MemberDuration, duration)
}

func (self *remotePlayable) Play(ctx context.Context) error {
	if self.isClient() {
		return core.ErrUnsupported
	}
	return self.realPlayable.Play(ctx)
}

func (self *remotePlayable) Pause(ctx context.Context) error {
	if self.isClient() {
		return core.ErrUnsupported
	}
	return self.realPlayable.Pause(ctx)
}
