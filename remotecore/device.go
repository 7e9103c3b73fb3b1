package remotecore

import (
	"context"
	"time"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

// RemoteDevice mirrors the state of a playback device.
// Transport controls are not carried by the protocol: the host wrapper delegates them to
// the real device and the client wrapper returns `core.ErrUnsupported`.
type RemoteDevice struct {
	remoteEntity

	realDevice core.Device

	playbackQueue *remoteCollection[core.Track]
}

func newRemoteDevice(registry *Registry, descriptor remote.Descriptor, real core.Device, detached bool) (*RemoteDevice, error) {
	device := &RemoteDevice{
		realDevice: real,
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
				Name: core.MemberType,
				Get: func() any {
					return int64(real.Type())
				},
			},
			{
				Name: core.MemberIsActive,
				Get: func() any {
					return real.IsActive()
				},
			},
			{
				Name: core.MemberVolume,
				Get: func() any {
					return real.Volume()
				},
			},
			{
				Name: core.MemberShuffleState,
				Get: func() any {
					return real.ShuffleState()
				},
			},
			{
				Name: core.MemberRepeatState,
				Get: func() any {
					return int64(real.RepeatState())
				},
			},
			{
				Name: core.MemberPlaybackState,
				Get: func() any {
					return int64(real.PlaybackState())
				},
			},
			{
				Name: core.MemberPosition,
				Get: func() any {
					return real.Position()
				},
			},
			{
				Name: core.MemberNowPlaying,
				Get: func() any {
					return entityValue(registry, KindTrack, real.NowPlaying())
				},
			},
		},
		Events: []string{core.EventSeeked},
	}
	device.playbackQueue = newRemoteCollection(&device.remoteEntity, core.CollectionPlaybackQueue, func() core.Collection[core.Track] {
		return real.PlaybackQueue()
	}, declaration)
	if err := device.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return device, nil
}

func (self *RemoteDevice) Name() string {
	return remote.AsString(self.memberRemote.Get(core.MemberName))
}

func (self *RemoteDevice) Type() core.DeviceType {
	return core.DeviceType(remote.AsInt(self.memberRemote.Get(core.MemberType)))
}

func (self *RemoteDevice) IsActive() bool {
	return remote.AsBool(self.memberRemote.Get(core.MemberIsActive))
}

func (self *RemoteDevice) Volume() float64 {
	return remote.AsFloat(self.memberRemote.Get(core.MemberVolume))
}

func (self *RemoteDevice) ShuffleState() bool {
	return remote.AsBool(self.memberRemote.Get(core.MemberShuffleState))
}

func (self *RemoteDevice) RepeatState() core.RepeatState {
	return core.RepeatState(remote.AsInt(self.memberRemote.Get(core.MemberRepeatState)))
}

func (self *RemoteDevice) PlaybackState() core.PlaybackState {
	return core.PlaybackState(remote.AsInt(self.memberRemote.Get(core.MemberPlaybackState)))
}

func (self *RemoteDevice) Position() time.Duration {
	return remote.AsDuration(self.memberRemote.Get(core.MemberPosition))
}

func (self *RemoteDevice) NowPlaying() core.Track {
	if track, ok := self.entityMember(core.MemberNowPlaying).(core.Track); ok {
		return track
	}
	return nil
}

func (self *RemoteDevice) PlaybackQueue() core.Collection[core.Track] {
	return self.playbackQueue
}

func (self *RemoteDevice) control(do func(device core.Device) error) error {
	if self.isClient() {
		return core.ErrUnsupported
	}
	return do(self.realDevice)
}

func (self *RemoteDevice) Play(ctx context.Context) error {
	return self.control(func(device core.Device) error {
		return device.Play(ctx)
	})
}

func (self *RemoteDevice) Pause(ctx context.Context) error {
	return self.control(func(device core.Device) error {
		return device.Pause(ctx)
	})
}

func (self *RemoteDevice) Resume(ctx context.Context) error {
	return self.control(func(device core.Device) error {
		return device.Resume(ctx)
	})
}

func (self *RemoteDevice) Next(ctx context.Context) error {
	return self.control(func(device core.Device) error {
		return device.Next(ctx)
	})
}

func (self *RemoteDevice) Previous(ctx context.Context) error {
	return self.control(func(device core.Device) error {
		return device.Previous(ctx)
	})
}

func (self *RemoteDevice) Seek(ctx context.Context, position time.Duration) error {
	return self.control(func(device core.Device) error {
		return device.Seek(ctx, position)
	})
}

func (self *RemoteDevice) ChangeVolume(ctx context.Context, volume float64) error {
	return self.control(func(device core.Device) error {
		return device.ChangeVolume(ctx, volume)
	})
}

func (self *RemoteDevice) ChangeShuffleState(ctx context.Context, shuffle bool) error {
	return self.control(func(device core.Device) error {
		return device.ChangeShuffleState(ctx, shuffle)
	})
}

func (self *RemoteDevice) ChangeRepeatState(ctx context.Context, repeatState core.RepeatState) error {
	return self.control(func(device core.Device) error {
		return device.ChangeRepeatState(ctx, repeatState)
	})
}

func (self *RemoteDevice) SwitchTo(ctx context.Context) error {
	return self.control(func(device core.Device) error {
		return device.SwitchTo(ctx)
	})
}
