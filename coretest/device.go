package coretest

import (
	"context"
	"fmt"
	"time"

	"bringyour.com/coresync/core"
)

type Device struct {
	entity

	name          string
	deviceType    core.DeviceType
	isActive      bool
	volume        float64
	shuffleState  bool
	repeatState   core.RepeatState
	playbackState core.PlaybackState
	position      time.Duration
	nowPlaying    *Track

	playbackQueue *Collection[core.Track]
}

func (self *Core) NewDevice(name string, deviceType core.DeviceType) *Device {
	device := &Device{
		name:       name,
		deviceType: deviceType,
		volume:     0.5,
	}
	device.initEntity(self)
	device.playbackQueue = newCollection[core.Track](&device.entity, core.CollectionPlaybackQueue)
	return device
}

func (self *Device) Name() string {
	return getProperty(&self.entity, &self.name)
}

func (self *Device) Type() core.DeviceType {
	return getProperty(&self.entity, &self.deviceType)
}

func (self *Device) IsActive() bool {
	return getProperty(&self.entity, &self.isActive)
}

func (self *Device) Volume() float64 {
	return getProperty(&self.entity, &self.volume)
}

func (self *Device) ShuffleState() bool {
	return getProperty(&self.entity, &self.shuffleState)
}

func (self *Device) RepeatState() core.RepeatState {
	return getProperty(&self.entity, &self.repeatState)
}

func (self *Device) PlaybackState() core.PlaybackState {
	return getProperty(&self.entity, &self.playbackState)
}

func (self *Device) Position() time.Duration {
	return getProperty(&self.entity, &self.position)
}

func (self *Device) NowPlaying() core.Track {
	nowPlaying := getProperty(&self.entity, &self.nowPlaying)
	if nowPlaying == nil {
		return nil
	}
	return nowPlaying
}

func (self *Device) SetNowPlaying(track *Track) {
	self.mutex.Lock()
	self.nowPlaying = track
	self.mutex.Unlock()
	var value core.Track
	if track != nil {
		value = track
	}
	self.fire(core.PropertyChange(core.MemberNowPlaying, value))
}

func (self *Device) PlaybackQueue() core.Collection[core.Track] {
	return self.playbackQueue
}

func (self *Device) PlaybackQueueCollection() *Collection[core.Track] {
	return self.playbackQueue
}

func (self *Device) Play(ctx context.Context) error {
	setProperty(&self.entity, core.MemberPlaybackState, &self.playbackState, core.PlaybackStatePlaying)
	return nil
}

func (self *Device) Pause(ctx context.Context) error {
	setProperty(&self.entity, core.MemberPlaybackState, &self.playbackState, core.PlaybackStatePaused)
	return nil
}

func (self *Device) Resume(ctx context.Context) error {
	return self.Play(ctx)
}

// advances the now playing track through the playback queue
func (self *Device) Next(ctx context.Context) error {
	return self.step(1)
}

func (self *Device) Previous(ctx context.Context) error {
	return self.step(-1)
}

func (self *Device) step(offset int) error {
	queue := self.playbackQueue.All()
	if len(queue) == 0 {
		return fmt.Errorf("Playback queue is empty.")
	}
	index := 0
	if nowPlaying := self.NowPlaying(); nowPlaying != nil {
		for i, track := range queue {
			if track.Id() == nowPlaying.Id() {
				index = (i + offset + len(queue)) % len(queue)
				break
			}
		}
	}
	track, ok := queue[index].(*Track)
	if !ok {
		return fmt.Errorf("Queue item %s is not a local track.", queue[index].Id())
	}
	self.SetNowPlaying(track)
	setProperty(&self.entity, core.MemberPosition, &self.position, 0)
	return nil
}

// Seek moves the position and raises the `Seeked` event with the new position.
func (self *Device) Seek(ctx context.Context, position time.Duration) error {
	if position < 0 {
		return fmt.Errorf("Invalid seek position %s.", position)
	}
	setProperty(&self.entity, core.MemberPosition, &self.position, position)
	self.fire(core.EventChange(core.EventSeeked, position))
	return nil
}

func (self *Device) ChangeVolume(ctx context.Context, volume float64) error {
	if volume < 0 || 1 < volume {
		return fmt.Errorf("Invalid volume %f.", volume)
	}
	setProperty(&self.entity, core.MemberVolume, &self.volume, volume)
	return nil
}

func (self *Device) ChangeShuffleState(ctx context.Context, shuffle bool) error {
	setProperty(&self.entity, core.MemberShuffleState, &self.shuffleState, shuffle)
	return nil
}

func (self *Device) ChangeRepeatState(ctx context.Context, repeatState core.RepeatState) error {
	setProperty(&self.entity, core.MemberRepeatState, &self.repeatState, repeatState)
	return nil
}

func (self *Device) SwitchTo(ctx context.Context) error {
	setProperty(&self.entity, core.MemberIsActive, &self.isActive, true)
	return nil
}
