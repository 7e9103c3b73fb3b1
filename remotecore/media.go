package remotecore

import (
	"time"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

type RemoteImage struct {
	remoteEntity
}

func newRemoteImage(registry *Registry, descriptor remote.Descriptor, real core.Image, detached bool) (*RemoteImage, error) {
	image := &RemoteImage{}
	declaration := &remote.Declaration{
		Properties: []*remote.Property{
			{
				Name: core.MemberUri,
				Get: func() any {
					return real.Uri()
				},
			},
			{
				Name: core.MemberHeight,
				Get: func() any {
					return real.Height()
				},
			},
			{
				Name: core.MemberWidth,
				Get: func() any {
					return real.Width()
				},
			},
		},
	}
	if err := image.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return image, nil
}

func (self *RemoteImage) Uri() string {
	return remote.AsString(self.memberRemote.Get(core.MemberUri))
}

func (self *RemoteImage) Height() float64 {
	return remote.AsFloat(self.memberRemote.Get(core.MemberHeight))
}

func (self *RemoteImage) Width() float64 {
	return remote.AsFloat(self.memberRemote.Get(core.MemberWidth))
}

type RemoteUrl struct {
	remoteEntity
}

func newRemoteUrl(registry *Registry, descriptor remote.Descriptor, real core.Url, detached bool) (*RemoteUrl, error) {
	url := &RemoteUrl{}
	declaration := &remote.Declaration{
		Properties: []*remote.Property{
			{
				Name: core.MemberLabel,
				Get: func() any {
					return real.Label()
				},
			},
			{
				Name: core.MemberHref,
				Get: func() any {
					return real.Href()
				},
			},
		},
	}
	if err := url.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return url, nil
}

func (self *RemoteUrl) Label() string {
	return remote.AsString(self.memberRemote.Get(core.MemberLabel))
}

func (self *RemoteUrl) Href() string {
	return remote.AsString(self.memberRemote.Get(core.MemberHref))
}

type RemoteGenre struct {
	remoteEntity
}

func newRemoteGenre(registry *Registry, descriptor remote.Descriptor, real core.Genre, detached bool) (*RemoteGenre, error) {
	genre := &RemoteGenre{}
	declaration := &remote.Declaration{
		Properties: []*remote.Property{
			{
				Name: core.MemberName,
				Get: func() any {
					return real.Name()
				},
			},
		},
	}
	if err := genre.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return genre, nil
}

func (self *RemoteGenre) Name() string {
	return remote.AsString(self.memberRemote.Get(core.MemberName))
}

type RemoteUser struct {
	remoteEntity
}

func newRemoteUser(registry *Registry, descriptor remote.Descriptor, real core.User, detached bool) (*RemoteUser, error) {
	user := &RemoteUser{}
	declaration := &remote.Declaration{
		Properties: []*remote.Property{
			{
				Name: core.MemberDisplayName,
				Get: func() any {
					return real.DisplayName()
				},
			},
			{
				Name: core.MemberFullName,
				Get: func() any {
					return real.FullName()
				},
			},
			{
				Name: core.MemberEmail,
				Get: func() any {
					return real.Email()
				},
			},
			{
				Name: core.MemberRegion,
				Get: func() any {
					return real.Region()
				},
			},
			{
				Name: core.MemberBirthdate,
				Get: func() any {
					return real.Birthdate()
				},
			},
		},
	}
	if err := user.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return user, nil
}

func (self *RemoteUser) DisplayName() string {
	return remote.AsString(self.memberRemote.Get(core.MemberDisplayName))
}

func (self *RemoteUser) FullName() string {
	return remote.AsString(self.memberRemote.Get(core.MemberFullName))
}

func (self *RemoteUser) Email() string {
	return remote.AsString(self.memberRemote.Get(core.MemberEmail))
}

func (self *RemoteUser) Region() string {
	return remote.AsString(self.memberRemote.Get(core.MemberRegion))
}

func (self *RemoteUser) Birthdate() time.Time {
	return remote.AsTime(self.memberRemote.Get(core.MemberBirthdate))
}
