package remotecore

import (
	"context"
	"fmt"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

// remoteCollection is one collection of a typed wrapper. The client mirror is replaced by a
// snapshot on each sync and follows the host deltas in between. Reads are paged through the
// host with `<Collection>.Items`.
//
// methods served by the host:
// <Collection>.Items(limit, offset) -> []Descriptor
// <Collection>.Add(item, index)
// <Collection>.Remove(index)
// <Collection>.IsAddAvailable(index) -> bool
// <Collection>.IsRemoveAvailable(index) -> bool
// page size of the host reads behind a sync snapshot
const snapshotPageSize = 256

type remoteCollection[T core.Entity] struct {
	owner    *remoteEntity
	name     string
	itemKind string
	// host role
	real func() core.Collection[T]
}

func newRemoteCollection[T core.Entity](
	owner *remoteEntity,
	name string,
	real func() core.Collection[T],
	declaration *remote.Declaration,
) *remoteCollection[T] {
	collection := &remoteCollection[T]{
		owner:    owner,
		name:     name,
		itemKind: collectionItemKinds[name],
		real:     real,
	}
	collection.declare(declaration)
	return collection
}

func (self *remoteCollection[T]) member(method string) string {
	return fmt.Sprintf("%s.%s", self.name, method)
}

func (self *remoteCollection[T]) declare(declaration *remote.Declaration) {
	declaration.Collections = append(declaration.Collections, &remote.Collection{
		Name:     self.name,
		Snapshot: self.snapshot,
	})
	declaration.Properties = append(declaration.Properties, &remote.Property{
		Name: core.CountMember(self.name),
		Get: func() any {
			return int64(self.real().TotalCount())
		},
	})
	declaration.Methods = append(declaration.Methods,
		&remote.Method{
			Name: self.member("Items"),
			Invoke: func(ctx context.Context, args []any) (any, error) {
				items, err := self.real().Items(ctx, remote.AsInt(argAt(args, 0)), remote.AsInt(argAt(args, 1)))
				if err != nil {
					return nil, err
				}
				descriptors := make([]remote.Descriptor, len(items))
				for i, item := range items {
					descriptors[i] = self.owner.registry.describe(self.itemKind, item)
				}
				return descriptors, nil
			},
		},
		&remote.Method{
			Name: self.member("Add"),
			Invoke: func(ctx context.Context, args []any) (any, error) {
				item, err := self.resolveItem(descriptorArg(args, 0))
				if err != nil {
					return nil, err
				}
				return nil, self.real().Add(ctx, item, remote.AsInt(argAt(args, 1)))
			},
		},
		&remote.Method{
			Name: self.member("Remove"),
			Invoke: func(ctx context.Context, args []any) (any, error) {
				return nil, self.real().Remove(ctx, remote.AsInt(argAt(args, 0)))
			},
		},
		&remote.Method{
			Name: self.member("IsAddAvailable"),
			Invoke: func(ctx context.Context, args []any) (any, error) {
				return self.real().IsAddAvailable(ctx, remote.AsInt(argAt(args, 0)))
			},
		},
		&remote.Method{
			Name: self.member("IsRemoveAvailable"),
			Invoke: func(ctx context.Context, args []any) (any, error) {
				return self.real().IsRemoveAvailable(ctx, remote.AsInt(argAt(args, 0)))
			},
		},
	)
}

// host role. Every materialized item of the real collection, in order.
func (self *remoteCollection[T]) snapshot(ctx context.Context) ([]remote.Descriptor, error) {
	descriptors := []remote.Descriptor{}
	for {
		items, err := self.real().Items(ctx, snapshotPageSize, len(descriptors))
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			descriptors = append(descriptors, self.owner.registry.describe(self.itemKind, item))
		}
		if len(items) < snapshotPageSize {
			return descriptors, nil
		}
	}
}

func (self *remoteCollection[T]) resolveItem(descriptor remote.Descriptor) (T, error) {
	var zero T
	if descriptor.IsZero() {
		return zero, fmt.Errorf("%w: %s missing item", remote.ErrApplyFailure, self.member("Add"))
	}
	e, err := self.owner.registry.resolve(descriptor)
	if err != nil {
		return zero, err
	}
	item, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is not a %s", remote.ErrApplyFailure, descriptor, self.itemKind)
	}
	return item, nil
}

func (self *remoteCollection[T]) TotalCount() int {
	return remote.AsInt(self.owner.memberRemote.Get(core.CountMember(self.name)))
}

func (self *remoteCollection[T]) Items(ctx context.Context, limit int, offset int) ([]T, error) {
	value, err := self.owner.memberRemote.Invoke(ctx, self.member("Items"), limit, offset)
	if err != nil {
		return nil, err
	}
	descriptors := remote.AsDescriptors(value)
	items := make([]T, 0, len(descriptors))
	for _, descriptor := range descriptors {
		item, ok := self.owner.registry.entity(descriptor).(T)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a %s", remote.ErrApplyFailure, descriptor, self.itemKind)
		}
		items = append(items, item)
	}
	return items, nil
}

// In the client role the item is sent by reference and the host resolves it.
func (self *remoteCollection[T]) Add(ctx context.Context, item T, index int) error {
	descriptor := self.owner.registry.describe(self.itemKind, item)
	if descriptor.IsZero() {
		return fmt.Errorf("Cannot add a nil item to %s.", self.name)
	}
	return self.owner.memberRemote.Post(ctx, self.member("Add"), descriptor, index)
}

func (self *remoteCollection[T]) Remove(ctx context.Context, index int) error {
	return self.owner.memberRemote.Post(ctx, self.member("Remove"), index)
}

func (self *remoteCollection[T]) IsAddAvailable(ctx context.Context, index int) (bool, error) {
	value, err := self.owner.memberRemote.Invoke(ctx, self.member("IsAddAvailable"), index)
	if err != nil {
		return false, err
	}
	return remote.AsBool(value), nil
}

func (self *remoteCollection[T]) IsRemoveAvailable(ctx context.Context, index int) (bool, error) {
	value, err := self.owner.memberRemote.Invoke(ctx, self.member("IsRemoveAvailable"), index)
	if err != nil {
		return false, err
	}
	return remote.AsBool(value), nil
}

// Mirror is the client replay of the collection deltas received so far.
func (self *remoteCollection[T]) Mirror() []remote.Descriptor {
	return self.owner.memberRemote.Items(self.name)
}
