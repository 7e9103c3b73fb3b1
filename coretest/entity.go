package coretest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/oklog/ulid/v2"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

// In-memory implementations of the domain contracts. Every mutation raises the same change
// notifications a real backend raises. Notifications are raised outside of locks.

func newEntityId() string {
	return ulid.Make().String()
}

type entity struct {
	id         string
	sourceCore *Core

	mutex sync.Mutex

	changeCallbacks *remote.CallbackList[core.ChangeFunction]
	disposed        bool
}

func (self *entity) initEntity(sourceCore *Core) {
	self.id = newEntityId()
	self.sourceCore = sourceCore
	self.changeCallbacks = remote.NewCallbackList[core.ChangeFunction]()
}

func (self *entity) Id() string {
	return self.id
}

func (self *entity) SourceCore() core.Core {
	if self.sourceCore == nil {
		return nil
	}
	return self.sourceCore
}

func (self *entity) AddChangeCallback(changeCallback core.ChangeFunction) func() {
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

func (self *entity) IsDisposed() bool {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.disposed
}

func (self *entity) Dispose() error {
	self.mutex.Lock()
	self.disposed = true
	self.mutex.Unlock()
	self.changeCallbacks.Clear()
	return nil
}

func (self *entity) ChangeCallbackCount() int {
	return self.changeCallbacks.Len()
}

func (self *entity) fire(changes ...core.Change) {
	for _, change := range changes {
		for _, changeCallback := range self.changeCallbacks.Get() {
			remote.HandleError(func() {
				changeCallback(change)
			})
		}
	}
}

// sets a field under the entity lock and raises the property change
func setProperty[V any](self *entity, member string, field *V, value V) {
	self.mutex.Lock()
	*field = value
	self.mutex.Unlock()
	self.fire(core.PropertyChange(member, value))
}

func getProperty[V any](self *entity, field *V) V {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return *field
}

// Collection is an ordered in-memory collection. The total count tracks the items,
// and can be set independently to model a backend that has not materialized every item.
type Collection[T core.Entity] struct {
	owner *entity
	name  string

	mutex          sync.Mutex
	items          []T
	totalCount     int
	addUnavailable bool
}

func newCollection[T core.Entity](owner *entity, name string) *Collection[T] {
	return &Collection[T]{
		owner: owner,
		name:  name,
		items: []T{},
	}
}

// Seed appends items without raising changes
func (self *Collection[T]) Seed(items ...T) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.items = append(self.items, items...)
	self.totalCount += len(items)
}

func (self *Collection[T]) TotalCount() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.totalCount
}

func (self *Collection[T]) SetTotalCount(totalCount int) {
	self.mutex.Lock()
	self.totalCount = totalCount
	self.mutex.Unlock()
	self.owner.fire(core.PropertyChange(core.CountMember(self.name), totalCount))
}

func (self *Collection[T]) SetAddAvailable(addAvailable bool) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.addUnavailable = !addAvailable
}

func (self *Collection[T]) Len() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return len(self.items)
}

func (self *Collection[T]) All() []T {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return slices.Clone(self.items)
}

func (self *Collection[T]) Items(ctx context.Context, limit int, offset int) ([]T, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("Invalid page limit=%d offset=%d.", limit, offset)
	}
	if len(self.items) <= offset {
		return []T{}, nil
	}
	end := min(offset+limit, len(self.items))
	return slices.Clone(self.items[offset:end]), nil
}

func (self *Collection[T]) Add(ctx context.Context, item T, index int) error {
	totalCount, err := func() (int, error) {
		self.mutex.Lock()
		defer self.mutex.Unlock()
		if self.addUnavailable {
			return 0, fmt.Errorf("%w: add to %s", core.ErrUnsupported, self.name)
		}
		if index < 0 || len(self.items) < index {
			return 0, fmt.Errorf("Add index %d out of range [0, %d].", index, len(self.items))
		}
		self.items = slices.Insert(self.items, index, item)
		self.totalCount += 1
		return self.totalCount, nil
	}()
	if err != nil {
		return err
	}
	self.owner.fire(
		core.CollectionChange(self.name, core.DeltaOpAdd, index, item),
		core.PropertyChange(core.CountMember(self.name), totalCount),
	)
	return nil
}

func (self *Collection[T]) Remove(ctx context.Context, index int) error {
	var item T
	totalCount, err := func() (int, error) {
		self.mutex.Lock()
		defer self.mutex.Unlock()
		if index < 0 || len(self.items) <= index {
			return 0, fmt.Errorf("Remove index %d out of range [0, %d).", index, len(self.items))
		}
		item = self.items[index]
		self.items = slices.Delete(self.items, index, index+1)
		self.totalCount -= 1
		return self.totalCount, nil
	}()
	if err != nil {
		return err
	}
	self.owner.fire(
		core.CollectionChange(self.name, core.DeltaOpRemove, index, item),
		core.PropertyChange(core.CountMember(self.name), totalCount),
	)
	return nil
}

func (self *Collection[T]) IsAddAvailable(ctx context.Context, index int) (bool, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return !self.addUnavailable && 0 <= index && index <= len(self.items), nil
}

func (self *Collection[T]) IsRemoveAvailable(ctx context.Context, index int) (bool, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return 0 <= index && index < len(self.items), nil
}
