package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"
)

type testItem struct {
	id string
}

func (self *testItem) Id() string {
	return self.id
}

// a minimal collection of anything with an id
type testItems[T Identified] struct {
	items []T
}

func (self *testItems[T]) TotalCount() int {
	return len(self.items)
}

func (self *testItems[T]) Items(ctx context.Context, limit int, offset int) ([]T, error) {
	end := min(offset+limit, len(self.items))
	if end <= offset {
		return []T{}, nil
	}
	return self.items[offset:end], nil
}

func (self *testItems[T]) Add(ctx context.Context, item T, index int) error {
	if index < 0 || len(self.items) < index {
		return fmt.Errorf("Index out of range: %d", index)
	}
	self.items = append(self.items[:index], append([]T{item}, self.items[index:]...)...)
	return nil
}

func (self *testItems[T]) Remove(ctx context.Context, index int) error {
	if index < 0 || len(self.items) <= index {
		return fmt.Errorf("Index out of range: %d", index)
	}
	self.items = append(self.items[:index], self.items[index+1:]...)
	return nil
}

func (self *testItems[T]) IsAddAvailable(ctx context.Context, index int) (bool, error) {
	return 0 <= index && index <= len(self.items), nil
}

func (self *testItems[T]) IsRemoveAvailable(ctx context.Context, index int) (bool, error) {
	return 0 <= index && index < len(self.items), nil
}

func ids[T Identified](ctx context.Context, collection Collection[T]) []string {
	items, err := collection.Items(ctx, collection.TotalCount(), 0)
	if err != nil {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Id()
	}
	return out
}

func TestCollectionContract(t *testing.T) {
	ctx := context.Background()

	var collection Collection[*testItem] = &testItems[*testItem]{}
	assert.Equal(t, nil, collection.Add(ctx, &testItem{id: "b"}, 0))
	assert.Equal(t, nil, collection.Add(ctx, &testItem{id: "a"}, 0))
	assert.Equal(t, nil, collection.Add(ctx, &testItem{id: "c"}, 2))
	assert.NotEqual(t, nil, collection.Add(ctx, &testItem{id: "d"}, 5))
	assert.Equal(t, []string{"a", "b", "c"}, ids(ctx, collection))

	assert.Equal(t, nil, collection.Remove(ctx, 1))
	assert.Equal(t, []string{"a", "c"}, ids(ctx, collection))

	// collections of domain entities use the same constraint
	var images Collection[Image] = &testItems[Image]{}
	assert.Equal(t, 0, images.TotalCount())
}

func TestCountMember(t *testing.T) {
	assert.Equal(t, "TotalTrackCount", CountMember(CollectionTracks))
	assert.Equal(t, "TotalAlbumItemsCount", CountMember(CollectionAlbums))
	assert.Equal(t, "TotalChildrenCount", CountMember(CollectionChildren))
	assert.Equal(t, "TotalPlaybackQueueCount", CountMember("PlaybackQueue"))
}

func TestChangeHelpers(t *testing.T) {
	change := CollectionChange(CollectionAlbums, DeltaOpRemove, 3, nil)
	assert.Equal(t, ChangeKindCollection, change.Kind)
	assert.Equal(t, "remove", change.Delta.Op.String())
	assert.Equal(t, 3, change.Delta.Index)

	event := EventChange(EventSeeked, 1, 2)
	assert.Equal(t, []any{1, 2}, event.Args)
}
