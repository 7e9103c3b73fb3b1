package remote

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"bringyour.com/coresync/core"
)

func roundTrip(t *testing.T, message *Message) *Message {
	t.Helper()
	b, err := EncodeMessage(message)
	assert.Equal(t, nil, err)
	decoded, err := DecodeMessage(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, message.Path, decoded.Path)
	assert.Equal(t, message.Member, decoded.Member)
	assert.Equal(t, message.Sequence, decoded.Sequence)
	assert.Equal(t, message.Kind(), decoded.Kind())
	return decoded
}

func TestCodecPropertyChanged(t *testing.T) {
	publishedAt := time.Date(2024, time.March, 1, 12, 30, 0, 123456789, time.UTC)
	descriptor := Descriptor{
		Kind:                 "Album",
		SourceCoreInstanceId: "core1",
		Id:                   "album1",
		Name:                 "Album 1",
	}

	values := []any{
		nil,
		true,
		"name",
		0.25,
		time.Duration(183) * time.Second,
		publishedAt,
		descriptor,
		[]Descriptor{descriptor, {Kind: "Album", SourceCoreInstanceId: "core1", Id: "album2"}},
		[]string{"a", "b"},
	}
	for _, value := range values {
		decoded := roundTrip(t, &Message{
			Path:     newTestPath("a"),
			Member:   "Value",
			Sequence: uint64(time.Now().UnixNano()),
			Payload: &PropertyChanged{
				Value: value,
			},
		})
		assert.Equal(t, value, decoded.Payload.(*PropertyChanged).Value)
	}
}

func TestCodecIntegers(t *testing.T) {
	// every integer decodes as int64 without float precision loss
	expected := map[any]int64{
		int(7):                 7,
		int32(-3):              -3,
		int64(math.MaxInt64):   math.MaxInt64,
		uint8(200):             200,
		int64(math.MinInt64+1): math.MinInt64 + 1,
	}
	for value, expectedValue := range expected {
		decoded := roundTrip(t, &Message{
			Path:    newTestPath("a"),
			Member:  "Count",
			Payload: &PropertyChanged{Value: value},
		})
		assert.Equal(t, expectedValue, decoded.Payload.(*PropertyChanged).Value)
	}
}

func TestCodecMethodCallAndResult(t *testing.T) {
	callId := NewId()
	decoded := roundTrip(t, &Message{
		Path:   newTestPath("a"),
		Member: "Albums.Items",
		Payload: &MethodCall{
			CallId: callId,
			Args:   []any{10, 0, []any{"nested", true}},
		},
	})
	call := decoded.Payload.(*MethodCall)
	assert.Equal(t, callId, call.CallId)
	assert.Equal(t, []any{int64(10), int64(0), []any{"nested", true}}, call.Args)

	decoded = roundTrip(t, &Message{
		Path:     newTestPath("a"),
		Member:   "Albums.Items",
		Sequence: 42,
		Payload: &MethodResult{
			CallId: callId,
			Error:  "Unsupported operation.",
			Code:   ErrorCodeUnsupported,
		},
	})
	result := decoded.Payload.(*MethodResult)
	assert.Equal(t, callId, result.CallId)
	assert.Equal(t, nil, result.Value)
	assert.Equal(t, ErrorCodeUnsupported, result.Code)
	err := result.Err(decoded.Path, decoded.Member)
	assert.NotEqual(t, nil, err)
	assert.Equal(t, true, errors.Is(err, ErrUnsupported))
}

func TestCodecCollectionDeltaAndEvent(t *testing.T) {
	item := Descriptor{
		Kind:                 "Track",
		SourceCoreInstanceId: "core1",
		Id:                   "t1",
	}
	decoded := roundTrip(t, &Message{
		Path:     newTestPath("a"),
		Member:   "Tracks",
		Sequence: 3,
		Payload: &CollectionDelta{
			Op:    core.DeltaOpAdd,
			Index: 5,
			Item:  item,
		},
	})
	delta := decoded.Payload.(*CollectionDelta)
	assert.Equal(t, core.DeltaOpAdd, delta.Op)
	assert.Equal(t, 5, delta.Index)
	assert.Equal(t, item, delta.Item)

	decoded = roundTrip(t, &Message{
		Path:     newTestPath("a"),
		Member:   core.EventSeeked,
		Sequence: 4,
		Payload: &EventRaised{
			Args: []any{time.Duration(90) * time.Second},
		},
	})
	event := decoded.Payload.(*EventRaised)
	assert.Equal(t, []any{time.Duration(90) * time.Second}, event.Args)
}

func TestCodecUnsupportedValue(t *testing.T) {
	_, err := EncodeMessage(&Message{
		Path:    newTestPath("a"),
		Member:  "Value",
		Payload: &PropertyChanged{Value: struct{}{}},
	})
	assert.NotEqual(t, nil, err)

	_, err = DecodeMessage([]byte{0xff, 0x01})
	assert.NotEqual(t, nil, err)
}

func TestCodecCollectionSnapshot(t *testing.T) {
	items := []Descriptor{
		{Kind: "Track", SourceCoreInstanceId: "core1", Id: "t1", Name: "One"},
		{Kind: "Track", SourceCoreInstanceId: "core1", Id: "t2", Name: "Two"},
	}
	decoded := roundTrip(t, &Message{
		Path:     newTestPath("a"),
		Member:   "Tracks",
		Sequence: 7,
		Payload: &CollectionSnapshot{
			Items: items,
		},
	})
	assert.Equal(t, items, decoded.Payload.(*CollectionSnapshot).Items)

	decoded = roundTrip(t, &Message{
		Path:    newTestPath("a"),
		Member:  "Tracks",
		Payload: &CollectionSnapshot{},
	})
	assert.Equal(t, 0, len(decoded.Payload.(*CollectionSnapshot).Items))
}

func TestCodecInvalidUtf8(t *testing.T) {
	name := "Caf\xe9"
	descriptor := Descriptor{
		Kind:                 "Album",
		SourceCoreInstanceId: "core1",
		Id:                   "album\xff",
		Name:                 name,
	}

	values := []any{
		name,
		[]string{"Caf\xc3\xa9", name},
		descriptor,
		[]any{name, int64(1)},
	}
	for _, value := range values {
		decoded := roundTrip(t, &Message{
			Path:     NewPath("core1", "Album", "album\xff"),
			Member:   "Name",
			Sequence: 1,
			Payload: &PropertyChanged{
				Value: value,
			},
		})
		assert.Equal(t, value, decoded.Payload.(*PropertyChanged).Value)
	}

	decoded := roundTrip(t, &Message{
		Path:   newTestPath("a"),
		Member: "ChangeName",
		Payload: &MethodResult{
			CallId: NewId(),
			Error:  "Cannot rename " + name,
			Code:   ErrorCodeFault,
		},
	})
	assert.Equal(t, "Cannot rename "+name, decoded.Payload.(*MethodResult).Error)

	// valid strings stay plain strings on the wire
	value, err := EncodeValue("Caf\xc3\xa9")
	assert.Equal(t, nil, err)
	assert.Equal(t, "Caf\xc3\xa9", value.GetStringValue())
}

func TestCodecTimeZone(t *testing.T) {
	zone := time.FixedZone("UTC+5:30", 5*60*60+30*60)
	lastPlayed := time.Date(2024, time.June, 2, 21, 15, 0, 500, zone)

	decoded := roundTrip(t, &Message{
		Path:     newTestPath("a"),
		Member:   core.MemberLastPlayed,
		Sequence: 1,
		Payload: &PropertyChanged{
			Value: lastPlayed,
		},
	})
	decodedTime := decoded.Payload.(*PropertyChanged).Value.(time.Time)
	assert.Equal(t, true, lastPlayed.Equal(decodedTime))
	_, offset := decodedTime.Zone()
	assert.Equal(t, 5*60*60+30*60, offset)
	assert.Equal(t, lastPlayed.Hour(), decodedTime.Hour())
}
