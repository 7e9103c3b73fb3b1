package remote

import (
	"fmt"

	"bringyour.com/coresync/core"
)

type Role int

const (
	RoleHost   Role = 0
	RoleClient Role = 1
)

func (self Role) String() string {
	switch self {
	case RoleHost:
		return "host"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

type Kind int

const (
	KindPropertyChanged Kind = 0
	KindMethodCall      Kind = 1
	KindMethodResult    Kind = 2
	KindCollectionDelta Kind = 3
	KindEventRaised     Kind = 4

	// the full content of a collection, sent in answer to a sync
	KindCollectionSnapshot Kind = 5
)

func (self Kind) String() string {
	switch self {
	case KindPropertyChanged:
		return "PropertyChanged"
	case KindMethodCall:
		return "MethodCall"
	case KindMethodResult:
		return "MethodResult"
	case KindCollectionDelta:
		return "CollectionDelta"
	case KindEventRaised:
		return "EventRaised"
	case KindCollectionSnapshot:
		return "CollectionSnapshot"
	default:
		return fmt.Sprintf("Kind(%d)", int(self))
	}
}

// the reserved method that asks the host to publish every declared property and collection
const SyncMember = "@sync"

// Payload is the tagged variant carried by a message.
// One of `*PropertyChanged`, `*MethodCall`, `*MethodResult`, `*CollectionDelta`, `*EventRaised`,
// `*CollectionSnapshot`.
type Payload interface {
	Kind() Kind
}

type PropertyChanged struct {
	Value any
}

func (self *PropertyChanged) Kind() Kind {
	return KindPropertyChanged
}

type MethodCall struct {
	CallId Id
	Args   []any
}

func (self *MethodCall) Kind() Kind {
	return KindMethodCall
}

type MethodResult struct {
	CallId Id
	Value  any
	// empty on success
	Error string
	Code  string
}

func (self *MethodResult) Kind() Kind {
	return KindMethodResult
}

func (self *MethodResult) Err(path Path, member string) error {
	if self.Code == ErrorCodeNone && self.Error == "" {
		return nil
	}
	return &RemoteError{
		Path:    path,
		Member:  member,
		Code:    self.Code,
		Message: self.Error,
	}
}

type CollectionDelta struct {
	Op    core.DeltaOp
	Index int
	// zero for removes
	Item Descriptor
}

func (self *CollectionDelta) Kind() Kind {
	return KindCollectionDelta
}

// CollectionSnapshot replaces the client mirror of a collection.
type CollectionSnapshot struct {
	Items []Descriptor
}

func (self *CollectionSnapshot) Kind() Kind {
	return KindCollectionSnapshot
}

type EventRaised struct {
	Args []any
}

func (self *EventRaised) Kind() Kind {
	return KindEventRaised
}

type Message struct {
	Path   Path
	Member string
	// stamped by the host per path. 0 means unsequenced.
	Sequence uint64
	Payload  Payload
}

func (self *Message) Kind() Kind {
	return self.Payload.Kind()
}

func (self *Message) String() string {
	switch v := self.Payload.(type) {
	case *PropertyChanged:
		return fmt.Sprintf("%s %s[%d] %s = %v", v.Kind(), self.Path, self.Sequence, self.Member, v.Value)
	case *MethodCall:
		return fmt.Sprintf("%s %s[%d] %s(%v) %s", v.Kind(), self.Path, self.Sequence, self.Member, v.Args, v.CallId)
	case *MethodResult:
		if v.Error != "" {
			return fmt.Sprintf("%s %s[%d] %s err = %s (%s) %s", v.Kind(), self.Path, self.Sequence, self.Member, v.Error, v.Code, v.CallId)
		}
		return fmt.Sprintf("%s %s[%d] %s = %v %s", v.Kind(), self.Path, self.Sequence, self.Member, v.Value, v.CallId)
	case *CollectionDelta:
		return fmt.Sprintf("%s %s[%d] %s %s@%d %s", v.Kind(), self.Path, self.Sequence, self.Member, v.Op, v.Index, v.Item)
	case *EventRaised:
		return fmt.Sprintf("%s %s[%d] %s(%v)", v.Kind(), self.Path, self.Sequence, self.Member, v.Args)
	case *CollectionSnapshot:
		return fmt.Sprintf("%s %s[%d] %s len=%d", v.Kind(), self.Path, self.Sequence, self.Member, len(v.Items))
	default:
		return fmt.Sprintf("? %s[%d] %s", self.Path, self.Sequence, self.Member)
	}
}
