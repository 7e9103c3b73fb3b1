package remote

import (
	"fmt"
	"strings"
)

// Path is the identity of one logical entity across processes:
// `{sourceCoreInstanceId}.{EntityTypeName}.{entityId}`
// Both roles must compute it identically. Changing the format breaks wire compatibility.
type Path string

func NewPath(sourceCoreInstanceId string, entityTypeName string, entityId string) Path {
	return Path(fmt.Sprintf("%s.%s.%s", sourceCoreInstanceId, entityTypeName, entityId))
}

// the entity id is the remainder after the type name and may contain `.`
func ParsePath(path Path) (sourceCoreInstanceId string, entityTypeName string, entityId string, err error) {
	parts := strings.SplitN(string(path), ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		err = fmt.Errorf("Malformed identity path: %s", path)
		return
	}
	sourceCoreInstanceId = parts[0]
	entityTypeName = parts[1]
	entityId = parts[2]
	return
}

func (self Path) String() string {
	return string(self)
}

// Descriptor is the wire form of an entity reference.
// Collection items, entity-valued properties, and entity arguments travel as descriptors
// and are materialized on the receiving side.
type Descriptor struct {
	Kind                 string
	SourceCoreInstanceId string
	Id                   string
	// optional display name used to seed shells before they synchronize
	Name string
}

func (self Descriptor) Path() Path {
	return NewPath(self.SourceCoreInstanceId, self.Kind, self.Id)
}

func (self Descriptor) IsZero() bool {
	return self == Descriptor{}
}

func (self Descriptor) String() string {
	if self.Name == "" {
		return string(self.Path())
	}
	return fmt.Sprintf("%s(%s)", self.Path(), self.Name)
}
