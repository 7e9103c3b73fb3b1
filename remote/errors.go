package remote

import (
	"errors"
	"fmt"

	"bringyour.com/coresync/core"
)

var (
	// a domain member that is not wired into the protocol
	ErrUnsupported = core.ErrUnsupported

	// an inbound message references a path with no registered member
	ErrUnknownIdentityPath = errors.New("Unknown identity path.")

	// the injected channel did not accept a message
	ErrTransport = errors.New("Transport failure.")

	// a decoded message could not be applied to local state
	ErrApplyFailure = errors.New("Apply failure.")

	ErrDisposed = errors.New("Member disposed.")

	// the member is not bound to a bus and cannot send
	ErrDetached = errors.New("Member detached.")

	ErrUnknownMember = errors.New("Unknown member.")
)

// error codes carried in a method result
const (
	ErrorCodeNone        = ""
	ErrorCodeUnsupported = "unsupported"
	ErrorCodeUnknown     = "unknown_member"
	ErrorCodeFault       = "fault"
)

func errorCode(err error) string {
	switch {
	case err == nil:
		return ErrorCodeNone
	case errors.Is(err, ErrUnsupported):
		return ErrorCodeUnsupported
	case errors.Is(err, ErrUnknownMember):
		return ErrorCodeUnknown
	default:
		return ErrorCodeFault
	}
}

// RemoteError is a fault raised by the host while invoking a method.
type RemoteError struct {
	Path    Path
	Member  string
	Code    string
	Message string
}

func (self *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %s", self.Path, self.Member, self.Message)
}

func (self *RemoteError) Is(target error) bool {
	switch self.Code {
	case ErrorCodeUnsupported:
		return target == ErrUnsupported
	case ErrorCodeUnknown:
		return target == ErrUnknownMember
	default:
		return false
	}
}
