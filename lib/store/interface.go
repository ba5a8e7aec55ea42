package store

import (
	"context"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the contract of the external, synchronised key–value store.
// Values are opaque byte slices; typing is done by the layer above (see cloudsync).
// Write operations return only an error (nil on success),
// while read operations return the requested data along with an error (nil on success).
type IStore interface {
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	// The returned slice is a copy and may be modified by the caller.
	Get(key string) (value []byte, loaded bool, err error)
	// Set inserts or updates a key–value pair.
	Set(key string, value []byte) (err error)
	// Delete removes a key–value pair. Deleting a missing key is not an error.
	Delete(key string) (err error)
	// Synchronize asks the store to flush local writes and pull remote changes.
	// It blocks until the store has done so or ctx is done.
	Synchronize(ctx context.Context) (err error)
	// Watch registers a handler for changes made outside this process (another
	// device, replica or writer). Changes made through this instance are never reported.
	// The returned function cancels the registration and is safe to call more than once.
	Watch(handler ChangeHandler) (cancel func())
	// Close releases all resources held by the store.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Change Notifications
// --------------------------------------------------------------------------

// ChangeReason describes why the store reports a change.
type ChangeReason uint8

const (
	ChangeReasonServerChange   ChangeReason = iota // A value was changed elsewhere.
	ChangeReasonInitialSync                        // The first download from the backing service completed.
	ChangeReasonQuotaViolation                     // The store exceeded its quota and dropped local values.
	ChangeReasonAccountChange                      // The backing account changed; all values were replaced.
)

func (r ChangeReason) String() string {
	switch r {
	case ChangeReasonServerChange:
		return "ServerChange"
	case ChangeReasonInitialSync:
		return "InitialSync"
	case ChangeReasonQuotaViolation:
		return "QuotaViolation"
	case ChangeReasonAccountChange:
		return "AccountChange"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}

// ChangeEvent is delivered to a ChangeHandler. Keys lists every key whose value changed.
type ChangeEvent struct {
	Reason ChangeReason
	Keys   []string
}

// ChangeHandler receives change events. Handlers are called from a goroutine owned by the store
// and must not block for long.
type ChangeHandler func(event ChangeEvent)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the backend.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCQuotaExceeded                       // 4: The value or the store exceeds the configured quota.
	RetCClosed                              // 5: The store was closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCQuotaExceeded:
		return "QuotaExceeded"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
