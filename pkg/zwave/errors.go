package zwave

import "errors"

// Errors returned synchronously by registry lookups and command
// validation. Everything that happens after a command is accepted is
// reported through notifications instead.
var (
	// ErrNotReady indicates the driver session has not finished initializing
	ErrNotReady = errors.New("driver not ready")

	// ErrUnknownHome indicates no driver session owns the HomeID
	ErrUnknownHome = errors.New("unknown home id")

	// ErrUnknownNode indicates the node is not on the network
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownValue indicates the node does not expose the ValueID
	ErrUnknownValue = errors.New("unknown value")

	// ErrInvalidValueID indicates a malformed value identity record
	ErrInvalidValueID = errors.New("invalid value id")

	// ErrTypeMismatch indicates data of the wrong type for the value
	ErrTypeMismatch = errors.New("value type mismatch")

	// ErrOutOfRange indicates numeric data outside the value bounds
	ErrOutOfRange = errors.New("value out of range")

	// ErrReadOnly indicates an attempt to set a read-only value
	ErrReadOnly = errors.New("value is read-only")

	// ErrWriteOnly indicates an attempt to read a write-only value
	ErrWriteOnly = errors.New("value is write-only")

	// ErrBusy indicates an exclusive controller command is outstanding
	ErrBusy = errors.New("controller busy")

	// ErrAlreadyInitialized indicates a second manager or start
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrNotInitialized indicates use of a destroyed or never created manager
	ErrNotInitialized = errors.New("not initialized")

	// ErrTransport indicates an I/O failure talking to the controller
	ErrTransport = errors.New("transport error")

	// ErrDriverExists indicates a driver is already attached to the endpoint
	ErrDriverExists = errors.New("driver already exists for endpoint")

	// ErrUnknownDriver indicates no driver is attached to the endpoint
	ErrUnknownDriver = errors.New("unknown driver endpoint")

	// ErrInvalidWatcher indicates a nil callback or non-comparable context
	ErrInvalidWatcher = errors.New("invalid watcher")

	// ErrWatcherExists indicates the callback/context pair is already registered
	ErrWatcherExists = errors.New("watcher already registered")

	// ErrUnknownWatcher indicates the callback/context pair is not registered
	ErrUnknownWatcher = errors.New("watcher not registered")

	// ErrUnsupported indicates the node or controller cannot perform the command
	ErrUnsupported = errors.New("operation not supported")
)
