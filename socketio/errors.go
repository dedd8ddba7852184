package socketio

import "github.com/go-errors/errors"

var (
	// ErrInvalidListener the callback is not a function or the target is not an object
	ErrInvalidListener = errors.New("invalid listener")

	// ErrUnsupportedValueKind the value can not be encoded as a message
	ErrUnsupportedValueKind = errors.New("unsupported value kind")

	// ErrUnsupportedArgumentPosition a function is not the last argument of emit
	ErrUnsupportedArgumentPosition = errors.New("unsupported argument position")

	// ErrInvalidEmitArguments the emit arguments are invalid, nothing was sent
	ErrInvalidEmitArguments = errors.New("invalid emit arguments")

	// ErrConnectionFailed the connection could not be opened (delivered as connect_error)
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionDropped the connection was lost (delivered as disconnect)
	ErrConnectionDropped = errors.New("connection dropped")

	// ErrClosed the connection handle was finalized
	ErrClosed = errors.New("connection closed")
)
