package rescheduler

import "errors"

// ErrSharedConn is returned by Pop when the consumer handle is the same
// connection the scheduler was built with. The scheduling connection may be
// engaged by the periodic checker at any moment; a blocking pop issued on it
// could stall every scheduling operation indefinitely, so the call is
// rejected before any store access.
var ErrSharedConn = errors.New("rescheduler: pop requires a connection distinct from the scheduling connection")

// ErrClosed is returned by operations invoked after Close.
var ErrClosed = errors.New("rescheduler: scheduler is closed")
