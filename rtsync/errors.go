package rtsync

import "errors"

// ErrClosed is returned by a pending or future Send once the channel has
// been closed.
var ErrClosed = errors.New("rtsync: channel closed")
