package lnwire

import "errors"

// ErrInvalidNodeID is returned when a public key can't be represented as a
// NodeID, which in practice means it didn't serialize to 33 bytes.
var ErrInvalidNodeID = errors.New("lnwire: invalid node id")
