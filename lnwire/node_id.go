package lnwire

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
)

// NodeID is the 33-byte compressed secp256k1 public key that identifies a
// node within the channel graph. It's used as a map key throughout the
// graph store, so it's a plain comparable array rather than a pointer.
type NodeID [33]byte

// NewNodeID copies a compressed public key into a NodeID.
func NewNodeID(pub *btcec.PublicKey) (NodeID, error) {
	var n NodeID
	compressed := pub.SerializeCompressed()
	if len(compressed) != len(n) {
		return n, ErrInvalidNodeID
	}
	copy(n[:], compressed)
	return n, nil
}

// PubKey parses the NodeID back into a secp256k1 public key.
func (n NodeID) PubKey() (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(n[:])
}

// Less reports whether n sorts strictly before other in byte-lexicographic
// order. This is the ordering that determines node1/node2 assignment for a
// channel.
func (n NodeID) Less(other NodeID) bool {
	return bytes.Compare(n[:], other[:]) < 0
}

// String returns the hex-encoded public key.
func (n NodeID) String() string {
	return hex.EncodeToString(n[:])
}
