package lnwire

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChannelAnnouncement is the decoded form of a BOLT #7 channel_announcement
// message: a joint attestation by both channel endpoints (node keys) and
// both funding multisig keys that a channel exists between node1 and
// node2. Wire-level TLV framing is handled by the gossip transport; this
// struct carries the fields needed to validate and store the channel.
type ChannelAnnouncement struct {
	NodeSig1    *ecdsa.Signature
	NodeSig2    *ecdsa.Signature
	BitcoinSig1 *ecdsa.Signature
	BitcoinSig2 *ecdsa.Signature

	Features FeatureVector

	ChainHash      chainhash.Hash
	ShortChannelID ShortChannelID

	NodeID1     NodeID
	NodeID2     NodeID
	BitcoinKey1 NodeID
	BitcoinKey2 NodeID
}

// DataToSign returns the byte string that each of the four signatures
// attests to: every field of the announcement other than the signatures
// themselves.
func (a *ChannelAnnouncement) DataToSign() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint64(a.Features)); err != nil {
		return nil, err
	}
	if _, err := buf.Write(a.ChainHash[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint64(a.ShortChannelID)); err != nil {
		return nil, err
	}
	for _, k := range [][33]byte{a.NodeID1, a.NodeID2, a.BitcoinKey1, a.BitcoinKey2} {
		if _, err := buf.Write(k[:]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ChannelUpdate is the decoded form of a BOLT #7 channel_update message: a
// single node's routing policy for one direction of a channel.
type ChannelUpdate struct {
	Signature *ecdsa.Signature

	ChainHash      chainhash.Hash
	ShortChannelID ShortChannelID
	Timestamp      uint32

	// ChannelFlags bit 0 selects the direction this update applies to;
	// bit 1 marks the direction disabled.
	ChannelFlags uint8

	CltvExpiryDelta           uint16
	HtlcMinimumMsat           uint64
	HtlcMaximumMsat           *uint64
	FeeBaseMsat               uint32
	FeeProportionalMillionths uint32
}

// DataToSign returns the byte string the update's signature attests to.
func (u *ChannelUpdate) DataToSign() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(u.ChainHash[:]); err != nil {
		return nil, err
	}
	fields := []interface{}{
		uint64(u.ShortChannelID),
		u.Timestamp,
		u.ChannelFlags,
		u.CltvExpiryDelta,
		u.HtlcMinimumMsat,
		u.FeeBaseMsat,
		u.FeeProportionalMillionths,
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
			return nil, err
		}
	}
	if u.HtlcMaximumMsat != nil {
		if err := binary.Write(&buf, binary.BigEndian, *u.HtlcMaximumMsat); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Disabled reports whether the update's channel_flags mark this direction
// as disabled.
func (u *ChannelUpdate) Disabled() bool {
	return u.ChannelFlags&0x2 != 0
}

// Direction returns the direction bit (bit 0) of ChannelFlags: 0 means the
// update applies to the numerically smaller node id, 1 the larger.
func (u *ChannelUpdate) Direction() uint8 {
	return u.ChannelFlags & 0x1
}

// NodeAnnouncement is the decoded form of a BOLT #7 node_announcement
// message: a self-attestation of a node's features, alias, color, and
// reachable addresses.
type NodeAnnouncement struct {
	Signature *ecdsa.Signature

	Features  FeatureVector
	Timestamp uint32
	NodeID    NodeID
	RGBColor  [3]byte
	Alias     string
	Addresses []Address
}

// DataToSign returns the byte string the announcement's signature attests
// to: every field beyond the signature itself. The bytes are returned
// unhashed; per BOLT #7 the signature covers the double-SHA256 of this
// payload, which starts immediately after the 64-byte signature field
// (byte offset 66, accounting for the 2-byte message type prefix that the
// transport strips before handing us the payload).
func (a *NodeAnnouncement) DataToSign() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint64(a.Features)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, a.Timestamp); err != nil {
		return nil, err
	}
	if _, err := buf.Write(a.NodeID[:]); err != nil {
		return nil, err
	}
	if _, err := buf.Write(a.RGBColor[:]); err != nil {
		return nil, err
	}
	var aliasField [32]byte
	copy(aliasField[:], a.Alias)
	if _, err := buf.Write(aliasField[:]); err != nil {
		return nil, err
	}
	addrBytes, err := EncodeAddresses(a.Addresses)
	if err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(addrBytes))); err != nil {
		return nil, err
	}
	if _, err := buf.Write(addrBytes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
