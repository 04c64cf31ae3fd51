package lnwire

import "fmt"

// ShortChannelID encodes the compact 8-byte channel locator used throughout
// the Lightning gossip protocol: the funding transaction's block height,
// its index within that block, and the output index of the funding
// output, packed big-endian as blockHeight(3) || txIndex(3) || txPosition(2).
type ShortChannelID uint64

// NewShortChannelID builds a ShortChannelID from its three components.
func NewShortChannelID(blockHeight, txIndex uint32, txPosition uint16) ShortChannelID {
	return ShortChannelID(
		(uint64(blockHeight&0xffffff) << 40) |
			(uint64(txIndex&0xffffff) << 16) |
			uint64(txPosition),
	)
}

// BlockHeight returns the block height component of the SCID.
func (s ShortChannelID) BlockHeight() uint32 {
	return uint32(s >> 40)
}

// TxIndex returns the transaction index within the block.
func (s ShortChannelID) TxIndex() uint32 {
	return uint32(s>>16) & 0xffffff
}

// TxPosition returns the funding output index within the transaction.
func (s ShortChannelID) TxPosition() uint16 {
	return uint16(s)
}

// String returns the conventional blockxtxxoutput representation.
func (s ShortChannelID) String() string {
	return fmt.Sprintf("%dx%dx%d", s.BlockHeight(), s.TxIndex(), s.TxPosition())
}
