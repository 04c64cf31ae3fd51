package channeldb

import "github.com/lnroute/core/lnwire"

// policyFlagDirection is bit 0 of ChannelFlags: it names which endpoint
// originated the policy.
const policyFlagDirection = 1 << 0

// policyFlagDisabled is bit 1 of ChannelFlags: the originating endpoint is
// refusing to forward over this direction of the channel.
const policyFlagDisabled = 1 << 1

// Policy is a single direction of a channel's fee, HTLC, and timing
// parameters, as signed by the originating endpoint in a channel_update.
// It's a pure value: nothing here reaches back into the store that holds
// it.
type Policy struct {
	SCID      lnwire.ShortChannelID
	StartNode lnwire.NodeID

	ChannelFlags    uint8
	CltvExpiryDelta uint16

	HtlcMinimumMsat uint64
	HtlcMaximumMsat *uint64

	FeeBaseMsat               uint32
	FeeProportionalMillionths uint32

	Timestamp uint32
}

// FeeForAmount computes the millisatoshi fee this policy charges to forward
// amountMsat, truncating the proportional component toward zero as integer
// division does.
func (p *Policy) FeeForAmount(amountMsat uint64) uint64 {
	prop := (amountMsat * uint64(p.FeeProportionalMillionths)) / 1_000_000
	return uint64(p.FeeBaseMsat) + prop
}

// Disabled reports whether the originating endpoint has marked this
// direction unusable.
func (p *Policy) Disabled() bool {
	return p.ChannelFlags&policyFlagDisabled != 0
}

// DirectionBit returns bit 0 of ChannelFlags: 0 if this policy applies to
// the numerically smaller of the channel's two node ids, 1 if the larger.
func (p *Policy) DirectionBit() uint8 {
	return p.ChannelFlags & policyFlagDirection
}

// policyFromChannelUpdate builds a Policy out of a validated channel_update,
// tagging it with the endpoint that signed it.
func policyFromChannelUpdate(u *lnwire.ChannelUpdate, startNode lnwire.NodeID) *Policy {
	return &Policy{
		SCID:                      u.ShortChannelID,
		StartNode:                 startNode,
		ChannelFlags:              u.ChannelFlags,
		CltvExpiryDelta:           u.CltvExpiryDelta,
		HtlcMinimumMsat:           u.HtlcMinimumMsat,
		HtlcMaximumMsat:           u.HtlcMaximumMsat,
		FeeBaseMsat:               u.FeeBaseMsat,
		FeeProportionalMillionths: u.FeeProportionalMillionths,
		Timestamp:                 u.Timestamp,
	}
}
