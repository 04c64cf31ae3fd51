// Package routing computes payment routes over a channeldb.ChannelGraph:
// it turns a graph search into an ordered list of RouteEdge values the
// sender can actually pay, rejecting anything an onion-routed payment
// couldn't tolerate.
package routing

import (
	"github.com/lnroute/core/channeldb"
	"github.com/lnroute/core/lnwire"
)

const (
	// maxEdgesInPaymentPath is the onion's hop-count ceiling.
	maxEdgesInPaymentPath = 20

	// feeFloorMsat is the fee below which the proportional sanity
	// checks below don't apply at all -- a few cents of routing fee is
	// never worth rejecting a path over.
	feeFloorMsat = 50_000

	// maxFeeMsat is an absolute fee ceiling regardless of amount.
	maxFeeMsat = 5_000_000

	// maxFeeRatioThresholdMsat is the amount above which the 10% fee
	// ratio check engages; below it a larger relative fee is tolerated.
	maxFeeRatioThresholdMsat = 1_000_000

	// maxCltvExpiryDeltaPerHop is a two-week block-count equivalent.
	maxCltvExpiryDeltaPerHop = 14 * 144

	// maxTotalCltvExpiryDelta is a two-month block-count equivalent.
	maxTotalCltvExpiryDelta = 60 * 144
)

// RouteEdge describes one hop of a computed route: "traverse SCID to
// arrive at TargetNode". FeeBaseMsat/FeeProportionalMillionths/
// CltvExpiryDelta are the policy the payer is charged for using this
// edge.
type RouteEdge struct {
	TargetNode lnwire.NodeID
	SCID       lnwire.ShortChannelID

	FeeBaseMsat               uint32
	FeeProportionalMillionths uint32
	CltvExpiryDelta           uint16
}

// FeeForAmount computes the millisatoshi fee this edge charges to forward
// amountMsat.
func (e *RouteEdge) FeeForAmount(amountMsat uint64) uint64 {
	prop := (amountMsat * uint64(e.FeeProportionalMillionths)) / 1_000_000
	return uint64(e.FeeBaseMsat) + prop
}

// routeEdgeFromPolicy adapts a stored channeldb.Policy, applying in the
// direction it already describes, into the value type the path finder
// and sanity checks operate over.
func routeEdgeFromPolicy(target lnwire.NodeID, scid lnwire.ShortChannelID, p *channeldb.Policy) *RouteEdge {
	return &RouteEdge{
		TargetNode:                target,
		SCID:                      scid,
		FeeBaseMsat:               p.FeeBaseMsat,
		FeeProportionalMillionths: p.FeeProportionalMillionths,
		CltvExpiryDelta:           p.CltvExpiryDelta,
	}
}

// IsSaneToUse rejects an edge that would be economically or temporally
// unreasonable to route amountMsat across, independent of any other edge
// in the route.
func (e *RouteEdge) IsSaneToUse(amountMsat uint64) bool {
	if e.CltvExpiryDelta > maxCltvExpiryDeltaPerHop {
		return false
	}

	totalFee := e.FeeForAmount(amountMsat)
	if totalFee > feeFloorMsat && totalFee > amountMsat {
		return false
	}
	if totalFee > maxFeeMsat {
		return false
	}
	if amountMsat > maxFeeRatioThresholdMsat && totalFee > amountMsat/10 {
		return false
	}

	return true
}

// IsRouteSaneToUse walks the route from the payee end toward the sender,
// requiring every visited edge to pass IsSaneToUse at the amount it
// carries, then applies the same economic thresholds to the aggregate:
// fees compound as they accumulate toward the sender. The route's first
// edge -- the sender's own outgoing hop, route[0] -- is excluded from the
// walk, since the sender pays no fee to itself.
func IsRouteSaneToUse(route []*RouteEdge, invoiceAmountMsat uint64, minFinalCltvExpiry uint16) bool {
	if len(route) > maxEdgesInPaymentPath {
		return false
	}
	if len(route) == 0 {
		return true
	}

	amount := invoiceAmountMsat
	cltvDelta := uint32(minFinalCltvExpiry)

	for i := len(route) - 1; i >= 1; i-- {
		edge := route[i]
		if !edge.IsSaneToUse(amount) {
			return false
		}
		amount += edge.FeeForAmount(amount)
		cltvDelta += uint32(edge.CltvExpiryDelta)
	}

	if cltvDelta > maxTotalCltvExpiryDelta {
		return false
	}

	totalFee := amount - invoiceAmountMsat
	if totalFee > feeFloorMsat && totalFee > invoiceAmountMsat {
		return false
	}
	if totalFee > maxFeeMsat {
		return false
	}
	if invoiceAmountMsat > maxFeeRatioThresholdMsat && totalFee > invoiceAmountMsat/10 {
		return false
	}

	return true
}
