package routing

import (
	"container/heap"
	"errors"
	"math"
	"time"

	"github.com/lnroute/core/channeldb"
	"github.com/lnroute/core/lnwire"
)

// ErrNoPathFound is returned when the search exhausts the graph without
// reaching the payer.
var ErrNoPathFound = errors.New("routing: no path found")

// LocalChannel is the caller's view of one of our own outgoing channels:
// enough to know whether it can front a given payment.
type LocalChannel interface {
	CanPay(amountMsat uint64) bool
}

// Request bundles everything a single path-finding search needs. Graph is
// read for the duration of the search only; LocalChannels and Blacklist
// are owned by the caller and never mutated.
type Request struct {
	Graph *channeldb.ChannelGraph

	Source lnwire.NodeID
	Target lnwire.NodeID

	AmountMsat           uint64
	FinalCltvExpiryDelta uint16

	LocalChannels map[lnwire.ShortChannelID]LocalChannel
	Blacklist     map[lnwire.ShortChannelID]bool

	// Deadline, if non-nil, is checked between relaxation rounds; once
	// it fires the search returns ErrNoPathFound without leaking
	// partial state.
	Deadline <-chan time.Time
}

// pqEntry is one entry in the search frontier: a candidate node together
// with the heuristic distance and forwarded amount that produced it.
type pqEntry struct {
	distance uint64
	amount   uint64
	node     lnwire.NodeID
}

// pqHeap implements container/heap with the tie-break order the spec
// demands: distance, then forwarded amount, then node id
// byte-lexicographically. Ties broken deterministically keep the search
// reproducible across runs and platforms.
type pqHeap []pqEntry

func (h pqHeap) Len() int { return len(h) }
func (h pqHeap) Less(i, j int) bool {
	if h[i].distance != h[j].distance {
		return h[i].distance < h[j].distance
	}
	if h[i].amount != h[j].amount {
		return h[i].amount < h[j].amount
	}
	return h[i].node.Less(h[j].node)
}
func (h pqHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *pqHeap) Push(x interface{}) { *h = append(*h, x.(pqEntry)) }
func (h *pqHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type predecessor struct {
	nextNode lnwire.NodeID
	scid     lnwire.ShortChannelID
}

// FindRoute runs a reverse Dijkstra search from req.Target back to
// req.Source, accounting for compound fees (an edge's fee applies to the
// amount it forwards, which already includes every downstream fee), and
// returns the forward-ordered list of edges the sender should use.
func FindRoute(req *Request) ([]*RouteEdge, error) {
	if req.Source == req.Target {
		return nil, nil
	}

	distance := map[lnwire.NodeID]uint64{req.Target: 0}
	pred := map[lnwire.NodeID]predecessor{}

	pq := &pqHeap{{distance: 0, amount: req.AmountMsat, node: req.Target}}
	heap.Init(pq)

	for pq.Len() > 0 {
		select {
		case <-req.Deadline:
			return nil, ErrNoPathFound
		default:
		}

		entry := heap.Pop(pq).(pqEntry)
		v := entry.node

		if entry.distance != distanceOf(distance, v) {
			// Stale duplicate left behind by an earlier relaxation;
			// the queue has no decrease-key so we filter on pop.
			continue
		}

		if v == req.Source {
			return reconstructRoute(req, pred)
		}

		scids, err := req.Graph.GetChannelsForNode(v)
		if err != nil {
			return nil, err
		}

		for _, scid := range scids {
			if req.Blacklist[scid] {
				continue
			}

			u, cost, fwdAmount, ok := relax(req, v, scid, entry.amount)
			if !ok {
				continue
			}

			tentative := entry.distance + cost
			if tentative >= distanceOf(distance, u) {
				continue
			}

			distance[u] = tentative
			pred[u] = predecessor{nextNode: v, scid: scid}
			heap.Push(pq, pqEntry{distance: tentative, amount: fwdAmount, node: u})
		}
	}

	return nil, ErrNoPathFound
}

func distanceOf(distance map[lnwire.NodeID]uint64, node lnwire.NodeID) uint64 {
	if d, ok := distance[node]; ok {
		return d
	}
	return math.MaxUint64
}

// relax evaluates the edge scid from v's perspective (v is the endpoint
// closer to the target), returning the other endpoint u, the heuristic
// cost of traversing u->v, and the amount u would need to receive to
// forward fwdAmountAtV onward to v.
func relax(req *Request, v lnwire.NodeID, scid lnwire.ShortChannelID, fwdAmountAtV uint64) (
	u lnwire.NodeID, cost uint64, newAmount uint64, ok bool) {

	channel, err := req.Graph.GetChannelInfo(scid)
	if err != nil {
		return u, 0, 0, false
	}

	switch {
	case channel.NodeID1 == v:
		u = channel.NodeID2
	case channel.NodeID2 == v:
		u = channel.NodeID1
	default:
		return u, 0, 0, false
	}

	policy, err := req.Graph.GetRoutingPolicy(u, scid)
	if err != nil || policy == nil || policy.Disabled() {
		return u, 0, 0, false
	}

	if fwdAmountAtV < policy.HtlcMinimumMsat {
		return u, 0, 0, false
	}
	if policy.HtlcMaximumMsat != nil && fwdAmountAtV > *policy.HtlcMaximumMsat {
		return u, 0, 0, false
	}
	if channel.CapacitySat > 0 && fwdAmountAtV/1000 > uint64(channel.CapacitySat) {
		return u, 0, 0, false
	}

	edge := routeEdgeFromPolicy(v, scid, policy)
	if !edge.IsSaneToUse(fwdAmountAtV) {
		return u, 0, 0, false
	}

	ignoreCosts := false
	if local, isLocal := req.LocalChannels[scid]; isLocal && u == req.Source {
		if !local.CanPay(fwdAmountAtV) {
			return u, 0, 0, false
		}
		ignoreCosts = true
	}

	var feeMsat uint64
	var cltvDelta uint16
	if !ignoreCosts {
		feeMsat = edge.FeeForAmount(fwdAmountAtV)
		cltvDelta = edge.CltvExpiryDelta
	}

	cost = uint64(cltvDelta) + feeMsat/10_000 + 1
	newAmount = fwdAmountAtV + feeMsat

	return u, cost, newAmount, true
}

// reconstructRoute walks pred from req.Source to req.Target, materializing
// the forward-direction policy for each hop.
func reconstructRoute(req *Request, pred map[lnwire.NodeID]predecessor) ([]*RouteEdge, error) {
	var route []*RouteEdge

	current := req.Source
	for current != req.Target {
		step, ok := pred[current]
		if !ok {
			return nil, ErrNoPathFound
		}

		policy, err := req.Graph.GetRoutingPolicy(current, step.scid)
		if err != nil {
			return nil, err
		}
		if policy == nil {
			return nil, ErrNoPathFound
		}

		route = append(route, routeEdgeFromPolicy(step.nextNode, step.scid, policy))
		current = step.nextNode
	}

	return route, nil
}
