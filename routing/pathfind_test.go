package routing

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lnroute/core/channeldb"
	"github.com/lnroute/core/lnwire"
	"github.com/stretchr/testify/require"
)

// testChainHash is an arbitrary, fixed genesis hash used across every test
// graph so channel_announcement validation has something consistent to
// check against.
var testChainHash = chainhash.Hash{1, 2, 3, 4}

// testNode is a named keypair: tests refer to nodes by name, but the graph
// underneath only ever sees the id.
type testNode struct {
	name string
	priv *btcec.PrivateKey
	id   lnwire.NodeID
}

func newTestNode(t *testing.T, name string) *testNode {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	id, err := lnwire.NewNodeID(priv.PubKey())
	require.NoError(t, err)
	return &testNode{name: name, priv: priv, id: id}
}

// testGraph wraps a real channeldb.ChannelGraph backed by a temp-directory
// bbolt file, plus the keys needed to sign new gossip messages into it.
type testGraph struct {
	t     *testing.T
	graph *channeldb.ChannelGraph
	nodes map[string]*testNode
	scid  uint64
}

func newTestGraphFixture(t *testing.T, names ...string) *testGraph {
	t.Helper()

	db, err := channeldb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	g := db.ChannelGraph()
	require.NoError(t, g.SetChainHash(testChainHash))

	tg := &testGraph{t: t, graph: g, nodes: map[string]*testNode{}}
	for _, name := range names {
		n := newTestNode(t, name)
		tg.nodes[name] = n
		require.NoError(t, g.OnNodeAnnouncement(tg.signNodeAnnouncement(n, 1)))
	}
	return tg
}

func (tg *testGraph) node(name string) *testNode {
	tg.t.Helper()
	n, ok := tg.nodes[name]
	require.True(tg.t, ok, "no such test node: %s", name)
	return n
}

func (tg *testGraph) nextSCID() lnwire.ShortChannelID {
	tg.scid++
	return lnwire.NewShortChannelID(uint32(tg.scid), 0, 0)
}

func sign(t *testing.T, priv *btcec.PrivateKey, digest []byte) *ecdsa.Signature {
	t.Helper()
	return ecdsa.Sign(priv, digest)
}

func (tg *testGraph) signNodeAnnouncement(n *testNode, timestamp uint32) *lnwire.NodeAnnouncement {
	ann := &lnwire.NodeAnnouncement{
		Features:  0,
		Timestamp: timestamp,
		NodeID:    n.id,
		Alias:     n.name,
	}
	data, err := ann.DataToSign()
	require.NoError(tg.t, err)
	ann.Signature = sign(tg.t, n.priv, chainhash.DoubleHashB(data))
	return ann
}

// addChannel announces a channel between a and b, funded with capacitySat,
// and accepts it straight into the verified graph (trusted=true), bypassing
// on-chain verification the way a locally originated channel would.
func (tg *testGraph) addChannel(aName, bName string, capacitySat int64) lnwire.ShortChannelID {
	tg.t.Helper()

	a, b := tg.node(aName), tg.node(bName)
	scid := tg.nextSCID()

	node1, node2 := a, b
	if !node1.id.Less(node2.id) {
		node1, node2 = node2, node1
	}

	bitcoin1, err := btcec.NewPrivateKey()
	require.NoError(tg.t, err)
	bitcoin2, err := btcec.NewPrivateKey()
	require.NoError(tg.t, err)
	bitcoinID1, err := lnwire.NewNodeID(bitcoin1.PubKey())
	require.NoError(tg.t, err)
	bitcoinID2, err := lnwire.NewNodeID(bitcoin2.PubKey())
	require.NoError(tg.t, err)

	ann := &lnwire.ChannelAnnouncement{
		ChainHash:      testChainHash,
		ShortChannelID: scid,
		NodeID1:        node1.id,
		NodeID2:        node2.id,
		BitcoinKey1:    bitcoinID1,
		BitcoinKey2:    bitcoinID2,
	}
	data, err := ann.DataToSign()
	require.NoError(tg.t, err)
	digest := chainhash.DoubleHashB(data)
	ann.NodeSig1 = sign(tg.t, node1.priv, digest)
	ann.NodeSig2 = sign(tg.t, node2.priv, digest)
	ann.BitcoinSig1 = sign(tg.t, bitcoin1, digest)
	ann.BitcoinSig2 = sign(tg.t, bitcoin2, digest)

	err = tg.graph.OnChannelAnnouncement(ann, nil, true, nil)
	require.NoError(tg.t, err)
	require.NoError(tg.t, tg.graph.PromoteChannel(&channeldb.Channel{
		SCID:        scid,
		ChainHash:   testChainHash,
		NodeID1:     node1.id,
		NodeID2:     node2.id,
		CapacitySat: capacitySat,
	}, capacitySat))

	return scid
}

type policyParams struct {
	timestamp       uint32
	cltvDelta       uint16
	htlcMinMsat     uint64
	htlcMaxMsat     *uint64
	feeBaseMsat     uint32
	feeProportional uint32
	disabled        bool
}

// setPolicy signs and installs fromName's routing policy for scid: the fee
// and timing terms fromName charges to forward across this channel.
func (tg *testGraph) setPolicy(scid lnwire.ShortChannelID, fromName, toName string, p policyParams) {
	tg.t.Helper()

	from := tg.node(fromName)
	_ = tg.node(toName)

	channel, err := tg.graph.GetChannelInfo(scid)
	require.NoError(tg.t, err)

	var flags uint8
	if channel.NodeID2 == from.id {
		flags |= 1
	} else {
		require.Equal(tg.t, channel.NodeID1, from.id, "from is not an endpoint of scid")
	}
	if p.disabled {
		flags |= 2
	}

	upd := &lnwire.ChannelUpdate{
		ChainHash:                 testChainHash,
		ShortChannelID:            scid,
		Timestamp:                 p.timestamp,
		ChannelFlags:              flags,
		CltvExpiryDelta:           p.cltvDelta,
		HtlcMinimumMsat:           p.htlcMinMsat,
		HtlcMaximumMsat:           p.htlcMaxMsat,
		FeeBaseMsat:               p.feeBaseMsat,
		FeeProportionalMillionths: p.feeProportional,
	}
	data, err := upd.DataToSign()
	require.NoError(tg.t, err)
	upd.Signature = sign(tg.t, from.priv, chainhash.DoubleHashB(data))

	require.NoError(tg.t, tg.graph.OnChannelUpdate(upd, false))
}

func msatPtr(v uint64) *uint64 { return &v }

func defaultPolicy() policyParams {
	return policyParams{
		timestamp:       1,
		cltvDelta:       40,
		htlcMinMsat:     1,
		feeBaseMsat:     1000,
		feeProportional: 1,
	}
}

func findRoute(t *testing.T, tg *testGraph, from, to string, amountMsat uint64) ([]*RouteEdge, error) {
	t.Helper()
	return FindRoute(&Request{
		Graph:                tg.graph,
		Source:               tg.node(from).id,
		Target:               tg.node(to).id,
		AmountMsat:           amountMsat,
		FinalCltvExpiryDelta: 18,
	})
}

func TestFindRouteLinearPath(t *testing.T) {
	tg := newTestGraphFixture(t, "A", "B", "C", "D")

	scidAB := tg.addChannel("A", "B", 1_000_000)
	scidBC := tg.addChannel("B", "C", 1_000_000)
	scidCD := tg.addChannel("C", "D", 1_000_000)

	for scid, pair := range map[lnwire.ShortChannelID][2]string{
		scidAB: {"A", "B"},
		scidBC: {"B", "C"},
		scidCD: {"C", "D"},
	} {
		p := defaultPolicy()
		tg.setPolicy(scid, pair[0], pair[1], p)
		tg.setPolicy(scid, pair[1], pair[0], p)
	}

	route, err := findRoute(t, tg, "A", "D", 100_000)
	require.NoError(t, err)
	require.Len(t, route, 3)
	require.Equal(t, tg.node("B").id, route[0].TargetNode)
	require.Equal(t, tg.node("C").id, route[1].TargetNode)
	require.Equal(t, tg.node("D").id, route[2].TargetNode)

	// Fees compound backward: the last hop (C->D) is charged on the bare
	// invoice amount, the hop before it on invoice+that fee, and so on.
	amount := uint64(100_000)
	for i := len(route) - 1; i >= 0; i-- {
		fee := route[i].FeeForAmount(amount)
		require.Equal(t, uint64(1000)+amount/1_000_000, fee)
		amount += fee
	}
}

func TestFindRouteDisabledEdgeIsSkipped(t *testing.T) {
	tg := newTestGraphFixture(t, "A", "B", "C")

	scid := tg.addChannel("B", "C", 1_000_000)
	p := defaultPolicy()
	p.disabled = true
	tg.setPolicy(scid, "B", "C", p)
	tg.setPolicy(scid, "C", "B", defaultPolicy())

	_, err := findRoute(t, tg, "B", "C", 10_000)
	require.ErrorIs(t, err, ErrNoPathFound)
}

func TestFindRouteRespectsHtlcMaximum(t *testing.T) {
	tg := newTestGraphFixture(t, "A", "B")

	scid := tg.addChannel("A", "B", 1_000_000)
	p := defaultPolicy()
	p.htlcMaxMsat = msatPtr(50_000)
	tg.setPolicy(scid, "A", "B", p)
	tg.setPolicy(scid, "B", "A", defaultPolicy())

	_, err := findRoute(t, tg, "A", "B", 100_000)
	require.ErrorIs(t, err, ErrNoPathFound)

	route, err := findRoute(t, tg, "A", "B", 10_000)
	require.NoError(t, err)
	require.Len(t, route, 1)
}

func TestFindRoutePrefersCheaperParallelChannel(t *testing.T) {
	tg := newTestGraphFixture(t, "A", "B")

	cheapSCID := tg.addChannel("A", "B", 1_000_000)
	expensiveSCID := tg.addChannel("A", "B", 1_000_000)

	cheap := defaultPolicy()
	cheap.feeBaseMsat = 1
	tg.setPolicy(cheapSCID, "A", "B", cheap)
	tg.setPolicy(cheapSCID, "B", "A", defaultPolicy())

	expensive := defaultPolicy()
	expensive.feeBaseMsat = 50_000
	tg.setPolicy(expensiveSCID, "A", "B", expensive)
	tg.setPolicy(expensiveSCID, "B", "A", defaultPolicy())

	route, err := findRoute(t, tg, "A", "B", 10_000)
	require.NoError(t, err)
	require.Len(t, route, 1)
	require.Equal(t, cheapSCID, route[0].SCID)
}

func TestFindRouteStaleUpdateIsIgnored(t *testing.T) {
	tg := newTestGraphFixture(t, "A", "B")

	scid := tg.addChannel("A", "B", 1_000_000)

	fresh := defaultPolicy()
	fresh.timestamp = 100
	fresh.feeBaseMsat = 1
	tg.setPolicy(scid, "A", "B", fresh)

	stale := defaultPolicy()
	stale.timestamp = 50
	stale.feeBaseMsat = 99_999
	tg.setPolicy(scid, "A", "B", stale)

	tg.setPolicy(scid, "B", "A", defaultPolicy())

	policy, err := tg.graph.GetRoutingPolicy(tg.node("A").id, scid)
	require.NoError(t, err)
	require.EqualValues(t, 1, policy.FeeBaseMsat)
	require.EqualValues(t, 100, policy.Timestamp)
}

func TestOnNodeAnnouncementRejectsUnknownEvenFeatureBit(t *testing.T) {
	tg := newTestGraphFixture(t, "A")
	a := tg.node("A")

	ann := &lnwire.NodeAnnouncement{
		Features:  1 << 30,
		Timestamp: 2,
		NodeID:    a.id,
		Alias:     "A",
	}
	data, err := ann.DataToSign()
	require.NoError(t, err)
	ann.Signature = sign(t, a.priv, chainhash.DoubleHashB(data))

	err = tg.graph.OnNodeAnnouncement(ann)
	require.Error(t, err)

	var unknownBit *lnwire.ErrUnknownEvenFeatureBits
	require.ErrorAs(t, err, &unknownBit)
	require.EqualValues(t, 30, unknownBit.Bit)
}

func TestIsRouteSaneToUseRejectsExcessiveHopCount(t *testing.T) {
	const hops = 21

	names := make([]string, hops+1)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	tg := newTestGraphFixture(t, names...)

	var scids []lnwire.ShortChannelID
	for i := 0; i < hops; i++ {
		scids = append(scids, tg.addChannel(names[i], names[i+1], 1_000_000))
	}
	for i, scid := range scids {
		tg.setPolicy(scid, names[i], names[i+1], defaultPolicy())
		tg.setPolicy(scid, names[i+1], names[i], defaultPolicy())
	}

	route, err := findRoute(t, tg, names[0], names[hops], 10_000)
	require.NoError(t, err)
	require.Len(t, route, hops)
	require.False(t, IsRouteSaneToUse(route, 10_000, 18))
}

func TestFindRouteNoPathWhenGraphDisconnected(t *testing.T) {
	tg := newTestGraphFixture(t, "A", "B", "C")
	tg.addChannel("B", "C", 1_000_000)

	_, err := findRoute(t, tg, "A", "C", 10_000)
	require.ErrorIs(t, err, ErrNoPathFound)
}

func TestFindRouteSourceEqualsTarget(t *testing.T) {
	tg := newTestGraphFixture(t, "A")
	route, err := findRoute(t, tg, "A", "A", 1000)
	require.NoError(t, err)
	require.Nil(t, route)
}

func TestFindRouteRespectsBlacklist(t *testing.T) {
	tg := newTestGraphFixture(t, "A", "B", "C")

	scidAB := tg.addChannel("A", "B", 1_000_000)
	scidBC := tg.addChannel("B", "C", 1_000_000)
	for _, pair := range [][2]string{{"A", "B"}, {"B", "A"}, {"B", "C"}, {"C", "B"}} {
		scid := scidAB
		if pair == [2]string{"B", "C"} || pair == [2]string{"C", "B"} {
			scid = scidBC
		}
		tg.setPolicy(scid, pair[0], pair[1], defaultPolicy())
	}

	_, err := FindRoute(&Request{
		Graph:                tg.graph,
		Source:               tg.node("A").id,
		Target:               tg.node("C").id,
		AmountMsat:           10_000,
		FinalCltvExpiryDelta: 18,
		Blacklist:            map[lnwire.ShortChannelID]bool{scidBC: true},
	})
	require.ErrorIs(t, err, ErrNoPathFound)
}

type fakeLocalChannel struct {
	capacityMsat uint64
}

func (f *fakeLocalChannel) CanPay(amountMsat uint64) bool {
	return amountMsat <= f.capacityMsat
}

func TestFindRouteIgnoresCostOnOwnOutgoingChannel(t *testing.T) {
	tg := newTestGraphFixture(t, "A", "B")

	scid := tg.addChannel("A", "B", 1_000_000)
	expensive := defaultPolicy()
	expensive.feeBaseMsat = 50_000
	expensive.cltvDelta = 2000
	tg.setPolicy(scid, "A", "B", expensive)
	tg.setPolicy(scid, "B", "A", defaultPolicy())

	route, err := FindRoute(&Request{
		Graph:                tg.graph,
		Source:               tg.node("A").id,
		Target:               tg.node("B").id,
		AmountMsat:           10_000,
		FinalCltvExpiryDelta: 18,
		LocalChannels: map[lnwire.ShortChannelID]LocalChannel{
			scid: &fakeLocalChannel{capacityMsat: 1_000_000},
		},
	})
	require.NoError(t, err)
	require.Len(t, route, 1)

	local := &fakeLocalChannel{capacityMsat: 1_000}
	_, err = FindRoute(&Request{
		Graph:                tg.graph,
		Source:               tg.node("A").id,
		Target:               tg.node("B").id,
		AmountMsat:           10_000,
		FinalCltvExpiryDelta: 18,
		LocalChannels: map[lnwire.ShortChannelID]LocalChannel{
			scid: local,
		},
	})
	require.ErrorIs(t, err, ErrNoPathFound)
}
