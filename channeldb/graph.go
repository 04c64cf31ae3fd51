package channeldb

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"math/rand"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lnroute/core/discovery"
	"github.com/lnroute/core/lnwire"
	"go.etcd.io/bbolt"
)

var (
	// nodeBucket stores one serialized Node per node id.
	nodeBucket = []byte("graph-node")

	// edgeBucket stores one serialized Channel per SCID.
	edgeBucket = []byte("graph-edge")

	// edgeIndexBucket nests a child bucket per node id, whose keys are
	// the SCIDs of every channel incident to that node. It lets
	// GetChannelsForNode avoid a full scan of edgeBucket.
	edgeIndexBucket = []byte("graph-edge-index")

	// channelPointBucket stores per-(scid, start_node) policies.
	channelPointBucket = []byte("graph-policy")

	// graphMetaBucket holds graph-wide scalars: the source node id and
	// the configured chain hash.
	graphMetaBucket = []byte("graph-meta")

	// aliasIndexBucket is reserved for a future alias -> node_id index;
	// nothing in this package's current operation set needs it, but
	// Wipe and createChannelDB keep it alongside the other graph
	// buckets so a later addition doesn't require a migration.
	aliasIndexBucket = []byte("graph-alias")

	// addressBucket stores recent-peer addresses, keyed so a cursor
	// scan returns them ordered by last_connected_at.
	addressBucket = []byte("graph-address")

	sourceNodeKey = []byte("source-node")
	chainHashKey  = []byte("chain-hash")
)

const (
	// maxRecentPeers bounds the recent-peers address set; the oldest
	// entry is evicted once a new one would exceed it.
	maxRecentPeers = 20

	// maxRandomSample bounds sample_random_nodes.
	maxRandomSample = 200
)

// Node is a participant in the channel graph. It exists as soon as any
// channel references its id; HaveAnnouncement distinguishes a fully
// populated record from a shell created only to satisfy a channel
// endpoint reference.
type Node struct {
	NodeID           lnwire.NodeID
	HaveAnnouncement bool
	Features         lnwire.FeatureVector
	Timestamp        uint32
	Alias            string
	Addresses        []lnwire.Address
}

// Channel is a verified, graph-resident payment channel. NodeID1 is
// always byte-lexicographically smaller than NodeID2.
type Channel struct {
	SCID        lnwire.ShortChannelID
	ChainHash   chainhash.Hash
	NodeID1     lnwire.NodeID
	NodeID2     lnwire.NodeID
	CapacitySat int64
	Raw         []byte
}

// PeerAddress is one entry in the recent-peers set: an address we've
// connected to, annotated with when.
type PeerAddress struct {
	NodeID          lnwire.NodeID
	Host            string
	Port            uint16
	LastConnectedAt uint32
}

// privateKey identifies a private-channel policy in the in-memory cache.
type privateKey struct {
	scid      lnwire.ShortChannelID
	startNode lnwire.NodeID
}

// ChannelGraph is the authenticated, concurrently queried multigraph of
// nodes and channels described by this package. Verified state lives in
// the wrapped bbolt database, which serializes writers and gives every
// reader a consistent point-in-time snapshot for the duration of its
// transaction -- exactly the guarantee a path-finding search needs.
// Private-channel policies never touch disk; they live only in privateMu
// / private below.
type ChannelGraph struct {
	db    *DB
	clock clock.Clock

	privateMu sync.RWMutex
	private   map[privateKey]*Policy

	// StatusChanged, if set, is invoked with the "ln_status" event
	// whenever a Channel moves into or out of the verified graph:
	// open=true on promotion, open=false on removal. The event bus
	// itself lives outside this package; this is just the hook it
	// subscribes to.
	StatusChanged func(scid lnwire.ShortChannelID, open bool)
}

// newChannelGraph is used by DB.ChannelGraph.
func newChannelGraph(db *DB, c clock.Clock) *ChannelGraph {
	return &ChannelGraph{
		db:      db,
		clock:   c,
		private: make(map[privateKey]*Policy),
	}
}

// SetChainHash records the genesis hash of the network this graph
// accepts announcements for. Announcements naming any other chain are
// dropped.
func (g *ChannelGraph) SetChainHash(hash chainhash.Hash) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(graphMetaBucket)
		if err != nil {
			return err
		}
		return meta.Put(chainHashKey, hash[:])
	})
}

func (g *ChannelGraph) chainHash(tx *bbolt.Tx) (chainhash.Hash, bool) {
	var hash chainhash.Hash
	meta := tx.Bucket(graphMetaBucket)
	if meta == nil {
		return hash, false
	}
	raw := meta.Get(chainHashKey)
	if raw == nil {
		return hash, false
	}
	copy(hash[:], raw)
	return hash, true
}

// SetSourceNode records the wallet's own node id, creating a shell Node
// for it if none exists yet.
func (g *ChannelGraph) SetSourceNode(nodeID lnwire.NodeID) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		if err := ensureShellNode(tx, nodeID); err != nil {
			return err
		}

		meta, err := tx.CreateBucketIfNotExists(graphMetaBucket)
		if err != nil {
			return err
		}
		return meta.Put(sourceNodeKey, nodeID[:])
	})
}

// SourceNode returns the wallet's own node record.
func (g *ChannelGraph) SourceNode() (*Node, error) {
	var node *Node
	err := g.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(graphMetaBucket)
		if meta == nil {
			return ErrSourceNodeNotSet
		}
		raw := meta.Get(sourceNodeKey)
		if raw == nil {
			return ErrSourceNodeNotSet
		}

		var nodeID lnwire.NodeID
		copy(nodeID[:], raw)

		n, err := fetchNodeTx(tx, nodeID)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	return node, err
}

// OnChannelAnnouncement validates and stages a channel_announcement.
// Signatures are always checked. If trusted is true the channel is
// inserted directly as verified; otherwise promote is invoked so the
// caller can route it through on-chain verification (see chanverifier)
// before it becomes visible to the path finder.
func (g *ChannelGraph) OnChannelAnnouncement(
	ann *lnwire.ChannelAnnouncement, raw []byte, trusted bool,
	promote func(*Channel, []byte) error,
) error {

	if err := ann.Features.Validate(); err != nil {
		return err
	}
	if err := discovery.ValidateChannelAnnouncement(ann); err != nil {
		return err
	}

	node1, node2 := ann.NodeID1, ann.NodeID2
	if !node1.Less(node2) {
		return errors.New("channeldb: node1 must sort before node2")
	}

	exists, err := g.channelExists(ann.ShortChannelID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateChannel
	}

	channel := &Channel{
		SCID:      ann.ShortChannelID,
		ChainHash: ann.ChainHash,
		NodeID1:   node1,
		NodeID2:   node2,
		Raw:       raw,
	}

	err = g.db.Update(func(tx *bbolt.Tx) error {
		if want, ok := g.chainHash(tx); ok && want != ann.ChainHash {
			return ErrChainHashMismatch
		}
		if err := ensureShellNode(tx, node1); err != nil {
			return err
		}
		return ensureShellNode(tx, node2)
	})
	if err != nil {
		return err
	}

	if trusted {
		return g.insertVerifiedChannel(channel)
	}

	return promote(channel, raw)
}

// PromoteChannel inserts a channel that's just cleared on-chain
// verification, recording its confirmed capacity.
func (g *ChannelGraph) PromoteChannel(channel *Channel, capacitySat int64) error {
	channel.CapacitySat = capacitySat
	return g.insertVerifiedChannel(channel)
}

func (g *ChannelGraph) insertVerifiedChannel(channel *Channel) error {
	newlyVerified := false
	err := g.db.Update(func(tx *bbolt.Tx) error {
		edges, err := tx.CreateBucketIfNotExists(edgeBucket)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(channel); err != nil {
			return err
		}

		scidKey := scidToBytes(channel.SCID)
		newlyVerified = edges.Get(scidKey) == nil
		if err := edges.Put(scidKey, buf.Bytes()); err != nil {
			return err
		}

		index, err := tx.CreateBucketIfNotExists(edgeIndexBucket)
		if err != nil {
			return err
		}
		for _, n := range []lnwire.NodeID{channel.NodeID1, channel.NodeID2} {
			nodeChans, err := index.CreateBucketIfNotExists(n[:])
			if err != nil {
				return err
			}
			if err := nodeChans.Put(scidKey, []byte{1}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if newlyVerified && g.StatusChanged != nil {
		g.StatusChanged(channel.SCID, true)
	}
	return nil
}

func (g *ChannelGraph) channelExists(scid lnwire.ShortChannelID) (bool, error) {
	var exists bool
	err := g.db.View(func(tx *bbolt.Tx) error {
		edges := tx.Bucket(edgeBucket)
		if edges == nil {
			return nil
		}
		exists = edges.Get(scidToBytes(scid)) != nil
		return nil
	})
	return exists, err
}

// OnChannelUpdate validates a channel_update and, if it's newer than
// whatever policy is on file for (scid, direction), replaces it.
// Signature verification is skipped when trusted is true.
func (g *ChannelGraph) OnChannelUpdate(upd *lnwire.ChannelUpdate, trusted bool) error {
	channel, err := g.GetChannelInfo(upd.ShortChannelID)
	if err != nil {
		if err == ErrChannelNotFound {
			return ErrNotFoundChanAnnouncementForUpdate
		}
		return err
	}

	startNode := channel.NodeID1
	if upd.Direction() == 1 {
		startNode = channel.NodeID2
	}

	if !trusted {
		pub, err := startNode.PubKey()
		if err != nil {
			return err
		}
		if err := discovery.ValidateChannelUpdate(pub, upd); err != nil {
			return err
		}
	}

	policy := policyFromChannelUpdate(upd, startNode)
	return g.putPolicy(policy)
}

// putPolicy stores policy, superseding any existing record for the same
// (scid, start_node) only if policy.Timestamp is strictly greater.
func (g *ChannelGraph) putPolicy(policy *Policy) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(channelPointBucket)
		if err != nil {
			return err
		}

		key := policyKey(policy.SCID, policy.StartNode)
		if existing := bucket.Get(key); existing != nil {
			old := &Policy{}
			if err := gob.NewDecoder(bytes.NewReader(existing)).Decode(old); err != nil {
				return err
			}
			if old.Timestamp >= policy.Timestamp {
				return nil
			}
		}

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(policy); err != nil {
			return err
		}
		return bucket.Put(key, buf.Bytes())
	})
}

// OnNodeAnnouncement validates a node_announcement and replaces the
// stored node record if it's newer than what's on file.
func (g *ChannelGraph) OnNodeAnnouncement(ann *lnwire.NodeAnnouncement) error {
	if err := ann.Features.Validate(); err != nil {
		return err
	}
	if err := discovery.ValidateNodeAnnouncement(ann); err != nil {
		return err
	}

	return g.db.Update(func(tx *bbolt.Tx) error {
		existing, err := fetchNodeTx(tx, ann.NodeID)
		if err == nil && existing.HaveAnnouncement && existing.Timestamp >= ann.Timestamp {
			return nil
		}

		node := &Node{
			NodeID:           ann.NodeID,
			HaveAnnouncement: true,
			Features:         ann.Features,
			Timestamp:        ann.Timestamp,
			Alias:            ann.Alias,
			Addresses:        ann.Addresses,
		}
		return putNodeTx(tx, node)
	})
}

// AddChannelUpdateForPrivateChannel verifies upd's signature and stores
// it in the in-memory private-updates cache, never touching disk.
func (g *ChannelGraph) AddChannelUpdateForPrivateChannel(
	upd *lnwire.ChannelUpdate, startNode lnwire.NodeID) error {

	pub, err := startNode.PubKey()
	if err != nil {
		return err
	}
	if err := discovery.ValidateChannelUpdate(pub, upd); err != nil {
		return err
	}

	policy := policyFromChannelUpdate(upd, startNode)

	g.privateMu.Lock()
	defer g.privateMu.Unlock()

	key := privateKey{scid: upd.ShortChannelID, startNode: startNode}
	if existing, ok := g.private[key]; ok && existing.Timestamp >= policy.Timestamp {
		return nil
	}
	g.private[key] = policy
	return nil
}

// RemoveChannel deletes a channel and cascades its policies.
func (g *ChannelGraph) RemoveChannel(scid lnwire.ShortChannelID) error {
	removed := false
	err := g.db.Update(func(tx *bbolt.Tx) error {
		edges := tx.Bucket(edgeBucket)
		if edges == nil {
			return nil
		}

		scidKey := scidToBytes(scid)
		raw := edges.Get(scidKey)
		if raw == nil {
			return nil
		}

		var channel Channel
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&channel); err != nil {
			return err
		}

		if err := edges.Delete(scidKey); err != nil {
			return err
		}

		if index := tx.Bucket(edgeIndexBucket); index != nil {
			for _, n := range []lnwire.NodeID{channel.NodeID1, channel.NodeID2} {
				if nodeChans := index.Bucket(n[:]); nodeChans != nil {
					if err := nodeChans.Delete(scidKey); err != nil {
						return err
					}
				}
			}
		}

		if policies := tx.Bucket(channelPointBucket); policies != nil {
			for _, n := range []lnwire.NodeID{channel.NodeID1, channel.NodeID2} {
				if err := policies.Delete(policyKey(scid, n)); err != nil {
					return err
				}
			}
		}

		removed = true
		return nil
	})
	if err != nil {
		return err
	}

	if removed && g.StatusChanged != nil {
		g.StatusChanged(scid, false)
	}
	return nil
}

// NumNodes returns the count of node records in the graph, shell and
// fully-announced alike.
func (g *ChannelGraph) NumNodes() (int, error) {
	var n int
	err := g.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(nodeBucket)
		if bucket == nil {
			return nil
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// NumChannels returns the count of verified channels in the graph.
func (g *ChannelGraph) NumChannels() (int, error) {
	var n int
	err := g.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(edgeBucket)
		if bucket == nil {
			return nil
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// GetChannelInfo looks up a verified channel by SCID.
func (g *ChannelGraph) GetChannelInfo(scid lnwire.ShortChannelID) (*Channel, error) {
	var channel *Channel
	err := g.db.View(func(tx *bbolt.Tx) error {
		edges := tx.Bucket(edgeBucket)
		if edges == nil {
			return ErrChannelNotFound
		}
		raw := edges.Get(scidToBytes(scid))
		if raw == nil {
			return ErrChannelNotFound
		}

		var c Channel
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&c); err != nil {
			return err
		}
		channel = &c
		return nil
	})
	return channel, err
}

// GetRoutingPolicy returns the policy for (start_node, scid), preferring
// the verified graph and falling back to the private-updates cache.
func (g *ChannelGraph) GetRoutingPolicy(
	startNode lnwire.NodeID, scid lnwire.ShortChannelID) (*Policy, error) {

	var policy *Policy
	err := g.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(channelPointBucket)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(policyKey(scid, startNode))
		if raw == nil {
			return nil
		}
		var p Policy
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
			return err
		}
		policy = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if policy != nil {
		return policy, nil
	}

	g.privateMu.RLock()
	defer g.privateMu.RUnlock()
	if p, ok := g.private[privateKey{scid: scid, startNode: startNode}]; ok {
		return p, nil
	}
	return nil, nil
}

// GetChannelsForNode returns every SCID incident to nodeID.
func (g *ChannelGraph) GetChannelsForNode(nodeID lnwire.NodeID) ([]lnwire.ShortChannelID, error) {
	var scids []lnwire.ShortChannelID
	err := g.db.View(func(tx *bbolt.Tx) error {
		index := tx.Bucket(edgeIndexBucket)
		if index == nil {
			return nil
		}
		nodeChans := index.Bucket(nodeID[:])
		if nodeChans == nil {
			return nil
		}
		return nodeChans.ForEach(func(k, _ []byte) error {
			scids = append(scids, bytesToSCID(k))
			return nil
		})
	})
	return scids, err
}

// AddRecentPeer upserts an address with last_connected_at set to now,
// creating a shell Node for the peer if one doesn't already exist, and
// evicting the oldest recent-peer entry if the set would exceed its cap.
func (g *ChannelGraph) AddRecentPeer(nodeID lnwire.NodeID, host string, port uint16) error {
	now := uint32(g.clock.Now().Unix())

	return g.db.Update(func(tx *bbolt.Tx) error {
		if err := ensureShellNode(tx, nodeID); err != nil {
			return err
		}

		bucket, err := tx.CreateBucketIfNotExists(addressBucket)
		if err != nil {
			return err
		}

		if err := deleteExistingAddress(bucket, nodeID, host, port); err != nil {
			return err
		}

		addr := PeerAddress{
			NodeID:          nodeID,
			Host:            host,
			Port:            port,
			LastConnectedAt: now,
		}
		if err := putAddress(bucket, &addr); err != nil {
			return err
		}

		return evictOldestIfOverCap(bucket, maxRecentPeers)
	})
}

// GetRecentPeers returns up to limit addresses ordered by
// last_connected_at descending.
func (g *ChannelGraph) GetRecentPeers(limit int) ([]*PeerAddress, error) {
	var out []*PeerAddress
	err := g.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(addressBucket)
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			addr, err := decodeAddress(v)
			if err != nil {
				return err
			}
			out = append(out, addr)
			if len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// GetLastGoodAddress returns the most recently connected address for a
// single node, if any.
func (g *ChannelGraph) GetLastGoodAddress(nodeID lnwire.NodeID) (*PeerAddress, error) {
	var found *PeerAddress
	err := g.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(addressBucket)
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			addr, err := decodeAddress(v)
			if err != nil {
				return err
			}
			if addr.NodeID == nodeID {
				found = addr
				return nil
			}
		}
		return nil
	})
	return found, err
}

// SampleRandomNodes returns up to k node records not present in exclude,
// in uniformly random order.
func (g *ChannelGraph) SampleRandomNodes(exclude map[lnwire.NodeID]bool, k int) ([]*Node, error) {
	if k > maxRandomSample {
		k = maxRandomSample
	}

	var candidates []*Node
	err := g.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(nodeBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			var node Node
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&node); err != nil {
				return err
			}
			if exclude[node.NodeID] {
				return nil
			}
			candidates = append(candidates, &node)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// --- internal helpers ---

func ensureShellNode(tx *bbolt.Tx, nodeID lnwire.NodeID) error {
	if _, err := fetchNodeTx(tx, nodeID); err == nil {
		return nil
	}
	return putNodeTx(tx, &Node{NodeID: nodeID})
}

func fetchNodeTx(tx *bbolt.Tx, nodeID lnwire.NodeID) (*Node, error) {
	bucket := tx.Bucket(nodeBucket)
	if bucket == nil {
		return nil, ErrNodeNotFound
	}
	raw := bucket.Get(nodeID[:])
	if raw == nil {
		return nil, ErrNodeNotFound
	}
	var node Node
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&node); err != nil {
		return nil, err
	}
	return &node, nil
}

func putNodeTx(tx *bbolt.Tx, node *Node) error {
	bucket, err := tx.CreateBucketIfNotExists(nodeBucket)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(node); err != nil {
		return err
	}
	return bucket.Put(node.NodeID[:], buf.Bytes())
}

func scidToBytes(scid lnwire.ShortChannelID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(scid))
	return b[:]
}

func bytesToSCID(b []byte) lnwire.ShortChannelID {
	return lnwire.ShortChannelID(binary.BigEndian.Uint64(b))
}

func policyKey(scid lnwire.ShortChannelID, startNode lnwire.NodeID) []byte {
	key := make([]byte, 8+33)
	copy(key[:8], scidToBytes(scid))
	copy(key[8:], startNode[:])
	return key
}

func addressKey(ts uint32, nodeID lnwire.NodeID, host string, port uint16) []byte {
	key := make([]byte, 4+33+len(host)+2)
	binary.BigEndian.PutUint32(key[:4], ts)
	copy(key[4:37], nodeID[:])
	copy(key[37:37+len(host)], host)
	binary.BigEndian.PutUint16(key[37+len(host):], port)
	return key
}

func putAddress(bucket *bbolt.Bucket, addr *PeerAddress) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(addr); err != nil {
		return err
	}
	return bucket.Put(
		addressKey(addr.LastConnectedAt, addr.NodeID, addr.Host, addr.Port),
		buf.Bytes(),
	)
}

func decodeAddress(v []byte) (*PeerAddress, error) {
	var addr PeerAddress
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

// deleteExistingAddress removes any prior entry for the same
// (node_id, host, port) regardless of its timestamp, since the key is
// timestamp-prefixed and we're about to reinsert it with a fresh one.
func deleteExistingAddress(bucket *bbolt.Bucket, nodeID lnwire.NodeID, host string, port uint16) error {
	c := bucket.Cursor()
	var stale [][]byte
	for k, v := c.First(); k != nil; k, v = c.Next() {
		addr, err := decodeAddress(v)
		if err != nil {
			return err
		}
		if addr.NodeID == nodeID && addr.Host == host && addr.Port == port {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	for _, k := range stale {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// evictOldestIfOverCap removes the smallest-keyed (oldest) entries until
// the bucket holds at most capLimit entries.
func evictOldestIfOverCap(bucket *bbolt.Bucket, capLimit int) error {
	// Count with a cursor: Bucket.Stats reads committed pages only and
	// would miss the entry just written in this transaction.
	n := 0
	c := bucket.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	if n <= capLimit {
		return nil
	}

	for excess := n - capLimit; excess > 0; excess-- {
		k, _ := bucket.Cursor().First()
		if k == nil {
			break
		}
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
