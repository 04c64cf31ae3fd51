// Package chanverifier gates promotion of a gossiped channel announcement
// from pending to verified: it confirms the claimed funding output actually
// exists on-chain and matches the 2-of-2 P2WSH the two endpoints jointly
// control.
package chanverifier

import (
	"bytes"
	"crypto/sha256"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/lnroute/core/lnwire"
)

// ErrFundingMismatch is returned when the chain oracle's funding output
// doesn't match the announced endpoint keys.
var ErrFundingMismatch = errors.New("chanverifier: funding output does not match announced keys")

// FundingOutput is what the chain oracle reports for a channel's funding
// transaction output.
type FundingOutput struct {
	Outpoint     wire.OutPoint
	ScriptPubKey []byte
	ValueSat     btcutil.Amount
}

// ChainOracle resolves a short channel id to its funding output. It
// returns ErrNotFound when the output doesn't exist yet (the funding
// transaction may still be unconfirmed), and any other error is treated as
// transient.
type ChainOracle interface {
	FundingOutput(scid lnwire.ShortChannelID) (*FundingOutput, error)
}

// ErrNotFound is returned by a ChainOracle when the funding output isn't
// visible on-chain yet.
var ErrNotFound = errors.New("chanverifier: funding output not found")

// PendingChannel is a channel announcement awaiting on-chain confirmation.
type PendingChannel struct {
	SCID        lnwire.ShortChannelID
	NodeID1     lnwire.NodeID
	NodeID2     lnwire.NodeID
	BitcoinKey1 lnwire.NodeID
	BitcoinKey2 lnwire.NodeID

	Raw []byte

	attempts int
}

// VerifiedChannel is the outcome of a successful verification: the
// funding outpoint and capacity to attach to the promoted Channel record.
type VerifiedChannel struct {
	SCID        lnwire.ShortChannelID
	Outpoint    wire.OutPoint
	CapacitySat btcutil.Amount
}

// PromoteFunc is invoked with the outcome of a completed verification. It's
// called on the verifier's background goroutine; implementations must not
// block it for long.
type PromoteFunc func(*VerifiedChannel)

// DiscardFunc is invoked when a pending channel is permanently discarded
// because its funding output doesn't match the announcement.
type DiscardFunc func(scid lnwire.ShortChannelID, reason error)

// Verifier stages pending channel announcements and resolves them against
// a ChainOracle, retrying every still-pending channel on each tick of a
// fixed retry interval; the interval does not grow between attempts. It owns no
// reference to the graph store; callers wire Promote/Discard into their
// own store updates, keeping this package ignorant of storage concerns.
type Verifier struct {
	oracle ChainOracle

	retryTicker ticker.Ticker
	workQueue   *queue.ConcurrentQueue

	mu      sync.RWMutex
	pending map[lnwire.ShortChannelID]*PendingChannel

	Promote PromoteFunc
	Discard DiscardFunc

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a Verifier that polls the oracle for pending channels every
// retryInterval.
func New(oracle ChainOracle, retryInterval time.Duration) *Verifier {
	return &Verifier{
		oracle:      oracle,
		retryTicker: ticker.New(retryInterval),
		workQueue:   queue.NewConcurrentQueue(20),
		pending:     make(map[lnwire.ShortChannelID]*PendingChannel),
		quit:        make(chan struct{}),
	}
}

// Start launches the verifier's background retry loop.
func (v *Verifier) Start() {
	v.workQueue.Start()
	v.retryTicker.Resume()

	v.wg.Add(1)
	go v.retryLoop()
}

// Stop shuts the verifier down. Outstanding pending channels are dropped
// without callback.
func (v *Verifier) Stop() {
	close(v.quit)
	v.wg.Wait()
	v.retryTicker.Stop()
	v.workQueue.Stop()
}

// Submit stages a pending channel and attempts an immediate verification.
// If the oracle doesn't yet see the funding output the channel stays
// pending and is retried on the ticker.
func (v *Verifier) Submit(pc *PendingChannel) {
	v.mu.Lock()
	v.pending[pc.SCID] = pc
	v.mu.Unlock()

	v.workQueue.ChanIn() <- pc
}

// LookupPending returns the staged channel for scid, if any is still
// awaiting verification.
func (v *Verifier) LookupPending(scid lnwire.ShortChannelID) (*PendingChannel, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	pc, ok := v.pending[scid]
	return pc, ok
}

// Cancel removes scid from the pending set without a callback. Used when
// the channel is explicitly removed from the graph while still pending.
func (v *Verifier) Cancel(scid lnwire.ShortChannelID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.pending, scid)
}

func (v *Verifier) retryLoop() {
	defer v.wg.Done()

	for {
		select {
		case item := <-v.workQueue.ChanOut():
			pc := item.(*PendingChannel)
			v.attempt(pc)

		case <-v.retryTicker.Ticks():
			v.mu.RLock()
			batch := make([]*PendingChannel, 0, len(v.pending))
			for _, pc := range v.pending {
				batch = append(batch, pc)
			}
			v.mu.RUnlock()

			for _, pc := range batch {
				v.attempt(pc)
			}

		case <-v.quit:
			return
		}
	}
}

func (v *Verifier) attempt(pc *PendingChannel) {
	pc.attempts++

	out, err := v.oracle.FundingOutput(pc.SCID)
	switch {
	case err == ErrNotFound:
		return

	case err != nil:
		return

	case out == nil:
		return
	}

	wantScript, scriptErr := expectedFundingScript(pc.BitcoinKey1, pc.BitcoinKey2)
	if scriptErr != nil {
		v.discard(pc, scriptErr)
		return
	}

	if !bytes.Equal(wantScript, out.ScriptPubKey) {
		v.discard(pc, ErrFundingMismatch)
		return
	}

	v.mu.Lock()
	delete(v.pending, pc.SCID)
	v.mu.Unlock()

	if v.Promote != nil {
		v.Promote(&VerifiedChannel{
			SCID:        pc.SCID,
			Outpoint:    out.Outpoint,
			CapacitySat: out.ValueSat,
		})
	}
}

func (v *Verifier) discard(pc *PendingChannel, reason error) {
	v.mu.Lock()
	delete(v.pending, pc.SCID)
	v.mu.Unlock()

	if v.Discard != nil {
		v.Discard(pc.SCID, reason)
	}
}

// expectedFundingScript builds the 2-of-2 P2WSH scriptPubKey that a
// channel's funding output must carry, from the two bitcoin keys in
// byte-lexicographic order as BOLT #3 requires.
func expectedFundingScript(key1, key2 lnwire.NodeID) ([]byte, error) {
	a, b := key1, key2
	if !a.Less(b) {
		a, b = b, a
	}

	witnessScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_2).
		AddData(a[:]).
		AddData(b[:]).
		AddOp(txscript.OP_2).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
	if err != nil {
		return nil, err
	}

	scriptHash := sha256.Sum256(witnessScript)

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(scriptHash[:]).
		Script()
}
