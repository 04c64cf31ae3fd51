package chanverifier

import (
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lnroute/core/lnwire"
	"github.com/stretchr/testify/require"
)

// fakeOracle is a ChainOracle whose answer for a given scid can be changed
// mid-test, so a test can simulate a funding output that appears only after
// a retry tick.
type fakeOracle struct {
	mu      sync.Mutex
	outputs map[lnwire.ShortChannelID]*FundingOutput
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{outputs: make(map[lnwire.ShortChannelID]*FundingOutput)}
}

func (f *fakeOracle) set(scid lnwire.ShortChannelID, out *FundingOutput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[scid] = out
}

func (f *fakeOracle) FundingOutput(scid lnwire.ShortChannelID) (*FundingOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out, ok := f.outputs[scid]
	if !ok {
		return nil, ErrNotFound
	}
	return out, nil
}

func newTestKeys(t *testing.T) (*btcec.PrivateKey, lnwire.NodeID) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	id, err := lnwire.NewNodeID(priv.PubKey())
	require.NoError(t, err)
	return priv, id
}

func fundingScriptPubKey(t *testing.T, key1, key2 lnwire.NodeID) []byte {
	t.Helper()

	script, err := expectedFundingScript(key1, key2)
	require.NoError(t, err)
	return script
}

func TestVerifierPromotesOnMatchingFundingOutput(t *testing.T) {
	oracle := newFakeOracle()
	v := New(oracle, time.Hour)
	v.Start()
	defer v.Stop()

	_, bitcoin1 := newTestKeys(t)
	_, bitcoin2 := newTestKeys(t)
	scid := lnwire.NewShortChannelID(100, 1, 0)

	outpoint := wire.OutPoint{Hash: [32]byte{9}, Index: 0}
	oracle.set(scid, &FundingOutput{
		Outpoint:     outpoint,
		ScriptPubKey: fundingScriptPubKey(t, bitcoin1, bitcoin2),
		ValueSat:     btcutil.Amount(500000),
	})

	var mu sync.Mutex
	var promoted *VerifiedChannel
	v.Promote = func(vc *VerifiedChannel) {
		mu.Lock()
		defer mu.Unlock()
		promoted = vc
	}

	v.Submit(&PendingChannel{
		SCID:        scid,
		BitcoinKey1: bitcoin1,
		BitcoinKey2: bitcoin2,
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return promoted != nil
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, scid, promoted.SCID)
	require.Equal(t, outpoint, promoted.Outpoint)
	require.Equal(t, btcutil.Amount(500000), promoted.CapacitySat)

	_, stillPending := v.LookupPending(scid)
	require.False(t, stillPending)
}

func TestVerifierDiscardsOnScriptMismatch(t *testing.T) {
	oracle := newFakeOracle()
	v := New(oracle, time.Hour)
	v.Start()
	defer v.Stop()

	_, bitcoin1 := newTestKeys(t)
	_, bitcoin2 := newTestKeys(t)
	_, imposter := newTestKeys(t)
	scid := lnwire.NewShortChannelID(200, 1, 0)

	oracle.set(scid, &FundingOutput{
		Outpoint: wire.OutPoint{Hash: [32]byte{7}, Index: 0},
		// Script belongs to a different pair of keys than the
		// announcement claims.
		ScriptPubKey: fundingScriptPubKey(t, bitcoin1, imposter),
		ValueSat:     btcutil.Amount(10000),
	})

	var mu sync.Mutex
	var discardReason error
	v.Discard = func(_ lnwire.ShortChannelID, reason error) {
		mu.Lock()
		defer mu.Unlock()
		discardReason = reason
	}

	v.Submit(&PendingChannel{
		SCID:        scid,
		BitcoinKey1: bitcoin1,
		BitcoinKey2: bitcoin2,
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return discardReason != nil
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.ErrorIs(t, discardReason, ErrFundingMismatch)

	_, stillPending := v.LookupPending(scid)
	require.False(t, stillPending)
}

func TestVerifierRetriesUntilFundingVisible(t *testing.T) {
	oracle := newFakeOracle()
	v := New(oracle, 10*time.Millisecond)
	v.Start()
	defer v.Stop()

	_, bitcoin1 := newTestKeys(t)
	_, bitcoin2 := newTestKeys(t)
	scid := lnwire.NewShortChannelID(300, 1, 0)

	var mu sync.Mutex
	var promoted bool
	v.Promote = func(*VerifiedChannel) {
		mu.Lock()
		defer mu.Unlock()
		promoted = true
	}

	// No funding output registered yet: ErrNotFound, stays pending.
	v.Submit(&PendingChannel{
		SCID:        scid,
		BitcoinKey1: bitcoin1,
		BitcoinKey2: bitcoin2,
	})

	_, pending := v.LookupPending(scid)
	require.True(t, pending)

	mu.Lock()
	require.False(t, promoted)
	mu.Unlock()

	// The funding transaction confirms; the next retry tick should pick
	// it up and promote.
	oracle.set(scid, &FundingOutput{
		Outpoint:     wire.OutPoint{Hash: [32]byte{3}, Index: 1},
		ScriptPubKey: fundingScriptPubKey(t, bitcoin1, bitcoin2),
		ValueSat:     btcutil.Amount(20000),
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return promoted
	}, time.Second, 5*time.Millisecond)
}

func TestVerifierCancelRemovesPending(t *testing.T) {
	oracle := newFakeOracle()
	v := New(oracle, time.Hour)
	v.Start()
	defer v.Stop()

	scid := lnwire.NewShortChannelID(400, 1, 0)
	v.Submit(&PendingChannel{SCID: scid})

	v.Cancel(scid)

	_, ok := v.LookupPending(scid)
	require.False(t, ok)
}

func TestExpectedFundingScriptOrdersKeysLexicographically(t *testing.T) {
	_, key1 := newTestKeys(t)
	_, key2 := newTestKeys(t)

	a, err := expectedFundingScript(key1, key2)
	require.NoError(t, err)
	b, err := expectedFundingScript(key2, key1)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.NotEmpty(t, a)
}
