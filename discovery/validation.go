// Package discovery validates the authenticity of Lightning gossip
// messages: it checks that the signatures attached to a
// channel_announcement, channel_update, or node_announcement actually
// cover the claimed payload under the claimed keys. It holds no state and
// knows nothing about the graph the messages will eventually update.
package discovery

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-errors/errors"
	"github.com/lnroute/core/lnwire"
)

// ValidateChannelAnnouncement checks that the node and bitcoin signatures
// attached to a channel_announcement each cover the announcement's signed
// digest under their respective claimed keys.
func ValidateChannelAnnouncement(a *lnwire.ChannelAnnouncement) error {
	// First, we'll compute the digest which is to be signed by each of
	// the keys included within the announcement. This digest includes
	// all four keys, so each of the four signatures attests to the
	// validity of the whole set.
	data, err := a.DataToSign()
	if err != nil {
		return err
	}
	dataHash := chainhash.DoubleHashB(data)

	if !a.BitcoinSig1.Verify(dataHash, pubKeyOf(a.BitcoinKey1)) {
		return errors.New("can't verify first bitcoin signature")
	}
	if !a.BitcoinSig2.Verify(dataHash, pubKeyOf(a.BitcoinKey2)) {
		return errors.New("can't verify second bitcoin signature")
	}
	if !a.NodeSig1.Verify(dataHash, pubKeyOf(a.NodeID1)) {
		return errors.New("can't verify data in first node signature")
	}
	if !a.NodeSig2.Verify(dataHash, pubKeyOf(a.NodeID2)) {
		return errors.New("can't verify data in second node signature")
	}

	return nil
}

// ValidateNodeAnnouncement checks that the announcement's signature covers
// its signed digest under its claimed node id.
func ValidateNodeAnnouncement(a *lnwire.NodeAnnouncement) error {
	data, err := a.DataToSign()
	if err != nil {
		return err
	}

	dataHash := chainhash.DoubleHashB(data)
	if !a.Signature.Verify(dataHash, pubKeyOf(a.NodeID)) {
		return errors.New("signature on node announcement is invalid")
	}

	return nil
}

// ValidateChannelUpdate checks that the update's signature covers its
// signed digest under pubKey, the key of whichever endpoint the caller has
// determined originated this direction's policy.
func ValidateChannelUpdate(pubKey *btcec.PublicKey, a *lnwire.ChannelUpdate) error {
	data, err := a.DataToSign()
	if err != nil {
		return errors.Errorf("unable to reconstruct message: %v", err)
	}
	dataHash := chainhash.DoubleHashB(data)

	if !a.Signature.Verify(dataHash, pubKey) {
		return errors.Errorf("invalid signature for channel update %v",
			spew.Sdump(a))
	}

	return nil
}

func pubKeyOf(n lnwire.NodeID) *btcec.PublicKey {
	pub, err := n.PubKey()
	if err != nil {
		return nil
	}
	return pub
}
