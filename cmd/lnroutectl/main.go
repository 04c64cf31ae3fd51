// Command lnroutectl hosts a channel graph, keeps it authenticated against
// gossip and on-chain funding proofs, and answers path-finding queries
// against it.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lnroute/core/chanverifier"
	"github.com/lnroute/core/channeldb"
	"github.com/lnroute/core/lnwire"
	"github.com/lnroute/core/routing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[lnroutectl] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, args, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(
		filepath.Join(cfg.LogDir, defaultLogFilename),
		defaultMaxLogFileSize, defaultMaxLogFiles,
	); err != nil {
		return err
	}
	setLogLevels(cfg.DebugLevel)

	db, err := channeldb.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("unable to open channel db: %w", err)
	}
	defer db.Close()

	graph := db.ChannelGraph()
	graph.StatusChanged = func(scid lnwire.ShortChannelID, open bool) {
		rtclLog.Debugf("ln_status: scid=%v open=%v", scid, open)
	}

	if cfg.Network != "" {
		raw, err := hex.DecodeString(cfg.Network)
		if err != nil {
			return fmt.Errorf("invalid --network hash: %w", err)
		}
		var hash chainhash.Hash
		copy(hash[:], raw)
		if err := graph.SetChainHash(hash); err != nil {
			return err
		}
	}

	verifyInterval, err := time.ParseDuration(cfg.VerifyInterval)
	if err != nil {
		return fmt.Errorf("invalid --verifyinterval: %w", err)
	}

	verifier := chanverifier.New(&unavailableChainOracle{}, verifyInterval)
	verifier.Promote = func(v *chanverifier.VerifiedChannel) {
		pending, ok := verifier.LookupPending(v.SCID)
		if !ok {
			return
		}
		err := graph.PromoteChannel(&channeldb.Channel{
			SCID:    v.SCID,
			NodeID1: pending.NodeID1,
			NodeID2: pending.NodeID2,
		}, int64(v.CapacitySat))
		if err != nil {
			rtclLog.Errorf("unable to promote channel %v: %v", v.SCID, err)
		}
	}
	verifier.Discard = func(scid lnwire.ShortChannelID, reason error) {
		rtclLog.Warnf("discarding channel %v: %v", scid, reason)
	}
	verifier.Start()
	defer verifier.Stop()

	if cfg.TrustAllAnnouncements {
		rtclLog.Warnf("trust-all enabled: channel announcements will bypass on-chain verification")
	}

	if len(args) == 0 {
		rtclLog.Infof("lnroutectl running with no subcommand; graph ready at %v", cfg.DataDir)
		return nil
	}

	switch args[0] {
	case "findroute":
		return runFindRoute(graph, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// unavailableChainOracle always reports a channel's funding output as not
// yet visible. It's the safe default when no chain backend has been wired
// in: announcements queue for verification and simply never promote,
// rather than being accepted on faith.
type unavailableChainOracle struct{}

func (unavailableChainOracle) FundingOutput(lnwire.ShortChannelID) (*chanverifier.FundingOutput, error) {
	return nil, chanverifier.ErrNotFound
}

func runFindRoute(graph *channeldb.ChannelGraph, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: findroute <source-pubkey-hex> <target-pubkey-hex> <amount-msat>")
	}

	source, err := parseNodeID(args[0])
	if err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	target, err := parseNodeID(args[1])
	if err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}
	amountMsat, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	route, err := routing.FindRoute(&routing.Request{
		Graph:                graph,
		Source:               source,
		Target:               target,
		AmountMsat:           amountMsat,
		FinalCltvExpiryDelta: 18,
	})
	if err != nil {
		return err
	}

	for i, hop := range route {
		fmt.Printf("hop %d: scid=%v next=%v fee_base_msat=%d fee_ppm=%d cltv_delta=%d\n",
			i, hop.SCID, hop.TargetNode, hop.FeeBaseMsat,
			hop.FeeProportionalMillionths, hop.CltvExpiryDelta)
	}
	return nil
}

func parseNodeID(hexStr string) (lnwire.NodeID, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return lnwire.NodeID{}, err
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return lnwire.NodeID{}, err
	}
	return lnwire.NewNodeID(pub)
}
