package channeldb

import "fmt"

var (
	// ErrGraphNotFound names the case of a graph bucket hierarchy that
	// hasn't been initialized in the database file. No operation in this
	// package returns it: lookups against a missing bucket report
	// ErrChannelNotFound, ErrNodeNotFound or an empty result instead.
	ErrGraphNotFound = fmt.Errorf("channel graph not found")

	// ErrChannelNotFound is returned when a lookup by SCID finds no
	// verified channel.
	ErrChannelNotFound = fmt.Errorf("channel not found")

	// ErrNodeNotFound is returned when a lookup by node id finds no
	// node record.
	ErrNodeNotFound = fmt.Errorf("node not found")

	// ErrDuplicateChannel is raised when a channel_announcement names an
	// SCID already present in the verified graph. Channels still awaiting
	// on-chain verification are not checked.
	ErrDuplicateChannel = fmt.Errorf("channel already known")

	// ErrChainHashMismatch is raised when a channel_announcement names a
	// chain hash other than the graph's configured network.
	ErrChainHashMismatch = fmt.Errorf("announcement chain hash does not match network")

	// ErrNotFoundChanAnnouncementForUpdate is raised when a
	// channel_update names an SCID with no matching verified channel.
	// Channels still awaiting on-chain verification are not consulted,
	// so an update for one of them also yields this error.
	ErrNotFoundChanAnnouncementForUpdate = fmt.Errorf("no channel announcement found for update")

	// ErrOutdatedPolicy names the case of an incoming policy whose
	// timestamp doesn't supersede the one already stored. OnChannelUpdate
	// drops such a policy silently and does not return this error.
	ErrOutdatedPolicy = fmt.Errorf("policy timestamp does not supersede existing record")

	// ErrSourceNodeNotSet is returned when the graph's source node (our
	// own identity) hasn't been set yet.
	ErrSourceNodeNotSet = fmt.Errorf("source node has not been set")

	// ErrMetaNotFound is returned when the database's meta bucket has no
	// stored version record, which is the case for a brand-new file
	// before its first write.
	ErrMetaNotFound = fmt.Errorf("metadata not found")
)
