package types

const (
	// MaxCandidateNameLength is the maximum length in bytes of a candidate name.
	MaxCandidateNameLength = 128

	// VoteCost is the number of credentials consumed by a single vote.
	VoteCost = 1

	// DefaultChainID is used to sign transactions when none is configured.
	DefaultChainID = "tokenvote-dev"

	// HashLength is the length of a transaction hash.
	HashLength = 32
)

// ElectionStatus is the lifecycle state of the election.
type ElectionStatus uint8

const (
	// StatusOpen accepts candidates and votes.
	StatusOpen ElectionStatus = iota
	// StatusEnded is terminal, results are frozen.
	StatusEnded
)

func (s ElectionStatus) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}
