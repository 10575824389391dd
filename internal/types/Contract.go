package types

import (
	"time"

	"cosmossdk.io/math"
)

// RankOption is one entry of the cash-out position picker.
type RankOption struct {
	Label string `json:"label"` // "Random" or "Position N"
	Value Rank   `json:"value"`
}

// ContractSubmission is the record sent to the remote contract-creation endpoint.
type ContractSubmission struct {
	ContractDate time.Time
	Amount       math.LegacyDec // Total committed over the life of the contract
	CreditPoolID PoolID
	Period       int64
	Frequency    int64
	Rank         Rank
}
