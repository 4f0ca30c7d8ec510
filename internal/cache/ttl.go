package cache

import "time"

// TTL tiers. The cache is tuned for data-lake style reuse: volatile
// chain state stays fresh, historical data is kept for a long time.
const (
	ttlVolatileBlockhash = 20 * time.Second
	ttlVolatileSlot      = 30 * time.Second
	ttlEpoch             = 5 * time.Minute
	ttlAccount           = time.Hour
	ttlDaily             = 24 * time.Hour
	ttlWeekly            = 7 * 24 * time.Hour
	ttlMonthly           = 30 * 24 * time.Hour
)

// ttlTable maps each known method to its cache lifetime.
var ttlTable = map[string]time.Duration{
	// volatile - must stay close to chain head
	"getSlot":            ttlVolatileSlot,
	"getLatestBlockhash": ttlVolatileBlockhash,
	"isBlockhashValid":   ttlVolatileBlockhash,

	// epoch / fee level
	"getEpochInfo":     ttlEpoch,
	"getFees":          ttlEpoch,
	"getFeeForMessage": ttlEpoch,

	// account / balance / token state
	"getAccountInfo":          ttlAccount,
	"getMultipleAccounts":     ttlAccount,
	"getBalance":              ttlAccount,
	"getTokenAccountBalance":  ttlAccount,
	"getTokenAccountsByOwner": ttlAccount,
	"getVoteAccounts":         ttlAccount,
	"getBlockHeight":          ttlAccount,

	// historical - confirmed transactions and blocks are immutable
	"getTransaction": ttlMonthly,
	"getBlock":       ttlMonthly,

	// slowly varying supply / program data
	"getSignaturesForAddress": ttlDaily,
	"getProgramAccounts":      ttlDaily,
	"getSupply":               ttlDaily,
	"getTokenSupply":          ttlDaily,
	"getInflationRate":        ttlDaily,

	// near-static node metadata
	"getMinimumBalanceForRentExemption": ttlWeekly,
	"getVersion":                        ttlWeekly,
	"getIdentity":                       ttlWeekly,
	"getInflationGovernor":              ttlWeekly,
}

// Policy computes cache lifetimes per method. When Disabled is set,
// entries are written without an expiry and never considered stale.
type Policy struct {
	Default  time.Duration
	Disabled bool
}

// NewPolicy creates a TTL policy with the given fallback lifetime
func NewPolicy(defaultTTL time.Duration, disabled bool) Policy {
	return Policy{Default: defaultTTL, Disabled: disabled}
}

// TTL returns the cache lifetime for a method. Unknown methods get the
// configured default.
func (p Policy) TTL(method string) time.Duration {
	if ttl, ok := ttlTable[method]; ok {
		return ttl
	}
	return p.Default
}
