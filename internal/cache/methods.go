package cache

import (
	"encoding/json"

	"solcache/internal/index"
)

// MethodSpec describes how a supported RPC method is dispatched: how
// many positional params it requires and, for the indexable method
// families, which secondary-index namespace its first param keys into.
// Adding a method is a table change, not a control-flow change.
type MethodSpec struct {
	MinParams int
	Namespace index.Namespace // empty when the method is not indexable
}

// methodTable lists every supported upstream method.
var methodTable = map[string]MethodSpec{
	"getAccountInfo":                    {MinParams: 1, Namespace: index.Account},
	"getBalance":                        {MinParams: 1, Namespace: index.Account},
	"getBlock":                          {MinParams: 1},
	"getBlockHeight":                    {},
	"getSlot":                           {},
	"getTransaction":                    {MinParams: 1, Namespace: index.Tx},
	"getSignaturesForAddress":           {MinParams: 1},
	"getProgramAccounts":                {MinParams: 1},
	"getTokenAccountBalance":            {MinParams: 1},
	"getTokenAccountsByOwner":           {MinParams: 2, Namespace: index.Account},
	"getEpochInfo":                      {},
	"getLatestBlockhash":                {},
	"getFeeForMessage":                  {MinParams: 1},
	"getFees":                           {},
	"getMinimumBalanceForRentExemption": {MinParams: 1},
	"getMultipleAccounts":               {MinParams: 1},
	"getInflationGovernor":              {},
	"getInflationRate":                  {},
	"getSupply":                         {},
	"getTokenSupply":                    {MinParams: 1, Namespace: index.Mint},
	"getVoteAccounts":                   {},
	"isBlockhashValid":                  {MinParams: 1},
	"getIdentity":                       {},
	"getVersion":                        {},
}

// LookupMethod returns the spec for a supported method
func LookupMethod(method string) (MethodSpec, bool) {
	spec, ok := methodTable[method]
	return spec, ok
}

// SemanticKey derives the secondary-index key for a call, when the
// method belongs to an indexable family and its first param is a plain
// string identifier.
func SemanticKey(method string, params []json.RawMessage) (index.Namespace, string, bool) {
	spec, ok := methodTable[method]
	if !ok || spec.Namespace == "" || len(params) == 0 {
		return "", "", false
	}

	var key string
	if err := json.Unmarshal(params[0], &key); err != nil || key == "" {
		return "", "", false
	}
	return spec.Namespace, key, true
}
