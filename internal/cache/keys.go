package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// KeyPrefix is the namespace of all primary cache keys in the blob store.
const KeyPrefix = "rpc:"

// PrimaryKey derives the canonical cache key for a call. Logically
// identical calls must collide to the same key regardless of incidental
// JSON formatting, so params are re-serialized canonically.
func PrimaryKey(method string, params json.RawMessage) string {
	return KeyPrefix + method + ":" + string(CanonicalParams(params))
}

// ContentHash returns the sha256 hex digest of the canonical params.
// Registered in the secondary index as a dedup aid, not a lookup path.
func ContentHash(params json.RawMessage) string {
	hash := sha256.Sum256(CanonicalParams(params))
	return hex.EncodeToString(hash[:])
}

// CanonicalParams normalizes a params document: object keys sorted,
// whitespace stripped, number formatting unified by a decode/encode
// round trip. Unparsable input is returned as-is.
func CanonicalParams(params json.RawMessage) []byte {
	if len(params) == 0 || string(params) == "null" {
		return []byte("[]")
	}

	var data interface{}
	if err := json.Unmarshal(params, &data); err != nil {
		return params
	}

	normalized := normalizeValue(data)
	result, err := json.Marshal(normalized)
	if err != nil {
		return params
	}
	return result
}

// normalizeValue recursively normalizes a JSON value
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return normalizeMap(val)
	case []interface{}:
		return normalizeArray(val)
	default:
		return val
	}
}

// normalizeMap normalizes a map by sorting keys
func normalizeMap(m map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make(map[string]interface{})
	for _, k := range keys {
		result[k] = normalizeValue(m[k])
	}
	return result
}

// normalizeArray normalizes an array
func normalizeArray(arr []interface{}) []interface{} {
	result := make([]interface{}, len(arr))
	for i, v := range arr {
		result[i] = normalizeValue(v)
	}
	return result
}
