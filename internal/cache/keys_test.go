package cache

import (
	"encoding/json"
	"testing"
)

func TestPrimaryKey_Deterministic(t *testing.T) {
	a := PrimaryKey("getAccountInfo", json.RawMessage(`["abc", {"commitment": "finalized", "encoding": "base64"}]`))
	b := PrimaryKey("getAccountInfo", json.RawMessage(`[ "abc", {"encoding":"base64","commitment":"finalized"} ]`))
	if a != b {
		t.Errorf("keys differ for logically identical params:\n%s\n%s", a, b)
	}
}

func TestPrimaryKey_EmptyParams(t *testing.T) {
	a := PrimaryKey("getSlot", nil)
	b := PrimaryKey("getSlot", json.RawMessage(`null`))
	c := PrimaryKey("getSlot", json.RawMessage(`[]`))
	if a != b || b != c {
		t.Errorf("empty params forms diverge: %q %q %q", a, b, c)
	}
	if a != "rpc:getSlot:[]" {
		t.Errorf("key = %q", a)
	}
}

func TestPrimaryKey_MethodSeparatesKeyspace(t *testing.T) {
	params := json.RawMessage(`["abc"]`)
	if PrimaryKey("getBalance", params) == PrimaryKey("getAccountInfo", params) {
		t.Error("different methods must never collide")
	}
}

func TestCanonicalParams_CasePreserved(t *testing.T) {
	// Base58 addresses are case sensitive; canonicalization must not
	// touch string values.
	got := string(CanonicalParams(json.RawMessage(`["AbCdEf"]`)))
	if got != `["AbCdEf"]` {
		t.Errorf("CanonicalParams = %s", got)
	}
}

func TestCanonicalParams_NestedObjects(t *testing.T) {
	got := string(CanonicalParams(json.RawMessage(`[{"b": {"z": 1, "a": 2}, "a": 3}]`)))
	want := `[{"a":3,"b":{"a":2,"z":1}}]`
	if got != want {
		t.Errorf("CanonicalParams = %s, want %s", got, want)
	}
}

func TestContentHash_Stable(t *testing.T) {
	a := ContentHash(json.RawMessage(`[{"x":1,"y":2}]`))
	b := ContentHash(json.RawMessage(`[{"y":2,"x":1}]`))
	if a != b {
		t.Errorf("hash differs across key order: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}
