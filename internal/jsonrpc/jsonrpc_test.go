package jsonrpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestID_KeyDistinguishesTypes(t *testing.T) {
	var s, n ID
	if err := json.Unmarshal([]byte(`"3"`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(`3`), &n); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Key() == n.Key() {
		t.Errorf("string and number ids collide: %s", s.Key())
	}
}

func TestID_RoundTrip(t *testing.T) {
	for _, raw := range []string{`"abc"`, `42`, `null`} {
		var id ID
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			t.Fatalf("Unmarshal(%s): %v", raw, err)
		}
		out, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(out) != raw {
			t.Errorf("round trip %s -> %s", raw, out)
		}
	}
}

func TestParseBatchRequest(t *testing.T) {
	reqs, isBatch, err := ParseBatchRequest([]byte(`{"jsonrpc":"2.0","method":"getSlot","id":1}`))
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if isBatch || len(reqs) != 1 {
		t.Errorf("single: isBatch=%v len=%d", isBatch, len(reqs))
	}

	reqs, isBatch, err = ParseBatchRequest([]byte(`  [{"jsonrpc":"2.0","method":"getSlot","id":1},{"jsonrpc":"2.0","method":"getVersion","id":2}]`))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !isBatch || len(reqs) != 2 {
		t.Errorf("batch: isBatch=%v len=%d", isBatch, len(reqs))
	}

	if _, _, err := ParseBatchRequest([]byte(`[]`)); err == nil {
		t.Error("empty batch accepted")
	}
	if _, _, err := ParseBatchRequest([]byte(``)); err == nil {
		t.Error("empty body accepted")
	}
}

func TestRequest_Validate(t *testing.T) {
	req := Request{JSONRPC: "2.0", Method: "getSlot"}
	if err := req.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	req = Request{JSONRPC: "1.0", Method: "getSlot"}
	if err := req.Validate(); err == nil {
		t.Error("wrong version accepted")
	}

	req = Request{JSONRPC: "2.0"}
	if err := req.Validate(); err == nil {
		t.Error("missing method accepted")
	}
}

func TestRequest_GetSubscribeTarget(t *testing.T) {
	req := Request{
		JSONRPC: "2.0",
		Method:  "subscribe",
		Params:  json.RawMessage(`{"method":"getSlot","params":[]}`),
		ID:      NewIDInt(1),
	}
	target, err := req.GetSubscribeTarget()
	if err != nil {
		t.Fatalf("GetSubscribeTarget: %v", err)
	}
	if target.Method != "getSlot" {
		t.Errorf("Method = %s", target.Method)
	}

	req.Params = json.RawMessage(`{"params":[]}`)
	if _, err := req.GetSubscribeTarget(); err == nil {
		t.Error("missing target method accepted")
	}
}

func TestRequest_GetUnsubscribeID(t *testing.T) {
	req := Request{
		JSONRPC: "2.0",
		Method:  "unsubscribe",
		Params:  json.RawMessage(`["sub-7"]`),
		ID:      NewIDInt(1),
	}
	id, err := req.GetUnsubscribeID()
	if err != nil {
		t.Fatalf("GetUnsubscribeID: %v", err)
	}
	if id != "sub-7" {
		t.Errorf("id = %s", id)
	}

	req.Params = json.RawMessage(`[]`)
	if _, err := req.GetUnsubscribeID(); err == nil {
		t.Error("empty params accepted")
	}
}

func TestResponse_EnvelopeFields(t *testing.T) {
	resp := NewResponseRaw(NewIDInt(1), json.RawMessage(`42`))
	resp.ResponseTime = 12
	resp.CacheHit = true

	data, err := resp.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"responseTime":12`) {
		t.Errorf("responseTime missing: %s", body)
	}
	if !strings.Contains(body, `"cacheHit":true`) {
		t.Errorf("cacheHit missing: %s", body)
	}
}

func TestResponse_ErrorEnvelopeCarriesMetadata(t *testing.T) {
	resp := NewErrorResponse(NewIDNull(), ErrRateLimited)
	data, err := resp.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"code":-32429`) {
		t.Errorf("rate limit code missing: %s", body)
	}
	if !strings.Contains(body, `"responseTime"`) || !strings.Contains(body, `"cacheHit"`) {
		t.Errorf("envelope metadata missing on error response: %s", body)
	}
}
