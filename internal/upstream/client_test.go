package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solcache/internal/jsonrpc"
)

func TestClient_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","result":12345,"id":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	result, err := c.Call(context.Background(), "getSlot", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(result) != `12345` {
		t.Errorf("result = %s", result)
	}
}

func TestClient_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32602,"message":"Invalid param"},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.Call(context.Background(), "getBlock", []byte(`[-1]`))
	if err == nil {
		t.Fatal("expected error")
	}

	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %T, want *jsonrpc.Error", err)
	}
	if rpcErr.Code != -32602 {
		t.Errorf("Code = %d", rpcErr.Code)
	}
}

func TestClient_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.Call(context.Background(), "getSlot", nil)
	if !IsRejected(err) {
		t.Errorf("403 not detected as rejection: %v", err)
	}
}

func TestClient_BlockedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32052,"message":"API key is blocked"},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.Call(context.Background(), "getSlot", nil)
	if !IsRejected(err) {
		t.Errorf("blocked message not detected as rejection: %v", err)
	}
}

func TestClient_BreakerIgnoresRejections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	// Rejections are deterministic; ten of them must not open the breaker.
	for i := 0; i < 10; i++ {
		_, err := c.Call(context.Background(), "getSlot", nil)
		if !IsRejected(err) {
			t.Fatalf("call %d: err = %v, want rejection", i, err)
		}
	}
}

func TestClient_BreakerOpensOnFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	for i := 0; i < 8; i++ {
		c.Call(context.Background(), "getSlot", nil)
	}

	// After five consecutive failures the breaker is open and stops
	// reaching the endpoint.
	if calls >= 8 {
		t.Errorf("upstream saw %d calls, breaker never opened", calls)
	}
}

func TestIsRejected(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: refused"), false},
		{errors.New("upstream returned status 503: blocked by provider"), true},
		{errors.New("got 403 Forbidden from node"), true},
		{&RejectedError{Message: "nope"}, true},
	}
	for _, tt := range tests {
		if got := IsRejected(tt.err); got != tt.want {
			t.Errorf("IsRejected(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
