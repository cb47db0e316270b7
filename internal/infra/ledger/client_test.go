package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// fakeNode 以固定应答模拟 JSON-RPC 节点。
func fakeNode(t *testing.T, respond func(method string) (string, bool)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		payload, ok := respond(req.Method)
		if !ok {
			t.Errorf("unexpected rpc method %s", req.Method)
			payload = `null`
		}
		id, _ := json.Marshal(req.ID)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, id, payload)
	}))
}

func newTestClient(url string) *Client {
	return NewClient(Config{RPCURL: url, CallTimeout: 2 * time.Second})
}

func TestSubmitReturnsSignature(t *testing.T) {
	want := solana.Signature{}.String()
	srv := fakeNode(t, func(method string) (string, bool) {
		if method != "sendTransaction" {
			return "", false
		}
		return fmt.Sprintf("%q", want), true
	})
	defer srv.Close()

	sig, err := newTestClient(srv.URL).Submit(context.Background(), []byte{0x01})
	require.NoError(t, err)
	require.Equal(t, want, sig)
}

func TestSubmitSurfacesNodeRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Transaction simulation failed: insufficient funds"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), []byte{0x01})
	require.Error(t, err)
	require.Contains(t, err.Error(), "simulation failed")
}

func TestStatusNotFoundIsNotAnError(t *testing.T) {
	srv := fakeNode(t, func(method string) (string, bool) {
		if method != "getTransaction" {
			return "", false
		}
		return `null`, true
	})
	defer srv.Close()

	outcome, err := newTestClient(srv.URL).Status(context.Background(), solana.Signature{}.String())
	require.NoError(t, err)
	require.False(t, outcome.Finalized)
	require.Empty(t, outcome.ExecErr)
}

func TestStatusFinalizedSuccess(t *testing.T) {
	srv := fakeNode(t, func(method string) (string, bool) {
		if method != "getTransaction" {
			return "", false
		}
		return `{"slot":1234,"blockTime":1700000000,"meta":{"err":null,"fee":5000,"preBalances":[],"postBalances":[],"logMessages":[]}}`, true
	})
	defer srv.Close()

	outcome, err := newTestClient(srv.URL).Status(context.Background(), solana.Signature{}.String())
	require.NoError(t, err)
	require.True(t, outcome.Finalized)
	require.Empty(t, outcome.ExecErr)
}

func TestStatusFinalizedExecutionError(t *testing.T) {
	srv := fakeNode(t, func(method string) (string, bool) {
		if method != "getTransaction" {
			return "", false
		}
		return `{"slot":1234,"meta":{"err":{"InstructionError":[0,{"Custom":6000}]},"fee":5000,"preBalances":[],"postBalances":[]}}`, true
	})
	defer srv.Close()

	outcome, err := newTestClient(srv.URL).Status(context.Background(), solana.Signature{}.String())
	require.NoError(t, err)
	require.True(t, outcome.Finalized)
	require.NotEmpty(t, outcome.ExecErr)
}

func TestStatusTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Status(context.Background(), solana.Signature{}.String())
	require.Error(t, err)
}

func TestStatusRejectsBadSignature(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:0").Status(context.Background(), "not-base58!!")
	require.Error(t, err)
}
