package eip1193

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"moff.io/web3session/pkg/jsonrpc"
)

// newWalletHost serves a scripted wallet endpoint: eth_chainId answers 0x1,
// emit_chainChanged pushes a chainChanged notification before acking, and
// everything else fails with a method-not-found error.
func newWalletHost(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			id := gjson.GetBytes(data, "id").Int()
			var reply string
			switch gjson.GetBytes(data, "method").String() {
			case "eth_chainId":
				reply = fmt.Sprintf(`{"id":%d,"jsonrpc":"2.0","result":"0x1"}`, id)
			case "emit_chainChanged":
				notify := `{"jsonrpc":"2.0","method":"chainChanged","params":"0x89"}`
				if err := conn.WriteMessage(websocket.TextMessage, []byte(notify)); err != nil {
					return
				}
				reply = fmt.Sprintf(`{"id":%d,"jsonrpc":"2.0","result":null}`, id)
			default:
				reply = fmt.Sprintf(`{"id":%d,"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found"}}`, id)
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialTestBridge(t *testing.T) (*WSBridge, func()) {
	t.Helper()
	srv, url := newWalletHost(t)
	bridge, err := DialBridge(context.Background(), url)
	require.NoError(t, err)
	return bridge, func() {
		bridge.Close()
		srv.Close()
	}
}

func TestWSBridgeCall(t *testing.T) {
	bridge, done := dialTestBridge(t)
	defer done()

	raw, err := bridge.Call(context.Background(), "eth_chainId")
	require.NoError(t, err)

	var chainID string
	require.NoError(t, json.Unmarshal(raw, &chainID))
	assert.Equal(t, "0x1", chainID)
}

func TestWSBridgeCallSurfacesRPCError(t *testing.T) {
	bridge, done := dialTestBridge(t)
	defer done()

	_, err := bridge.Call(context.Background(), "eth_unknown")
	require.Error(t, err)
	var rpcErr *jsonrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestWSBridgeNotificationFanOut(t *testing.T) {
	bridge, done := dialTestBridge(t)
	defer done()
	ctx := context.Background()

	payloads := make(chan string, 2)
	id, err := bridge.On(EventChainChanged, func(raw json.RawMessage) {
		payloads <- string(raw)
	})
	require.NoError(t, err)

	_, err = bridge.Call(ctx, "emit_chainChanged")
	require.NoError(t, err)

	select {
	case payload := <-payloads:
		assert.Equal(t, `"0x89"`, payload)
	case <-time.After(time.Second * 5):
		t.Fatal("notification never reached the listener")
	}

	// after Off the same notification goes nowhere
	bridge.Off(id)
	_, err = bridge.Call(ctx, "emit_chainChanged")
	require.NoError(t, err)
	select {
	case payload := <-payloads:
		t.Fatalf("removed listener still received %v", payload)
	case <-time.After(time.Millisecond * 200):
	}
}

func TestWSBridgeClose(t *testing.T) {
	bridge, done := dialTestBridge(t)
	defer done()

	assert.True(t, bridge.Probe())
	require.NoError(t, bridge.Close())
	assert.False(t, bridge.Probe())

	_, err := bridge.Call(context.Background(), "eth_chainId")
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = bridge.On(EventChainChanged, func(json.RawMessage) {})
	assert.ErrorIs(t, err, ErrNoProvider)

	// closing twice is a no-op
	assert.NoError(t, bridge.Close())
}

func TestWSBridgeCallHonorsContext(t *testing.T) {
	// a server that never answers
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	bridge, err := DialBridge(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer bridge.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()
	_, err = bridge.Call(ctx, "eth_chainId")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
