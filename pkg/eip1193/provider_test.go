package eip1193

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBridge struct {
	probe int // remaining successful probes, negative means always
	reply func(method string, params []interface{}) (json.RawMessage, error)
	onErr map[string]error

	listeners map[string]func(json.RawMessage)
	onCount   int
	offCount  int
	lastCall  struct {
		method string
		params []interface{}
	}
}

func newStubBridge() *stubBridge {
	return &stubBridge{
		probe:     -1,
		listeners: map[string]func(json.RawMessage){},
	}
}

func (b *stubBridge) Probe() bool {
	if b.probe < 0 {
		return true
	}
	if b.probe == 0 {
		return false
	}
	b.probe--
	return true
}

func (b *stubBridge) Call(_ context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	b.lastCall.method = method
	b.lastCall.params = params
	if b.reply == nil {
		return json.RawMessage(`null`), nil
	}
	return b.reply(method, params)
}

func (b *stubBridge) On(event string, cb func(json.RawMessage)) (ListenerID, error) {
	if err := b.onErr[event]; err != nil {
		return "", err
	}
	b.onCount++
	b.listeners[event] = cb
	return ListenerID(fmt.Sprintf("%v/%d", event, b.onCount)), nil
}

func (b *stubBridge) Off(ListenerID) { b.offCount++ }

func (b *stubBridge) fire(t *testing.T, event string, raw string) {
	t.Helper()
	cb := b.listeners[event]
	require.NotNil(t, cb, "no listener for %v", event)
	cb(json.RawMessage(raw))
}

func TestRequestWithoutWalletHost(t *testing.T) {
	provider := NewProvider(nil)
	assert.False(t, provider.Available())
	err := provider.Request(context.Background(), "eth_chainId", nil, nil)
	assert.ErrorIs(t, err, ErrNoProvider)

	bridge := newStubBridge()
	bridge.probe = 0
	err = NewProvider(bridge).Request(context.Background(), "eth_chainId", nil, nil)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestRequestDecodesResult(t *testing.T) {
	bridge := newStubBridge()
	bridge.reply = func(string, []interface{}) (json.RawMessage, error) {
		return json.RawMessage(`"0x2a"`), nil
	}
	provider := NewProvider(bridge)

	var out string
	require.NoError(t, provider.Request(context.Background(), "eth_chainId", nil, &out))
	assert.Equal(t, "0x2a", out)

	var wrong int
	err := provider.Request(context.Background(), "eth_chainId", nil, &wrong)
	assert.Error(t, err)
}

func TestRequestAccountsAndChainID(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000000042")
	bridge := newStubBridge()
	bridge.reply = func(method string, _ []interface{}) (json.RawMessage, error) {
		switch method {
		case "eth_requestAccounts":
			return json.Marshal([]common.Address{addr})
		case "eth_chainId":
			return json.RawMessage(`"0x89"`), nil
		default:
			return nil, assert.AnError
		}
	}
	provider := NewProvider(bridge)
	ctx := context.Background()

	accounts, err := provider.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accounts)

	chainID, err := provider.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(137), chainID)
}

func TestSignTypedDataParams(t *testing.T) {
	from := common.HexToAddress("0x0000000000000000000000000000000000000042")
	bridge := newStubBridge()
	bridge.reply = func(string, []interface{}) (json.RawMessage, error) {
		return json.RawMessage(`"0xsig"`), nil
	}
	provider := NewProvider(bridge)

	sig, err := provider.SignTypedData(context.Background(), map[string]string{"k": "v"}, from)
	require.NoError(t, err)
	assert.Equal(t, "0xsig", sig)

	assert.Equal(t, "eth_signTypedData_v4", bridge.lastCall.method)
	require.Len(t, bridge.lastCall.params, 2)
	assert.Equal(t, from, bridge.lastCall.params[0])
	assert.JSONEq(t, `{"k":"v"}`, bridge.lastCall.params[1].(string))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	bridge := newStubBridge()
	provider := NewProvider(bridge)

	require.NoError(t, provider.Subscribe(Handlers{}))
	assert.Equal(t, 3, bridge.onCount)

	require.NoError(t, provider.Subscribe(Handlers{}))
	assert.Equal(t, 3, bridge.onCount)

	provider.Unsubscribe()
	assert.Equal(t, 3, bridge.offCount)

	// a fresh subscribe after unsubscribe registers again
	require.NoError(t, provider.Subscribe(Handlers{}))
	assert.Equal(t, 6, bridge.onCount)
}

func TestSubscribeRollsBackOnListenerFailure(t *testing.T) {
	bridge := newStubBridge()
	bridge.onErr = map[string]error{EventAccountsChanged: assert.AnError}
	provider := NewProvider(bridge)

	err := provider.Subscribe(Handlers{})
	assert.ErrorIs(t, err, assert.AnError)
	// the listeners registered before the failure were removed again
	assert.Equal(t, bridge.onCount, bridge.offCount)

	// the failed attempt must not poison future subscribes
	bridge.onErr = nil
	require.NoError(t, provider.Subscribe(Handlers{}))
}

func TestListenerDecoding(t *testing.T) {
	bridge := newStubBridge()
	provider := NewProvider(bridge)

	var (
		gotChain    []*uint64
		gotAccounts [][]common.Address
		disconnects int
	)
	require.NoError(t, provider.Subscribe(Handlers{
		OnChainChanged:    func(id *uint64) { gotChain = append(gotChain, id) },
		OnAccountsChanged: func(a []common.Address) { gotAccounts = append(gotAccounts, a) },
		OnDisconnect:      func() { disconnects++ },
	}))

	bridge.fire(t, EventChainChanged, `"0x15"`)
	bridge.fire(t, EventChainChanged, `"bogus"`)
	bridge.fire(t, EventChainChanged, `12`)

	require.Len(t, gotChain, 3)
	require.NotNil(t, gotChain[0])
	assert.Equal(t, uint64(21), *gotChain[0])
	assert.Nil(t, gotChain[1])
	assert.Nil(t, gotChain[2])

	addr := common.HexToAddress("0x0000000000000000000000000000000000000042")
	bridge.fire(t, EventAccountsChanged, fmt.Sprintf(`["%v"]`, addr.Hex()))
	bridge.fire(t, EventAccountsChanged, `[]`)
	bridge.fire(t, EventAccountsChanged, `null`)

	require.Len(t, gotAccounts, 3)
	assert.Equal(t, []common.Address{addr}, gotAccounts[0])
	require.NotNil(t, gotAccounts[1])
	assert.Empty(t, gotAccounts[1])
	assert.Nil(t, gotAccounts[2])

	bridge.fire(t, EventDisconnect, `null`)
	assert.Equal(t, 1, disconnects)
}

func TestParseChainID(t *testing.T) {
	id, err := ParseChainID("0x1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	id, err = ParseChainID("0x89")
	require.NoError(t, err)
	assert.Equal(t, uint64(137), id)

	for _, bad := range []string{"", "1", "0x", "0xzz", "0x10000000000000000"} {
		_, err := ParseChainID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
