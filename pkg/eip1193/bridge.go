// Package eip1193 adapts an EIP-1193 style wallet host into the request and
// event surface the session manager consumes. The host is reached through the
// Bridge contract; a default implementation speaking JSON-RPC over a local
// websocket endpoint lives in wsbridge.go.
package eip1193

import (
	"context"
	"encoding/json"

	"moff.io/web3session/pkg/errors"
)

// Wallet host event names, per EIP-1193.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventDisconnect      = "disconnect"
)

var (
	// ErrNoProvider means no wallet host is reachable in the current context.
	ErrNoProvider = errors.New("eip1193: no wallet host available")
)

// ListenerID identifies one registered event listener.
type ListenerID string

// Bridge is the collaborator giving access to the wallet host object. Call
// performs one JSON-RPC round trip; a JSON-RPC error envelope is surfaced as
// *jsonrpc.Error. On registers a callback for a host event and returns a
// handle for Off.
type Bridge interface {
	Probe() bool
	Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
	On(event string, cb func(payload json.RawMessage)) (ListenerID, error)
	Off(id ListenerID)
}
