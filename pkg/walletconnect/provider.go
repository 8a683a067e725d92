package walletconnect

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/log"
)

// ErrMissingProvider means a method is not supported over the relay session
// and no fallback RPC node was configured.
var ErrMissingProvider = errors.New("walletconnect: missing rpc provider")

// Provider wraps a relay Client into the request shape of the session
// manager. Methods the wallet must approve go over the relay; everything else
// is dispatched against the fallback RPC node when one was configured.
// A Provider is owned by exactly one session manager.
type Provider struct {
	client Client
	node   *NodeClient
}

// NewProvider wraps the relay client. rpcURL may be empty; it disables the
// read-only fallback path.
func NewProvider(client Client, rpcURL string) *Provider {
	var node *NodeClient
	if rpcURL != "" {
		node = NewNodeClient(rpcURL)
	}
	return &Provider{client: client, node: node}
}

// Request dispatches one JSON-RPC call and decodes the result into out.
func (p *Provider) Request(ctx context.Context, method string, params interface{}, out interface{}) error {
	var (
		raw json.RawMessage
		err error
	)
	switch {
	case p.client.SupportsMethod(method):
		raw, err = p.client.Request(ctx, method, params, p.client.ChainID())
	case p.node != nil:
		raw, err = p.node.Call(ctx, method, params)
	default:
		return ErrMissingProvider
	}
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %v result from relay session", method)
	}
	return nil
}

// SignTypedData signs an EIP-712 payload over the relay and returns the raw
// hex signature.
func (p *Provider) SignTypedData(ctx context.Context, data interface{}, from common.Address) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "marshal typed data")
	}
	var sig string
	if err := p.Request(ctx, "eth_signTypedData_v4", []interface{}{from, string(payload)}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// Next suspends until the relay delivers the next session event. A nil event
// with a nil error is a heartbeat with nothing new.
func (p *Provider) Next(ctx context.Context) (*NativeEvent, error) {
	return p.client.Next(ctx)
}

// ChainID returns the session's active chain id.
func (p *Provider) ChainID() uint64 {
	return p.client.ChainID()
}

// SetChainID moves the session to another granted chain. Callers must check
// AccountsForChain first; chains granted at session creation never need a new
// approval round trip.
func (p *Provider) SetChainID(chainID uint64) {
	p.client.SetChainID(chainID)
}

// Accounts returns the account set granted for the active chain, nil when the
// chain was never granted.
func (p *Provider) Accounts() []common.Address {
	return p.client.AccountsForChain(p.client.ChainID())
}

// AccountsForChain returns the account set granted for a chain, nil when the
// chain was never granted.
func (p *Provider) AccountsForChain(chainID uint64) []common.Address {
	return p.client.AccountsForChain(chainID)
}

// State exports the resumable session material for persistence.
func (p *Provider) State() json.RawMessage {
	return p.client.State()
}

// Disconnect closes the relay session.
func (p *Provider) Disconnect(ctx context.Context) {
	if err := p.client.Disconnect(ctx); err != nil {
		log.Warnf("wallet connect - disconnect:%v", err)
	}
}
