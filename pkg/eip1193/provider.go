package eip1193

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/atomic"

	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/log"
)

// Provider translates the listener-based wallet host behind a Bridge into the
// request/event shape of the session manager. A Provider is owned by exactly
// one session manager; its methods are not safe for concurrent mutation.
type Provider struct {
	bridge Bridge

	subscribed atomic.Bool
	handles    []ListenerID
}

func NewProvider(bridge Bridge) *Provider {
	return &Provider{bridge: bridge}
}

// Available probes for the wallet host without side effects.
func (p *Provider) Available() bool {
	return p.bridge != nil && p.bridge.Probe()
}

// Request performs one JSON-RPC call against the wallet host and decodes the
// result into out. Pass a nil out to discard the result.
func (p *Provider) Request(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if p.bridge == nil || !p.bridge.Probe() {
		return ErrNoProvider
	}
	raw, err := p.bridge.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %v result from wallet host", method)
	}
	return nil
}

// RequestAccounts asks the wallet for its exposed account list, prompting the
// user when the dApp was not yet granted access.
func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.Request(ctx, "eth_requestAccounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ChainID fetches the active chain id.
func (p *Provider) ChainID(ctx context.Context) (uint64, error) {
	var hexID string
	if err := p.Request(ctx, "eth_chainId", nil, &hexID); err != nil {
		return 0, err
	}
	return ParseChainID(hexID)
}

// SignTypedData signs an EIP-712 payload with the given account and returns
// the raw hex signature.
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

// Handlers receives the wallet host events translated into typed values.
// A nil accounts slice means the wallet reported no account set.
type Handlers struct {
	OnAccountsChanged func(accounts []common.Address)
	OnChainChanged    func(chainID *uint64)
	OnDisconnect      func()
}

// Subscribe registers the three host listeners. Registration is idempotent
// per Provider: a second call without Unsubscribe is a no-op, so connecting
// twice never double-registers.
func (p *Provider) Subscribe(h Handlers) error {
	if p.bridge == nil || !p.bridge.Probe() {
		return ErrNoProvider
	}
	if !p.subscribed.CAS(false, true) {
		return nil
	}

	id, err := p.bridge.On(EventDisconnect, func(json.RawMessage) {
		if h.OnDisconnect != nil {
			h.OnDisconnect()
		}
	})
	if err != nil {
		return p.abortSubscribe(err)
	}
	p.handles = append(p.handles, id)

	id, err = p.bridge.On(EventChainChanged, func(payload json.RawMessage) {
		if h.OnChainChanged == nil {
			return
		}
		h.OnChainChanged(decodeChainID(payload))
	})
	if err != nil {
		return p.abortSubscribe(err)
	}
	p.handles = append(p.handles, id)

	id, err = p.bridge.On(EventAccountsChanged, func(payload json.RawMessage) {
		if h.OnAccountsChanged == nil {
			return
		}
		h.OnAccountsChanged(decodeAccounts(payload))
	})
	if err != nil {
		return p.abortSubscribe(err)
	}
	p.handles = append(p.handles, id)
	return nil
}

func (p *Provider) abortSubscribe(err error) error {
	p.Unsubscribe()
	return err
}

// Unsubscribe removes every listener registered by Subscribe.
func (p *Provider) Unsubscribe() {
	if !p.subscribed.CAS(true, false) {
		return
	}
	for _, id := range p.handles {
		p.bridge.Off(id)
	}
	p.handles = nil
}

// ParseChainID converts the hex-encoded chain id wallets emit into a uint64.
func ParseChainID(hexID string) (uint64, error) {
	id, err := hexutil.DecodeUint64(hexID)
	if err != nil {
		return 0, errors.Wrapf(err, "convert chain id %q", hexID)
	}
	return id, nil
}

// decodeChainID parses the chainChanged payload. Malformed payloads become a
// nil chain id, matching the unset semantics of the event taxonomy.
func decodeChainID(payload json.RawMessage) *uint64 {
	var hexID string
	if err := json.Unmarshal(payload, &hexID); err != nil {
		log.Warnf("eip1193 - undecodable chainChanged payload:%v", err)
		return nil
	}
	id, err := ParseChainID(hexID)
	if err != nil {
		log.Warnf("eip1193 - %v", err)
		return nil
	}
	return &id
}

func decodeAccounts(payload json.RawMessage) []common.Address {
	var accounts []common.Address
	if err := json.Unmarshal(payload, &accounts); err != nil {
		log.Warnf("eip1193 - undecodable accountsChanged payload:%v", err)
		return nil
	}
	// a JSON null stays nil ("no account set"), a JSON [] decodes to an
	// empty non-nil slice ("logged out")
	return accounts
}
