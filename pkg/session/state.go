package session

import (
	"context"
	"encoding/json"

	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/storage"
)

// stateKey is the single key the session state lives under in the store.
const stateKey = "WEB3_SESSION_STATE"

// State is the minimal durable session state. WCState is the opaque
// resumable blob exported by a relay session; its presence implies
// WalletConnect was the active backend. The injected backend has nothing to
// resume beyond the chain id.
type State struct {
	ChainID *uint64         `json:"chain_id"`
	WCState json.RawMessage `json:"wc_state,omitempty"`
}

func loadState(ctx context.Context, store storage.Store) (*State, error) {
	raw, err := store.Get(ctx, stateKey)
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, errors.Wrap(err, "unmarshal persisted session state")
	}
	return &st, nil
}

func saveState(ctx context.Context, store storage.Store, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "marshal session state")
	}
	return store.Set(ctx, stateKey, raw)
}
