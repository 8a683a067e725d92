// Package walletconnect adapts a WalletConnect relay session into the request
// and event surface the session manager consumes. The relay protocol itself
// (pairing, key agreement, message transport) lives behind the Client
// contract and is supplied by the host application.
package walletconnect

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// Metadata describes the dApp to the remote wallet during pairing.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
}

// NativeEventKind enumerates the session events a relay client delivers.
type NativeEventKind int

const (
	NativeConnected NativeEventKind = iota
	NativeDisconnected
	NativeChainChanged
	NativeAccountsChanged
	// NativeBroken signals a transient relay transport fault. The session
	// stays up; requests become best effort until the relay recovers.
	NativeBroken
)

// NativeEvent is one protocol event delivered by the relay client.
type NativeEvent struct {
	Kind     NativeEventKind
	ChainID  uint64
	Accounts []common.Address
}

// Client is the relay session collaborator.
//
// InitiateSession starts a new pairing or resumes one from restored state; it
// returns the pairing URI to display, or an empty string when the session is
// already approved. Next suspends until the relay delivers an event, and
// returns (nil, nil) for heartbeat cycles with nothing new. AccountsForChain
// returns nil when the chain was never granted. State exports the resumable
// session material.
type Client interface {
	InitiateSession(ctx context.Context, existingChainIDs []uint64) (string, error)
	Request(ctx context.Context, method string, params interface{}, chainID uint64) (json.RawMessage, error)
	Next(ctx context.Context) (*NativeEvent, error)
	AccountsForChain(chainID uint64) []common.Address
	ChainID() uint64
	SetChainID(chainID uint64)
	SupportsMethod(method string) bool
	Disconnect(ctx context.Context) error
	State() json.RawMessage
}

// Dialer builds relay clients. Resume state, when present, carries the blob a
// previous session exported through Client.State.
type Dialer interface {
	Connect(ctx context.Context, projectID string, chainID uint64, metadata Metadata, resume json.RawMessage) (Client, error)
}
