package session

import (
	"moff.io/web3session/pkg/eip1193"
	"moff.io/web3session/pkg/storage"
	"moff.io/web3session/pkg/walletconnect"
)

// Builder assembles an Ethereum session manager.
type Builder struct {
	chainID     uint64
	name        string
	description string
	url         string
	icons       []string

	wcProjectID string
	rpcNode     string

	bridge eip1193.Bridge
	dialer walletconnect.Dialer
	store  storage.Store
}

// NewBuilder returns a Builder with example dApp defaults on mainnet and an
// in-memory session store.
func NewBuilder() *Builder {
	return &Builder{
		chainID:     1,
		name:        "Example dApp",
		description: "An example dApp written in Go",
		url:         "https://moff.io/web3session",
		store:       storage.NewMemoryStore(),
	}
}

// ChainID sets the default chain id.
func (b *Builder) ChainID(chainID uint64) *Builder {
	b.chainID = chainID
	return b
}

// Name sets the dApp name shown to wallets.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Description sets the dApp description shown to wallets.
func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

// URL sets the dApp url shown to wallets.
func (b *Builder) URL(url string) *Builder {
	b.url = url
	return b
}

// AddIcon appends a dApp icon url.
func (b *Builder) AddIcon(iconURL string) *Builder {
	b.icons = append(b.icons, iconURL)
	return b
}

// WalletConnectProjectID enables the WalletConnect backend.
func (b *Builder) WalletConnectProjectID(projectID string) *Builder {
	b.wcProjectID = projectID
	return b
}

// RPCNode sets the fallback RPC node used next to a WalletConnect session for
// calls that need no wallet approval.
func (b *Builder) RPCNode(url string) *Builder {
	b.rpcNode = url
	return b
}

// Bridge sets the wallet host bridge backing the injected backend.
func (b *Builder) Bridge(bridge eip1193.Bridge) *Builder {
	b.bridge = bridge
	return b
}

// Relay sets the dialer building WalletConnect relay sessions.
func (b *Builder) Relay(dialer walletconnect.Dialer) *Builder {
	b.dialer = dialer
	return b
}

// Store replaces the session state store.
func (b *Builder) Store(store storage.Store) *Builder {
	b.store = store
	return b
}

// Build assembles the session manager.
func (b *Builder) Build() *Ethereum {
	chainID := b.chainID
	return &Ethereum{
		metadata: walletconnect.Metadata{
			Name:        b.name,
			Description: b.description,
			URL:         b.url,
			Icons:       b.icons,
		},
		wcProjectID:    b.wcProjectID,
		rpcNode:        b.rpcNode,
		bridge:         b.bridge,
		dialer:         b.dialer,
		store:          b.store,
		chainID:        &chainID,
		defaultChainID: b.chainID,
		events:         make(chan envelope, eventChannelCapacity),
	}
}
