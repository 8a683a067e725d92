package session

import (
	"moff.io/web3session/pkg/eip1193"
	"moff.io/web3session/pkg/walletconnect"
)

// WalletKind selects which transport a connect call uses.
type WalletKind int

const (
	WalletInjected WalletKind = iota
	WalletConnect
)

func (k WalletKind) String() string {
	switch k {
	case WalletInjected:
		return "injected"
	case WalletConnect:
		return "walletconnect"
	default:
		return "unknown"
	}
}

// webProvider is the active backend: none, the injected wallet host, or a
// WalletConnect relay session. At most one of the handles is non-nil.
// Control flow only ever cares about which variant is active, never about
// handle identity.
type webProvider struct {
	injected *eip1193.Provider
	wc       *walletconnect.Provider
}

func (p webProvider) none() bool {
	return p.injected == nil && p.wc == nil
}

func (p webProvider) kind() (WalletKind, bool) {
	switch {
	case p.injected != nil:
		return WalletInjected, true
	case p.wc != nil:
		return WalletConnect, true
	default:
		return 0, false
	}
}
