package session

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind enumerates the session lifecycle events.
type EventKind int

const (
	// EventConnectionWaiting carries a pairing URI awaiting wallet approval.
	EventConnectionWaiting EventKind = iota
	EventConnected
	EventDisconnected
	// EventBroken signals a live but degraded transport. The backend stays
	// attached; requests become best effort.
	EventBroken
	EventChainIDChanged
	EventAccountsChanged
)

// Event is one normalized session event. PairingURI is set for
// EventConnectionWaiting, ChainID for EventChainIDChanged (nil meaning the
// chain id became unset) and Accounts for EventAccountsChanged (nil meaning
// the account set became unset; an empty non-nil slice is a reported empty
// account list).
type Event struct {
	Kind       EventKind
	PairingURI string
	ChainID    *uint64
	Accounts   []common.Address
}

func ConnectionWaiting(uri string) Event {
	return Event{Kind: EventConnectionWaiting, PairingURI: uri}
}

func Connected() Event {
	return Event{Kind: EventConnected}
}

func Disconnected() Event {
	return Event{Kind: EventDisconnected}
}

func Broken() Event {
	return Event{Kind: EventBroken}
}

func ChainIDChanged(chainID *uint64) Event {
	return Event{Kind: EventChainIDChanged, ChainID: chainID}
}

func AccountsChanged(accounts []common.Address) Event {
	return Event{Kind: EventAccountsChanged, Accounts: accounts}
}

// ConnectionEstablished reports whether the event leaves the session in a
// connection-established state. It is the sole gate deciding whether the
// current snapshot is persisted or the persisted state deleted.
func (e Event) ConnectionEstablished() bool {
	switch e.Kind {
	case EventConnectionWaiting, EventDisconnected:
		return false
	case EventChainIDChanged:
		return e.ChainID != nil
	case EventAccountsChanged:
		return e.Accounts != nil
	default:
		return true
	}
}

func (e Event) String() string {
	switch e.Kind {
	case EventConnectionWaiting:
		return fmt.Sprintf("ConnectionWaiting(%v)", e.PairingURI)
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventBroken:
		return "Broken"
	case EventChainIDChanged:
		if e.ChainID == nil {
			return "ChainIDChanged(none)"
		}
		return fmt.Sprintf("ChainIDChanged(%d)", *e.ChainID)
	case EventAccountsChanged:
		if e.Accounts == nil {
			return "AccountsChanged(none)"
		}
		return fmt.Sprintf("AccountsChanged(%d accounts)", len(e.Accounts))
	default:
		return fmt.Sprintf("Event(%d)", e.Kind)
	}
}
