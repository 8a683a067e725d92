// Package session implements the wallet session manager: a state machine
// owning one active wallet backend (an injected wallet host or a WalletConnect
// relay session), normalizing both transports' native notifications into one
// event stream, and persisting enough state to survive page reloads.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"moff.io/web3session/pkg/eip1193"
	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/explorer"
	"moff.io/web3session/pkg/log"
	"moff.io/web3session/pkg/storage"
	"moff.io/web3session/pkg/walletconnect"
)

var (
	// ErrUnavailable means the requested wallet kind is not usable in the
	// current environment.
	ErrUnavailable = errors.New("session: wallet unavailable")
	// ErrNotConnected means no backend is attached.
	ErrNotConnected = errors.New("session: not connected")
	// ErrAlreadyConnected means a backend is already attached; disconnect
	// first.
	ErrAlreadyConnected = errors.New("session: already connected")
)

// eventChannelCapacity bounds the internal event queue. Producers never
// block: when the queue is full (which takes a caller that stopped draining
// Next for a long while) the overflowing item is dropped with a warning.
// Items are never reordered.
const eventChannelCapacity = 64

// envelope is one item of the internal queue: a normalized event, a terminal
// error from the relay poll, or a heartbeat (all fields zero).
type envelope struct {
	event *Event
	err   error
}

// Ethereum is the wallet session manager. Construct it with Builder, one per
// application.
//
// Connect, Disconnect, SwitchNetwork and Restore mutate the session and must
// be serialized by the caller; the accessors are safe to call concurrently.
// Next must have at most one concurrent caller.
type Ethereum struct {
	metadata    walletconnect.Metadata
	wcProjectID string
	rpcNode     string

	bridge eip1193.Bridge
	dialer walletconnect.Dialer
	store  storage.Store

	mu             sync.RWMutex
	accounts       []common.Address
	chainID        *uint64
	defaultChainID uint64
	provider       webProvider
	pumpCancel     context.CancelFunc

	events chan envelope
}

// InjectedAvailable probes for a wallet host in the current environment.
func (e *Ethereum) InjectedAvailable() bool {
	return e.bridge != nil && e.bridge.Probe()
}

// WalletConnectAvailable reports whether the WalletConnect backend was
// configured at construction.
func (e *Ethereum) WalletConnectAvailable() bool {
	return e.wcProjectID != ""
}

// IsAvailable reports whether the given wallet kind can currently connect.
func (e *Ethereum) IsAvailable(kind WalletKind) bool {
	switch kind {
	case WalletInjected:
		return e.InjectedAvailable()
	case WalletConnect:
		return e.WalletConnectAvailable()
	default:
		return false
	}
}

// AvailableWallets lists the connectable wallet kinds, injected first. UIs
// use the order to pick a default offering.
func (e *Ethereum) AvailableWallets() []WalletKind {
	kinds := make([]WalletKind, 0, 2)
	if e.InjectedAvailable() {
		kinds = append(kinds, WalletInjected)
	}
	if e.WalletConnectAvailable() {
		kinds = append(kinds, WalletConnect)
	}
	return kinds
}

// IsConnected reports whether a backend is attached.
func (e *Ethereum) IsConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.provider.none()
}

// ConnectedWalletKind returns the kind of the attached backend.
func (e *Ethereum) ConnectedWalletKind() (WalletKind, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.provider.kind()
}

// ChainID returns the chain id of the current snapshot, nil when unset.
func (e *Ethereum) ChainID() *uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.chainID == nil {
		return nil
	}
	id := *e.chainID
	return &id
}

// Accounts returns the account list of the current snapshot, nil when unset.
func (e *Ethereum) Accounts() []common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.accounts == nil {
		return nil
	}
	out := make([]common.Address, len(e.accounts))
	copy(out, e.accounts)
	return out
}

// FetchAvailableWallets downloads the WalletConnect wallet directory.
func (e *Ethereum) FetchAvailableWallets(ctx context.Context) ([]explorer.WalletDescription, error) {
	if e.wcProjectID == "" {
		return nil, ErrUnavailable
	}
	return explorer.NewClient().FetchWallets(ctx, e.wcProjectID)
}

// Connect attaches a backend of the given kind and performs its handshake.
// Fails with ErrAlreadyConnected while any backend is attached; a failed
// handshake leaves no backend attached.
func (e *Ethereum) Connect(ctx context.Context, kind WalletKind) error {
	if e.IsConnected() {
		return ErrAlreadyConnected
	}
	switch kind {
	case WalletInjected:
		return e.connectInjected(ctx)
	case WalletConnect:
		return e.connectWalletConnect(ctx, nil)
	default:
		return ErrUnavailable
	}
}

func (e *Ethereum) connectInjected(ctx context.Context) error {
	if !e.InjectedAvailable() {
		return ErrUnavailable
	}
	injected := eip1193.NewProvider(e.bridge)

	err := injected.Subscribe(eip1193.Handlers{
		OnDisconnect: func() {
			e.push(Disconnected())
		},
		OnChainChanged: func(chainID *uint64) {
			e.push(ChainIDChanged(chainID))
		},
		OnAccountsChanged: func(accounts []common.Address) {
			e.push(AccountsChanged(accounts))
			switch {
			case accounts == nil:
				e.push(Disconnected())
			case len(accounts) == 0:
				// injected wallets signal logout with an empty list
				e.push(Disconnected())
			default:
				e.push(Connected())
			}
		},
	})
	if err != nil {
		return err
	}

	accounts, err := injected.RequestAccounts(ctx)
	if err != nil {
		injected.Unsubscribe()
		return err
	}
	chainID, err := injected.ChainID(ctx)
	if err != nil {
		injected.Unsubscribe()
		return err
	}

	e.mu.Lock()
	e.provider = webProvider{injected: injected}
	e.accounts = accounts
	e.chainID = &chainID
	e.mu.Unlock()

	e.push(Connected())
	e.push(ChainIDChanged(&chainID))
	e.push(AccountsChanged(accounts))
	return nil
}

func (e *Ethereum) connectWalletConnect(ctx context.Context, resume json.RawMessage) error {
	if e.wcProjectID == "" || e.dialer == nil {
		return ErrUnavailable
	}
	chainID := e.defaultOrCurrentChainID()

	client, err := e.dialer.Connect(ctx, e.wcProjectID, chainID, e.metadata, resume)
	if err != nil {
		return err
	}
	var existing []uint64
	if resume != nil {
		existing = []uint64{chainID}
	}
	uri, err := client.InitiateSession(ctx, existing)
	if err != nil {
		return err
	}

	provider := walletconnect.NewProvider(client, e.rpcNode)
	pumpCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.provider = webProvider{wc: provider}
	e.pumpCancel = cancel
	e.mu.Unlock()
	go e.pump(pumpCtx, provider)

	if uri != "" {
		e.push(ConnectionWaiting(uri))
		return nil
	}

	// pairing already resolved from restored state; draining Connected
	// queues the chain and account follow-ups from the provider
	id := provider.ChainID()
	accounts := provider.Accounts()
	e.mu.Lock()
	e.chainID = &id
	e.accounts = accounts
	e.mu.Unlock()

	e.push(Connected())
	return nil
}

func (e *Ethereum) defaultOrCurrentChainID() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.chainID != nil {
		return *e.chainID
	}
	return e.defaultChainID
}

// pump polls the relay session for native events and feeds them into the
// internal queue, normalizing the relay's pull model into the same push shape
// the injected listeners use. It exits on cancellation or a poll error.
func (e *Ethereum) pump(ctx context.Context, provider *walletconnect.Provider) {
	for {
		native, err := provider.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			e.pushItem(envelope{err: err})
			return
		}
		if native == nil {
			e.pushItem(envelope{})
			continue
		}
		e.push(normalizeNative(native))
	}
}

func normalizeNative(native *walletconnect.NativeEvent) Event {
	switch native.Kind {
	case walletconnect.NativeConnected:
		return Connected()
	case walletconnect.NativeDisconnected:
		return Disconnected()
	case walletconnect.NativeChainChanged:
		id := native.ChainID
		return ChainIDChanged(&id)
	case walletconnect.NativeAccountsChanged:
		return AccountsChanged(native.Accounts)
	default:
		return Broken()
	}
}

// Disconnect tears down the attached backend, clears the snapshot and queues
// the ChainIDChanged(nil), AccountsChanged(nil), Disconnected triple. It is a
// no-op without a backend. A Next call parked while Disconnect runs wakes up
// through the queued events rather than hanging on the dead backend.
func (e *Ethereum) Disconnect(ctx context.Context) {
	e.mu.Lock()
	provider := e.provider
	cancel := e.pumpCancel
	e.provider = webProvider{}
	e.pumpCancel = nil
	e.accounts = nil
	e.chainID = nil
	e.mu.Unlock()

	if provider.none() {
		return
	}
	if cancel != nil {
		cancel()
	}
	if provider.injected != nil {
		provider.injected.Unsubscribe()
	}
	if provider.wc != nil {
		provider.wc.Disconnect(ctx)
	}

	e.push(ChainIDChanged(nil))
	e.push(AccountsChanged(nil))
	e.push(Disconnected())
}

// SwitchNetwork moves a WalletConnect session to another chain already
// granted by the wallet. It fails with ErrUnavailable on any other backend
// and for chains with no granted accounts, leaving the snapshot untouched.
func (e *Ethereum) SwitchNetwork(chainID uint64) error {
	e.mu.RLock()
	wc := e.provider.wc
	e.mu.RUnlock()
	if wc == nil {
		return ErrUnavailable
	}
	accounts := wc.AccountsForChain(chainID)
	if len(accounts) == 0 {
		return ErrUnavailable
	}

	wc.SetChainID(chainID)
	id := chainID
	e.mu.Lock()
	e.chainID = &id
	e.accounts = accounts
	e.mu.Unlock()

	e.push(ChainIDChanged(&id))
	e.push(AccountsChanged(accounts))
	return nil
}

// Request dispatches one JSON-RPC call through the attached backend and
// decodes the result into out. Pass a nil out to discard the result.
func (e *Ethereum) Request(ctx context.Context, method string, params []interface{}, out interface{}) error {
	e.mu.RLock()
	provider := e.provider
	e.mu.RUnlock()
	switch {
	case provider.injected != nil:
		return provider.injected.Request(ctx, method, params, out)
	case provider.wc != nil:
		return provider.wc.Request(ctx, method, params, out)
	default:
		return ErrNotConnected
	}
}

// SignTypedData signs an EIP-712 payload with the given account through the
// attached backend.
func (e *Ethereum) SignTypedData(ctx context.Context, data interface{}, from common.Address) (*Signature, error) {
	e.mu.RLock()
	provider := e.provider
	e.mu.RUnlock()

	var (
		sigHex string
		err    error
	)
	switch {
	case provider.injected != nil:
		sigHex, err = provider.injected.SignTypedData(ctx, data, from)
	case provider.wc != nil:
		sigHex, err = provider.wc.SignTypedData(ctx, data, from)
	default:
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	return ParseSignature(sigHex)
}

// Next returns the next session event. It suspends until the queue yields,
// returns (nil, nil) for cycles that produced nothing new (callers retry),
// and returns the error and stops on a relay poll failure. After every
// drained event the snapshot is persisted or the persisted state deleted,
// per Event.ConnectionEstablished. At most one caller may run Next at a time.
func (e *Ethereum) Next(ctx context.Context) (*Event, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "await session event")
	case item := <-e.events:
		if item.err != nil {
			return nil, item.err
		}
		if item.event == nil {
			return nil, nil
		}
		event := *item.event
		log.Debugf("session - event %v", event)
		e.apply(event)
		e.persistAfter(ctx, event)
		return &event, nil
	}
}

// apply folds a drained event into the snapshot and queues the follow-up
// chain/accounts events a WalletConnect Connected implies.
func (e *Ethereum) apply(event Event) {
	e.mu.Lock()
	switch event.Kind {
	case EventChainIDChanged:
		e.chainID = event.ChainID
	case EventAccountsChanged:
		e.accounts = event.Accounts
	case EventDisconnected:
		e.chainID = nil
		e.accounts = nil
	}
	wc := e.provider.wc
	e.mu.Unlock()

	if event.Kind == EventConnected && wc != nil {
		id := wc.ChainID()
		e.push(ChainIDChanged(&id))
		e.push(AccountsChanged(wc.Accounts()))
	}
}

func (e *Ethereum) persistAfter(ctx context.Context, event Event) {
	// a storage failure must never abort the session flow
	if event.ConnectionEstablished() {
		if err := saveState(ctx, e.store, e.collectState()); err != nil {
			log.Warnf("session - persist state:%v", err)
		}
		return
	}
	if err := e.store.Delete(ctx, stateKey); err != nil {
		log.Warnf("session - delete persisted state:%v", err)
	}
}

func (e *Ethereum) collectState() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.provider.wc != nil {
		id := e.provider.wc.ChainID()
		return State{ChainID: &id, WCState: e.provider.wc.State()}
	}
	return State{ChainID: e.chainID}
}

// Restore re-attaches a backend from persisted state: a WalletConnect session
// when a resumable blob was stored, the injected wallet otherwise. It returns
// false only when the persisted read itself failed; reconnect failures
// surface through the event stream or a later explicit Connect.
func (e *Ethereum) Restore(ctx context.Context) bool {
	st, err := loadState(ctx, e.store)
	if err != nil {
		log.Errorf("session - restore state:%v", err)
		return false
	}
	if st.ChainID != nil {
		e.mu.Lock()
		e.chainID = st.ChainID
		e.mu.Unlock()
	}
	if st.WCState != nil {
		if err := e.connectWalletConnect(ctx, st.WCState); err != nil {
			log.Warnf("session - restore walletconnect:%v", err)
		}
		return true
	}
	if err := e.connectInjected(ctx); err != nil {
		log.Warnf("session - restore injected:%v", err)
	}
	return true
}

func (e *Ethereum) push(event Event) {
	e.pushItem(envelope{event: &event})
}

func (e *Ethereum) pushItem(item envelope) {
	select {
	case e.events <- item:
	default:
		if item.event != nil {
			log.Warnf("session - event queue full, dropping %v", *item.event)
		} else if item.err != nil {
			log.Warnf("session - event queue full, dropping error:%v", item.err)
		}
	}
}
