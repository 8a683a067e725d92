package eip1193

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"

	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/jsonrpc"
	"moff.io/web3session/pkg/log"
)

// DefaultBridgeURL is the conventional local wallet endpoint (the address
// desktop wallets such as Frame listen on).
const DefaultBridgeURL = "ws://127.0.0.1:1248"

const bridgeWriteTimeout = time.Second * 10

// WSBridge is a Bridge over a JSON-RPC websocket connection to a local wallet
// endpoint. Responses are routed back to callers by payload id; JSON-RPC
// notifications (messages without an id) carry wallet events and are fanned
// out to the listeners registered with On.
type WSBridge struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[int64]chan bridgeResult
	listeners map[string]map[ListenerID]func(json.RawMessage)

	closed atomic.Bool
	done   chan struct{}
}

type bridgeResult struct {
	result json.RawMessage
	err    error
}

// DialBridge connects to the wallet endpoint and starts the read loop.
func DialBridge(ctx context.Context, url string) (*WSBridge, error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dial to wallet host endpoint")
	}
	b := &WSBridge{
		conn:      conn,
		pending:   make(map[int64]chan bridgeResult),
		listeners: make(map[string]map[ListenerID]func(json.RawMessage)),
		done:      make(chan struct{}),
	}
	go b.readLoop()
	return b, nil
}

// Probe reports whether the wallet endpoint is still reachable.
func (b *WSBridge) Probe() bool {
	return !b.closed.Load()
}

// Call sends one JSON-RPC request and waits for the matching response.
func (b *WSBridge) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if b.closed.Load() {
		return nil, ErrNoProvider
	}
	req := jsonrpc.NewRequest(method, params...)

	ch := make(chan bridgeResult, 1)
	b.mu.Lock()
	b.pending[req.ID] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	if err := b.send(req.Marshal()); err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.result, res.err
	case <-b.done:
		return nil, ErrNoProvider
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "wallet host call")
	}
}

// On registers a callback for a wallet event name.
func (b *WSBridge) On(event string, cb func(payload json.RawMessage)) (ListenerID, error) {
	if b.closed.Load() {
		return "", ErrNoProvider
	}
	id := ListenerID(event + "/" + uuid.NewString())
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners[event] == nil {
		b.listeners[event] = make(map[ListenerID]func(json.RawMessage))
	}
	b.listeners[event][id] = cb
	return id, nil
}

// Off removes a listener registered with On.
func (b *WSBridge) Off(id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.listeners {
		delete(m, id)
	}
}

// Close tears the connection down and fails every in-flight call.
func (b *WSBridge) Close() error {
	if !b.closed.CAS(false, true) {
		return nil
	}
	close(b.done)
	return b.conn.Close()
}

func (b *WSBridge) send(payload []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(bridgeWriteTimeout))
	if err := b.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrap(err, "write message to wallet host")
	}
	return nil
}

func (b *WSBridge) readLoop() {
	defer b.Close()
	for {
		msgType, data, err := b.conn.ReadMessage()
		if err != nil {
			if !b.closed.Load() {
				log.Warnf("wallet host - read:%v", err)
			}
			return
		}
		switch msgType {
		case websocket.TextMessage:
			log.Debugf("wallet host - receive:%v", string(data))
			b.dispatch(data)
		case websocket.CloseMessage:
			return
		default:
			log.Warnf("wallet host - unsupported message type %d", msgType)
		}
	}
}

// dispatch routes a response to its pending call, or a notification to the
// event listeners.
func (b *WSBridge) dispatch(data []byte) {
	if gjson.GetBytes(data, "id").Exists() {
		resp, err := jsonrpc.ParseResponse(data)
		if err != nil {
			log.Warnf("wallet host - %v", err)
			return
		}
		b.mu.Lock()
		ch := b.pending[resp.ID]
		b.mu.Unlock()
		if ch == nil {
			log.Debugf("wallet host - orphan response id %d", resp.ID)
			return
		}
		result, err := resp.Unwrap()
		ch <- bridgeResult{result: result, err: err}
		return
	}

	method := gjson.GetBytes(data, "method").String()
	if method == "" {
		log.Warnf("wallet host - message without id or method:%v", string(data))
		return
	}
	params := json.RawMessage(gjson.GetBytes(data, "params").Raw)

	b.mu.Lock()
	cbs := make([]func(json.RawMessage), 0, len(b.listeners[method]))
	for _, cb := range b.listeners[method] {
		cbs = append(cbs, cb)
	}
	b.mu.Unlock()
	for _, cb := range cbs {
		cb(params)
	}
}
