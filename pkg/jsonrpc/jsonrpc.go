// Package jsonrpc holds the JSON-RPC 2.0 envelope types shared by the wallet
// transports: requests written to the browser-bridge websocket and to plain
// HTTP nodes, and the response/error envelopes read back.
package jsonrpc

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/atomic"

	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/log"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	ID      int64         `json:"id"`
	JSONRpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

var payloadSeq = atomic.NewInt64(time.Now().UnixNano() / 1000)

// NextID returns a process-unique payload id.
func NextID() int64 {
	return payloadSeq.Inc()
}

func NewRequest(method string, params ...interface{}) *Request {
	r := &Request{
		ID:      NextID(),
		JSONRpc: "2.0",
		Method:  method,
		Params:  []interface{}{},
	}
	if len(params) > 0 {
		r.Params = params
	}
	return r
}

func (e *Request) Marshal() []byte {
	s, err := json.Marshal(e)
	if err != nil {
		log.Errorf("marshal jsonrpc request:%v", err)
	}
	return s
}

// Error is the JSON-RPC error envelope returned by wallets and nodes.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	ID      int64           `json:"id"`
	JSONRpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal jsonrpc response")
	}
	return &resp, nil
}

// Unwrap returns the result payload or the error envelope as a Go error.
func (r *Response) Unwrap() (json.RawMessage, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	return r.Result, nil
}
