package walletconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/jsonrpc"
)

const nodeTimeout = time.Second * 10

// NodeClient is a plain HTTP JSON-RPC client used for read-only calls that do
// not need wallet approval (balance queries and the like) while a relay
// session handles the signing methods.
type NodeClient struct {
	url        string
	httpClient *http.Client
}

func NewNodeClient(url string) *NodeClient {
	return &NodeClient{
		url: url,
		httpClient: &http.Client{
			Timeout: nodeTimeout,
		},
	}
}

// Call performs one JSON-RPC round trip against the node.
func (c *NodeClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	var reqParams []interface{}
	switch v := params.(type) {
	case nil:
	case []interface{}:
		reqParams = v
	default:
		reqParams = []interface{}{params}
	}
	payload := jsonrpc.NewRequest(method, reqParams...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload.Marshal()))
	if err != nil {
		return nil, errors.Wrap(err, "build rpc node request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request rpc node %v", method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read rpc node response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("rpc node responded %v: %s", resp.StatusCode, body)
	}

	parsed, err := jsonrpc.ParseResponse(body)
	if err != nil {
		return nil, err
	}
	return parsed.Unwrap()
}
