// Package mocks provides testify mocks for the jsonrpc package.
package mocks

import (
	"context"
	"encoding/json"

	"github.com/gabapcia/depositwatch/internal/pkg/transport/jsonrpc"

	"github.com/stretchr/testify/mock"
)

// Client is a mock jsonrpc.Client. Expectations are registered with the
// method name followed by the context and every param, for example
// On("Fetch", mock.Anything, "eth_getBalance", addr, height).
type Client struct {
	mock.Mock
}

var _ jsonrpc.Client = (*Client)(nil)

func (c *Client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	args := append([]any{ctx, method}, params...)
	ret := c.Called(args...)

	var raw json.RawMessage
	switch v := ret.Get(0).(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = json.RawMessage(v)
	}

	return raw, ret.Error(1)
}
