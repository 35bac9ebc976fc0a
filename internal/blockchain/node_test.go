package blockchain

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcFailure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type methodHandler func(params []json.RawMessage) (any, *rpcFailure)

// fakeNode is a minimal Sui JSON-RPC node backed by per-method handlers
type fakeNode struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]methodHandler
	calls    map[string]int
	params   map[string][]json.RawMessage
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()

	n := &fakeNode{
		handlers: map[string]methodHandler{
			"sui_getChainIdentifier": func([]json.RawMessage) (any, *rpcFailure) {
				return "4c78adac", nil
			},
		},
		calls:  make(map[string]int),
		params: make(map[string][]json.RawMessage),
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.server.Close)
	return n
}

func (n *fakeNode) URL() string {
	return n.server.URL
}

func (n *fakeNode) handle(method string, h methodHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// result registers a handler that always answers v
func (n *fakeNode) result(method string, v any) {
	n.handle(method, func([]json.RawMessage) (any, *rpcFailure) { return v, nil })
}

func (n *fakeNode) callCount(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// lastParams returns the params of the most recent call to method
func (n *fakeNode) lastParams(method string) []json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.params[method]
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	n.params[req.Method] = req.Params
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = rpcFailure{Code: -32601, Message: "method not found: " + req.Method}
	} else if result, failure := h(req.Params); failure != nil {
		resp["error"] = failure
	} else {
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, nodes ...*fakeNode) *Client {
	t.Helper()

	urls := make([]string, len(nodes))
	for i, n := range nodes {
		urls[i] = n.URL()
	}
	c, err := NewClient(urls)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}
