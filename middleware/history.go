package middleware

import (
	"net/http"
	"sync"

	"github.com/kbukum/reqkit/stack"
)

// Transaction is one recorded exchange.
type Transaction struct {
	Request  *http.Request
	Response *http.Response
	Err      error
	Options  stack.Options
}

// History records transactions passing through its middleware.
type History struct {
	mu           sync.Mutex
	transactions []Transaction
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Middleware returns the layer that records into h once each exchange
// settles.
func (h *History) Middleware() stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				h.mu.Lock()
				h.transactions = append(h.transactions, Transaction{
					Request: req, Response: resp, Err: err, Options: opts,
				})
				h.mu.Unlock()
				return resp, err
			})
		}
	}
}

// Transactions returns a copy of the recorded transactions in settlement
// order.
func (h *History) Transactions() []Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Transaction, len(h.transactions))
	copy(out, h.transactions)
	return out
}

// Len returns the number of recorded transactions.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.transactions)
}

// Last returns the most recent transaction.
func (h *History) Last() (Transaction, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.transactions) == 0 {
		return Transaction{}, false
	}
	return h.transactions[len(h.transactions)-1], true
}

// Reset drops all transactions.
func (h *History) Reset() {
	h.mu.Lock()
	h.transactions = nil
	h.mu.Unlock()
}
