package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jmerrifield20/hotelledger/internal/ledger"
)

// Block and Transaction are the node's wire types.
type (
	Block       = ledger.Block
	Transaction = ledger.Transaction
)

// IntegrityError reports the first block that failed local verification.
type IntegrityError = ledger.IntegrityError

// ErrNotFound is returned when the node has no block at the requested index.
var ErrNotFound = errors.New("not found")

// Causes carried by an IntegrityError.
var (
	ErrHashMismatch = ledger.ErrHashMismatch
	ErrBrokenLink   = ledger.ErrBrokenLink
)

// APIError is a non-2xx response from the node.
type APIError struct {
	Status  int               `json:"-"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("node returned %d: %s", e.Status, e.Message)
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + e.Fields[name]
	}
	return fmt.Sprintf("node returned %d: %s", e.Status, strings.Join(parts, "; "))
}

// BookingRequest is the payload for SubmitBooking.
type BookingRequest struct {
	CustomerName string `json:"customer_name"`
	RoomNumber   string `json:"room_number"`
	CheckIn      string `json:"check_in"`
	CheckOut     string `json:"check_out"`
	// Amount is sent and stored as written, e.g. "4500" or "4500.50".
	Amount string `json:"amount"`
}

// SubmitResult is returned by SubmitBooking.
type SubmitResult struct {
	Transaction Transaction `json:"transaction" yaml:"transaction"`
	Pending     int         `json:"pending" yaml:"pending"`
}

// Overview summarises the node's ledger.
type Overview struct {
	Blocks        int    `json:"blocks" yaml:"blocks"`
	Root          string `json:"root" yaml:"root"`
	Pending       int    `json:"pending" yaml:"pending"`
	TotalBookings int    `json:"total_bookings" yaml:"total_bookings"`
	Valid         bool   `json:"valid" yaml:"valid"`
}

// VerifyResult is the node's own integrity verdict.
type VerifyResult struct {
	Valid bool   `json:"valid" yaml:"valid"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	Index *int   `json:"index,omitempty" yaml:"index,omitempty"`
}

// Client talks to one hotelledger node.
type Client struct {
	rc *resty.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithTimeout sets the per-request timeout (default 10s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.rc.SetTimeout(d)
		return nil
	}
}

// WithRetries retries idempotent reads on transport errors and 5xx responses.
func WithRetries(n int) Option {
	return func(c *Client) error {
		c.rc.SetRetryCount(n).
			SetRetryWaitTime(200 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
					return false
				}
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
		return nil
	}
}

// WithHTTPClient takes the transport, cookie jar and, when set, the timeout
// of hc. Retry and timeout options keep working whichever order they are
// passed in.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		if hc.Transport != nil {
			c.rc.SetTransport(hc.Transport)
		}
		if hc.Jar != nil {
			c.rc.SetCookieJar(hc.Jar)
		}
		if hc.CheckRedirect != nil {
			c.rc.GetClient().CheckRedirect = hc.CheckRedirect
		}
		if hc.Timeout > 0 {
			c.rc.SetTimeout(hc.Timeout)
		}
		return nil
	}
}

// New creates a Client for the node at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("node URL is required")
	}
	c := &Client{
		rc: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(10 * time.Second).
			SetHeader("Accept", "application/json"),
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	apiErr := &APIError{}
	req := c.rc.R().SetContext(ctx).SetError(apiErr)
	if out != nil {
		req.SetResult(out)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		if resp.StatusCode() == http.StatusNotFound {
			return fmt.Errorf("%s %s: %w", method, path, errors.Join(ErrNotFound, apiErr))
		}
		return apiErr
	}
	return nil
}

// Overview returns the chain summary.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	out := &Overview{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Verify asks the node to verify its own chain.
func (c *Client) Verify(ctx context.Context) (*VerifyResult, error) {
	out := &VerifyResult{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger/verify", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Blocks returns the whole chain in order.
func (c *Client) Blocks(ctx context.Context) ([]Block, error) {
	var out struct {
		Blocks []Block `json:"blocks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger/blocks", nil, &out); err != nil {
		return nil, err
	}
	return out.Blocks, nil
}

// Block returns the block at index.
func (c *Client) Block(ctx context.Context, index int) (*Block, error) {
	out := &Block{}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/ledger/blocks/%d", index), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Pending returns the bookings waiting for the next block.
func (c *Client) Pending(ctx context.Context) ([]Transaction, error) {
	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger/pending", nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// SubmitBooking queues a booking on the node.
func (c *Client) SubmitBooking(ctx context.Context, req BookingRequest) (*SubmitResult, error) {
	out := &SubmitResult{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/ledger/transactions", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Mine seals the pending queue. It returns nil, nil when nothing was pending.
func (c *Client) Mine(ctx context.Context) (*Block, error) {
	var out struct {
		Mined bool   `json:"mined"`
		Block *Block `json:"block"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/ledger/mine", nil, &out); err != nil {
		return nil, err
	}
	if !out.Mined {
		return nil, nil
	}
	return out.Block, nil
}

// VerifyLocally downloads the chain and checks every hash and back-link on
// the client side. It returns an *IntegrityError for the first bad block.
func (c *Client) VerifyLocally(ctx context.Context) error {
	blocks, err := c.Blocks(ctx)
	if err != nil {
		return err
	}
	return VerifyChain(blocks)
}

// VerifyChain checks a downloaded chain without contacting the node.
func VerifyChain(blocks []Block) error {
	if len(blocks) == 0 {
		return errors.New("empty chain")
	}
	for i := range blocks {
		curr := &blocks[i]
		if curr.Hash != curr.RecomputeHash() {
			return &IntegrityError{Index: i, Err: ErrHashMismatch}
		}
		if i > 0 && curr.PreviousHash != blocks[i-1].Hash {
			return &IntegrityError{Index: i, Err: ErrBrokenLink}
		}
	}
	return nil
}
