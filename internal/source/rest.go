package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shopledger/shopledger/internal/billing"
)

// maxBody caps a single collection response.
const maxBody = 64 << 20

// REST reads the collections from the ERP backend API.
type REST struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewREST constructs a REST fetcher. A zero timeout falls back to 30s.
func NewREST(baseURL, token string, timeout time.Duration) *REST {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch requests every collection in parallel.
func (c *REST) Fetch(ctx context.Context) (billing.RawSnapshot, error) {
	var snap billing.RawSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { snap.Bills, err = getList[billing.RawBill](gctx, c, "/bills"); return })
	g.Go(func() (err error) { snap.Products, err = getList[billing.RawProduct](gctx, c, "/products"); return })
	g.Go(func() (err error) { snap.Customers, err = getList[billing.RawParty](gctx, c, "/customers"); return })
	g.Go(func() (err error) { snap.Branches, err = getList[billing.RawParty](gctx, c, "/branches"); return })
	g.Go(func() (err error) { snap.Suppliers, err = getList[billing.RawParty](gctx, c, "/suppliers"); return })
	g.Go(func() (err error) {
		snap.PurchaseOrders, err = getList[billing.RawPurchaseOrder](gctx, c, "/purchase-orders")
		return
	})
	if err := g.Wait(); err != nil {
		return billing.RawSnapshot{}, fmt.Errorf("source/rest: %w", err)
	}
	return snap, nil
}

// Ping checks that the backend answers.
func (c *REST) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/branches")
	return err
}

func (c *REST) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s returned status %d", path, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

// getList decodes either a bare JSON array or an object wrapping the array
// under "data".
func getList[T any](ctx context.Context, c *REST, path string) ([]T, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []T{}, nil
	}
	if body[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		body = envelope.Data
		if len(body) == 0 {
			return []T{}, nil
		}
	}
	out := []T{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
