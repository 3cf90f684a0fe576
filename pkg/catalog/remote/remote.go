// Package remote queries a catalog service over HTTP.
//
// The service accepts POST {"ids": [...]} and answers with a JSON array of
// products, omitting ids it does not know.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"cartflow/pkg/catalog"
)

// Repository is an HTTP backed catalog.Repository.
type Repository struct {
	endpoint string
	client   *http.Client
}

// New creates a client for the catalog lookup endpoint. A nil client uses
// http.DefaultClient.
func New(endpoint string, client *http.Client) *Repository {
	if client == nil {
		client = http.DefaultClient
	}
	return &Repository{endpoint: endpoint, client: client}
}

type lookupRequest struct {
	IDs []string `json:"ids"`
}

// Lookup posts ids to the catalog endpoint.
func (r *Repository) Lookup(ctx context.Context, ids []string) ([]catalog.Product, error) {
	body, err := json.Marshal(lookupRequest{IDs: catalog.Distinct(ids)})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrLookupFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrLookupFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrLookupFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", catalog.ErrLookupFailed, resp.StatusCode)
	}
	var products []catalog.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", catalog.ErrLookupFailed, err)
	}
	return products, nil
}
