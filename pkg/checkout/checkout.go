// Package checkout submits a cart to the order endpoint and tracks the
// checkout flow up to the payment redirect.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"cartflow/pkg/cart"
)

var (
	// ErrCheckoutFailed indicates the order could not be created.
	ErrCheckoutFailed = errors.New("checkout failed")
	// ErrRedirectMissing indicates the endpoint accepted the order but sent no
	// redirect URL. It matches ErrCheckoutFailed.
	ErrRedirectMissing = fmt.Errorf("%w: redirect url missing", ErrCheckoutFailed)
)

// ConfirmationMarker is the token the payment step puts in the URL it sends
// the shopper back to after a completed payment.
const ConfirmationMarker = "successful"

// Contact holds the shipping and contact fields entered by the shopper. The
// values are passed through as typed.
type Contact struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	City          string `json:"city"`
	PostalCode    string `json:"postalCode"`
	StreetAddress string `json:"streetAddress"`
	Country       string `json:"country"`
}

// OrderRequest is the payload sent to the order endpoint.
type OrderRequest struct {
	Contact
	CartProducts []string `json:"cartProducts"`
}

// NewOrderRequest builds a request from the contact fields and a copy of s.
func NewOrderRequest(c Contact, s cart.State) OrderRequest {
	return OrderRequest{Contact: c, CartProducts: s.Clone()}
}

type orderResponse struct {
	URL string `json:"url"`
}

// Submitter posts orders to the order endpoint. It makes a single attempt
// per call.
type Submitter struct {
	endpoint string
	client   *http.Client
}

// NewSubmitter creates a Submitter. A nil client uses http.DefaultClient.
func NewSubmitter(endpoint string, client *http.Client) *Submitter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Submitter{endpoint: endpoint, client: client}
}

// Submit sends the order and returns the redirect URL exactly as received.
// The cart is never modified; clearing it after payment is up to the caller.
func (s *Submitter) Submit(ctx context.Context, c Contact, state cart.State) (string, error) {
	body, err := json.Marshal(NewOrderRequest(c, state))
	if err != nil {
		return "", fmt.Errorf("%w: encode: %w", ErrCheckoutFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrCheckoutFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %w", ErrCheckoutFailed, err)
	}
	if out.URL == "" {
		return "", ErrRedirectMissing
	}
	return out.URL, nil
}

// IsConfirmation reports whether u is the return URL of a completed payment.
func IsConfirmation(u *url.URL) bool {
	if u == nil {
		return false
	}
	return strings.Contains(u.String(), ConfirmationMarker)
}
