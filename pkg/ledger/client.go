// Package ledger talks to the upstream exchange node: it fetches raw
// subaccount snapshots for projection and submits signed transactions.
package ledger

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/uhyunpark/perpdesk/pkg/app/core/projector"
	"github.com/uhyunpark/perpdesk/pkg/errors"
)

// Config points the client at a node.
type Config struct {
	BaseURL        string
	Timeout        time.Duration // per request
	ConfirmTimeout time.Duration // total wait for a confirmation
	PollInterval   time.Duration // first confirmation poll delay
}

// nodeError is the node's error body.
type nodeError struct {
	Error string `json:"error"`
}

// newRestClient is shared by StateClient and Broadcaster.
func newRestClient(cfg Config) *resty.Client {
	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
}

// StateClient reads account state from the node.
type StateClient struct {
	http *resty.Client
}

func NewStateClient(cfg Config) *StateClient {
	return &StateClient{http: newRestClient(cfg)}
}

// AccountState fetches the raw snapshot of the subaccount at address.
func (c *StateClient) AccountState(ctx context.Context, address string) (projector.RawAccountState, error) {
	var out projector.RawAccountState
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("address", address).
		SetResult(&out).
		SetError(&nodeError{}).
		Get("/v1/users/{address}")
	if err != nil {
		return projector.RawAccountState{}, errors.Wrap(errors.ErrCodeUpstreamUnavailable, "fetch account", err)
	}
	if err := checkResponse(resp, "account "+address); err != nil {
		return projector.RawAccountState{}, err
	}
	return out, nil
}

type usersResponse struct {
	Users []projector.RawUserAccount `json:"users"`
}

// Subaccounts lists every subaccount owned by authority.
func (c *StateClient) Subaccounts(ctx context.Context, authority string) ([]projector.RawUserAccount, error) {
	var out usersResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("authority", authority).
		SetResult(&out).
		SetError(&nodeError{}).
		Get("/v1/authorities/{authority}/users")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUpstreamUnavailable, "fetch subaccounts", err)
	}
	if err := checkResponse(resp, "authority "+authority); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// checkResponse maps a non-2xx node response to a coded error.
func checkResponse(resp *resty.Response, what string) error {
	if !resp.IsError() {
		return nil
	}
	reason := resp.Status()
	if ne, ok := resp.Error().(*nodeError); ok && ne.Error != "" {
		reason = ne.Error
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return errors.Newf(errors.ErrCodeAccountNotFound, "%s not found: %s", what, reason)
	case resp.StatusCode() >= http.StatusInternalServerError:
		return errors.Newf(errors.ErrCodeUpstreamUnavailable, "node error for %s: %s", what, reason)
	default:
		return errors.Newf(errors.ErrCodeInvalidRequest, "node rejected request for %s: %s", what, reason)
	}
}
