// Package library is the typed surface of the library server's REST API.
// Every call goes through the shared apiclient; nothing here talks HTTP
// directly.
package library

import (
	"context"
	"errors"
	"net/url"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrMemberHasLoans = errors.New("member has borrowed books")
	// ErrUnsupported is returned by optional endpoints the server, or the
	// local configuration, does not offer. Callers fall back to the basic call.
	ErrUnsupported = errors.New("not supported by server")
	// ErrNoConfirmation means a write answered 2xx without its message.
	ErrNoConfirmation = errors.New("server returned no confirmation")
)

// API is the subset of apiclient.Client the services use.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
	PutJSON(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
	Download(ctx context.Context, method, path string, query url.Values, body any) ([]byte, string, error)
}

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder accepts "asc" or "desc" and defaults to descending.
func ParseOrder(s string) Order {
	if Order(s) == OrderAsc {
		return OrderAsc
	}
	return OrderDesc
}

type Options struct {
	// BatchReminders enables the multi-loan reminder lookup.
	BatchReminders bool
}

type Client struct {
	api  API
	opts Options
}

func New(api API, opts Options) *Client {
	return &Client{api: api, opts: opts}
}
