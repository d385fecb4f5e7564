// Package spotify provides a wrapper around the Spotify Web API catalog search.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultMarket is the market searches are restricted to.
const DefaultMarket = "US"

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api    *spotify.Client
	market string
}

type options struct {
	market   string
	baseURL  string
	tokenURL string
}

// Option configures a Client built by NewWithCredentials.
type Option func(*options)

// WithMarket restricts searches to a market (ISO 3166-1 alpha-2).
func WithMarket(market string) Option {
	return func(o *options) {
		o.market = market
	}
}

// WithBaseURL points the client at another API host.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(url string) Option {
	return func(o *options) {
		o.tokenURL = url
	}
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client, market string) *Client {
	if market == "" {
		market = DefaultMarket
	}
	return &Client{api: api, market: market}
}

// NewWithCredentials creates a client authenticated with the client
// credentials flow. Tokens are fetched lazily and refreshed automatically.
// Rate-limited responses are retried after the server's Retry-After delay.
func NewWithCredentials(ctx context.Context, clientID, clientSecret string, opts ...Option) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify client id and secret are required")
	}

	o := options{market: DefaultMarket, tokenURL: spotifyauth.TokenURL}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     o.tokenURL,
	}

	clientOpts := []spotify.ClientOption{spotify.WithRetry(true)}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(o.baseURL))
	}

	api := spotify.New(cfg.Client(ctx), clientOpts...)
	return New(api, o.market), nil
}
