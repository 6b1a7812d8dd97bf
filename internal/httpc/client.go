// Package httpc builds HTTP clients with bounded timeouts. Never use
// http.DefaultClient: a hung analyzer would stall the capture loop.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Options tunes a client. Zero fields take the defaults.
type Options struct {
	Timeout        time.Duration // whole request, including the body
	DialTimeout    time.Duration
	KeepAlive      time.Duration
	IdleTimeout    time.Duration
	MaxIdlePerHost int
}

// DefaultOptions suits a once-per-second analyzer call to a single host.
func DefaultOptions() Options {
	return Options{
		Timeout:        30 * time.Second,
		DialTimeout:    5 * time.Second,
		KeepAlive:      30 * time.Second,
		IdleTimeout:    90 * time.Second,
		MaxIdlePerHost: 4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = d.KeepAlive
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.MaxIdlePerHost <= 0 {
		o.MaxIdlePerHost = d.MaxIdlePerHost
	}
	return o
}

// New returns a client configured by o.
func New(o Options) *http.Client {
	o = o.withDefaults()
	dialer := &net.Dialer{Timeout: o.DialTimeout, KeepAlive: o.KeepAlive}
	return &http.Client{
		Timeout: o.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: o.MaxIdlePerHost,
			IdleConnTimeout:     o.IdleTimeout,
			TLSHandshakeTimeout: o.DialTimeout,
		},
	}
}

// NewClient returns a default client with the given overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	o := DefaultOptions()
	o.Timeout = timeout
	return New(o)
}
