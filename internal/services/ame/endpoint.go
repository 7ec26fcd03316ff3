package ame

import (
	"net"
	"strconv"
	"time"

	"proxyoda/internal/config"
)

// Endpoint locates the AME web service and carries the per-run submission
// policy. It is constant for the duration of a run.
type Endpoint struct {
	Host           string
	Port           int
	BusyRetryLimit int
	BusyRetryDelay time.Duration
	RequestTimeout time.Duration
}

// EndpointFromConfig builds an Endpoint from the [webservice] section.
func EndpointFromConfig(cfg *config.Config) Endpoint {
	ws := cfg.WebService
	return Endpoint{
		Host:           ws.Host,
		Port:           ws.Port,
		BusyRetryLimit: ws.BusyRetryLimit,
		BusyRetryDelay: ws.BusyRetryDelay(),
		RequestTimeout: ws.RequestTimeout(),
	}
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// BaseURL returns the http URL of the service root without a trailing slash.
func (e Endpoint) BaseURL() string {
	return "http://" + e.Address()
}

// WithHost returns a copy of e pointing at host.
func (e Endpoint) WithHost(host string) Endpoint {
	e.Host = host
	return e
}
