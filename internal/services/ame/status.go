package ame

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"proxyoda/internal/services"
)

// ServerState summarizes GET /server.
type ServerState string

const (
	StateOnline      ServerState = "online"
	StateOffline     ServerState = "offline"
	StateNoServer    ServerState = "no-server"
	StateUnknown     ServerState = "unknown"
	StateUnreachable ServerState = "unreachable"
)

// ServerStatus is the interpreted reply of GET /server.
type ServerStatus struct {
	State      ServerState
	StatusCode int
	Body       string
}

// Online reports whether the service accepts jobs.
func (s ServerStatus) Online() bool {
	return s.State == StateOnline
}

// Status probes GET /server. Transport failures return StateUnreachable along
// with an error tagged services.ErrTransport.
func (c *Client) Status(ctx context.Context) (ServerStatus, error) {
	reqCtx := ctx
	if c.endpoint.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.endpoint.RequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint.BaseURL()+"/server", nil)
	if err != nil {
		return ServerStatus{State: StateUnknown}, fmt.Errorf("build status request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ServerStatus{State: StateUnreachable},
			services.Wrap(services.ErrTransport, "ame-client", "status", "get /server "+c.endpoint.Address(), err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ServerStatus{State: StateUnreachable, StatusCode: resp.StatusCode},
			services.Wrap(services.ErrTransport, "ame-client", "status", "read /server reply", err)
	}
	return classifyStatus(resp.StatusCode, string(data)), nil
}

func classifyStatus(statusCode int, body string) ServerStatus {
	status := ServerStatus{StatusCode: statusCode, Body: body, State: StateUnknown}
	if doc, ok := parseReply(body); ok {
		switch {
		case doc.NoServer:
			status.State = StateNoServer
		case strings.EqualFold(doc.ServerStatus, "Online"):
			status.State = StateOnline
		case strings.EqualFold(doc.ServerStatus, "Offline"):
			status.State = StateOffline
		case statusCode == http.StatusOK:
			status.State = StateOnline
		}
		return status
	}
	switch {
	case strings.Contains(body, markerNoServer):
		status.State = StateNoServer
	case strings.Contains(body, markerStatusOnline):
		status.State = StateOnline
	case strings.Contains(body, markerStatusOffline) || strings.Contains(body, markerServerOffline):
		status.State = StateOffline
	case statusCode == http.StatusOK:
		status.State = StateOnline
	}
	return status
}
