package ame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"syscall"

	"proxyoda/internal/logging"
	"proxyoda/internal/manifest"
)

const maxBodyBytes = 1 << 20

// HTTPDoer describes the HTTP client used by the AME client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "ame-client")
	}
}

// WithSocketResetPolicy selects how a connection reset after POST /job is
// interpreted. AME tends to drop the socket right after queuing a job, so
// "success" (the default) reports SocketResetLikelySuccess while "failure"
// reports a transport error.
func WithSocketResetPolicy(policy string) Option {
	return func(c *Client) {
		c.resetIsSuccess = !strings.EqualFold(strings.TrimSpace(policy), "failure")
	}
}

// Client submits manifests to a single AME web service endpoint.
type Client struct {
	endpoint       Endpoint
	http           HTTPDoer
	logger         *slog.Logger
	resetIsSuccess bool
}

// NewClient constructs a client for endpoint.
func NewClient(endpoint Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint:       endpoint,
		http:           &http.Client{},
		logger:         logging.NewComponentLogger(nil, "ame-client"),
		resetIsSuccess: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint the client targets.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Submit performs one POST /job attempt for job. It never returns a Go error:
// every outcome, including transport failures, is encoded in the Result.
func (c *Client) Submit(ctx context.Context, job manifest.JobDescriptor) Result {
	body := manifest.Serialize(job)
	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("posting manifest",
		logging.String("url", c.endpoint.BaseURL()+"/job"),
		logging.String("manifest", body),
	)

	reqCtx := ctx
	if c.endpoint.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.endpoint.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint.BaseURL()+"/job", strings.NewReader(body))
	if err != nil {
		return Result{Kind: KindTransportError, Err: fmt.Errorf("build job request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportResult(logger, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		// Headers arrived, so the job reached AME; a reset while reading the
		// body is the same quirk as a reset before the reply.
		res := c.transportResult(logger, err)
		res.StatusCode = resp.StatusCode
		return res
	}

	res := classify(resp.StatusCode, string(data))
	logger.Debug("job response classified",
		logging.String(logging.FieldOutcome, res.Kind.String()),
		logging.Int("status_code", res.StatusCode),
		logging.String("body", res.Body),
	)
	return res
}

func (c *Client) transportResult(logger *slog.Logger, err error) Result {
	if IsConnectionReset(err) {
		if c.resetIsSuccess {
			logging.WarnWithContext(logger, "connection reset after submission; treating as accepted", "socket_reset",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job assumed queued; verify in the AME queue if proxies are missing"),
				logging.String(logging.FieldErrorHint, "set webservice.socket_reset_policy = \"failure\" to treat resets as errors"),
			)
			return Result{Kind: KindSocketResetLikelySuccess, Err: err}
		}
	}
	return Result{Kind: KindTransportError, Err: err}
}

// IsConnectionReset reports whether err is the peer tearing down the
// connection. A closed connection with no reply (EOF) counts as a reset.
func IsConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "forcibly closed")
}
