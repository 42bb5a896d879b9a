package remotefs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures a Client
type Options struct {
	Origin          string
	Token           string
	Timeout         time.Duration
	RateLimit       float64
	Burst           int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Metrics         *monitoring.Metrics
	Logger          *logging.Logger
}

// Client talks to the cloud filesystem API over HTTP
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

var _ FS = (*Client)(nil)

// NewClient creates a client for the API at opts.Origin
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	logger := opts.Logger.OrNop().Named("remotefs")

	// Pooled transport only; retries stay disabled on every layer.
	transport := retryablehttp.NewClient().HTTPClient.Transport

	restyClient := resty.New().
		SetBaseURL(opts.Origin).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetTransport(transport).
		SetHeader("User-Agent", "AgentOS-Desktop/1.0").
		SetError(&Error{}).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			tracing.Inject(r.Context(), r.Header)
			return nil
		})
	if opts.Token != "" {
		restyClient.SetAuthToken(opts.Token)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	failures := opts.BreakerFailures
	breaker := resilience.New("remotefs", resilience.Settings{
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *Error
			// Any answer below 500 means the server is healthy.
			return err == nil || (errors.As(err, &apiErr) && apiErr.Status < 500)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			opts.Metrics.SetBreakerState(name, int(to))
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// SetToken replaces the bearer token used for every request
func (c *Client) SetToken(token string) {
	c.resty.SetAuthToken(token)
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// call performs one request through the limiter and the breaker
func (c *Client) call(ctx context.Context, verb string, build func(*resty.Request) (*resty.Response, error)) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", verb, err)
	}

	start := time.Now()
	status := "error"
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		resp, err := build(c.resty.R().SetContext(ctx))
		if err != nil {
			return err
		}
		status = strconv.Itoa(resp.StatusCode())
		if resp.IsError() {
			return responseError(resp)
		}
		return nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		status = "circuit_open"
	}
	c.metrics.RecordRemoteCall(verb, status, time.Since(start))

	if err != nil {
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			c.logger.Debug("request failed", zap.String("verb", verb), zap.Error(err))
			return fmt.Errorf("%s: %w", verb, err)
		}
		return err
	}
	return nil
}

func responseError(resp *resty.Response) error {
	apiErr, ok := resp.Error().(*Error)
	if !ok || apiErr == nil || (apiErr.Code == "" && apiErr.Message == "") {
		return &Error{
			Code:    "http_" + strconv.Itoa(resp.StatusCode()),
			Message: http.StatusText(resp.StatusCode()),
			Status:  resp.StatusCode(),
		}
	}
	cp := *apiErr
	cp.Status = resp.StatusCode()
	return &cp
}

// Stat returns the entry at ref, an absolute path or a uid
func (c *Client) Stat(ctx context.Context, ref string) (types.Item, error) {
	var item types.Item
	err := c.call(ctx, "stat", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(subject(ref)).SetResult(&item).Post("/stat")
	})
	return item, err
}

// Readdir lists the entries of the directory at path
func (c *Client) Readdir(ctx context.Context, path string) ([]types.Item, error) {
	var items []types.Item
	err := c.call(ctx, "readdir", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]string{"path": path}).SetResult(&items).Post("/readdir")
	})
	return items, err
}

// Move moves an entry into a directory
func (c *Client) Move(ctx context.Context, req MoveRequest) (MoveResult, error) {
	var res MoveResult
	err := c.call(ctx, "move", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&res).Post("/move")
	})
	return res, err
}

// Copy copies an entry into a directory
func (c *Client) Copy(ctx context.Context, req CopyRequest) (CopyResult, error) {
	var res []CopyResult
	err := c.call(ctx, "copy", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&res).Post("/copy")
	})
	if err != nil {
		return CopyResult{}, err
	}
	if len(res) == 0 {
		return CopyResult{}, fmt.Errorf("copy: empty response")
	}
	return res[0], nil
}

// Delete deletes entries
func (c *Client) Delete(ctx context.Context, req DeleteRequest) error {
	return c.call(ctx, "delete", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).Post("/delete")
	})
}

// Rename renames an entry in place
func (c *Client) Rename(ctx context.Context, req RenameRequest) (types.Item, error) {
	var item types.Item
	err := c.call(ctx, "rename", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&item).Post("/rename")
	})
	return item, err
}

// Mkdir creates a directory
func (c *Client) Mkdir(ctx context.Context, req MkdirRequest) (MkdirResult, error) {
	var res MkdirResult
	err := c.call(ctx, "mkdir", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&res).Post("/mkdir")
	})
	return res, err
}

// Read returns the content of the file at path
func (c *Client) Read(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := c.call(ctx, "read", func(r *resty.Request) (*resty.Response, error) {
		resp, err := r.SetQueryParam("file", path).Get("/read")
		if err == nil && !resp.IsError() {
			body = resp.Body()
		}
		return resp, err
	})
	return body, err
}

// Sign returns signed URLs for entries
func (c *Client) Sign(ctx context.Context, items []SignItem) ([]Signature, error) {
	var res struct {
		Signatures []Signature `json:"signatures"`
	}
	err := c.call(ctx, "sign", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]any{"items": items}).SetResult(&res).Post("/sign")
	})
	return res.Signatures, err
}

// SuggestApps returns the apps able to open the entry
func (c *Client) SuggestApps(ctx context.Context, uid string) ([]string, error) {
	var apps []struct {
		Name string `json:"name"`
	}
	err := c.call(ctx, "suggest_apps", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]string{"uid": uid}).SetResult(&apps).Post("/suggest_apps")
	})
	names := make([]string, 0, len(apps))
	for _, app := range apps {
		names = append(names, app.Name)
	}
	return names, err
}

// Whoami returns the authenticated user
func (c *Client) Whoami(ctx context.Context) (User, error) {
	var user User
	err := c.call(ctx, "whoami", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&user).Get("/whoami")
	})
	return user, err
}

// subject addresses an entry by path or uid
func subject(ref string) map[string]string {
	if strings.HasPrefix(ref, "/") {
		return map[string]string{"path": ref}
	}
	return map[string]string{"uid": ref}
}
