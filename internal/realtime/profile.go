package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
)

// ProfileCache holds the signed-in user's profile and refreshes it from
// /whoami. Reads are idempotent, so failed requests are retried.
type ProfileCache struct {
	client *retryablehttp.Client
	origin string
	logger *logging.Logger

	mu      sync.RWMutex
	token   string
	user    remotefs.User
	fetched time.Time
}

// NewProfileCache creates a cache for the API at origin
func NewProfileCache(origin, token string, logger *logging.Logger) *ProfileCache {
	logger = logger.OrNop().Named("profile")

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = leveled{logger.Sugar()}

	return &ProfileCache{
		client: client,
		origin: strings.TrimRight(origin, "/"),
		token:  token,
		logger: logger,
	}
}

// SetToken replaces the bearer token
func (p *ProfileCache) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

// Set seeds the cache, e.g. with the login response
func (p *ProfileCache) Set(u remotefs.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = u
	p.fetched = time.Now()
}

// User returns the cached profile and whether one was ever loaded
func (p *ProfileCache) User() (remotefs.User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user, !p.fetched.IsZero()
}

// Refresh fetches the profile and replaces the cached copy
func (p *ProfileCache) Refresh(ctx context.Context) (remotefs.User, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.origin+"/whoami", nil)
	if err != nil {
		return remotefs.User{}, err
	}
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return remotefs.User{}, fmt.Errorf("whoami: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return remotefs.User{}, fmt.Errorf("whoami: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return remotefs.User{}, &remotefs.Error{
			Code:    "whoami_failed",
			Message: strings.TrimSpace(string(body)),
			Status:  resp.StatusCode,
		}
	}

	var u remotefs.User
	if err := sonic.Unmarshal(body, &u); err != nil {
		return remotefs.User{}, fmt.Errorf("decode whoami: %w", err)
	}
	p.Set(u)
	p.logger.Debug("profile refreshed", zap.String("username", u.Username), zap.Bool("email_confirmed", u.EmailConfirmed))
	return u, nil
}

// leveled adapts zap to retryablehttp.LeveledLogger
type leveled struct {
	s *zap.SugaredLogger
}

func (l leveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
