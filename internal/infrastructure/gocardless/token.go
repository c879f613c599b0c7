package gocardless

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// expiryMargin is subtracted from both expiry checks so a token is never
// handed out when it could expire mid-request.
const expiryMargin = 60 * time.Second

// tokenPair is the cached access/refresh pair. Expiries are stored as
// absolute wall-clock times computed when the pair was issued.
type tokenPair struct {
	access           string
	accessExpiresAt  time.Time
	refresh          string
	refreshExpiresAt time.Time
}

// TokenManager supplies a currently-valid access token to any caller while
// minimizing calls to the provider's login/refresh endpoints. The pair is
// cached process-wide only; a process restart forces a fresh login.
//
// Concurrent callers that observe a stale token await a single in-flight
// exchange instead of each issuing their own.
type TokenManager struct {
	client    ClientInterface
	secretID  string
	secretKey string

	now func() time.Time

	mu     sync.Mutex
	cached *tokenPair

	flight singleflight.Group
}

// Ensure TokenManager implements TokenSource
var _ TokenSource = (*TokenManager)(nil)

// NewTokenManager creates a token manager for the given application credentials
func NewTokenManager(client ClientInterface, secretID, secretKey string) *TokenManager {
	return &TokenManager{
		client:    client,
		secretID:  secretID,
		secretKey: secretKey,
		now:       time.Now,
	}
}

// Token returns a valid access token, performing a login or refresh exchange
// when the cached pair is missing or stale. Provider errors are returned as-is
// with no retry; the caller decides how to handle them.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if p := m.cached; p != nil && m.accessValid(p) {
		access := p.access
		m.mu.Unlock()
		return access, nil
	}
	m.mu.Unlock()

	// One exchange at a time; concurrent callers share its outcome.
	v, err, _ := m.flight.Do("token", func() (any, error) {
		return m.obtain(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// obtain runs under singleflight and re-checks the cache, since another
// caller may have replaced the pair between the fast-path check and here.
func (m *TokenManager) obtain(ctx context.Context) (string, error) {
	m.mu.Lock()
	p := m.cached
	m.mu.Unlock()

	if p != nil && m.accessValid(p) {
		return p.access, nil
	}

	if p != nil && m.refreshValid(p) {
		return m.refreshAccess(ctx, p)
	}
	return m.login(ctx)
}

// login performs a full exchange of the application credentials, replacing
// the whole cached pair.
func (m *TokenManager) login(ctx context.Context) (string, error) {
	issuedAt := m.now()

	resp, err := m.client.NewToken(ctx, m.secretID, m.secretKey)
	if err != nil {
		return "", fmt.Errorf("token login failed: %w", err)
	}

	pair := &tokenPair{
		access:           resp.Access,
		accessExpiresAt:  issuedAt.Add(time.Duration(resp.AccessExpires) * time.Second),
		refresh:          resp.Refresh,
		refreshExpiresAt: issuedAt.Add(time.Duration(resp.RefreshExpires) * time.Second),
	}

	m.mu.Lock()
	m.cached = pair
	m.mu.Unlock()

	log.Printf("Provider token: new pair obtained (access valid until %s)", pair.accessExpiresAt.Format(time.RFC3339))
	return pair.access, nil
}

// refreshAccess exchanges the still-valid refresh token for a new access
// token. The refresh token and its expiry are kept unchanged.
func (m *TokenManager) refreshAccess(ctx context.Context, p *tokenPair) (string, error) {
	issuedAt := m.now()

	resp, err := m.client.RefreshToken(ctx, p.refresh)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	pair := &tokenPair{
		access:           resp.Access,
		accessExpiresAt:  issuedAt.Add(time.Duration(resp.AccessExpires) * time.Second),
		refresh:          p.refresh,
		refreshExpiresAt: p.refreshExpiresAt,
	}

	m.mu.Lock()
	m.cached = pair
	m.mu.Unlock()

	log.Printf("Provider token: access refreshed (valid until %s)", pair.accessExpiresAt.Format(time.RFC3339))
	return pair.access, nil
}

func (m *TokenManager) accessValid(p *tokenPair) bool {
	return m.now().Add(expiryMargin).Before(p.accessExpiresAt)
}

func (m *TokenManager) refreshValid(p *tokenPair) bool {
	return m.now().Add(expiryMargin).Before(p.refreshExpiresAt)
}
