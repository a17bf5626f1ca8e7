package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore keeps traffic connections in memory. Sealed values are the plaintext bytes.
type memoryStore struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*merchant.TrafficConnection
	// beforeUpdate runs inside UpdateTrafficTokens before the version check
	beforeUpdate func(conn *merchant.TrafficConnection)
	updateErr    error
	marked       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{conns: make(map[uuid.UUID]*merchant.TrafficConnection)}
}

func (s *memoryStore) put(conn merchant.TrafficConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := conn
	s.conns[conn.MerchantID] = &c
}

func (s *memoryStore) get(id uuid.UUID) merchant.TrafficConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.conns[id]
}

func (s *memoryStore) GetTraffic(_ context.Context, id uuid.UUID) (*merchant.TrafficConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok {
		return nil, merchant.ErrConnectionNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memoryStore) UpsertTraffic(_ context.Context, id uuid.UUID, grant merchant.TrafficGrant) (*merchant.TrafficConnection, error) {
	return nil, errors.New("not used")
}

func (s *memoryStore) SetPropertyID(_ context.Context, id uuid.UUID, propertyID string) error {
	return errors.New("not used")
}

func (s *memoryStore) UpdateTrafficTokens(_ context.Context, id uuid.UUID, expected int64, grant merchant.TrafficGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	c, ok := s.conns[id]
	if !ok {
		return merchant.ErrConnectionNotFound
	}
	if s.beforeUpdate != nil {
		s.beforeUpdate(c)
	}
	if c.TokenVersion != expected {
		return merchant.ErrTokenVersionConflict
	}
	c.AccessToken = merchant.SealedSecret(grant.AccessToken)
	if !grant.RefreshToken.IsEmpty() {
		c.RefreshToken = merchant.SealedSecret(grant.RefreshToken)
	}
	c.ExpiresAt = grant.ExpiresAt
	c.TokenVersion++
	return nil
}

func (s *memoryStore) MarkNeedsReauth(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked++
	s.conns[id].Status = merchant.ConnectionStatusNeedsReauth
	return nil
}

func (s *memoryStore) ReadPlain(_ context.Context, sealed merchant.SealedSecret) (merchant.Secret, bool) {
	if sealed.IsEmpty() {
		return "", false
	}
	return merchant.Secret(sealed), true
}

func (s *memoryStore) ReadEncryptedRaw(sealed merchant.SealedSecret) []byte {
	return append([]byte(nil), sealed...)
}

type fakeRefresher struct {
	calls atomic.Int32
	delay time.Duration
	grant merchant.TrafficGrant
	err   error
}

func (r *fakeRefresher) Refresh(_ context.Context, refreshToken merchant.Secret) (merchant.TrafficGrant, error) {
	n := r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return merchant.TrafficGrant{}, r.err
	}
	g := r.grant
	if g.AccessToken.IsEmpty() {
		g.AccessToken = merchant.Secret(fmt.Sprintf("access-%d", n))
	}
	return g, nil
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func trafficConn(id uuid.UUID, access, refresh string, expiresAt *time.Time) merchant.TrafficConnection {
	return merchant.TrafficConnection{
		MerchantID:   id,
		PropertyID:   "properties/1",
		AccessToken:  merchant.SealedSecret(access),
		RefreshToken: merchant.SealedSecret(refresh),
		ExpiresAt:    expiresAt,
		Status:       merchant.ConnectionStatusActive,
		TokenVersion: 1,
	}
}

func newTestManager(store *memoryStore, refresher Refresher) *TokenManager {
	return NewTokenManager("ga4", store, refresher, WithClock(func() time.Time { return testNow }))
}

func TestTokenManager_Token(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh token is served without refresh", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "current", "rt", at(10*time.Minute)))
		refresher := &fakeRefresher{}
		session := NewSession()

		token, err := newTestManager(store, refresher).Token(ctx, session, id)

		require.NoError(t, err)
		assert.Equal(t, merchant.Secret("current"), token)
		assert.Zero(t, refresher.calls.Load())
		assert.False(t, session.Refreshed())
	})

	t.Run("token without expiry never refreshes", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "forever", "", nil))
		refresher := &fakeRefresher{}

		token, err := newTestManager(store, refresher).Token(ctx, NewSession(), id)

		require.NoError(t, err)
		assert.Equal(t, merchant.Secret("forever"), token)
		assert.Zero(t, refresher.calls.Load())
	})

	t.Run("token inside the skew window is refreshed", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "old", "rt", at(30*time.Second)))
		refresher := &fakeRefresher{grant: merchant.TrafficGrant{ExpiresAt: at(time.Hour)}}
		session := NewSession()

		token, err := newTestManager(store, refresher).Token(ctx, session, id)

		require.NoError(t, err)
		assert.Equal(t, merchant.Secret("access-1"), token)
		assert.True(t, session.Refreshed())

		stored := store.get(id)
		assert.Equal(t, "access-1", string(stored.AccessToken))
		assert.Equal(t, "rt", string(stored.RefreshToken), "refresh token kept when none is returned")
		assert.Equal(t, int64(2), stored.TokenVersion)
		assert.Equal(t, at(time.Hour), stored.ExpiresAt)
	})

	t.Run("rotated refresh token is stored", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "old", "rt", at(-time.Minute)))
		refresher := &fakeRefresher{grant: merchant.TrafficGrant{RefreshToken: "rt-2"}}

		_, err := newTestManager(store, refresher).Token(ctx, NewSession(), id)

		require.NoError(t, err)
		stored := store.get(id)
		assert.Equal(t, "rt-2", string(stored.RefreshToken))
		assert.Nil(t, stored.ExpiresAt)
	})

	t.Run("custom skew", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "current", "rt", at(3*time.Minute)))
		refresher := &fakeRefresher{}
		m := NewTokenManager("ga4", store, refresher,
			WithClock(func() time.Time { return testNow }),
			WithExpirySkew(5*time.Minute))

		token, err := m.Token(ctx, NewSession(), id)

		require.NoError(t, err)
		assert.Equal(t, merchant.Secret("access-1"), token)
	})
}

func TestTokenManager_Token_NoCredential(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		conn func(id uuid.UUID) *merchant.TrafficConnection
	}{
		{
			name: "no connection",
			conn: func(uuid.UUID) *merchant.TrafficConnection { return nil },
		},
		{
			name: "needs reauth",
			conn: func(id uuid.UUID) *merchant.TrafficConnection {
				c := trafficConn(id, "old", "rt", at(-time.Hour))
				c.Status = merchant.ConnectionStatusNeedsReauth
				return &c
			},
		},
		{
			name: "stale token without refresh token",
			conn: func(id uuid.UUID) *merchant.TrafficConnection {
				c := trafficConn(id, "old", "", at(-time.Hour))
				return &c
			},
		},
		{
			name: "no access token and no refresh token",
			conn: func(id uuid.UUID) *merchant.TrafficConnection {
				c := trafficConn(id, "", "", nil)
				return &c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			id := uuid.New()
			if c := tt.conn(id); c != nil {
				store.put(*c)
			}
			refresher := &fakeRefresher{}

			_, err := newTestManager(store, refresher).Token(ctx, NewSession(), id)

			assert.ErrorIs(t, err, integration.ErrNoCredential)
			assert.Zero(t, refresher.calls.Load())
		})
	}
}

func TestTokenManager_RefreshFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid grant flags the connection", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "old", "rt", at(-time.Minute)))
		refresher := &fakeRefresher{err: fmt.Errorf("%w: invalid_grant", integration.ErrRefreshRejected)}
		m := newTestManager(store, refresher)

		_, err := m.Token(ctx, NewSession(), id)

		assert.ErrorIs(t, err, integration.ErrNoCredential)
		assert.ErrorIs(t, err, integration.ErrAuthExhausted)
		assert.Equal(t, merchant.ConnectionStatusNeedsReauth, store.get(id).Status)
		assert.Equal(t, 1, store.marked)

		// Later calls fail fast
		_, err = m.Token(ctx, NewSession(), id)
		assert.ErrorIs(t, err, integration.ErrNoCredential)
		assert.Equal(t, int32(1), refresher.calls.Load())
	})

	t.Run("transport failure keeps the connection active", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "old", "rt", at(-time.Minute)))
		refresher := &fakeRefresher{err: fmt.Errorf("%w: connection reset", integration.ErrTransientTransport)}

		_, err := newTestManager(store, refresher).Token(ctx, NewSession(), id)

		assert.ErrorIs(t, err, integration.ErrNoCredential)
		assert.ErrorIs(t, err, integration.ErrTransientTransport)
		assert.Equal(t, merchant.ConnectionStatusActive, store.get(id).Status)
		assert.Zero(t, store.marked)
	})

	t.Run("persist failure still returns the new token", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "old", "rt", at(-time.Minute)))
		store.updateErr = errors.New("database is locked")
		refresher := &fakeRefresher{}

		token, err := newTestManager(store, refresher).Token(ctx, NewSession(), id)

		require.NoError(t, err)
		assert.Equal(t, merchant.Secret("access-1"), token)
	})
}

func TestTokenManager_ConcurrentRefreshCallsProviderOnce(t *testing.T) {
	store := newMemoryStore()
	id := uuid.New()
	store.put(trafficConn(id, "old", "rt", at(-time.Minute)))
	refresher := &fakeRefresher{delay: 20 * time.Millisecond}
	m := newTestManager(store, refresher)

	const workers = 10
	tokens := make([]merchant.Secret, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.Token(context.Background(), NewSession(), id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), refresher.calls.Load())
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, merchant.Secret("access-1"), tokens[i])
	}
	assert.Equal(t, int64(2), store.get(id).TokenVersion)
	assert.Zero(t, m.locks.size())
}

func TestTokenManager_CASConflictUsesWinnerToken(t *testing.T) {
	store := newMemoryStore()
	id := uuid.New()
	store.put(trafficConn(id, "old", "rt", at(-time.Minute)))
	// Another instance refreshes between our read and our write
	store.beforeUpdate = func(c *merchant.TrafficConnection) {
		c.AccessToken = merchant.SealedSecret("winner")
		c.TokenVersion++
	}
	session := NewSession()

	token, err := newTestManager(store, &fakeRefresher{}).Token(context.Background(), session, id)

	require.NoError(t, err)
	assert.Equal(t, merchant.Secret("winner"), token)
	assert.True(t, session.Refreshed())
}

func TestTokenManager_ForceRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes a fresh but rejected token", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "revoked", "rt", at(time.Hour)))
		refresher := &fakeRefresher{}

		token, err := newTestManager(store, refresher).ForceRefresh(ctx, NewSession(), id, "revoked")

		require.NoError(t, err)
		assert.Equal(t, merchant.Secret("access-1"), token)
		assert.Equal(t, int32(1), refresher.calls.Load())
	})

	t.Run("reuses a token replaced by another request", func(t *testing.T) {
		store := newMemoryStore()
		id := uuid.New()
		store.put(trafficConn(id, "replacement", "rt", at(time.Hour)))
		refresher := &fakeRefresher{}

		token, err := newTestManager(store, refresher).ForceRefresh(ctx, NewSession(), id, "revoked")

		require.NoError(t, err)
		assert.Equal(t, merchant.Secret("replacement"), token)
		assert.Zero(t, refresher.calls.Load())
	})
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())

	acquired := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-acquired
	unlockB()
	assert.Zero(t, k.size())
}
