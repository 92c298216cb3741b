package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillworks/tillsuite/internal/auth/domain"
	"github.com/tillworks/tillsuite/internal/auth/store"
	"github.com/tillworks/tillsuite/internal/tenant"
	"github.com/tillworks/tillsuite/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedTenantAndUser(t *testing.T, s *Store) (domain.Tenant, domain.User) {
	t.Helper()
	now := time.Now().UTC()
	tn := domain.Tenant{
		ID:        "11111111-2222-3333-4444-555555555555",
		Name:      "Acme Retail",
		Code:      "acme",
		Subdomain: "acme",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Tenants().CreateTenant(context.Background(), tn))

	u := domain.User{
		ID:           idx.New().String(),
		TenantID:     tn.ID,
		Email:        "owner@acme.example",
		Name:         "Acme Owner",
		PasswordHash: "x",
		Roles:        []string{"owner"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return tn, u
}

func TestTenantLookups(t *testing.T) {
	s := newTestStore(t)
	tn, _ := seedTenantAndUser(t, s)

	t.Run("by id", func(t *testing.T) {
		got, err := s.Tenants().GetTenant(context.Background(), tn.ID)
		require.NoError(t, err)
		require.Equal(t, tn.Name, got.Name)
	})

	t.Run("by subdomain is case insensitive", func(t *testing.T) {
		got, err := s.Tenants().GetTenantBySubdomain(context.Background(), "ACME")
		require.NoError(t, err)
		require.Equal(t, tn.ID, got.ID)
	})

	t.Run("unknown subdomain", func(t *testing.T) {
		_, err := s.Tenants().GetTenantBySubdomain(context.Background(), "ghost")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUserBelongsToTenant(t *testing.T) {
	s := newTestStore(t)
	tn, u := seedTenantAndUser(t, s)

	now := time.Now().UTC()
	other := domain.Tenant{
		ID:        "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
		Name:      "Beta Stores",
		Code:      "beta",
		Subdomain: "beta",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Tenants().CreateTenant(context.Background(), other))

	belongs, err := s.Tenants().UserBelongsToTenant(context.Background(), u.ID, tn.ID)
	require.NoError(t, err)
	require.True(t, belongs, "home tenant counts as membership")

	belongs, err = s.Tenants().UserBelongsToTenant(context.Background(), u.ID, other.ID)
	require.NoError(t, err)
	require.False(t, belongs)

	require.NoError(t, s.Tenants().AddMembership(context.Background(), domain.Membership{
		UserID:   u.ID,
		TenantID: other.ID,
		Role:     "manager",
	}))

	belongs, err = s.Tenants().UserBelongsToTenant(context.Background(), u.ID, other.ID)
	require.NoError(t, err)
	require.True(t, belongs)
}

func TestGetUserByEmailRequiresSession(t *testing.T) {
	s := newTestStore(t)
	tn, u := seedTenantAndUser(t, s)

	t.Run("unbound context fails", func(t *testing.T) {
		_, err := s.Users().GetUserByEmail(context.Background(), u.Email)
		require.ErrorIs(t, err, tenant.ErrNoSession)
	})

	t.Run("bound context scopes the lookup", func(t *testing.T) {
		ctx := tenant.BindSession(context.Background(), tn.ID)
		got, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("wrong tenant sees nothing", func(t *testing.T) {
		ctx := tenant.BindSession(context.Background(), "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
		_, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestConsumeAuthorizationCodeSingleUse(t *testing.T) {
	s := newTestStore(t)
	tn, u := seedTenantAndUser(t, s)

	now := time.Now().UTC()
	code := domain.AuthorizationCode{
		ID:        idx.New().String(),
		CodeHash:  "hash-1",
		ClientID:  "public-spa",
		UserID:    u.ID,
		TenantID:  tn.ID,
		Scopes:    []string{"openid", "profile"},
		ExpiresAt: now.Add(10 * time.Minute),
		CreatedAt: now,
	}
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(context.Background(), code))

	got, err := s.AuthorizationCodes().ConsumeAuthorizationCode(context.Background(), "hash-1")
	require.NoError(t, err)
	require.Equal(t, code.ID, got.ID)
	require.Equal(t, []string{"openid", "profile"}, got.Scopes)

	_, err = s.AuthorizationCodes().ConsumeAuthorizationCode(context.Background(), "hash-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeAuthorizationCodeConcurrent(t *testing.T) {
	s := newTestStore(t)
	tn, u := seedTenantAndUser(t, s)

	now := time.Now().UTC()
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(context.Background(), domain.AuthorizationCode{
		ID:        idx.New().String(),
		CodeHash:  "contested",
		ClientID:  "public-spa",
		UserID:    u.ID,
		TenantID:  tn.ID,
		ExpiresAt: now.Add(10 * time.Minute),
		CreatedAt: now,
	}))

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			if _, err := s.AuthorizationCodes().ConsumeAuthorizationCode(context.Background(), "contested"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins, "exactly one consumer may win")
}

func TestRefreshTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	tn, u := seedTenantAndUser(t, s)

	now := time.Now().UTC()
	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		TokenHash: "rt-hash",
		ClientID:  "public-spa",
		UserID:    u.ID,
		TenantID:  tn.ID,
		Scopes:    []string{"openid"},
		ExpiresAt: now.Add(30 * 24 * time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(context.Background(), rt))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(context.Background(), "rt-hash")
	require.NoError(t, err)
	require.Equal(t, rt.ID, got.ID)

	require.NoError(t, s.RefreshTokens().DeleteRefreshTokenByHash(context.Background(), "rt-hash"))
	_, err = s.RefreshTokens().GetRefreshTokenByHash(context.Background(), "rt-hash")
	require.ErrorIs(t, err, store.ErrNotFound)

	// deleting an unknown hash is not an error
	require.NoError(t, s.RefreshTokens().DeleteRefreshTokenByHash(context.Background(), "rt-hash"))
}

func TestHousekeepingSweeps(t *testing.T) {
	s := newTestStore(t)
	tn, u := seedTenantAndUser(t, s)

	now := time.Now().UTC()
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(context.Background(), domain.AuthorizationCode{
		ID:        idx.New().String(),
		CodeHash:  "stale",
		ClientID:  "public-spa",
		UserID:    u.ID,
		TenantID:  tn.ID,
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-11 * time.Minute),
	}))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(context.Background(), domain.RefreshToken{
		ID:        idx.New().String(),
		TokenHash: "stale-rt",
		ClientID:  "public-spa",
		UserID:    u.ID,
		TenantID:  tn.ID,
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-31 * 24 * time.Hour),
	}))

	n, err := s.AuthorizationCodes().DeleteExpiredAuthorizationCodes(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.RefreshTokens().DeleteExpiredRefreshTokens(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	tn, _ := seedTenantAndUser(t, s)

	now := time.Now().UTC()
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		if err := tx.Users().CreateUser(context.Background(), domain.User{
			ID:           idx.New().String(),
			TenantID:     tn.ID,
			Email:        "second@acme.example",
			PasswordHash: "x",
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	ctx := tenant.BindSession(context.Background(), tn.ID)
	_, err = s.Users().GetUserByEmail(ctx, "second@acme.example")
	require.ErrorIs(t, err, store.ErrNotFound)
}
