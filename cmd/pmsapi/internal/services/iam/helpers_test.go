package iam

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/bunx"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/migrations"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    time.Hour,
		Issuer: "pmsapi",
	})
	require.NoError(t, err)
	return codec
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

// fakeStore is a map-backed IdentityResolver, CredentialSource and LoginRecorder.
type fakeStore struct {
	mu         sync.Mutex
	identities map[string]*Identity // email → identity
	hashes     map[string]string    // email → bcrypt hash
	lastLogin  map[int64]time.Time
	err        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		identities: make(map[string]*Identity),
		hashes:     make(map[string]string),
		lastLogin:  make(map[int64]time.Time),
	}
}

func (f *fakeStore) add(identity Identity, hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[identity.Email] = &identity
	f.hashes[identity.Email] = hash
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	identity, _, err := f.CredentialFor(ctx, email)
	return identity, err
}

func (f *fakeStore) FindByID(ctx context.Context, id int64) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, identity := range f.identities {
		if identity.ID == id {
			copied := *identity
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CredentialFor(ctx context.Context, email string) (*Identity, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	identity, ok := f.identities[email]
	if !ok {
		return nil, "", nil
	}
	copied := *identity
	return &copied, f.hashes[email], nil
}

func (f *fakeStore) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLogin[userID] = at
	return nil
}

// setupRepos returns repositories over a migrated in-memory SQLite database.
func setupRepos(t *testing.T) (*repository.BunUserRepository, *repository.BunRoleRepository) {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return repository.NewBunUserRepository(db), repository.NewBunRoleRepository(db)
}
