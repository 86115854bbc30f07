package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-bearer"
	"github.com/goliatone/go-auth-bearer/repository"
)

func setupUserRepo(t *testing.T) (*repository.Manager, *repository.UserRepository) {
	t.Helper()

	db, err := repository.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)

	mngr := repository.NewManager(db)
	require.NoError(t, mngr.Validate())
	require.NoError(t, mngr.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = mngr.Close()
	})

	return mngr, mngr.Users()
}

func TestUserRepositoryCreateAndFind(t *testing.T) {
	_, repo := setupUserRepo(t)
	ctx := context.Background()

	created, err := repo.CreateIdentity(ctx, &auth.IdentityRecord{
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
		Roles:        []string{"ROLE_MEMBER,ROLE_ADMIN"},
	})
	require.NoError(t, err)
	assert.Greater(t, created.SubjectID, int64(0))
	assert.Equal(t, []string{"ADMIN", "MEMBER"}, created.Roles)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created, found)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserRepositoryAssignsPublicID(t *testing.T) {
	mngr, repo := setupUserRepo(t)
	ctx := context.Background()

	for _, username := range []string{"frank", "grace"} {
		_, err := repo.CreateIdentity(ctx, &auth.IdentityRecord{Username: username, PasswordHash: "h"})
		require.NoError(t, err)
	}

	var models []repository.UserModel
	err := mngr.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&models).Order("id ASC").Scan(ctx)
	})
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.NotEqual(t, uuid.Nil, models[0].PublicID)
	assert.NotEqual(t, models[0].PublicID, models[1].PublicID)
}

func TestUserRepositoryNotFound(t *testing.T) {
	_, repo := setupUserRepo(t)

	record, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	assert.Nil(t, record)
}

func TestUserRepositoryDuplicateUsername(t *testing.T) {
	_, repo := setupUserRepo(t)
	ctx := context.Background()

	_, err := repo.CreateIdentity(ctx, &auth.IdentityRecord{Username: "bob", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.CreateIdentity(ctx, &auth.IdentityRecord{Username: "bob", PasswordHash: "h2"})
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)
}

func TestUserRepositoryConcurrentCreates(t *testing.T) {
	_, repo := setupUserRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CreateIdentity(ctx, &auth.IdentityRecord{Username: "carol", PasswordHash: "h"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	}
	assert.Equal(t, 1, succeeded)
}

func TestLoginAgainstRepository(t *testing.T) {
	_, repo := setupUserRepo(t)

	registrar := auth.NewRegistrar(repo, auth.NewBcryptHasher(4))
	_, err := registrar.Register(context.Background(), "dave", "pa55word")
	require.NoError(t, err)

	verifier, err := auth.NewCredentialVerifier(repo, auth.NewBcryptHasher(4))
	require.NoError(t, err)

	record, err := verifier.LookupIdentity(context.Background(), "dave")
	require.NoError(t, err)
	assert.True(t, verifier.VerifyPassword("pa55word", record.PasswordHash))
	assert.Equal(t, []string{"MEMBER"}, record.Roles)
}

func TestManagerRunInTxRollsBack(t *testing.T) {
	mngr, repo := setupUserRepo(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := mngr.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := mngr.Users().CreateIdentityTx(ctx, tx, &auth.IdentityRecord{Username: "erin", PasswordHash: "h"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
