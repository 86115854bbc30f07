package repository

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-bearer"
)

// UserModel is the Bun model for stored identities. ID is the numeric
// subject id carried in tokens, PublicID keys the generic repository.
// Roles are kept as a comma separated list, e.g. "ADMIN,MEMBER".
type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	PublicID     uuid.UUID `bun:"public_id,type:uuid,notnull,unique"`
	Username     string    `bun:"username,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Roles        string    `bun:"roles,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// UserRepository implements auth.IdentityStore and auth.IdentityWriter on
// top of a go-repository-bun repository.
type UserRepository struct {
	db    *bun.DB
	users repository.Repository[*UserModel]
}

// NewUserRepository creates a new repository.
func NewUserRepository(db *bun.DB) *UserRepository {
	users := repository.NewRepository[*UserModel](db, repository.ModelHandlers[*UserModel]{
		NewRecord: func() *UserModel { return &UserModel{} },
		GetID: func(m *UserModel) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.PublicID
		},
		SetID: func(m *UserModel, id uuid.UUID) {
			if m != nil {
				m.PublicID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &UserRepository{
		db:    db,
		users: users,
	}
}

// Repository exposes the generic repository backing the users table
func (r *UserRepository) Repository() repository.Repository[*UserModel] {
	return r.users
}

// FindByUsername implements auth.IdentityStore.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*auth.IdentityRecord, error) {
	return r.FindByUsernameTx(ctx, r.db, username)
}

func (r *UserRepository) FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*auth.IdentityRecord, error) {
	record := &UserModel{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, auth.ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find user")
	}
	return toIdentityRecord(record), nil
}

// CreateIdentity implements auth.IdentityWriter.
func (r *UserRepository) CreateIdentity(ctx context.Context, record *auth.IdentityRecord) (*auth.IdentityRecord, error) {
	return r.CreateIdentityTx(ctx, r.db, record)
}

// CreateIdentityTx inserts record unless the username exists. The unique
// username is enforced by the insert itself, a conflicting row is skipped
// and reported as auth.ErrUsernameTaken.
func (r *UserRepository) CreateIdentityTx(ctx context.Context, tx bun.IDB, record *auth.IdentityRecord) (*auth.IdentityRecord, error) {
	model := fromIdentityRecord(record)
	model.PublicID = uuid.New()

	created, err := r.users.CreateTx(ctx, tx, model, skipUsernameConflict)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, auth.ErrUsernameTaken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}

	if created == nil || created.ID == 0 {
		return nil, auth.ErrUsernameTaken
	}

	return toIdentityRecord(created), nil
}

func skipUsernameConflict(q *bun.InsertQuery) *bun.InsertQuery {
	return q.On("CONFLICT (username) DO NOTHING")
}

// Count returns the number of stored identities
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*UserModel)(nil)).Count(ctx)
}

func toIdentityRecord(m *UserModel) *auth.IdentityRecord {
	return &auth.IdentityRecord{
		SubjectID:    m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Roles:        auth.ParseRoles(m.Roles),
	}
}

func fromIdentityRecord(record *auth.IdentityRecord) *UserModel {
	return &UserModel{
		ID:           record.SubjectID,
		Username:     record.Username,
		PasswordHash: record.PasswordHash,
		Roles:        auth.FormatRoles(record.Roles),
	}
}
