package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Registrar creates new accounts with hashed passwords
type Registrar struct {
	store        IdentityWriter
	passwords    PasswordAuthenticator
	defaultRoles []string
	logger       Logger
	activitySink ActivitySink
}

// NewRegistrar creates a registrar assigning defaultRoles to new accounts
func NewRegistrar(store IdentityWriter, passwords PasswordAuthenticator, defaultRoles ...string) *Registrar {
	if passwords == nil {
		passwords = NewBcryptHasher(0)
	}
	if len(defaultRoles) == 0 {
		defaultRoles = []string{"MEMBER"}
	}
	return &Registrar{
		store:        store,
		passwords:    passwords,
		defaultRoles: NormalizeRoles(defaultRoles...),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (r *Registrar) WithLogger(logger Logger) *Registrar {
	r.logger = normalizeLogger(logger)
	return r
}

// WithActivitySink configures an ActivitySink for registration events.
func (r *Registrar) WithActivitySink(sink ActivitySink) *Registrar {
	r.activitySink = normalizeActivitySink(sink)
	return r
}

// Register hashes password and stores a new identity for username
func (r *Registrar) Register(ctx context.Context, username, password string) (*IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during registration")
	}

	hash, err := r.passwords.HashPassword(password)
	if err != nil {
		if goerrors.Is(err, ErrNoEmptyString) || goerrors.Is(err, ErrPasswordTooLong) {
			return nil, err
		}
		r.logger.Error("registration failed to hash password: %v", err)
		return nil, ErrInternal
	}

	record, err := r.store.CreateIdentity(ctx, &IdentityRecord{
		Username:     username,
		PasswordHash: hash,
		Roles:        append([]string(nil), r.defaultRoles...),
	})
	if err != nil {
		if goerrors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		r.logger.Error("registration failed to store identity: %v", err)
		return nil, ErrInternal
	}

	emitActivity(ctx, r.activitySink, r.logger, ActivityEvent{
		EventType: ActivityEventRegistered,
		SubjectID: record.SubjectID,
		Username:  record.Username,
	})

	return record, nil
}
