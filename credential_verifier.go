package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// dummyPassword is hashed once per verifier so unknown usernames cost one
// bcrypt comparison, same as a wrong password.
const dummyPassword = "dummy-password-for-timing"

// CredentialVerifier checks submitted passwords against stored identities
type CredentialVerifier struct {
	store     IdentityStore
	passwords PasswordAuthenticator
	dummyHash string
	logger    Logger
}

// NewCredentialVerifier wires an identity store with a password hasher
func NewCredentialVerifier(store IdentityStore, passwords PasswordAuthenticator) (*CredentialVerifier, error) {
	if store == nil {
		return nil, goerrors.New("identity store is required", goerrors.CategoryBadInput)
	}

	if passwords == nil {
		passwords = NewBcryptHasher(0)
	}

	dummyHash, err := passwords.HashPassword(dummyPassword)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to prepare credential verifier")
	}

	return &CredentialVerifier{
		store:     store,
		passwords: passwords,
		dummyHash: dummyHash,
		logger:    defLogger{},
	}, nil
}

// WithLogger sets the verifier logger
func (v *CredentialVerifier) WithLogger(logger Logger) *CredentialVerifier {
	v.logger = normalizeLogger(logger)
	return v
}

// VerifyPassword compares plaintext against storedHash
func (v *CredentialVerifier) VerifyPassword(plaintext, storedHash string) bool {
	if err := v.passwords.ComparePasswordAndHash(plaintext, storedHash); err != nil {
		if !goerrors.Is(err, ErrBadCredentials) {
			v.logger.Warn("password comparison failed: %v", err)
		}
		return false
	}
	return true
}

// LookupIdentity finds the identity for username. A missing identity is
// reported as ErrUnknownUser, any other store failure is returned as is.
func (v *CredentialVerifier) LookupIdentity(ctx context.Context, username string) (*IdentityRecord, error) {
	record, err := v.store.FindByUsername(ctx, username)
	if err != nil {
		if goerrors.Is(err, ErrIdentityNotFound) || goerrors.IsNotFound(err) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	if record == nil {
		return nil, ErrUnknownUser
	}

	return record, nil
}

// burn runs a comparison we know will fail
func (v *CredentialVerifier) burn(plaintext string) {
	_ = v.passwords.ComparePasswordAndHash(plaintext, v.dummyHash)
}
