package kvauth

import (
	"context"
	"errors"
	"net/mail"
	"unicode"
	"unicode/utf8"

	"github.com/MrEthical07/kvauth/internal"
	"github.com/MrEthical07/kvauth/internal/stores"
	"github.com/MrEthical07/kvauth/password"
)

// Register creates a user and returns its generated id.
//
// The four user keys (username, email, password hash, username index) are
// written in one MULTI/EXEC guarded by WATCH on the username index, so two
// concurrent registrations of the same username yield exactly one account.
// A taken username fails with [ErrDuplicateAccount]; a store failure leaves
// nothing behind and fails with [ErrStorageFailure].
//
//	Performance: 1 argon2 hash, WATCH + 2 GET + MULTI/EXEC.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	if err := e.validateUsername(req.Username); err != nil {
		e.metricInc(MetricRegisterFailure)
		return "", err
	}
	if err := validateEmail(req.Email); err != nil {
		e.metricInc(MetricRegisterFailure)
		return "", err
	}
	hash, err := e.hashPassword(req.Password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		return "", err
	}

	userID, err := internal.NewUserID()
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		return "", err
	}

	err = e.accounts.Create(ctx, stores.AccountRecord{
		UserID:       userID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, stores.ErrUsernameTaken) {
			e.metricInc(MetricRegisterDuplicate)
			return "", ErrDuplicateAccount
		}
		e.metricInc(MetricRegisterFailure)
		e.logger.Error().Err(err).Msg("register: store write failed")
		return "", mapStoreErr(err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.logger.Debug().Str("user_id", userID).Msg("account registered")

	return userID, nil
}

// FindByUsername resolves a username through the secondary index.
func (e *Engine) FindByUsername(ctx context.Context, username string) (string, bool, error) {
	if !e.ready() {
		return "", false, ErrEngineNotReady
	}
	id, ok, err := e.accounts.UserIDByUsername(ctx, username)
	if err != nil {
		return "", false, mapStoreErr(err)
	}
	return id, ok, nil
}

// FindByID returns the current username of userID.
func (e *Engine) FindByID(ctx context.Context, userID string) (string, bool, error) {
	if !e.ready() {
		return "", false, ErrEngineNotReady
	}
	name, ok, err := e.accounts.UsernameByID(ctx, userID)
	if err != nil {
		return "", false, mapStoreErr(err)
	}
	return name, ok, nil
}

// GetAccount returns the account of the authenticated identity.
func (e *Engine) GetAccount(ctx context.Context, id Identity) (Account, error) {
	if !e.ready() {
		return Account{}, ErrEngineNotReady
	}
	if id.UserID == "" {
		return Account{}, ErrUnauthenticated
	}

	rec, err := e.accounts.Get(ctx, id.UserID)
	if err != nil {
		return Account{}, mapStoreErr(err)
	}
	return accountFromRecord(rec), nil
}

// UpdateAccount applies patch to the authenticated user and returns the
// refreshed account. A username change rewrites the username index in the
// same batch; an empty patch returns the current account unchanged.
//
// Errors: [ErrValidation], [ErrDuplicateAccount], [ErrAccountNotFound],
// [ErrStorageFailure].
func (e *Engine) UpdateAccount(ctx context.Context, id Identity, patch AccountPatch) (Account, error) {
	if !e.ready() {
		return Account{}, ErrEngineNotReady
	}
	if id.UserID == "" {
		return Account{}, ErrUnauthenticated
	}
	if patch.Empty() {
		return e.GetAccount(ctx, id)
	}

	var change stores.AccountChange
	if patch.Username != nil {
		if err := e.validateUsername(*patch.Username); err != nil {
			return Account{}, err
		}
		change.Username = patch.Username
	}
	if patch.Email != nil {
		if err := validateEmail(*patch.Email); err != nil {
			return Account{}, err
		}
		change.Email = patch.Email
	}
	if patch.Password != nil {
		hash, err := e.hashPassword(*patch.Password)
		if err != nil {
			return Account{}, err
		}
		change.PasswordHash = &hash
	}

	rec, err := e.accounts.Update(ctx, id.UserID, change)
	if err != nil {
		return Account{}, mapStoreErr(err)
	}

	e.metricInc(MetricAccountUpdated)
	e.logger.Debug().
		Str("user_id", id.UserID).
		Bool("username", patch.Username != nil).
		Bool("email", patch.Email != nil).
		Bool("password", patch.Password != nil).
		Msg("account updated")

	return accountFromRecord(rec), nil
}

// DeleteAccount removes every key of the authenticated user, including its
// username index entry and both session pointers, in one batch. Deleting an
// already removed account is not an error.
func (e *Engine) DeleteAccount(ctx context.Context, id Identity) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if id.UserID == "" {
		return ErrUnauthenticated
	}

	existed, err := e.accounts.Delete(ctx, id.UserID, id.SessionID)
	if err != nil {
		return mapStoreErr(err)
	}

	if existed {
		e.metricInc(MetricAccountDeleted)
		e.logger.Debug().Str("user_id", id.UserID).Msg("account deleted")
	}
	return nil
}

func accountFromRecord(rec *stores.AccountRecord) Account {
	return Account{
		UserID:   rec.UserID,
		Username: rec.Username,
		Email:    rec.Email,
	}
}

func (e *Engine) validateUsername(username string) error {
	if username == "" {
		return validationError("username is required")
	}
	if len(username) > e.config.Account.MaxUsernameLength {
		return validationError("username exceeds %d bytes", e.config.Account.MaxUsernameLength)
	}
	if !utf8.ValidString(username) {
		return validationError("username is not valid UTF-8")
	}
	for _, r := range username {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return validationError("username contains whitespace or control characters")
		}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return validationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return validationError("email is not a valid address")
	}
	return nil
}

func (e *Engine) hashPassword(pw string) (string, error) {
	if len(pw) < e.config.Account.MinPasswordLength {
		return "", validationError("password must be at least %d bytes", e.config.Account.MinPasswordLength)
	}

	hash, err := e.passwordHash.Hash(pw)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return "", validationError("password is too long")
		}
		return "", err
	}
	return hash, nil
}
