// Package services holds the server's business logic: the session manager
// over accounts and refresh tokens, and the travel project and place services.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/dbx"
	"github.com/dmitrijs2005/travelkeeper/internal/logging"
	"github.com/dmitrijs2005/travelkeeper/internal/server/auth"
	"github.com/dmitrijs2005/travelkeeper/internal/server/config"
	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/repomanager"
)

// LogoutMessage confirms a logout.
const LogoutMessage = "Successfully logged out from all devices"

// AccountView is the public part of an account.
type AccountView struct {
	ID    string
	Email string
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// SessionManager implements registration, login, logout, access token
// refresh and current-user resolution. An account has at most one refresh
// token record; login replaces it and logout removes it.
type SessionManager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.TokenCodec
	hasher      *auth.PasswordHasher
	passwords   PasswordPolicy
	emails      *EmailPolicy
	accessTTL   time.Duration
	refreshTTL  time.Duration
	log         logging.Logger
	now         func() time.Time
}

func NewSessionManager(db *sql.DB, m repomanager.RepositoryManager, codec *auth.TokenCodec,
	hasher *auth.PasswordHasher, cfg *config.Config, log logging.Logger) *SessionManager {
	return &SessionManager{
		db:          db,
		repomanager: m,
		codec:       codec,
		hasher:      hasher,
		passwords:   PasswordPolicyFromConfig(cfg),
		emails:      NewEmailPolicy(cfg.DisposableEmailDomains),
		accessTTL:   cfg.AccessTokenValidityDuration,
		refreshTTL:  cfg.RefreshTokenValidityDuration,
		log:         log.With("module", "sessions"),
		now:         time.Now,
	}
}

// Register creates an account for email and password.
func (s *SessionManager) Register(ctx context.Context, email, password string) (*AccountView, error) {
	email, err := s.emails.Normalize(email)
	if err != nil {
		return nil, err
	}
	if err := s.passwords.Check(password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err = repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrAccountAlreadyExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, common.StorageError(err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, common.NewValidationError("password", err.Error())
		}
		return nil, err
	}

	user, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: digest})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrAccountAlreadyExists
		}
		return nil, common.StorageError(err)
	}

	s.log.Info(ctx, "account registered", "user_id", user.ID)
	return &AccountView{ID: user.ID, Email: user.Email}, nil
}

// Login verifies the credentials and starts a new session, dropping any
// previous one. Unknown email and wrong password fail identically.
func (s *SessionManager) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var pair *TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		user, err := users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.hasher.VerifyDummy(password)
				return common.ErrInvalidCredentials
			}
			return err
		}

		if !s.hasher.Verify(password, user.PasswordHash) {
			return common.ErrInvalidCredentials
		}

		// concurrent logins of one account queue here; the last to commit wins
		if _, err := users.LockByID(ctx, user.ID); err != nil {
			return err
		}

		tokens := s.repomanager.RefreshTokens(tx)
		if _, err := tokens.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}

		subject := auth.Subject{UserID: user.ID, Email: user.Email}

		access, err := s.codec.IssueAccess(subject, s.accessTTL)
		if err != nil {
			return err
		}
		refresh, err := s.codec.IssueRefresh(subject, s.refreshTTL)
		if err != nil {
			return err
		}

		if err := tokens.Create(ctx, user.ID, refresh.Token, refresh.ExpiresAt); err != nil {
			return err
		}

		pair = &TokenPair{
			AccessToken:  access.Token,
			RefreshToken: refresh.Token,
			TokenType:    common.TokenTypeBearer,
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, err
		}
		s.log.Error(ctx, "session establishment failed", "error", err)
		return nil, common.ErrSessionEstablishmentFailed
	}

	return pair, nil
}

// Logout removes every refresh token of the account. It succeeds when there
// was nothing to remove.
func (s *SessionManager) Logout(ctx context.Context, accountID string) (string, error) {
	var removed int64

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, accountID)
		removed = n
		return err
	})
	if err != nil {
		return "", common.StorageError(err)
	}

	s.log.Info(ctx, "logged out", "user_id", accountID, "sessions", removed)
	return LogoutMessage, nil
}

// RefreshAccessToken issues a new access token for a stored refresh token.
// The refresh token itself is not rotated. A stored token that fails
// validation or has expired is deleted.
func (s *SessionManager) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.ErrInvalidRefreshToken
	}

	var (
		access string
		stale  bool
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tokens := s.repomanager.RefreshTokens(tx)

		record, err := tokens.FindByToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidRefreshToken
			}
			return err
		}

		claims, err := s.codec.DecodeRefresh(refreshToken)
		if err != nil || record.Expired(s.now()) {
			// the delete has to be committed, so the failure is reported after the tx
			if err := tokens.Delete(ctx, refreshToken); err != nil {
				return err
			}
			stale = true
			return nil
		}

		if claims.UserID == "" || claims.Email == "" || claims.UserID != record.UserID {
			return common.ErrInvalidRefreshToken
		}

		issued, err := s.codec.IssueAccess(claims.Identity(), s.accessTTL)
		if err != nil {
			return err
		}
		access = issued.Token
		return nil
	})

	if err != nil {
		return "", classify(err)
	}
	if stale {
		s.log.Info(ctx, "stale refresh token removed")
		return "", common.ErrInvalidRefreshToken
	}

	return access, nil
}

// ResolveCurrentUser returns the account id behind a valid access token,
// provided the account still exists and has a live session.
func (s *SessionManager) ResolveCurrentUser(ctx context.Context, accessToken string) (string, error) {
	claims, err := s.codec.DecodeAccess(accessToken)
	if err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrAccountNotFound
		}
		return "", common.StorageError(err)
	}

	active, err := s.repomanager.RefreshTokens(s.db).ListActiveByUser(ctx, user.ID, s.now())
	if err != nil {
		return "", common.StorageError(err)
	}
	if len(active) == 0 {
		return "", common.ErrAccountLoggedOut
	}

	return user.ID, nil
}

// GetAccount returns the public view of an account.
func (s *SessionManager) GetAccount(ctx context.Context, accountID string) (*AccountView, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccountNotFound
		}
		return nil, common.StorageError(err)
	}
	return &AccountView{ID: user.ID, Email: user.Email}, nil
}

// DeleteAccount removes the account together with its refresh tokens.
func (s *SessionManager) DeleteAccount(ctx context.Context, accountID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		if _, err := users.LockByID(ctx, accountID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrAccountNotFound
			}
			return err
		}
		if _, err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, accountID); err != nil {
			return err
		}
		if err := users.Delete(ctx, accountID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrAccountNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.log.Info(ctx, "account deleted", "user_id", accountID)
	return nil
}
