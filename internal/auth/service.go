package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge-app/taskforge/internal/shared"
)

// TokenPair bundles the credentials returned on login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *Tokens
	refresh *RefreshStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *Tokens, refresh *RefreshStore) *Service {
	return &Service{repo: repo, tokens: tokens, refresh: refresh}
}

// Login validates email/password credentials and issues a token pair.
// Every failure collapses to ErrInvalidCredentials so the response does
// not reveal whether the account exists.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// Refresh redeems a refresh token and issues a fresh pair. The old
// refresh token is revoked before the new one is minted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.refresh.Redeem(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, ErrTokenInvalid
	}
	return s.issue(ctx, user)
}

// Logout revokes a refresh token. Access tokens simply expire.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}

func (s *Service) issue(ctx context.Context, user *User) (*TokenPair, error) {
	access, err := s.tokens.Issue(user, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh.Mint(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.TTL().Seconds()),
	}, nil
}
