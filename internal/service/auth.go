// Package service holds the account and note use cases. Handlers call into
// it; it calls the repositories, the password hasher and the token service.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/logging"
	"github.com/iliyamo/notes-backend/internal/metrics"
	"github.com/iliyamo/notes-backend/internal/model"
	"github.com/iliyamo/notes-backend/internal/queue"
	"github.com/iliyamo/notes-backend/internal/repository"
	"github.com/iliyamo/notes-backend/internal/utils"
)

// TokenTypeBearer is the fixed token_type returned by Login.
const TokenTypeBearer = "bearer"

// dummyPassword is hashed once and compared against when a login names an
// unknown user, so both failure paths pay for one bcrypt comparison.
const dummyPassword = "notes-backend-timing-equalizer"

// Hasher is the password hashing contract, satisfied by utils.PasswordHasher.
type Hasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, digest string) bool
}

// Tokens is the bearer token contract, satisfied by utils.TokenService.
type Tokens interface {
	Issue(subject string, ttl time.Duration) (utils.AccessToken, error)
	Verify(raw string) (string, error)
	DefaultTTL() time.Duration
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username string
	Email    string
	FullName *string
	Password string
}

// AccountService implements login, registration and identity resolution.
type AccountService struct {
	users   repository.UserDirectory
	hasher  Hasher
	tokens  Tokens
	events  EventPublisher
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAccountService wires the service. events, m and log may be nil.
func NewAccountService(users repository.UserDirectory, hasher Hasher, tokens Tokens, events EventPublisher, m *metrics.Metrics, log *zap.Logger) *AccountService {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		events:  events,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		// not bound to a request: a cancelled first caller must not leave
		// the digest empty for everyone after it
		d, err := s.hasher.Hash(context.Background(), dummyPassword)
		if err != nil {
			s.log.Warn("dummy digest unavailable", zap.Error(err))
			return
		}
		s.dummyDigest = d
	})
	return s.dummyDigest
}

// Login exchanges a username and password for a bearer token. An unknown
// username and a wrong password both yield ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, username, password string) (Token, error) {
	u, err := s.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		s.hasher.Verify(ctx, password, s.dummy())
		s.metrics.AuthOutcome("login", Reason(ErrInvalidCredentials))
		return Token{}, ErrInvalidCredentials
	case err != nil:
		return Token{}, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(ctx, password, u.PasswordHash) {
		s.metrics.AuthOutcome("login", Reason(ErrInvalidCredentials))
		return Token{}, ErrInvalidCredentials
	}

	at, err := s.tokens.Issue(u.ID.String(), s.tokens.DefaultTTL())
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	s.metrics.AuthOutcome("login", "success")
	return Token{AccessToken: at.Token, TokenType: TokenTypeBearer, ExpiresAt: at.Exp}, nil
}

// Register creates an active account. The username pre-check gives the
// common case a clear error; the directory's unique indexes catch races and
// duplicate emails.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if _, err := s.users.FindByUsername(ctx, in.Username); err == nil {
		s.metrics.AuthOutcome("register", Reason(ErrUsernameTaken))
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	today := model.Today(s.now())
	u := &model.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Active:       true,
		PasswordHash: digest,
		CreatedAt:    today,
		UpdatedAt:    today,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			err = ErrUsernameTaken
		case errors.Is(err, repository.ErrEmailTaken):
			err = ErrEmailTaken
		default:
			return nil, fmt.Errorf("insert user: %w", err)
		}
		s.metrics.AuthOutcome("register", Reason(err))
		return nil, err
	}

	s.metrics.AuthOutcome("register", "success")
	s.publish(ctx, queue.Event{Type: queue.UserRegistered, UserID: u.ID.String()})
	return u, nil
}

// ResolveCurrentUser verifies raw and loads the user it names. Every
// failure, including a subject with no matching user, is reported as
// ErrUnauthenticated wrapping the internal reason.
func (s *AccountService) ResolveCurrentUser(ctx context.Context, raw string) (*model.User, error) {
	if raw == "" {
		return nil, s.unauthenticated(ErrMissingToken)
	}
	sub, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, s.unauthenticated(err)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, s.unauthenticated(utils.ErrMalformedToken)
	}
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, s.unauthenticated(ErrUnknownSubject)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *AccountService) unauthenticated(reason error) error {
	s.metrics.AuthOutcome("resolve", Reason(reason))
	return fmt.Errorf("%w: %w", ErrUnauthenticated, reason)
}

// RequireActive passes u through unless the account is disabled. It is the
// last step of resolving a caller, so it records the resolve outcome.
func (s *AccountService) RequireActive(u *model.User) (*model.User, error) {
	if !u.Active {
		s.metrics.AuthOutcome("resolve", Reason(ErrAccountDisabled))
		return nil, ErrAccountDisabled
	}
	s.metrics.AuthOutcome("resolve", "success")
	return u, nil
}

// Authenticate is ResolveCurrentUser followed by RequireActive, the
// precondition of every protected endpoint.
func (s *AccountService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	u, err := s.ResolveCurrentUser(ctx, raw)
	if err != nil {
		return nil, err
	}
	return s.RequireActive(u)
}

// SetActive enables or disables an account.
func (s *AccountService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Active = active
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AccountService) publish(ctx context.Context, ev queue.Event) {
	ev.ID = uuid.NewString()
	ev.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx, s.log).Warn("event publish failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
