package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"piggybank/internal/database"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/repository"
	"piggybank/internal/security"
	"piggybank/internal/validation"
)

// AuthResult is a successful authentication: the session token plus the
// principal it was issued for. Exactly one of Parent and Child is set.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Principal models.Principal
	Family    *models.Family
	Parent    *models.Parent
	Child     *models.Child
}

// Profile describes the principal behind a session
type Profile struct {
	Principal models.Principal
	Family    *models.Family
	Parent    *models.Parent
	Child     *models.Child
}

// RegisterInput holds the fields of a new family registration
type RegisterInput struct {
	FamilyName string
	ParentName string
	Username   string
	Password   string
}

// AuthService authenticates parents and children, issues session tokens
// and resolves them back into principals.
type AuthService struct {
	db        *database.DB
	families  *repository.FamilyRepository
	parents   *repository.ParentRepository
	children  *repository.ChildRepository
	sessions  *repository.SessionRepository
	tokens    *security.TokenIssuer
	passwords security.Hasher
	pins      security.Hasher
	lockout   *security.LoginLockout
	logger    *log.Logger
	now       Clock

	dummyOnce     sync.Once
	dummyPassword string
	dummyPIN      string
}

// NewAuthService creates a new auth service. A nil lockout disables
// per-account failure counting.
func NewAuthService(db *database.DB, tokens *security.TokenIssuer, passwords, pins security.Hasher, lockout *security.LoginLockout, logger *log.Logger) *AuthService {
	return &AuthService{
		db:        db,
		families:  repository.NewFamilyRepository(db),
		parents:   repository.NewParentRepository(db),
		children:  repository.NewChildRepository(db),
		sessions:  repository.NewSessionRepository(db),
		tokens:    tokens,
		passwords: passwords,
		pins:      pins,
		lockout:   lockout,
		logger:    logger.WithComponent(log.ComponentAuth),
		now:       SystemClock,
	}
}

// RegisterFamily creates a family together with its owner and signs the owner in
func (s *AuthService) RegisterFamily(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.FamilyName = strings.TrimSpace(in.FamilyName)
	in.ParentName = strings.TrimSpace(in.ParentName)
	in.Username = strings.TrimSpace(in.Username)

	if err := validation.ValidateName("family_name", in.FamilyName); err != nil {
		return nil, err
	}
	if err := validation.ValidateName("name", in.ParentName); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	// Hash outside the transaction so no lock is held during bcrypt
	passwordHash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	var family *models.Family
	var owner *models.Parent

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		family, err = s.families.WithTx(tx).CreateFamily(ctx, in.FamilyName, now)
		if err != nil {
			return err
		}
		owner, err = s.parents.WithTx(tx).CreateParent(ctx, family.ID, in.Username, in.ParentName, passwordHash, models.RoleOwner, now)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrUsernameTaken
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "family registered", log.FieldFamilyID, family.ID, log.FieldParentID, owner.ID)

	result, err := s.IssueSession(ctx, parentPrincipal(owner))
	if err != nil {
		return nil, err
	}
	result.Family = family
	result.Parent = owner
	return result, nil
}

// LoginParent authenticates a parent by username and password
func (s *AuthService) LoginParent(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	key := lockoutKey(models.PrincipalParent, username)
	if wait := s.lockout.Check(key); wait > 0 {
		return nil, tooManyAttempts(wait)
	}

	parent, err := s.parents.GetParentByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		s.burnPassword(password)
		s.loginFailed(ctx, key)
		return nil, ErrInvalidCredentials
	}
	if !s.passwords.Compare(parent.PasswordHash, password) {
		s.loginFailed(ctx, key)
		return nil, ErrInvalidCredentials
	}

	result, err := s.IssueSession(ctx, parentPrincipal(parent))
	if err != nil {
		return nil, err
	}
	s.lockout.Succeed(key)
	result.Parent = parent
	return result, nil
}

// LoginChild authenticates a child by username and 4-digit PIN. Failures
// count against the username whether or not it exists.
func (s *AuthService) LoginChild(ctx context.Context, username, pin string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	key := lockoutKey(models.PrincipalChild, username)
	if wait := s.lockout.Check(key); wait > 0 {
		return nil, tooManyAttempts(wait)
	}

	child, err := s.children.GetChildByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if child == nil || validation.ValidatePIN(pin) != nil {
		s.burnPIN(pin)
		s.loginFailed(ctx, key)
		return nil, ErrInvalidCredentials
	}
	if !s.pins.Compare(child.PINHash, pin) {
		s.loginFailed(ctx, key)
		return nil, ErrInvalidCredentials
	}

	result, err := s.IssueSession(ctx, childPrincipal(child))
	if err != nil {
		return nil, err
	}
	s.lockout.Succeed(key)
	result.Child = child
	return result, nil
}

func (s *AuthService) loginFailed(ctx context.Context, key string) {
	s.lockout.Fail(key)
	if s.lockout.Check(key) > 0 {
		s.logger.WarnContext(ctx, "sign-in locked after repeated failures", "account", key)
	}
}

func lockoutKey(kind models.PrincipalKind, username string) string {
	return string(kind) + ":" + strings.ToLower(username)
}

// IssueSession signs a token for p and records it for revocation
func (s *AuthService) IssueSession(ctx context.Context, p models.Principal) (*AuthResult, error) {
	issued, err := s.tokens.Issue(p)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:          issued.SessionID,
		Kind:        p.Kind,
		PrincipalID: p.ID,
		FamilyID:    p.FamilyID,
		CreatedAt:   issued.IssuedAt,
		ExpiresAt:   issued.ExpiresAt,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	p.SessionID = issued.SessionID
	p.ExpiresAt = issued.ExpiresAt
	return &AuthResult{Token: issued.Token, ExpiresAt: issued.ExpiresAt, Principal: p}, nil
}

// Authenticate resolves a bearer token into its principal after checking
// signature, expiry and revocation.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	principal, err := s.tokens.Parse(token)
	if err != nil {
		return models.Principal{}, ErrSessionInvalid
	}

	session, err := s.sessions.GetSession(ctx, principal.SessionID)
	if err != nil {
		return models.Principal{}, err
	}
	if session == nil || !session.IsActive() ||
		session.PrincipalID != principal.ID || session.Kind != principal.Kind {
		return models.Principal{}, ErrSessionInvalid
	}

	return principal, nil
}

// Logout revokes the session behind p
func (s *AuthService) Logout(ctx context.Context, p models.Principal) error {
	if err := s.sessions.RevokeSession(ctx, p.SessionID, s.now()); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// Me loads the profile of the authenticated principal
func (s *AuthService) Me(ctx context.Context, p models.Principal) (*Profile, error) {
	family, err := s.families.GetFamilyByID(ctx, p.FamilyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	profile := &Profile{Principal: p, Family: family}
	switch p.Kind {
	case models.PrincipalParent:
		parent, err := s.parents.GetParentByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrSessionInvalid
		}
		profile.Parent = parent
	case models.PrincipalChild:
		child, err := s.children.GetChildByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, ErrSessionInvalid
		}
		profile.Child = child
	}
	return profile, nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// burnPassword spends the same bcrypt work as a real comparison so
// unknown usernames cannot be told apart by response time.
func (s *AuthService) burnPassword(password string) {
	s.initDummies()
	s.passwords.Compare(s.dummyPassword, password)
}

func (s *AuthService) burnPIN(pin string) {
	s.initDummies()
	s.pins.Compare(s.dummyPIN, pin)
}

func (s *AuthService) initDummies() {
	s.dummyOnce.Do(func() {
		s.dummyPassword, _ = s.passwords.Hash("piggybank-unknown-user")
		s.dummyPIN, _ = s.pins.Hash("0000")
	})
}

func parentPrincipal(p *models.Parent) models.Principal {
	return models.Principal{Kind: models.PrincipalParent, ID: p.ID, FamilyID: p.FamilyID, Role: p.Role}
}

func childPrincipal(c *models.Child) models.Principal {
	return models.Principal{Kind: models.PrincipalChild, ID: c.ID, FamilyID: c.FamilyID}
}
