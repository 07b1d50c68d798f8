package services

import (
	"context"
	"net/mail"
	"strings"

	"govportal/internal/auth"
	"govportal/internal/models"
	"govportal/internal/store"

	"go.uber.org/zap"
)

const minPasswordLen = 6

type SignupInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// GoogleProfile is the subset of the Google userinfo response we use.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

type AccountService struct {
	stores *store.Selector
	log    *zap.Logger
}

func NewAccountService(stores *store.Selector, log *zap.Logger) *AccountService {
	return &AccountService{stores: stores, log: log}
}

// Signup creates a password account. Admin accounts cannot be self-created.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, invalid("name, email and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalid("email address is not valid")
	}
	if len(in.Password) < minPasswordLen {
		return nil, invalid("password must be at least %d characters", minPasswordLen)
	}
	if in.Role != models.RoleUser && in.Role != models.RoleCandidate {
		return nil, invalid("role must be user or candidate")
	}

	primary := s.stores.Primary(ctx)
	if primary == nil {
		return nil, ErrStoreUnavailable
	}
	if _, err := primary.FindUserByEmail(ctx, in.Email); err == nil {
		return nil, duplicate("an account with this email already exists")
	} else if !isNotFound(err) {
		return nil, unavailable(s.log, "find user", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Provider:     "credentials",
	}
	if err := primary.CreateUser(ctx, u); err != nil {
		if isDuplicate(err) {
			return nil, duplicate("an account with this email already exists")
		}
		return nil, unavailable(s.log, "create user", err)
	}
	s.log.Info("user signed up", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login checks a password against the selected store.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}
	st, _ := s.stores.Select(ctx)
	u, err := st.FindUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, unavailable(s.log, "find user", err)
	}
	if u.PasswordHash == "" {
		return nil, invalid("this account uses Google sign-in")
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GoogleSignIn finds or creates the account for a verified Google profile.
// New accounts always get role user.
func (s *AccountService) GoogleSignIn(ctx context.Context, p GoogleProfile) (*models.User, error) {
	if !p.VerifiedEmail {
		return nil, invalid("google email is not verified")
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" || p.ID == "" {
		return nil, invalid("google profile is incomplete")
	}
	primary := s.stores.Primary(ctx)
	if primary == nil {
		return nil, ErrStoreUnavailable
	}

	u, err := primary.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if u.GoogleID != p.ID || u.Image != p.Picture || (p.Name != "" && u.Name != p.Name) {
			u.GoogleID = p.ID
			u.Image = p.Picture
			if p.Name != "" {
				u.Name = p.Name
			}
			if err := primary.UpdateUser(ctx, u); err != nil {
				return nil, unavailable(s.log, "update user", err)
			}
		}
		return u, nil
	case !isNotFound(err):
		return nil, unavailable(s.log, "find user", err)
	}

	name := p.Name
	if name == "" {
		name = p.GivenName
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	u = &models.User{
		Name:     name,
		Email:    email,
		Role:     models.RoleUser,
		Provider: "google",
		GoogleID: p.ID,
		Image:    p.Picture,
	}
	if err := primary.CreateUser(ctx, u); err != nil {
		return nil, unavailable(s.log, "create user", err)
	}
	s.log.Info("google user created", zap.String("user_id", u.ID))
	return u, nil
}

// Profile loads the account behind an identity.
func (s *AccountService) Profile(ctx context.Context, id *auth.Identity) (*models.User, error) {
	st, src := s.stores.Select(ctx)
	u, err := st.FindUserByID(ctx, id.ID)
	if err != nil && src == store.SourceLive {
		u, err = s.stores.Fallback().FindUserByID(ctx, id.ID)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, unavailable(s.log, "find user", err)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	primary := s.stores.Primary(ctx)
	if primary == nil {
		return ErrStoreUnavailable
	}
	if _, err := primary.FindUserByEmail(ctx, email); err == nil {
		return nil
	} else if !isNotFound(err) {
		return unavailable(s.log, "find user", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u := &models.User{Name: "Administrator", Email: email, PasswordHash: hash, Role: models.RoleAdmin, Provider: "credentials"}
	if err := primary.CreateUser(ctx, u); err != nil && !isDuplicate(err) {
		return unavailable(s.log, "create admin", err)
	}
	s.log.Info("bootstrap admin ensured", zap.String("email", email))
	return nil
}
