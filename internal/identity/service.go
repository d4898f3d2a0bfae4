package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/skundu/blood-market/internal/domain"
)

type Service struct {
	repo     *Repository
	sessions *SessionStore
}

func NewService(repo *Repository, sessions *SessionStore) *Service {
	return &Service{repo: repo, sessions: sessions}
}

type SignupInput struct {
	Role     domain.Role
	FullName string
	Email    string
	Phone    string
	Password string
	Confirm  string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (int64, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := validateSignup(in); err != nil {
		return 0, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return 0, err
	}

	return s.repo.CreateAccount(ctx, &domain.User{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         in.Role,
	})
}

// Login verifies credentials and issues a session token. Wrong email and
// wrong password are deliberately indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, domain.Validationf("provide email and password")
	}

	u, err := s.repo.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.Validationf("invalid email or password")
		}
		return "", nil, err
	}

	if !VerifyPassword(password, u.PasswordHash) {
		return "", nil, domain.Validationf("invalid email or password")
	}

	token, err := s.sessions.Create(ctx, domain.Actor{UserID: u.ID, Role: u.Role})
	if err != nil {
		return "", nil, err
	}

	return token, u, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

func validateSignup(in SignupInput) error {
	if in.Role != domain.RoleCustomer && in.Role != domain.RoleRetailer {
		return domain.Validationf("role must be customer or retailer")
	}
	if in.FullName == "" || in.Email == "" || in.Phone == "" || in.Password == "" {
		return domain.Validationf("please fill all fields")
	}
	if in.Password != in.Confirm {
		return domain.Validationf("passwords do not match")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return domain.Validationf("invalid email format")
	}
	if !validPhone(in.Phone) {
		return domain.Validationf("invalid phone number (must include +country code)")
	}
	return nil
}

func validPhone(phone string) bool {
	if len(phone) < 11 || !strings.HasPrefix(phone, "+") {
		return false
	}
	for _, r := range phone[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
