package service

import (
	"context"
	"errors"
	"strings"

	"learnhub/config"
	"learnhub/internal/auth"
	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenPair is returned by every successful sign-in.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService struct {
	cfg         *config.Config
	db          *gorm.DB
	userRepo    *repository.UserRepository
	auditRepo   *repository.AuditLogRepository
	affiliates  *AffiliateService
	attribution *AttributionService
}

func NewAuthService(cfg *config.Config, db *gorm.DB, userRepo *repository.UserRepository, auditRepo *repository.AuditLogRepository, affiliates *AffiliateService, attribution *AttributionService) *AuthService {
	return &AuthService{cfg: cfg, db: db, userRepo: userRepo, auditRepo: auditRepo, affiliates: affiliates, attribution: attribution}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) issue(u *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Register creates a parent account. A valid attribution token links the account to its
// affiliate for good and converts the click, in the same transaction as the user row.
func (s *AuthService) Register(ctx context.Context, name, email, password, attributionToken string) (*models.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, err
	}
	u := &models.User{Name: strings.TrimSpace(name), Email: email, PasswordHash: hash, Role: domain.RoleParent}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		if err := ensureEmailFree(users, email); err != nil {
			return err
		}
		if err := users.Create(u); err != nil {
			return err
		}
		return s.attribution.Attribute(tx, attributionToken, u.ID)
	})
	if err != nil {
		return nil, nil, err
	}
	if fresh, err := s.userRepo.GetByID(u.ID); err == nil {
		u = fresh
	}
	tokens, err := s.issue(u)
	if err != nil {
		return u, nil, err
	}
	return u, tokens, nil
}

func (s *AuthService) Login(email, password string) (*models.User, *TokenPair, error) {
	u, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrInvalidCreds
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCreds
	}
	tokens, err := s.issue(u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, domain.Validation("invalid refresh token")
	}
	u, err := s.userRepo.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// ChangePassword updates the user's password. Requires current password verification.
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return domain.ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.ErrInvalidCreds
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.userRepo.Update(u)
}

func validRole(role string) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleParent, domain.RoleTeacher, domain.RoleAffiliate:
		return true
	}
	return false
}

// CreateUser is the admin path for accounts of any role. AFFILIATE users get their affiliate
// profile with default rates and a fresh code in the same transaction.
func (s *AuthService) CreateUser(ctx context.Context, adminID uint, name, email, password, role string) (*models.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !validRole(role) {
		return nil, domain.Validation("unknown role " + role)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Name: strings.TrimSpace(name), Email: email, PasswordHash: hash, Role: role}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		if err := ensureEmailFree(users, email); err != nil {
			return err
		}
		if err := users.Create(u); err != nil {
			return err
		}
		meta := map[string]interface{}{"role": role}
		if role == domain.RoleAffiliate {
			a, err := s.affiliates.CreateForUser(tx, u.ID, nil)
			if err != nil {
				return err
			}
			meta["affiliate_id"] = a.ID
		}
		return recordAudit(s.auditRepo.WithTx(tx), adminID, "user.created", "user", u.ID, meta)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func ensureEmailFree(users *repository.UserRepository, email string) error {
	_, err := users.GetByEmail(email)
	if err == nil {
		return domain.ErrEmailExists
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
