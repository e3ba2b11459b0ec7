package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bakehouse-next/internal/cache"
	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 员工认证与顾客 Token 解析
type AuthService struct {
	cfg       *config.Config
	staffRepo repository.StaffRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, staffRepo repository.StaffRepository) *AuthService {
	return &AuthService{
		cfg:       cfg,
		staffRepo: staffRepo,
	}
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// StaffJWTClaims 员工 JWT 声明
type StaffJWTClaims struct {
	StaffID      uint   `json:"staff_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// CustomerJWTClaims 顾客 JWT 声明（由外部身份服务签发）
type CustomerJWTClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// GenerateStaffJWT 生成员工 JWT Token
func (s *AuthService) GenerateStaffJWT(staff *models.StaffMember) (string, time.Time, error) {
	hours := s.cfg.JWT.ExpireHours
	if hours <= 0 {
		hours = 12
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := StaffJWTClaims{
		StaffID:      staff.ID,
		Username:     staff.Username,
		TokenVersion: staff.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseStaffJWT 解析员工 JWT Token
func (s *AuthService) ParseStaffJWT(tokenString string) (*StaffJWTClaims, error) {
	claims := &StaffJWTClaims{}
	if err := parseHS256(tokenString, s.cfg.JWT.SecretKey, claims); err != nil {
		return nil, err
	}
	if claims.StaffID == 0 {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// GenerateCustomerJWT 签发顾客 Token（种子数据与测试使用）
func (s *AuthService) GenerateCustomerJWT(identity CustomerIdentity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Duration(s.customerExpireHours()) * time.Hour
	}
	now := time.Now()
	claims := CustomerJWTClaims{
		Email: strings.ToLower(strings.TrimSpace(identity.Email)),
		Name:  identity.Name,
		Phone: identity.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.CustomerJWT.SecretKey))
}

// ParseCustomerJWT 解析顾客 Token 得到身份
func (s *AuthService) ParseCustomerJWT(tokenString string) (*CustomerIdentity, error) {
	if strings.TrimSpace(s.cfg.CustomerJWT.SecretKey) == "" {
		return nil, ErrUnauthorized
	}
	claims := &CustomerJWTClaims{}
	if err := parseHS256(tokenString, s.cfg.CustomerJWT.SecretKey, claims); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, ErrUnauthorized
	}
	return &CustomerIdentity{Email: claims.Email, Name: claims.Name, Phone: claims.Phone}, nil
}

func (s *AuthService) customerExpireHours() int {
	if s.cfg.CustomerJWT.ExpireHours > 0 {
		return s.cfg.CustomerJWT.ExpireHours
	}
	return 24 * 7
}

func parseHS256(tokenString, secret string, claims jwt.Claims) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return errors.Join(ErrUnauthorized, err)
	}
	if !token.Valid {
		return ErrUnauthorized
	}
	return nil
}

// Login 员工登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.StaffMember, string, time.Time, error) {
	staff, err := s.staffRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if staff == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if !staff.IsActive {
		return nil, "", time.Time{}, ErrStaffDisabled
	}

	token, expiresAt, err := s.GenerateStaffJWT(staff)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	staff.LastLoginAt = &now
	if err := s.staffRepo.TouchLastLogin(staff.ID, now); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetStaffAuthState(ctx, cache.BuildStaffAuthState(staff))
	return staff, token, expiresAt, nil
}

// AuthenticateStaff 校验员工 Token 与账号状态，优先读取缓存快照
func (s *AuthService) AuthenticateStaff(ctx context.Context, tokenString string) (*StaffJWTClaims, error) {
	claims, err := s.ParseStaffJWT(tokenString)
	if err != nil {
		return nil, err
	}
	if cached, hit, cacheErr := cache.GetStaffAuthState(ctx, claims.StaffID); cacheErr == nil && hit && cached != nil {
		if !cached.IsActive {
			return nil, ErrStaffDisabled
		}
		if cached.TokenVersion != claims.TokenVersion {
			return nil, ErrUnauthorized
		}
		return claims, nil
	}
	staff, err := s.staffRepo.GetByID(claims.StaffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, ErrUnauthorized
	}
	if !staff.IsActive {
		return nil, ErrStaffDisabled
	}
	if staff.TokenVersion != claims.TokenVersion {
		return nil, ErrUnauthorized
	}
	_ = cache.SetStaffAuthState(ctx, cache.BuildStaffAuthState(staff))
	return claims, nil
}
