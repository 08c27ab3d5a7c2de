package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"valet_parking/internal/domain"
	"valet_parking/internal/repository"
)

var ErrInvalidCredentials = errors.New("email hoặc mật khẩu không đúng")
var ErrUserAlreadyExists = errors.New("email đã được đăng ký")
var ErrTokenInvalid = errors.New("token không hợp lệ hoặc đã hết hạn")

// AuthService là dịch vụ danh tính: đăng ký, đăng nhập, đăng xuất và kiểm tra token.
type AuthService struct {
	employeeRepo       repository.EmployeeRepository
	jwtSecret          string
	jwtExpirationHours time.Duration
	now                func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> hạn của token
}

func NewAuthService(employeeRepo repository.EmployeeRepository, jwtSecret string, jwtExpHours time.Duration) *AuthService {
	return &AuthService{
		employeeRepo:       employeeRepo,
		jwtSecret:          jwtSecret,
		jwtExpirationHours: jwtExpHours,
		now:                time.Now,
		revoked:            make(map[string]time.Time),
	}
}

// Register tạo hồ sơ nhân viên. Role mặc định là valet.
func (s *AuthService) Register(ctx context.Context, dto domain.RegisterEmployeeDTO) (*domain.EmployeeProfile, error) {
	if err := validateStruct(dto); err != nil {
		return nil, err
	}
	role := dto.Role
	if role == "" {
		role = domain.RoleValet
	}

	existing, err := s.employeeRepo.FindByEmail(ctx, dto.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, upstream("kiểm tra người dùng", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("lỗi hash mật khẩu: %w", err)
	}

	created, err := s.employeeRepo.Create(ctx, &domain.EmployeeProfile{
		Email:        strings.TrimSpace(dto.Email),
		PasswordHash: string(hashedPassword),
		Role:         role,
		EmployeeName: strings.TrimSpace(dto.EmployeeName),
		RegisteredAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrUserAlreadyExists
		}
		return nil, upstream("tạo người dùng", err)
	}
	created.PasswordHash = ""
	return created, nil
}

// AddEmployee là thao tác của admin: luôn tạo tài khoản valet.
func (s *AuthService) AddEmployee(ctx context.Context, dto domain.RegisterEmployeeDTO) (*domain.EmployeeProfile, error) {
	dto.Role = domain.RoleValet
	return s.Register(ctx, dto)
}

func (s *AuthService) Login(ctx context.Context, dto domain.LoginDTO) (*domain.AuthResponseDTO, error) {
	emp, err := s.employeeRepo.FindByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, upstream("tìm người dùng", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":  emp.ID,
		"jti":  uuid.NewString(),
		"exp":  now.Add(s.jwtExpirationHours).Unix(),
		"iat":  now.Unix(),
		"role": string(emp.Role),
		"name": emp.EmployeeName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo token: %w", err)
	}

	return &domain.AuthResponseDTO{
		Token:        tokenString,
		EmployeeID:   emp.ID,
		EmployeeName: emp.EmployeeName,
		Role:         emp.Role,
	}, nil
}

// Logout thu hồi token cho tới khi nó hết hạn.
func (s *AuthService) Logout(id domain.Identity, expiresAt time.Time) {
	if id.TokenID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for jti, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, jti)
		}
	}
	s.revoked[id.TokenID] = expiresAt
}

func (s *AuthService) isRevoked(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok
}

// ValidateToken dùng cho middleware và WebSocket. Trả về danh tính và thời điểm hết hạn.
func (s *AuthService) ValidateToken(tokenString string) (domain.Identity, time.Time, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("phương thức ký không mong muốn: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return domain.Identity{}, time.Time{}, fmt.Errorf("%w: token có định dạng sai", ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Identity{}, time.Time{}, fmt.Errorf("%w: token đã hết hạn", ErrTokenInvalid)
		}
		return domain.Identity{}, time.Time{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return domain.Identity{}, time.Time{}, ErrTokenInvalid
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	name, _ := claims["name"].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" || !domain.Role(role).Valid() {
		return domain.Identity{}, time.Time{}, fmt.Errorf("%w: thiếu thông tin người dùng", ErrTokenInvalid)
	}
	if jti != "" && s.isRevoked(jti) {
		return domain.Identity{}, time.Time{}, fmt.Errorf("%w: token đã bị thu hồi", ErrTokenInvalid)
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	return domain.Identity{
		EmployeeID:   sub,
		EmployeeName: name,
		Role:         domain.Role(role),
		TokenID:      jti,
	}, expiresAt, nil
}

func (s *AuthService) Profile(ctx context.Context, employeeID string) (*domain.EmployeeProfile, error) {
	emp, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, upstream("tìm người dùng", err)
	}
	emp.PasswordHash = ""
	return emp, nil
}

// ListValets trả về hồ sơ các nhân viên có role valet, cho dashboard admin.
func (s *AuthService) ListValets(ctx context.Context) ([]domain.EmployeeProfile, error) {
	valets, err := s.employeeRepo.FindByRole(ctx, domain.RoleValet)
	if err != nil {
		return nil, upstream("liệt kê valet", err)
	}
	for i := range valets {
		valets[i].PasswordHash = ""
	}
	return valets, nil
}
