package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"servicehub/internal/model"
	"servicehub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username     string `json:"username" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	RoleName     string `json:"role_name" binding:"required"`
	DepartmentID string `json:"department_id"`
	SuperiorID   string `json:"superior_id"`
}

type UpdateUserRequest struct {
	Username     string  `json:"username"`
	Email        string  `json:"email" binding:"omitempty,email"`
	RoleName     string  `json:"role_name"`
	DepartmentID *string `json:"department_id"`
	SuperiorID   *string `json:"superior_id"`
	IsActive     *bool   `json:"is_active"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	RoleName       string     `json:"role_name"`
	DepartmentID   *uuid.UUID `json:"department_id"`
	DepartmentName string     `json:"department_name,omitempty"`
	SuperiorID     *uuid.UUID `json:"superior_id"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      string     `json:"created_at"`
}

// UserService defines the interface for business logic related to the user
// directory
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, id string) error
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	resp := &UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		RoleName:     user.RoleName,
		DepartmentID: user.DepartmentID,
		SuperiorID:   user.SuperiorID,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}
	if user.Department != nil {
		resp.DepartmentName = user.Department.Name
	}
	return resp
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already registered")
	}
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, errors.New("username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
		RoleName: req.RoleName,
		IsActive: true,
	}
	if req.DepartmentID != "" {
		dID, parseErr := uuid.Parse(req.DepartmentID)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid department id", ErrInvalidInput)
		}
		user.DepartmentID = &dID
	}
	if req.SuperiorID != "" {
		supID, parseErr := uuid.Parse(req.SuperiorID)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid superior id", ErrInvalidInput)
		}
		user.SuperiorID = &supID
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}
	if !user.IsActive {
		return nil, errors.New("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.RoleName,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key" // Development fallback only
	}
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{Token: signed}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetWithDirectory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *mapToResponse(&users[i]))
	}
	return result, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return nil, err
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.RoleName != "" {
		user.RoleName = req.RoleName
	}
	if req.DepartmentID != nil {
		if *req.DepartmentID == "" {
			user.DepartmentID = nil
		} else {
			dID, parseErr := uuid.Parse(*req.DepartmentID)
			if parseErr != nil {
				return nil, fmt.Errorf("%w: invalid department id", ErrInvalidInput)
			}
			user.DepartmentID = &dID
		}
	}
	if req.SuperiorID != nil {
		if *req.SuperiorID == "" {
			user.SuperiorID = nil
		} else {
			supID, parseErr := uuid.Parse(*req.SuperiorID)
			if parseErr != nil {
				return nil, fmt.Errorf("%w: invalid superior id", ErrInvalidInput)
			}
			if supID == user.ID {
				return nil, errors.New("a user cannot be their own superior")
			}
			user.SuperiorID = &supID
		}
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return err
	}
	return s.repo.Delete(ctx, id)
}
