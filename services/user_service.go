package services

import (
	"errors"
	"fmt"
	"strings"

	"cbtportal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
	ErrMatricRequired = errors.New("matric number is required for students")
	ErrNotPending     = errors.New("user is not awaiting approval")
)

type CreateUserRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	Role         string `json:"role" binding:"omitempty,oneof=student staff"`
	MatricNumber string `json:"matricNumber"`
}

type AdminSignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type UserService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewUserService(db *gorm.DB, log *zap.Logger) *UserService {
	return &UserService{db: db, log: log}
}

// CreateUser provisions an active student or staff account.
func (s *UserService) CreateUser(req *CreateUserRequest) (*models.User, error) {
	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleStudent
	}
	matric := strings.TrimSpace(req.MatricNumber)
	if role == models.RoleStudent && matric == "" {
		return nil, ErrMatricRequired
	}
	if role != models.RoleStudent {
		matric = ""
	}

	return s.create(req.Name, req.Email, req.Password, role, matric, models.UserActive)
}

// AdminSignup registers an admin account that stays pending until approved.
func (s *UserService) AdminSignup(req *AdminSignupRequest) (*models.User, error) {
	return s.create(req.Name, req.Email, req.Password, models.RoleAdmin, "", models.UserPending)
}

func (s *UserService) create(name, email, password string, role models.UserRole, matric string, status models.UserStatus) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		MatricNumber: matric,
		Status:       status,
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user created",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("status", string(user.Status)),
	)
	return user, nil
}

// Approve activates a pending account.
func (s *UserService) Approve(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Status != models.UserPending {
		return nil, ErrNotPending
	}

	if err := s.db.Model(&user).Update("status", models.UserActive).Error; err != nil {
		return nil, fmt.Errorf("failed to approve user: %w", err)
	}
	user.Status = models.UserActive
	s.log.Info("user approved", zap.Uint("user_id", user.ID))
	return &user, nil
}

// CheckPassword reports whether password matches the stored hash.
func (s *UserService) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *UserService) CountUsers() (int64, error) {
	var n int64
	err := s.db.Model(&models.User{}).Count(&n).Error
	return n, err
}

func (s *UserService) CountPending() (int64, error) {
	var n int64
	err := s.db.Model(&models.User{}).Where("status = ?", models.UserPending).Count(&n).Error
	return n, err
}
