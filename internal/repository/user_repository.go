package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"course-player-backend/internal/models"
)

type UserRepository interface {
	Create(user *models.User) error
	Update(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	ExistsByEmail(email string) (bool, error)
	ExistsByUsername(username string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	if r == nil || r.db == nil {
		return errors.New("user repository is not initialised")
	}
	if user == nil {
		return errors.New("user is required")
	}
	return r.db.Create(user).Error
}

func (r *userRepository) Update(user *models.User) error {
	if r == nil || r.db == nil {
		return errors.New("user repository is not initialised")
	}
	if user == nil {
		return errors.New("user is required")
	}
	return r.db.Save(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repository is not initialised")
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repository is not initialised")
	}
	cleaned := strings.ToLower(strings.TrimSpace(email))
	if cleaned == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	if err := r.db.Where("LOWER(email) = ?", cleaned).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(username string) (*models.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repository is not initialised")
	}
	cleaned := strings.TrimSpace(username)
	if cleaned == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	if err := r.db.Where("username = ?", cleaned).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(email string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("user repository is not initialised")
	}
	var count int64
	cleaned := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.Model(&models.User{}).Where("LOWER(email) = ?", cleaned).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) ExistsByUsername(username string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("user repository is not initialised")
	}
	var count int64
	if err := r.db.Model(&models.User{}).Where("username = ?", strings.TrimSpace(username)).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
