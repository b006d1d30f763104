package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/repos"
	"github.com/synthsense/synthsense-backend/internal/requestdata"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type UserService interface {
	GetCurrentUser(ctx context.Context) (*types.User, error)
	UpdateName(ctx context.Context, fullName string) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	notifier Notifier
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, notifier Notifier) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
		notifier: notifier,
	}
}

func (us *userService) GetCurrentUser(ctx context.Context) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("no authenticated user in request context")
	}
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return users[0], nil
}

func (us *userService) UpdateName(ctx context.Context, fullName string) (*types.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("a name is required")
	}
	user, err := us.GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	user.FullName = fullName
	if err := us.db.WithContext(ctx).Model(user).Update("full_name", fullName).Error; err != nil {
		return nil, fmt.Errorf("failed to update name: %w", err)
	}
	us.notifier.UserNameChanged(user.ID, user)
	return user, nil
}
