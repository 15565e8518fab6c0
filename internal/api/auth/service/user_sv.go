package authService

import (
	"context"
	"strings"
	"time"

	"LensFitter/internal/api/auth"
	"LensFitter/internal/entity"
	contextPkg "LensFitter/pkg/context"
	"github.com/sirupsen/logrus"
)

func (s *userDomainImpl) RegisterUser(c context.Context, req auth.CreateUserRequest) (auth.UserResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.UserResponse{}, err
	}

	hashed, err := s.bcryptUtils.HashPassword(req.Password)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to hash password")
		return auth.UserResponse{}, err
	}

	now := time.Now().UTC()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return auth.UserResponse{}, err
	}

	user := entity.User{
		ID:        id,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Name:      req.Name,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := repo.Users.CreateUser(c, user); err != nil {
		return auth.UserResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    id,
	}).Info("User registered")

	return toUserResponse(user), nil
}

func (s *userDomainImpl) GetByID(c context.Context, id string) (auth.UserResponse, error) {
	repo, err := s.repo.NewClient(false)
	if err != nil {
		return auth.UserResponse{}, err
	}

	user, err := repo.Users.GetByID(c, id)
	if err != nil {
		return auth.UserResponse{}, err
	}

	return toUserResponse(user), nil
}

func toUserResponse(user entity.User) auth.UserResponse {
	return auth.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}
