package auth

import (
	"LensFitter/pkg/response"
	"net/http"
)

var (
	ErrEmailAlreadyExists     = response.NewTaggedError(http.StatusConflict, "EMAIL_ALREADY_EXISTS", "email already exists")
	ErrInvalidEmailOrPassword = response.NewTaggedError(http.StatusBadRequest, "INVALID_CREDENTIALS", "email or password is wrong")
	ErrUserNotFound           = response.NewTaggedError(http.StatusNotFound, "USER_NOT_FOUND", "user not found")
)
