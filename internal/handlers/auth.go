package handlers

import (
	"errors"
	"net/http"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/handlers/render"
	"github.com/ovoronin/minefarm/internal/handlers/userctx"
	"github.com/ovoronin/minefarm/internal/logger"
	"github.com/ovoronin/minefarm/internal/models"
)

type userResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	LtcAddress  *string `json:"ltcAddress"`
	Balance     float64 `json:"balance"`
	MiningPower float64 `json:"miningPower"`
	IsAdmin     bool    `json:"isAdmin"`
	IsBlocked   bool    `json:"isBlocked"`
}

func toUserResponse(u models.User) userResponse {
	balance, _ := u.Balance.Float64()
	power, _ := u.MiningPower.Float64()

	return userResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		LtcAddress:  u.LtcAddress,
		Balance:     balance,
		MiningPower: power,
		IsAdmin:     u.IsAdmin,
		IsBlocked:   u.IsBlocked,
	}
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email      string  `json:"email" validate:"required,email"`
		Password   string  `json:"password" validate:"required,min=6"`
		LtcAddress *string `json:"ltcAddress" validate:"omitempty,ltc_address"`
	}
	type response struct {
		User userResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := authService.Register(r.Context(), data.Email, data.Password, data.LtcAddress)
		switch {
		case err == nil:
			authService.SetTokens(w, pair)
			render.JSON(w, response{User: toUserResponse(user)})
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Email already in use", http.StatusBadRequest)
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		User userResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := authService.Login(r.Context(), data.Email, data.Password)
		switch {
		case err == nil:
			authService.SetTokens(w, pair)
			render.JSON(w, response{User: toUserResponse(user)})
		case errors.Is(err, apperrors.ErrUserBlocked):
			render.ServiceError(w, "Account is blocked", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Invalid credentials", http.StatusBadRequest)
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := authService.GetRefresh(r)
		if err != nil {
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
			return
		}

		pair, err := authService.Refresh(r.Context(), refresh)
		switch {
		case err == nil:
			authService.SetTokens(w, pair)
			render.JSON(w, response{Message: "Tokens refreshed successfully"})
		case errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrUserBlocked):
			render.ServiceError(w, "Account is blocked", http.StatusForbidden)
		default:
			l.Error("Failed to refresh tokens", "error", err)
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		}
	})
}

func handleUserMe() http.Handler {
	type response struct {
		User userResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{User: toUserResponse(user)})
	})
}
