package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/handlers/render"
	"github.com/ovoronin/minefarm/internal/logger"
	"github.com/ovoronin/minefarm/internal/models"
	"github.com/ovoronin/minefarm/internal/repository"
)

type depositResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId"`
	Amount    float64   `json:"amount"`
	TxID      string    `json:"txid"`
	Status    string    `json:"status"`
}

func toDepositResponse(d models.Deposit) depositResponse {
	amount, _ := d.Amount.Float64()

	return depositResponse{
		ID:        d.ID.String(),
		CreatedAt: d.CreatedAt,
		UserID:    d.UserID.String(),
		Amount:    amount,
		TxID:      d.TxID,
		Status:    d.Status,
	}
}

type withdrawalResponse struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	UserID     string    `json:"userId"`
	Amount     float64   `json:"amount"`
	Fee        float64   `json:"fee"`
	LtcAddress string    `json:"ltcAddress"`
	Status     string    `json:"status"`
	TxID       *string   `json:"txid"`
}

func toWithdrawalResponse(w models.Withdrawal) withdrawalResponse {
	amount, _ := w.Amount.Float64()
	fee, _ := w.Fee.Float64()

	return withdrawalResponse{
		ID:         w.ID.String(),
		CreatedAt:  w.CreatedAt,
		UserID:     w.UserID.String(),
		Amount:     amount,
		Fee:        fee,
		LtcAddress: w.LtcAddress,
		Status:     w.Status,
		TxID:       w.TxID,
	}
}

func handleAdminSummary(adminService adminService, l logger.Logger) http.Handler {
	type response struct {
		Users            int64   `json:"users"`
		TotalDeposits    float64 `json:"totalDeposits"`
		TotalWithdrawals float64 `json:"totalWithdrawals"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		summary, err := adminService.GetSummary(r.Context())
		if err != nil {
			l.Error("Failed to load summary", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		deposits, _ := summary.TotalDeposits.Float64()
		withdrawals, _ := summary.TotalWithdrawals.Float64()
		render.JSON(w, response{
			Users:            summary.Users,
			TotalDeposits:    deposits,
			TotalWithdrawals: withdrawals,
		})
	})
}

func handleAdminListDeposits(adminService adminService, l logger.Logger) http.Handler {
	type response struct {
		Deposits []depositResponse `json:"deposits"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deposits, err := adminService.ListDeposits(r.Context())
		if err != nil {
			l.Error("Failed to list deposits", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := response{Deposits: make([]depositResponse, 0, len(deposits))}
		for _, d := range deposits {
			resp.Deposits = append(resp.Deposits, toDepositResponse(d))
		}
		render.JSON(w, resp)
	})
}

func handleAdminProcessDeposit(adminService adminService, l logger.Logger) http.Handler {
	type request struct {
		DepositID string `json:"depositId" validate:"required,uuid"`
		Approve   *bool  `json:"approve" validate:"required"`
	}
	type response struct {
		Deposit depositResponse `json:"deposit"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		depositID := uuid.MustParse(data.DepositID)

		var deposit models.Deposit
		if *data.Approve {
			deposit, err = adminService.ConfirmDeposit(r.Context(), depositID)
		} else {
			deposit, err = adminService.RejectDeposit(r.Context(), depositID)
		}

		switch {
		case err == nil:
			render.JSON(w, response{Deposit: toDepositResponse(deposit)})
		case errors.Is(err, apperrors.ErrDepositNotFound):
			render.ServiceError(w, "Deposit not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAlreadyProcessed):
			render.ServiceError(w, "Deposit already processed", http.StatusConflict)
		default:
			l.Error("Failed to process deposit", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminListWithdrawals(adminService adminService, l logger.Logger) http.Handler {
	type response struct {
		Withdrawals []withdrawalResponse `json:"withdrawals"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		withdrawals, err := adminService.ListWithdrawals(r.Context())
		if err != nil {
			l.Error("Failed to list withdrawals", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := response{Withdrawals: make([]withdrawalResponse, 0, len(withdrawals))}
		for _, wd := range withdrawals {
			resp.Withdrawals = append(resp.Withdrawals, toWithdrawalResponse(wd))
		}
		render.JSON(w, resp)
	})
}

func handleAdminProcessWithdrawal(adminService adminService, l logger.Logger) http.Handler {
	type request struct {
		WithdrawalID string `json:"withdrawalId" validate:"required,uuid"`
		Approve      *bool  `json:"approve" validate:"required"`
		TxID         string `json:"txid" validate:"omitempty,min=10"`
	}
	type response struct {
		Withdrawal withdrawalResponse `json:"withdrawal"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		withdrawalID := uuid.MustParse(data.WithdrawalID)

		var withdrawal models.Withdrawal
		if *data.Approve {
			withdrawal, err = adminService.CompleteWithdrawal(r.Context(), withdrawalID, data.TxID)
		} else {
			withdrawal, err = adminService.RejectWithdrawal(r.Context(), withdrawalID)
		}

		switch {
		case err == nil:
			render.JSON(w, response{Withdrawal: toWithdrawalResponse(withdrawal)})
		case errors.Is(err, apperrors.ErrWithdrawalNotFound):
			render.ServiceError(w, "Withdrawal not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAlreadyProcessed):
			render.ServiceError(w, "Withdrawal already processed", http.StatusConflict)
		case errors.Is(err, apperrors.ErrTxIDInvalid):
			render.ServiceError(w, "Payout TXID is required", http.StatusBadRequest)
		default:
			l.Error("Failed to process withdrawal", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminListUsers(adminService adminService, l logger.Logger) http.Handler {
	type response struct {
		Users []userResponse `json:"users"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		users, err := adminService.ListUsers(r.Context())
		if err != nil {
			l.Error("Failed to list users", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := response{Users: make([]userResponse, 0, len(users))}
		for _, u := range users {
			resp.Users = append(resp.Users, toUserResponse(u))
		}
		render.JSON(w, resp)
	})
}

func handleAdminUpdateUser(adminService adminService, l logger.Logger) http.Handler {
	type request struct {
		UserID  string   `json:"userId" validate:"required,uuid"`
		Balance *float64 `json:"balance" validate:"omitempty,gte=0"`
		Blocked *bool    `json:"blocked"`
	}
	type response struct {
		User userResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		var balance *decimal.Decimal
		if data.Balance != nil {
			b := decimal.NewFromFloat(*data.Balance)
			balance = &b
		}

		user, err := adminService.AdjustUser(r.Context(), uuid.MustParse(data.UserID), balance, data.Blocked)
		switch {
		case err == nil:
			render.JSON(w, response{User: toUserResponse(user)})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrBalanceNegative):
			render.ServiceError(w, "Balance must not be negative", http.StatusBadRequest)
		default:
			l.Error("Failed to update user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminListPackages(packageService packageService, l logger.Logger) http.Handler {
	type response struct {
		Packages []packageResponse `json:"packages"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		packages, err := packageService.ListPackages(r.Context(), false)
		if err != nil {
			l.Error("Failed to list packages", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := response{Packages: make([]packageResponse, 0, len(packages))}
		for _, p := range packages {
			resp.Packages = append(resp.Packages, toPackageResponse(p))
		}
		render.JSON(w, resp)
	})
}

func handleAdminCreatePackage(packageService packageService, l logger.Logger) http.Handler {
	type request struct {
		Name               string  `json:"name" validate:"required"`
		Price              float64 `json:"price" validate:"required,gt=0"`
		MiningPower        float64 `json:"miningPower" validate:"required,gt=0"`
		DailyProfitPercent float64 `json:"dailyProfitPercent" validate:"required,gt=0"`
		IsActive           bool    `json:"isActive"`
	}
	type response struct {
		Package packageResponse `json:"package"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pkg, err := packageService.CreatePackage(r.Context(), repository.CreatePackageParams{
			Name:               data.Name,
			Price:              decimal.NewFromFloat(data.Price),
			MiningPower:        decimal.NewFromFloat(data.MiningPower),
			DailyProfitPercent: decimal.NewFromFloat(data.DailyProfitPercent),
			IsActive:           data.IsActive,
		})
		switch {
		case err == nil:
			render.JSON(w, response{Package: toPackageResponse(pkg)})
		case errors.Is(err, apperrors.ErrPackageNameTaken):
			render.ServiceError(w, "Package name already in use", http.StatusBadRequest)
		default:
			l.Error("Failed to create package", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminUpdatePackage(packageService packageService, l logger.Logger) http.Handler {
	type request struct {
		PackageID          string   `json:"packageId" validate:"required,uuid"`
		Name               *string  `json:"name"`
		Price              *float64 `json:"price" validate:"omitempty,gt=0"`
		MiningPower        *float64 `json:"miningPower" validate:"omitempty,gt=0"`
		DailyProfitPercent *float64 `json:"dailyProfitPercent" validate:"omitempty,gt=0"`
		IsActive           *bool    `json:"isActive"`
	}
	type response struct {
		Package packageResponse `json:"package"`
	}

	toDecimal := func(f *float64) *decimal.Decimal {
		if f == nil {
			return nil
		}
		d := decimal.NewFromFloat(*f)
		return &d
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pkg, err := packageService.UpdatePackage(r.Context(), uuid.MustParse(data.PackageID), repository.UpdatePackageParams{
			Name:               data.Name,
			Price:              toDecimal(data.Price),
			MiningPower:        toDecimal(data.MiningPower),
			DailyProfitPercent: toDecimal(data.DailyProfitPercent),
			IsActive:           data.IsActive,
		})
		switch {
		case err == nil:
			render.JSON(w, response{Package: toPackageResponse(pkg)})
		case errors.Is(err, apperrors.ErrPackageNotFound):
			render.ServiceError(w, "Package not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrPackageNameTaken):
			render.ServiceError(w, "Package name already in use", http.StatusBadRequest)
		default:
			l.Error("Failed to update package", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleAdminRunEarnings(earningsService earningsService, l logger.Logger) http.Handler {
	type response struct {
		Processed   int     `json:"processed"`
		TotalReward float64 `json:"totalReward"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := earningsService.Run(r.Context(), time.Now())
		if err != nil {
			l.Error("Earnings run failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		reward, _ := result.TotalReward.Float64()
		render.JSON(w, response{Processed: result.Processed, TotalReward: reward})
	})
}
