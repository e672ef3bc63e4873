package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/handlers/render"
	"github.com/ovoronin/minefarm/internal/handlers/userctx"
	"github.com/ovoronin/minefarm/internal/logger"
	"github.com/ovoronin/minefarm/internal/models"
)

const dashboardTransactionsLimit = 20

type packageResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Price              float64 `json:"price"`
	MiningPower        float64 `json:"miningPower"`
	DailyProfitPercent float64 `json:"dailyProfitPercent"`
	IsActive           bool    `json:"isActive"`
}

func toPackageResponse(p models.Package) packageResponse {
	price, _ := p.Price.Float64()
	power, _ := p.MiningPower.Float64()
	percent, _ := p.DailyProfitPercent.Float64()

	return packageResponse{
		ID:                 p.ID.String(),
		Name:               p.Name,
		Price:              price,
		MiningPower:        power,
		DailyProfitPercent: percent,
		IsActive:           p.IsActive,
	}
}

type purchaseResponse struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Package   packageResponse `json:"package"`
}

func toPurchaseResponse(p models.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:        p.ID.String(),
		CreatedAt: p.CreatedAt,
		Package:   toPackageResponse(p.Package),
	}
}

type transactionResponse struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
}

func toTransactionResponse(t models.Transaction) transactionResponse {
	amount, _ := t.Amount.Float64()

	return transactionResponse{
		ID:          t.ID.String(),
		CreatedAt:   t.CreatedAt,
		Type:        t.Type,
		Amount:      amount,
		Description: t.Description,
	}
}

func handleListPackages(packageService packageService, l logger.Logger) http.Handler {
	type response struct {
		Packages []packageResponse `json:"packages"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		packages, err := packageService.ListPackages(r.Context(), true)
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

func handleDashboard(walletService walletService, packageService packageService, l logger.Logger) http.Handler {
	type limitsResponse struct {
		MinDeposit  float64 `json:"minDeposit"`
		MinWithdraw float64 `json:"minWithdraw"`
		WithdrawFee float64 `json:"withdrawFee"`
	}
	type response struct {
		User                 userResponse          `json:"user"`
		DepositAddress       string                `json:"depositAddress"`
		EstimatedDailyProfit float64               `json:"estimatedDailyProfit"`
		Packages             []packageResponse     `json:"packages"`
		Purchases            []purchaseResponse    `json:"purchases"`
		Transactions         []transactionResponse `json:"transactions"`
		Limits               limitsResponse        `json:"limits"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		purchases, err := walletService.ListUserPurchases(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to list purchases", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		transactions, err := walletService.ListUserTransactions(r.Context(), user.ID, dashboardTransactionsLimit)
		if err != nil {
			l.Error("Failed to list transactions", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		packages, err := packageService.ListPackages(r.Context(), true)
		if err != nil {
			l.Error("Failed to list packages", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		limits := walletService.Limits()
		minDeposit, _ := limits.MinDeposit.Float64()
		minWithdraw, _ := limits.MinWithdraw.Float64()
		withdrawFee, _ := limits.WithdrawFee.Float64()
		profit, _ := walletService.EstimateDailyProfit(purchases).Float64()

		resp := response{
			User:                 toUserResponse(user),
			DepositAddress:       limits.DepositAddress,
			EstimatedDailyProfit: profit,
			Packages:             make([]packageResponse, 0, len(packages)),
			Purchases:            make([]purchaseResponse, 0, len(purchases)),
			Transactions:         make([]transactionResponse, 0, len(transactions)),
			Limits:               limitsResponse{minDeposit, minWithdraw, withdrawFee},
		}
		for _, p := range packages {
			resp.Packages = append(resp.Packages, toPackageResponse(p))
		}
		for _, p := range purchases {
			resp.Purchases = append(resp.Purchases, toPurchaseResponse(p))
		}
		for _, t := range transactions {
			resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
		}

		render.JSON(w, resp)
	})
}

func handleListTransactions(walletService walletService, l logger.Logger) http.Handler {
	type response struct {
		Transactions []transactionResponse `json:"transactions"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		transactions, err := walletService.ListUserTransactions(r.Context(), user.ID, 0)
		if err != nil {
			l.Error("Failed to list transactions", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := response{Transactions: make([]transactionResponse, 0, len(transactions))}
		for _, t := range transactions {
			resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
		}
		render.JSON(w, resp)
	})
}

func handleSubmitDeposit(walletService walletService, l logger.Logger) http.Handler {
	type request struct {
		Amount float64 `json:"amount" validate:"required,gt=0"`
		TxID   string  `json:"txid" validate:"required,min=10"`
	}
	type response struct {
		DepositID string `json:"depositId"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		deposit, err := walletService.SubmitDeposit(r.Context(), user.ID, decimal.NewFromFloat(data.Amount), data.TxID)
		switch {
		case err == nil:
			render.JSON(w, response{DepositID: deposit.ID.String()})
		case errors.Is(err, apperrors.ErrAmountTooSmall):
			render.ServiceError(w, "Amount is below the minimum deposit", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrDepositTxIDTaken):
			render.ServiceError(w, "TXID already submitted", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserBlocked):
			render.ServiceError(w, "Account is blocked", http.StatusForbidden)
		default:
			l.Error("Failed to submit deposit", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleRequestWithdrawal(walletService walletService, l logger.Logger) http.Handler {
	type request struct {
		Amount     float64 `json:"amount" validate:"required,gt=0"`
		LtcAddress string  `json:"ltcAddress" validate:"required,ltc_address"`
	}
	type response struct {
		WithdrawalID string `json:"withdrawalId"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		withdrawal, err := walletService.RequestWithdrawal(r.Context(), user.ID, decimal.NewFromFloat(data.Amount), data.LtcAddress)
		switch {
		case err == nil:
			render.JSON(w, response{WithdrawalID: withdrawal.ID.String()})
		case errors.Is(err, apperrors.ErrAmountTooSmall):
			render.ServiceError(w, "Amount is below the minimum withdrawal", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrAddressInvalid):
			render.ServiceError(w, "Invalid LTC address", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrUserBlocked):
			render.ServiceError(w, "Account is blocked", http.StatusForbidden)
		default:
			l.Error("Failed to request withdrawal", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleBuyPackage(walletService walletService, l logger.Logger) http.Handler {
	type request struct {
		PackageID string `json:"packageId" validate:"required,uuid"`
	}
	type response struct {
		User     userResponse     `json:"user"`
		Purchase purchaseResponse `json:"purchase"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		purchase, updatedUser, err := walletService.PurchasePackage(r.Context(), user.ID, uuid.MustParse(data.PackageID))
		switch {
		case err == nil:
			render.JSON(w, response{User: toUserResponse(updatedUser), Purchase: toPurchaseResponse(purchase)})
		case errors.Is(err, apperrors.ErrPackageUnavailable):
			render.ServiceError(w, "Package not available", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrUserBlocked):
			render.ServiceError(w, "Account is blocked", http.StatusForbidden)
		default:
			l.Error("Failed to buy package", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
