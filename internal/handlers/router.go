package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/handlers/middleware"
	"github.com/ovoronin/minefarm/internal/logger"
	"github.com/ovoronin/minefarm/internal/models"
	"github.com/ovoronin/minefarm/internal/repository"
	"github.com/ovoronin/minefarm/internal/service/earnings"
	"github.com/ovoronin/minefarm/internal/service/wallet"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	walletService walletService,
	packageService packageService,
	adminService adminService,
	earningsService earningsService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	adminMiddleware := middleware.AdminMiddleware()
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.Handler) http.Handler {
		return authMiddleware(adminMiddleware(h))
	}

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /refresh", handleTokenRefresh(authService, logger))

	apiuser.Handle("GET /me", withAuth(handleUserMe()))
	apiuser.Handle("GET /dashboard", withAuth(handleDashboard(walletService, packageService, logger)))
	apiuser.Handle("GET /packages", handleListPackages(packageService, logger))
	apiuser.Handle("GET /transactions", withAuth(handleListTransactions(walletService, logger)))
	apiuser.Handle("POST /deposits", withAuth(handleSubmitDeposit(walletService, logger)))
	apiuser.Handle("POST /withdrawals", withAuth(handleRequestWithdrawal(walletService, logger)))
	apiuser.Handle("POST /purchases", withAuth(handleBuyPackage(walletService, logger)))

	apiadmin := http.NewServeMux()

	apiadmin.Handle("GET /summary", handleAdminSummary(adminService, logger))
	apiadmin.Handle("GET /deposits", handleAdminListDeposits(adminService, logger))
	apiadmin.Handle("POST /deposits/process", handleAdminProcessDeposit(adminService, logger))
	apiadmin.Handle("GET /withdrawals", handleAdminListWithdrawals(adminService, logger))
	apiadmin.Handle("POST /withdrawals/process", handleAdminProcessWithdrawal(adminService, logger))
	apiadmin.Handle("GET /users", handleAdminListUsers(adminService, logger))
	apiadmin.Handle("POST /users/update", handleAdminUpdateUser(adminService, logger))
	apiadmin.Handle("GET /packages", handleAdminListPackages(packageService, logger))
	apiadmin.Handle("POST /packages", handleAdminCreatePackage(packageService, logger))
	apiadmin.Handle("POST /packages/update", handleAdminUpdatePackage(packageService, logger))
	apiadmin.Handle("POST /earnings/run", handleAdminRunEarnings(earningsService, logger))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))
	root.Handle("/api/admin/", http.StripPrefix("/api/admin", withAdmin(apiadmin)))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with email, password and optional payout address
	// Has to return apperrors.ErrUserAlreadyExists if the email is taken
	Register(ctx context.Context, email string, password string, ltcAddress *string) (models.User, models.TokenPair, error)

	// Login user with email and password
	// Has to return apperrors.ErrUserNotFound on bad credentials
	// and apperrors.ErrUserBlocked for blocked accounts
	Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Set auth tokens (access, refresh) to response
	SetTokens(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from request
	GetRefresh(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

type walletService interface {
	Limits() wallet.Limits
	SubmitDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txid string) (models.Deposit, error)
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ltcAddress string) (models.Withdrawal, error)
	PurchasePackage(ctx context.Context, userID uuid.UUID, packageID uuid.UUID) (models.Purchase, models.User, error)
	ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
	ListUserPurchases(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
	EstimateDailyProfit(purchases []models.Purchase) decimal.Decimal
}

type packageService interface {
	ListPackages(ctx context.Context, activeOnly bool) ([]models.Package, error)
	CreatePackage(ctx context.Context, params repository.CreatePackageParams) (models.Package, error)
	UpdatePackage(ctx context.Context, packageID uuid.UUID, params repository.UpdatePackageParams) (models.Package, error)
}

type adminService interface {
	GetSummary(ctx context.Context) (wallet.Summary, error)
	ListDeposits(ctx context.Context) ([]models.Deposit, error)
	ConfirmDeposit(ctx context.Context, depositID uuid.UUID) (models.Deposit, error)
	RejectDeposit(ctx context.Context, depositID uuid.UUID) (models.Deposit, error)
	ListWithdrawals(ctx context.Context) ([]models.Withdrawal, error)
	CompleteWithdrawal(ctx context.Context, withdrawalID uuid.UUID, txid string) (models.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (models.Withdrawal, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	AdjustUser(ctx context.Context, userID uuid.UUID, newBalance *decimal.Decimal, blocked *bool) (models.User, error)
}

type earningsService interface {
	Run(ctx context.Context, now time.Time) (earnings.Result, error)
}
