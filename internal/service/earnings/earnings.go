package earnings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/logger"
	"github.com/ovoronin/minefarm/internal/models"
	"github.com/ovoronin/minefarm/internal/repository"
)

const (
	defaultCountWorkers = 10 // Number of workers committing per-user credits

	cycleDateLayout = "2006-01-02"
)

// errCycleSkip aborts a per-user unit without treating it as a failure:
// nothing to credit, or this cycle credited the user already
var errCycleSkip = errors.New("earnings cycle skip")

// Engine runs one daily earnings cycle over all eligible users
// Each user is credited in its own storage transaction, one user failing
// never aborts the others
type Engine struct {
	storage      repository.Storage
	logger       logger.Logger
	countWorkers int
}

type Option func(*Engine)

func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.countWorkers = n
		}
	}
}

func NewEngine(storage repository.Storage, l logger.Logger, opts ...Option) *Engine {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	e := &Engine{
		storage:      storage,
		logger:       l,
		countWorkers: defaultCountWorkers,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type Result struct {
	Processed   int
	TotalReward decimal.Decimal
}

// Run executes the earnings cycle for the given moment
// The cycle identity is the UTC date: re-running the same cycle is a no-op
// per user thanks to the earning_cycles claim
func (e *Engine) Run(ctx context.Context, now time.Time) (Result, error) {
	result := Result{TotalReward: decimal.Zero}
	cycleDate := now.UTC().Format(cycleDateLayout)

	userIDs, err := e.storage.User().ListEarningUserIDs(ctx)
	if err != nil {
		return result, err
	}

	e.logger.Info("Earnings cycle started", "cycle_date", cycleDate, "eligible_users", len(userIDs))

	idChan := make(chan uuid.UUID)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < e.countWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for userID := range idChan {
				reward, err := e.creditUser(ctx, userID, cycleDate)
				if err != nil {
					e.logger.Error("Failed to credit user earnings", "user_id", userID, "cycle_date", cycleDate, "error", err)
					continue
				}
				if reward.IsZero() {
					continue
				}

				mu.Lock()
				result.Processed++
				result.TotalReward = result.TotalReward.Add(reward)
				mu.Unlock()
			}
		}()
	}

	// Feed workers until done or context cancelled
feed:
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			break feed
		case idChan <- userID:
		}
	}
	close(idChan)
	wg.Wait()

	e.logger.Info("Earnings cycle finished",
		"cycle_date", cycleDate,
		"processed", result.Processed,
		"total_reward", result.TotalReward,
	)

	return result, ctx.Err()
}

// creditUser commits the daily reward for one user as a single unit:
// cycle claim, balance credit and audit entry together or not at all
// Returns zero reward when the user is skipped
func (e *Engine) creditUser(ctx context.Context, userID uuid.UUID, cycleDate string) (decimal.Decimal, error) {
	reward := decimal.Zero

	err := e.storage.InTx(ctx, func(st repository.Storage) error {
		user, err := st.User().GetUserByID(ctx, userID, true)
		if err != nil {
			return err
		}
		if user.IsBlocked {
			return errCycleSkip
		}

		purchases, err := st.Purchase().ListUserPurchases(ctx, userID)
		if err != nil {
			return err
		}

		reward = decimal.Zero
		for _, p := range purchases {
			reward = reward.Add(p.Package.MiningPower.Mul(p.Package.DailyProfitPercent).Div(decimal.NewFromInt(100)))
		}
		if !reward.IsPositive() {
			return errCycleSkip
		}

		claimed, err := st.Transaction().ClaimEarningCycle(ctx, userID, cycleDate)
		if err != nil {
			return err
		}
		if !claimed {
			return errCycleSkip
		}

		if _, err = st.User().UpdateBalance(ctx, userID, reward); err != nil {
			return err
		}

		_, err = st.Transaction().CreateTransaction(
			ctx,
			userID,
			models.TransactionTypeEarning,
			reward,
			"Daily earnings "+cycleDate,
		)
		return err
	})

	switch {
	case errors.Is(err, errCycleSkip):
		return decimal.Zero, nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return decimal.Zero, nil
	case err != nil:
		return decimal.Zero, err
	}

	return reward, nil
}
