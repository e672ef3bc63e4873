package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/logger"
)

const (
	KindDepositApproved     = "depositApproved"
	KindWithdrawalProcessed = "withdrawalProcessed"
	KindPackagePurchased    = "packagePurchased"
)

const defaultQueueSize = 256

type Message struct {
	Kind        string
	Email       string
	Amount      decimal.Decimal
	TxID        string
	PackageName string
}

func (m Message) Subject() string {
	switch m.Kind {
	case KindDepositApproved:
		return "Deposit Approved"
	case KindWithdrawalProcessed:
		return "Withdrawal Completed"
	case KindPackagePurchased:
		return "Package Purchase Confirmed"
	default:
		return "Notification"
	}
}

func (m Message) Text() string {
	switch m.Kind {
	case KindDepositApproved:
		return fmt.Sprintf("Your deposit of %s LTC has been approved and added to your balance.", m.Amount)
	case KindWithdrawalProcessed:
		return fmt.Sprintf("Your withdrawal of %s LTC has been processed. Transaction ID: %s", m.Amount, m.TxID)
	case KindPackagePurchased:
		return fmt.Sprintf("You have successfully purchased the %s package for %s LTC.", m.PackageName, m.Amount)
	default:
		return "You have a new notification."
	}
}

// Sender delivers one message to the outside world
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them
// Used when no real delivery channel is configured
type LogSender struct {
	Logger logger.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info("notification", "kind", msg.Kind, "email", msg.Email, "subject", msg.Subject(), "text", msg.Text())
	return nil
}

// Dispatcher is the best effort notification sink
// Notify enqueues and returns immediately, delivery failures are logged and never propagated
type Dispatcher struct {
	sender Sender
	logger logger.Logger
	queue  chan Message
}

func NewDispatcher(sender Sender, logger logger.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		logger: logger,
		queue:  make(chan Message, defaultQueueSize),
	}
}

// Run delivers enqueued messages until context is cancelled
// Returned channel is closed when the dispatch loop stops
func (d *Dispatcher) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	go func() {
		defer close(idleStopped)

		for {
			select {
			case <-ctx.Done():
				d.logger.Debug("Notification dispatcher stopped")
				return
			case msg := <-d.queue:
				if err := d.sender.Send(ctx, msg); err != nil {
					d.logger.Error("Failed to send notification", "kind", msg.Kind, "email", msg.Email, "error", err)
				}
			}
		}
	}()

	return idleStopped
}

// Notify enqueues the message without blocking the caller
// The message is dropped with a warning when the queue is full
func (d *Dispatcher) Notify(msg Message) {
	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("Notification queue is full, message dropped", "kind", msg.Kind, "email", msg.Email)
	}
}
