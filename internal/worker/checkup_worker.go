package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"coinpurse/internal/amqp"
	"coinpurse/internal/core"
	"coinpurse/internal/services"
	"coinpurse/internal/sheets"
)

// MessageConsumer delivers balance-recorded messages until the context ends.
type MessageConsumer interface {
	ConsumeBalanceRecorded(ctx context.Context, handler func(*amqp.BalanceRecordedMessage) error) error
}

// CheckupWorker consumes balance events, exports them to the history sheet,
// and periodically reports which accounts still need a balance entry.
type CheckupWorker struct {
	consumer MessageConsumer
	history  sheets.HistoryWriter
	checkup  *services.CheckupService
	interval time.Duration
}

func NewCheckupWorker(consumer MessageConsumer, history sheets.HistoryWriter, checkup *services.CheckupService, interval time.Duration) *CheckupWorker {
	return &CheckupWorker{
		consumer: consumer,
		history:  history,
		checkup:  checkup,
		interval: interval,
	}
}

// Run supervises the consumer loop and the periodic checkup until the context
// is cancelled.
func (w *CheckupWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			if err := w.consumer.ConsumeBalanceRecorded(ctx, func(msg *amqp.BalanceRecordedMessage) error {
				return w.HandleBalanceRecorded(ctx, msg)
			}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("consume balance events: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return w.runPeriodicCheckup(ctx)
	})

	return g.Wait()
}

// HandleBalanceRecorded appends the batch to the external history sheet.
func (w *CheckupWorker) HandleBalanceRecorded(ctx context.Context, msg *amqp.BalanceRecordedMessage) error {
	slog.InfoContext(ctx, "Processing balance recorded message",
		"period_id", msg.PeriodID,
		"period_name", msg.PeriodName,
		"count", len(msg.Balances))

	if w.history == nil {
		slog.WarnContext(ctx, "No history writer configured, skipping export",
			"period_id", msg.PeriodID)
		return nil
	}

	period := core.Period{ID: msg.PeriodID, Name: msg.PeriodName}
	balances := make([]core.Balance, 0, len(msg.Balances))
	for _, b := range msg.Balances {
		balances = append(balances, core.Balance{
			PeriodID:  msg.PeriodID,
			AccountID: b.AccountID,
			Amount:    core.Money{Cents: b.AmountCents},
			UpdatedAt: b.RecordedAt,
		})
	}

	if err := w.history.AppendBalanceRows(ctx, period, balances); err != nil {
		return fmt.Errorf("export balance history: %w", err)
	}

	slog.InfoContext(ctx, "Exported balance history",
		"period_name", msg.PeriodName,
		"count", len(balances))

	return nil
}

func (w *CheckupWorker) runPeriodicCheckup(ctx context.Context) error {
	// Run once at startup so a restart doesn't wait a full interval
	w.reportCheckup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.reportCheckup(ctx)
		}
	}
}

func (w *CheckupWorker) reportCheckup(ctx context.Context) {
	prompt, err := w.checkup.Prompt(ctx, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "Checkup failed", "error", err)
		return
	}

	if len(prompt.AccountsNeedingBalances) == 0 {
		slog.InfoContext(ctx, "All active accounts have balances for the current period",
			"period_name", prompt.CurrentPeriod.Name)
		return
	}

	names := make([]string, 0, len(prompt.AccountsNeedingBalances))
	for _, a := range prompt.AccountsNeedingBalances {
		names = append(names, a.Name)
	}

	slog.WarnContext(ctx, "Accounts missing a balance for the current period",
		"period_name", prompt.CurrentPeriod.Name,
		"period_saved", prompt.PeriodSaved,
		"accounts", names,
		"last_entry", prompt.LastEntry.Format(time.RFC3339))
}
