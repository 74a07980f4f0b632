package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/logger"
)

const (
	defaultPendingPaymentAge   = time.Hour
	defaultPendingPaymentBatch = 100
)

type pendingPaymentReader interface {
	FindPendingPaymentsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type intentLookup interface {
	Lookup(ctx context.Context, reference string) (*stripe.PaymentIntent, error)
}

type intentReconciler interface {
	ReconcileIntent(ctx context.Context, intent *stripe.PaymentIntent) (string, error)
}

// PaymentReconcileJobParams configure the sweep over orders whose payment
// webhook never arrived.
type PaymentReconcileJobParams struct {
	Logger     *logger.Logger
	Orders     pendingPaymentReader
	Intents    intentLookup
	Reconciler intentReconciler
	Age        time.Duration
	Limit      int
	Now        func() time.Time
}

type paymentReconcileJob struct {
	logg       *logger.Logger
	orders     pendingPaymentReader
	intents    intentLookup
	reconciler intentReconciler
	age        time.Duration
	limit      int
	now        func() time.Time
}

func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders reader required")
	}
	if params.Intents == nil {
		return nil, errors.New("intent lookup required")
	}
	if params.Reconciler == nil {
		return nil, errors.New("payment reconciler required")
	}
	age := params.Age
	if age <= 0 {
		age = defaultPendingPaymentAge
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPendingPaymentBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &paymentReconcileJob{
		logg:       params.Logger,
		orders:     params.Orders,
		intents:    params.Intents,
		reconciler: params.Reconciler,
		age:        age,
		limit:      limit,
		now:        now,
	}, nil
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

// Run asks the processor for the state of each stale pending order. One bad
// order does not stop the rest of the batch.
func (j *paymentReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)
	pending, err := j.orders.FindPendingPaymentsBefore(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}

	var errs error
	outcomes := map[string]int{}
	for _, order := range pending {
		orderCtx := j.logg.WithOrderNumber(ctx, order.OrderNumber)
		intent, err := j.intents.Lookup(orderCtx, order.PaymentReference)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("lookup %s: %w", order.OrderNumber, err))
			continue
		}
		outcome, err := j.reconciler.ReconcileIntent(orderCtx, intent)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", order.OrderNumber, err))
			continue
		}
		outcomes[outcome]++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"pending":  len(pending),
		"outcomes": outcomes,
		"failures": len(multierr.Errors(errs)),
	}), "pending payment sweep complete")
	return errs
}
