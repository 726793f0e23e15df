// Package payments implements the payment request approval state machine:
// pending -> approved | rejected, with no transition out of a terminal
// state. Approval does not move money on the ledger.
package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/events"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	eventmodels "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models/events"
)

type RequestPayment struct {
	EmployeeID    string
	Amount        decimal.Decimal
	PaymentPeriod string
	PaymentMethod string
	Description   string
}

type ApprovePayment struct {
	PaymentID  string
	Approved   bool
	Remarks    string
	ApproverID string
}

type Workflow struct {
	store    interfaces.Store
	notifier *events.Notifier
	log      *logrus.Logger
	now      func() time.Time
}

func NewWorkflow(store interfaces.Store, notifier *events.Notifier, log *logrus.Logger) *Workflow {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Workflow{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (w *Workflow) RegisterEmployee(ctx context.Context, name, position string) (models.Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Employee{}, apperrors.Invalid("name", "is required")
	}
	employee := models.Employee{
		ID:        uuid.New().String(),
		Name:      name,
		Position:  strings.TrimSpace(position),
		CreatedAt: w.now(),
	}
	err := w.store.WithTx(ctx, func(tx interfaces.Tx) error {
		return apperrors.Storage("insert employee", tx.InsertEmployee(ctx, employee))
	})
	if err != nil {
		return models.Employee{}, err
	}
	return employee, nil
}

func (w *Workflow) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var out []models.Employee
	err := w.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListEmployees(ctx)
		return apperrors.Storage("list employees", err)
	})
	return out, err
}

// Request creates a pending payment for an existing employee.
func (w *Workflow) Request(ctx context.Context, cmd RequestPayment) (models.Payment, error) {
	start := time.Now()
	payment, err := w.prepare(cmd)
	if err == nil {
		err = w.store.WithTx(ctx, func(tx interfaces.Tx) error {
			if _, err := tx.GetEmployee(ctx, payment.EmployeeID); err != nil {
				return apperrors.Storage("get employee", err)
			}
			return apperrors.Storage("insert payment", tx.InsertPayment(ctx, payment))
		})
	}
	metrics.ObserveOperation("request_payment", start, err)
	if err != nil {
		return models.Payment{}, err
	}

	w.log.WithFields(logrus.Fields{
		"payment_id":  payment.ID,
		"employee_id": payment.EmployeeID,
		"amount":      payment.Amount.String(),
	}).Info("payment requested")
	w.notifier.Emit(ctx, eventmodels.TopicPaymentRequested, payment.ID, eventmodels.PaymentRequested{
		PaymentID:  payment.ID,
		EmployeeID: payment.EmployeeID,
		Amount:     payment.Amount,
		OccurredAt: payment.CreatedAt,
	})
	return payment, nil
}

// Approve moves a pending payment to approved or rejected. A payment that
// already reached a terminal status fails with ErrInvalidState and is left
// unchanged.
func (w *Workflow) Approve(ctx context.Context, cmd ApprovePayment) (models.Payment, error) {
	start := time.Now()
	var payment models.Payment
	err := w.store.WithTx(ctx, func(tx interfaces.Tx) error {
		var err error
		payment, err = tx.LockPayment(ctx, cmd.PaymentID)
		if err != nil {
			return apperrors.Storage("lock payment", err)
		}
		if payment.Status.Terminal() {
			return apperrors.InvalidState("payment %s is already %s", payment.ID, payment.Status)
		}

		approvedAt := w.now()
		payment.Status = models.PaymentRejected
		if cmd.Approved {
			payment.Status = models.PaymentApproved
		}
		payment.Remarks = strings.TrimSpace(cmd.Remarks)
		payment.ApprovedAt = &approvedAt
		payment.ProcessedBy = strings.TrimSpace(cmd.ApproverID)
		return apperrors.Storage("update payment", tx.UpdatePayment(ctx, payment))
	})
	metrics.ObserveOperation("approve_payment", start, err)
	if err != nil {
		return models.Payment{}, err
	}

	w.log.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"status":     payment.Status,
	}).Info("payment processed")
	w.notifier.Emit(ctx, eventmodels.TopicPaymentProcessed, payment.ID, eventmodels.PaymentProcessed{
		PaymentID:   payment.ID,
		EmployeeID:  payment.EmployeeID,
		Amount:      payment.Amount,
		Status:      string(payment.Status),
		ProcessedBy: payment.ProcessedBy,
		OccurredAt:  *payment.ApprovedAt,
	})
	return payment, nil
}

func (w *Workflow) Get(ctx context.Context, id string) (models.Payment, error) {
	var payment models.Payment
	err := w.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		payment, err = tx.GetPayment(ctx, id)
		return apperrors.Storage("get payment", err)
	})
	return payment, err
}

func (w *Workflow) List(ctx context.Context) ([]models.Payment, error) {
	var out []models.Payment
	err := w.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListPayments(ctx)
		return apperrors.Storage("list payments", err)
	})
	return out, err
}

func (w *Workflow) prepare(cmd RequestPayment) (models.Payment, error) {
	switch {
	case strings.TrimSpace(cmd.EmployeeID) == "":
		return models.Payment{}, apperrors.Invalid("employee_id", "is required")
	case !cmd.Amount.IsPositive():
		return models.Payment{}, apperrors.Invalid("amount", "must be positive")
	case strings.TrimSpace(cmd.PaymentPeriod) == "":
		return models.Payment{}, apperrors.Invalid("payment_period", "is required")
	case strings.TrimSpace(cmd.PaymentMethod) == "":
		return models.Payment{}, apperrors.Invalid("payment_method", "is required")
	}
	if err := models.CheckMoneyScale("amount", cmd.Amount); err != nil {
		return models.Payment{}, err
	}

	return models.Payment{
		ID:            uuid.New().String(),
		EmployeeID:    strings.TrimSpace(cmd.EmployeeID),
		Amount:        cmd.Amount,
		PaymentPeriod: strings.TrimSpace(cmd.PaymentPeriod),
		PaymentMethod: strings.TrimSpace(cmd.PaymentMethod),
		Description:   strings.TrimSpace(cmd.Description),
		Status:        models.PaymentPending,
		CreatedAt:     w.now(),
	}, nil
}
