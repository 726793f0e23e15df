package donations

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
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/ledger"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	eventmodels "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models/events"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/programarea"
)

type RecordDonation struct {
	DonorName     string
	Amount        decimal.Decimal
	PaymentMethod string
	Date          time.Time
	Project       string // optional program area name
	Notes         string
}

// Processor records donations into the ledger and, when earmarked, into a
// program area balance.
type Processor struct {
	store     interfaces.Store
	ledger    *ledger.Ledger
	allocator *programarea.Allocator
	notifier  *events.Notifier
	log       *logrus.Logger
	now       func() time.Time
}

func NewProcessor(store interfaces.Store, l *ledger.Ledger, allocator *programarea.Allocator, notifier *events.Notifier, log *logrus.Logger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{
		store:     store,
		ledger:    l,
		allocator: allocator,
		notifier:  notifier,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (p *Processor) Record(ctx context.Context, cmd RecordDonation) (models.Donation, error) {
	start := time.Now()
	donation, err := p.prepare(cmd)
	if err == nil {
		err = p.store.WithTx(ctx, func(tx interfaces.Tx) error {
			if donation.Project != "" {
				if _, err := p.allocator.Lock(ctx, tx, donation.Project); err != nil {
					return err
				}
			}

			entry, err := p.ledger.Apply(ctx, tx, donation.Amount, "donation from "+donation.DonorName)
			if err != nil {
				return err
			}
			donation.TransactionID = entry.ID

			if err := tx.InsertDonation(ctx, donation); err != nil {
				return apperrors.Storage("insert donation", err)
			}
			if donation.Project != "" {
				if _, err := p.allocator.Credit(ctx, tx, donation.Project, donation.Amount); err != nil {
					return err
				}
			}
			return nil
		})
	}
	metrics.ObserveOperation("record_donation", start, err)
	if err != nil {
		return models.Donation{}, err
	}

	p.log.WithFields(logrus.Fields{
		"donation_id": donation.ID,
		"donor":       donation.DonorName,
		"amount":      donation.Amount.String(),
		"project":     donation.Project,
	}).Info("donation recorded")
	p.notifier.Emit(ctx, eventmodels.TopicDonationRecorded, donation.ID, eventmodels.DonationRecorded{
		DonationID: donation.ID,
		DonorName:  donation.DonorName,
		Amount:     donation.Amount,
		Project:    donation.Project,
		OccurredAt: donation.CreatedAt,
	})
	return donation, nil
}

// Delete reverses the donation's effect on its program area and on the
// ledger, then removes it. Elapsed time does not matter.
func (p *Processor) Delete(ctx context.Context, id string) error {
	start := time.Now()
	var donation models.Donation
	err := p.store.WithTx(ctx, func(tx interfaces.Tx) error {
		var err error
		donation, err = tx.GetDonation(ctx, id)
		if err != nil {
			return apperrors.Storage("get donation", err)
		}
		if donation.Status != models.DonationPending && donation.Status != models.DonationCompleted {
			return apperrors.InvalidState("donation %s has status %q", id, donation.Status)
		}

		if donation.Project != "" {
			if _, err := p.allocator.Debit(ctx, tx, donation.Project, donation.Amount); err != nil {
				return err
			}
		}
		if _, err := p.ledger.Reverse(ctx, tx, donation.TransactionID); err != nil {
			return err
		}
		return apperrors.Storage("delete donation", tx.DeleteDonation(ctx, id))
	})
	metrics.ObserveOperation("delete_donation", start, err)
	if err != nil {
		return err
	}

	p.log.WithField("donation_id", id).Info("donation deleted")
	p.notifier.Emit(ctx, eventmodels.TopicDonationDeleted, id, eventmodels.DonationDeleted{
		DonationID: id,
		Amount:     donation.Amount,
		Project:    donation.Project,
		OccurredAt: p.now(),
	})
	return nil
}

func (p *Processor) Get(ctx context.Context, id string) (models.Donation, error) {
	var donation models.Donation
	err := p.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		donation, err = tx.GetDonation(ctx, id)
		return apperrors.Storage("get donation", err)
	})
	return donation, err
}

func (p *Processor) List(ctx context.Context) ([]models.Donation, error) {
	var out []models.Donation
	err := p.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListDonations(ctx)
		return apperrors.Storage("list donations", err)
	})
	return out, err
}

func (p *Processor) prepare(cmd RecordDonation) (models.Donation, error) {
	donor := strings.TrimSpace(cmd.DonorName)
	method := strings.TrimSpace(cmd.PaymentMethod)
	switch {
	case donor == "":
		return models.Donation{}, apperrors.Invalid("donor_name", "is required")
	case !cmd.Amount.IsPositive():
		return models.Donation{}, apperrors.Invalid("amount", "must be positive")
	case method == "":
		return models.Donation{}, apperrors.Invalid("payment_method", "is required")
	case cmd.Date.IsZero():
		return models.Donation{}, apperrors.Invalid("date", "is required")
	}
	if err := models.CheckMoneyScale("amount", cmd.Amount); err != nil {
		return models.Donation{}, err
	}

	return models.Donation{
		ID:            uuid.New().String(),
		DonorName:     donor,
		Amount:        cmd.Amount,
		PaymentMethod: method,
		Date:          cmd.Date,
		Project:       strings.TrimSpace(cmd.Project),
		Notes:         strings.TrimSpace(cmd.Notes),
		Status:        models.DonationCompleted,
		CreatedAt:     p.now(),
	}, nil
}
