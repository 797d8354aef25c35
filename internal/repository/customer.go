package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/internal/utils"
)

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) interfaces.CustomerRepository {
	return &customerRepository{db: db}
}

// GetByEmail finds the customer owning an email address. Returns nil when no
// customer carries the address.
func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "customerRepository.GetByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if email == "" {
		err := errors.New("email cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("? = ANY(emails)", email).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &customer, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "customerRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if customer == nil {
		err := errors.New("customer cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if len(customer.Emails) == 0 {
		err := errors.New("customer must have at least one email")
		tracing.TraceErr(span, err)
		return "", err
	}

	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return customer.ID, nil
}

func (r *customerRepository) Update(ctx context.Context, customer *models.Customer) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "customerRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if customer == nil || customer.ID == "" {
		err := errors.New("customer ID cannot be empty")
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("customer_id", customer.ID)

	customer.UpdatedAt = utils.Now()

	err := r.db.WithContext(ctx).Save(customer).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
