package customers

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"

	"github.com/opendesk/mailroom/dto"
	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/interfaces"
	"github.com/opendesk/mailroom/services/addresses"
)

// Registrar maintains the customer directory from message participants.
// Internal help-desk users are looked up per address and never registered.
type Registrar struct {
	log          logger.Logger
	customerRepo interfaces.CustomerRepository
	userRepo     interfaces.UserRepository
}

func NewRegistrar(log logger.Logger, customerRepo interfaces.CustomerRepository, userRepo interfaces.UserRepository) *Registrar {
	return &Registrar{
		log:          log,
		customerRepo: customerRepo,
		userRepo:     userRepo,
	}
}

// RegisterParticipants upserts a directory entry for every participant of
// the message except the mailbox itself. When the same address appears in
// several header fields the display name from the highest-priority field
// wins: From, then Reply-To, To, Cc, Bcc. Each address is written at most
// once per message.
func (r *Registrar) RegisterParticipants(ctx context.Context, message *dto.RawMessage, mailboxEmail string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Registrar.RegisterParticipants")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	own := strings.ToLower(strings.TrimSpace(mailboxEmail))

	seen := make(map[string]bool)
	var ordered []dto.Participant

	for _, field := range [][]dto.EmailAddress{message.From, message.ReplyTo, message.To, message.Cc, message.Bcc} {
		for _, participant := range addresses.ResolveAll(field) {
			key := strings.ToLower(participant.Email)
			if key == own || seen[key] {
				continue
			}
			seen[key] = true
			ordered = append(ordered, participant)
		}
	}

	for _, participant := range ordered {
		if _, err := r.Upsert(ctx, participant); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	return nil
}

// Upsert returns the customer owning the address, creating it when missing.
// An existing customer gets its name overwritten with the latest observed
// one; an observation without a name never blanks stored names. Addresses
// belonging to internal users return nil without touching the directory.
func (r *Registrar) Upsert(ctx context.Context, participant dto.Participant) (*models.Customer, error) {
	user, err := r.userRepo.GetByEmail(ctx, participant.Email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return nil, nil
	}

	existing, err := r.customerRepo.GetByEmail(ctx, participant.Email)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if participant.FirstName != "" || participant.LastName != "" {
			existing.SetName(participant.FirstName, participant.LastName)
			if err := r.customerRepo.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	customer := &models.Customer{
		Emails: pq.StringArray{participant.Email},
	}
	customer.SetName(participant.FirstName, participant.LastName)

	if _, err := r.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	r.log.Infof("registered new customer %s for %s", customer.ID, participant.Email)
	return customer, nil
}
