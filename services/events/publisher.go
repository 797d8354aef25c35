package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/opendesk/mailroom/internal/logger"
	"github.com/opendesk/mailroom/internal/models"
	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/internal/utils"
	"github.com/opendesk/mailroom/interfaces"
)

const (
	ExchangeMailroom   = "mailroom-events"
	ExchangeDeadLetter = "mailroom-dead-letter"

	QueueConversationCreated = "conversation-created"
	QueueCustomerReplied     = "customer-replied"
	DLQConversationCreated   = QueueConversationCreated + "-dlq"
	DLQCustomerReplied       = QueueCustomerReplied + "-dlq"

	RoutingKeyDeadLetter          = "dead-letter"
	RoutingKeyConversationCreated = "mailroom-conversation-created"
	RoutingKeyCustomerReplied     = "mailroom-customer-replied"

	defaultMessageTTL     = 240 * time.Hour
	defaultMaxRetries     = 3
	defaultPublishTimeout = 5 * time.Second
)

// ConversationEvent is the payload published for both event kinds.
type ConversationEvent struct {
	ID             string    `json:"id"`
	EventType      string    `json:"eventType"`
	ConversationID string    `json:"conversationId"`
	ThreadID       string    `json:"threadId"`
	MailboxID      string    `json:"mailboxId"`
	CustomerID     string    `json:"customerId"`
	CustomerEmail  string    `json:"customerEmail"`
	Subject        string    `json:"subject"`
	Timestamp      time.Time `json:"timestamp"`
}

// RabbitMQPublisher emits ingestion events on a direct exchange with
// per-queue dead-lettering. Publishing uses confirms and bounded retries;
// a lost broker connection is re-established in the background.
type RabbitMQPublisher struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	publishChannel  *amqp091.Channel
	publishMutex    sync.Mutex
	confirms        chan amqp091.Confirmation
	url             string
	log             logger.Logger
}

func NewRabbitMQPublisher(rabbitmqURL string, log logger.Logger) (interfaces.EventPublisher, error) {
	publisher := &RabbitMQPublisher{
		url: rabbitmqURL,
		log: log,
	}

	if err := publisher.connect(); err != nil {
		return nil, err
	}
	return publisher, nil
}

func (r *RabbitMQPublisher) PublishConversationCreated(ctx context.Context, conversation *models.Conversation, thread *models.Thread) {
	r.publishEvent(ctx, "ConversationCreated", RoutingKeyConversationCreated, conversation, thread)
}

func (r *RabbitMQPublisher) PublishCustomerReplied(ctx context.Context, conversation *models.Conversation, thread *models.Thread) {
	r.publishEvent(ctx, "CustomerReplied", RoutingKeyCustomerReplied, conversation, thread)
}

func (r *RabbitMQPublisher) publishEvent(ctx context.Context, eventType, routingKey string, conversation *models.Conversation, thread *models.Thread) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.publishEvent")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, conversation.ID)

	event := ConversationEvent{
		ID:             utils.GenerateNanoIDWithPrefix("event", 21),
		EventType:      eventType,
		ConversationID: conversation.ID,
		ThreadID:       thread.ID,
		MailboxID:      conversation.MailboxID,
		CustomerID:     conversation.CustomerID,
		CustomerEmail:  conversation.CustomerEmail,
		Subject:        conversation.Subject,
		Timestamp:      utils.Now(),
	}

	// Publish failures never fail the ingestion run
	if err := r.publishWithRetry(ctx, event, routingKey); err != nil {
		tracing.TraceErr(span, err)
		r.log.Errorf("failed to publish %s event for conversation %s: %v", eventType, conversation.ID, err)
	}
}

func (r *RabbitMQPublisher) publishWithRetry(ctx context.Context, event ConversationEvent, routingKey string) error {
	for attempt := 0; attempt < defaultMaxRetries; attempt++ {
		err := r.publishWithConfirm(ctx, event, routingKey)
		if err == nil {
			return nil
		}

		r.log.Warnf("publish attempt %d failed: %v", attempt+1, err)
		if attempt < defaultMaxRetries-1 {
			time.Sleep(time.Millisecond * 100 * time.Duration(attempt+1))
		}
	}
	return errors.New("failed to publish message after all retries")
}

func (r *RabbitMQPublisher) publishWithConfirm(ctx context.Context, event ConversationEvent, routingKey string) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := r.ensureConnectionAndChannel(); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	err = r.publishChannel.Publish(
		ExchangeMailroom,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			Body:         jsonBody,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return errors.Wrap(err, "failed to publish message")
	}

	select {
	case confirm := <-r.confirms:
		if !confirm.Ack {
			return errors.New("message was not confirmed by server")
		}
	case <-time.After(defaultPublishTimeout):
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (r *RabbitMQPublisher) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	r.connection, err = amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	if err := r.setupExchangesAndQueues(); err != nil {
		return errors.Wrap(err, "failed to setup exchanges and queues")
	}

	if err := r.setupPublishChannel(); err != nil {
		return errors.Wrap(err, "failed to setup publish channel")
	}

	go r.handleReconnection()

	return nil
}

func (r *RabbitMQPublisher) ensureConnectionAndChannel() error {
	if r.connection == nil || r.connection.IsClosed() {
		if err := r.connect(); err != nil {
			return errors.Wrap(err, "failed to establish connection")
		}
	}

	if r.publishChannel == nil || r.publishChannel.IsClosed() {
		if err := r.setupPublishChannel(); err != nil {
			return errors.Wrap(err, "failed to establish channel")
		}
	}

	return nil
}

func (r *RabbitMQPublisher) setupPublishChannel() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open publish channel")
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		return errors.Wrap(err, "failed to enable publisher confirms")
	}

	r.confirms = channel.NotifyPublish(make(chan amqp091.Confirmation, 1))
	r.publishChannel = channel
	return nil
}

func (r *RabbitMQPublisher) setupExchangesAndQueues() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open channel for exchange/queue setup")
	}
	defer channel.Close()

	for _, exchange := range []string{ExchangeDeadLetter, ExchangeMailroom} {
		err := channel.ExchangeDeclare(
			exchange,
			"direct",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to declare exchange %s", exchange)
		}
	}

	bindings := []struct {
		queue      string
		dlq        string
		routingKey string
	}{
		{QueueConversationCreated, DLQConversationCreated, RoutingKeyConversationCreated},
		{QueueCustomerReplied, DLQCustomerReplied, RoutingKeyCustomerReplied},
	}

	for _, b := range bindings {
		if err := r.declareQueueWithDLQ(channel, b.queue, b.dlq); err != nil {
			return err
		}
		err := channel.QueueBind(b.queue, b.routingKey, ExchangeMailroom, false, nil)
		if err != nil {
			return errors.Wrapf(err, "failed to bind queue %s to exchange %s", b.queue, ExchangeMailroom)
		}
	}

	return nil
}

func (r *RabbitMQPublisher) declareQueueWithDLQ(channel *amqp091.Channel, queueName, dlqName string) error {
	_, err := channel.QueueDeclare(dlqName, true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to declare DLQ %s", dlqName)
	}

	err = channel.QueueBind(dlqName, RoutingKeyDeadLetter, ExchangeDeadLetter, false, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to bind DLQ %s to exchange", dlqName)
	}

	args := map[string]interface{}{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": RoutingKeyDeadLetter,
		"x-message-ttl":             int64(defaultMessageTTL.Milliseconds()),
	}

	_, err = channel.QueueDeclare(queueName, true, false, false, false, args)
	if err != nil {
		return errors.Wrapf(err, "failed to declare queue %s", queueName)
	}

	return nil
}

func (r *RabbitMQPublisher) handleReconnection() {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		notifyClose := r.connection.NotifyClose(make(chan *amqp091.Error))
		err := <-notifyClose
		r.log.Warnf("RabbitMQ connection closed: %v, attempting to reconnect", err)

		for {
			if err := r.connect(); err == nil {
				r.log.Info("successfully reconnected to RabbitMQ")
				break
			} else {
				r.log.Errorf("failed to reconnect: %v, retrying in %v", err, backoff)
				time.Sleep(backoff)
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}

		backoff = time.Second
	}
}

func (r *RabbitMQPublisher) Close() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	if r.publishChannel != nil {
		if closeErr := r.publishChannel.Close(); closeErr != nil {
			r.log.Errorf("error closing publish channel: %v", closeErr)
			err = closeErr
		}
	}

	if r.connection != nil {
		if closeErr := r.connection.Close(); closeErr != nil {
			r.log.Errorf("error closing connection: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}

	return err
}
