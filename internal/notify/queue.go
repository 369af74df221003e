package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// QueueNotifier hands messages to an SQS queue for notify-worker to deliver.
type QueueNotifier struct {
	client   sqsAPI
	queueURL string
}

// NewQueueNotifier wraps an SQS client.
func NewQueueNotifier(client sqsAPI, queueURL string) *QueueNotifier {
	if client == nil {
		panic("notify: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("notify: SQS queueURL cannot be empty")
	}
	return &QueueNotifier{client: client, queueURL: queueURL}
}

var _ Notifier = (*QueueNotifier)(nil)

// Send enqueues msg. Delivery happens later in the worker.
func (q *QueueNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshal message: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("notify: failed to send SQS message: %w", err)
	}
	return nil
}

// QueueConsumer drains the SQS queue into a Notifier.
type QueueConsumer struct {
	client      sqsAPI
	queueURL    string
	notifier    Notifier
	logger      *logging.Logger
	batchSize   int32
	waitSeconds int32
	afterBatch  func(ctx context.Context) error
	ledger      DeliveryLedger
}

// NewQueueConsumer creates a consumer delivering through notifier.
func NewQueueConsumer(client sqsAPI, queueURL string, notifier Notifier, logger *logging.Logger) *QueueConsumer {
	if logger == nil {
		logger = logging.Default()
	}
	return &QueueConsumer{
		client:      client,
		queueURL:    queueURL,
		notifier:    notifier,
		logger:      logger,
		batchSize:   10,
		waitSeconds: 20,
	}
}

// WithWaitSeconds sets the long-poll duration.
func (c *QueueConsumer) WithWaitSeconds(n int) *QueueConsumer {
	if n >= 0 && n <= 20 {
		c.waitSeconds = int32(n)
	}
	return c
}

// WithDeliveryLedger skips messages the ledger has already seen delivered.
func (c *QueueConsumer) WithDeliveryLedger(l DeliveryLedger) *QueueConsumer {
	c.ledger = l
	return c
}

// WithAfterBatch runs fn after every batch that delivered something.
func (c *QueueConsumer) WithAfterBatch(fn func(ctx context.Context) error) *QueueConsumer {
	c.afterBatch = fn
	return c
}

// Poll receives one batch and delivers it. Messages that fail delivery stay
// on the queue for redelivery; undecodable ones are dropped.
func (c *QueueConsumer) Poll(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.batchSize,
		WaitTimeSeconds:     c.waitSeconds,
	})
	if err != nil {
		return 0, fmt.Errorf("notify: failed to receive SQS messages: %w", err)
	}

	delivered := 0
	for _, m := range out.Messages {
		var msg Message
		if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &msg); err != nil {
			c.logger.Error("notify: dropping undecodable message", "error", err, "message_id", aws.ToString(m.MessageId))
			c.delete(ctx, m.ReceiptHandle)
			continue
		}
		id := aws.ToString(m.MessageId)
		if c.alreadyDelivered(ctx, id) {
			c.logger.Info("notify: skipping redelivered message", "message_id", id)
			c.delete(ctx, m.ReceiptHandle)
			continue
		}
		if err := c.notifier.Send(ctx, msg); err != nil {
			c.logger.Warn("notify: delivery failed, leaving for redelivery", "error", err, "message_id", id)
			continue
		}
		if c.ledger != nil && id != "" {
			if err := c.ledger.MarkDelivered(ctx, id); err != nil {
				c.logger.Error("notify: record delivery failed", "error", err, "message_id", id)
			}
		}
		c.delete(ctx, m.ReceiptHandle)
		delivered++
	}

	if delivered > 0 && c.afterBatch != nil {
		if err := c.afterBatch(ctx); err != nil {
			c.logger.Error("notify: after batch hook failed", "error", err)
		}
	}
	return delivered, nil
}

// alreadyDelivered treats ledger errors as not delivered, preferring a
// duplicate to a lost message.
func (c *QueueConsumer) alreadyDelivered(ctx context.Context, id string) bool {
	if c.ledger == nil || id == "" {
		return false
	}
	seen, err := c.ledger.Delivered(ctx, id)
	if err != nil {
		c.logger.Warn("notify: delivery ledger unavailable", "error", err, "message_id", id)
		return false
	}
	return seen
}

func (c *QueueConsumer) delete(ctx context.Context, receipt *string) {
	if aws.ToString(receipt) == "" {
		return
	}
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receipt,
	}); err != nil {
		c.logger.Error("notify: failed to delete SQS message", "error", err)
	}
}

// Run polls until ctx is cancelled.
func (c *QueueConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.Poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("notify: poll failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}
}
