package aws

import (
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/imrishuroy/go-table-orders/internal/events"
)

// Publisher wraps an SQS client and a queue URL. It is the order event feed
// for back-office consumers.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

func (p *Publisher) Name() string { return "sqs" }

// Publish sends ev as a JSON message tagged with its type and order id.
func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.SendOrderMessage(ctx, string(body), map[string]string{
		"event_type": ev.Type,
		"order_id":   ev.OrderID,
	})
}

// SendOrderMessage sends an order message to SQS. messageBody should be a JSON string.
// attributes map[string]string -> sent as MessageAttributes.
func (p *Publisher) SendOrderMessage(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(p.QueueURL),
		MessageBody: sdkaws.String(messageBody),
	}
	if len(attributes) > 0 {
		msgAttrs := make(map[string]sqstypes.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			if v == "" {
				continue
			}
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return wrapAPIError("send message", err)
	}
	return nil
}
