// Package notify tells restaurant staff about confirmed orders and handoff requests.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

const (
	EventOrderConfirmed   = "order_confirmed"
	EventHandoffRequested = "handoff_requested"
)

// Publisher is the subset of the SNS client used here.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Event is the JSON body published to the staff topic.
type Event struct {
	Type           string                `json:"type"`
	ConversationID string                `json:"conversation_id"`
	OrderID        string                `json:"order_id,omitempty"`
	Lines          []model.OrderLineItem `json:"lines,omitempty"`
	Total          float64               `json:"total,omitempty"`
	Message        string                `json:"message,omitempty"`
}

type SNSNotifier struct {
	client   Publisher
	topicARN string
}

func NewSNSNotifier(client Publisher, topicARN string) (*SNSNotifier, error) {
	if client == nil || strings.TrimSpace(topicARN) == "" {
		return nil, fmt.Errorf("notify: sns client and topic arn are required")
	}
	return &SNSNotifier{client: client, topicARN: topicARN}, nil
}

// NewSNSNotifierFromConfig builds the client from the default AWS credential chain.
func NewSNSNotifierFromConfig(ctx context.Context, cfg model.NotifyConfig) (*SNSNotifier, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSNSNotifier(sns.NewFromConfig(awsCfg), cfg.SNSTopicARN)
}

func (n *SNSNotifier) OrderConfirmed(ctx context.Context, order model.ConfirmedOrder) error {
	return n.publish(ctx, fmt.Sprintf("Nuevo pedido %s", shortID(order.ID)), Event{
		Type:           EventOrderConfirmed,
		ConversationID: order.ConversationID,
		OrderID:        order.ID,
		Lines:          order.Lines,
		Total:          order.Total,
	})
}

func (n *SNSNotifier) HandoffRequested(ctx context.Context, conversationID, message string) error {
	return n.publish(ctx, "Cliente pide hablar con una persona", Event{
		Type:           EventHandoffRequested,
		ConversationID: conversationID,
		Message:        message,
	})
}

func (n *SNSNotifier) publish(ctx context.Context, subject string, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	logx.Info().
		Str("event_type", ev.Type).
		Str("conversation_id", ev.ConversationID).
		Str("message_id", aws.ToString(out.MessageId)).
		Msg("staff notification published")
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// LogNotifier only logs; used when no topic is configured.
type LogNotifier struct{}

func (LogNotifier) OrderConfirmed(_ context.Context, order model.ConfirmedOrder) error {
	logx.Info().
		Str("conversation_id", order.ConversationID).
		Str("order_id", order.ID).
		Float64("total", order.Total).
		Msg("order confirmed")
	return nil
}

func (LogNotifier) HandoffRequested(_ context.Context, conversationID, message string) error {
	logx.Warn().
		Str("conversation_id", conversationID).
		Str("message", message).
		Msg("human handoff requested")
	return nil
}

var (
	_ model.NotificationSink = (*SNSNotifier)(nil)
	_ model.NotificationSink = LogNotifier{}
)
