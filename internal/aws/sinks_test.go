package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-table-orders/internal/events"
)

type mockSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{}, nil
}

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

var sampleEvent = events.Event{
	Type:          events.TypeOrderSectionUpdated,
	OrderID:       "order-1",
	OrderNumber:   42,
	TableNumber:   3,
	Section:       "pizzeria",
	SectionStatus: "ready",
	Status:        "pending",
	OccurredAt:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
}

func TestPublisher_Publish(t *testing.T) {
	mock := &mockSQS{}
	p := NewPublisher(mock, "https://sqs.local/queue/order-events")

	require.NoError(t, p.Publish(context.Background(), sampleEvent))
	require.Len(t, mock.inputs, 1)

	in := mock.inputs[0]
	assert.Equal(t, "https://sqs.local/queue/order-events", *in.QueueUrl)
	assert.Equal(t, events.TypeOrderSectionUpdated, *in.MessageAttributes["event_type"].StringValue)
	assert.Equal(t, "order-1", *in.MessageAttributes["order_id"].StringValue)

	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(*in.MessageBody), &got))
	assert.Equal(t, sampleEvent, got)
}

func TestPublisher_APIErrorCarriesCode(t *testing.T) {
	mock := &mockSQS{err: &smithy.GenericAPIError{Code: "AWS.SimpleQueueService.NonExistentQueue", Message: "no queue", Fault: smithy.FaultClient}}
	p := NewPublisher(mock, "q")

	err := p.Publish(context.Background(), sampleEvent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NonExistentQueue")

	var ae smithy.APIError
	require.ErrorAs(t, err, &ae)
}

func TestMetricsSink_Publish(t *testing.T) {
	mock := &mockCloudWatch{}
	m := NewMetricsSink(mock, "TableOrders")

	require.NoError(t, m.Publish(context.Background(), sampleEvent))
	require.Len(t, mock.inputs, 1)

	in := mock.inputs[0]
	assert.Equal(t, "TableOrders", *in.Namespace)
	require.Len(t, in.MetricData, 1)
	d := in.MetricData[0]
	assert.Equal(t, "SectionStatusUpdates", *d.MetricName)
	assert.Equal(t, cwtypes.StandardUnitCount, d.Unit)
	assert.Equal(t, 1.0, *d.Value)
	require.Len(t, d.Dimensions, 2)
	assert.Equal(t, "pizzeria", *d.Dimensions[0].Value)
}

func TestMetricsSink_NoDimensionsWithoutSection(t *testing.T) {
	mock := &mockCloudWatch{}
	m := NewMetricsSink(mock, "TableOrders")

	ev := sampleEvent
	ev.Type, ev.Section, ev.SectionStatus = events.TypeOrderCreated, "", ""
	require.NoError(t, m.Publish(context.Background(), ev))
	assert.Empty(t, mock.inputs[0].MetricData[0].Dimensions)
	assert.Equal(t, "OrdersCreated", *mock.inputs[0].MetricData[0].MetricName)
}

func TestMetricsSink_UnknownTypeIgnored(t *testing.T) {
	mock := &mockCloudWatch{}
	m := NewMetricsSink(mock, "TableOrders")
	require.NoError(t, m.Publish(context.Background(), events.Event{Type: "order.unknown"}))
	assert.Empty(t, mock.inputs)
}

func TestMetricsSink_PlainErrorWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	m := NewMetricsSink(&mockCloudWatch{err: boom}, "TableOrders")
	err := m.Publish(context.Background(), sampleEvent)
	require.ErrorIs(t, err, boom)
}
