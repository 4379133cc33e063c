package aws

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-table-orders/internal/events"
)

var metricNames = map[string]string{
	events.TypeOrderCreated:        "OrdersCreated",
	events.TypeOrderSectionUpdated: "SectionStatusUpdates",
	events.TypeOrderArchived:       "OrdersArchived",
	events.TypeOrderCanceled:       "OrdersCanceled",
}

// MetricsSink counts order events in CloudWatch.
type MetricsSink struct {
	CloudWatch CloudWatchAPI
	Namespace  string
}

func NewMetricsSink(cw CloudWatchAPI, namespace string) *MetricsSink {
	return &MetricsSink{CloudWatch: cw, Namespace: namespace}
}

func (m *MetricsSink) Name() string { return "cloudwatch" }

// Publish records one count for ev, dimensioned by section and status when present.
func (m *MetricsSink) Publish(ctx context.Context, ev events.Event) error {
	name, ok := metricNames[ev.Type]
	if !ok {
		return nil
	}
	datum := cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
		Timestamp:  sdkaws.Time(ev.OccurredAt),
	}
	if ev.Section != "" {
		datum.Dimensions = append(datum.Dimensions,
			cwtypes.Dimension{Name: sdkaws.String("Section"), Value: sdkaws.String(ev.Section)},
			cwtypes.Dimension{Name: sdkaws.String("SectionStatus"), Value: sdkaws.String(ev.SectionStatus)},
		)
	}

	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.Namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return wrapAPIError("put metric data", err)
	}
	return nil
}
