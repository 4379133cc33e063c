package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// AWSClients bundles the service clients behind the order event sinks.
type AWSClients struct {
	SQS        SQSAPI
	CloudWatch CloudWatchAPI
}

// NewAWSClients loads AWS config and returns concrete service clients that implement our interfaces.
func NewAWSClients(ctx context.Context, region string) (*AWSClients, error) {
	cfg, err := LoadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return &AWSClients{
		SQS:        sqs.NewFromConfig(cfg),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
	}, nil
}
