package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultRegion is used when neither the caller nor AWS_REGION names one.
const DefaultRegion = "us-east-1"

// LoadAWSConfig resolves the SDK config. AWS_ENDPOINT_OVERRIDE points every
// client at a local emulator such as LocalStack.
func LoadAWSConfig(ctx context.Context, region string) (sdkaws.Config, error) {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_OVERRIDE"); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
