package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// wrapAPIError prefixes err with the AWS error code when the service returned one.
func wrapAPIError(op string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return fmt.Errorf("%s: %s (%s): %w", op, ae.ErrorCode(), ae.ErrorFault(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
