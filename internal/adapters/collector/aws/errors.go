package aws

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/driftscan/driftscan/internal/errors"
)

// mapAPIError translates an AWS SDK error into an application error code.
// Context cancellation is checked first so a cancelled run does not get
// reported as an API failure.
func mapAPIError(ctx context.Context, operation string, err error) error {
	if err == nil {
		return errors.New(errors.CodeInternal, "nil error passed to AWS error mapper for "+operation)
	}
	if ctx.Err() != nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.CodeTimeout,
			fmt.Sprintf("context cancelled during AWS %s call", operation))
	}

	msg := err.Error()
	if isAuthError(err, msg) {
		return errors.WrapUserFacing(err, errors.CodeCollectorAuthError,
			fmt.Sprintf("AWS authentication error during %s", operation),
			"Check your AWS credentials, profile and region settings.")
	}
	if isNotFoundError(err, msg) {
		return errors.Wrap(err, errors.CodeResourceNotFound,
			fmt.Sprintf("resource not found during %s", operation))
	}
	return errors.Wrap(err, errors.CodeCollectorAPIError,
		fmt.Sprintf("AWS %s call failed", operation))
}

func isAuthError(err error, msg string) bool {
	var apiErr smithy.APIError
	if stderrs.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AuthFailure", "UnauthorizedOperation", "AccessDenied", "AccessDeniedException",
			"ExpiredToken", "InvalidClientTokenId":
			return true
		}
	}
	return strings.Contains(msg, "AuthFailure") ||
		strings.Contains(msg, "UnauthorizedOperation") ||
		strings.Contains(msg, "AccessDenied") ||
		strings.Contains(msg, "no EC2 IMDS role found")
}

func isNotFoundError(err error, msg string) bool {
	var apiErr smithy.APIError
	if stderrs.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed",
			"ResourceNotFoundException", "NotFoundException":
			return true
		}
	}
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "not found")
}
