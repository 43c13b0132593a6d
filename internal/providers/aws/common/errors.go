package common

import (
	"errors"

	"github.com/aws/smithy-go"
)

// APIErrorCode returns the service error code carried by err, or "" when err
// is not an AWS API error.
func APIErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// APIErrorMessage returns the service error message carried by err, or ""
// when err is not an AWS API error.
func APIErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorMessage()
	}
	return ""
}

// IsAPIError reports whether err is an AWS API error with one of codes.
func IsAPIError(err error, codes ...string) bool {
	code := APIErrorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
