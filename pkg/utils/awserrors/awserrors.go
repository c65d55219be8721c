package awserrors

import (
	"errors"
	"slices"
	"strings"

	"github.com/aws/smithy-go"
)

// IsNotFound reports whether err is a provider response for a resource that
// no longer exists. Deletion calls treat these as success so that a re-run
// of teardown on a partially-deleted VPC does not fail.
func IsNotFound(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	code := ae.ErrorCode()
	if slices.Contains([]string{
		"InvalidVpcID.NotFound",
		"InvalidSubnetID.NotFound",
		"InvalidGroup.NotFound",
		"InvalidGroupId.Malformed",
		"InvalidInternetGatewayID.NotFound",
		"InvalidRouteTableID.NotFound",
		"InvalidInstanceID.NotFound",
		"NatGatewayNotFound",
		"ResourceNotFoundException",
		"NoSuchBucket",
	}, code) {
		return true
	}
	return strings.HasSuffix(code, ".NotFound")
}
