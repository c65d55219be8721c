package igws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cqlab/cqlab/pkg/utils/awserrors"
	"github.com/samber/lo"
)

// Watcher discovers Internet Gateways based on selectors
type Watcher struct {
	ec2API SDKIGWOps
}

// SDKIGWOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKIGWOps interface {
	ec2.DescribeInternetGatewaysAPIClient
	DeleteInternetGateway(context.Context, *ec2.DeleteInternetGatewayInput, ...func(*ec2.Options)) (*ec2.DeleteInternetGatewayOutput, error)
	DetachInternetGateway(context.Context, *ec2.DetachInternetGatewayInput, ...func(*ec2.Options)) (*ec2.DetachInternetGatewayOutput, error)
}

// Selector is a struct that represents an Internet Gateway selector
type Selector struct {
	Tags  map[string]string
	ID    string
	VPCID string
}

// InternetGateway represents an AWS Internet Gateway
// This is not the AWS SDK InternetGateway type, but a wrapper around it so that we can add additional data
type InternetGateway struct {
	ec2types.InternetGateway
}

// NewWatcher creates a new InternetGateway Watcher
func NewWatcher(ec2API SDKIGWOps) Watcher {
	return Watcher{
		ec2API: ec2API,
	}
}

// Resolve returns a list of Internet Gateways that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]InternetGateway, error) {
	var igws []InternetGateway
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeInternetGatewaysPaginator(w.ec2API, &ec2.DescribeInternetGatewaysInput{
			Filters: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe Internet Gateways: %w", err)
			}

			igws = append(igws, lo.Map(page.InternetGateways, func(sdkInternetGateway ec2types.InternetGateway, _ int) InternetGateway {
				return InternetGateway{sdkInternetGateway}
			})...)
		}
	}
	return igws, nil
}

// Detach detaches an Internet Gateway from a VPC.
// A gateway that is already detached or gone is treated as detached.
func (w Watcher) Detach(ctx context.Context, igwID string, vpcID string) error {
	if _, err := w.ec2API.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
		InternetGatewayId: &igwID,
		VpcId:             &vpcID,
	}); err != nil && !awserrors.IsNotFound(err) {
		return err
	}
	return nil
}

// Delete deletes an Internet Gateway. It must be detached from its VPC first.
// A gateway that is already gone is treated as deleted.
func (w Watcher) Delete(ctx context.Context, igwID string) error {
	if _, err := w.ec2API.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
		InternetGatewayId: &igwID,
	}); err != nil && !awserrors.IsNotFound(err) {
		return err
	}
	return nil
}

// filterSets converts a slice of selectors into a slice of filters for use with the AWS SDK
// Each filter is executed as a separate list call.
// Terms within a Selector are AND'd and between Selectors are OR'd
func filterSets(selectorList []Selector) [][]ec2types.Filter {
	var filterResult [][]ec2types.Filter
	for _, term := range selectorList {
		filters := []ec2types.Filter{}
		if term.ID != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("internet-gateway-id"),
				Values: []string{term.ID},
			})
		}
		if term.VPCID != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("attachment.vpc-id"),
				Values: []string{term.VPCID},
			})
		}
		for k, v := range term.Tags {
			if v == "*" || v == "" {
				filters = append(filters, ec2types.Filter{
					Name:   aws.String("tag-key"),
					Values: []string{k},
				})
			} else {
				filters = append(filters, ec2types.Filter{
					Name:   aws.String(fmt.Sprintf("tag:%s", k)),
					Values: []string{v},
				})
			}
		}
		filterResult = append(filterResult, filters)
	}
	return filterResult
}
