package natgws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cqlab/cqlab/pkg/utils/awserrors"
	"github.com/samber/lo"
)

// Watcher discovers NAT Gateways based on selectors
type Watcher struct {
	ec2API SDKNATGWOps
}

// SDKNATGWOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKNATGWOps interface {
	ec2.DescribeNatGatewaysAPIClient
	DeleteNatGateway(context.Context, *ec2.DeleteNatGatewayInput, ...func(*ec2.Options)) (*ec2.DeleteNatGatewayOutput, error)
}

// Selector is a struct that represents a NAT Gateway selector
type Selector struct {
	Tags  map[string]string
	ID    string
	VPCID string
}

// NATGateway represents an AWS NAT Gateway
// This is not the AWS SDK NatGateway type, but a wrapper around it so that we can add additional data
type NATGateway struct {
	ec2types.NatGateway
}

// NewWatcher creates a new NATGateway Watcher
func NewWatcher(ec2API SDKNATGWOps) Watcher {
	return Watcher{
		ec2API: ec2API,
	}
}

// Resolve returns a list of NAT Gateways that match the provided selectors.
// Gateways that are already deleted or deleting are excluded.
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]NATGateway, error) {
	var natgws []NATGateway
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeNatGatewaysPaginator(w.ec2API, &ec2.DescribeNatGatewaysInput{
			Filter: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe NAT Gateways: %w", err)
			}

			natgws = append(natgws, lo.FilterMap(page.NatGateways, func(sdkNATGateway ec2types.NatGateway, _ int) (NATGateway, bool) {
				switch sdkNATGateway.State {
				case ec2types.NatGatewayStateDeleted, ec2types.NatGatewayStateDeleting:
					return NATGateway{}, false
				}
				return NATGateway{sdkNATGateway}, true
			})...)
		}
	}
	return natgws, nil
}

// Delete deletes a NAT Gateway. A gateway that is already gone is treated as deleted.
func (w Watcher) Delete(ctx context.Context, natGatewayID string) error {
	if _, err := w.ec2API.DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{NatGatewayId: &natGatewayID}); err != nil && !awserrors.IsNotFound(err) {
		return err
	}
	return nil
}

// WaitDeleted blocks until all given NAT Gateways reach the deleted state
func (w Watcher) WaitDeleted(ctx context.Context, natGatewayIDs []string, timeout time.Duration) error {
	if len(natGatewayIDs) == 0 {
		return nil
	}
	waiter := ec2.NewNatGatewayDeletedWaiter(w.ec2API)
	if err := waiter.Wait(ctx, &ec2.DescribeNatGatewaysInput{NatGatewayIds: natGatewayIDs}, timeout); err != nil {
		return fmt.Errorf("waiting for %d NAT Gateway(s) to delete: %w", len(natGatewayIDs), err)
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
				Name:   aws.String("nat-gateway-id"),
				Values: []string{term.ID},
			})
		}
		if term.VPCID != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("vpc-id"),
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
