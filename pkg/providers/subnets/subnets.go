package subnets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cqlab/cqlab/pkg/utils/awserrors"
	"github.com/samber/lo"
)

// Watcher discovers subnets based on selectors
type Watcher struct {
	subnetAPI SDKSubnetsOps
}

// SDKSubnetsOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKSubnetsOps interface {
	ec2.DescribeSubnetsAPIClient
	DeleteSubnet(context.Context, *ec2.DeleteSubnetInput, ...func(*ec2.Options)) (*ec2.DeleteSubnetOutput, error)
}

// Selector is a struct that represents a subnet selector
type Selector struct {
	Tags  map[string]string
	ID    string
	VPCID string
}

// Subnet represents an AWS Subnet
// This is not the AWS SDK Subnet type, but a wrapper around it so that we can add additional data
type Subnet struct {
	ec2types.Subnet
}

// NewWatcher creates a new Subnet Watcher
func NewWatcher(subnetAPI SDKSubnetsOps) Watcher {
	return Watcher{
		subnetAPI: subnetAPI,
	}
}

// Resolve returns a list of subnets that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]Subnet, error) {
	var subnets []Subnet
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeSubnetsPaginator(w.subnetAPI, &ec2.DescribeSubnetsInput{
			Filters: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe subnets: %w", err)
			}

			subnets = append(subnets, lo.Map(page.Subnets, func(sdkSubnet ec2types.Subnet, _ int) Subnet {
				return Subnet{sdkSubnet}
			})...)
		}
	}
	return subnets, nil
}

// Delete deletes a subnet. A subnet that is already gone is treated as deleted.
func (w Watcher) Delete(ctx context.Context, subnetID string) error {
	if _, err := w.subnetAPI.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: &subnetID}); err != nil && !awserrors.IsNotFound(err) {
		return err
	}
	return nil
}

// filterSets converts a slice of selectors into a slice of filters for use with the AWS SDK
// Terms within a Selector are AND'd and between Selectors are OR'd
func filterSets(selectorList []Selector) [][]ec2types.Filter {
	var filterResult [][]ec2types.Filter
	for _, term := range selectorList {
		filters := []ec2types.Filter{}
		if term.ID != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("subnet-id"),
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
