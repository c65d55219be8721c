package vpcs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cqlab/cqlab/pkg/utils/awserrors"
	"github.com/cqlab/cqlab/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// Watcher discovers VPCs based on selectors
type Watcher struct {
	vpcAPI SDKVPCsOps
}

// SDKVPCsOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKVPCsOps interface {
	ec2.DescribeVpcsAPIClient
	DeleteVpc(context.Context, *ec2.DeleteVpcInput, ...func(*ec2.Options)) (*ec2.DeleteVpcOutput, error)
}

// Selector is a struct that represents a VPC selector
type Selector struct {
	Tags map[string]string
	ID   string
	Name string
}

// VPC represents an AWS VPC
// This is not the AWS SDK Vpc type, but a wrapper around it so that we can add additional data
type VPC struct {
	ec2types.Vpc
}

// Name returns the VPC's Name tag, or the empty string when untagged
func (v VPC) Name() string {
	return tagutils.EC2TagsToMap(v.Tags)[tagutils.NameTagKey]
}

// NewWatcher creates a new VPC Watcher
func NewWatcher(vpcAPI SDKVPCsOps) Watcher {
	return Watcher{
		vpcAPI: vpcAPI,
	}
}

// Resolve returns a list of VPCs that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]VPC, error) {
	var vpcs []VPC
	for i, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeVpcsPaginator(w.vpcAPI, &ec2.DescribeVpcsInput{
			Filters: filters,
			VpcIds:  lo.Ternary(selectors[i].ID == "", nil, []string{selectors[i].ID}),
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe vpcs: %w", err)
			}

			vpcs = append(vpcs, lo.Map(page.Vpcs, func(sdkVPC ec2types.Vpc, _ int) VPC {
				return VPC{sdkVPC}
			})...)
		}
	}
	return vpcs, nil
}

// Delete deletes a VPC. The VPC must have no dependent resources left.
// A VPC that is already gone is treated as deleted.
func (w Watcher) Delete(ctx context.Context, vpcID string) error {
	if _, err := w.vpcAPI.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: &vpcID}); err != nil && !awserrors.IsNotFound(err) {
		return err
	}
	return nil
}

// filterSets converts a slice of selectors into a slice of filters for use with the AWS SDK
func filterSets(selectors []Selector) [][]ec2types.Filter {
	var filterResult [][]ec2types.Filter
	for _, term := range selectors {
		var filters []ec2types.Filter
		if term.Name != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String(fmt.Sprintf("tag:%s", tagutils.NameTagKey)),
				Values: []string{term.Name},
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
