package securitygroups

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cqlab/cqlab/pkg/utils/awserrors"
	"github.com/samber/lo"
)

// Watcher discovers security groups based on selectors
type Watcher struct {
	sg SDKSecurityGroupOps
}

// SDKSecurityGroupOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKSecurityGroupOps interface {
	ec2.DescribeSecurityGroupsAPIClient
	RevokeSecurityGroupIngress(context.Context, *ec2.RevokeSecurityGroupIngressInput, ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupIngressOutput, error)
	RevokeSecurityGroupEgress(context.Context, *ec2.RevokeSecurityGroupEgressInput, ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupEgressOutput, error)
	DeleteSecurityGroup(context.Context, *ec2.DeleteSecurityGroupInput, ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error)
}

// Selector is a struct that represents a security group selector
type Selector struct {
	Tags  map[string]string
	Name  string
	ID    string
	VPCID string
}

// SecurityGroup represents an AWS Security Group
// This is not the AWS SDK SecurityGroup type, but a wrapper around it so that we can add additional data
type SecurityGroup struct {
	ec2types.SecurityGroup
}

// IsDefault reports whether this is the VPC's default security group,
// which cannot be deleted and is removed along with the VPC itself.
func (s SecurityGroup) IsDefault() bool {
	return lo.FromPtr(s.GroupName) == "default"
}

// NewWatcher creates a new Security Group Watcher
func NewWatcher(sg SDKSecurityGroupOps) Watcher {
	return Watcher{
		sg: sg,
	}
}

// Resolve returns a list of security groups that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]SecurityGroup, error) {
	var securityGroups []SecurityGroup
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeSecurityGroupsPaginator(w.sg, &ec2.DescribeSecurityGroupsInput{
			Filters: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe security groups: %w", err)
			}

			securityGroups = append(securityGroups, lo.Map(page.SecurityGroups, func(sdkSG ec2types.SecurityGroup, _ int) SecurityGroup {
				return SecurityGroup{sdkSG}
			})...)
		}
	}
	return securityGroups, nil
}

// RevokeRules revokes all ingress and egress rules on a security group.
// Groups in a VPC may reference each other, so rules must be revoked on
// every group before any of the groups can be deleted.
func (w Watcher) RevokeRules(ctx context.Context, sgID string) error {
	groups, err := w.Resolve(ctx, []Selector{{ID: sgID}})
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	group := groups[0]
	if len(group.IpPermissions) > 0 {
		if _, err := w.sg.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
			GroupId:       group.GroupId,
			IpPermissions: group.IpPermissions,
		}); err != nil && !awserrors.IsNotFound(err) {
			return fmt.Errorf("revoking ingress rules: %w", err)
		}
	}
	if len(group.IpPermissionsEgress) > 0 {
		if _, err := w.sg.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
			GroupId:       group.GroupId,
			IpPermissions: group.IpPermissionsEgress,
		}); err != nil && !awserrors.IsNotFound(err) {
			return fmt.Errorf("revoking egress rules: %w", err)
		}
	}
	return nil
}

// Delete deletes a security group. A group that is already gone is treated as deleted.
func (w Watcher) Delete(ctx context.Context, sgID string) error {
	if _, err := w.sg.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: &sgID}); err != nil && !awserrors.IsNotFound(err) {
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
				Name:   aws.String("group-id"),
				Values: []string{term.ID},
			})
		}
		if term.Name != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("group-name"),
				Values: []string{term.Name},
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
