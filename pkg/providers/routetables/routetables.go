package routetables

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cqlab/cqlab/pkg/utils/awserrors"
	"github.com/samber/lo"
)

// Watcher discovers route tables based on selectors
type Watcher struct {
	routeTableAPI SDKRouteTablesOps
}

// SDKRouteTablesOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKRouteTablesOps interface {
	ec2.DescribeRouteTablesAPIClient
	DeleteRouteTable(context.Context, *ec2.DeleteRouteTableInput, ...func(*ec2.Options)) (*ec2.DeleteRouteTableOutput, error)
	DisassociateRouteTable(context.Context, *ec2.DisassociateRouteTableInput, ...func(*ec2.Options)) (*ec2.DisassociateRouteTableOutput, error)
}

// Selector is a struct that represents a route table selector
type Selector struct {
	Tags  map[string]string
	ID    string
	VPCID string
}

// RouteTable represents an AWS RouteTable
// This is not the AWS SDK RouteTable type, but a wrapper around it so that we can add additional data
type RouteTable struct {
	ec2types.RouteTable
}

// IsMain reports whether this is the VPC's main route table, which cannot
// be deleted and is removed along with the VPC itself.
func (r RouteTable) IsMain() bool {
	return lo.SomeBy(r.Associations, func(assoc ec2types.RouteTableAssociation) bool {
		return lo.FromPtr(assoc.Main)
	})
}

// NewWatcher creates a new RouteTable Watcher
func NewWatcher(routeTableAPI SDKRouteTablesOps) Watcher {
	return Watcher{
		routeTableAPI: routeTableAPI,
	}
}

// Resolve returns a list of route tables that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]RouteTable, error) {
	var routeTables []RouteTable
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeRouteTablesPaginator(w.routeTableAPI, &ec2.DescribeRouteTablesInput{
			Filters: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe route tables: %w", err)
			}

			routeTables = append(routeTables, lo.Map(page.RouteTables, func(sdkRouteTable ec2types.RouteTable, _ int) RouteTable {
				return RouteTable{sdkRouteTable}
			})...)
		}
	}
	return routeTables, nil
}

// Delete disassociates a route table from its subnets and deletes it.
// A table that is already gone is treated as deleted.
func (w Watcher) Delete(ctx context.Context, routeTableID string) error {
	tables, err := w.Resolve(ctx, []Selector{{ID: routeTableID}})
	if err != nil {
		return err
	}
	for _, table := range tables {
		for _, assoc := range table.Associations {
			if lo.FromPtr(assoc.Main) {
				continue
			}
			if _, err := w.routeTableAPI.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{
				AssociationId: assoc.RouteTableAssociationId,
			}); err != nil && !awserrors.IsNotFound(err) {
				return fmt.Errorf("disassociating route table: %w", err)
			}
		}
	}
	if _, err := w.routeTableAPI.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: &routeTableID}); err != nil && !awserrors.IsNotFound(err) {
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
				Name:   aws.String("route-table-id"),
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
