package instances

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

// Watcher discovers instances based on selectors
type Watcher struct {
	instanceAPI SDKInstancesOps
}

// SDKInstancesOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKInstancesOps interface {
	ec2.DescribeInstancesAPIClient
	TerminateInstances(context.Context, *ec2.TerminateInstancesInput, ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

// Selector is a struct that represents an instance selector
type Selector struct {
	Tags  map[string]string
	ID    string
	VPCID string
	// State is one of: pending | running | shutting-down | terminated | stopping | stopped
	State string
}

// Instance represents an Amazon EC2 Instance
// This is not the AWS SDK Instance type, but a wrapper around it so that we can add additional data
type Instance struct {
	ec2types.Instance
}

// NewWatcher creates a new Instance Watcher
func NewWatcher(instanceAPI SDKInstancesOps) Watcher {
	return Watcher{
		instanceAPI: instanceAPI,
	}
}

// Resolve returns a list of instances that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]Instance, error) {
	var instances []Instance
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeInstancesPaginator(w.instanceAPI, &ec2.DescribeInstancesInput{
			Filters: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe instances: %w", err)
			}
			instances = append(instances, lo.FlatMap(page.Reservations, func(sdkReservation ec2types.Reservation, _ int) []Instance {
				return lo.Map(sdkReservation.Instances, func(sdkInstance ec2types.Instance, _ int) Instance {
					return Instance{sdkInstance}
				})
			})...)
		}
	}
	return instances, nil
}

// Terminate terminates the given instances in a single batch call.
// Instances that no longer exist are treated as terminated.
func (w Watcher) Terminate(ctx context.Context, instanceIDs []string) error {
	if len(instanceIDs) == 0 {
		return nil
	}
	if _, err := w.instanceAPI.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: instanceIDs}); err != nil && !awserrors.IsNotFound(err) {
		return err
	}
	return nil
}

// WaitTerminated blocks until all given instances reach the terminated state
func (w Watcher) WaitTerminated(ctx context.Context, instanceIDs []string, timeout time.Duration) error {
	if len(instanceIDs) == 0 {
		return nil
	}
	waiter := ec2.NewInstanceTerminatedWaiter(w.instanceAPI)
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: instanceIDs}, timeout); err != nil {
		return fmt.Errorf("waiting for %d instance(s) to terminate: %w", len(instanceIDs), err)
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
				Name:   aws.String("instance-id"),
				Values: []string{term.ID},
			})
		}
		if term.VPCID != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("vpc-id"),
				Values: []string{term.VPCID},
			})
		}
		if term.State != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("instance-state-name"),
				Values: []string{term.State},
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
