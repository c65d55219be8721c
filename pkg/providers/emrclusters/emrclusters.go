package emrclusters

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/emr"
	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"
	"github.com/samber/lo"
)

// Watcher discovers EMR clusters attached to a VPC's subnets
type Watcher struct {
	emrAPI SDKEMROps
}

// SDKEMROps is an interface that combines the necessary EMR SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKEMROps interface {
	emr.ListClustersAPIClient
	emr.DescribeClusterAPIClient
	TerminateJobFlows(context.Context, *emr.TerminateJobFlowsInput, ...func(*emr.Options)) (*emr.TerminateJobFlowsOutput, error)
}

// Cluster represents an EMR cluster
// This is not the AWS SDK Cluster type, but a wrapper around it so that we can add additional data
type Cluster struct {
	emrtypes.Cluster
}

// NewWatcher creates a new EMR cluster Watcher
func NewWatcher(emrAPI SDKEMROps) Watcher {
	return Watcher{
		emrAPI: emrAPI,
	}
}

// activeStates are the cluster states worth tearing down. Terminated and
// terminating clusters are left to finish on their own.
var activeStates = []emrtypes.ClusterState{
	emrtypes.ClusterStateStarting,
	emrtypes.ClusterStateBootstrapping,
	emrtypes.ClusterStateRunning,
	emrtypes.ClusterStateWaiting,
}

// ResolveInSubnets returns the ids of active clusters whose EC2 instances
// live in one of the given subnets. EMR clusters carry no VPC id of their
// own, so subnet membership is the only way to tie them to a VPC.
func (w Watcher) ResolveInSubnets(ctx context.Context, subnetIDs []string) ([]string, error) {
	if len(subnetIDs) == 0 {
		return nil, nil
	}
	subnetSet := lo.SliceToMap(subnetIDs, func(id string) (string, struct{}) { return id, struct{}{} })

	var clusterIDs []string
	pager := emr.NewListClustersPaginator(w.emrAPI, &emr.ListClustersInput{
		ClusterStates: activeStates,
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list EMR clusters: %w", err)
		}
		for _, summary := range page.Clusters {
			out, err := w.emrAPI.DescribeCluster(ctx, &emr.DescribeClusterInput{ClusterId: summary.Id})
			if err != nil {
				return nil, fmt.Errorf("failed to describe EMR cluster %s: %w", lo.FromPtr(summary.Id), err)
			}
			if inSubnets(out.Cluster, subnetSet) {
				clusterIDs = append(clusterIDs, lo.FromPtr(summary.Id))
			}
		}
	}
	return clusterIDs, nil
}

// Terminate terminates the given clusters in a single batch call
func (w Watcher) Terminate(ctx context.Context, clusterIDs []string) error {
	if len(clusterIDs) == 0 {
		return nil
	}
	if _, err := w.emrAPI.TerminateJobFlows(ctx, &emr.TerminateJobFlowsInput{JobFlowIds: clusterIDs}); err != nil {
		return fmt.Errorf("terminating EMR cluster(s): %w", err)
	}
	return nil
}

// WaitTerminated blocks until every given cluster reaches a terminal state
func (w Watcher) WaitTerminated(ctx context.Context, clusterIDs []string, timeout time.Duration) error {
	waiter := emr.NewClusterTerminatedWaiter(w.emrAPI)
	for _, clusterID := range clusterIDs {
		if err := waiter.Wait(ctx, &emr.DescribeClusterInput{ClusterId: &clusterID}, timeout); err != nil {
			return fmt.Errorf("waiting for EMR cluster %s to terminate: %w", clusterID, err)
		}
	}
	return nil
}

func inSubnets(cluster *emrtypes.Cluster, subnetSet map[string]struct{}) bool {
	if cluster == nil || cluster.Ec2InstanceAttributes == nil {
		return false
	}
	attrs := cluster.Ec2InstanceAttributes
	if _, ok := subnetSet[lo.FromPtr(attrs.Ec2SubnetId)]; ok {
		return true
	}
	return lo.SomeBy(attrs.RequestedEc2SubnetIds, func(id string) bool {
		_, ok := subnetSet[id]
		return ok
	})
}
