package emrclusters_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/emr"
	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"
	"github.com/cqlab/cqlab/pkg/providers/emrclusters"
)

// mockEMRClient implements emrclusters.SDKEMROps for tests
type mockEMRClient struct {
	clusters map[string]*emrtypes.Cluster

	terminatedJobFlows [][]string
	listStates         []emrtypes.ClusterState
}

func (m *mockEMRClient) ListClusters(_ context.Context, input *emr.ListClustersInput, _ ...func(*emr.Options)) (*emr.ListClustersOutput, error) {
	m.listStates = input.ClusterStates
	out := &emr.ListClustersOutput{}
	for id := range m.clusters {
		out.Clusters = append(out.Clusters, emrtypes.ClusterSummary{Id: aws.String(id)})
	}
	return out, nil
}

func (m *mockEMRClient) DescribeCluster(_ context.Context, input *emr.DescribeClusterInput, _ ...func(*emr.Options)) (*emr.DescribeClusterOutput, error) {
	return &emr.DescribeClusterOutput{Cluster: m.clusters[aws.ToString(input.ClusterId)]}, nil
}

func (m *mockEMRClient) TerminateJobFlows(_ context.Context, input *emr.TerminateJobFlowsInput, _ ...func(*emr.Options)) (*emr.TerminateJobFlowsOutput, error) {
	m.terminatedJobFlows = append(m.terminatedJobFlows, input.JobFlowIds)
	return &emr.TerminateJobFlowsOutput{}, nil
}

func TestResolveInSubnets(t *testing.T) {
	mockClient := &mockEMRClient{
		clusters: map[string]*emrtypes.Cluster{
			"j-in": {
				Id: aws.String("j-in"),
				Ec2InstanceAttributes: &emrtypes.Ec2InstanceAttributes{
					Ec2SubnetId: aws.String("subnet-1"),
				},
			},
			"j-requested": {
				Id: aws.String("j-requested"),
				Ec2InstanceAttributes: &emrtypes.Ec2InstanceAttributes{
					RequestedEc2SubnetIds: []string{"subnet-9", "subnet-2"},
				},
			},
			"j-elsewhere": {
				Id: aws.String("j-elsewhere"),
				Ec2InstanceAttributes: &emrtypes.Ec2InstanceAttributes{
					Ec2SubnetId: aws.String("subnet-other"),
				},
			},
			"j-no-attrs": {
				Id: aws.String("j-no-attrs"),
			},
		},
	}
	watcher := emrclusters.NewWatcher(mockClient)

	clusterIDs, err := watcher.ResolveInSubnets(context.Background(), []string{"subnet-1", "subnet-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusterIDs) != 2 {
		t.Fatalf("expected 2 clusters, got %v", clusterIDs)
	}
	found := map[string]bool{}
	for _, id := range clusterIDs {
		found[id] = true
	}
	if !found["j-in"] || !found["j-requested"] {
		t.Errorf("expected j-in and j-requested, got %v", clusterIDs)
	}
	if len(mockClient.listStates) == 0 {
		t.Error("expected the listing to filter on active cluster states")
	}
}

func TestResolveInSubnetsEmpty(t *testing.T) {
	mockClient := &mockEMRClient{}
	watcher := emrclusters.NewWatcher(mockClient)

	clusterIDs, err := watcher.ResolveInSubnets(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusterIDs) != 0 {
		t.Errorf("expected no clusters without subnets, got %v", clusterIDs)
	}
	if mockClient.listStates != nil {
		t.Error("expected no ListClusters call without subnets")
	}
}

func TestTerminate(t *testing.T) {
	mockClient := &mockEMRClient{}
	watcher := emrclusters.NewWatcher(mockClient)

	if err := watcher.Terminate(context.Background(), []string{"j-1", "j-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mockClient.terminatedJobFlows) != 1 || len(mockClient.terminatedJobFlows[0]) != 2 {
		t.Errorf("expected one batch terminate of 2 clusters, got %v", mockClient.terminatedJobFlows)
	}

	if err := watcher.Terminate(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mockClient.terminatedJobFlows) != 1 {
		t.Errorf("expected no terminate call for an empty batch, got %v", mockClient.terminatedJobFlows)
	}
}
