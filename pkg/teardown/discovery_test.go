package teardown_test

import (
	"context"
	"testing"

	"github.com/cqlab/cqlab/pkg/teardown"
)

func TestDiscoverInventory(t *testing.T) {
	f := newFakeCloud("vpc-1")
	populate(f.vpcs["vpc-1"])
	discoverer := teardown.Discoverer{Network: f, Clusters: f, Search: f}

	resources, err := discoverer.Discover(context.Background(), "vpc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resources.VPCID != "vpc-1" {
		t.Errorf("expected VPCID vpc-1, got %q", resources.VPCID)
	}
	if resources.VPCName != "cqlab-test" {
		t.Errorf("expected VPCName cqlab-test, got %q", resources.VPCName)
	}
	if len(resources.InstanceIDs) != 2 {
		t.Errorf("expected 2 instances, got %v", resources.InstanceIDs)
	}
	if len(resources.SubnetIDs) != 2 {
		t.Errorf("expected 2 subnets, got %v", resources.SubnetIDs)
	}
	if len(resources.ClusterIDs) != 1 {
		t.Errorf("expected 1 cluster, got %v", resources.ClusterIDs)
	}
	if len(resources.SearchDomainNames) != 2 {
		t.Errorf("expected 2 domains, got %v", resources.SearchDomainNames)
	}
	if resources.InternetGatewayID != "igw-1" {
		t.Errorf("expected igw-1, got %q", resources.InternetGatewayID)
	}
	if resources.Count() != 12 {
		t.Errorf("expected count 12, got %d", resources.Count())
	}
}

func TestDiscoverEmptyVPCYieldsEmptyLists(t *testing.T) {
	f := newFakeCloud("vpc-1")
	discoverer := teardown.Discoverer{Network: f, Clusters: f, Search: f}

	resources, err := discoverer.Discover(context.Background(), "vpc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resources.Count() != 0 {
		t.Errorf("expected empty inventory, counted %d", resources.Count())
	}
	for name, ids := range map[string][]string{
		"InstanceIDs":       resources.InstanceIDs,
		"SubnetIDs":         resources.SubnetIDs,
		"SecurityGroupIDs":  resources.SecurityGroupIDs,
		"NATGatewayIDs":     resources.NATGatewayIDs,
		"RouteTableIDs":     resources.RouteTableIDs,
		"ClusterIDs":        resources.ClusterIDs,
		"SearchDomainNames": resources.SearchDomainNames,
	} {
		if ids == nil {
			t.Errorf("expected %s to be an empty list, got nil", name)
		}
	}
}

func TestDiscoverUnknownVPC(t *testing.T) {
	f := newFakeCloud()
	discoverer := teardown.Discoverer{Network: f, Clusters: f, Search: f}

	if _, err := discoverer.Discover(context.Background(), "vpc-missing"); err == nil {
		t.Fatal("expected an error for an unknown VPC")
	}
}
