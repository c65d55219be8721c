package teardown_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cqlab/cqlab/pkg/teardown"
)

func TestModeSelectorResolve(t *testing.T) {
	type testCase struct {
		name     string
		mode     teardown.Mode
		expected []string
	}

	f := newFakeCloud("vpc-a", "vpc-b", "vpc-packer")
	f.vpcs["vpc-a"].name = "cqlab-a"
	f.vpcs["vpc-b"].name = "cqlab-b"
	f.vpcs["vpc-packer"].name = "cqlab-packer"
	f.currentVPC = "vpc-a"
	selector := teardown.ModeSelector{State: f, Network: f}

	for _, tc := range []testCase{
		{name: "current cluster", mode: teardown.CurrentCluster(), expected: []string{"vpc-a"}},
		{name: "specific vpc", mode: teardown.SpecificVPC("vpc-b"), expected: []string{"vpc-b"}},
		{name: "all tagged", mode: teardown.AllTagged(false), expected: []string{"vpc-a", "vpc-b"}},
		{name: "all tagged with packer", mode: teardown.AllTagged(true), expected: []string{"vpc-a", "vpc-b", "vpc-packer"}},
		{name: "packer only", mode: teardown.PackerInfrastructureOnly(), expected: []string{"vpc-packer"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			vpcIDs, err := selector.Resolve(context.Background(), tc.mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(vpcIDs) != len(tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, vpcIDs)
			}
			for i, expected := range tc.expected {
				if vpcIDs[i] != expected {
					t.Errorf("expected %v, got %v", tc.expected, vpcIDs)
				}
			}
		})
	}
}

func TestModeSelectorCurrentClusterStateError(t *testing.T) {
	f := newFakeCloud()
	stateErr := errors.New("no cluster state found")
	f.currentVPCErr = stateErr
	selector := teardown.ModeSelector{State: f, Network: f}

	_, err := selector.Resolve(context.Background(), teardown.CurrentCluster())
	if !errors.Is(err, stateErr) {
		t.Fatalf("expected the state error to propagate, got %v", err)
	}
}

func TestModeSelectorPackerAbsent(t *testing.T) {
	f := newFakeCloud("vpc-a")
	f.vpcs["vpc-a"].name = "cqlab-a"
	selector := teardown.ModeSelector{State: f, Network: f}

	vpcIDs, err := selector.Resolve(context.Background(), teardown.PackerInfrastructureOnly())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vpcIDs) != 0 {
		t.Fatalf("expected no VPCs, got %v", vpcIDs)
	}
}
