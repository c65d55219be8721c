package teardown

import (
	"context"
	"fmt"

	"github.com/cqlab/cqlab/pkg/utils/tagutils"
)

// ModeSelector resolves an operator's teardown mode into the concrete VPC
// ids to process.
type ModeSelector struct {
	State   StateReader
	Network NetworkClient
}

// Resolve returns the VPC ids a mode targets. CurrentCluster and
// SpecificVPC yield exactly one id, AllTagged zero or more, and PackerOnly
// zero or one. CurrentCluster propagates the state store's
// ErrNoClusterState / ErrNoVPCRecorded so the caller can surface them as a
// user message rather than a failure.
func (s ModeSelector) Resolve(ctx context.Context, mode Mode) ([]string, error) {
	switch mode.Kind {
	case KindCurrentCluster:
		vpcID, err := s.State.CurrentVPC()
		if err != nil {
			return nil, err
		}
		return []string{vpcID}, nil
	case KindSpecificVPC:
		return []string{mode.VPCID}, nil
	case KindAllTagged:
		return taggedVPCs(ctx, s.Network, mode.IncludePacker)
	case KindPackerOnly:
		vpcID, err := s.Network.FindVPCByName(ctx, tagutils.PackerInfraName)
		if err != nil {
			return nil, err
		}
		if vpcID == "" {
			return nil, nil
		}
		return []string{vpcID}, nil
	}
	return nil, fmt.Errorf("unknown teardown mode: %d", mode.Kind)
}

// taggedVPCs returns every VPC carrying the management tag, excluding the
// packer image-build VPC by name unless asked for.
func taggedVPCs(ctx context.Context, network NetworkClient, includePacker bool) ([]string, error) {
	vpcIDs, err := network.FindVPCsByTag(ctx, tagutils.ManagedTags(""))
	if err != nil {
		return nil, err
	}
	if includePacker {
		return vpcIDs, nil
	}
	var filtered []string
	for _, vpcID := range vpcIDs {
		name, err := network.VPCName(ctx, vpcID)
		if err != nil {
			return nil, err
		}
		if name == tagutils.PackerInfraName {
			continue
		}
		filtered = append(filtered, vpcID)
	}
	return filtered, nil
}
