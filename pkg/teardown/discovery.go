package teardown

import (
	"context"
	"fmt"

	"github.com/cqlab/cqlab/pkg/logging"
)

// Discoverer builds a complete inventory of the resources in a VPC by
// querying each capability family.
type Discoverer struct {
	Network  NetworkClient
	Clusters ClusterClient
	Search   SearchClient
}

// Discover returns everything found in the VPC. A VPC that cannot be
// queried at all is an error; resource families with nothing in them yield
// empty lists, never an error.
func (d Discoverer) Discover(ctx context.Context, vpcID string) (DiscoveredResources, error) {
	log := logging.FromContext(ctx).With("vpc-id", vpcID)

	log.Debug("Resolving VPC")
	vpcName, err := d.Network.VPCName(ctx, vpcID)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("querying vpc %s: %w", vpcID, err)
	}

	log.Debug("Resolving EC2 instances")
	instanceIDs, err := d.Network.FindInstances(ctx, vpcID)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("finding instances in %s: %w", vpcID, err)
	}

	log.Debug("Resolving subnets")
	subnetIDs, err := d.Network.FindSubnets(ctx, vpcID)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("finding subnets in %s: %w", vpcID, err)
	}

	log.Debug("Resolving security groups")
	securityGroupIDs, err := d.Network.FindSecurityGroups(ctx, vpcID)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("finding security groups in %s: %w", vpcID, err)
	}

	log.Debug("Resolving NAT Gateways")
	natGatewayIDs, err := d.Network.FindNATGateways(ctx, vpcID)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("finding NAT gateways in %s: %w", vpcID, err)
	}

	log.Debug("Resolving Internet Gateway")
	igwID, err := d.Network.FindInternetGateway(ctx, vpcID)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("finding internet gateway in %s: %w", vpcID, err)
	}

	log.Debug("Resolving route tables")
	routeTableIDs, err := d.Network.FindRouteTables(ctx, vpcID)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("finding route tables in %s: %w", vpcID, err)
	}

	log.Debug("Resolving compute clusters")
	clusterIDs, err := d.Clusters.FindClusters(ctx, vpcID, subnetIDs)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("finding compute clusters in %s: %w", vpcID, err)
	}

	log.Debug("Resolving search domains")
	domainNames, err := d.Search.FindDomains(ctx, subnetIDs)
	if err != nil {
		return DiscoveredResources{}, fmt.Errorf("finding search domains in %s: %w", vpcID, err)
	}

	return DiscoveredResources{
		VPCID:             vpcID,
		VPCName:           vpcName,
		InstanceIDs:       orEmpty(instanceIDs),
		SubnetIDs:         orEmpty(subnetIDs),
		SecurityGroupIDs:  orEmpty(securityGroupIDs),
		NATGatewayIDs:     orEmpty(natGatewayIDs),
		InternetGatewayID: igwID,
		RouteTableIDs:     orEmpty(routeTableIDs),
		ClusterIDs:        orEmpty(clusterIDs),
		SearchDomainNames: orEmpty(domainNames),
	}, nil
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
