package teardown

import "context"

// NetworkClient is the VPC/network capability the engine requires from the
// cloud provider. All delete operations are idempotent: deleting a resource
// that no longer exists returns nil.
type NetworkClient interface {
	FindInstances(ctx context.Context, vpcID string) ([]string, error)
	FindSubnets(ctx context.Context, vpcID string) ([]string, error)
	FindSecurityGroups(ctx context.Context, vpcID string) ([]string, error)
	FindNATGateways(ctx context.Context, vpcID string) ([]string, error)
	// FindInternetGateway returns the empty string when the VPC has no
	// internet gateway attached.
	FindInternetGateway(ctx context.Context, vpcID string) (string, error)
	FindRouteTables(ctx context.Context, vpcID string) ([]string, error)
	VPCName(ctx context.Context, vpcID string) (string, error)
	FindVPCsByTag(ctx context.Context, tags map[string]string) ([]string, error)
	// FindVPCByName returns the empty string when no VPC carries the name.
	FindVPCByName(ctx context.Context, name string) (string, error)

	TerminateInstances(ctx context.Context, instanceIDs []string) error
	WaitInstancesTerminated(ctx context.Context, instanceIDs []string) error
	DeleteNATGateway(ctx context.Context, natGatewayID string) error
	WaitNATGatewaysDeleted(ctx context.Context, natGatewayIDs []string) error
	RevokeSecurityGroupRules(ctx context.Context, securityGroupID string) error
	DeleteSecurityGroup(ctx context.Context, securityGroupID string) error
	DeleteSubnet(ctx context.Context, subnetID string) error
	DetachInternetGateway(ctx context.Context, igwID string, vpcID string) error
	DeleteInternetGateway(ctx context.Context, igwID string) error
	DeleteRouteTable(ctx context.Context, routeTableID string) error
	DeleteVPC(ctx context.Context, vpcID string) error
}

// ClusterClient is the compute-cluster (EMR) capability the engine requires
type ClusterClient interface {
	// FindClusters returns active clusters whose instances live in the
	// VPC's subnets. Clusters are not tagged with a VPC id, only tied to
	// it through subnet membership.
	FindClusters(ctx context.Context, vpcID string, subnetIDs []string) ([]string, error)
	TerminateClusters(ctx context.Context, clusterIDs []string) error
	WaitClustersTerminated(ctx context.Context, clusterIDs []string) error
}

// SearchClient is the search-domain (OpenSearch) capability the engine requires
type SearchClient interface {
	// FindDomains returns domains whose VPC endpoints live in the given
	// subnets, for the same reason clusters are found by subnet.
	FindDomains(ctx context.Context, subnetIDs []string) ([]string, error)
	DeleteDomain(ctx context.Context, domainName string) error
	WaitDomainDeleted(ctx context.Context, domainName string) error
}

// StateReader reports the VPC recorded for the current lab environment.
// The engine itself does no file I/O; the persisted cluster-state file
// backs this interface outside the core.
type StateReader interface {
	// CurrentVPC returns the recorded VPC id. It fails with
	// state.ErrNoClusterState when no environment was ever brought up and
	// state.ErrNoVPCRecorded when the record lacks a VPC id.
	CurrentVPC() (string, error)
}
