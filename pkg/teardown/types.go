package teardown

import "fmt"

// DiscoveredResources is an immutable snapshot of every resource found in
// one VPC. It is built once per discovery pass and never mutated; a dry run
// and a real run each build their own snapshot.
type DiscoveredResources struct {
	VPCID             string   `json:"vpcId" yaml:"vpcId"`
	VPCName           string   `json:"vpcName,omitempty" yaml:"vpcName,omitempty"`
	InstanceIDs       []string `json:"instanceIds" yaml:"instanceIds"`
	SubnetIDs         []string `json:"subnetIds" yaml:"subnetIds"`
	SecurityGroupIDs  []string `json:"securityGroupIds" yaml:"securityGroupIds"`
	NATGatewayIDs     []string `json:"natGatewayIds" yaml:"natGatewayIds"`
	InternetGatewayID string   `json:"internetGatewayId,omitempty" yaml:"internetGatewayId,omitempty"`
	RouteTableIDs     []string `json:"routeTableIds" yaml:"routeTableIds"`
	ClusterIDs        []string `json:"clusterIds" yaml:"clusterIds"`
	SearchDomainNames []string `json:"searchDomainNames" yaml:"searchDomainNames"`
}

// Count returns the total number of discovered resources, excluding the VPC itself
func (d DiscoveredResources) Count() int {
	n := len(d.InstanceIDs) + len(d.SubnetIDs) + len(d.SecurityGroupIDs) +
		len(d.NATGatewayIDs) + len(d.RouteTableIDs) + len(d.ClusterIDs) + len(d.SearchDomainNames)
	if d.InternetGatewayID != "" {
		n++
	}
	return n
}

// Result is the outcome of one teardown run. ResourcesDeleted carries one
// inventory per VPC processed. Success is false iff Errors is non-empty.
type Result struct {
	Success          bool                  `json:"success" yaml:"success"`
	ResourcesDeleted []DiscoveredResources `json:"resourcesDeleted" yaml:"resourcesDeleted"`
	Errors           []string              `json:"errors" yaml:"errors"`
}

func (r *Result) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Success = false
}

// ModeKind discriminates the teardown modes an operator can request
type ModeKind int

const (
	KindCurrentCluster ModeKind = iota
	KindSpecificVPC
	KindAllTagged
	KindPackerOnly
)

// Mode describes operator intent for one teardown invocation.
// Construct it with one of CurrentCluster, SpecificVPC, AllTagged, or
// PackerInfrastructureOnly; it is immutable after construction.
type Mode struct {
	Kind          ModeKind
	VPCID         string
	IncludePacker bool
}

// CurrentCluster targets the VPC recorded in the persisted cluster state
func CurrentCluster() Mode {
	return Mode{Kind: KindCurrentCluster}
}

// SpecificVPC targets one VPC by id
func SpecificVPC(vpcID string) Mode {
	return Mode{Kind: KindSpecificVPC, VPCID: vpcID}
}

// AllTagged targets every VPC carrying the management tag. The packer
// image-build VPC is skipped unless includePacker is set.
func AllTagged(includePacker bool) Mode {
	return Mode{Kind: KindAllTagged, IncludePacker: includePacker}
}

// PackerInfrastructureOnly targets just the packer image-build VPC
func PackerInfrastructureOnly() Mode {
	return Mode{Kind: KindPackerOnly}
}
