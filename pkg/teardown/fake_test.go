package teardown_test

import (
	"context"
	"fmt"
	"strings"
)

// fakeVPC is the in-memory inventory the fake cloud reports for one VPC
type fakeVPC struct {
	name           string
	tagged         bool
	instances      []string
	subnets        []string
	securityGroups []string
	natGateways    []string
	internetGW     string
	routeTables    []string
	clusters       []string
	domains        []string
}

// fakeCloud implements the engine's capability interfaces. Every mutating
// and waiting call is recorded as "Op arg1 arg2 ..." in calls, and can be
// made to fail by registering an error under the same key (or under just
// the op name to fail every invocation of it).
type fakeCloud struct {
	vpcOrder []string
	vpcs     map[string]*fakeVPC
	calls    []string
	failures map[string]error

	currentVPC    string
	currentVPCErr error
}

func newFakeCloud(vpcIDs ...string) *fakeCloud {
	f := &fakeCloud{
		vpcs:     map[string]*fakeVPC{},
		failures: map[string]error{},
	}
	for _, vpcID := range vpcIDs {
		f.vpcOrder = append(f.vpcOrder, vpcID)
		f.vpcs[vpcID] = &fakeVPC{tagged: true}
	}
	return f
}

func (f *fakeCloud) failOn(key string) {
	f.failures[key] = fmt.Errorf("injected failure: %s", key)
}

func (f *fakeCloud) do(op string, args ...string) error {
	key := strings.TrimSpace(op + " " + strings.Join(args, " "))
	f.calls = append(f.calls, key)
	if err, ok := f.failures[key]; ok {
		return err
	}
	if err, ok := f.failures[op]; ok {
		return err
	}
	return nil
}

func (f *fakeCloud) callCount(op string) int {
	n := 0
	for _, call := range f.calls {
		if call == op || strings.HasPrefix(call, op+" ") {
			n++
		}
	}
	return n
}

func (f *fakeCloud) callIndex(op string) int {
	for i, call := range f.calls {
		if call == op || strings.HasPrefix(call, op+" ") {
			return i
		}
	}
	return -1
}

func (f *fakeCloud) vpc(vpcID string) (*fakeVPC, error) {
	vpc, ok := f.vpcs[vpcID]
	if !ok {
		return nil, fmt.Errorf("vpc %s not found", vpcID)
	}
	return vpc, nil
}

// NetworkClient

func (f *fakeCloud) FindInstances(_ context.Context, vpcID string) ([]string, error) {
	if err := f.do("FindInstances", vpcID); err != nil {
		return nil, err
	}
	vpc, err := f.vpc(vpcID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, vpc.instances...), nil
}

func (f *fakeCloud) FindSubnets(_ context.Context, vpcID string) ([]string, error) {
	if err := f.do("FindSubnets", vpcID); err != nil {
		return nil, err
	}
	vpc, err := f.vpc(vpcID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, vpc.subnets...), nil
}

func (f *fakeCloud) FindSecurityGroups(_ context.Context, vpcID string) ([]string, error) {
	if err := f.do("FindSecurityGroups", vpcID); err != nil {
		return nil, err
	}
	vpc, err := f.vpc(vpcID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, vpc.securityGroups...), nil
}

func (f *fakeCloud) FindNATGateways(_ context.Context, vpcID string) ([]string, error) {
	if err := f.do("FindNATGateways", vpcID); err != nil {
		return nil, err
	}
	vpc, err := f.vpc(vpcID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, vpc.natGateways...), nil
}

func (f *fakeCloud) FindInternetGateway(_ context.Context, vpcID string) (string, error) {
	if err := f.do("FindInternetGateway", vpcID); err != nil {
		return "", err
	}
	vpc, err := f.vpc(vpcID)
	if err != nil {
		return "", err
	}
	return vpc.internetGW, nil
}

func (f *fakeCloud) FindRouteTables(_ context.Context, vpcID string) ([]string, error) {
	if err := f.do("FindRouteTables", vpcID); err != nil {
		return nil, err
	}
	vpc, err := f.vpc(vpcID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, vpc.routeTables...), nil
}

func (f *fakeCloud) VPCName(_ context.Context, vpcID string) (string, error) {
	if err := f.do("VPCName", vpcID); err != nil {
		return "", err
	}
	vpc, err := f.vpc(vpcID)
	if err != nil {
		return "", err
	}
	return vpc.name, nil
}

func (f *fakeCloud) FindVPCsByTag(_ context.Context, _ map[string]string) ([]string, error) {
	if err := f.do("FindVPCsByTag"); err != nil {
		return nil, err
	}
	var vpcIDs []string
	for _, vpcID := range f.vpcOrder {
		if f.vpcs[vpcID].tagged {
			vpcIDs = append(vpcIDs, vpcID)
		}
	}
	return vpcIDs, nil
}

func (f *fakeCloud) FindVPCByName(_ context.Context, name string) (string, error) {
	if err := f.do("FindVPCByName", name); err != nil {
		return "", err
	}
	for _, vpcID := range f.vpcOrder {
		if f.vpcs[vpcID].name == name {
			return vpcID, nil
		}
	}
	return "", nil
}

func (f *fakeCloud) TerminateInstances(_ context.Context, instanceIDs []string) error {
	return f.do("TerminateInstances", instanceIDs...)
}

func (f *fakeCloud) WaitInstancesTerminated(_ context.Context, instanceIDs []string) error {
	return f.do("WaitInstancesTerminated", instanceIDs...)
}

func (f *fakeCloud) DeleteNATGateway(_ context.Context, natGatewayID string) error {
	return f.do("DeleteNATGateway", natGatewayID)
}

func (f *fakeCloud) WaitNATGatewaysDeleted(_ context.Context, natGatewayIDs []string) error {
	return f.do("WaitNATGatewaysDeleted", natGatewayIDs...)
}

func (f *fakeCloud) RevokeSecurityGroupRules(_ context.Context, securityGroupID string) error {
	return f.do("RevokeSecurityGroupRules", securityGroupID)
}

func (f *fakeCloud) DeleteSecurityGroup(_ context.Context, securityGroupID string) error {
	return f.do("DeleteSecurityGroup", securityGroupID)
}

func (f *fakeCloud) DeleteSubnet(_ context.Context, subnetID string) error {
	return f.do("DeleteSubnet", subnetID)
}

func (f *fakeCloud) DetachInternetGateway(_ context.Context, igwID string, vpcID string) error {
	return f.do("DetachInternetGateway", igwID, vpcID)
}

func (f *fakeCloud) DeleteInternetGateway(_ context.Context, igwID string) error {
	return f.do("DeleteInternetGateway", igwID)
}

func (f *fakeCloud) DeleteRouteTable(_ context.Context, routeTableID string) error {
	return f.do("DeleteRouteTable", routeTableID)
}

func (f *fakeCloud) DeleteVPC(_ context.Context, vpcID string) error {
	return f.do("DeleteVPC", vpcID)
}

// ClusterClient

func (f *fakeCloud) FindClusters(_ context.Context, vpcID string, _ []string) ([]string, error) {
	if err := f.do("FindClusters", vpcID); err != nil {
		return nil, err
	}
	vpc, err := f.vpc(vpcID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, vpc.clusters...), nil
}

func (f *fakeCloud) TerminateClusters(_ context.Context, clusterIDs []string) error {
	return f.do("TerminateClusters", clusterIDs...)
}

func (f *fakeCloud) WaitClustersTerminated(_ context.Context, clusterIDs []string) error {
	return f.do("WaitClustersTerminated", clusterIDs...)
}

// SearchClient

func (f *fakeCloud) FindDomains(_ context.Context, subnetIDs []string) ([]string, error) {
	if err := f.do("FindDomains", subnetIDs...); err != nil {
		return nil, err
	}
	// domains belong to whichever VPC owns these subnets
	for _, vpcID := range f.vpcOrder {
		vpc := f.vpcs[vpcID]
		for _, subnetID := range subnetIDs {
			for _, vpcSubnet := range vpc.subnets {
				if subnetID == vpcSubnet {
					return append([]string{}, vpc.domains...), nil
				}
			}
		}
	}
	return nil, nil
}

func (f *fakeCloud) DeleteDomain(_ context.Context, domainName string) error {
	return f.do("DeleteDomain", domainName)
}

func (f *fakeCloud) WaitDomainDeleted(_ context.Context, domainName string) error {
	return f.do("WaitDomainDeleted", domainName)
}

// StateReader

func (f *fakeCloud) CurrentVPC() (string, error) {
	return f.currentVPC, f.currentVPCErr
}
