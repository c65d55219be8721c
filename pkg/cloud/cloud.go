package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/emr"
	"github.com/aws/aws-sdk-go-v2/service/opensearch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cqlab/cqlab/pkg/providers/buckets"
	"github.com/cqlab/cqlab/pkg/providers/domains"
	"github.com/cqlab/cqlab/pkg/providers/emrclusters"
	"github.com/cqlab/cqlab/pkg/providers/igws"
	"github.com/cqlab/cqlab/pkg/providers/instances"
	"github.com/cqlab/cqlab/pkg/providers/natgws"
	"github.com/cqlab/cqlab/pkg/providers/routetables"
	"github.com/cqlab/cqlab/pkg/providers/securitygroups"
	"github.com/cqlab/cqlab/pkg/providers/subnets"
	"github.com/cqlab/cqlab/pkg/providers/vpcs"
	"github.com/cqlab/cqlab/pkg/teardown"
	"github.com/samber/lo"
)

// Timeouts for the poll-until-terminal-state waits. Cloud deletions are
// slow; a NAT gateway regularly takes several minutes, a search domain can
// take twenty.
const (
	instanceTerminateTimeout  = 10 * time.Minute
	natGatewayDeleteTimeout   = 10 * time.Minute
	clusterTerminateTimeout   = 20 * time.Minute
	searchDomainDeleteTimeout = 30 * time.Minute
)

// AWSCloud implements the engine's capability interfaces on top of the
// per-family provider watchers.
type AWSCloud struct {
	vpcWatcher           vpcs.Watcher
	subnetWatcher        subnets.Watcher
	securityGroupWatcher securitygroups.Watcher
	instanceWatcher      instances.Watcher
	natGatewayWatcher    natgws.Watcher
	igwWatcher           igws.Watcher
	routeTableWatcher    routetables.Watcher
	clusterWatcher       emrclusters.Watcher
	domainWatcher        domains.Watcher
	bucketWatcher        buckets.Watcher
}

var (
	_ teardown.NetworkClient = (*AWSCloud)(nil)
	_ teardown.ClusterClient = (*AWSCloud)(nil)
	_ teardown.SearchClient  = (*AWSCloud)(nil)
)

// New creates an AWSCloud from an AWS config
func New(awsCfg *aws.Config) *AWSCloud {
	ec2API := ec2.NewFromConfig(*awsCfg)
	emrAPI := emr.NewFromConfig(*awsCfg)
	searchAPI := opensearch.NewFromConfig(*awsCfg)
	s3API := s3.NewFromConfig(*awsCfg)
	return &AWSCloud{
		vpcWatcher:           vpcs.NewWatcher(ec2API),
		subnetWatcher:        subnets.NewWatcher(ec2API),
		securityGroupWatcher: securitygroups.NewWatcher(ec2API),
		instanceWatcher:      instances.NewWatcher(ec2API),
		natGatewayWatcher:    natgws.NewWatcher(ec2API),
		igwWatcher:           igws.NewWatcher(ec2API),
		routeTableWatcher:    routetables.NewWatcher(ec2API),
		clusterWatcher:       emrclusters.NewWatcher(emrAPI),
		domainWatcher:        domains.NewWatcher(searchAPI),
		bucketWatcher:        buckets.NewWatcher(s3API),
	}
}

func (c *AWSCloud) FindInstances(ctx context.Context, vpcID string) ([]string, error) {
	instanceList, err := c.instanceWatcher.Resolve(ctx, []instances.Selector{{VPCID: vpcID}})
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(instanceList, func(instance instances.Instance, _ int) (string, bool) {
		switch instance.State.Name {
		case ec2types.InstanceStateNameTerminated, ec2types.InstanceStateNameShuttingDown:
			return "", false
		}
		return lo.FromPtr(instance.InstanceId), true
	}), nil
}

func (c *AWSCloud) FindSubnets(ctx context.Context, vpcID string) ([]string, error) {
	subnetList, err := c.subnetWatcher.Resolve(ctx, []subnets.Selector{{VPCID: vpcID}})
	if err != nil {
		return nil, err
	}
	return lo.Map(subnetList, func(subnet subnets.Subnet, _ int) string {
		return lo.FromPtr(subnet.SubnetId)
	}), nil
}

func (c *AWSCloud) FindSecurityGroups(ctx context.Context, vpcID string) ([]string, error) {
	securityGroups, err := c.securityGroupWatcher.Resolve(ctx, []securitygroups.Selector{{VPCID: vpcID}})
	if err != nil {
		return nil, err
	}
	// the default group is deleted along with the VPC
	return lo.FilterMap(securityGroups, func(securityGroup securitygroups.SecurityGroup, _ int) (string, bool) {
		return lo.FromPtr(securityGroup.GroupId), !securityGroup.IsDefault()
	}), nil
}

func (c *AWSCloud) FindNATGateways(ctx context.Context, vpcID string) ([]string, error) {
	natGateways, err := c.natGatewayWatcher.Resolve(ctx, []natgws.Selector{{VPCID: vpcID}})
	if err != nil {
		return nil, err
	}
	return lo.Map(natGateways, func(natGateway natgws.NATGateway, _ int) string {
		return lo.FromPtr(natGateway.NatGatewayId)
	}), nil
}

func (c *AWSCloud) FindInternetGateway(ctx context.Context, vpcID string) (string, error) {
	igwList, err := c.igwWatcher.Resolve(ctx, []igws.Selector{{VPCID: vpcID}})
	if err != nil {
		return "", err
	}
	if len(igwList) == 0 {
		return "", nil
	}
	return lo.FromPtr(igwList[0].InternetGatewayId), nil
}

func (c *AWSCloud) FindRouteTables(ctx context.Context, vpcID string) ([]string, error) {
	routeTables, err := c.routeTableWatcher.Resolve(ctx, []routetables.Selector{{VPCID: vpcID}})
	if err != nil {
		return nil, err
	}
	// the main route table is deleted along with the VPC
	return lo.FilterMap(routeTables, func(routeTable routetables.RouteTable, _ int) (string, bool) {
		return lo.FromPtr(routeTable.RouteTableId), !routeTable.IsMain()
	}), nil
}

func (c *AWSCloud) VPCName(ctx context.Context, vpcID string) (string, error) {
	vpcList, err := c.vpcWatcher.Resolve(ctx, []vpcs.Selector{{ID: vpcID}})
	if err != nil {
		return "", err
	}
	if len(vpcList) == 0 {
		return "", fmt.Errorf("vpc %s not found", vpcID)
	}
	return vpcList[0].Name(), nil
}

func (c *AWSCloud) FindVPCsByTag(ctx context.Context, tags map[string]string) ([]string, error) {
	vpcList, err := c.vpcWatcher.Resolve(ctx, []vpcs.Selector{{Tags: tags}})
	if err != nil {
		return nil, err
	}
	return lo.Map(vpcList, func(vpc vpcs.VPC, _ int) string {
		return lo.FromPtr(vpc.VpcId)
	}), nil
}

func (c *AWSCloud) FindVPCByName(ctx context.Context, name string) (string, error) {
	vpcList, err := c.vpcWatcher.Resolve(ctx, []vpcs.Selector{{Name: name}})
	if err != nil {
		return "", err
	}
	if len(vpcList) == 0 {
		return "", nil
	}
	return lo.FromPtr(vpcList[0].VpcId), nil
}

func (c *AWSCloud) TerminateInstances(ctx context.Context, instanceIDs []string) error {
	return c.instanceWatcher.Terminate(ctx, instanceIDs)
}

func (c *AWSCloud) WaitInstancesTerminated(ctx context.Context, instanceIDs []string) error {
	return c.instanceWatcher.WaitTerminated(ctx, instanceIDs, instanceTerminateTimeout)
}

func (c *AWSCloud) DeleteNATGateway(ctx context.Context, natGatewayID string) error {
	return c.natGatewayWatcher.Delete(ctx, natGatewayID)
}

func (c *AWSCloud) WaitNATGatewaysDeleted(ctx context.Context, natGatewayIDs []string) error {
	return c.natGatewayWatcher.WaitDeleted(ctx, natGatewayIDs, natGatewayDeleteTimeout)
}

func (c *AWSCloud) RevokeSecurityGroupRules(ctx context.Context, securityGroupID string) error {
	return c.securityGroupWatcher.RevokeRules(ctx, securityGroupID)
}

func (c *AWSCloud) DeleteSecurityGroup(ctx context.Context, securityGroupID string) error {
	return c.securityGroupWatcher.Delete(ctx, securityGroupID)
}

func (c *AWSCloud) DeleteSubnet(ctx context.Context, subnetID string) error {
	return c.subnetWatcher.Delete(ctx, subnetID)
}

func (c *AWSCloud) DetachInternetGateway(ctx context.Context, igwID string, vpcID string) error {
	return c.igwWatcher.Detach(ctx, igwID, vpcID)
}

func (c *AWSCloud) DeleteInternetGateway(ctx context.Context, igwID string) error {
	return c.igwWatcher.Delete(ctx, igwID)
}

func (c *AWSCloud) DeleteRouteTable(ctx context.Context, routeTableID string) error {
	return c.routeTableWatcher.Delete(ctx, routeTableID)
}

func (c *AWSCloud) DeleteVPC(ctx context.Context, vpcID string) error {
	return c.vpcWatcher.Delete(ctx, vpcID)
}

func (c *AWSCloud) FindClusters(ctx context.Context, _ string, subnetIDs []string) ([]string, error) {
	return c.clusterWatcher.ResolveInSubnets(ctx, subnetIDs)
}

func (c *AWSCloud) TerminateClusters(ctx context.Context, clusterIDs []string) error {
	return c.clusterWatcher.Terminate(ctx, clusterIDs)
}

func (c *AWSCloud) WaitClustersTerminated(ctx context.Context, clusterIDs []string) error {
	return c.clusterWatcher.WaitTerminated(ctx, clusterIDs, clusterTerminateTimeout)
}

func (c *AWSCloud) FindDomains(ctx context.Context, subnetIDs []string) ([]string, error) {
	return c.domainWatcher.ResolveInSubnets(ctx, subnetIDs)
}

func (c *AWSCloud) DeleteDomain(ctx context.Context, domainName string) error {
	return c.domainWatcher.Delete(ctx, domainName)
}

func (c *AWSCloud) WaitDomainDeleted(ctx context.Context, domainName string) error {
	return c.domainWatcher.WaitDeleted(ctx, domainName, searchDomainDeleteTimeout)
}

// DeleteBucket empties and removes the lab's artifact bucket. This is
// driven by the command layer from the cluster-state record, not by the
// teardown pipeline, since buckets are account-scoped rather than VPC-scoped.
func (c *AWSCloud) DeleteBucket(ctx context.Context, bucket string) error {
	return c.bucketWatcher.Delete(ctx, bucket)
}

// LiveInstances returns the non-terminated instances in a VPC with their
// full details, for status rendering.
func (c *AWSCloud) LiveInstances(ctx context.Context, vpcID string) ([]instances.Instance, error) {
	instanceList, err := c.instanceWatcher.Resolve(ctx, []instances.Selector{{VPCID: vpcID}})
	if err != nil {
		return nil, err
	}
	return lo.Filter(instanceList, func(instance instances.Instance, _ int) bool {
		return instance.State.Name != ec2types.InstanceStateNameTerminated
	}), nil
}
