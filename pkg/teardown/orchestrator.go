package teardown

import (
	"context"
	"fmt"

	"github.com/cqlab/cqlab/pkg/logging"
	"github.com/cqlab/cqlab/pkg/utils/tagutils"
)

// Engine tears down a VPC and everything in it, in the dependency order the
// provider enforces: compute clusters and instances must vacate the subnets,
// NAT and internet gateways must detach from the VPC, security group rules
// must be revoked before the groups, and route tables must go before the
// VPC delete call can succeed. The schedule is a fixed linear encoding of
// that DAG.
//
// Steps whose failure would make continuing unsafe (live clusters, live
// instances, the VPC delete itself) abort the run. Steps that are naturally
// re-runnable (NAT gateways, security groups, subnets, internet gateway,
// route tables, search domains) record their errors and continue, so a
// second invocation can retry just the remaining pieces. Re-running
// teardown on a partially-deleted VPC is the recovery mechanism: every
// delete treats "already gone" as success.
type Engine struct {
	network    NetworkClient
	clusters   ClusterClient
	search     SearchClient
	discoverer Discoverer
}

// NewEngine creates a teardown Engine from the three capability families
func NewEngine(network NetworkClient, clusters ClusterClient, search SearchClient) *Engine {
	return &Engine{
		network:  network,
		clusters: clusters,
		search:   search,
		discoverer: Discoverer{
			Network:  network,
			Clusters: clusters,
			Search:   search,
		},
	}
}

// Discover returns the inventory of a VPC without touching anything
func (e *Engine) Discover(ctx context.Context, vpcID string) (DiscoveredResources, error) {
	return e.discoverer.Discover(ctx, vpcID)
}

// Teardown tears down one VPC. It never returns an error: every failure,
// discovery included, is captured in the Result so all entry points share
// one convention. With dryRun set, the discovered inventory is reported and
// nothing is mutated.
func (e *Engine) Teardown(ctx context.Context, vpcID string, dryRun bool) Result {
	result := Result{Success: true}
	e.teardownOne(ctx, vpcID, dryRun, &result)
	return result
}

// TeardownAllTagged tears down every VPC carrying the management tag,
// sequentially. A failure in one VPC's teardown does not block the next.
// The packer image-build VPC is skipped unless includePacker is set.
func (e *Engine) TeardownAllTagged(ctx context.Context, dryRun bool, includePacker bool) Result {
	result := Result{Success: true}
	vpcIDs, err := taggedVPCs(ctx, e.network, includePacker)
	if err != nil {
		result.fail("finding tagged VPCs: %v", err)
		return result
	}
	for _, vpcID := range vpcIDs {
		e.teardownOne(ctx, vpcID, dryRun, &result)
	}
	return result
}

// TeardownPackerInfrastructure tears down just the packer image-build VPC.
// Succeeds with an empty result when no packer VPC exists.
func (e *Engine) TeardownPackerInfrastructure(ctx context.Context, dryRun bool) Result {
	result := Result{Success: true}
	vpcID, err := e.network.FindVPCByName(ctx, tagutils.PackerInfraName)
	if err != nil {
		result.fail("finding packer infrastructure VPC: %v", err)
		return result
	}
	if vpcID == "" {
		return result
	}
	e.teardownOne(ctx, vpcID, dryRun, &result)
	return result
}

// step is one stage of the pipeline. run returns every error the stage
// encountered; a critical step with errors aborts the rest of the run,
// a non-critical one records them and lets the pipeline continue.
type step struct {
	name     string
	critical bool
	run      func(ctx context.Context) []error
}

func (e *Engine) teardownOne(ctx context.Context, vpcID string, dryRun bool, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result.fail("Unexpected error: %v", r)
		}
	}()
	log := logging.FromContext(ctx).With("vpc-id", vpcID)

	inventory, err := e.discoverer.Discover(ctx, vpcID)
	if err != nil {
		result.fail("discovering resources in %s: %v", vpcID, err)
		return
	}
	result.ResourcesDeleted = append(result.ResourcesDeleted, inventory)

	if dryRun {
		log.Debug("Dry run, skipping all deletions", "resources", inventory.Count())
		return
	}

	for _, s := range e.pipeline(inventory) {
		log.Debug(s.name)
		errs := s.run(ctx)
		for _, err := range errs {
			result.fail("%s: %v", s.name, err)
		}
		if s.critical && len(errs) > 0 {
			log.Debug("Aborting teardown after critical step failure", "step", s.name)
			return
		}
	}
	log.Debug("Teardown completed", "errors", len(result.Errors))
}

func (e *Engine) pipeline(inventory DiscoveredResources) []step {
	return []step{
		{name: "terminating compute clusters", critical: true, run: func(ctx context.Context) []error {
			if len(inventory.ClusterIDs) == 0 {
				return nil
			}
			return one(e.clusters.TerminateClusters(ctx, inventory.ClusterIDs))
		}},
		{name: "waiting for compute clusters to terminate", critical: true, run: func(ctx context.Context) []error {
			if len(inventory.ClusterIDs) == 0 {
				return nil
			}
			return one(e.clusters.WaitClustersTerminated(ctx, inventory.ClusterIDs))
		}},
		{name: "deleting search domains", critical: false, run: func(ctx context.Context) []error {
			var errs []error
			var deleted []string
			for _, name := range inventory.SearchDomainNames {
				if err := e.search.DeleteDomain(ctx, name); err != nil {
					errs = append(errs, fmt.Errorf("domain %s: %w", name, err))
					continue
				}
				deleted = append(deleted, name)
			}
			// only wait on domains whose delete call went through
			for _, name := range deleted {
				if err := e.search.WaitDomainDeleted(ctx, name); err != nil {
					errs = append(errs, fmt.Errorf("domain %s: %w", name, err))
				}
			}
			return errs
		}},
		{name: "terminating EC2 instances", critical: true, run: func(ctx context.Context) []error {
			if len(inventory.InstanceIDs) == 0 {
				return nil
			}
			return one(e.network.TerminateInstances(ctx, inventory.InstanceIDs))
		}},
		{name: "waiting for EC2 instances to terminate", critical: true, run: func(ctx context.Context) []error {
			if len(inventory.InstanceIDs) == 0 {
				return nil
			}
			return one(e.network.WaitInstancesTerminated(ctx, inventory.InstanceIDs))
		}},
		{name: "deleting NAT Gateways", critical: false, run: func(ctx context.Context) []error {
			var errs []error
			var deleted []string
			for _, natGatewayID := range inventory.NATGatewayIDs {
				if err := e.network.DeleteNATGateway(ctx, natGatewayID); err != nil {
					errs = append(errs, fmt.Errorf("NAT gateway %s: %w", natGatewayID, err))
					continue
				}
				deleted = append(deleted, natGatewayID)
			}
			if len(deleted) > 0 {
				if err := e.network.WaitNATGatewaysDeleted(ctx, deleted); err != nil {
					errs = append(errs, err)
				}
			}
			return errs
		}},
		{name: "deleting security groups", critical: false, run: func(ctx context.Context) []error {
			var errs []error
			for _, securityGroupID := range inventory.SecurityGroupIDs {
				if err := e.network.RevokeSecurityGroupRules(ctx, securityGroupID); err != nil {
					errs = append(errs, fmt.Errorf("security group %s: revoking rules: %w", securityGroupID, err))
					continue
				}
				if err := e.network.DeleteSecurityGroup(ctx, securityGroupID); err != nil {
					errs = append(errs, fmt.Errorf("security group %s: %w", securityGroupID, err))
				}
			}
			return errs
		}},
		{name: "deleting subnets", critical: false, run: func(ctx context.Context) []error {
			var errs []error
			for _, subnetID := range inventory.SubnetIDs {
				if err := e.network.DeleteSubnet(ctx, subnetID); err != nil {
					errs = append(errs, fmt.Errorf("subnet %s: %w", subnetID, err))
				}
			}
			return errs
		}},
		{name: "deleting Internet Gateway", critical: false, run: func(ctx context.Context) []error {
			if inventory.InternetGatewayID == "" {
				return nil
			}
			if err := e.network.DetachInternetGateway(ctx, inventory.InternetGatewayID, inventory.VPCID); err != nil {
				return []error{fmt.Errorf("detaching %s: %w", inventory.InternetGatewayID, err)}
			}
			return one(e.network.DeleteInternetGateway(ctx, inventory.InternetGatewayID))
		}},
		{name: "deleting route tables", critical: false, run: func(ctx context.Context) []error {
			var errs []error
			for _, routeTableID := range inventory.RouteTableIDs {
				if err := e.network.DeleteRouteTable(ctx, routeTableID); err != nil {
					errs = append(errs, fmt.Errorf("route table %s: %w", routeTableID, err))
				}
			}
			return errs
		}},
		{name: "deleting VPC", critical: true, run: func(ctx context.Context) []error {
			return one(e.network.DeleteVPC(ctx, inventory.VPCID))
		}},
	}
}

func one(err error) []error {
	if err == nil {
		return nil
	}
	return []error{err}
}
