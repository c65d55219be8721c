package domains

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/opensearch"
	"github.com/cqlab/cqlab/pkg/utils/awserrors"
	"github.com/samber/lo"
)

// Watcher discovers OpenSearch domains attached to a VPC's subnets
type Watcher struct {
	searchAPI SDKSearchOps
}

// SDKSearchOps is an interface that combines the necessary OpenSearch SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKSearchOps interface {
	ListDomainNames(context.Context, *opensearch.ListDomainNamesInput, ...func(*opensearch.Options)) (*opensearch.ListDomainNamesOutput, error)
	DescribeDomain(context.Context, *opensearch.DescribeDomainInput, ...func(*opensearch.Options)) (*opensearch.DescribeDomainOutput, error)
	DeleteDomain(context.Context, *opensearch.DeleteDomainInput, ...func(*opensearch.Options)) (*opensearch.DeleteDomainOutput, error)
}

// NewWatcher creates a new OpenSearch domain Watcher
func NewWatcher(searchAPI SDKSearchOps) Watcher {
	return Watcher{
		searchAPI: searchAPI,
	}
}

// pollInterval is how often WaitDeleted re-checks a deleting domain.
// OpenSearch has no SDK waiter for domain deletion.
const pollInterval = 15 * time.Second

// ResolveInSubnets returns the names of domains whose VPC endpoints live in
// one of the given subnets. Domains carry no VPC id of their own, so subnet
// membership is the only way to tie them to a VPC.
func (w Watcher) ResolveInSubnets(ctx context.Context, subnetIDs []string) ([]string, error) {
	if len(subnetIDs) == 0 {
		return nil, nil
	}
	subnetSet := lo.SliceToMap(subnetIDs, func(id string) (string, struct{}) { return id, struct{}{} })

	listOut, err := w.searchAPI.ListDomainNames(ctx, &opensearch.ListDomainNamesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list search domains: %w", err)
	}

	var names []string
	for _, info := range listOut.DomainNames {
		name := lo.FromPtr(info.DomainName)
		out, err := w.searchAPI.DescribeDomain(ctx, &opensearch.DescribeDomainInput{DomainName: &name})
		if err != nil {
			if awserrors.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("failed to describe search domain %s: %w", name, err)
		}
		status := out.DomainStatus
		if status == nil || status.VPCOptions == nil {
			continue
		}
		member := lo.SomeBy(status.VPCOptions.SubnetIds, func(id string) bool {
			_, ok := subnetSet[id]
			return ok
		})
		if member {
			names = append(names, name)
		}
	}
	return names, nil
}

// Delete deletes a search domain. A domain that is already gone is treated as deleted.
func (w Watcher) Delete(ctx context.Context, domainName string) error {
	if _, err := w.searchAPI.DeleteDomain(ctx, &opensearch.DeleteDomainInput{DomainName: &domainName}); err != nil && !awserrors.IsNotFound(err) {
		return fmt.Errorf("deleting search domain %s: %w", domainName, err)
	}
	return nil
}

// WaitDeleted polls until the domain no longer exists or the timeout elapses
func (w Watcher) WaitDeleted(ctx context.Context, domainName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := w.searchAPI.DescribeDomain(ctx, &opensearch.DescribeDomainInput{DomainName: &domainName})
		if awserrors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("polling search domain %s: %w", domainName, err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for search domain %s to delete", domainName)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
