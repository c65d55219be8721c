package domains_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/opensearch"
	opensearchtypes "github.com/aws/aws-sdk-go-v2/service/opensearch/types"
	"github.com/aws/smithy-go"
	"github.com/cqlab/cqlab/pkg/providers/domains"
)

// mockSearchClient implements domains.SDKSearchOps for tests
type mockSearchClient struct {
	domains map[string]*opensearchtypes.DomainStatus

	deleted []string
}

func notFound() error {
	return &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "domain not found"}
}

func (m *mockSearchClient) ListDomainNames(_ context.Context, _ *opensearch.ListDomainNamesInput, _ ...func(*opensearch.Options)) (*opensearch.ListDomainNamesOutput, error) {
	out := &opensearch.ListDomainNamesOutput{}
	for name := range m.domains {
		out.DomainNames = append(out.DomainNames, opensearchtypes.DomainInfo{DomainName: aws.String(name)})
	}
	return out, nil
}

func (m *mockSearchClient) DescribeDomain(_ context.Context, input *opensearch.DescribeDomainInput, _ ...func(*opensearch.Options)) (*opensearch.DescribeDomainOutput, error) {
	status, ok := m.domains[aws.ToString(input.DomainName)]
	if !ok {
		return nil, notFound()
	}
	return &opensearch.DescribeDomainOutput{DomainStatus: status}, nil
}

func (m *mockSearchClient) DeleteDomain(_ context.Context, input *opensearch.DeleteDomainInput, _ ...func(*opensearch.Options)) (*opensearch.DeleteDomainOutput, error) {
	name := aws.ToString(input.DomainName)
	if _, ok := m.domains[name]; !ok {
		return nil, notFound()
	}
	delete(m.domains, name)
	m.deleted = append(m.deleted, name)
	return &opensearch.DeleteDomainOutput{}, nil
}

func TestResolveInSubnets(t *testing.T) {
	mockClient := &mockSearchClient{
		domains: map[string]*opensearchtypes.DomainStatus{
			"search-in": {
				VPCOptions: &opensearchtypes.VPCDerivedInfo{SubnetIds: []string{"subnet-1"}},
			},
			"search-elsewhere": {
				VPCOptions: &opensearchtypes.VPCDerivedInfo{SubnetIds: []string{"subnet-other"}},
			},
			"search-public": {},
		},
	}
	watcher := domains.NewWatcher(mockClient)

	names, err := watcher.ResolveInSubnets(context.Background(), []string{"subnet-1", "subnet-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 1 || names[0] != "search-in" {
		t.Errorf("expected [search-in], got %v", names)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	mockClient := &mockSearchClient{
		domains: map[string]*opensearchtypes.DomainStatus{
			"search-1": {},
		},
	}
	watcher := domains.NewWatcher(mockClient)

	if err := watcher.Delete(context.Background(), "search-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a second delete of the now-missing domain is still a success
	if err := watcher.Delete(context.Background(), "search-1"); err != nil {
		t.Fatalf("expected re-delete to succeed, got %v", err)
	}
	if len(mockClient.deleted) != 1 {
		t.Errorf("expected one effective delete, got %v", mockClient.deleted)
	}
}

func TestWaitDeletedGone(t *testing.T) {
	mockClient := &mockSearchClient{domains: map[string]*opensearchtypes.DomainStatus{}}
	watcher := domains.NewWatcher(mockClient)

	if err := watcher.WaitDeleted(context.Background(), "search-1", time.Minute); err != nil {
		t.Fatalf("expected an already-gone domain to count as deleted, got %v", err)
	}
}
