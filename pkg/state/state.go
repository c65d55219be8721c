package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the cluster-state file lives unless overridden
const DefaultPath = "~/.cqlab/cluster.yaml"

var (
	// ErrNoClusterState means no lab environment has been recorded yet
	ErrNoClusterState = errors.New("no cluster state found")
	// ErrNoVPCRecorded means state exists but no VPC id was recorded in it
	ErrNoVPCRecorded = errors.New("cluster state has no VPC recorded")
)

// ClusterState records what one named lab environment currently holds in
// the cloud account. It is written on every up/down transition so that
// later commands can find the environment without re-scanning the account.
type ClusterState struct {
	Name           string    `yaml:"name"`
	Region         string    `yaml:"region,omitempty"`
	VPCID          string    `yaml:"vpc_id,omitempty"`
	Bucket         string    `yaml:"bucket,omitempty"`
	InstanceIDs    []string  `yaml:"instance_ids,omitempty"`
	ClusterIDs     []string  `yaml:"cluster_ids,omitempty"`
	DomainNames    []string  `yaml:"domain_names,omitempty"`
	Infrastructure string    `yaml:"infrastructure,omitempty"` // up | down
	UpdatedAt      time.Time `yaml:"updated_at,omitempty"`
}

// MarkDown clears the per-resource fields and flags the infrastructure as
// torn down. The caller decides whether to also clear the VPC id and bucket.
func (c *ClusterState) MarkDown() {
	c.InstanceIDs = nil
	c.ClusterIDs = nil
	c.DomainNames = nil
	c.Infrastructure = "down"
}

// Store reads and writes the cluster-state file
type Store struct {
	Path string
}

// NewStore creates a Store, defaulting to DefaultPath when path is empty
func NewStore(path string) Store {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}
	return Store{Path: path}
}

// Load reads the cluster state. A missing file is ErrNoClusterState.
func (s Store) Load() (*ClusterState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.Path, ErrNoClusterState)
		}
		return nil, fmt.Errorf("reading cluster state: %w", err)
	}
	clusterState := &ClusterState{}
	if err := yaml.Unmarshal(data, clusterState); err != nil {
		return nil, fmt.Errorf("parsing cluster state %s: %w", s.Path, err)
	}
	return clusterState, nil
}

// Save writes the cluster state, creating the parent directory if needed
func (s Store) Save(clusterState *ClusterState) error {
	clusterState.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(clusterState)
	if err != nil {
		return fmt.Errorf("encoding cluster state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("writing cluster state: %w", err)
	}
	return nil
}

// CurrentVPC returns the recorded VPC id for the current lab environment
func (s Store) CurrentVPC() (string, error) {
	clusterState, err := s.Load()
	if err != nil {
		return "", err
	}
	if clusterState.VPCID == "" {
		return "", ErrNoVPCRecorded
	}
	return clusterState.VPCID, nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
