/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/cqlab/cqlab/pkg/cloud"
	"github.com/cqlab/cqlab/pkg/logging"
	"github.com/cqlab/cqlab/pkg/pretty"
	"github.com/cqlab/cqlab/pkg/state"
	"github.com/cqlab/cqlab/pkg/teardown"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type DiscoverOptions struct {
	VPC string `yaml:"vpc"`
}

type DiscoverUI struct {
	VPC            string `table:"VPC"`
	Name           string `table:"Name"`
	Instances      string `table:"Instances"`
	Clusters       string `table:"Clusters"`
	Domains        string `table:"Domains"`
	Subnets        string `table:"Subnets"`
	SecurityGroups string `table:"Security-Groups"`
	NATGateways    string `table:"NAT-GWs"`
	RouteTables    string `table:"Route-Tables"`
}

var (
	discoverOptions = DiscoverOptions{}
	cmdDiscover     = &cobra.Command{
		Use:   "discover",
		Short: "list the resources a teardown would delete",
		Long:  `List every resource in the current lab VPC (or a specific VPC) without deleting anything.`,
		Args:  cobra.MinimumNArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: lo.Ternary(globalOpts.Verbose, slog.LevelDebug, slog.LevelInfo),
			}))
			return discover(logging.ToContext(cmd.Context(), logger), discoverOptions, globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdDiscover)
	cmdDiscover.Flags().StringVar(&discoverOptions.VPC, "vpc", "", "Discover a specific VPC by id instead of the current cluster")
}

func discover(ctx context.Context, discoverOptions DiscoverOptions, globalOpts GlobalOptions) error {
	awsCfg, err := AWSConfig(ctx, globalOpts)
	if err != nil {
		return err
	}

	awsCloud := cloud.New(awsCfg)
	engine := teardown.NewEngine(awsCloud, awsCloud, awsCloud)

	vpcID := discoverOptions.VPC
	if vpcID == "" {
		store := state.NewStore(state.ExpandHome(globalOpts.StateFile))
		vpcID, err = store.CurrentVPC()
		if err != nil {
			if errors.Is(err, state.ErrNoClusterState) || errors.Is(err, state.ErrNoVPCRecorded) {
				fmt.Println("No lab environment is currently up")
				return nil
			}
			return err
		}
	}

	resources, err := engine.Discover(ctx, vpcID)
	if err != nil {
		return err
	}

	switch globalOpts.Output {
	case OutputJSON:
		fmt.Println(pretty.EncodeJSON(resources))
	case OutputYAML:
		fmt.Println(pretty.EncodeYAML(resources))
	default:
		fmt.Println(pretty.Table([]DiscoverUI{resourcesToDiscoverUI(resources)}, globalOpts.Output == OutputTableWide))
	}
	return nil
}

func resourcesToDiscoverUI(resources teardown.DiscoveredResources) DiscoverUI {
	return DiscoverUI{
		VPC:            resources.VPCID,
		Name:           resources.VPCName,
		Instances:      strconv.Itoa(len(resources.InstanceIDs)),
		Clusters:       strconv.Itoa(len(resources.ClusterIDs)),
		Domains:        strconv.Itoa(len(resources.SearchDomainNames)),
		Subnets:        strconv.Itoa(len(resources.SubnetIDs)),
		SecurityGroups: strconv.Itoa(len(resources.SecurityGroupIDs)),
		NATGateways:    strconv.Itoa(len(resources.NATGatewayIDs)),
		RouteTables:    strconv.Itoa(len(resources.RouteTableIDs)),
	}
}
