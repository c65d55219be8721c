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
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/cqlab/cqlab/pkg/cloud"
	"github.com/cqlab/cqlab/pkg/logging"
	"github.com/cqlab/cqlab/pkg/pretty"
	"github.com/cqlab/cqlab/pkg/state"
	"github.com/cqlab/cqlab/pkg/teardown"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type DownOptions struct {
	VPC           string `yaml:"vpc"`
	All           bool   `yaml:"all"`
	IncludePacker bool   `yaml:"includePacker"`
	PackerOnly    bool   `yaml:"packerOnly"`
	DryRun        bool   `yaml:"dryRun"`
	Force         bool   `yaml:"force"`
}

type DownUI struct {
	VPC       string `table:"VPC"`
	Name      string `table:"Name"`
	Resources string `table:"Resources"`
}

var (
	downOptions = DownOptions{}
	cmdDown     = &cobra.Command{
		Use:   "down",
		Short: "tear down lab infrastructure",
		Long:  `Tear down the current lab environment, a specific VPC, or everything cqlab has tagged.`,
		Args:  cobra.MinimumNArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: lo.Ternary(globalOpts.Verbose, slog.LevelDebug, slog.LevelInfo),
			}))
			return down(logging.ToContext(cmd.Context(), logger), downOptions, globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdDown)
	cmdDown.Flags().StringVar(&downOptions.VPC, "vpc", "", "Tear down a specific VPC by id instead of the current cluster")
	cmdDown.Flags().BoolVar(&downOptions.All, "all", false, "Tear down every VPC tagged ManagedBy=cqlab")
	cmdDown.Flags().BoolVar(&downOptions.IncludePacker, "include-packer", false, "With --all, also tear down the packer image-build VPC")
	cmdDown.Flags().BoolVar(&downOptions.PackerOnly, "packer-only", false, "Tear down only the packer image-build VPC")
	cmdDown.Flags().BoolVarP(&downOptions.DryRun, "dry-run", "d", false, "Report what would be deleted without deleting anything")
	cmdDown.Flags().BoolVar(&downOptions.Force, "force", false, "Don't ask, just do it!")
}

func down(ctx context.Context, downOptions DownOptions, globalOpts GlobalOptions) error {
	downOptions, err := ParseConfig(globalOpts, downOptions)
	if err != nil {
		return err
	}
	awsCfg, err := AWSConfig(ctx, globalOpts)
	if err != nil {
		return err
	}

	awsCloud := cloud.New(awsCfg)
	engine := teardown.NewEngine(awsCloud, awsCloud, awsCloud)
	store := state.NewStore(state.ExpandHome(globalOpts.StateFile))
	mode := downMode(downOptions)

	selector := teardown.ModeSelector{State: store, Network: awsCloud}
	vpcIDs, err := selector.Resolve(ctx, mode)
	if err != nil {
		if errors.Is(err, state.ErrNoClusterState) || errors.Is(err, state.ErrNoVPCRecorded) {
			fmt.Println("No lab environment is currently up")
			return nil
		}
		return err
	}
	if len(vpcIDs) == 0 {
		fmt.Println("Nothing to tear down")
		return nil
	}

	if !downOptions.Force && !downOptions.DryRun {
		confirmed := false
		if err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Tear down %s?", strings.Join(vpcIDs, ", "))).
				Value(&confirmed),
		)).Run(); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted")
			return nil
		}
	}

	var result teardown.Result
	switch mode.Kind {
	case teardown.KindAllTagged:
		result = engine.TeardownAllTagged(ctx, downOptions.DryRun, downOptions.IncludePacker)
	case teardown.KindPackerOnly:
		result = engine.TeardownPackerInfrastructure(ctx, downOptions.DryRun)
	default:
		result = engine.Teardown(ctx, vpcIDs[0], downOptions.DryRun)
	}

	renderResult(result, globalOpts, downOptions.DryRun)

	if result.Success && !downOptions.DryRun && mode.Kind == teardown.KindCurrentCluster {
		if err := recordDown(ctx, awsCloud, store); err != nil {
			return err
		}
	}
	if !result.Success {
		return fmt.Errorf("teardown completed with %d error(s)", len(result.Errors))
	}
	return nil
}

// downMode translates flags into a teardown mode. Flags are checked from
// most to least specific so that combining them does the narrower thing.
func downMode(downOptions DownOptions) teardown.Mode {
	switch {
	case downOptions.PackerOnly:
		return teardown.PackerInfrastructureOnly()
	case downOptions.All:
		return teardown.AllTagged(downOptions.IncludePacker)
	case downOptions.VPC != "":
		return teardown.SpecificVPC(downOptions.VPC)
	default:
		return teardown.CurrentCluster()
	}
}

func renderResult(result teardown.Result, globalOpts GlobalOptions, dryRun bool) {
	switch globalOpts.Output {
	case OutputJSON:
		fmt.Println(pretty.EncodeJSON(result))
	case OutputYAML:
		fmt.Println(pretty.EncodeYAML(result))
	default:
		resultUI := lo.Map(result.ResourcesDeleted, func(resources teardown.DiscoveredResources, _ int) DownUI {
			return DownUI{
				VPC:       resources.VPCID,
				Name:      resources.VPCName,
				Resources: strconv.Itoa(resources.Count()),
			}
		})
		fmt.Println(pretty.Table(resultUI, globalOpts.Output == OutputTableWide))
		if dryRun {
			fmt.Println("Dry run: nothing was deleted")
		}
		for _, errMsg := range result.Errors {
			fmt.Printf("Error: %s\n", errMsg)
		}
	}
}

// recordDown removes the artifact bucket recorded for the environment and
// marks the cluster state as torn down.
func recordDown(ctx context.Context, awsCloud *cloud.AWSCloud, store state.Store) error {
	clusterState, err := store.Load()
	if err != nil {
		if errors.Is(err, state.ErrNoClusterState) {
			return nil
		}
		return err
	}
	if clusterState.Bucket != "" {
		if err := awsCloud.DeleteBucket(ctx, clusterState.Bucket); err != nil {
			return fmt.Errorf("deleting artifact bucket %s: %w", clusterState.Bucket, err)
		}
	}
	clusterState.MarkDown()
	clusterState.VPCID = ""
	clusterState.Bucket = ""
	return store.Save(clusterState)
}
