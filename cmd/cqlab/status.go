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
	"time"

	"github.com/cqlab/cqlab/pkg/cloud"
	"github.com/cqlab/cqlab/pkg/pretty"
	"github.com/cqlab/cqlab/pkg/providers/instances"
	"github.com/cqlab/cqlab/pkg/state"
	"github.com/cqlab/cqlab/pkg/utils/tagutils"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type StatusUI struct {
	Name         string `table:"Name"`
	Status       string `table:"Status"`
	Age          string `table:"Age"`
	InstanceType string `table:"Instance-Type"`
	Zone         string `table:"Zone"`
	PrivateIP    string `table:"Private-IP"`
	InstanceID   string `table:"ID"`
}

var (
	cmdStatus = &cobra.Command{
		Use:   "status",
		Short: "show the current lab environment",
		Long:  `Show the recorded cluster state and the live instances in its VPC.`,
		Args:  cobra.MinimumNArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return status(cmd.Context(), globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdStatus)
}

func status(ctx context.Context, globalOpts GlobalOptions) error {
	store := state.NewStore(state.ExpandHome(globalOpts.StateFile))
	clusterState, err := store.Load()
	if err != nil {
		if errors.Is(err, state.ErrNoClusterState) {
			fmt.Println("No lab environment is currently up")
			return nil
		}
		return err
	}

	fmt.Printf("Cluster %s (%s), infrastructure %s\n", clusterState.Name, clusterState.Region, clusterState.Infrastructure)
	if clusterState.VPCID == "" {
		return nil
	}

	awsCfg, err := AWSConfig(ctx, globalOpts)
	if err != nil {
		return err
	}
	instanceList, err := cloud.New(awsCfg).LiveInstances(ctx, clusterState.VPCID)
	if err != nil {
		return err
	}

	instancesUI := lo.Map(instanceList, func(instance instances.Instance, _ int) StatusUI {
		return instanceToStatusUI(instance)
	})

	switch globalOpts.Output {
	case OutputJSON:
		fmt.Println(pretty.EncodeJSON(instancesUI))
	case OutputYAML:
		fmt.Println(pretty.EncodeYAML(instancesUI))
	case OutputTableShort:
		fmt.Println(pretty.Table(instancesUI, false))
	case OutputTableWide:
		fmt.Println(pretty.Table(instancesUI, true))
	}
	return nil
}

func instanceToStatusUI(instance instances.Instance) StatusUI {
	return StatusUI{
		Name:         tagutils.EC2TagsToMap(instance.Tags)[tagutils.NameTagKey],
		Status:       string(instance.State.Name),
		Age:          time.Since(lo.FromPtr(instance.LaunchTime)).Round(time.Second).String(),
		InstanceType: string(instance.InstanceType),
		Zone:         lo.FromPtr(instance.Placement.AvailabilityZone),
		PrivateIP:    lo.FromPtr(instance.PrivateIpAddress),
		InstanceID:   lo.FromPtr(instance.InstanceId),
	}
}
