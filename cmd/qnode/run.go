package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/theapemachine/qnode"
	"gopkg.in/yaml.v3"
)

type runOptions struct {
	output  string
	metrics bool
}

func newRunCmd() *cobra.Command {
	v := viper.New()
	var bindErr error

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build a cluster and simulate its activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bindErr != nil {
				return bindErr
			}

			configPath, _ := cmd.Flags().GetString("config")
			output, _ := cmd.Flags().GetString("output")
			withMetrics, _ := cmd.Flags().GetBool("metrics")

			config, err := qnode.LoadConfig(v, configPath)
			if err != nil {
				return err
			}

			return simulate(config, runOptions{output: output, metrics: withMetrics}, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "Path to a config file (default ./qnode.yaml if present)")
	flags.String("output", "text", "Output format for the inspected node: text or yaml")
	flags.Bool("metrics", false, "Dump the metrics registry in Prometheus text format")
	flags.Int("size", 12, "Number of nodes in the ring")
	flags.Float64("radius", 5.0, "Radius of the circle the nodes sit on")
	flags.Int("steps", 5, "Number of time steps to simulate")
	flags.Float64("time-step", 1.0, "Clock increment per step")
	flags.Float64("probability", qnode.DefaultChangeProbability, "Chance per step that a node changes state")
	flags.Uint64("seed", 0, "Seed for reproducible runs (0 picks a random seed)")
	flags.String("inspect", "QN-1", "Id of the node to report on")

	bindErr = bindFlags(v, flags, map[string]string{
		"cluster_size":       "size",
		"radius":             "radius",
		"steps":              "steps",
		"time_step":          "time-step",
		"change_probability": "probability",
		"seed":               "seed",
		"inspect":            "inspect",
	})

	return cmd
}

// bindFlags maps config keys onto flags so set flags override file and env.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("binding %s: unknown flag --%s", key, name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

func simulate(config *qnode.Config, opts runOptions, out io.Writer) error {
	if opts.output != "text" && opts.output != "yaml" {
		return fmt.Errorf("unknown output format: %s", opts.output)
	}

	metrics := qnode.NewMetrics()

	fmt.Fprintf(out, "Creating the cluster (%d nodes)...\n", config.ClusterSize)

	cluster, err := qnode.BuildCluster(
		config.ClusterSize,
		config.Radius,
		qnode.WithClusterRand(config.RandomSource()),
		qnode.WithClusterChangeProbability(config.ChangeProbability),
		qnode.WithClusterObserver(metrics.Observe),
	)
	if err != nil {
		return err
	}
	metrics.Track(cluster)

	fmt.Fprintln(out, "\nEstablishing connections...")
	for _, node := range cluster.Nodes() {
		neighbors, err := cluster.Neighbors(node.ID)
		if err != nil {
			return err
		}
		for _, peer := range neighbors {
			fmt.Fprintf(out, "%s -> %s\n", node.ID, peer.ID)
		}
	}

	fmt.Fprintln(out, "\nSimulating activity...")

	driver := qnode.NewDriver(
		cluster,
		config.TimeStep,
		qnode.WithMetrics(metrics),
		qnode.WithStepHook(func(step int, timestamp float64) {
			fmt.Fprintf(out, "\n--- Time Step %.1f ---\n", timestamp)
		}),
	)

	if err := driver.Run(config.Steps); err != nil {
		return err
	}

	node, ok := cluster.Get(config.Inspect)
	if !ok {
		return fmt.Errorf("%w: %s", qnode.ErrUnknownNode, config.Inspect)
	}

	fmt.Fprintf(out, "\nGetting info for node %s:\n", node.ID)

	switch opts.output {
	case "yaml":
		enc := yaml.NewEncoder(out)
		if err := enc.Encode(node.Info()); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		info := node.Info()
		fmt.Fprintf(out, "id: %s\nstate: %s\nposition: %v\nconnections: %v\nhistory_length: %d\n",
			info.ID, info.State, info.Position, info.Connections, info.HistoryLength,
		)
	}

	fmt.Fprintln(out, "\nRepositioning nodes...")
	if err := cluster.Reposition(config.Radius); err != nil {
		return err
	}

	summary, err := metrics.ExportMetrics()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(out, "\nSummary:")
	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %v\n", k, summary[k])
	}

	if opts.metrics {
		fmt.Fprintln(out, "\nMetrics:")
		if err := metrics.WriteText(out); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "\nCluster initialized.")
	return nil
}
