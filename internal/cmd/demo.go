package cmd

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/host"
	"github.com/ib-77/shardwire/pkg/shard/mesh"
	"github.com/ib-77/shardwire/pkg/shard/value"
	"github.com/ib-77/shardwire/pkg/shard/wire"
	"github.com/ib-77/shardwire/pkg/shards"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run two wires on one mesh",
	Long: `Run a demonstration mesh with two wires sharing one scheduler:

- "sleeper" waits on a blocking bridge worker once per tick
- "counter" increments a variable on every tick

The counter keeps advancing while the sleeper is suspended.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

var (
	demoDuration time.Duration // How long the mesh runs
	demoPause    float64       // Seconds the sleeper blocks per tick
)

func init() {
	demoCmd.Flags().DurationVar(&demoDuration, "duration", time.Second, "how long to run the mesh")
	demoCmd.Flags().Float64Var(&demoPause, "pause", 0.2, "seconds the sleeper blocks per tick")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer logger.Close()

	rt, err := host.Load(cmd.Context(), cfg, logger, shards.RegisterAll)
	if err != nil {
		return err
	}
	defer rt.Unload()

	m, err := rt.NewMesh("demo")
	if err != nil {
		return err
	}

	sleeper, err := rt.Wire("sleeper", []host.UnitSpec{
		host.Unit("Pause", map[string]value.Var{
			"Time":     value.FloatVar(demoPause),
			"Blocking": value.BoolVar(true),
		}),
	}, wire.Looped())
	if err != nil {
		return err
	}
	counter, err := rt.Wire("counter", []host.UnitSpec{
		host.Unit("Inc", map[string]value.Var{"Name": value.Ref("count")}),
	}, wire.Looped())
	if err != nil {
		return err
	}

	var failures atomic.Int64
	observe := mesh.WithObserver(func(_ *wire.Wire, r shard.Result[value.Var]) {
		if r.IsFailure() {
			failures.Add(1)
		}
	})
	for _, w := range []*wire.Wire{sleeper, counter} {
		if err := m.Schedule(w, value.NoneVar(), observe); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), demoDuration)
	defer cancel()
	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ran %s\n", demoDuration)
	fmt.Fprintf(out, "  %-8s %d ticks\n", sleeper.Name(), sleeper.Ticks())
	fmt.Fprintf(out, "  %-8s %d ticks\n", counter.Name(), counter.Ticks())
	fmt.Fprintf(out, "  failures %d\n", failures.Load())
	return nil
}
