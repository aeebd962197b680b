package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ib-77/shardwire/pkg/shard/unit"
)

var infoCmd = &cobra.Command{
	Use:   "info <unit>",
	Short: "Describe a unit as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// unitView is the printable form of unit.Info.
type unitView struct {
	Name         string      `yaml:"name"`
	Hash         string      `yaml:"hash"`
	Help         string      `yaml:"help,omitempty"`
	Input        string      `yaml:"input"`
	Output       string      `yaml:"output"`
	Parameters   []paramView `yaml:"parameters,omitempty"`
	Requirements []string    `yaml:"requirements,omitempty"`
}

type paramView struct {
	Name  string `yaml:"name"`
	Help  string `yaml:"help,omitempty"`
	Types string `yaml:"types"`
}

func newUnitView(info unit.Info) unitView {
	v := unitView{
		Name:   info.Name,
		Hash:   fmt.Sprintf("%016x", info.Hash),
		Help:   info.Help,
		Input:  info.InputTypes.String(),
		Output: info.OutputTypes.String(),
	}
	for _, p := range info.Parameters {
		v.Parameters = append(v.Parameters, paramView{Name: p.Name, Help: p.Help, Types: p.Types.String()})
	}
	for _, r := range info.Requirements {
		v.Requirements = append(v.Requirements, r.Name)
	}
	return v
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	info, ok := reg.Info(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", unit.ErrUnknownUnit, args[0])
	}

	out, err := yaml.Marshal(newUnitView(info))
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", info.Name, err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
