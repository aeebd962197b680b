package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ib-77/shardwire/pkg/shard/unit"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered units",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderUnitTable(reg.Infos()))
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderUnitTable lays the unit records out in aligned columns.
func renderUnitTable(infos []unit.Info) string {
	headers := []string{"NAME", "HASH", "INPUT", "OUTPUT", "PARAMETERS"}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		params := make([]string, len(info.Parameters))
		for i, p := range info.Parameters {
			params[i] = p.Name
		}
		rows = append(rows, []string{
			info.Name,
			fmt.Sprintf("%016x", info.Hash),
			info.InputTypes.String(),
			info.OutputTypes.String(),
			strings.Join(params, ", "),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style func(col int) lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = style(i).Width(widths[i] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	out := []string{line(headers, func(int) lipgloss.Style { return headerStyle })}
	for _, row := range rows {
		out = append(out, line(row, func(col int) lipgloss.Style {
			if col == 0 {
				return nameStyle
			}
			return dimStyle
		}))
	}
	out = append(out, dimStyle.Render(fmt.Sprintf("%d units", len(infos))))
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}
