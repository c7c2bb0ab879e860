package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/tools"
)

var calcFormat string

var calcCmd = &cobra.Command{
	Use:   "calc [id] [field=value...]",
	Short: "Run a calculator",
	Long: `Run one of the built-in calculators. Without arguments the calculators
and their fields are listed.

Examples:
  toolshed calc
  toolshed calc bmi weight_kg=70 height_cm=175
  toolshed calc loan principal=200000 annual_rate=4.5 years=25 -f json`,
	RunE: runCalc,
}

func init() {
	rootCmd.AddCommand(calcCmd)
	addFormatFlag(calcCmd, &calcFormat)
}

func runCalc(cmd *cobra.Command, args []string) error {
	registry := calc.NewRegistry()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		list := registry.List()
		var lines []string
		for _, c := range list {
			fields := make([]string, len(c.Fields))
			for i, f := range c.Fields {
				fields[i] = f.Name
				if f.Optional {
					fields[i] += "?"
				}
			}
			lines = append(lines, fmt.Sprintf("%-20s %s (%s)", c.ID, c.Description, strings.Join(fields, ", ")))
		}
		return writeOutput(out, calcFormat, list, lines)
	}

	inputs, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}
	result, err := tools.NewService(nil, registry).Calculate(args[0], inputs)
	if err != nil {
		return err
	}
	return writeOutput(out, calcFormat, result, tools.ResultLines(result))
}

// parseAssignments reads name=value pairs into calculator inputs.
func parseAssignments(args []string) (map[string]float64, error) {
	inputs := make(map[string]float64, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Invalid("expected field=value, got %q", arg)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, errors.Invalid("%s must be a number, got %q", name, raw)
		}
		inputs[name] = v
	}
	return inputs, nil
}
