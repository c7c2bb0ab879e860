package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/toolshed/internal/generator"
	"github.com/conneroisu/toolshed/internal/tools"
)

var generateFormat string

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen", "g"},
	Short:   "Generate random test data",
	Long: `Generate random test data: Luhn-valid card numbers, dates, lorem ipsum,
number plates and random numbers.

Pass --seed to make the output repeatable.

Examples:
  toolshed generate card --brand amex -n 3
  toolshed generate dates --from 1990-01-01 --to 1999-12-31 -n 5 --layout long
  toolshed generate lorem --unit sentences -n 2 --lorem
  toolshed generate plate --region us
  toolshed generate numbers --min 1 --max 49 -n 6 --unique --sorted -f json`,
}

var (
	cardFlags    tools.LuhnRequest
	datesFlags   tools.DatesRequest
	loremFlags   tools.LoremRequest
	plateFlags   tools.PlatesRequest
	numbersFlags tools.NumbersRequest
)

var generateCardCmd = &cobra.Command{
	Use:   "card",
	Short: "Luhn-valid test card numbers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := generateService().Luhn(cardFlags)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), generateFormat, res, res.Lines())
	},
}

var generateDatesCmd = &cobra.Command{
	Use:   "dates",
	Short: "Random dates in a range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := generateService().Dates(datesFlags)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), generateFormat, res, res.Lines())
	},
}

var generateLoremCmd = &cobra.Command{
	Use:   "lorem",
	Short: "Lorem ipsum placeholder text",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := generateService().Lorem(loremFlags)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), generateFormat, res, []string{res.Text})
	},
}

var generatePlateCmd = &cobra.Command{
	Use:     "plate",
	Aliases: []string{"plates"},
	Short:   "Random number plates",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := generateService().Plates(plateFlags)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), generateFormat, res, res.Lines())
	},
}

var generateNumbersCmd = &cobra.Command{
	Use:   "numbers",
	Short: "Random integers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := generateService().Numbers(numbersFlags)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), generateFormat, res, res.Lines())
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.AddCommand(generateCardCmd, generateDatesCmd, generateLoremCmd, generatePlateCmd, generateNumbersCmd)

	pf := generateCmd.PersistentFlags()
	pf.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	pf.StringVarP(&generateFormat, "format", "f", "text", "Output format (text|json|yaml)")
	_ = viper.BindPFlag("generator.seed", pf.Lookup("seed"))

	generateCardCmd.Flags().StringVar(&cardFlags.Brand, "brand", "visa", "Card brand (visa, mastercard, amex, discover)")
	generateCardCmd.Flags().IntVarP(&cardFlags.Count, "count", "n", 1, "How many numbers")

	generateDatesCmd.Flags().StringVar(&datesFlags.From, "from", "", "Start date, YYYY-MM-DD (default 2000-01-01)")
	generateDatesCmd.Flags().StringVar(&datesFlags.To, "to", "", "End date, YYYY-MM-DD (default today)")
	generateDatesCmd.Flags().IntVarP(&datesFlags.Count, "count", "n", 1, "How many dates")
	generateDatesCmd.Flags().StringVar(&datesFlags.Format, "layout", "iso", "iso, us, eu, long, rfc or a Go time layout")
	generateDatesCmd.Flags().BoolVar(&datesFlags.Sorted, "sorted", false, "Sort ascending")

	generateLoremCmd.Flags().StringVar(&loremFlags.Unit, "unit", "paragraphs", "words, sentences or paragraphs")
	generateLoremCmd.Flags().IntVarP(&loremFlags.Count, "count", "n", 1, "How many units")
	generateLoremCmd.Flags().BoolVar(&loremFlags.StartWithLorem, "lorem", false, `Start with "Lorem ipsum dolor sit amet"`)

	generatePlateCmd.Flags().StringVar(&plateFlags.Region, "region", "uk", "uk, us or eu")
	generatePlateCmd.Flags().IntVarP(&plateFlags.Count, "count", "n", 1, "How many plates")

	generateNumbersCmd.Flags().Int64Var(&numbersFlags.Min, "min", 1, "Smallest value")
	generateNumbersCmd.Flags().Int64Var(&numbersFlags.Max, "max", 100, "Largest value")
	generateNumbersCmd.Flags().IntVarP(&numbersFlags.Count, "count", "n", 1, "How many numbers")
	generateNumbersCmd.Flags().BoolVar(&numbersFlags.Unique, "unique", false, "No repeated values")
	generateNumbersCmd.Flags().BoolVar(&numbersFlags.Sorted, "sorted", false, "Sort ascending")

	AddFlagValidation(generateCmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, outputFormats)
	})
}

func generateService() *tools.Service {
	return tools.NewService(generator.New(viper.GetInt64("generator.seed")), nil)
}
