package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"
)

const validateArgCount = 1

// NewValidateCommand creates the validate subcommand.
func NewValidateCommand(env *Env) *cobra.Command {
	var colorize, nocolor bool

	cmd := &cobra.Command{
		Use:   "validate <items.yaml|items.json|->",
		Short: "Validate an item file against the item schema",
		Long: `Validate an item file against the masonry item schema.

Examples:
  masonry validate items.yaml
  masonry validate - < items.json`,
		Args: cobra.ExactArgs(validateArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nocolor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			} else if colorize {
				color.NoColor = false //nolint:reassign // intentional override of library global
			}

			return runValidate(cmd.OutOrStdout(), cmd.InOrStdin(), args[0], env.Quiet)
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(w io.Writer, stdin io.Reader, path string, quiet bool) error {
	doc, err := readDocument(path, stdin)
	if err != nil {
		return err
	}

	result, err := doc.validate()
	if err != nil {
		return err
	}

	if result.Valid() {
		if !quiet {
			color.New(color.FgGreen).Fprintf(w, "item file is valid (%s)\n", doc.label)
		}

		return nil
	}

	color.New(color.FgRed).Fprintf(w, "item file is invalid (%s)\n", doc.label)
	printSchemaErrors(w, result.Errors())

	return fmt.Errorf("%w %s: %d schema errors", ErrInvalidItems, doc.label, len(result.Errors()))
}

func printSchemaErrors(w io.Writer, errs []gojsonschema.ResultError) {
	fmt.Fprintf(w, "\nErrors:\n")

	for _, verr := range errs {
		if verr.Value() != nil {
			color.New(color.FgRed).Fprintf(w, "  - %s: %s (got %v)\n", verr.Field(), verr.Description(), verr.Value())
		} else {
			color.New(color.FgRed).Fprintf(w, "  - %s: %s\n", verr.Field(), verr.Description())
		}
	}
}
