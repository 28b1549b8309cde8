package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drumsync/drumsync/internal/score"
)

// ValidationResult holds a beatmap validation report.
type ValidationResult struct {
	Valid  bool                    `json:"valid"`
	File   string                  `json:"file"`
	Errors []score.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <beatmap>",
		Short: "Validate a beatmap file",
		Long: `Validate a beatmap file without starting a session.

YAML beatmaps are checked against the schema and the structural
invariants; legacy .txt beatmaps are parsed and structurally checked.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	errs, err := validateBeatmap(path, formatter)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read beatmap", err)
	}

	result := ValidationResult{Valid: len(errs) == 0, File: path, Errors: errs}
	if !result.Valid {
		if opts.Format == "json" {
			_ = formatter.Success(result)
		} else {
			fmt.Fprintf(formatter.Writer, "%s: %d error(s)\n", path, len(errs))
			for _, e := range errs {
				fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: validation failed", path))
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s: OK\n", path)
	return nil
}

// validateBeatmap collects every defect in the file. Read failures are
// returned as errors; content defects come back in the slice.
func validateBeatmap(path string, formatter *OutputFormatter) ([]score.ValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if filepath.Ext(path) == ".txt" {
		formatter.VerboseLog("validating legacy beatmap %s", path)
		bm, err := score.ParseLegacy(data)
		if err != nil {
			return []score.ValidationError{{
				Field:   "document",
				Message: err.Error(),
				Code:    score.ErrSchemaViolation,
			}}, nil
		}
		return bm.Validate(), nil
	}

	formatter.VerboseLog("validating beatmap %s against schema", path)
	if errs := score.ValidateDocument(path, data); len(errs) > 0 {
		return errs, nil
	}
	bm, err := score.ParseYAML(data)
	if err != nil {
		return []score.ValidationError{{
			Field:   "document",
			Message: err.Error(),
			Code:    score.ErrSchemaViolation,
		}}, nil
	}
	return bm.Validate(), nil
}
