package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chriszhao1988/iroha/internal/script"
)

// ValidationIssue is one problem found in a script.
type ValidationIssue struct {
	Code    string `json:"code"`           // SYNTAX, SCHEMA or CONVERT
	Path    string `json:"path,omitempty"` // dot-separated, from the document root
	Message string `json:"message"`
}

// FileValidation holds the validation result of one script.
type FileValidation struct {
	File   string            `json:"file"`
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script>...",
		Short: "Validate ledger scripts without applying them",
		Long: `Check ledger scripts against the script schema and convert every
block and query to ledger values, without applying anything.

Every schema violation is reported, not only the first.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return reportError(formatter, NewExitError(ExitCommandError, fmt.Sprintf("script not found: %s", path)).WithReason(ErrCodeNotFound))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return reportError(formatter, WrapExitError(ExitCommandError, "failed to read script", err))
		}

		formatter.VerboseLog("Validating %s", path)
		fv := FileValidation{File: path, Errors: validateScript(data)}
		fv.Valid = len(fv.Errors) == 0
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		return outputValidateJSON(formatter, result)
	}
	return outputValidateText(cmd.OutOrStdout(), result)
}

// validateScript runs the schema check, then the conversion to ledger
// values. Conversion only runs on schema-valid documents.
func validateScript(data []byte) []ValidationIssue {
	if errs := script.Validate(data); len(errs) > 0 {
		issues := make([]ValidationIssue, 0, len(errs))
		for _, err := range errs {
			issues = append(issues, toIssue(err))
		}
		return issues
	}

	sc, err := script.Parse(data)
	if err != nil {
		return []ValidationIssue{toIssue(err)}
	}

	var issues []ValidationIssue
	if _, _, err := sc.Genesis(); err != nil {
		issues = append(issues, toIssue(err))
	}
	if _, err := sc.ToBlocks(); err != nil {
		issues = append(issues, toIssue(err))
	}
	if _, err := sc.ToQueries(); err != nil {
		issues = append(issues, toIssue(err))
	}
	return issues
}

func toIssue(err error) ValidationIssue {
	var se *script.Error
	if errors.As(err, &se) {
		if err == error(se) {
			return ValidationIssue{Code: se.Code, Path: se.Path, Message: se.Message}
		}
		// Wrapped with a path prefix by the converter.
		return ValidationIssue{Code: se.Code, Message: err.Error()}
	}
	return ValidationIssue{Code: script.ErrCodeConvert, Message: err.Error()}
}

// outputValidateJSON outputs the validation result as JSON.
func outputValidateJSON(f *OutputFormatter, result ValidationResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.Valid {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeSchema,
			Message: "validation failed",
		}
	}
	if err := f.JSON(response); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed").WithReason(ErrCodeSchema).markPrinted()
	}
	return nil
}

// outputValidateText outputs the validation result as text.
func outputValidateText(w io.Writer, result ValidationResult) error {
	invalid := 0
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s\n", fv.File)
			continue
		}
		invalid++
		fmt.Fprintf(w, "✗ %s\n", fv.File)
		for _, issue := range fv.Errors {
			if issue.Path != "" {
				fmt.Fprintf(w, "  [%s] %s: %s\n", issue.Code, issue.Path, issue.Message)
			} else {
				fmt.Fprintf(w, "  [%s] %s\n", issue.Code, issue.Message)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d script(s) invalid", invalid, len(result.Files))).WithReason(ErrCodeSchema).markPrinted()
	}
	fmt.Fprintln(w, "✓ All scripts valid")
	return nil
}
