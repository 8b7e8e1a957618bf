package subcommands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/skills"
)

// ValidateCmd validates a configuration file.
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: "Validate the configuration file.\n\n" +
		"Loads the configuration file, applies defaults and environment overrides and " +
		"reports every invalid setting at once. Exits non-zero when the file is " +
		"missing or invalid.",
	Example: `  # Validate the default configuration
  skillsd config validate

  # Validate a specific file
  skillsd --config ./skills.json config validate`,
	Annotations: map[string]string{cmdutil.SkipConfigAnnotation: "true"},
	PreRunE:     validateValidate,
	RunE:        runValidate,
}

func validateValidate(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	explicit := ""
	if f := cmd.Flag("config"); f != nil {
		explicit = f.Value.String()
	}
	path := config.ResolvePath(explicit)
	out := cmd.OutOrStdout()

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return err
		}

		fmt.Fprintf(out, "Configuration validation failed: %s\n", path)
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			for _, verr := range verrs {
				fmt.Fprintf(out, "  - %s\n", verr.Error())
			}
		} else {
			fmt.Fprintf(out, "  %v\n", err)
		}
		return fmt.Errorf("configuration is invalid")
	}

	matcher, err := skills.NewMatcher(cfg.Skills)
	if err != nil {
		fmt.Fprintf(out, "Configuration validation failed: %s\n  %v\n", path, err)
		return fmt.Errorf("configuration is invalid")
	}

	fmt.Fprintf(out, "Configuration is valid: %s\n", path)
	fmt.Fprintf(out, "  watch folder: %s\n", cfg.WatchFolder)
	fmt.Fprintf(out, "  skills: %d\n", len(cfg.Skills))
	for _, o := range matcher.Overlaps() {
		fmt.Fprintf(out, "  warning: skills %s and %s can match the same file; %s wins\n", o.First, o.Second, o.First)
	}
	return nil
}
