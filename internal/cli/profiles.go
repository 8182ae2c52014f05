package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/review"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect reviewer profiles",
	RunE:  runProfilesList,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available reviewer profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfilesList,
}

// runProfilesList prints every profile the configuration can resolve:
// builtins plus any YAML profiles in the profile directory.
func runProfilesList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	profiles, err := review.ResolveProfiles(nil, cfg.ProfileDir)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		fmt.Fprintf(os.Stdout, "%s: %s\n", p.Name, p.Role)
		if len(p.Categories) > 0 {
			fmt.Fprintf(os.Stdout, "  categories: %s\n", strings.Join(p.Categories, ", "))
		}
	}
	if len(cfg.Profiles) > 0 {
		fmt.Fprintf(os.Stdout, "\nActive: %s\n", strings.Join(cfg.Profiles, ", "))
	}
	return nil
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one reviewer profile in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		profiles, err := review.ResolveProfiles([]string{args[0]}, cfg.ProfileDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		p := profiles[0]
		fmt.Fprintf(os.Stdout, "Name: %s\n", p.Name)
		fmt.Fprintf(os.Stdout, "Role: %s\n", p.Role)
		if len(p.Categories) > 0 {
			fmt.Fprintf(os.Stdout, "Categories: %s\n", strings.Join(p.Categories, ", "))
		}
		fmt.Fprintf(os.Stdout, "\n%s\n", p.Instructions)
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
}
