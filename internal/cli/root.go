package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/quorumhq/quorum/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.2.0"

// Exit codes: success, findings at or above the publish threshold, usage
// error, authentication failure, runtime failure.
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Multi-reviewer AI code review CLI",
	Long:  "Quorum reviews code changes with a panel of specialized AI reviewers running concurrently, merges their findings, and emits reports with deterministic exit codes.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: quorum.yaml in . or the user config dir)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("quorum")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if dir, err := config.Dir(); err == nil {
			viper.AddConfigPath(dir)
		}
	}

	viper.SetEnvPrefix("QUORUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()

	config.SetDefaults()
	configureLogging()
}

// configureLogging points diagnostics at stderr so reports on stdout stay
// machine-readable.
func configureLogging() {
	level, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = log.WarnLevel
	}
	log.SetLevel(level)
	if viper.GetString("log.format") == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	log.SetOutput(os.Stderr)
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(prCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print quorum version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "quorum version %s\n", version)
	},
}
