// Shadowsync keeps a device and its cloud-side device shadow in
// agreement.
//
// It runs one reconciliation session per invocation: it clears the
// shadow, announces the desired power state, applies the delta the
// shadow service answers with, and reports the resulting state back.
//
// Usage:
//
//	shadowsync [command] [flags]
//
// Running without arguments executes a reconciliation session using
// the configured broker. See 'shadowsync --help' for available
// commands. Set SHADOWSYNC_LOG_LEVEL=debug for protocol-level logs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/shadowsync/internal/logging"
	"github.com/muurk/shadowsync/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shadowsync",
	Short: "Device shadow reconciliation client",
	Long: `A device-side client for the AWS IoT Device Shadow service.

Connects to an MQTT broker, clears the device shadow, publishes the
desired power state, applies the resulting delta, and reports the new
state back to the cloud.

If no command is specified, a reconciliation session runs immediately.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shadowsync %s\n", version.Full())
	},
}
