package main

import (
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/shadowsync/internal/config"
	"github.com/muurk/shadowsync/internal/discovery"
	"github.com/muurk/shadowsync/internal/identity"
	"github.com/muurk/shadowsync/internal/logging"
	"github.com/muurk/shadowsync/internal/mqtt"
	"github.com/muurk/shadowsync/internal/session"
	"github.com/muurk/shadowsync/internal/shadow"
	"github.com/muurk/shadowsync/internal/ui"
)

// Command flags
var (
	configPath  string
	thingName   string
	retries     int
	scanTimeout int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&thingName, "thing", "", "Thing name (overrides environment and config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(initCmd)
}

// runCmd executes one (or more, with --retry) reconciliation sessions
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a shadow reconciliation session",
	Long: `Run one complete shadow reconciliation session.

The session deletes the device shadow, publishes the configured
desired power state, waits for the delta the shadow service answers
with, and reports the resulting state back. Failed sessions can be
retried with --retry; each attempt is a fresh session with its own
connection.`,
	Example: `  # Run with the default config
  shadowsync run

  # Run against an explicit config and thing
  shadowsync run --config ./shadowsync.yaml --thing my-device

  # Retry up to 3 times on transient failures
  shadowsync run --retry 3`,
	RunE: runSession,
}

func init() {
	runCmd.Flags().IntVar(&retries, "retry", 0, "Number of times to retry a failed session")
}

// identityProvider resolves the thing name: flag, then environment,
// then config.
func identityProvider(cfg *config.Config) identity.Provider {
	if thingName != "" {
		return identity.Static(thingName)
	}
	return identity.Default(cfg.ThingName)
}

// brokerTransport adapts the MQTT client to the session's transport
// interface.
func brokerTransport(cfg *config.Config, log *zap.Logger) session.Transport {
	return session.TransportFunc(func(clientID string, handler session.Handler) (session.Conn, error) {
		mc := mqtt.Config{
			BrokerURL:      cfg.Broker.URL(),
			ClientID:       clientID,
			ConnectTimeout: cfg.Timeouts.ConnectTimeout(),
			SendTimeout:    cfg.Timeouts.SendTimeout(),
		}
		if cfg.TLS != nil {
			mc.Credentials = &mqtt.Credentials{
				RootCAPath:    cfg.TLS.RootCA,
				CertPath:      cfg.TLS.Cert,
				KeyPath:       cfg.TLS.Key,
				ALPNProtocols: cfg.TLS.ALPN,
				ServerName:    cfg.TLS.ServerName,
			}
		}
		client, err := mqtt.Connect(mc, mqtt.Handler(handler), log.Named("mqtt"))
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.GetLogger()

	drainWindow := cfg.Session.DrainWindow()
	if drainWindow <= 0 {
		drainWindow = cfg.Timeouts.ReceiveTimeout()
	}

	var result *session.Result
	err = retry.Do(
		func() error {
			// Each attempt gets a fresh session: new reconciler, new
			// token epoch, new connection.
			s, err := session.New(session.Options{
				Identity:     identityProvider(cfg),
				Transport:    brokerTransport(cfg, log),
				Log:          log.Named("session"),
				InitialPower: cfg.Session.InitialPower(),
				DrainWindow:  drainWindow,
			})
			if err != nil {
				return retry.Unrecoverable(err)
			}

			result = s.Run(cmd.Context())

			if err := result.Err(); err != nil {
				if mqtt.IsCredentialError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			return nil
		},
		retry.Attempts(uint(retries)+1),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.Context(cmd.Context()),
	)

	if result != nil {
		printSummary(result)
	}
	if err != nil {
		return fmt.Errorf("session failed: %w", err)
	}
	return nil
}

// printSummary renders the session outcome, styled when stdout is a
// terminal.
func printSummary(result *session.Result) {
	title := "Shadow reconciled"
	if !result.Ok() {
		title = "Shadow reconciliation failed"
	}

	summary := ui.NewSummary(result.Ok(), title)
	for _, step := range result.Steps {
		status := ui.StepOk
		note := ""
		if step.Err != nil {
			status = ui.StepFailed
			note = step.Err.Error()
		}
		summary.AddStep(step.Name, status, note)
	}
	for _, t := range result.Teardown {
		if t.Err != nil {
			summary.AddStep(t.Name, ui.StepFailed, t.Err.Error())
		}
	}

	if result.ThingName != "" {
		summary.AddDetail("Thing", result.ThingName)
	}
	summary.AddDetail("Power", result.FinalPower.String())
	summary.AddDetail("Shadow version", fmt.Sprintf("%d", result.FinalVersion))
	if result.HandlerFailure {
		summary.AddDetail("Handler failure", "malformed shadow message received")
	}

	if ui.IsInteractive() {
		fmt.Println(summary.Render())
	} else {
		fmt.Print(summary.RenderPlain())
	}
}

// topicsCmd prints the topics derived from the thing name
var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Print the shadow topics for the configured thing",
	Long: `Derive and print the five shadow topics for the thing name.

Useful for setting up broker ACLs or debugging with an external MQTT
client.`,
	Example: `  shadowsync topics --thing my-device`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		thing, err := identityProvider(cfg).DeviceID()
		if err != nil {
			return fmt.Errorf("no thing name: set --thing, %s, or thing_name in the config: %w",
				identity.EnvVar, err)
		}

		topics, err := shadow.NewTopicSet(thing)
		if err != nil {
			return err
		}

		fmt.Printf("Shadow topics for %q:\n\n", thing)
		fmt.Printf("  delete:           %s\n", topics.Delete)
		fmt.Printf("  update:           %s\n", topics.Update)
		fmt.Printf("  update/delta:     %s\n", topics.UpdateDelta)
		fmt.Printf("  update/accepted:  %s\n", topics.UpdateAccepted)
		fmt.Printf("  update/rejected:  %s\n", topics.UpdateRejected)
		return nil
	},
}

// discoverCmd scans the local network for MQTT brokers
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover MQTT brokers on the local network",
	Long: `Scan for MQTT brokers using mDNS/DNS-SD discovery.

Brokers advertising "_secure-mqtt._tcp" are listed as TLS endpoints,
"_mqtt._tcp" as plaintext.`,
	Example: `  # Scan for 10 seconds (default)
  shadowsync discover

  # Quick 3-second scan
  shadowsync discover --timeout 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Scanning for MQTT brokers (timeout: %ds)...\n\n", scanTimeout)

		scanner := discovery.NewScanner()
		scanner.Timeout = time.Duration(scanTimeout) * time.Second

		brokers, err := scanner.ScanForBrokersWithContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if len(brokers) == 0 {
			fmt.Println("No brokers found.")
			fmt.Println("\nTroubleshooting:")
			fmt.Println("  - Ensure the broker advertises itself via mDNS")
			fmt.Println("  - Try increasing --timeout for slower networks")
			fmt.Println("  - Set broker.host in the config to connect directly")
			return nil
		}

		fmt.Printf("Found %d broker(s):\n\n", len(brokers))
		for i, b := range brokers {
			fmt.Printf("%d. %s\n", i+1, b)
			fmt.Printf("   URL: %s\n", b.URL())
			if len(b.Metadata) > 0 {
				fmt.Printf("   Metadata: %v\n", b.Metadata)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

// initCmd writes a starter configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a commented starter configuration to the default location
(or --config). Existing files are not overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			defaultPath, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = defaultPath
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s", path)
		}

		cfg := config.Default()
		if thingName != "" {
			cfg.ThingName = thingName
		}
		if err := cfg.Save(path); err != nil {
			return err
		}

		fmt.Printf("Wrote %s\n", path)
		fmt.Println("Edit broker and tls settings before running a session.")
		return nil
	},
}
