// Command panelvaultctl is the operator CLI for panelvault.
//
//	# Generate an encryption key
//	panelvaultctl data-key generate > data_key
//	export PANELVAULT_ENCRYPTION_KEY=$(cat data_key)
//
//	# Apply schema migrations
//	panelvaultctl db migrate
//
//	# Manage server aliases
//	panelvaultctl alias set survival 0f3c9a1e-8d42-4b6f-9c11-2a7e5d4b3c21 --panel https://panel.example.com
//	panelvaultctl alias list
//
//	# Remove revoked and inactive credentials
//	panelvaultctl purge --days 7
//
// Configuration is read from the same PANELVAULT_* environment variables
// (and optional .env file) as the server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "panelvaultctl",
	Short: "Operate a panelvault credential store",
	Long: `panelvaultctl manages the panelvault database outside the HTTP API:
key generation, migrations, server aliases and credential purges.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
