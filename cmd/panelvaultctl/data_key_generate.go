package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/panelvault/internal/config"
)

var dataKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new encryption key",
	Long: `Generates a random 256-bit key and prints it base64 encoded.

Store the output in PANELVAULT_ENCRYPTION_KEY. Tokens encrypted under one key
cannot be read with another.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateDataKey(rand.Reader, cmd.OutOrStdout())
	},
}

func init() {
	dataKeyCmd.AddCommand(dataKeyGenerateCmd)
}

func generateDataKey(random io.Reader, out io.Writer) error {
	key := make([]byte, config.EncryptionKeySize)
	if _, err := io.ReadFull(random, key); err != nil {
		return fmt.Errorf("read random bytes: %w", err)
	}
	_, err := fmt.Fprintln(out, base64.StdEncoding.Strict().EncodeToString(key))
	return err
}
