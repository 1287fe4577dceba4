package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"glucobridge/relay/pkg/credentials"
)

type hashResult struct {
	Hash   string `json:"hash"`
	Length int    `json:"length"`
}

func (r hashResult) String() string {
	return r.Hash
}

var hashCmd = &cobra.Command{
	Use:   "hash [secret]",
	Short: "Print the SHA-1 form of a secret",
	Long: `Print the lowercase hex SHA-1 digest of a secret, which is what the upstream
receives in the Authorization bearer header and the secret query parameter.

The secret is read from the first argument, or from the first line of stdin
when no argument is given.

Examples:
  glucobridge hash "my secret"
  echo "my secret" | glucobridge hash`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	var secret string
	if len(args) == 1 {
		secret = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("no secret given")
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if secret == "" {
		return fmt.Errorf("secret must not be empty")
	}

	f, err := formatter()
	if err != nil {
		return err
	}
	return f.FormatTo(cmd.OutOrStdout(), hashResult{
		Hash:   credentials.HashSecret(secret),
		Length: len(secret),
	})
}
