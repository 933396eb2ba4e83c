package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazytable/internal/credentials"
)

func newDSNCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dsn",
		Short: "Manage connection strings kept in the OS keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name> [dsn]",
		Short: "Save a connection string, read from stdin when not given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dsn string
			if len(args) == 2 {
				dsn = args[1]
			} else {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				dsn = line
			}
			if dsn == "" {
				return fmt.Errorf("connection string is empty")
			}
			if err := credentials.NewStore().SaveDSN(args[0], dsn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s; set source.keyring: %s to use it\n", args[0], args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a saved connection string",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return credentials.NewStore().Delete(args[0])
		},
	})
	return cmd
}

// readLine returns the first line of r without surrounding space
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read connection string: %w", err)
	}
	return strings.TrimSpace(line), nil
}
