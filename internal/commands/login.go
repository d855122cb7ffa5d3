package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/calder-sh/supabase-mcp/internal/config"
	"github.com/calder-sh/supabase-mcp/internal/secrets"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a personal access token in the OS keychain",
	Long: `Stores a Supabase personal access token (sbp_...) so "serve" can pick it
up without flags or environment variables. The token goes to the OS keychain
when available, otherwise to a 0600 file in the config directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := loginToken
		if token == "" {
			fmt.Fprint(os.Stderr, "Personal access token (input hidden): ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			token = strings.TrimSpace(string(raw))
		}
		if token == "" {
			return fmt.Errorf("no token provided")
		}

		store := secrets.New(config.StateDir())
		if err := store.Set(secrets.AccessTokenKey, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Access token stored.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored personal access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := secrets.New(config.StateDir())
		if err := store.Delete(secrets.AccessTokenKey); err != nil {
			return fmt.Errorf("remove token: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Access token removed.")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Token value (prompts when omitted)")
}
