// Package cli holds the agentauth commands: the server and a few offline
// helpers for minting and inspecting tokens.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aussiebroadwan/agentauth/internal/auth/app"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentauth",
		Short: "Authentication for people and the agents acting on their behalf",
		Long: `agentauth signs people in (OAuth2 with PKCE, magic links, email codes) and
issues short-lived delegated tokens that let agents act as a user within a
set of scopes.

Session and agent tokens are HS256 JWTs signed with keys derived from
AGENTAUTH_SECRET.`,
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newTokenCmd(), newPKCECmd())
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
