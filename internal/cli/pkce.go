package cli

import (
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/spf13/cobra"
)

type pkceOutput struct {
	Verifier  string `json:"code_verifier"`
	Challenge string `json:"code_challenge"`
	Method    string `json:"code_challenge_method"`
}

func newPKCECmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "pkce",
		Short: "Generate a PKCE verifier and challenge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pkce, err := cryptox.NewPKCEChallenge(method)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pkceOutput{
				Verifier:  pkce.Verifier,
				Challenge: pkce.Challenge,
				Method:    pkce.Method,
			})
		},
	}

	cmd.Flags().StringVar(&method, "method", cryptox.PKCEMethodS256, "challenge method: S256 or plain")
	return cmd
}
