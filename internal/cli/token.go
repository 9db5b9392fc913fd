package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/agentauth/internal/auth/app"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
)

var errUndecodable = errors.New("token is not a decodable JWT")

type secretEnv struct {
	Secret string `env:"AGENTAUTH_SECRET,required"`
}

func loadKeys() (*app.Keys, error) {
	var env secretEnv
	if err := envdecode.Decode(&env); err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	return app.DeriveKeys(env.Secret)
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign, verify and decode tokens offline",
	}
	cmd.AddCommand(newTokenSignCmd(), newTokenVerifyCmd(), newTokenDecodeCmd())
	return cmd
}

func newTokenSignCmd() *cobra.Command {
	var (
		userID  string
		agentID string
		email   string
		name    string
		scopes  []string
		ttl     string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a session token, or an agent token when --agent is set",
		Example: `  agentauth token sign --user 01J0000000000000000000000 --email a@example.com
  agentauth token sign --user 01J0000000000000000000000 --agent ci-bot --scopes read,deploy --ttl 15m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(userID) == "" {
				return errors.New("--user is required")
			}
			keys, err := loadKeys()
			if err != nil {
				return err
			}

			claims := jwtx.NewStandardClaims(userID, email, name)
			codec := keys.Session
			if agentID != "" {
				claims = jwtx.NewAgentClaims(userID, agentID, scopes)
				claims.Email = email
				codec = keys.Agent
			}
			if ttl == "" {
				ttl = jwtx.DefaultSessionTTL
				if agentID != "" {
					ttl = jwtx.DefaultAgentTTL
				}
			}

			token, err := codec.Sign(claims, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (subject)")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id; signs an agent token")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "name claim (session tokens)")
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "granted scopes (agent tokens)")
	cmd.Flags().StringVar(&ttl, "ttl", "", "lifetime such as 15m, 12h or 7d")
	return cmd
}

func newTokenVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token's signature and expiry and print its claims",
		Long: `Verify checks the signature with the key for the token's kind and fails for
forged, malformed or expired tokens. It cannot see revocations, which live in
the running server's token store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := loadKeys()
			if err != nil {
				return err
			}

			unverified := jwtx.Decode(args[0])
			if unverified == nil {
				return errUndecodable
			}
			codec, err := keys.CodecFor(unverified.Kind)
			if err != nil {
				return err
			}
			claims, err := codec.Verify(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), claims)
		},
	}
}

func newTokenDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Print a token's claims without verifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims := jwtx.Decode(args[0])
			if claims == nil {
				return errUndecodable
			}
			return printJSON(cmd.OutOrStdout(), claims)
		},
	}
}
