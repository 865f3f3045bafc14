package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/artifactcache/auth"
	"github.com/meigma/artifactcache/config"
)

func tokenCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:       "token {readonly|readwrite}",
		Short:     "Mint a signed cache token",
		Long:      "Mint a signed cache token using AUTH_SECRET_KEY from the environment.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{auth.PermissionReadOnly, auth.PermissionReadWrite},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			verifier := auth.NewVerifier(cfg.SecretKey, cfg.ReadOnlyToken, cfg.ReadWriteToken)
			token, err := verifier.Generate(args[0], userID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed in the token")
	return cmd
}
