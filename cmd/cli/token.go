package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imagehub/internal/auth"
)

func newTokenCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage admin tokens",
	}

	var (
		subject string
		save    bool
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign an admin token with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := auth.TokenService{
				Secret:   []byte(c.cfg.Auth.JWTSecret),
				Issuer:   c.cfg.Auth.JWTIssuer,
				Duration: c.cfg.Auth.JWTDuration,
			}
			token, exp, err := ts.Sign(subject, auth.RoleAdmin)
			if err != nil {
				return err
			}
			if save {
				if err := saveToken(c.tokenPath, token); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
				fmt.Fprintf(c.out, "token saved to %s (expires %s)\n", c.tokenPath, exp.Format("2006-01-02 15:04"))
				return nil
			}
			fmt.Fprintln(c.out, token)
			return nil
		},
	}
	issue.Flags().StringVar(&subject, "subject", "cli", "token subject")
	issue.Flags().BoolVar(&save, "save", false, "write the token to --token-file instead of printing it")

	cmd.AddCommand(issue)
	return cmd
}
