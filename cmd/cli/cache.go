package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the image cache",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show memory tier sizes and disk usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := c.endpoint("/cache/stats", nil)
			if err != nil {
				return err
			}
			var st map[string]any
			if err := c.doJSON(cmd.Context(), http.MethodGet, endpoint, "", nil, &st); err != nil {
				return fmt.Errorf("cache stats: %w", err)
			}
			return c.printJSON(st)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty memory and disk caches (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.adminToken()
			if err != nil {
				return err
			}
			endpoint, err := c.endpoint("/cache", nil)
			if err != nil {
				return err
			}
			if err := c.doJSON(cmd.Context(), http.MethodDelete, endpoint, token, nil, nil); err != nil {
				return fmt.Errorf("cache clear: %w", err)
			}
			fmt.Fprintln(c.out, "cache cleared")
			return nil
		},
	}

	cmd.AddCommand(stats, clearCmd)
	return cmd
}
