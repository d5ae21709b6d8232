package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"imagehub/pkg/models"
)

type manifestListResponse struct {
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Items  []models.ManifestEntry `json:"items"`
}

func newManifestCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect and reload the image manifest",
	}

	var (
		limit, offset int
		imagesOnly    bool
		asJSON        bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List manifest entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			if imagesOnly {
				q.Set("images_only", "true")
			}
			endpoint, err := c.endpoint("/manifest", q)
			if err != nil {
				return err
			}
			var resp manifestListResponse
			if err := c.doJSON(cmd.Context(), http.MethodGet, endpoint, "", nil, &resp); err != nil {
				return fmt.Errorf("list manifest: %w", err)
			}
			if asJSON {
				return c.printJSON(resp)
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "POS\tKEY\tIMAGE\tURL")
			for _, e := range resp.Items {
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", e.Position, e.Key, e.IsImage, e.URL.Raw)
			}
			fmt.Fprintf(w, "\n%d of %d entries\n", len(resp.Items), resp.Total)
			return w.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "page size")
	list.Flags().IntVar(&offset, "offset", 0, "offset")
	list.Flags().BoolVar(&imagesOnly, "images-only", false, "only entries that look like images")
	list.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show loading state and the last error",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := c.endpoint("/manifest/status", nil)
			if err != nil {
				return err
			}
			var st map[string]any
			if err := c.doJSON(cmd.Context(), http.MethodGet, endpoint, "", nil, &st); err != nil {
				return fmt.Errorf("manifest status: %w", err)
			}
			return c.printJSON(st)
		},
	}

	retry := &cobra.Command{
		Use:   "retry",
		Short: "Load the manifest again, keeping current entries on failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := c.endpoint("/manifest/retry", nil)
			if err != nil {
				return err
			}
			var st map[string]any
			if err := c.doJSON(cmd.Context(), http.MethodPost, endpoint, "", nil, &st); err != nil {
				return fmt.Errorf("manifest retry: %w", err)
			}
			return c.printJSON(st)
		},
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Drop the current manifest and load it again (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.adminToken()
			if err != nil {
				return err
			}
			endpoint, err := c.endpoint("/manifest/refresh", nil)
			if err != nil {
				return err
			}
			var st map[string]any
			if err := c.doJSON(cmd.Context(), http.MethodPost, endpoint, token, nil, &st); err != nil {
				return fmt.Errorf("manifest refresh: %w", err)
			}
			return c.printJSON(st)
		},
	}

	cmd.AddCommand(list, status, retry, refresh)
	return cmd
}
