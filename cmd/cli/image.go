package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newImageCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Download full images and thumbnails",
	}

	var (
		source string
		width  int
		height int
		out    string
	)
	get := &cobra.Command{
		Use:   "get",
		Short: "Download an image, or a thumbnail when --w and --h are set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				return errors.New("--url is required")
			}
			q := url.Values{}
			q.Set("url", source)
			path := "/images/full"
			if width > 0 || height > 0 {
				path = "/images/thumbnail"
				q.Set("w", strconv.Itoa(width))
				q.Set("h", strconv.Itoa(height))
			}
			endpoint, err := c.endpoint(path, q)
			if err != nil {
				return err
			}

			data, header, err := c.do(cmd.Context(), http.MethodGet, endpoint, "", nil)
			if err != nil {
				return fmt.Errorf("get image: %w", err)
			}
			if out == "" || out == "-" {
				_, err = c.out.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %s (%sx%s, %d bytes)\n",
				out, header.Get("X-Image-Width"), header.Get("X-Image-Height"), len(data))
			return nil
		},
	}
	get.Flags().StringVar(&source, "url", "", "source image URL")
	get.Flags().IntVar(&width, "w", 0, "thumbnail width")
	get.Flags().IntVar(&height, "h", 0, "thumbnail height")
	get.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")

	cmd.AddCommand(get)
	return cmd
}
