package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"imagehub/pkg/utils"
)

const defaultBaseURL = "http://localhost:8080"

// cli carries state shared by every subcommand.
type cli struct {
	cfgFile   string
	baseURL   string
	tokenPath string
	token     string

	cfg    *utils.Config
	client *http.Client
	out    io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, client: &http.Client{Timeout: 30 * time.Second}}

	root := &cobra.Command{
		Use:   "imagehub",
		Short: "Client for the imagehub API",
		Long: `imagehub talks to a running api-server.

Example usage:
  imagehub manifest list --images-only
  imagehub image get --url https://example.com/a.jpg --w 200 --h 200 -o a.jpg
  imagehub token issue --save
  imagehub cache clear
  imagehub events watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadConfig(c.cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			c.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is ./imagehub.yaml)")
	root.PersistentFlags().StringVar(&c.baseURL, "api", defaultBaseURL, "API base URL")
	root.PersistentFlags().StringVar(&c.tokenPath, "token-file", defaultTokenPath(), "admin token file")
	root.PersistentFlags().StringVar(&c.token, "token", "", "admin token (overrides --token-file)")

	root.AddCommand(
		newManifestCmd(c),
		newImageCmd(c),
		newCacheCmd(c),
		newTokenCmd(c),
		newEventsCmd(c),
	)
	return root
}

// adminToken returns --token or the saved token.
func (c *cli) adminToken() (string, error) {
	if c.token != "" {
		return c.token, nil
	}
	token, err := readToken(c.tokenPath)
	if err != nil {
		return "", fmt.Errorf("no admin token, run `imagehub token issue --save`: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", c.tokenPath)
	}
	return token, nil
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.imagehub-token.json"
	}
	return filepath.Join(home, ".imagehub", "token.json")
}
