package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/foobargirl/hurl/internal/client"
	"github.com/spf13/cobra"
)

var getFlags struct {
	baseURL string
}

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Fetch a saved hurl from a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(getFlags.baseURL)
		rec, err := c.GetHurl(args[0])
		if err != nil {
			return fmt.Errorf("get hurl: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVar(&getFlags.baseURL, "base-url", getEnv("HURL_BASE_URL", "http://localhost:8080"), "server base URL")
}
