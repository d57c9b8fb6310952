package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/foobargirl/hurl/internal/hurls"
	"github.com/foobargirl/hurl/internal/kv"
	"github.com/foobargirl/hurl/internal/probe"
	"github.com/spf13/cobra"
)

var probeFlags struct {
	method  string
	headers []string
	fields  []string
	basic   string
	follow  bool
	timeout int
	save    bool
	dbPath  string
}

var probeCmd = &cobra.Command{
	Use:   "probe URL",
	Short: "Execute one HTTP request and print its wire trace",
	Long: `Execute a single HTTP request from the terminal, printing the header
blocks actually sent on the wire, the response headers, and the
response body. With --save the exercise is persisted to the local
store under its content-derived identifier.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVarP(&probeFlags.method, "method", "X", "", "HTTP method (default GET)")
	probeCmd.Flags().StringArrayVarP(&probeFlags.headers, "header", "H", nil, "request header as 'Name: Value' (repeatable)")
	probeCmd.Flags().StringArrayVarP(&probeFlags.fields, "field", "d", nil, "POST form field as 'name=value' (repeatable)")
	probeCmd.Flags().StringVar(&probeFlags.basic, "basic", "", "basic auth credentials as 'user:password'")
	probeCmd.Flags().BoolVar(&probeFlags.follow, "follow", false, "follow redirects")
	probeCmd.Flags().IntVar(&probeFlags.timeout, "timeout", 30, "request timeout in seconds")
	probeCmd.Flags().BoolVar(&probeFlags.save, "save", false, "persist the exercise to the local store")
	probeCmd.Flags().StringVar(&probeFlags.dbPath, "db", getEnv("HURL_DB", "hurl.db"), "database path (with --save)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	params := probeParams(args[0])

	spec, err := probe.Build(params)
	if err != nil {
		return err
	}

	executor := &probe.Executor{
		Timeout: time.Duration(probeFlags.timeout) * time.Second,
		Logger:  logger.Named("probe"),
	}
	result, err := executor.Execute(cmd.Context(), spec)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	for _, block := range result.Wire {
		fmt.Fprint(os.Stderr, block)
	}
	if body := spec.FormBody(); body != "" {
		fmt.Fprintln(os.Stderr, body)
	}
	fmt.Fprint(os.Stderr, result.RawHeaders)
	os.Stdout.Write(result.Body)

	if probeFlags.save {
		store, err := kv.Open(probeFlags.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		id, err := (&hurls.Store{KV: store, Logger: logger.Named("hurls")}).Save(params, nil)
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		fmt.Fprintf(os.Stderr, "saved as %s\n", id)
	}

	return nil
}

// probeParams rebuilds the web form's parallel-array parameter shape
// from the CLI flags, so the CLI goes through exactly the same
// boundary as the API.
func probeParams(target string) url.Values {
	params := url.Values{}
	params.Set("url", target)
	if probeFlags.method != "" {
		params.Set("method", probeFlags.method)
	}
	if probeFlags.follow {
		params.Set("follow_redirects", "1")
	}

	for _, h := range probeFlags.headers {
		name, value, _ := strings.Cut(h, ":")
		params.Add("header-keys", strings.TrimSpace(name))
		params.Add("header-vals", strings.TrimSpace(value))
	}
	for _, f := range probeFlags.fields {
		name, value, _ := strings.Cut(f, "=")
		params.Add("param-keys", name)
		params.Add("param-vals", value)
	}

	if probeFlags.basic != "" {
		username, password, _ := strings.Cut(probeFlags.basic, ":")
		params.Set("auth", "basic")
		params.Set("username", username)
		params.Set("password", password)
	}

	return params
}
