package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	goccyjson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/slipwire-dev/slipwire/config"
	"github.com/slipwire-dev/slipwire/pkg/exchange"
	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/wire"
	"github.com/slipwire-dev/slipwire/pretty"
)

var (
	reqHeaders        []string
	reqBody           string
	reqBodyFile       string
	reqRelayURL       string
	reqSendTimeout    time.Duration
	reqConnectTimeout time.Duration
	reqOutputJSON     bool
)

func init() {
	requestCmd.Flags().StringArrayVarP(&reqHeaders, "header", "H", nil, "Request header as 'name: value'. May be repeated.")
	requestCmd.Flags().StringVarP(&reqBody, "data", "d", "", "Request body.")
	requestCmd.Flags().StringVar(&reqBodyFile, "data-file", "", "Read the request body from a file.")
	requestCmd.Flags().StringVar(&reqRelayURL, "relay", "", "Relay URL. Overrides the configured one.")
	requestCmd.Flags().DurationVar(&reqSendTimeout, "send-timeout", 0, "Per-phase deadline while awaiting the response.")
	requestCmd.Flags().DurationVar(&reqConnectTimeout, "connect-timeout", 0, "Deadline for establishing the relay connection.")
	requestCmd.Flags().BoolVar(&reqOutputJSON, "json", false, "Print the response as JSON.")
	rootCmd.AddCommand(requestCmd)
}

func parseHeaderFlags(raw []string) (wire.Headers, error) {
	var hs wire.Headers
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'name: value'", h)
		}
		hs = hs.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return hs, nil
}

var requestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send a request through the relay and print the response",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		method, err := wire.ParseMethod(args[0])
		if err != nil {
			return err
		}
		path := args[1]

		var c *exchange.Client
		if reqRelayURL == "" {
			c, err = config.DefaultClient()
			if err != nil {
				return err
			}
		} else {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			authToken, err := cfg.BearerToken()
			if err != nil {
				return err
			}
			c = exchange.NewClient(reqRelayURL,
				exchange.WithDialer(&relay.WebsocketDialer{AuthToken: authToken}),
				exchange.WithDefaults(cfg.Options()...),
			)
		}

		var callOpts []exchange.Option
		hs, err := parseHeaderFlags(reqHeaders)
		if err != nil {
			return err
		}
		if len(hs) > 0 {
			callOpts = append(callOpts, exchange.WithHeaders(hs))
		}
		switch {
		case reqBodyFile != "":
			b, err := os.ReadFile(reqBodyFile)
			if err != nil {
				return fmt.Errorf("failed to read body file: %w", err)
			}
			callOpts = append(callOpts, exchange.WithBody(b))
		case reqBody != "":
			callOpts = append(callOpts, exchange.WithBody([]byte(reqBody)))
		}
		if reqSendTimeout > 0 {
			callOpts = append(callOpts, exchange.WithSendTimeout(reqSendTimeout))
		}
		if reqConnectTimeout > 0 {
			callOpts = append(callOpts, exchange.WithConnectTimeout(reqConnectTimeout))
		}

		res, err := c.Execute(cmd.Context(), method, path, callOpts...)
		if err != nil {
			return err
		}

		if reqOutputJSON {
			out := struct {
				Status  int          `json:"status"`
				Headers wire.Headers `json:"headers,omitempty"`
				Body    string       `json:"body"`
			}{res.Status, res.Headers, string(res.Body)}
			enc := goccyjson.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		fmt.Printf("Status: %d\n", res.Status)
		if len(res.Headers) > 0 {
			rows := pretty.Rows{}
			for _, h := range res.Headers {
				rows = append(rows, []interface{}{h.Name, h.Value})
			}
			pretty.Table{
				Header: pretty.Header{"NAME", "VALUE"},
				Rows:   rows,
			}.Print()
		}
		if len(res.Body) > 0 {
			fmt.Println(string(res.Body))
		}
		return nil
	},
}
