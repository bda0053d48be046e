// Command magctl sends control commands to a running screen magnifier.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"screen-magnifier/src/config"
	"screen-magnifier/src/eventloop"
	"screen-magnifier/src/singleinstance"
)

var errNoResident = errors.New("no screen magnifier is running")

type sender interface {
	Send(ctx context.Context, req singleinstance.Request) (bool, string, error)
}

type ctlOptions struct {
	output  string
	timeout time.Duration
}

func main() {
	if err := runWithArgs(os.Args, singleinstance.NewClient(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string, client sender, out io.Writer) error {
	if len(args) == 0 {
		args = []string{"magctl"}
	}
	// MAGNIFIER_PORT_* may come from the resident's .env.
	_, _ = config.Load()
	cmd := newRootCmd(client, out)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(client sender, out io.Writer) *cobra.Command {
	opts := &ctlOptions{}
	root := &cobra.Command{
		Use:           "magctl",
		Short:         "Control a running screen magnifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Second, "How long to wait for the resident")

	simple := func(use, short, command string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd.Context(), client, out, opts, singleinstance.Request{Command: command})
			},
		}
	}
	onOff := func(use, short, command string) *cobra.Command {
		return &cobra.Command{
			Use:       use + " on|off|toggle",
			Short:     short,
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"on", "off", "toggle"},
			RunE: func(cmd *cobra.Command, args []string) error {
				req, err := buildRequest(command, args)
				if err != nil {
					return err
				}
				return send(cmd.Context(), client, out, opts, req)
			},
		}
	}

	highlight := onOff("highlight", "Enable or disable highlighting for every context or one of them", singleinstance.CmdHighlight)
	highlight.Use = "highlight [focus|navigator|browse] on|off|toggle"
	highlight.Args = cobra.RangeArgs(1, 2)
	highlight.ValidArgs = nil

	filter := &cobra.Command{
		Use:   "filter [next|N]",
		Short: "Cycle the color filter or select one by index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(singleinstance.CmdFilter, args)
			if err != nil {
				return err
			}
			return send(cmd.Context(), client, out, opts, req)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the resident state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := request(cmd.Context(), client, opts, singleinstance.Request{Command: singleinstance.CmdStatus})
			if err != nil {
				return err
			}
			return printStatus(out, body, opts.output)
		},
	}
	status.Flags().StringVarP(&opts.output, "output", "o", "yaml", "Output format: yaml or json")

	root.AddCommand(
		simple("zoom-in", "Increase magnification", singleinstance.CmdZoomIn),
		simple("zoom-out", "Decrease magnification", singleinstance.CmdZoomOut),
		filter,
		onOff("fullscreen", "Switch between fullscreen and windowed magnification", singleinstance.CmdFullscreen),
		highlight,
		onOff("track-cursor", "Make the zoom follow the mouse pointer", singleinstance.CmdTrackCursor),
		simple("refresh", "Repaint the highlight overlay", singleinstance.CmdRefresh),
		simple("copy-source", "Copy the magnified source rectangle to the clipboard", singleinstance.CmdCopySource),
		status,
		simple("quit", "Stop the resident", singleinstance.CmdQuit),
	)
	return root
}

// buildRequest turns subcommand arguments into a validated request.
func buildRequest(command string, args []string) (singleinstance.Request, error) {
	req := singleinstance.Request{Command: command}
	if len(args) > 0 {
		req.Arg = strings.ToUpper(strings.Join(strings.Fields(strings.Join(args, " ")), " "))
	}
	if err := req.Validate(); err != nil {
		return singleinstance.Request{}, err
	}
	return req, nil
}

func request(ctx context.Context, client sender, opts *ctlOptions, req singleinstance.Request) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	delegated, body, err := client.Send(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", req.Command, err)
	}
	if !delegated {
		return "", errNoResident
	}
	return body, nil
}

func send(ctx context.Context, client sender, out io.Writer, opts *ctlOptions, req singleinstance.Request) error {
	body, err := request(ctx, client, opts, req)
	if err != nil {
		return err
	}
	if body != "" {
		fmt.Fprintln(out, strings.TrimRight(body, "\n"))
	}
	return nil
}

func printStatus(out io.Writer, body, format string) error {
	var st eventloop.Status
	if err := yaml.Unmarshal([]byte(body), &st); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	switch strings.ToLower(format) {
	case "yaml", "":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(st)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
