package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gate4ai/hostbridge/client"
	"github.com/gate4ai/hostbridge/server/transport"
	"github.com/gate4ai/hostbridge/shared/args"
	"github.com/gate4ai/hostbridge/shared/schema"
	"github.com/spf13/cobra"
)

// runCommand opens a session, runs one command and prints its result.
func (a *app) runCommand(cmd *cobra.Command, name string, arguments schema.ArgumentSet) error {
	s, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.Timeout)
	defer cancel()
	r, err := s.Call(ctx, name, arguments)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), r)
}

func printResult(w io.Writer, r schema.Result) error {
	switch r.Kind {
	case schema.ResultSuccess:
		data, err := json.Marshal(r.Value)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	case schema.ResultUnimplemented:
		return errors.New("command not implemented by the host")
	}
	return fmt.Errorf("%s: %s", r.Code, r.Message)
}

// parseArguments reads an optional JSON object keeping numbers exact.
func parseArguments(in []string) (schema.ArgumentSet, error) {
	if len(in) == 0 {
		return schema.ArgumentSet{}, nil
	}
	return args.Decode([]byte(in[0]))
}

func newCallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "call <command> [json-arguments]",
		Short:   "Run any bridge command",
		Args:    cobra.RangeArgs(1, 2),
		Example: `bridgectl call music '{"title":"Song","artist":"Artist"}'`,
		RunE: func(cmd *cobra.Command, in []string) error {
			arguments, err := parseArguments(in[1:])
			if err != nil {
				return err
			}
			return a.runCommand(cmd, in[0], arguments)
		},
	}
}

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the host answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCommand(cmd, schema.CommandPing, nil)
		},
	}
}

func newMusicCommand(a *app) *cobra.Command {
	var artist, album string
	cmd := &cobra.Command{
		Use:     "music <title>",
		Short:   "Search for a song in a music app",
		Args:    cobra.ExactArgs(1),
		Example: `bridgectl music "Song" --artist "Artist"`,
		RunE: func(cmd *cobra.Command, in []string) error {
			arguments := schema.ArgumentSet{"title": in[0]}
			if cmd.Flags().Changed("artist") {
				arguments["artist"] = artist
			}
			if cmd.Flags().Changed("album") {
				arguments["album"] = album
			}
			return a.runCommand(cmd, schema.CommandMusic, arguments)
		},
	}
	cmd.Flags().StringVar(&artist, "artist", "", "Artist name")
	cmd.Flags().StringVar(&album, "album", "", "Album name")
	return cmd
}

func newInstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install <apk-path>",
		Short: "Hand a package file to the system installer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, in []string) error {
			return a.runCommand(cmd, schema.CommandInstallApk, schema.ArgumentSet{"apkPath": in[0]})
		},
	}
}

func newPipCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "pip <on|off>",
		Short:     "Toggle automatic picture-in-picture entry",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, in []string) error {
			enabled, err := parseSwitch(in[0])
			if err != nil {
				return err
			}
			return a.runCommand(cmd, schema.CommandSetPipAutoEnterEnabled, schema.ArgumentSet{"autoEnable": enabled})
		},
	}
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

func newListenCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print lifecycle events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			s, err := a.session(cmd.Context(), client.WithLifecycleListener(func(ev schema.LifecycleEvent) {
				data, _ := json.Marshal(ev.Params())
				fmt.Fprintf(out, "%s %s\n", ev.Kind, data)
			}))
			if err != nil {
				return err
			}
			defer s.Close()
			// Attaches this session as the listener.
			ctx, cancel := context.WithTimeout(cmd.Context(), a.Timeout)
			_, err = s.Ping(ctx)
			cancel()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "listening for lifecycle events")
			<-cmd.Context().Done()
			return nil
		},
	}
}

// lifecycleRequest maps a CLI event name to the lifecycle endpoint body.
func lifecycleRequest(name string) (transport.LifecycleRequest, error) {
	switch name {
	case "leave":
		return transport.LifecycleRequest{Event: transport.LifecycleUserLeaveHint}, nil
	case "pip-on":
		return transport.LifecycleRequest{Event: transport.LifecyclePipChanged, Value: true}, nil
	case "pip-off":
		return transport.LifecycleRequest{Event: transport.LifecyclePipChanged}, nil
	case "destroy":
		return transport.LifecycleRequest{Event: transport.LifecycleDestroy}, nil
	}
	return transport.LifecycleRequest{}, fmt.Errorf("unknown lifecycle event %q", name)
}

func newLifecycleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "lifecycle <leave|pip-on|pip-off|destroy>",
		Short:     "Simulate a host lifecycle signal",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"leave", "pip-on", "pip-off", "destroy"},
		RunE: func(cmd *cobra.Command, in []string) error {
			req, err := lifecycleRequest(in[0])
			if err != nil {
				return err
			}
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}
			resp, err := a.do(cmd.Context(), http.MethodPost, transport.LIFECYCLE_PATH, body)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusAccepted {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
				return fmt.Errorf("lifecycle signal rejected: %s: %s", resp.Status, bytes.TrimSpace(msg))
			}
			return nil
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the host serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := a.do(cmd.Context(), http.MethodGet, "/status", nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
			return err
		},
	}
}

func (a *app) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL()+path, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
