package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shuttle/internal/bridge"
	"shuttle/internal/session"
)

// The peer subcommands drive the consumer half of the bridge protocol by
// hand: heartbeats, the focus signal, and the import completion reply.
// They exist for manual testing against a running daemon.
func newPeerCommand(ctx *commandContext) *cobra.Command {
	peerCmd := &cobra.Command{
		Use:   "peer",
		Short: "Act as the bridge consumer for manual testing",
	}

	peerCmd.AddCommand(newPeerHeartbeatCommand(ctx))
	peerCmd.AddCommand(newPeerFocusCommand(ctx))
	peerCmd.AddCommand(newPeerCompleteCommand(ctx))

	return peerCmd
}

func newPeerHeartbeatCommand(ctx *commandContext) *cobra.Command {
	var once bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Write peer heartbeat records until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			identity := session.Resolve(ctx.sessionValue())
			br := bridge.New(cfg.Paths.BridgeDir)

			writeBeat := func() error {
				return br.WriteHeartbeat(identity.ID, bridge.HeartbeatRecord{
					TimestampEpochSeconds: time.Now().Unix(),
				})
			}

			stdout := cmd.OutOrStdout()
			if err := writeBeat(); err != nil {
				return err
			}
			if once {
				fmt.Fprintf(stdout, "Heartbeat written to %s\n", br.Paths().HeartbeatPath(identity.ID))
				return nil
			}

			if interval <= 0 {
				interval = time.Duration(cfg.Protocol.HeartbeatInterval) * time.Second
			}
			fmt.Fprintf(stdout, "Writing heartbeat to %s every %s (Ctrl-C to stop)\n",
				br.Paths().HeartbeatPath(identity.ID), interval)

			signalCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-signalCtx.Done():
					return nil
				case <-ticker.C:
					if err := writeBeat(); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Write a single heartbeat and exit")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Heartbeat cadence (defaults to protocol.heartbeat_interval)")
	return cmd
}

func newPeerFocusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "focus",
		Short: "Raise the focus signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			identity := session.Resolve(ctx.sessionValue())
			br := bridge.New(cfg.Paths.BridgeDir)

			if err := br.WriteFocusSignal(identity.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Focus signal raised at %s\n", br.Paths().FocusSignalPath(identity.ID))
			return nil
		},
	}
}

func newPeerCompleteCommand(ctx *commandContext) *cobra.Command {
	var wait time.Duration
	var extraFields []string

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Consume the pending import request and write its completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			br := bridge.New(cfg.Paths.BridgeDir)

			fields, err := parseCompletionFields(extraFields)
			if err != nil {
				return err
			}

			req, err := awaitRequest(cmd, br, wait)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Answering request for %s (%s)\n", req.AssetName, req.AssetPath)

			if err := br.ConsumeRequest(); err != nil {
				return fmt.Errorf("consume request: %w", err)
			}
			comp := bridge.Completion{
				AssetPath:     req.AssetPath,
				AssetName:     req.AssetName,
				ThumbnailPath: req.ThumbnailPath,
				Fields:        fields,
			}
			if err := br.WriteCompletion(comp); err != nil {
				return fmt.Errorf("write completion: %w", err)
			}
			fmt.Fprintf(stdout, "Completion written to %s\n", br.Paths().CompletionPath())
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "How long to wait for a request to appear (0 checks once)")
	cmd.Flags().StringArrayVar(&extraFields, "field", nil, "Extra completion payload field as key=value (repeatable)")
	return cmd
}

func awaitRequest(cmd *cobra.Command, br *bridge.Bridge, wait time.Duration) (bridge.Request, error) {
	deadline := time.Now().Add(wait)
	for {
		req, obs, err := br.ObserveRequest()
		if obs == bridge.Valid {
			return req, nil
		}
		if wait <= 0 || time.Now().After(deadline) {
			if obs == bridge.Corrupt {
				return bridge.Request{}, fmt.Errorf("request slot unreadable: %w", err)
			}
			return bridge.Request{}, errors.New("no pending import request")
		}
		select {
		case <-cmd.Context().Done():
			return bridge.Request{}, cmd.Context().Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func parseCompletionFields(values []string) (map[string]json.RawMessage, error) {
	if len(values) == 0 {
		return nil, nil
	}
	fields := make(map[string]json.RawMessage, len(values))
	for _, value := range values {
		key, raw, ok := strings.Cut(value, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", value)
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" && json.Valid([]byte(trimmed)) {
			fields[key] = json.RawMessage(trimmed)
			continue
		}
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", key, err)
		}
		fields[key] = encoded
	}
	return fields, nil
}
