package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shuttle/internal/bridge"
	"shuttle/internal/daemonctl"
	"shuttle/internal/ipc"
)

type sessionView struct {
	SessionID     string            `json:"session_id,omitempty"`
	Degraded      bool              `json:"degraded"`
	DaemonRunning bool              `json:"daemon_running"`
	PeerState     string            `json:"peer_state,omitempty"`
	BridgeDir     string            `json:"bridge_dir"`
	Files         map[string]string `json:"files"`
	BridgeFiles   []ipc.StatusLine  `json:"bridge_files"`
}

func newSessionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the bridge session and its protocol files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			paths := bridge.New(cfg.Paths.BridgeDir).Paths()
			sessionID := statusResp.SessionID
			view := sessionView{
				SessionID:     sessionID,
				Degraded:      statusResp.Degraded,
				DaemonRunning: statusResp.Running,
				PeerState:     statusResp.PeerState,
				BridgeDir:     cfg.Paths.BridgeDir,
				Files: map[string]string{
					"lock":       paths.LockPath(sessionID),
					"heartbeat":  paths.HeartbeatPath(sessionID),
					"focus":      paths.FocusSignalPath(sessionID),
					"request":    paths.RequestPath(),
					"completion": paths.CompletionPath(),
				},
				BridgeFiles: statusResp.BridgeFiles,
			}

			stdout := cmd.OutOrStdout()
			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}

			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Session", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if view.Degraded {
				fmt.Fprintln(stdout, renderStatusLine("Token", statusWarn, "Not set (bridge files unkeyed, any peer may answer)", colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Token", statusOK, view.SessionID, colorize))
			}
			if view.DaemonRunning {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", statusResp.PID), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Bridge Files", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range view.BridgeFiles {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			rows := [][]string{
				{"Lock", view.Files["lock"]},
				{"Heartbeat", view.Files["heartbeat"]},
				{"Focus signal", view.Files["focus"]},
				{"Request slot", view.Files["request"]},
				{"Completion slot", view.Files["completion"]},
			}
			table := renderTable([]string{"Artifact", "Path"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprint(stdout, table)
			return nil
		},
	}
}
