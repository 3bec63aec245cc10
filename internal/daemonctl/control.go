// Package daemonctl orchestrates the shuttled process lifecycle from the
// CLI: launching the detached daemon, waiting for its socket, stopping it
// with an escalation path, and assembling status snapshots that degrade
// gracefully when the daemon is offline.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shuttle/internal/bridge"
	"shuttle/internal/catalog"
	"shuttle/internal/config"
	"shuttle/internal/ipc"
	"shuttle/internal/preflight"
	"shuttle/internal/session"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	SessionID  string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// Launch starts a detached shuttle daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if id := strings.TrimSpace(opts.SessionID); id != "" {
		args = append(args, "--session", id)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches and/or starts the daemon and returns the resulting state.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	launched := false
	if err != nil {
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = WaitForClient(socketPath, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		launched = true
	}
	defer client.Close()

	statusResp, statusErr := client.Status()
	if statusErr == nil && statusResp != nil && statusResp.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}

	if resp != nil {
		message := strings.TrimSpace(resp.Message)
		if resp.Started {
			return StartResult{State: StartStateStarted, Launched: launched, Message: message}, nil
		}
		if strings.EqualFold(message, "daemon already running") {
			if launched {
				return StartResult{State: StartStateStarted, Launched: true, Message: message}, nil
			}
			return StartResult{State: StartStateAlreadyRunning, Message: message}, nil
		}
		if message != "" {
			return StartResult{State: StartStateRequested, Launched: launched, Message: message}, nil
		}
	}

	return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}, nil
}

// WaitForShutdown waits for daemon IPC to disappear or report not-running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
				return nil
			}
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && !status.Running {
			return nil
		}
		if statusErr != nil {
			lastErr = statusErr
		} else {
			lastErr = fmt.Errorf("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, statusErr := client.Status()
	if statusErr != nil {
		return true, 0, statusErr
	}
	pid := 0
	if status != nil {
		pid = status.PID
	}
	return true, pid, nil
}

// DeriveLogDir determines the daemon log directory from status and config hints.
func DeriveLogDir(lockPath string, cfg *config.Config) string {
	if lockPath != "" {
		return filepath.Dir(lockPath)
	}
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		return cfg.Paths.LogDir
	}
	return ""
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	if err == nil {
		pidStr := strings.TrimSpace(string(data))
		if pidStr != "" {
			if parsed, parseErr := strconv.Atoi(pidStr); parseErr == nil && parsed > 0 {
				pid = parsed
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate requests daemon stop and force-kills the process if still alive after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	statusResp, statusErr := client.Status()
	var lockPath string
	pid := 0
	if statusErr == nil && statusResp != nil {
		lockPath = statusResp.LockPath
		pid = statusResp.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid}
	if resp != nil {
		result.StopAcknowledged = resp.Stopped
	}

	_ = WaitForShutdown(socketPath, gracePeriod)
	alive, livePID, aliveErr := ProcessInfo(socketPath)
	if aliveErr != nil {
		alive = false
	}
	if !alive {
		return result, nil
	}

	currentPID := livePID
	if currentPID == 0 {
		currentPID = pid
	}
	logDir := DeriveLogDir(lockPath, cfg)
	if logDir == "" {
		return result, fmt.Errorf("unable to determine daemon log directory")
	}
	pidPath := filepath.Join(logDir, "shuttled.pid")
	lockFile := filepath.Join(logDir, "shuttled.lock")
	killedPID, killErr := ForceKillProcess(pidPath, lockFile, currentPID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks
// for catalog stats and bridge inspection.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	statusResp := &ipc.StatusResponse{}

	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			statusResp = resp
		}
	}

	if !statusResp.Running {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		store, openErr := catalog.Open(cfg.CatalogPath())
		if openErr == nil {
			stats, statsErr := store.Stats(queryCtx)
			_ = store.Close()
			if statsErr == nil {
				statusResp.CatalogStats = ipc.MergeCatalogStats(stats)
			}
		}

		if statusResp.BridgeDir == "" {
			statusResp.BridgeDir = cfg.Paths.BridgeDir
		}
		if statusResp.CatalogDBPath == "" {
			statusResp.CatalogDBPath = cfg.CatalogPath()
		}
		if statusResp.SessionID == "" {
			identity := session.Resolve("")
			statusResp.SessionID = identity.ID
			statusResp.Degraded = identity.Degraded()
		}
	}

	statusResp.SystemChecks = BuildSystemChecks(cfg, statusResp.Running, statusResp.Degraded, statusResp.PeerState)
	statusResp.BridgeFiles = BuildBridgeChecks(cfg, statusResp.SessionID)
	return statusResp, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// BuildSystemChecks resolves status lines that combine runtime state and config checks.
func BuildSystemChecks(cfg *config.Config, daemonRunning, degraded bool, peerState string) []ipc.StatusLine {
	lines := make([]ipc.StatusLine, 0, 6)
	if daemonRunning {
		lines = append(lines, ipc.StatusLine{Label: "Shuttle", Severity: "ok", Detail: "Running"})
		if degraded {
			lines = append(lines, ipc.StatusLine{Label: "Session", Severity: "warn", Detail: "No session token (bridge files unkeyed)"})
		} else {
			lines = append(lines, ipc.StatusLine{Label: "Session", Severity: "ok", Detail: "Keyed"})
		}
		switch peerState {
		case "active":
			lines = append(lines, ipc.StatusLine{Label: "Peer", Severity: "ok", Detail: "Heartbeat active"})
		case "terminated":
			lines = append(lines, ipc.StatusLine{Label: "Peer", Severity: "warn", Detail: "Heartbeat went stale; shutting down"})
		default:
			lines = append(lines, ipc.StatusLine{Label: "Peer", Severity: "info", Detail: "Waiting for first heartbeat"})
		}
	} else {
		lines = append(lines, ipc.StatusLine{Label: "Shuttle", Severity: "warn", Detail: "Not running (run `shuttle start`)"})
	}

	bridgeCheck := preflight.CheckDirectoryAccess("Bridge directory", cfg.Paths.BridgeDir)
	severity := "error"
	if bridgeCheck.Passed {
		severity = "ok"
	}
	lines = append(lines, ipc.StatusLine{Label: "Bridge", Severity: severity, Detail: bridgeCheck.Detail})

	if cfg.Intake.Enabled {
		downloads := preflight.CheckDirectoryAccess("Downloads directory", cfg.Paths.DownloadsDir)
		if downloads.Passed {
			lines = append(lines, ipc.StatusLine{Label: "Intake", Severity: "ok", Detail: "Watching " + cfg.Paths.DownloadsDir})
		} else {
			lines = append(lines, ipc.StatusLine{Label: "Intake", Severity: "error", Detail: downloads.Detail})
		}
	} else {
		lines = append(lines, ipc.StatusLine{Label: "Intake", Severity: "info", Detail: "Disabled"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, ipc.StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, ipc.StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}

	return lines
}

// BuildBridgeChecks observes the shared protocol files for the given
// session and reports one line per file. Runs entirely on the filesystem,
// so it works whether or not the daemon is up.
func BuildBridgeChecks(cfg *config.Config, sessionID string) []ipc.StatusLine {
	b := bridge.New(cfg.Paths.BridgeDir)
	lines := make([]ipc.StatusLine, 0, 5)

	lock, lockState, _ := b.ObserveLock(sessionID)
	switch lockState {
	case bridge.Valid:
		lines = append(lines, ipc.StatusLine{Label: "Lock", Severity: "ok", Detail: fmt.Sprintf("Held by PID %d", lock.ProcessID)})
	case bridge.Corrupt:
		lines = append(lines, ipc.StatusLine{Label: "Lock", Severity: "warn", Detail: "Unreadable (possible concurrent write)"})
	default:
		lines = append(lines, ipc.StatusLine{Label: "Lock", Severity: "info", Detail: "Absent"})
	}

	hb, hbState, _ := b.ObserveHeartbeat(sessionID)
	switch hbState {
	case bridge.Valid:
		age := hb.Age(time.Now())
		timeout := time.Duration(cfg.Protocol.HeartbeatTimeout) * time.Second
		if age > timeout {
			lines = append(lines, ipc.StatusLine{Label: "Heartbeat", Severity: "warn", Detail: fmt.Sprintf("Stale (age %s)", age.Round(time.Second))})
		} else {
			lines = append(lines, ipc.StatusLine{Label: "Heartbeat", Severity: "ok", Detail: fmt.Sprintf("Fresh (age %s)", age.Round(time.Second))})
		}
	case bridge.Corrupt:
		lines = append(lines, ipc.StatusLine{Label: "Heartbeat", Severity: "warn", Detail: "Unreadable (possible concurrent write)"})
	default:
		lines = append(lines, ipc.StatusLine{Label: "Heartbeat", Severity: "info", Detail: "Absent"})
	}

	if pending, err := b.FocusSignalPresent(sessionID); err == nil && pending {
		lines = append(lines, ipc.StatusLine{Label: "Focus signal", Severity: "info", Detail: "Pending"})
	} else {
		lines = append(lines, ipc.StatusLine{Label: "Focus signal", Severity: "ok", Detail: "Idle"})
	}

	if pending, err := b.RequestPending(); err == nil && pending {
		lines = append(lines, ipc.StatusLine{Label: "Request slot", Severity: "info", Detail: "Request awaiting peer"})
	} else {
		lines = append(lines, ipc.StatusLine{Label: "Request slot", Severity: "ok", Detail: "Empty"})
	}

	_, compState, _ := b.ObserveCompletion()
	switch compState {
	case bridge.Valid:
		lines = append(lines, ipc.StatusLine{Label: "Completion slot", Severity: "info", Detail: "Completion awaiting consumption"})
	case bridge.Corrupt:
		lines = append(lines, ipc.StatusLine{Label: "Completion slot", Severity: "warn", Detail: "Unreadable (possible concurrent write)"})
	default:
		lines = append(lines, ipc.StatusLine{Label: "Completion slot", Severity: "ok", Detail: "Empty"})
	}

	return lines
}
