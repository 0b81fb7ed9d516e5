// Package downloader supervises spotDL subprocesses to download Spotify
// tracks one at a time, each bounded by a wall-clock timeout.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

var ErrSpotDLNotAvailable = errors.New("spotdl not available, install it with: pip install spotdl")

const (
	versionProbeTimeout = 10 * time.Second

	// pipeWaitDelay bounds Wait once the process has been killed, in
	// case a process that escaped the group still holds the output pipe.
	pipeWaitDelay = 2 * time.Second
)

// Invocation forms tried by the availability probe, in order.
var (
	primaryCommand  = []string{"spotdl"}
	fallbackCommand = []string{"python3", "-m", "spotdl"}
)

// Options configures a SpotDL supervisor.
type Options struct {
	OutputDir string

	// Timeout bounds each individual track download. Zero or negative
	// disables the bound.
	Timeout time.Duration

	// Overwrite and Quality are informational here: existing-file
	// handling and audio quality are delegated to spotDL itself.
	Overwrite string
	Quality   string
}

// SpotDL runs one spotDL subprocess per track URL, strictly sequentially.
type SpotDL struct {
	outputDir string
	timeout   time.Duration
	overwrite string
	quality   string
	command   []string

	// preexisting holds the MP3s already in the output directory at
	// construction time, so later passes can tell them apart from
	// artifacts this run produced.
	preexisting map[string]bool
}

// New verifies that spotDL is invocable, creates the output directory and
// inventories any files already present. It refuses to construct a
// supervisor when neither invocation form of the tool responds.
func New(opts Options) (*SpotDL, error) {
	return newWithCommands(opts, primaryCommand, fallbackCommand)
}

func newWithCommands(opts Options, commands ...[]string) (*SpotDL, error) {
	command, err := resolveCommand(commands)
	if err != nil {
		return nil, err
	}

	outputDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	slog.Info("Download directory ready", "path", outputDir)

	// Existing files are inventoried, never touched; spotDL decides
	// whether to skip or overwrite them.
	preexisting := make(map[string]bool)
	if existing, err := filepath.Glob(filepath.Join(outputDir, "*.mp3")); err == nil && len(existing) > 0 {
		slog.Info("Found existing MP3 files in output directory", "count", len(existing))
		if opts.Overwrite == "skip" {
			slog.Info("Existing files will be skipped by spotDL")
		}
		for _, file := range existing {
			preexisting[file] = true
		}
	}

	return &SpotDL{
		outputDir:   outputDir,
		timeout:     opts.Timeout,
		overwrite:   opts.Overwrite,
		quality:     opts.Quality,
		command:     command,
		preexisting: preexisting,
	}, nil
}

// resolveCommand probes each candidate invocation with --version and
// returns the first one that responds.
func resolveCommand(commands [][]string) ([]string, error) {
	for _, command := range commands {
		if err := probeVersion(command); err != nil {
			slog.Debug("spotdl probe failed", "command", command, "error", err)
			continue
		}
		return command, nil
	}
	return nil, ErrSpotDLNotAvailable
}

func probeVersion(command []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), versionProbeTimeout)
	defer cancel()

	args := append(append([]string{}, command[1:]...), "--version")
	return exec.CommandContext(ctx, command[0], args...).Run()
}

// OutputDir returns the resolved directory downloads land in.
func (d *SpotDL) OutputDir() string {
	return d.outputDir
}

// NewArtifacts returns the MP3s now present in the output directory that
// were not there when the supervisor was constructed.
func (d *SpotDL) NewArtifacts() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(d.outputDir, "*.mp3"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan output directory: %w", err)
	}

	var produced []string
	for _, file := range files {
		if !d.preexisting[file] {
			produced = append(produced, file)
		}
	}
	return produced, nil
}

// DownloadTracks downloads the given track URLs in order, one subprocess
// at a time, and returns exactly one Outcome per URL in input order. A
// failed or timed-out track never aborts the batch. onProgress, if set,
// is called after every track.
//
// Context cancellation kills any in-flight subprocess and returns the
// outcomes collected so far together with the context error.
func (d *SpotDL) DownloadTracks(ctx context.Context, urls []string, onProgress ProgressFunc) ([]Outcome, error) {
	if len(urls) == 0 {
		slog.Info("No tracks to download")
		return nil, nil
	}

	slog.Info("Starting downloads", "tracks", len(urls), "timeout", d.timeout, "quality", d.quality)

	outcomes := make([]Outcome, 0, len(urls))
	for i, trackURL := range urls {
		slog.Info("Downloading track", "track", i+1, "total", len(urls), "url", trackURL)

		outcome, err := d.downloadOne(ctx, trackURL)
		if err != nil {
			return outcomes, err
		}

		outcomes = append(outcomes, outcome)

		switch outcome.Status {
		case StatusSucceeded:
			slog.Info("Track downloaded", "track", i+1)
		case StatusTimedOut:
			slog.Warn("Track timed out, skipping", "track", i+1, "timeout", d.timeout)
		default:
			slog.Warn("Track failed", "track", i+1, "diagnostics", outcome.Diagnostics)
		}

		if onProgress != nil {
			onProgress(len(outcomes), len(urls))
		}
	}

	return outcomes, nil
}

// downloadOne runs a single spotDL invocation with the track URL as its
// sole positional argument. The returned error is non-nil only for
// context cancellation; every tool-level failure is folded into the
// Outcome.
func (d *SpotDL) downloadOne(ctx context.Context, trackURL string) (Outcome, error) {
	args := append(append([]string{}, d.command[1:]...), "download", trackURL)

	cmd := exec.Command(d.command[0], args...)
	// Run inside the output directory so artifacts land there directly.
	cmd.Dir = d.outputDir

	// Own process group, so a kill reaches the helper processes spotDL
	// spawns (ffmpeg etc.), not just spotDL itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = pipeWaitDelay

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		// Launch failures (e.g. executable removed mid-run) are local
		// to this track.
		slog.Error("Failed to start spotdl", "url", trackURL, "error", err)
		return Outcome{URL: trackURL, Status: StatusFailed, Diagnostics: []string{err.Error()}}, nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if d.timeout > 0 {
		timer := time.NewTimer(d.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case err := <-done:
		if err == nil {
			return Outcome{
				URL:         trackURL,
				Status:      StatusSucceeded,
				Diagnostics: filterLines(output.String(), successKeywords),
			}, nil
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Debug("spotdl exited with error", "url", trackURL, "code", exitErr.ExitCode())
		}
		return Outcome{
			URL:         trackURL,
			Status:      StatusFailed,
			Diagnostics: filterLines(output.String(), failureKeywords),
		}, nil

	case <-timeoutCh:
		d.kill(cmd, done)
		return Outcome{URL: trackURL, Status: StatusTimedOut}, nil

	case <-ctx.Done():
		d.kill(cmd, done)
		return Outcome{}, ctx.Err()
	}
}

// kill forcibly terminates the subprocess and waits for it to be reaped,
// so no child outlives the timeout window. The whole process group is
// signalled: a surviving grandchild would keep the output pipe open and
// leave Wait blocked past the window.
func (d *SpotDL) kill(cmd *exec.Cmd, done <-chan error) {
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		slog.Error("Failed to kill spotdl process group", "pid", cmd.Process.Pid, "error", err)
		if err := cmd.Process.Kill(); err != nil {
			slog.Error("Failed to kill spotdl process", "pid", cmd.Process.Pid, "error", err)
		}
	}
	<-done
}
