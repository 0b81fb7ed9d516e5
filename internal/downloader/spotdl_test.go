package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStubTool writes a shell script that stands in for spotdl. It
// answers the --version probe and classifies downloads by URL content:
// URLs containing "ok" succeed, "slow" hang past any test timeout, "bg"
// hangs in a long-lived child of its own, and everything else fails with
// a nonzero exit.
func writeStubTool(t *testing.T, dir string) string {
	t.Helper()

	script := `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "4.2.0"
	exit 0
fi
url="$2"
case "$url" in
*slow*)
	echo $$ > "` + filepath.Join(dir, "stub.pid") + `"
	sleep 5
	exit 0
	;;
*bg*)
	sleep 30 &
	echo $! > "` + filepath.Join(dir, "bg.pid") + `"
	echo $$ > "` + filepath.Join(dir, "stub.pid") + `"
	wait
	exit 0
	;;
*ok*)
	echo "Saved \"Test Track\""
	echo "unrelated noise line"
	exit 0
	;;
*)
	echo "Error: lookup failed for $url"
	exit 1
	;;
esac
`
	path := filepath.Join(dir, "stubtool")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newStubSupervisor(t *testing.T, timeout time.Duration) (*SpotDL, string) {
	t.Helper()

	dir := t.TempDir()
	stub := writeStubTool(t, dir)

	d, err := newWithCommands(Options{
		OutputDir: filepath.Join(dir, "out"),
		Timeout:   timeout,
		Overwrite: "skip",
		Quality:   "best",
	}, []string{stub})
	require.NoError(t, err)
	return d, dir
}

func TestNewToolUnavailable(t *testing.T) {
	dir := t.TempDir()

	d, err := newWithCommands(Options{OutputDir: dir},
		[]string{filepath.Join(dir, "no-such-tool")},
		[]string{filepath.Join(dir, "also-missing"), "-m", "spotdl"},
	)

	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrSpotDLNotAvailable)
}

func TestNewFallsBackToSecondInvocation(t *testing.T) {
	dir := t.TempDir()
	stub := writeStubTool(t, dir)

	d, err := newWithCommands(Options{OutputDir: filepath.Join(dir, "out")},
		[]string{filepath.Join(dir, "no-such-tool")},
		[]string{stub},
	)

	require.NoError(t, err)
	assert.Equal(t, []string{stub}, d.command)
}

func TestNewCreatesOutputDir(t *testing.T) {
	d, dir := newStubSupervisor(t, time.Second)

	info, err := os.Stat(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(dir, "out"), d.OutputDir())
}

func TestDownloadTracksClassification(t *testing.T) {
	d, _ := newStubSupervisor(t, 300*time.Millisecond)

	urls := []string{
		"https://open.spotify.com/track/ok1",
		"https://open.spotify.com/track/slow1",
		"https://open.spotify.com/track/bad1",
	}

	var progress [][2]int
	outcomes, err := d.DownloadTracks(context.Background(), urls, func(completed, total int) {
		progress = append(progress, [2]int{completed, total})
	})

	require.NoError(t, err)
	require.Len(t, outcomes, len(urls))

	assert.Equal(t, urls[0], outcomes[0].URL)
	assert.Equal(t, StatusSucceeded, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Diagnostics, `Saved "Test Track"`)
	assert.NotContains(t, outcomes[0].Diagnostics, "unrelated noise line")

	assert.Equal(t, urls[1], outcomes[1].URL)
	assert.Equal(t, StatusTimedOut, outcomes[1].Status)

	assert.Equal(t, urls[2], outcomes[2].URL)
	assert.Equal(t, StatusFailed, outcomes[2].Status)
	require.NotEmpty(t, outcomes[2].Diagnostics)
	assert.Contains(t, outcomes[2].Diagnostics[0], "Error: lookup failed")

	// Progress fires once per track regardless of outcome.
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestTimeoutKillsProcess(t *testing.T) {
	d, dir := newStubSupervisor(t, 200*time.Millisecond)

	start := time.Now()
	outcomes, err := d.DownloadTracks(context.Background(),
		[]string{"https://open.spotify.com/track/slow1"}, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusTimedOut, outcomes[0].Status)

	// Must return near the timeout, not after the stub's full sleep.
	assert.Less(t, elapsed, 2*time.Second)

	// The supervised process must be gone.
	pidData, err := os.ReadFile(filepath.Join(dir, "stub.pid"))
	require.NoError(t, err)
	var pid int
	_, err = fmt.Sscanf(string(pidData), "%d", &pid)
	require.NoError(t, err)
	assert.Error(t, syscall.Kill(pid, 0))
}

func TestTimeoutKillsProcessGroup(t *testing.T) {
	d, dir := newStubSupervisor(t, 200*time.Millisecond)

	// The stub hands the real work to a child of its own, the way spotDL
	// hands encoding to ffmpeg. That child inherits the output pipe, so a
	// kill that misses it would leave the supervisor blocked on Wait.
	start := time.Now()
	outcomes, err := d.DownloadTracks(context.Background(),
		[]string{"https://open.spotify.com/track/bg1"}, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusTimedOut, outcomes[0].Status)
	assert.Less(t, elapsed, 2*time.Second)

	pidData, err := os.ReadFile(filepath.Join(dir, "bg.pid"))
	require.NoError(t, err)
	var pid int
	_, err = fmt.Sscanf(string(pidData), "%d", &pid)
	require.NoError(t, err)

	// The child is reaped by init, not by us, so give it a moment.
	assert.Eventually(t, func() bool {
		return syscall.Kill(pid, 0) != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestLaunchFailureDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	stub := writeStubTool(t, dir)

	d, err := newWithCommands(Options{
		OutputDir: filepath.Join(dir, "out"),
		Timeout:   time.Second,
	}, []string{stub})
	require.NoError(t, err)

	// The tool disappears between the probe and the first download.
	require.NoError(t, os.Remove(stub))

	urls := []string{
		"https://open.spotify.com/track/ok1",
		"https://open.spotify.com/track/ok2",
	}

	outcomes, err := d.DownloadTracks(context.Background(), urls, nil)

	require.NoError(t, err)
	require.Len(t, outcomes, len(urls))
	for i, o := range outcomes {
		assert.Equal(t, urls[i], o.URL)
		assert.Equal(t, StatusFailed, o.Status)
		assert.NotEmpty(t, o.Diagnostics)
	}
}

func TestNewArtifactsExcludesPreexisting(t *testing.T) {
	dir := t.TempDir()
	stub := writeStubTool(t, dir)

	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))
	oldFile := filepath.Join(outDir, "already-there.mp3")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0644))

	d, err := newWithCommands(Options{OutputDir: outDir}, []string{stub})
	require.NoError(t, err)

	newFile := filepath.Join(outDir, "fresh.mp3")
	require.NoError(t, os.WriteFile(newFile, []byte("new"), 0644))

	produced, err := d.NewArtifacts()

	assert.NoError(t, err)
	assert.Equal(t, []string{newFile}, produced)
}

func TestDownloadTracksEmptyInput(t *testing.T) {
	d, _ := newStubSupervisor(t, time.Second)

	outcomes, err := d.DownloadTracks(context.Background(), nil, nil)

	assert.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestDownloadTracksContextCancellation(t *testing.T) {
	d, _ := newStubSupervisor(t, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	urls := []string{
		"https://open.spotify.com/track/slow1",
		"https://open.spotify.com/track/ok1",
	}

	start := time.Now()
	outcomes, err := d.DownloadTracks(ctx, urls, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, outcomes)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDownloadTracksDeterministic(t *testing.T) {
	d, _ := newStubSupervisor(t, time.Second)

	urls := []string{
		"https://open.spotify.com/track/ok1",
		"https://open.spotify.com/track/bad1",
	}

	first, err := d.DownloadTracks(context.Background(), urls, nil)
	require.NoError(t, err)
	second, err := d.DownloadTracks(context.Background(), urls, nil)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Status, second[i].Status)
		assert.Equal(t, first[i].URL, second[i].URL)
	}
}

func TestPartition(t *testing.T) {
	outcomes := []Outcome{
		{URL: "a", Status: StatusSucceeded},
		{URL: "b", Status: StatusTimedOut},
		{URL: "c", Status: StatusFailed},
		{URL: "d", Status: StatusSucceeded},
	}

	succeeded, failed, timedOut := Partition(outcomes)

	assert.Equal(t, []string{"a", "d"}, succeeded)
	assert.Equal(t, []string{"c"}, failed)
	assert.Equal(t, []string{"b"}, timedOut)
}

func TestFilterLines(t *testing.T) {
	output := "Found track metadata\nplain progress line\nSaved \"Song\"\n\nERROR: something broke\n"

	assert.Equal(t,
		[]string{"Found track metadata", `Saved "Song"`},
		filterLines(output, successKeywords))
	assert.Equal(t,
		[]string{"ERROR: something broke"},
		filterLines(output, failureKeywords))
}
