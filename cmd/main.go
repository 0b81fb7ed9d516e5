package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"github.com/jaki95/spotify-playlist-downloader/config"
	"github.com/jaki95/spotify-playlist-downloader/internal/credentials"
	"github.com/jaki95/spotify-playlist-downloader/internal/downloader"
	"github.com/jaki95/spotify-playlist-downloader/internal/export"
	"github.com/jaki95/spotify-playlist-downloader/internal/spotify"
	"github.com/jaki95/spotify-playlist-downloader/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	showInfo := flag.Bool("info", false, "Show playlist information before extracting URLs")
	format := flag.String("format", "", "Output format: urls, json or csv")
	download := flag.Bool("download", false, "Download MP3 files using spotDL")
	outputDir := flag.String("output-dir", "", "Directory to save downloaded MP3 files")
	overwrite := flag.String("overwrite", "", "How spotDL handles existing files: skip, force or prompt")
	quality := flag.String("quality", "", "Audio quality for downloads: best or worst")
	urlsOnly := flag.Bool("urls-only", false, "Only extract URLs, don't download")
	timeout := flag.Int("timeout", 0, "Timeout in seconds for each individual track download")
	strict := flag.Bool("strict", false, "Fail on mid-pagination errors instead of returning a partial track list")
	archiveBucket := flag.String("archive-bucket", "", "GCS bucket to archive downloaded files to (optional)")
	archiveDir := flag.String("archive-dir", "", "Local directory to archive downloaded files to (optional)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <playlist URL, URI or ID>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}
	playlistRef := flag.Arg(0)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	// Flags override the config file.
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *outputDir != "" {
		cfg.Download.OutputDir = *outputDir
	}
	if *overwrite != "" {
		cfg.Download.Overwrite = *overwrite
	}
	if *quality != "" {
		cfg.Download.Quality = *quality
	}
	if *timeout != 0 {
		cfg.Download.TimeoutSeconds = *timeout
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	// All diagnostics go to stderr; stdout carries only the track listing.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := credentials.Load(credentials.FileLookup(cfg.EnvFile), credentials.EnvLookup())
	if err != nil {
		slog.Error("Credential setup failed", "error", err)
		return 1
	}

	client := spotify.NewClient(creds.ClientID, creds.ClientSecret)
	if *strict {
		client.SetPaginationPolicy(spotify.FailFast)
	}

	if err := client.Authenticate(ctx); err != nil {
		slog.Error("Authentication failed", "error", err)
		return 1
	}

	playlistID, err := spotify.ParsePlaylistID(playlistRef)
	if err != nil {
		slog.Error("Could not extract playlist ID", "ref", playlistRef)
		return 1
	}
	slog.Info("Resolved playlist", "id", playlistID)

	if *showInfo {
		printPlaylistInfo(ctx, client, playlistID)
	}

	tracks, err := client.PlaylistTracks(ctx, playlistID)
	if err != nil {
		slog.Error("Failed to fetch playlist tracks", "error", err)
		return 1
	}
	if interrupted(ctx) {
		return 1
	}
	if len(tracks) == 0 {
		slog.Error("No tracks found in playlist")
		return 1
	}

	urls := spotify.TrackURLs(tracks)

	if !*download || *urlsOnly {
		if err := writeListing(cfg.Output.Format, playlistID, tracks, urls); err != nil {
			slog.Error("Failed to write track listing", "error", err)
			return 1
		}
	}

	if *download && !*urlsOnly {
		archiveOpts := storage.Options{
			Bucket: *archiveBucket,
			Prefix: playlistID,
			Dir:    *archiveDir,
		}
		if code := runDownloads(ctx, cfg, urls, archiveOpts); code != 0 {
			return code
		}
	} else {
		slog.Info("Extracted track URLs", "count", len(urls))
	}

	if interrupted(ctx) {
		return 1
	}
	return 0
}

func writeListing(format, playlistID string, tracks []spotify.Track, urls []string) error {
	switch format {
	case "json":
		return export.WriteJSON(os.Stdout, playlistID, tracks)
	case "csv":
		return export.WriteCSV(os.Stdout, tracks)
	default:
		return export.WriteURLs(os.Stdout, urls)
	}
}

func printPlaylistInfo(ctx context.Context, client *spotify.Client, playlistID string) {
	info, err := client.PlaylistInfo(ctx, playlistID)
	if err != nil {
		slog.Warn("Failed to fetch playlist info", "error", err)
		return
	}

	fmt.Fprintf(os.Stderr, "Playlist: %s\n", info.Name)
	fmt.Fprintf(os.Stderr, "Owner: %s\n", info.Owner.DisplayName)
	fmt.Fprintf(os.Stderr, "Total tracks: %d\n", info.Tracks.Total)
	if info.Description != "" {
		fmt.Fprintf(os.Stderr, "Description: %s\n", info.Description)
	}
	fmt.Fprintln(os.Stderr)
}

func runDownloads(ctx context.Context, cfg *config.Config, urls []string, archiveOpts storage.Options) int {
	supervisor, err := downloader.New(downloader.Options{
		OutputDir: cfg.Download.OutputDir,
		Timeout:   time.Duration(cfg.Download.TimeoutSeconds) * time.Second,
		Overwrite: cfg.Download.Overwrite,
		Quality:   cfg.Download.Quality,
	})
	if err != nil {
		slog.Error("Download setup failed", "error", err)
		return 1
	}

	bar := progressbar.NewOptions(
		len(urls),
		progressbar.OptionSetWriter(ansi.NewAnsiStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Downloading tracks...[reset]"),
	)

	outcomes, runErr := supervisor.DownloadTracks(ctx, urls, func(completed, total int) {
		_ = bar.Set(completed)
	})
	fmt.Fprintln(os.Stderr)

	succeeded, failed, timedOut := downloader.Partition(outcomes)
	slog.Info("Download summary",
		"succeeded", len(succeeded),
		"failed", len(failed),
		"timed_out", len(timedOut),
		"output_dir", supervisor.OutputDir(),
	)

	if runErr != nil {
		if interrupted(ctx) {
			return 1
		}
		slog.Error("Download run aborted", "error", runErr)
		return 1
	}

	if archiveOpts.Bucket != "" || archiveOpts.Dir != "" {
		if err := archiveArtifacts(ctx, archiveOpts, supervisor); err != nil {
			slog.Error("Archiving failed", "error", err)
			return 1
		}
	}

	return 0
}

// archiveArtifacts stores the MP3s this run produced; files that were in
// the output directory before the run are left out.
func archiveArtifacts(ctx context.Context, opts storage.Options, supervisor *downloader.SpotDL) error {
	archive, err := storage.NewArchiver(ctx, opts)
	if err != nil {
		return err
	}
	defer archive.Close()

	files, err := supervisor.NewArtifacts()
	if err != nil {
		return err
	}

	destinations, err := storage.ArchiveDownloads(ctx, archive, files)
	if err != nil {
		return err
	}

	slog.Info("Archived artifacts", "count", len(destinations))
	return nil
}

// interrupted reports whether the run was cancelled by the user and, if
// so, prints the one-line notice.
func interrupted(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	fmt.Fprintln(os.Stderr, "Operation cancelled by user")
	return true
}
