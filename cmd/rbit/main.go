// Command rbit submits a magnet link or a .torrent file to a qBittorrent WebUI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pokerjest/rbit/internal/config"
	"github.com/pokerjest/rbit/internal/downloader"
	"github.com/pokerjest/rbit/internal/errs"
	"github.com/pokerjest/rbit/internal/report"
	"github.com/pokerjest/rbit/internal/torrent"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(config.AppName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <magnet-link|file.torrent>\n\nFlags:\n", config.AppName)
		fs.PrintDefaults()
	}
	config.BindFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		err = errs.Config(err, "invalid arguments")
		fmt.Fprintf(stderr, "error: %v\n", err)
		fs.Usage()
		return errs.ExitCode(err)
	}

	verbose, _ := fs.GetBool("verbose")
	setupLogging(stderr, verbose)
	rep := report.New(stdout, stderr, verbose)

	if fs.NArg() != 1 {
		err := errs.Config(nil, "expected exactly one magnet link or torrent file, got %d arguments", fs.NArg())
		rep.Failure(err)
		fs.Usage()
		return errs.ExitCode(err)
	}

	if err := submit(ctx, fs, rep); err != nil {
		rep.Failure(err)
		return errs.ExitCode(err)
	}
	return 0
}

func submit(ctx context.Context, fs *pflag.FlagSet, rep *report.Reporter) error {
	opts, err := config.Load(fs, config.DefaultSearchPaths())
	if err != nil {
		return err
	}

	input, err := torrent.Classify(fs.Arg(0))
	if err != nil {
		return err
	}

	var client downloader.Downloader = downloader.NewQBittorrentClient(opts, rep)

	session, err := client.Login(ctx)
	if err != nil {
		return err
	}

	result, err := client.AddTorrent(ctx, session, input)
	if err != nil {
		return err
	}

	if err := client.Logout(ctx, session); err != nil {
		log.WithError(err).Debug("Logout failed")
	}

	rep.Done(opts, result)
	return nil
}

func setupLogging(out io.Writer, verbose bool) {
	log.SetOutput(out)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}
