package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cliconfig "github.com/antonkrylov/mossctl/internal/cli/config"
	"github.com/antonkrylov/mossctl/internal/history"
	"github.com/antonkrylov/mossctl/internal/moss"
	"github.com/antonkrylov/mossctl/internal/notify"
)

type submitFlags struct {
	language     string
	directory    bool
	experimental bool
	ignoreLimit  int
	resultLimit  int
	comment      string
	baseFiles    []string
	timeout      time.Duration
	noHistory    bool
	archive      bool
	historyDir   string
	natsURL      string
	natsUser     string
	natsPassword string
	natsPrefix   string
	natsStream   string
}

func newSubmitCmd(root *rootOptions) *cobra.Command {
	opts := &submitFlags{}
	cmd := &cobra.Command{
		Use:   "submit [flags] FILE|PATTERN...",
		Short: "Upload files for comparison and print the report URL",
		Long: "Upload base files (-b) and submission files to the MOSS server and print the report URL.\n" +
			"Arguments containing *, ?, [ or { are expanded as patterns; ** matches nested directories.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := resolveUserID(root.conn.UserID)
			if err != nil {
				return err
			}
			mc := moss.NewClient(userID, &moss.Config{
				Server: root.conn.Server,
				Port:   root.conn.Port,
				Logger: root.logger,
			})
			if err := opts.apply(cmd, root.conn.Context, mc.Options()); err != nil {
				return err
			}
			for _, pattern := range opts.baseFiles {
				if err := addPath(root, pattern, mc.AddBaseFile, mc.AddBaseByWildcard); err != nil {
					return err
				}
			}
			for _, pattern := range args {
				if err := addPath(root, pattern, mc.AddFile, mc.AddByWildcard); err != nil {
					return err
				}
			}
			if len(mc.Submissions()) == 0 {
				return fmt.Errorf("%w: no submission files matched", moss.ErrValidation)
			}

			var rec *history.Recorder
			if !opts.noHistory {
				dir := opts.historyDir
				if dir == "" {
					dir = cliconfig.DefaultHistoryDir()
				}
				rec, err = history.New(dir, root.logger).Begin(*recordFor(mc), opts.archive)
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				mc.SetObserver(rec)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if opts.timeout > 0 {
				var cancelTimeout context.CancelFunc
				ctx, cancelTimeout = context.WithTimeout(ctx, opts.timeout)
				defer cancelTimeout()
			}

			reportURL, sendErr := mc.Send(ctx)

			var finished *history.Record
			if rec != nil {
				var ferr error
				finished, ferr = rec.Finish(reportURL, sendErr)
				if ferr != nil {
					root.logger.Warn("history record incomplete", "submission", rec.ID(), "err", ferr)
				}
			}
			if opts.natsURL != "" {
				if finished == nil {
					finished = recordFor(mc)
					finished.ReportURL = reportURL
					if sendErr != nil {
						finished.Error = sendErr.Error()
						finished.ErrorKind = string(moss.Classify(sendErr))
					}
				}
				if err := opts.publish(context.Background(), root, finished); err != nil {
					root.logger.Warn("publish report event", "err", err)
				}
			}
			if sendErr != nil {
				return sendErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), reportURL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.language, "language", "l", moss.DefaultLanguage, "source language (see 'mossctl languages')")
	cmd.Flags().BoolVarP(&opts.directory, "directory", "d", false, "files in the same directory belong to the same submission")
	cmd.Flags().BoolVarP(&opts.experimental, "experimental", "x", false, "use the experimental server")
	cmd.Flags().IntVarP(&opts.ignoreLimit, "ignore-limit", "m", moss.DefaultIgnoreLimit, "ignore passages that appear in more than this many files")
	cmd.Flags().IntVarP(&opts.resultLimit, "result-limit", "n", moss.DefaultResultLimit, "number of matching files shown in the report")
	cmd.Flags().StringVarP(&opts.comment, "comment", "c", "", "comment shown on the report")
	cmd.Flags().StringArrayVarP(&opts.baseFiles, "base", "b", nil, "base file or pattern whose code is excluded from matches (repeatable)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort the submission after this long (0 waits indefinitely)")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record this submission locally")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "keep a compressed copy of the uploaded bytes with the history record")
	cmd.Flags().StringVar(&opts.historyDir, "history-dir", "", "history directory (default $HOME/.mossctl/history)")
	cmd.Flags().StringVar(&opts.natsURL, "nats-url", "", "publish the outcome to this NATS JetStream server")
	cmd.Flags().StringVar(&opts.natsUser, "nats-user", "", "NATS user")
	cmd.Flags().StringVar(&opts.natsPassword, "nats-password", "", "NATS password")
	cmd.Flags().StringVar(&opts.natsPrefix, "nats-prefix", "", "subject prefix for report events (default moss)")
	cmd.Flags().StringVar(&opts.natsStream, "nats-stream", "", "JetStream stream name (default moss_reports)")
	return cmd
}

// apply installs context defaults, then any flags set explicitly on the command line.
func (o *submitFlags) apply(cmd *cobra.Command, ctx *cliconfig.Context, opts *moss.Options) error {
	if ctx != nil {
		if ctx.Language != "" {
			if err := opts.SetLanguage(ctx.Language); err != nil {
				return fmt.Errorf("config context: %w", err)
			}
		}
		if ctx.IgnoreLimit != 0 {
			if err := opts.SetIgnoreLimit(ctx.IgnoreLimit); err != nil {
				return fmt.Errorf("config context: %w", err)
			}
		}
		if ctx.ResultLimit != 0 {
			if err := opts.SetResultLimit(ctx.ResultLimit); err != nil {
				return fmt.Errorf("config context: %w", err)
			}
		}
	}
	flags := cmd.Flags()
	if flags.Changed("language") {
		if err := opts.SetLanguage(strings.TrimSpace(o.language)); err != nil {
			return err
		}
	}
	if flags.Changed("ignore-limit") {
		if err := opts.SetIgnoreLimit(o.ignoreLimit); err != nil {
			return err
		}
	}
	if flags.Changed("result-limit") {
		if err := opts.SetResultLimit(o.resultLimit); err != nil {
			return err
		}
	}
	if err := opts.SetDirectoryMode(boolToFlag(o.directory)); err != nil {
		return err
	}
	if err := opts.SetExperimentalServer(boolToFlag(o.experimental)); err != nil {
		return err
	}
	opts.SetComment(o.comment)
	return nil
}

func (o *submitFlags) publish(ctx context.Context, root *rootOptions, rec *history.Record) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pub, err := notify.Connect(ctx, notify.Options{
		URL:           o.natsURL,
		User:          o.natsUser,
		Password:      o.natsPassword,
		SubjectPrefix: o.natsPrefix,
		Stream:        o.natsStream,
		Logger:        root.logger,
	})
	if err != nil {
		return err
	}
	defer pub.Close()
	return pub.Publish(ctx, rec)
}

func addPath(root *rootOptions, arg string, addFile func(string) error, addPattern func(string) (int, error)) error {
	if !isPattern(arg) {
		return addFile(arg)
	}
	n, err := addPattern(arg)
	if err != nil {
		return err
	}
	if n == 0 {
		root.logger.Warn("pattern matched no files", "pattern", arg)
	}
	return nil
}

func isPattern(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

func recordFor(mc *moss.Client) *history.Record {
	o := mc.Options()
	return &history.Record{
		Server:             mc.Addr(),
		Language:           o.Language(),
		Comment:            o.Comment(),
		DirectoryMode:      o.DirectoryMode(),
		ExperimentalServer: o.ExperimentalServer(),
		IgnoreLimit:        o.IgnoreLimit(),
		ResultLimit:        o.ResultLimit(),
		BaseFiles:          mc.BaseFiles(),
		Files:              mc.Submissions(),
	}
}

func boolToFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
