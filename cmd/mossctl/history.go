package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	cliconfig "github.com/antonkrylov/mossctl/internal/cli/config"
	"github.com/antonkrylov/mossctl/internal/history"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect locally recorded submissions",
	}
	cmd.PersistentFlags().StringVar(&dir, "history-dir", "", "history directory (default $HOME/.mossctl/history)")
	store := func() *history.Store {
		d := dir
		if d == "" {
			d = cliconfig.DefaultHistoryDir()
		}
		return history.New(d, root.logger)
	}
	cmd.AddCommand(newHistoryListCmd(store))
	cmd.AddCommand(newHistoryShowCmd(store))
	cmd.AddCommand(newHistoryRmCmd(store))
	return cmd
}

func newHistoryListCmd(store func() *history.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := store().List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tLANG\tFILES\tSTATE\tRESULT")
			for _, r := range recs {
				result := r.ReportURL
				if result == "" {
					result = r.ErrorKind
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID,
					r.CreatedAt.Local().Format(time.DateTime),
					r.Language,
					len(r.Files),
					r.State,
					result,
				)
			}
			return tw.Flush()
		},
	}
}

func newHistoryShowCmd(store func() *history.Store) *cobra.Command {
	var asJSON, files bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store()
			rec, err := st.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				s, err := rec.Struct()
				if err != nil {
					return err
				}
				b, err := protojson.MarshalOptions{Multiline: true}.Marshal(s)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
			} else {
				printRecord(out, rec)
			}
			if !files {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSIZE\tPATH")
			if err := st.Replay(rec.ID, func(f history.ArchivedFile) error {
				_, err := fmt.Fprintf(tw, "%d\t%d\t%s\n", f.ID, len(f.Data), f.Path)
				return err
			}); err != nil {
				return err
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	cmd.Flags().BoolVar(&files, "files", false, "list the archived uploads (requires a submission made with --archive)")
	return cmd
}

func newHistoryRmCmd(store func() *history.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete submissions from history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store()
			for _, id := range args {
				if err := st.Delete(id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printRecord(w io.Writer, r *history.Record) {
	fmt.Fprintf(w, "id:          %s\n", r.ID)
	fmt.Fprintf(w, "created:     %s\n", r.CreatedAt.Local().Format(time.RFC3339))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "finished:    %s\n", r.FinishedAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "server:      %s\n", r.Server)
	fmt.Fprintf(w, "language:    %s\n", r.Language)
	fmt.Fprintf(w, "options:     directory=%d experimental=%d maxmatches=%d show=%d\n",
		r.DirectoryMode, r.ExperimentalServer, r.IgnoreLimit, r.ResultLimit)
	if r.Comment != "" {
		fmt.Fprintf(w, "comment:     %s\n", r.Comment)
	}
	fmt.Fprintf(w, "state:       %s\n", r.State)
	if r.ReportURL != "" {
		fmt.Fprintf(w, "report:      %s\n", r.ReportURL)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "error:       [%s] %s\n", r.ErrorKind, r.Error)
	}
	if len(r.BaseFiles) > 0 {
		fmt.Fprintf(w, "base files:  %s\n", strings.Join(r.BaseFiles, " "))
	}
	fmt.Fprintf(w, "files:       %s\n", strings.Join(r.Files, " "))
}
