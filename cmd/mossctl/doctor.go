package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cliconfig "github.com/antonkrylov/mossctl/internal/cli/config"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var dialTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Print local diagnostic information for troubleshooting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			conn := root.conn
			fmt.Fprintf(out, "config_path=%s\n", root.configPath)
			if conn.Config == nil {
				fmt.Fprintln(out, "config_present=false")
			} else {
				fmt.Fprintln(out, "config_present=true")
				fmt.Fprintf(out, "current_context=%s\n", strings.TrimSpace(conn.Config.CurrentContext))
				for _, name := range conn.Config.Names() {
					c := conn.Config.Contexts[name]
					if c == nil {
						continue
					}
					fmt.Fprintf(out, "context=%s server=%s port=%d user_set=%t language=%s\n",
						name,
						strings.TrimSpace(c.Server),
						c.Port,
						c.UserID != "",
						c.Language,
					)
				}
			}
			fmt.Fprintf(out, "history_dir=%s\n", cliconfig.DefaultHistoryDir())
			addr := net.JoinHostPort(conn.Server, strconv.Itoa(conn.Port))
			fmt.Fprintf(out, "server=%s\n", addr)
			fmt.Fprintf(out, "user_set=%t\n", conn.UserID != "")

			// A bare TCP connect; no protocol command is sent.
			start := time.Now()
			c, err := net.DialTimeout("tcp", addr, dialTimeout)
			if err != nil {
				fmt.Fprintf(out, "server_reachable=false error=%q\n", err.Error())
				return nil
			}
			_ = c.Close()
			fmt.Fprintf(out, "server_reachable=true connect_ms=%d\n", time.Since(start).Milliseconds())
			return nil
		},
	}
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "timeout for the reachability check")
	return cmd
}
