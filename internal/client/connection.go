package client

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	cliconfig "github.com/antonkrylov/mossctl/internal/cli/config"
	"github.com/antonkrylov/mossctl/internal/moss"
)

type Connection struct {
	Server      string
	Port        int
	UserID      string
	ConfigPath  string
	ContextName string
	Config      *cliconfig.Config
	Context     *cliconfig.Context
}

// ResolveConnection applies, in order of precedence:
// 1) flags (server, port, userID, contextName)
// 2) config file context values
// 3) environment (MOSS_SERVER, MOSS_PORT, MOSS_USER_ID)
// 4) defaults (moss.stanford.edu:7690)
// A missing user id is not an error here; the caller may prompt for it.
func ResolveConnection(configPath, contextName, server string, port int, userID string) (*Connection, error) {
	conn := &Connection{
		ConfigPath:  configPath,
		ContextName: contextName,
		Server:      server,
		Port:        port,
		UserID:      userID,
	}

	if conn.ConfigPath != "" {
		cfg, err := cliconfig.Load(conn.ConfigPath)
		if err != nil {
			return nil, err
		}
		conn.Config = cfg
	}

	if conn.Config != nil {
		ctx, name, err := conn.Config.Resolve(conn.ContextName)
		if err != nil {
			return nil, err
		}
		conn.Context = ctx
		conn.ContextName = name
	}

	if ctx := conn.Context; ctx != nil {
		if conn.Server == "" {
			conn.Server = ctx.Server
		}
		if conn.Port == 0 {
			conn.Port = ctx.Port
		}
		if conn.UserID == "" {
			conn.UserID = ctx.UserID
		}
	}

	if conn.Server == "" {
		conn.Server = os.Getenv("MOSS_SERVER")
	}
	if conn.Port == 0 {
		if v := strings.TrimSpace(os.Getenv("MOSS_PORT")); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("MOSS_PORT: %w", err)
			}
			conn.Port = p
		}
	}
	if conn.UserID == "" {
		conn.UserID = os.Getenv("MOSS_USER_ID")
	}

	if conn.Server == "" {
		conn.Server = moss.DefaultServer
	}
	if conn.Port == 0 {
		conn.Port = moss.DefaultPort
	}
	if conn.Port < 0 || conn.Port > 65535 {
		return nil, fmt.Errorf("port %d out of range", conn.Port)
	}
	return conn, nil
}
