// codequery-daemon serves symbol queries over a unix socket, backed by
// the sqlite symbol database an external indexer maintains.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"codequery/internal/daemon"
	"codequery/internal/logging"
)

var logger *slog.Logger

func main() {
	logger = logging.Default("codequery-daemon")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		cmdStart(os.Args[2:])
	case "stop":
		cmdStop(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		logger.Error("unknown command", "command", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("codequery-daemon - Symbol query daemon")
	fmt.Println()
	fmt.Println("Usage: codequery-daemon <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  start     Start the daemon")
	fmt.Println("  stop      Stop the daemon")
	fmt.Println("  status    Show daemon status")
	fmt.Println("  help      Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  CODEQUERY_LOG_LEVEL   Log level (debug, info, warn, error) [default: info]")
	fmt.Println("  CODEQUERY_LOG_FORMAT  Output format (text, json) [default: text]")
}

func cmdStart(args []string) {
	cfg := daemon.DefaultConfig()

	fs := flag.NewFlagSet("start", flag.ExitOnError)
	db := fs.String("db", cfg.DBPath, "Path to the symbol database")
	socket := fs.String("socket", cfg.SocketPath, "Unix socket path")
	project := fs.String("project", "", "Project root whose .gitignore excludes results")
	logTo := fs.String("log", cfg.LogPath, "Daemon log file (empty for stderr)")
	fs.Parse(args)

	cfg.DBPath = *db
	cfg.SocketPath = *socket
	cfg.ProjectRoot = *project
	cfg.LogPath = *logTo

	// Check if already running
	client := daemon.NewIPCClient(cfg.SocketPath)
	if client.IsRunning() {
		logger.Error("daemon is already running", "socket", cfg.SocketPath)
		os.Exit(1)
	}

	d, err := daemon.New(cfg)
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	logger.Info("starting daemon", "pid", os.Getpid(), "db", cfg.DBPath)
	if err := d.Run(); err != nil {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func cmdStop(args []string) {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	socket := fs.String("socket", daemon.DefaultSocketPath(), "Unix socket path")
	fs.Parse(args)

	client := daemon.NewIPCClient(*socket)
	if !client.IsRunning() {
		fmt.Println("daemon is not running")
		return
	}
	if err := client.Stop(); err != nil {
		logger.Error("failed to stop daemon", "error", err)
		os.Exit(1)
	}
	fmt.Println("daemon stopping")
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	socket := fs.String("socket", daemon.DefaultSocketPath(), "Unix socket path")
	fs.Parse(args)

	client := daemon.NewIPCClient(*socket)
	status, err := client.Status()
	if err != nil {
		fmt.Println("daemon is not running")
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
}
