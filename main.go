// main.go
// circd entry point: loads config, connects to the chat server, and serves
// clients on the Unix socket until told to quit.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/erilali/circd/internal/api"
	"github.com/erilali/circd/internal/archive"
	"github.com/erilali/circd/internal/config"
	"github.com/erilali/circd/internal/hub"
	"github.com/erilali/circd/internal/irc"
	"github.com/erilali/circd/internal/ircmsg"
	"github.com/erilali/circd/internal/logger"
)

const (
	defaultConfigPath = "circd.json"
	shutdownTimeout   = 5 * time.Second
)

// Global logger for the daemon's own messages
var serverLogger *logger.Logger

func main() {
	configPath, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "circd: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "circd: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(cfg.Log)
	serverLogger = logger.NewLogger("circd")
	serverLogger.WithFields(map[string]interface{}{
		"level":       cfg.Log.Level,
		"log_to_file": cfg.Log.LogToFile,
		"log_to_json": cfg.Log.LogToJSON,
		"file_path":   cfg.Log.FilePath,
	}).Info("Logger configuration details")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		serverLogger.Fatalf("circd failed: %v", err)
	}
	serverLogger.Info("circd stopped")
}

// parseFlags returns the config path from --config or the first argument.
func parseFlags(args []string) (string, error) {
	var configPath string
	flagSet := pflag.NewFlagSet("circd", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path of the JSON config file (default "+defaultConfigPath+")")
	if err := flagSet.Parse(args); err != nil {
		return "", err
	}

	rest := flagSet.Args()
	switch {
	case len(rest) > 1:
		return "", fmt.Errorf("unexpected argument: %s", rest[1])
	case len(rest) == 1 && configPath != "":
		return "", errors.New("config path given twice")
	case len(rest) == 1:
		return rest[0], nil
	case configPath != "":
		return configPath, nil
	}
	return defaultConfigPath, nil
}

func run(parent context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	conn, err := irc.Dial(ctx, cfg.ConnectionConfig, logger.NewLogger("irc"))
	if err != nil {
		return err
	}
	conn.Register(cfg.ConnectionConfig)

	h := hub.NewHub(conn, logger.NewLogger("hub"))

	acceptor := api.NewAcceptor(cfg.ResolveSocketPath(os.Getenv("HOME")), h, logger.NewLogger("api"))
	acceptor.SetTimeout(time.Duration(cfg.RPCTimeout))
	if err := acceptor.Listen(); err != nil {
		conn.Close()
		return err
	}
	defer acceptor.Close()

	var arch *archive.Archive
	if cfg.NatsURL != "" {
		arch, err = archive.Connect(cfg.NatsURL, logger.NewLogger("archive"))
		if err != nil {
			serverLogger.Errorf("Error connecting to NATS: %v", err)
			serverLogger.Warn("Running without NATS connection. Message archiving will be disabled.")
			arch = nil
		} else {
			h.SetArchiver(arch)
			defer arch.Close()
		}
	}

	if cfg.MonitorAddr != "" {
		feed := api.NewFeed(logger.NewLogger("monitor"))
		go feed.Run(ctx)
		h.SetFeed(feed)

		monitor := api.NewMonitor(h, conn, feed, logger.NewLogger("monitor"))
		if arch != nil {
			monitor.SetArchive(arch)
		}
		go func() {
			if err := monitor.ListenAndServe(ctx, cfg.MonitorAddr); err != nil {
				serverLogger.Errorf("Monitor stopped: %v", err)
			}
		}()
	}

	go conn.WritePump()
	go conn.ReadPump(h.Events(), h.Done())
	go func() {
		select {
		case <-conn.Closed():
			serverLogger.Warn("Chat server connection lost; buffered messages remain readable")
		case <-h.Done():
		}
	}()

	served := make(chan error, 1)
	go func() { served <- acceptor.Serve(ctx) }()

	hubErr := h.Run(ctx)
	if hubErr != nil {
		// Cancelled by a signal rather than a Quit request.
		conn.Enqueue(ircmsg.Quit())
	}
	cancel()
	conn.Shutdown(shutdownTimeout)
	acceptor.Close()
	if err := <-served; err != nil {
		return err
	}
	if errors.Is(hubErr, context.Canceled) {
		return nil
	}
	return hubErr
}
