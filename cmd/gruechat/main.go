// Command gruechat runs the chat relay server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gruenet/gruechat/internal/config"
	"github.com/gruenet/gruechat/internal/db"
	"github.com/gruenet/gruechat/internal/relay"
	"github.com/gruenet/gruechat/internal/server"
	"github.com/gruenet/gruechat/internal/session"
	"github.com/gruenet/gruechat/internal/user"
	"github.com/gruenet/gruechat/internal/wire"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	port := flag.Int("port", 0, "listen port (overrides the config file)")
	flag.Parse()

	// A missing file at the default path just means defaults; an
	// explicitly named file must exist.
	cfg, err := config.Load(*configPath)
	if err != nil {
		if !flagWasSet("config") && errors.Is(err, fs.ErrNotExist) {
			cfg = config.Default()
		} else {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	level := slog.LevelInfo
	if cfg.Log.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(cfg.Paths.Data, 0755); err != nil {
		logger.Error("create data directory", "error", err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.Paths.Database, logger)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	logger.Info("database opened", "path", cfg.Paths.Database)

	users := user.NewRepo(database.DB)
	directory := relay.NewDirectory(logger)

	handleConnection := func(lc *server.LineConn) {
		sess := session.New(session.Config{
			Conn:      lc,
			Users:     users,
			Directory: directory,
			EasterKey: cfg.Chat.EasterKey,
			Logger:    logger,
		})
		for {
			line, err := lc.ReadLine()
			if err != nil {
				break
			}
			sess.HandleLine(line)
		}
		sess.ConnectionLost()
	}

	listener := server.NewListener(cfg.Server.Port, cfg.Server.MaxSessions, logger, handleConnection)

	errCh := make(chan error, 1)
	go func() {
		errCh <- listener.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		directory.SendToAll(wire.Make("bye", "msg", "the server is shutting down."))
		listener.Close()
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
