// Command rekeyd is the server entry point: read configuration, rebuild
// the keyspace from persisted state, listen for connections, and shut down
// gracefully on SIGINT/SIGTERM. The startup sequence (banner, config,
// persistence restore, listen, signal-driven shutdown) follows the
// teacher's own main.go.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/echojfree/mini-redis/internal/config"
	"github.com/echojfree/mini-redis/internal/logging"
	"github.com/echojfree/mini-redis/internal/server"
)

const banner = `
  _ __ ___| | _____ _   _  __| |
 | '__/ _ \ |/ / _ \ | | |/ _' |
 | | |  __/   <  __/ |_| | (_| |
 |_|  \___|_|\_\___|\__, |\__,_|
                     |___/
`

func main() {
	fmt.Println(banner)

	configPath := "./redis.conf"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	log := logging.New()
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Errorf("failed to read config %s: %v", configPath, err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		log.Errorf("failed to create data directory %s: %v", cfg.Dir, err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Errorf("failed to initialize server: %v", err)
		os.Exit(1)
	}

	log.Infof("restoring persisted state from %s", cfg.Dir)
	if err := srv.LoadPersisted(); err != nil {
		log.Errorf("failed to restore persisted state: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infof("shutdown signal received, draining connections")
		if err := srv.Shutdown(); err != nil {
			log.Errorf("error during shutdown: %v", err)
		}
		os.Exit(0)
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	if err := srv.ListenAndServe(addr); err != nil {
		log.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
