// Command qclusterd runs a single cluster node: it loads a YAML cluster
// configuration, starts the node, and periodically reports whether it
// believes itself to be the leader. It's a demo host service — real
// hosts link the qcluster SDK packages directly instead of shelling out
// to this binary.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qcluster/cluster"
	"qcluster/config"
	"qcluster/logging"
)

func main() {
	configPath := flag.String("config", "./cluster.yaml", "Path to the cluster configuration file")
	logLevel := flag.String("log-level", "info", "Logging verbosity: debug, info, warn, error")
	reportInterval := flag.Duration("report-interval", 2*time.Second, "How often to print leadership status")
	flag.Parse()

	if err := logging.SetLevel(*logLevel); err != nil {
		log.Fatalf("invalid -log-level: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	node := cluster.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := node.Start(ctx); err != nil {
		log.Fatalf("failed to start cluster node: %v", err)
	}
	defer node.Shutdown()

	log.Printf("qclusterd: node %q listening on %s:%d (%d peers)", cfg.Identifier, cfg.ListenHost, cfg.ListenPort, len(cfg.Peers))

	ticker := time.NewTicker(*reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("qclusterd: shutting down")
			return
		case <-ticker.C:
			if node.IsLeader() {
				log.Printf("qclusterd: I am the leader (term %d)", node.Term())
				continue
			}
			if leader, ok := node.LeaderInfo(); ok {
				log.Printf("qclusterd: leader is %s (term %d)", leader, node.Term())
			} else {
				log.Printf("qclusterd: no known leader (term %d)", node.Term())
			}
		}
	}
}
