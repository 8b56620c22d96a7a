// Command qclusterctl is a small operator tool for probing whether the
// nodes listed in a cluster configuration file are reachable — the kind
// of scaffolding a human reaches for when a cluster hasn't elected a
// leader and they want to know which nodes are even up.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"qcluster/config"
	"qcluster/transport"
)

func main() {
	configPath := flag.String("config", "./cluster.yaml", "Path to the cluster configuration file")
	timeout := flag.Duration("timeout", 500*time.Millisecond, "Per-node ping timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qclusterctl: %v\n", err)
		os.Exit(1)
	}

	req := transport.NewRequester(nil)
	ctx := context.Background()

	fmt.Printf("%-20s %-20s %s\n", "IDENTIFIER", "ADDRESS", "STATUS")

	fmt.Printf("%-20s %-20s %s\n", cfg.Identifier, fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort), "(self)")

	reachable := 0
	for _, p := range cfg.Peers {
		addr := fmt.Sprintf("%s:%d", p.Host, p.Port)
		status := "unreachable"
		if req.Ping(ctx, p.Host, p.Port, *timeout) {
			status = "reachable"
			reachable++
		}
		fmt.Printf("%-20s %-20s %s\n", p.Identifier, addr, status)
	}

	total := len(cfg.Peers) + 1
	quorum := reachable+1 > total/2
	fmt.Printf("\n%d/%d peers reachable; quorum possible: %v\n", reachable, len(cfg.Peers), quorum)
}
