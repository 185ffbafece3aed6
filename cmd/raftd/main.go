// Command raftd runs a single node of the replicated key-value store.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peachraft/raftkv/internal/raft"
	"github.com/peachraft/raftkv/internal/transport"
)

func main() {
	var addr string
	var peersFlag string

	cmd := &cobra.Command{
		Use:   "raftd",
		Short: "raftd runs one node of a replicated key-value store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, parsePeers(peersFlag))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "this node's host:port (used for both the peer and client channels)")
	cmd.Flags().StringVar(&peersFlag, "peers", "", "comma-separated host:port list of the other cluster members")
	cmd.MarkFlagRequired("addr")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parsePeers(flag string) []string {
	var peers []string
	for _, p := range strings.Split(flag, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			peers = append(peers, p)
		}
	}
	return peers
}

func run(addr string, peers []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.With(zap.String("node", addr))

	node := raft.NewNode(addr, peers, logger, raft.NewRealClock())

	peerChannel, err := transport.NewPeerChannel(addr, node, logger)
	if err != nil {
		return fmt.Errorf("starting peer channel: %w", err)
	}
	defer peerChannel.Close()
	node.AttachTransport(peerChannel)

	clientChannel, err := transport.NewClientChannel(addr, node, logger)
	if err != nil {
		return fmt.Errorf("starting client channel: %w", err)
	}
	defer clientChannel.Close()

	go node.Run()
	go peerChannel.Serve()
	go clientChannel.Serve()

	logger.Info("node started", zap.Strings("peers", peers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	node.Stop()
	return nil
}
