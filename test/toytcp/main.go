/*
toytcp runs one ToyTCP engine with its segments carried as UDP datagram
payloads, which stands in for raw IP capture and injection.

Key Features:
1. Handshake Probe:
   - Sends a SYN to the destination port every interval until it is ACKed
   - After the ACK, answers every segment with a one-byte ACK segment
   - A RST kills the connection until the next interval restarts it

2. Buffer Reuse:
   - Inbound datagrams are copied into ring pool chunks
   - Replies are built in the inbound chunk whenever it has room

3. Configuration:
   - YAML configuration via config.yaml
   - Command-line flags override the destination port and addresses

Usage:
  ./toytcp [options]
  Options:
    -config string   YAML config file (default "config.yaml")
    -dport string    destination port, overrides the config file
    -listen string   local UDP address, overrides the config file
    -peer string     peer UDP address, overrides the config file

Counters are reported once per interval:
  ToyTCP: <good in> good in, <bad in> bad in, <out> out
*/

package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Clouded-Sabre/toytcp/config"
	"github.com/Clouded-Sabre/toytcp/lib"
)

var (
	configPath string
	dportStr   string
	listenStr  string
	peerStr    string
)

func init() {
	flag.StringVar(&configPath, "config", "config.yaml", "YAML config file")
	flag.StringVar(&dportStr, "dport", "", "destination port (0-65535), overrides the config file")
	flag.StringVar(&listenStr, "listen", "", "local UDP address(IP:Port)")
	flag.StringVar(&peerStr, "peer", "", "peer UDP address(IP:Port)")
	flag.Parse()
}

func main() {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		log.Fatalln("Configuration file error:", err)
	}
	tcpConfig, poolConfig := cfg.Engine()
	if dportStr != "" {
		dport, err := config.ParsePort(dportStr)
		if err != nil {
			log.Fatalln("Invalid -dport:", err)
		}
		tcpConfig.DestinationPort = uint16(dport)
	}
	listenAddr, peerAddr := cfg.Addresses()
	if listenStr != "" {
		listenAddr = listenStr
	}
	if peerStr != "" {
		peerAddr = peerStr
	}

	peer, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		log.Fatal(err)
	}
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	alloc, err := lib.NewRingAllocator(poolConfig)
	if err != nil {
		log.Fatalln("Error creating buffer pool:", err)
	}

	sink := lib.OutputFunc(func(p *lib.Buffer) {
		if _, err := conn.WriteTo(p.Data(), peer); err != nil {
			log.Println("Error sending segment:", err)
		}
		p.Kill()
	})

	engine, err := lib.NewToyTCP(tcpConfig, alloc, sink)
	if err != nil {
		log.Fatalln("Error creating engine:", err)
	}
	if err = engine.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer engine.Close()
	log.Printf("ToyTCP: local port %d -> %s port %d", engine.LocalPort(), peer, tcpConfig.DestinationPort)

	readErr := make(chan error, 1)
	go func() {
		buffer := make([]byte, poolConfig.ChunkSize-tcpConfig.Headroom)
		for {
			n, _, err := conn.ReadFrom(buffer)
			if err != nil {
				readErr <- err
				return
			}
			p, err := alloc.Alloc(tcpConfig.Headroom, n, 0)
			if err != nil {
				readErr <- err
				return
			}
			copy(p.Data(), buffer[:n])
			engine.Push(p)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Println("Received shutdown signal")
	case err := <-engine.Errors():
		log.Println("Engine stopped:", err)
	case err := <-readErr:
		log.Println("Receive loop stopped:", err)
	}
	c := engine.Counters()
	log.Printf("ToyTCP: %d good in, %d bad in, %d out", c.GoodIn, c.BadIn, c.Out)
}
