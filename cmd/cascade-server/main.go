// Command cascade-server runs a standalone match host: it loads a
// ServerConf and its named FieldConf presets from a YAML file, then accepts
// TCP connections and serves the lobby/match state machine of spec §4.4.
package main

import (
	"flag"
	"log"

	"cascadenet/config"
	"cascadenet/server"
)

func main() {
	confPath := flag.String("conf", "cascade.yaml", "path to the server configuration file")
	addr := flag.String("addr", ":7321", "address to listen on")
	flag.Parse()

	sc, presets, err := config.Load(*confPath)
	if err != nil {
		log.Fatalf("cascade-server: %v", err)
	}

	srv := server.NewServer(*addr, sc, presets)
	log.Printf("cascade-server: listening on %s", *addr)
	if err := srv.Serve(); err != nil {
		log.Fatalf("cascade-server: %v", err)
	}
}
