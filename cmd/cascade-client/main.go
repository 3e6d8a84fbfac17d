// Command cascade-client connects to a cascade-server instance, marks
// itself ready, and relays local input via the scheduler of spec §4.6. The
// actual input-device binding is an external collaborator (spec §1
// Non-goals); noKeysProvider stands in for it until one is wired up by an
// embedder.
package main

import (
	"flag"
	"log"
	"net"

	"cascadenet/client"
	"cascadenet/event"
	"cascadenet/field"
	"cascadenet/netplay"
)

// noKeysProvider supplies no input every tick; a real embedder replaces
// this with a binding to an actual input device.
type noKeysProvider struct{}

func (noKeysProvider) NextKeys(uint32) field.Keys { return 0 }

func main() {
	addr := flag.String("addr", "localhost:7321", "server address")
	nick := flag.String("nick", "player", "display name")
	flag.Parse()

	nc, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("cascade-client: dial: %v", err)
	}

	conn := netplay.NewConn(nc)
	c := client.New(conn, noKeysProvider{})
	c.SetNick(*nick)

	// Ready up as soon as the server reports a state that accepts it.
	events := c.Events().Subscribe(1)[0]
	go func() {
		for ev := range events {
			if ev.Kind == event.KindServerStateChanged {
				c.SetReady()
			}
		}
	}()

	if err := c.Run(); err != nil {
		log.Printf("cascade-client: %v", err)
	}
}
