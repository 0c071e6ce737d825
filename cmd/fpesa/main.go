package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

var opts struct {
	Verbose []bool `short:"v" description:"more verbose"`
	Quiet   []bool `short:"q" description:"more quiet"`
}

func main() {
	var parser = flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)

	_, _ = parser.AddCommand("restmapper", "Run the rest to rabbitmq mapper", `
Serve the REST endpoints, mapping each request onto the message bus,
until signaled to exit (via SIGTERM).
`, &cmdRestmapper{})

	_, _ = parser.AddCommand("liveupdate", "Run the websocket live updater", `
Serve a WebSocket endpoint which fans every posted message out to all
connected clients, until signaled to exit (via SIGTERM).
`, &cmdLiveupdate{})

	_, _ = parser.AddCommand("message_post", "Run the worker to insert messages into the database", `
Consume posted messages from the bus and persist each one, until signaled
to exit (via SIGTERM). On a failed insert the worker exits without
acknowledging, leaving the message on the durable queue for the restart.
`, &cmdMessagesPost{})

	_, _ = parser.AddCommand("message_get", "Run the worker to read messages from the database", `
Serve paginated message reads over the bus RPC plane, until signaled to
exit (via SIGTERM).
`, &cmdMessagesGet{})

	if _, err := parser.Parse(); err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
