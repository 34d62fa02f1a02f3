package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"chat-relay/client"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) != 3 {
		return fmt.Errorf("usage: %s <host:port> <name>", os.Args[0])
	}
	addr, name := os.Args[1], os.Args[2]

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	c, err := client.Dial(addr, name, &terminal{self: name}, log)
	if err != nil {
		return fmt.Errorf("connection to %s failed: %w", addr, err)
	}
	defer c.Stop()

	color.Greenln("Connected to " + addr + " as " + name + ". Type a message and press Enter, Ctrl+D to quit.")

	// The read loop owns stdin; the handler owns stdout. Interleaving is
	// acceptable for a line based terminal.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := c.Send(text); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
	}
	return scanner.Err()
}

// terminal renders server pushes on stdout.
type terminal struct {
	self string
}

func (t *terminal) MessageReceived(text string) {
	if strings.HasPrefix(text, t.self+": ") {
		color.Grayln(text)
		return
	}
	if strings.HasSuffix(text, " connected") || strings.HasSuffix(text, " disconnected") {
		color.Yellowln("* " + text)
		return
	}
	fmt.Println(text)
}

func (t *terminal) RosterUpdated(names []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Participants"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, n := range names {
		table.Append([]string{n})
	}
	table.Render()
}

func (t *terminal) Disconnected(err error) {
	color.Redln("Connection lost: " + err.Error())
	os.Exit(1)
}
