// cmd/circ/main.go
// circ is the command-line client for circd: one request per invocation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/erilali/circd/internal/config"
	"github.com/erilali/circd/internal/rpc"
)

const actionFlags = "l, j, m, p, q, s, u, w"

type invocation struct {
	request    rpc.Request
	highlights []string
	socketPath string
	timeout    time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "circ: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	inv, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	client := rpc.NewClient(inv.socketPath)
	client.Timeout = inv.timeout
	resp, err := client.Do(context.Background(), inv.request)
	if err != nil {
		if errors.Is(err, rpc.ErrDaemonNotRunning) {
			return fmt.Errorf("socket %s doesn't exist, is circd running?", inv.socketPath)
		}
		return err
	}
	if err := rpc.Check(inv.request, resp); err != nil {
		return err
	}
	return printResponse(stdout, resp, inv.highlights)
}

func parseArgs(args []string) (invocation, error) {
	var (
		list, join, msg, part, quit, status, unread, who bool
		channel, highlight, socket                       string
		timeout                                          time.Duration
	)

	flagSet := pflag.NewFlagSet("circ", pflag.ContinueOnError)
	flagSet.BoolVarP(&list, "list-channels", "l", false, "list the channels circd is using")
	flagSet.StringVarP(&channel, "channel", "c", "", "channel to use for the operation, e.g. #go")
	flagSet.BoolVarP(&join, "join", "j", false, "join a channel")
	flagSet.BoolVarP(&msg, "msg", "m", false, "send the remaining arguments as a message to a channel")
	flagSet.BoolVarP(&part, "part", "p", false, "part from a channel")
	flagSet.BoolVarP(&quit, "quit", "q", false, "quit irc and stop circd")
	flagSet.BoolVarP(&status, "status", "s", false, "show the unread message count of every channel")
	flagSet.BoolVarP(&unread, "unread", "u", false, "print and clear the unread messages of a channel")
	flagSet.BoolVarP(&who, "who", "w", false, "list the users active on a channel")
	flagSet.StringVarP(&highlight, "highlight", "h", "", "comma separated words that highlight a line")
	flagSet.StringVar(&socket, "socket", "", "path of the circd socket")
	flagSet.DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits forever)")

	if err := flagSet.Parse(args); err != nil {
		return invocation{}, err
	}

	selected := 0
	for _, set := range []bool{list, join, msg, part, quit, status, unread, who} {
		if set {
			selected++
		}
	}
	if selected != 1 {
		return invocation{}, fmt.Errorf("must specify one of [%s]", actionFlags)
	}

	needChannel := func(what string) error {
		if channel == "" {
			return fmt.Errorf("%s requires -c <channel>", what)
		}
		return nil
	}

	inv := invocation{
		highlights: splitHighlights(highlight),
		socketPath: socket,
		timeout:    timeout,
	}
	if inv.socketPath == "" {
		inv.socketPath = config.SocketPath(os.Getenv("HOME"))
	}

	switch {
	case list:
		inv.request = rpc.ListChannels{}
	case status:
		inv.request = rpc.GetStatus{}
	case quit:
		inv.request = rpc.Quit{}
	case join:
		if err := needChannel("-j"); err != nil {
			return invocation{}, err
		}
		inv.request = rpc.Join{Channel: channel}
	case part:
		if err := needChannel("-p"); err != nil {
			return invocation{}, err
		}
		inv.request = rpc.Part{Channel: channel}
	case unread:
		if err := needChannel("-u"); err != nil {
			return invocation{}, err
		}
		inv.request = rpc.GetMessages{Channel: channel}
	case who:
		if err := needChannel("-w"); err != nil {
			return invocation{}, err
		}
		inv.request = rpc.GetUsers{Channel: channel}
	case msg:
		if err := needChannel("-m"); err != nil {
			return invocation{}, err
		}
		text := strings.Join(flagSet.Args(), " ")
		if text == "" {
			return invocation{}, errors.New("-m requires message text")
		}
		inv.request = rpc.SendMessage{Channel: channel, Text: text}
	}
	return inv, nil
}

func splitHighlights(s string) []string {
	if s == "" {
		return nil
	}
	var words []string
	for _, w := range strings.Split(s, ",") {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
