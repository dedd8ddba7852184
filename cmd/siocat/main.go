package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/loop"
	"github.com/yaoapp/siobridge/socketio"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		color.Red("Error: %s", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		query    []string
		attempts int
		profile  string
		events   []string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "siocat [url]",
		Short: "Connect to a socket.io server, print the events and emit the stdin lines",
		Long: `Connect to a socket.io server, print the events and emit the stdin lines.

Each stdin line is an event name followed by JSON arguments:
  hello "world" 42 true

Examples:
  siocat ws://127.0.0.1:3000 --on news --on chat
  siocat https://example.com -q token=abc --attempts 0
  siocat --profile chat.sio.yml --on message`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(log.TraceLevel)
			}

			p, err := profileOf(args, profile, query)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("attempts") {
				p.Attempts = &attempts
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, p, events, os.Stdin)
		},
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", []string{}, "Query parameter key=value (repeatable)")
	cmd.Flags().IntVar(&attempts, "attempts", socketio.DefaultAttempts, "Reconnect attempts")
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Connection profile file (json, yao, yml, yaml)")
	cmd.Flags().StringArrayVar(&events, "on", []string{}, "Event to print (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Trace logs")
	return cmd
}

func profileOf(args []string, file string, query []string) (*socketio.Profile, error) {
	p := &socketio.Profile{Query: map[string]string{}}
	if file != "" {
		loaded, err := socketio.Load("file://"+file, "siocat")
		if err != nil {
			return nil, err
		}
		copied := *loaded
		copied.Query = map[string]string{}
		for key, value := range loaded.Query {
			copied.Query[key] = value
		}
		p = &copied
	}

	if len(args) > 0 {
		p.URL = args[0]
	}

	if p.URL == "" {
		return nil, errors.New("the url is required")
	}

	for _, kv := range query {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("invalid query %q, should be key=value", kv)
		}
		p.Query[key] = value
	}
	return p, nil
}

// run connect and print the events until the connection ends or ctx is done.
// A failed connection or an error event ends it with an error.
func run(ctx context.Context, p *socketio.Profile, events []string, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l := loop.New()
	hub := socketio.New(l)
	defer func() {
		hub.Close()
		l.Drain()
	}()

	client, err := hub.ConnectProfile(p)
	if err != nil {
		return err
	}

	// set on the loop, read after Run returns
	var failure error
	fail := func(name string) func(args ...socketio.Value) {
		return func(args ...socketio.Value) {
			failure = errors.Errorf("%s %s", name, join(args))
			cancel()
		}
	}

	target := socketio.NewObject(socketio.NewTarget())
	listeners := map[string]socketio.Value{
		socketio.EventConnect: printer(socketio.EventConnect, func(args ...socketio.Value) {
			color.Green("connected %s", client.URL())
		}),
		socketio.EventConnectError: printer(socketio.EventConnectError, fail(socketio.EventConnectError)),
		socketio.EventDisconnect: printer(socketio.EventDisconnect, func(args ...socketio.Value) {
			cancel()
		}),

		// the connection is detached after an error, nothing else is delivered
		socketio.EventError: printer(socketio.EventError, fail(socketio.EventError)),
	}

	for _, name := range events {
		if _, has := listeners[name]; !has {
			listeners[name] = printer(name, nil)
		}
	}

	for name, callback := range listeners {
		if err := client.On(name, callback, target); err != nil {
			return err
		}
	}

	go read(ctx, l, client, in)

	err = l.Run(ctx)
	if failure != nil {
		return failure
	}

	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// read emit the stdin lines on the loop
func read(ctx context.Context, l *loop.Loop, client *socketio.Client, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		name, args, err := parseLine(scanner.Text())
		if err != nil {
			color.Red("%s", err.Error())
			continue
		}

		if name == "" {
			continue
		}

		args = append(args, printer("ack:"+name, nil))
		l.Post(func() {
			if err := client.Emit(name, args...); err != nil {
				color.Red("emit %s: %s", name, err.Error())
			}
		})
	}
}

func printer(name string, then func(args ...socketio.Value)) socketio.Value {
	return socketio.NewFunction(socketio.FunctionFunc(func(this socketio.Value, args ...socketio.Value) error {
		fmt.Printf("%s %s\n", color.CyanString(name), join(args))
		if then != nil {
			then(args...)
		}
		return nil
	}))
}

func join(args []socketio.Value) string {
	items := make([]string, 0, len(args))
	for _, arg := range args {
		items = append(items, arg.String())
	}
	return strings.Join(items, " ")
}
