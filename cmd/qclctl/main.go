// Command qclctl talks to a QCL laser controller from the shell.
//
//	qclctl -port /dev/ttyUSB0 get wavenumber
//	qclctl -port /dev/ttyUSB0 set pulse_rate 20
//	qclctl -port /dev/ttyUSB0 all
//	qclctl -port /dev/ttyUSB0 scan start
//	qclctl ops
//	qclctl token -secret s3cret -sub operator -ttl 1h
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"qclctl/internal/app"
	"qclctl/internal/journal"
	"qclctl/internal/logger"
	"qclctl/internal/protocol"
	"qclctl/pkg/qcl"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: qclctl [flags] command [args]

commands:
  get NAME           read one quantity
  set NAME VALUE     set one quantity and print the applied value
  all                read every readable quantity
  scan start|stop    start or abort a scan run
  ops                list the command table
  token              mint a monitor token (-secret, -sub, -ttl)

flags:
`)
	flag.PrintDefaults()
}

func main() {
	port := flag.String("port", "/dev/ttyUSB0", "serial port of the controller")
	baud := flag.Int("baud", protocol.QCLBaud, "baud rate")
	timeout := flag.Duration("timeout", protocol.DefaultTimeout, "reply timeout")
	retries := flag.Int("retries", 0, "extra attempts for a timed out get")
	transcript := flag.Bool("log", false, "print the wire transcript after the command")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	switch args[0] {
	case "ops":
		printOperations(os.Stdout, protocol.QCLRegistry().Operations())
		return
	case "token":
		os.Exit(runToken(args[1:]))
	}

	log := logger.Nop()
	if *verbose {
		log = logger.NewSlog(os.Stderr, logger.DebugLevel, true)
	}
	mem := journal.NewMemory(journal.DefaultMemorySize)
	c, err := qcl.Open(*port,
		qcl.WithBaud(*baud),
		qcl.WithTimeout(*timeout),
		qcl.WithGetRetries(*retries),
		qcl.WithLogger(log),
		qcl.WithRecorder(mem),
	)
	if err != nil {
		fail(err)
	}
	defer func() { _ = c.Close() }()

	err = run(ctx, c, args)
	if *transcript {
		entries, _ := mem.List(0)
		for _, line := range journal.Lines(entries) {
			fmt.Fprintln(os.Stderr, line)
		}
	}
	if err != nil {
		_ = c.Close()
		fail(err)
	}
}

func run(ctx context.Context, c *qcl.Controller, args []string) error {
	switch args[0] {
	case "get":
		if len(args) != 2 {
			return errors.New("get wants NAME")
		}
		v, err := c.GetValue(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(v)
	case "set":
		if len(args) != 3 {
			return errors.New("set wants NAME VALUE")
		}
		applied, err := c.SetValue(ctx, args[1], args[2])
		var rejected *qcl.ValueRejectedError
		if errors.As(err, &rejected) {
			fmt.Println(applied)
		}
		if err != nil {
			return err
		}
		if applied.Kind != 0 {
			fmt.Println(applied)
		}
	case "all":
		values, err := c.All(ctx)
		printValues(os.Stdout, c.Operations(), values)
		return err
	case "scan":
		if len(args) != 2 {
			return errors.New("scan wants start or stop")
		}
		switch args[1] {
		case "start":
			return c.StartScan(ctx)
		case "stop":
			return c.StopScan(ctx)
		default:
			return fmt.Errorf("unknown scan action %q", args[1])
		}
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func runToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	secret := fs.String("secret", "", "monitor jwt_secret")
	sub := fs.String("sub", "operator", "token subject")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "token: -secret is required")
		return 2
	}
	tok, err := app.NewToken(*secret, *sub, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		return 1
	}
	fmt.Println(tok)
	return 0
}

func printOperations(w io.Writer, ops []protocol.Operation) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tACCESS\tUNIT\tDESCRIPTION")
	for _, op := range ops {
		access := "rw"
		switch {
		case !op.Writable():
			access = "ro"
		case !op.Readable():
			access = "wo"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", op.Name, op.Kind, access, op.Unit, op.Description)
	}
	_ = tw.Flush()
}

func printValues(w io.Writer, ops []protocol.Operation, values map[string]qcl.Value) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := make([]string, 0, len(values))
	units := make(map[string]string, len(ops))
	for _, op := range ops {
		units[op.Name] = op.Unit
	}
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, values[name], units[name])
	}
	_ = tw.Flush()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "qclctl:", err)
	var timeout *qcl.TimeoutError
	if errors.As(err, &timeout) {
		os.Exit(3)
	}
	os.Exit(1)
}
