package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nerrad567/chardev-core/internal/audit"
	"github.com/nerrad567/chardev-core/internal/chardev"
	"github.com/nerrad567/chardev-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/chardev-core/internal/infrastructure/logging"
)

// console drives the device registry from a line-oriented command stream.
// It holds at most one open session at a time, mirroring a single process
// holding a device file descriptor.
type console struct {
	registry  *chardev.Registry
	auditRepo audit.Repository
	metrics   *influxdb.Client
	log       *logging.Logger

	in  io.Reader
	out io.Writer

	// Current session state. Nil when no device is open.
	sess *chardev.Session
	dev  *chardev.Device
}

func newConsole(
	registry *chardev.Registry,
	auditRepo audit.Repository,
	metrics *influxdb.Client,
	log *logging.Logger,
	in io.Reader,
	out io.Writer,
) *console {
	return &console{
		registry:  registry,
		auditRepo: auditRepo,
		metrics:   metrics,
		log:       log,
		in:        in,
		out:       out,
	}
}

// run reads commands until EOF, "quit", or context cancellation.
//
// Input is read on a separate goroutine so a blocked read on stdin does
// not prevent shutdown on SIGINT.
func (c *console) run(ctx context.Context) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
		close(lines)
	}()

	fmt.Fprintln(c.out, "chardevd console. Type 'help' for commands.")
	c.prompt()

	for {
		select {
		case <-ctx.Done():
			c.closeCurrent(ctx)
			return nil
		case line, ok := <-lines:
			if !ok {
				c.closeCurrent(ctx)
				if err := <-errCh; err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				return nil
			}
			if quit := c.dispatch(ctx, line); quit {
				c.closeCurrent(ctx)
				return nil
			}
			c.prompt()
		}
	}
}

func (c *console) prompt() {
	if c.dev != nil {
		fmt.Fprintf(c.out, "%s> ", c.dev.Name())
	} else {
		fmt.Fprint(c.out, "> ")
	}
}

// dispatch executes one command line. Returns true when the console
// should exit.
func (c *console) dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		c.printHelp()
	case "devices":
		c.cmdDevices()
	case "open":
		c.cmdOpen(ctx, args)
	case "close":
		c.cmdClose(ctx)
	case "read":
		c.cmdRead(ctx, args)
	case "write":
		c.cmdWrite(ctx, args)
	case "seek":
		c.cmdSeek(ctx, args)
	case "pos":
		c.cmdPos()
	case "stat":
		c.cmdStat()
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(c.out, "unknown command %q, type 'help'\n", cmd)
	}
	return false
}

func (c *console) printHelp() {
	fmt.Fprint(c.out, `Commands:
  devices                 list registered devices
  open <name|index>       acquire exclusive access to a device
  close                   release the current device
  read <count>            read up to count bytes from the cursor
  write <text>            write text at the cursor
  seek <offset> <whence>  reposition cursor (whence: start, cur, end)
  pos                     show the cursor position
  stat                    registry statistics
  quit                    close any open device and exit
`)
}

func (c *console) cmdDevices() {
	for _, name := range c.registry.Names() {
		marker := " "
		if c.dev != nil && c.dev.Name() == name {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s\n", marker, name)
	}
}

func (c *console) cmdOpen(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: open <name|index>")
		return
	}
	if c.sess != nil {
		fmt.Fprintf(c.out, "device %s already open, close it first\n", c.dev.Name())
		return
	}

	// Accept a bare index as shorthand for the device name.
	var dev *chardev.Device
	var err error
	if idx, convErr := strconv.Atoi(args[0]); convErr == nil {
		dev, err = c.registry.Resolve(idx)
	} else {
		dev, err = c.registry.Lookup(args[0])
	}
	if err != nil {
		c.record(ctx, "open", args[0], "", err, nil)
		c.printErr(err)
		return
	}

	sess, err := dev.Open()
	if err != nil {
		c.record(ctx, "open", dev.Name(), "", err, nil)
		c.printErr(err)
		return
	}

	c.sess = sess
	c.dev = dev
	c.record(ctx, "open", dev.Name(), sess.ID(), nil, nil)
	fmt.Fprintf(c.out, "opened %s (session %s, capacity %d)\n",
		dev.Name(), sess.ID(), dev.Capacity())
}

func (c *console) cmdClose(ctx context.Context) {
	if c.sess == nil {
		fmt.Fprintln(c.out, "no device open")
		return
	}
	c.closeCurrent(ctx)
	fmt.Fprintln(c.out, "closed")
}

// closeCurrent releases the open session if there is one. Safe to call
// when nothing is open.
func (c *console) closeCurrent(ctx context.Context) {
	if c.sess == nil {
		return
	}
	name, id := c.dev.Name(), c.sess.ID()
	err := c.sess.Close()
	c.record(ctx, "close", name, id, err, nil)
	c.sess = nil
	c.dev = nil
}

func (c *console) cmdRead(ctx context.Context, args []string) {
	if c.sess == nil {
		fmt.Fprintln(c.out, "no device open")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: read <count>")
		return
	}
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 0 {
		fmt.Fprintln(c.out, "count must be a non-negative integer")
		return
	}

	buf := make([]byte, count)
	n, err := c.sess.Read(buf)
	details := map[string]any{"requested": count, "bytes": n, "cursor": c.sess.Cursor()}
	if errors.Is(err, io.EOF) {
		c.record(ctx, "read", c.dev.Name(), c.sess.ID(), nil, details)
		fmt.Fprintln(c.out, "EOF")
		return
	}
	c.record(ctx, "read", c.dev.Name(), c.sess.ID(), err, details)
	if err != nil {
		c.printErr(err)
		return
	}
	fmt.Fprintf(c.out, "read %d bytes: %q\n", n, buf[:n])
}

func (c *console) cmdWrite(ctx context.Context, args []string) {
	if c.sess == nil {
		fmt.Fprintln(c.out, "no device open")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(c.out, "usage: write <text>")
		return
	}
	data := []byte(strings.Join(args, " "))

	n, err := c.sess.Write(data)
	details := map[string]any{"requested": len(data), "bytes": n, "cursor": c.sess.Cursor()}
	c.record(ctx, "write", c.dev.Name(), c.sess.ID(), err, details)
	if err != nil {
		c.printErr(err)
		return
	}
	if n < len(data) {
		fmt.Fprintf(c.out, "wrote %d of %d bytes (clipped at capacity)\n", n, len(data))
		return
	}
	fmt.Fprintf(c.out, "wrote %d bytes\n", n)
}

func (c *console) cmdSeek(ctx context.Context, args []string) {
	if c.sess == nil {
		fmt.Fprintln(c.out, "no device open")
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(c.out, "usage: seek <offset> <start|cur|end>")
		return
	}
	offset, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(c.out, "offset must be an integer")
		return
	}
	var whence int
	switch args[1] {
	case "start":
		whence = io.SeekStart
	case "cur":
		whence = io.SeekCurrent
	case "end":
		whence = io.SeekEnd
	default:
		fmt.Fprintln(c.out, "whence must be start, cur or end")
		return
	}

	pos, err := c.sess.Seek(offset, whence)
	details := map[string]any{"offset": offset, "whence": args[1], "cursor": pos}
	c.record(ctx, "seek", c.dev.Name(), c.sess.ID(), err, details)
	if err != nil {
		c.printErr(err)
		return
	}
	fmt.Fprintf(c.out, "cursor at %d\n", pos)
}

func (c *console) cmdPos() {
	if c.sess == nil {
		fmt.Fprintln(c.out, "no device open")
		return
	}
	fmt.Fprintf(c.out, "cursor at %d of %d\n", c.sess.Cursor(), c.dev.Capacity())
}

func (c *console) cmdStat() {
	stats := c.registry.GetStats()
	fmt.Fprintf(c.out, "devices: %d, capacity: %d, open sessions: %d\n",
		stats.Devices, stats.Capacity, stats.OpenSessions)
	if c.metrics != nil {
		c.metrics.WriteRegistryStats(stats.Devices, stats.OpenSessions)
	}
}

// record persists one audit entry and mirrors the outcome to the metrics
// sink. Both are best effort: a failed audit write is logged, never
// surfaced to the user.
func (c *console) record(ctx context.Context, action, device, session string, opErr error, details map[string]any) {
	outcome := audit.OutcomeOK
	if opErr != nil {
		outcome = opErr.Error()
	}
	entry := &audit.Entry{
		Action:     action,
		DeviceName: device,
		SessionID:  session,
		Outcome:    outcome,
		Details:    details,
	}
	if err := c.auditRepo.Create(ctx, entry); err != nil {
		c.log.Warn("recording audit entry", "action", action, "error", err)
	}

	if c.metrics != nil {
		bytes := 0
		if details != nil {
			if b, ok := details["bytes"].(int); ok {
				bytes = b
			}
		}
		c.metrics.WriteOpMetric(device, action, bytes, opErr == nil)
		switch pos := details["cursor"].(type) {
		case int:
			c.metrics.WriteCursorMetric(device, pos)
		case int64:
			c.metrics.WriteCursorMetric(device, int(pos))
		}
	}
}

func (c *console) printErr(err error) {
	fmt.Fprintf(c.out, "error: %v\n", err)
}
