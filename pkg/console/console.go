// Package console provides an interactive shell over a Z-Wave network.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"

	"github.com/urmzd/zwcore/pkg/capture"
	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/manager"
	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Network is the part of the manager the shell drives.
type Network interface {
	Drivers() []manager.DriverInfo
	AddDriver(endpoint string) error
	RemoveDriver(endpoint string) error
	Homes() []zwave.HomeID
	Statistics(home zwave.HomeID) (zwave.DriverData, error)

	Nodes(home zwave.HomeID) ([]zwave.Node, error)
	Values(home zwave.HomeID, node zwave.NodeID) ([]zwave.Value, error)
	Value(vid zwave.ValueID) (zwave.Value, error)

	SetValueFromString(vid zwave.ValueID, s string) error
	RefreshValue(vid zwave.ValueID) error
	EnablePoll(vid zwave.ValueID, intensity uint8) error
	DisablePoll(vid zwave.ValueID) error

	SetNodeOn(home zwave.HomeID, node zwave.NodeID) error
	SetNodeOff(home zwave.HomeID, node zwave.NodeID) error
	SwitchAllOn(home zwave.HomeID) error
	SwitchAllOff(home zwave.HomeID) error
	SetNodeName(home zwave.HomeID, node zwave.NodeID, name string) error
	SetNodeLocation(home zwave.HomeID, node zwave.NodeID, location string) error
	BeginControllerCommand(home zwave.HomeID, cmd driver.ControllerCommand, node zwave.NodeID) error
	CancelControllerCommand(home zwave.HomeID) error
}

var _ Network = (*manager.Manager)(nil)

// Console handles interactive mode. Register Console.Watch with the
// console as context to print notifications while watching is on.
type Console struct {
	network  Network
	out      io.Writer
	rl       *readline.Instance
	home     zwave.HomeID
	watching atomic.Bool
}

// New creates a console reading commands from the terminal.
func New(network Network) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "zwave> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(network, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(network Network, out io.Writer) *Console {
	return &Console{network: network, out: out}
}

// Stdout returns a writer that does not garble the prompt. Use it for
// log output.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
		if c.Execute(line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "drivers", "d":
		c.cmdDrivers()
	case "ports":
		c.cmdPorts()
	case "attach":
		c.cmdAttach(args)
	case "detach":
		c.cmdDetach(args)
	case "use":
		c.cmdUse(args)
	case "stats":
		c.cmdStats()
	case "nodes", "n":
		c.cmdNodes()
	case "values", "v":
		c.cmdValues(args)
	case "get", "g":
		c.cmdGet(args)
	case "set", "s":
		c.cmdSet(args)
	case "refresh":
		c.cmdRefresh(args)
	case "poll":
		c.cmdPoll(args)
	case "unpoll":
		c.cmdUnpoll(args)
	case "on", "off":
		c.cmdSwitch(args, cmd == "on")
	case "all":
		c.cmdSwitchAll(args)
	case "name", "location":
		c.cmdNaming(args, cmd == "location")
	case "include":
		c.cmdControllerCommand(driver.ControllerCommandAddDevice)
	case "exclude":
		c.cmdControllerCommand(driver.ControllerCommandRemoveDevice)
	case "cancel":
		c.cmdCancel()
	case "watch":
		c.cmdWatch(args)
	case "replay":
		c.cmdReplay(args)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Z-Wave Console Commands:
  Controllers:
    drivers                 - List attached controllers
    ports                   - List serial devices on this host
    attach <endpoint>       - Attach a controller (serial path or sim://name)
    detach <endpoint>       - Detach a controller
    use <home-id>           - Select the network used by node commands
    stats                   - Show serial link counters

  Nodes:
    nodes                   - List nodes
    on <node> | off <node>  - Switch a node through Basic
    all on|off              - Switch All on the network
    name <node> <text>      - Set a node's name
    location <node> <text>  - Set a node's location
    include | exclude       - Start adding or removing a device
    cancel                  - Cancel inclusion or exclusion

  Values:
    values <node>           - List a node's values
    get <value-id>          - Show a value
    set <value-id> <text>   - Write a value from text
    refresh <value-id>      - Request a fresh report
    poll <value-id> [n]     - Poll every n cycles (default 1)
    unpoll <value-id>       - Stop polling

  General:
    watch on|off            - Print notifications as they arrive
    replay <file>           - Print notifications from a capture file
    help                    - Show this help
    quit                    - Exit`)
}

// Watch prints notifications while watching is on.
func (c *Console) Watch(n zwave.Notification, _ any) {
	if !c.watching.Load() {
		return
	}
	fmt.Fprintf(c.out, "[%s] %s\n", n.Time.Format("15:04:05.000"), n)
}

func (c *Console) cmdDrivers() {
	drivers := c.network.Drivers()
	if len(drivers) == 0 {
		fmt.Fprintln(c.out, "No controllers attached")
		return
	}
	for _, d := range drivers {
		home := "-"
		if d.HomeID != 0 {
			home = d.HomeID.String()
		}
		fmt.Fprintf(c.out, "  %-30s home=%s controller=%d state=%s\n", d.Endpoint, home, d.ControllerID, d.State)
	}
}

func (c *Console) cmdPorts() {
	ports, err := serialapi.Ports()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(ports) == 0 {
		fmt.Fprintln(c.out, "No serial ports found")
		return
	}
	for _, p := range ports {
		fmt.Fprintf(c.out, "  %s\n", p)
	}
}

func (c *Console) cmdAttach(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: attach <endpoint>")
		return
	}
	if err := c.network.AddDriver(args[0]); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Attached %s; querying nodes\n", args[0])
}

func (c *Console) cmdDetach(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: detach <endpoint>")
		return
	}
	if err := c.network.RemoveDriver(args[0]); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Detached %s\n", args[0])
}

func (c *Console) cmdUse(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: use <home-id>")
		return
	}
	id, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid home id: %s\n", args[0])
		return
	}
	c.home = zwave.HomeID(id)
	fmt.Fprintf(c.out, "Using network %s\n", c.home)
}

func (c *Console) cmdStats() {
	home, ok := c.currentHome()
	if !ok {
		return
	}
	s, err := c.network.Statistics(home)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "  read=%d write=%d retries=%d dropped=%d noack=%d bad_checksum=%d\n",
		s.ReadCnt, s.WriteCnt, s.Retries, s.Dropped, s.NoACK, s.BadChecksum)
}

func (c *Console) cmdNodes() {
	home, ok := c.currentHome()
	if !ok {
		return
	}
	nodes, err := c.network.Nodes(home)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	for _, n := range nodes {
		status := "ready"
		switch {
		case n.Dead:
			status = "dead"
		case !n.QueriesComplete:
			status = "querying"
		}
		fmt.Fprintf(c.out, "  %3d  %-20s %-16s %s %s [%s]\n", n.ID, n.Name, n.Location, n.ManufacturerName, n.ProductName, status)
	}
}

func (c *Console) cmdValues(args []string) {
	home, ok := c.currentHome()
	if !ok {
		return
	}
	node, ok := c.parseNode(args, "values <node>")
	if !ok {
		return
	}
	values, err := c.network.Values(home, node)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	for i := range values {
		c.printValue(&values[i])
	}
}

func (c *Console) cmdGet(args []string) {
	vid, ok := c.parseValueID(args, "get <value-id>")
	if !ok {
		return
	}
	v, err := c.network.Value(vid)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printValue(&v)
	if v.Help != "" {
		fmt.Fprintf(c.out, "      %s\n", v.Help)
	}
	for _, item := range v.Items {
		fmt.Fprintf(c.out, "      %d: %s\n", item.Value, item.Label)
	}
}

func (c *Console) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: set <value-id> <text>")
		return
	}
	vid, ok := c.parseValueID(args[:1], "set <value-id> <text>")
	if !ok {
		return
	}
	text := strings.Join(args[1:], " ")
	if err := c.network.SetValueFromString(vid, text); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Queued %s = %s\n", vid, text)
}

func (c *Console) cmdRefresh(args []string) {
	vid, ok := c.parseValueID(args, "refresh <value-id>")
	if !ok {
		return
	}
	if err := c.network.RefreshValue(vid); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Refresh requested for %s\n", vid)
}

func (c *Console) cmdPoll(args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.out, "Usage: poll <value-id> [intensity]")
		return
	}
	vid, ok := c.parseValueID(args[:1], "poll <value-id> [intensity]")
	if !ok {
		return
	}
	intensity := uint8(1)
	if len(args) == 2 {
		n, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil || n == 0 {
			fmt.Fprintf(c.out, "Invalid intensity: %s\n", args[1])
			return
		}
		intensity = uint8(n)
	}
	if err := c.network.EnablePoll(vid, intensity); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Polling %s every %d cycle(s)\n", vid, intensity)
}

func (c *Console) cmdUnpoll(args []string) {
	vid, ok := c.parseValueID(args, "unpoll <value-id>")
	if !ok {
		return
	}
	if err := c.network.DisablePoll(vid); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Stopped polling %s\n", vid)
}

func (c *Console) cmdSwitch(args []string, on bool) {
	home, ok := c.currentHome()
	if !ok {
		return
	}
	word, set := "off", c.network.SetNodeOff
	if on {
		word, set = "on", c.network.SetNodeOn
	}
	node, ok := c.parseNode(args, word+" <node>")
	if !ok {
		return
	}
	if err := set(home, node); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Node %d switched %s\n", node, word)
}

func (c *Console) cmdSwitchAll(args []string) {
	home, ok := c.currentHome()
	if !ok {
		return
	}
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(c.out, "Usage: all on|off")
		return
	}
	set := c.network.SwitchAllOff
	if args[0] == "on" {
		set = c.network.SwitchAllOn
	}
	if err := set(home); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Switch All %s sent\n", args[0])
}

func (c *Console) cmdNaming(args []string, location bool) {
	home, ok := c.currentHome()
	if !ok {
		return
	}
	what, set := "name", c.network.SetNodeName
	if location {
		what, set = "location", c.network.SetNodeLocation
	}
	if len(args) < 2 {
		fmt.Fprintf(c.out, "Usage: %s <node> <text>\n", what)
		return
	}
	node, ok := c.parseNode(args[:1], what+" <node> <text>")
	if !ok {
		return
	}
	text := strings.Join(args[1:], " ")
	if err := set(home, node, text); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Node %d %s set to %q\n", node, what, text)
}

func (c *Console) cmdControllerCommand(cmd driver.ControllerCommand) {
	home, ok := c.currentHome()
	if !ok {
		return
	}
	if err := c.network.BeginControllerCommand(home, cmd, 0); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Started %s; 'cancel' to stop\n", cmd)
}

func (c *Console) cmdCancel() {
	home, ok := c.currentHome()
	if !ok {
		return
	}
	if err := c.network.CancelControllerCommand(home); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Cancelled")
}

func (c *Console) cmdWatch(args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(c.out, "Usage: watch on|off")
		return
	}
	c.watching.Store(args[0] == "on")
	fmt.Fprintf(c.out, "Watching %s\n", args[0])
}

func (c *Console) cmdReplay(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: replay <file>")
		return
	}
	r, err := capture.Open(args[0], capture.Filter{})
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	defer r.Close()

	count := 0
	err = r.Walk(func(rec capture.Record) bool {
		n, err := rec.Notification()
		if err != nil {
			fmt.Fprintf(c.out, "  skipping record: %v\n", err)
			return true
		}
		line := fmt.Sprintf("[%s] %s", n.Time.Format("15:04:05.000"), n)
		if rec.Reading != "" {
			line += " reading=" + rec.Reading
		}
		fmt.Fprintln(c.out, line)
		count++
		return true
	})
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	fmt.Fprintf(c.out, "%d notification(s)\n", count)
}

func (c *Console) printValue(v *zwave.Value) {
	reading := "-"
	switch {
	case v.WriteOnly:
		reading = "(write only)"
	case v.IsSet:
		reading = v.String()
	}
	flags := ""
	if v.ReadOnly {
		flags += " ro"
	}
	if v.PollIntensity > 0 {
		flags += fmt.Sprintf(" poll=%d", v.PollIntensity)
	}
	fmt.Fprintf(c.out, "  %s  %-24s %s %s%s\n", v.ID, v.Label, reading, v.Units, flags)
}

// currentHome returns the selected network, or the only one attached.
func (c *Console) currentHome() (zwave.HomeID, bool) {
	if c.home != 0 {
		return c.home, true
	}
	homes := c.network.Homes()
	switch len(homes) {
	case 0:
		fmt.Fprintln(c.out, "No network is ready")
		return 0, false
	case 1:
		return homes[0], true
	}
	fmt.Fprintln(c.out, "Several networks attached; select one with 'use <home-id>'")
	return 0, false
}

func (c *Console) parseNode(args []string, usage string) (zwave.NodeID, bool) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: "+usage)
		return 0, false
	}
	n, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || !zwave.NodeID(n).Valid() {
		fmt.Fprintf(c.out, "Invalid node id: %s\n", args[0])
		return 0, false
	}
	return zwave.NodeID(n), true
}

func (c *Console) parseValueID(args []string, usage string) (zwave.ValueID, bool) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: "+usage)
		return zwave.ValueID{}, false
	}
	vid, err := zwave.ParseValueID(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid value id: %v\n", err)
		return zwave.ValueID{}, false
	}
	return vid, true
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("drivers"),
		readline.PcItem("ports"),
		readline.PcItem("attach"),
		readline.PcItem("detach"),
		readline.PcItem("use"),
		readline.PcItem("stats"),
		readline.PcItem("nodes"),
		readline.PcItem("values"),
		readline.PcItem("get"),
		readline.PcItem("set"),
		readline.PcItem("refresh"),
		readline.PcItem("poll"),
		readline.PcItem("unpoll"),
		readline.PcItem("on"),
		readline.PcItem("off"),
		readline.PcItem("all", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("name"),
		readline.PcItem("location"),
		readline.PcItem("include"),
		readline.PcItem("exclude"),
		readline.PcItem("cancel"),
		readline.PcItem("watch", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("replay"),
		readline.PcItem("quit"),
	)
}
