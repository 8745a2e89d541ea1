package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"tetherctl/internal/bridge"
	"tetherctl/internal/config"
	"tetherctl/internal/discovery"
	"tetherctl/internal/execx"
	"tetherctl/internal/hostnet"
	"tetherctl/internal/ioreg"
	"tetherctl/internal/model"
	"tetherctl/internal/picker"
	"tetherctl/internal/scnotify"
	"tetherctl/internal/sharing"
)

const usage = `tetherctl - toggle macOS Internet Sharing to tethered iPhones and iPads

Usage:
  tetherctl on [--config <path>]
  tetherctl off [--config <path>]
  tetherctl toggle [--config <path>]
  tetherctl status [--config <path>] [--bridge <name>]
  tetherctl configure <primary_interface> [-u <udid>]... [-s|--start] [-n|--network-name <name>]
  tetherctl devices [--config <path>]
  tetherctl doctor [--config <path>] [--probe]
  tetherctl config init --config <path> [--force]

Command names are case-insensitive for on/off/toggle.

Every command accepts -v/--verbose for debug logging.
Changing the sharing state requires root.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "-h", "--help", "help":
		fmt.Print(usage)
	case "status":
		handleStatus(os.Args[2:])
	case "configure":
		handleConfigure(os.Args[2:])
	case "devices":
		handleDevices(os.Args[2:])
	case "doctor":
		handleDoctor(os.Args[2:])
	case "config":
		handleConfig(os.Args[2:])
	default:
		if state, ok := stateCommand(cmd); ok {
			handleState(cmd, state, os.Args[2:])
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

type commonFlags struct {
	configPath *string
	verbose    *bool
}

func newFlagSet(name string) (*pflag.FlagSet, commonFlags) {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	return fs, commonFlags{
		configPath: fs.String("config", "", "path to YAML config"),
		verbose:    fs.BoolP("verbose", "v", false, "debug logging"),
	}
}

// app holds the wired components for one invocation.
type app struct {
	cfg          config.Config
	log          *slog.Logger
	registry     ioreg.Registry
	inspector    *bridge.Inspector
	controller   *sharing.Controller
	configurator *sharing.Configurator
}

func setup(flags commonFlags) *app {
	cfg, err := loadConfig(*flags.configPath)
	if err != nil {
		fatal(err)
	}
	if err := config.Validate(cfg); err != nil {
		fatal(err)
	}
	logger := newLogger(cfg.LogLevel, *flags.verbose)

	runner := execx.NewOSRunner()
	registry := ioreg.NewCommandRegistry(runner, cfg.IoregPath)
	devices := func() (map[string]string, error) {
		return discovery.MobileInterfaces(registry, cfg.DeviceProducts)
	}
	inspector := bridge.NewInspector(runner, cfg.IfconfigPath, devices, logger)

	return &app{
		cfg:       cfg,
		log:       logger,
		registry:  registry,
		inspector: inspector,
		controller: sharing.NewController(sharing.ControllerOptions{
			NATPath:     cfg.NATPlistPath,
			BridgeName:  cfg.BridgeName,
			SettleDelay: cfg.SettleDelay.Std(),
			Notifier:    scnotify.NewSystemNotifier(scnotify.DefaultStoreName),
			Inspector:   inspector,
			Logger:      logger,
		}),
		configurator: sharing.NewConfigurator(cfg.NATPlistPath, cfg.PreferencesPlistPath, cfg.NetworkName, logger),
	}
}

// stateCommand maps on/off/toggle, in any case, to the requested state.
func stateCommand(cmd string) (model.SharingState, bool) {
	state, err := model.ParseSharingState(cmd)
	if err != nil {
		return "", false
	}
	return state, true
}

func handleState(name string, state model.SharingState, args []string) {
	fs, flags := newFlagSet(name)
	_ = fs.Parse(args)
	if fs.NArg() != 0 {
		usageError(fmt.Sprintf("%s takes no arguments", name))
	}

	a := setup(flags)
	a.applyState(state)
}

func (a *app) applyState(state model.SharingState) {
	res, err := a.controller.SetState(state)
	if err != nil {
		a.fail(err)
	}
	if !res.Configured {
		fmt.Fprintln(os.Stdout, "Internet sharing is not configured; run `tetherctl configure` first")
		return
	}
	a.log.Info("sharing state applied", "state", string(state), "enabled", res.Enabled)
	if res.Present {
		fmt.Fprintln(os.Stdout, bridge.Render(res.Snapshot))
		return
	}
	fmt.Fprintln(os.Stdout, "Internet sharing OFF")
}

func handleStatus(args []string) {
	fs, flags := newFlagSet("status")
	bridgeName := fs.String("bridge", "", "bridge interface name (default from config)")
	_ = fs.Parse(args)

	a := setup(flags)
	name := a.cfg.BridgeName
	if *bridgeName != "" {
		name = *bridgeName
	}

	snap, present, err := a.inspector.Inspect(name)
	if err != nil {
		a.fail(err)
	}
	if !present {
		fmt.Fprintln(os.Stdout, "Internet sharing OFF")
		return
	}
	fmt.Fprintln(os.Stdout, bridge.Render(snap))
}

func handleConfigure(args []string) {
	fs, flags := newFlagSet("configure")
	udids := fs.StringArrayP("udid", "u", nil, "UDID of a device to share with (repeatable)")
	start := fs.BoolP("start", "s", false, "turn sharing on after configuring")
	networkName := fs.StringP("network-name", "n", "", "network name written to the AirPort block")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		usageError("configure requires exactly one <primary_interface>")
	}
	primary := fs.Arg(0)

	a := setup(flags)
	found, err := discovery.Interfaces(a.registry, a.cfg.DeviceProducts)
	if err != nil {
		a.fail(err)
	}

	chosen := *udids
	if len(chosen) == 0 {
		chosen, err = a.pickDevices(found)
		if err != nil {
			a.fail(err)
		}
	}

	members, err := membersForUDIDs(found, chosen)
	if err != nil {
		a.fail(err)
	}

	svc, err := a.configurator.Configure(primary, members, *networkName)
	if err != nil {
		a.fail(err)
	}
	a.checkHostInterface(svc.DeviceName)
	fmt.Fprintf(os.Stdout, "sharing %s (%s) with %s\n", svc.UserDefinedName, svc.DeviceName, strings.Join(members, ", "))

	if *start {
		a.applyState(model.SharingOn)
	}
}

func (a *app) pickDevices(found []model.USBEthernetInterface) ([]string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("no --udid given and stdin is not a terminal")
	}
	options := make([]picker.Option, 0, len(found))
	for _, iface := range found {
		options = append(options, picker.Option{Label: deviceLabel(iface), Value: iface.SerialNumber})
	}
	return picker.Run("Choose devices to share with", options, os.Stdin, os.Stderr)
}

// errUnknownUDID is returned by membersForUDIDs for a serial that was not
// discovered.
var errUnknownUDID = errors.New("no device with UDID")

func membersForUDIDs(found []model.USBEthernetInterface, udids []string) ([]string, error) {
	bySerial := make(map[string]string, len(found))
	for _, iface := range found {
		bySerial[iface.SerialNumber] = iface.Name
	}
	members := make([]string, 0, len(udids))
	seen := map[string]bool{}
	for _, udid := range udids {
		name, ok := bySerial[udid]
		if !ok {
			return nil, fmt.Errorf("%w %s", errUnknownUDID, udid)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		members = append(members, name)
	}
	return members, nil
}

func (a *app) checkHostInterface(name string) {
	if name == "" {
		return
	}
	iface, ok, err := hostnet.Lookup(name)
	switch {
	case err != nil:
		a.log.Debug("host interface lookup failed", "interface", name, "error", err)
	case !ok:
		a.log.Warn("primary interface is not present on this host", "interface", name)
	case !iface.Up:
		a.log.Warn("primary interface is down", "interface", name)
	}
}

func handleDevices(args []string) {
	fs, flags := newFlagSet("devices")
	_ = fs.Parse(args)

	a := setup(flags)
	found, err := discovery.Interfaces(a.registry, a.cfg.DeviceProducts)
	if err != nil {
		a.fail(err)
	}
	if len(found) == 0 {
		fmt.Fprintln(os.Stdout, "no devices found")
		return
	}
	for _, iface := range found {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", iface.SerialNumber, iface.Name, iface.ProductName)
	}
}

func deviceLabel(iface model.USBEthernetInterface) string {
	return fmt.Sprintf("%s %s (%s)", iface.ProductName, iface.Name, iface.SerialNumber)
}

func handleConfig(args []string) {
	if len(args) == 0 || args[0] != "init" {
		usageError("config subcommand required: init")
	}
	fs := pflag.NewFlagSet("config init", pflag.ExitOnError)
	configPath := fs.String("config", "", "path to write the YAML config")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(args[1:])

	if err := initConfig(*configPath, *force); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", *configPath)
}

// initConfig writes a config holding every default so it can be edited.
func initConfig(path string, force bool) error {
	if path == "" {
		return errors.New("--config is required")
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return config.Save(path, config.Default())
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func (a *app) fail(err error) {
	a.log.Error(err.Error())
	os.Exit(1)
}

func usageError(msg string) {
	fmt.Fprintf(os.Stderr, "%s\n\n", msg)
	fmt.Fprint(os.Stderr, usage)
	os.Exit(2)
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
