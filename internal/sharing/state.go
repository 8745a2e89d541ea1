package sharing

import (
	"io"
	"log/slog"
	"time"

	"tetherctl/internal/model"
	"tetherctl/internal/plistdoc"
	"tetherctl/internal/scnotify"
)

// Inspector reports the sharing bridge; present is false when it is absent.
type Inspector interface {
	Inspect(name string) (snap model.BridgeSnapshot, present bool, err error)
}

// ControllerOptions wires a Controller. Sleep defaults to time.Sleep.
type ControllerOptions struct {
	NATPath     string
	BridgeName  string
	SettleDelay time.Duration
	Notifier    scnotify.Notifier
	Inspector   Inspector
	Sleep       func(time.Duration)
	Logger      *slog.Logger
}

// Controller flips the persisted Enabled flag and reports the outcome.
type Controller struct {
	opts ControllerOptions
	log  *slog.Logger
}

func NewController(opts ControllerOptions) *Controller {
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{opts: opts, log: logger}
}

// Result describes what SetState did.
type Result struct {
	// Configured is false when the NAT file has no NAT block; nothing else
	// in the result is meaningful then.
	Configured bool
	Previous   int
	Enabled    int
	Present    bool
	Snapshot   model.BridgeSnapshot
}

// SetState applies state to NAT.Enabled. Without a NAT block it does nothing.
// Otherwise it notifies configd, waits SettleDelay for the bridge to follow
// and returns a fresh inspection of the bridge.
func (c *Controller) SetState(state model.SharingState) (Result, error) {
	if _, err := state.Apply(0); err != nil {
		return Result{}, err
	}

	var res Result
	err := plistdoc.Edit(c.opts.NATPath, func(doc plistdoc.Document) error {
		nat, ok := doc.Dict(NATKey)
		if !ok {
			return nil
		}
		current, _ := plistdoc.AsInt(nat["Enabled"])
		next, err := state.Apply(current)
		if err != nil {
			return err
		}
		nat["Enabled"] = next
		res = Result{Configured: true, Previous: current, Enabled: next}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if !res.Configured {
		c.log.Warn("internet sharing is not configured; nothing to change", "path", c.opts.NATPath)
		return res, nil
	}
	c.log.Debug("nat state written", "state", string(state), "previous", res.Previous, "enabled", res.Enabled)

	if err := c.opts.Notifier.NotifyConfigurationChanged(c.opts.NATPath); err != nil {
		return res, err
	}
	if c.opts.SettleDelay > 0 {
		c.opts.Sleep(c.opts.SettleDelay)
	}

	snap, present, err := c.opts.Inspector.Inspect(c.opts.BridgeName)
	if err != nil {
		return res, err
	}
	res.Present = present
	res.Snapshot = snap
	return res, nil
}

// Status inspects the bridge without touching the configuration.
func (c *Controller) Status() (model.BridgeSnapshot, bool, error) {
	return c.opts.Inspector.Inspect(c.opts.BridgeName)
}
