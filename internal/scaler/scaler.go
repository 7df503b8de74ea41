// Package scaler orchestrates one revision of the Steam toast targets:
// backups first, then the script bundle, then the stylesheet, then an
// optional debugger-driven reload so the running client picks the change
// up without a restart.
package scaler

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/serious-angel/steam-client-custom-toasts/internal/backup"
	"github.com/serious-angel/steam-client-custom-toasts/internal/cdp"
	"github.com/serious-angel/steam-client-custom-toasts/internal/config"
	"github.com/serious-angel/steam-client-custom-toasts/internal/logging"
	"github.com/serious-angel/steam-client-custom-toasts/internal/patch"
)

// Scaler applies, resets, and inspects the toast scale in one Steam
// install. It is cheap to construct and safe to discard after use.
type Scaler struct {
	cfg       *config.Config
	original  patch.Original
	script    patch.Script
	sheet     patch.Stylesheet
	discovery *cdp.Client
	channel   *cdp.Channel
}

// New builds a Scaler from a validated configuration.
func New(cfg *config.Config) *Scaler {
	rev := cfg.Revision
	return &Scaler{
		cfg: cfg,
		original: patch.Original{
			Width:          rev.Width,
			HeightCompact:  rev.HeightCompact,
			HeightExpanded: rev.HeightExpanded,
			ClassToken:     rev.ClassToken,
		},
		script: patch.Script{
			Width:   anchorFor("toast width", rev.WidthAnchor),
			Heights: anchorFor("toast heights", rev.HeightsAnchor),
			Class:   anchorFor("toast class", rev.ClassAnchor),
		},
		sheet: patch.Stylesheet{
			EOFAnchor:  rev.StylesheetAnchor,
			ClassToken: rev.ClassToken,
			Marker:     cfg.Marker,
		},
		discovery: cdp.NewClient(cfg.Reload.DiscoveryURL),
		channel:   cdp.NewChannel(cfg.Reload.GetResponseTimeout()),
	}
}

func anchorFor(name string, a config.AnchorConfig) patch.Anchor {
	return patch.Anchor{Name: name, Prefix: a.Prefix, Delims: a.Delims}
}

// Result records one applied revision: the values both targets now carry
// and the backups taken before the first write.
type Result struct {
	Factor         float64
	Width          int
	HeightCompact  int
	HeightExpanded int

	ScriptBackup     string
	StylesheetBackup string

	// Reloaded is true when the post-patch reload round-trip resolved.
	Reloaded bool
}

// Apply scales the toast targets by factor and verifies both writes.
// With reload set it then restarts the client's shared JS context; a
// reload failure is returned alongside the Result, since by then the
// patch itself has already been applied and verified.
func (s *Scaler) Apply(ctx context.Context, factor float64, reload bool) (*Result, error) {
	if err := validFactor(factor); err != nil {
		return nil, err
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	req := patch.RequiredFor(s.original, factor, s.cfg.Marker)
	logging.Patch("Applying factor %s: width %d, heights %d/%d",
		patch.FormatScale(factor), req.Width, req.HeightCompact, req.HeightExpanded)

	res := &Result{
		Factor:         factor,
		Width:          req.Width,
		HeightCompact:  req.HeightCompact,
		HeightExpanded: req.HeightExpanded,
	}

	// Both backups precede the first write, so a stylesheet failure still
	// leaves a pre-patch snapshot of the already-rewritten script.
	var err error
	if res.ScriptBackup, err = backup.Create(s.cfg.ScriptPath()); err != nil {
		return nil, err
	}
	if res.StylesheetBackup, err = backup.Create(s.cfg.StylesheetPath()); err != nil {
		return nil, err
	}

	if err := patch.ApplyScript(s.cfg.ScriptPath(), s.script, req); err != nil {
		return nil, err
	}
	if err := patch.ApplyStylesheet(s.cfg.StylesheetPath(), s.sheet, req); err != nil {
		return nil, err
	}

	if reload {
		if err := s.Reload(ctx); err != nil {
			return res, err
		}
		res.Reloaded = true
	}
	return res, nil
}

// Reset restores both targets to their stock values. It is Apply at
// factor 1: bare class token, stock dimensions, no stylesheet rule.
func (s *Scaler) Reset(ctx context.Context, reload bool) (*Result, error) {
	return s.Apply(ctx, 1, reload)
}

// Reload asks the running Steam client to restart its shared JS context:
// discover the debuggable contexts, pick the configured one, evaluate the
// restart expression over a fresh single-command connection.
func (s *Scaler) Reload(ctx context.Context) error {
	contexts, err := s.discovery.Discover(ctx)
	if err != nil {
		return err
	}
	target, err := cdp.FindContext(contexts, s.cfg.Reload.ContextTitle)
	if err != nil {
		return err
	}
	if _, err := s.channel.Evaluate(ctx, target.WebSocketDebuggerURL, s.cfg.Reload.Expression); err != nil {
		return err
	}
	return nil
}

// Contexts lists the debuggable contexts the client currently exposes.
func (s *Scaler) Contexts(ctx context.Context) ([]cdp.Context, error) {
	return s.discovery.Discover(ctx)
}

// Status describes what both targets currently express.
type Status struct {
	ScriptPath     string
	StylesheetPath string

	Script     patch.ScriptValues
	Stylesheet patch.StylesheetValues

	// Factor is the scale the stylesheet rule carries, 1 when absent.
	Factor float64
	// Consistent is true when both targets express exactly that factor.
	Consistent bool

	ScriptBackups     []string
	StylesheetBackups []string
}

// Status reads both targets without writing anything and reports whether
// they agree on a single scale factor.
func (s *Scaler) Status() (*Status, error) {
	sv, err := patch.ReadScriptValues(s.cfg.ScriptPath(), s.script)
	if err != nil {
		return nil, err
	}
	tv, err := patch.ReadStylesheetValues(s.cfg.StylesheetPath(), s.sheet)
	if err != nil {
		return nil, err
	}

	st := &Status{
		ScriptPath:     s.cfg.ScriptPath(),
		StylesheetPath: s.cfg.StylesheetPath(),
		Script:         sv,
		Stylesheet:     tv,
		Factor:         1,
	}
	st.ScriptBackups, _ = backup.List(s.cfg.ScriptPath())
	st.StylesheetBackups, _ = backup.List(s.cfg.StylesheetPath())

	if tv.RulePresent {
		factor, err := strconv.ParseFloat(tv.Scale, 64)
		if err != nil {
			st.Consistent = false
			return st, nil
		}
		st.Factor = factor
		st.Consistent = s.matches(sv, tv, factor)
		return st, nil
	}

	st.Consistent = s.matches(sv, tv, 1)
	return st, nil
}

// AtFactor reports whether both targets currently express factor exactly.
// Used by the watcher to skip rewrites that would change nothing.
func (s *Scaler) AtFactor(factor float64) (bool, error) {
	if err := validFactor(factor); err != nil {
		return false, err
	}
	sv, err := patch.ReadScriptValues(s.cfg.ScriptPath(), s.script)
	if err != nil {
		return false, err
	}
	tv, err := patch.ReadStylesheetValues(s.cfg.StylesheetPath(), s.sheet)
	if err != nil {
		return false, err
	}
	return s.matches(sv, tv, factor), nil
}

// matches compares extracted values against what factor requires in both
// targets, including the exact scale text of the stylesheet rule.
func (s *Scaler) matches(sv patch.ScriptValues, tv patch.StylesheetValues, factor float64) bool {
	req := patch.RequiredFor(s.original, factor, s.cfg.Marker)
	if sv.Width != req.Width || sv.HeightCompact != req.HeightCompact || sv.HeightExpanded != req.HeightExpanded {
		return false
	}
	if sv.ClassAttr != req.ClassAttr {
		return false
	}
	if req.Scaled() {
		return tv.RulePresent && tv.Scale == req.RuleScale
	}
	return !tv.RulePresent
}

func validFactor(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("scale factor must be a positive number, got %v", f)
	}
	return nil
}
