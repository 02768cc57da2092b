// Package engine is the consumer API surface of the cleanup engine:
// synchronous operations over scan, clean, duplicates, sessions and
// profiles, all returning JSON-serializable values. The CLI and other
// front-ends are thin layers over this package.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/catalog"
	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/devscan"
	"github.com/jamesainslie/tidymac/pkg/tidymac/inventory"
	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
	"github.com/jamesainslie/tidymac/pkg/tidymac/profile"
	"github.com/jamesainslie/tidymac/pkg/tidymac/safety"
	"github.com/jamesainslie/tidymac/pkg/tidymac/session"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/jamesainslie/tidymac/pkg/tidymac/walker"
)

// Options configures an Engine.
type Options struct {
	// Config supplies engine configuration. Nil loads the default.
	Config *config.Config

	// OnProgress, when set, receives bytes-processed updates during
	// scans and cleans at a bounded cadence.
	OnProgress func(bytesProcessed int64, currentPath string)

	// Env overrides the target resolution environment. Nil uses the
	// current user's.
	Env *catalog.Env
}

// Engine exposes the consumer operations.
type Engine struct {
	cfg      *config.Config
	guard    *safety.Guard
	env      catalog.Env
	manifest *session.Manifest
	log      *logging.Logger
	progress *progressThrottle
}

// New builds an Engine, ensuring the state directory exists.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	env := catalog.DefaultEnv()
	if opts.Env != nil {
		env = *opts.Env
	}

	return &Engine{
		cfg:      cfg,
		guard:    safety.NewGuard(),
		env:      env,
		manifest: session.NewManifest(""),
		log:      logging.Get("engine"),
		progress: newProgressThrottle(opts.OnProgress),
	}, nil
}

// Guard exposes the engine's safety guard, mainly for tests.
func (e *Engine) Guard() *safety.Guard {
	return e.guard
}

// scanOutcome carries the inventory plus the per-path records the
// cleaner needs for drift detection.
type scanOutcome struct {
	inventory *types.Inventory
	records   map[string]types.FileRecord
}

// Scan runs a profile-driven scan and returns the classified
// inventory.
func (e *Engine) Scan(ctx context.Context, profileName string) (*types.Inventory, error) {
	outcome, err := e.scan(ctx, profileName)
	if err != nil {
		return nil, err
	}
	return outcome.inventory, nil
}

// scan is the shared implementation behind Scan and Clean.
func (e *Engine) scan(ctx context.Context, profileName string) (*scanOutcome, error) {
	start := time.Now()

	if profileName == "" {
		profileName = e.cfg.DefaultProfile
	}

	prof, profWarnings, err := profile.Load(profileName)
	if err != nil {
		return nil, err
	}
	targets, policy, resolveWarnings := profile.Resolve(prof)

	e.log.Info("scan started", "profile", prof.Name, "targets", len(targets))

	var walkTargets []catalog.ScanTarget
	var devTarget, largeTarget *catalog.ScanTarget
	for i := range targets {
		switch targets[i].Rule {
		case catalog.RuleDevProjects:
			devTarget = &targets[i]
		case catalog.RuleLargeFiles:
			large := targets[i]
			large.MinSize = policy.LargeFileThreshold
			large.MinAgeDays = policy.StaleDays
			largeTarget = &large
		default:
			walkTargets = append(walkTargets, targets[i])
		}
	}
	if largeTarget != nil {
		walkTargets = append(walkTargets, *largeTarget)
	}

	w := walker.New(walker.Options{
		Guard:        e.guard,
		Env:          e.env,
		Exclude:      e.cfg.Exclude,
		TargetBudget: time.Duration(e.cfg.WalkBudgetSecs) * time.Second,
		OnProgress: func(p walker.Progress) {
			e.progress.report(p.BytesScanned, p.CurrentPath)
		},
	})

	results, err := w.WalkTargets(ctx, walkTargets)
	if err != nil {
		return nil, err
	}

	// Detector-discovered large files are allowlisted for this
	// session so the classifier keeps them.
	for _, result := range results {
		if result.Target.Rule != catalog.RuleLargeFiles {
			continue
		}
		for _, record := range result.Records {
			e.guard.AllowPrefix(record.Path)
		}
	}

	var minItemSize int64
	if e.cfg.MinItemSize != "" {
		if size, err := types.ParseSize(e.cfg.MinItemSize); err == nil {
			minItemSize = size
		}
	}
	items, scanErrors := inventory.Build(results, inventory.Options{Guard: e.guard, MinItemSize: minItemSize})
	records := make(map[string]types.FileRecord)
	for _, result := range results {
		for _, record := range result.Records {
			records[record.Path] = record
		}
	}

	if devTarget != nil {
		roots, err := devTarget.Resolve(e.env)
		if err != nil {
			scanErrors = append(scanErrors, types.ScanError{Error: err.Error()})
		}
		projects := devscan.Scan(ctx, roots)
		devItems, devErrors := inventory.FromProjects(projects, policy.StaleDays, e.guard)
		items = append(items, devItems...)
		scanErrors = append(scanErrors, devErrors...)

		for _, project := range projects {
			for _, artifact := range project.Artifacts {
				records[artifact] = types.FileRecord{
					Path: artifact,
					Size: project.Bytes,
					Kind: types.KindDir,
				}
			}
		}
	}

	inventory.Sort(items)

	inv := &types.Inventory{
		Profile: prof.Name,
		Items:   items,
		Elapsed: time.Since(start),
	}
	inv.Recalculate()

	for _, warning := range e.cfg.Warnings {
		inv.Errors = append(inv.Errors, types.ScanError{Error: warning})
	}
	for _, warning := range profWarnings {
		inv.Errors = append(inv.Errors, types.ScanError{Error: warning})
	}
	for _, warning := range resolveWarnings {
		inv.Errors = append(inv.Errors, types.ScanError{Error: warning})
	}
	inv.Errors = append(inv.Errors, scanErrors...)

	e.log.Info("scan complete", "profile", prof.Name,
		"items", len(inv.Items), "bytes", inv.TotalBytes,
		"elapsed", inv.Elapsed.Round(time.Millisecond))

	return &scanOutcome{inventory: inv, records: records}, nil
}

// progressThrottle rate-limits progress callbacks to one per 100ms.
// Reports arrive from multiple walker goroutines.
type progressThrottle struct {
	fn   func(int64, string)
	last atomic.Int64
}

func newProgressThrottle(fn func(int64, string)) *progressThrottle {
	return &progressThrottle{fn: fn}
}

// report forwards an update when at least 100ms have passed since the
// previous one.
func (p *progressThrottle) report(bytes int64, current string) {
	if p.fn == nil {
		return
	}
	now := time.Now().UnixMilli()
	last := p.last.Load()
	if now-last < 100 {
		return
	}
	if !p.last.CompareAndSwap(last, now) {
		return
	}
	p.fn(bytes, current)
}
