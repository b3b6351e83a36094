package headless

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"pkt.systems/tabtear/schema"
)

// Drag performs one gesture. Callbacks run on the owning window's loop in
// platform order: drag starting on the source, then either drag over and
// drop on the target or dragged-outside on the source, then exactly one
// drag completed on the source.
func (p *Platform) Drag(ctx context.Context, g Gesture) (DragReport, error) {
	report := DragReport{GestureID: uuid.NewString(), Source: g.Source, Result: schema.DropNone}
	if _, err := ParseGestureKind(string(g.Kind)); err != nil {
		return report, err
	}
	completion := schema.DropMove
	if g.Result != "" {
		parsed, err := schema.ParseDropResult(string(g.Result))
		if err != nil {
			return report, err
		}
		completion = parsed
	}
	src := p.shown(g.Source)
	if src == nil {
		return report, fmt.Errorf("%w: %d", schema.ErrWindowNotFound, g.Source)
	}
	var dst *window
	if g.Kind == GestureDrop {
		dst = p.shown(g.Target)
		if dst == nil {
			return report, fmt.Errorf("%w: %d", schema.ErrWindowNotFound, g.Target)
		}
		report.Target = g.Target
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	// Once started, a gesture runs to completion so the source always sees
	// exactly one completion callback.
	gctx := context.WithoutCancel(ctx)
	log := p.log.With("gesture", report.GestureID, "source", int(g.Source), "kind", string(g.Kind))
	before := p.lastID()

	pkg := schema.DataPackage{}
	if err := src.loop.Do(gctx, func() { report.Started = src.surface.DragStarting(g.Index, pkg) }); err != nil {
		return report, err
	}
	if !report.Started {
		log.Debug("headless drag rejected", "index", g.Index)
		return report, fmt.Errorf("%w: window %d index %d", schema.ErrDragRejected, g.Source, g.Index)
	}

	switch g.Kind {
	case GestureDrop:
		var accepted schema.DropResult
		err := dst.loop.Do(gctx, func() { accepted = dst.surface.DragOver(pkg) })
		if err == nil && accepted == schema.DropMove {
			report.Accepted = true
			if err := dst.loop.Do(gctx, func() { dst.surface.Drop(pkg, g.X) }); err == nil {
				report.Result = completion
			}
		}
		if err != nil && !errors.Is(err, schema.ErrLoopStopped) {
			log.Warn("headless drag over failed", "err", err)
		}
	case GestureTearOut:
		if err := src.loop.Do(gctx, func() { src.surface.DraggedOutside() }); err != nil {
			log.Warn("headless dragged outside failed", "err", err)
		}
	case GestureCancel:
	}

	if err := src.loop.Do(gctx, func() { src.surface.DragCompleted(report.Result) }); err != nil && !errors.Is(err, schema.ErrLoopStopped) {
		return report, err
	}
	for id := before + 1; id <= p.lastID(); id++ {
		report.Opened = append(report.Opened, id)
	}
	log.Info("headless drag finished", "result", string(report.Result), "accepted", report.Accepted, "opened", len(report.Opened))
	return report, nil
}

// DropForeign delivers a package that did not originate from a tab drag,
// such as content dragged in from another application. The target sees
// drag over and, when it accepts a move, the drop.
func (p *Platform) DropForeign(ctx context.Context, target schema.WindowID, pkg schema.DataPackage, x int) (schema.DropResult, error) {
	dst := p.shown(target)
	if dst == nil {
		return schema.DropNone, fmt.Errorf("%w: %d", schema.ErrWindowNotFound, target)
	}
	accepted := schema.DropNone
	if err := dst.loop.Do(ctx, func() { accepted = dst.surface.DragOver(pkg) }); err != nil {
		return schema.DropNone, err
	}
	if accepted != schema.DropMove {
		p.log.Debug("headless foreign drop refused", "target", int(target))
		return accepted, nil
	}
	if err := dst.loop.Do(ctx, func() { dst.surface.Drop(pkg, x) }); err != nil {
		return schema.DropNone, err
	}
	return accepted, nil
}
