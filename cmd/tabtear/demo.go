package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pslog"
	"pkt.systems/tabtear"
	"pkt.systems/tabtear/internal/eventbus"
	"pkt.systems/tabtear/internal/headless"
	"pkt.systems/tabtear/schema"
)

type demoScenario struct {
	name string
	seed []string
	run  func(ctx context.Context, st *tabtear.Stack, mainID schema.WindowID) error
}

func demoScenarios(tabWidth int) []demoScenario {
	return []demoScenario{
		{
			name: "tear out a middle tab",
			seed: []string{"X", "Y", "Z"},
			run: func(ctx context.Context, st *tabtear.Stack, mainID schema.WindowID) error {
				_, err := st.Platform.Drag(ctx, headless.Gesture{Source: mainID, Index: 1, Kind: headless.GestureTearOut})
				return err
			},
		},
		{
			name: "tear out the only tab",
			seed: []string{"X"},
			run: func(ctx context.Context, st *tabtear.Stack, mainID schema.WindowID) error {
				_, err := st.Platform.Drag(ctx, headless.Gesture{Source: mainID, Index: 0, Kind: headless.GestureTearOut})
				return err
			},
		},
		{
			name: "drop between tabs of another window",
			seed: []string{"X", "Y", "P", "Q"},
			run: func(ctx context.Context, st *tabtear.Stack, mainID schema.WindowID) error {
				other, err := tearOut(ctx, st, mainID, 2)
				if err != nil {
					return err
				}
				if _, err := st.Platform.Drag(ctx, headless.Gesture{Source: mainID, Index: 2, Kind: headless.GestureDrop, Target: other, X: 10 * tabWidth}); err != nil {
					return err
				}
				_, err = st.Platform.Drag(ctx, headless.Gesture{Source: mainID, Index: 0, Kind: headless.GestureDrop, Target: other, X: tabWidth})
				return err
			},
		},
		{
			name: "drop a payload without the tab identifier",
			seed: []string{"X", "Y"},
			run: func(ctx context.Context, st *tabtear.Stack, mainID schema.WindowID) error {
				other, err := tearOut(ctx, st, mainID, 1)
				if err != nil {
					return err
				}
				pkg := schema.DataPackage{schema.DataWindow: int(mainID), schema.DataIndex: 0}
				_, err = st.Platform.DropForeign(ctx, other, pkg, 0)
				return err
			},
		},
		{
			name: "cancel a drag",
			seed: []string{"X", "Y"},
			run: func(ctx context.Context, st *tabtear.Stack, mainID schema.WindowID) error {
				_, err := st.Platform.Drag(ctx, headless.Gesture{Source: mainID, Index: 0, Kind: headless.GestureCancel})
				return err
			},
		},
	}
}

func tearOut(ctx context.Context, st *tabtear.Stack, source schema.WindowID, index int) (schema.WindowID, error) {
	report, err := st.Platform.Drag(ctx, headless.Gesture{Source: source, Index: index, Kind: headless.GestureTearOut})
	if err != nil {
		return 0, err
	}
	if len(report.Opened) == 0 {
		return 0, fmt.Errorf("tear out of tab %d opened no window", index)
	}
	return report.Opened[0], nil
}

func newDemoCmd() *cobra.Command {
	var colorMode string
	var tabWidth int
	var showEvents bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the transfer scenarios on a headless desktop",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize, err := wantColor(colorMode, out)
			if err != nil {
				return err
			}
			r := newRenderer(out, colorize)
			cfg := schema.DesktopConfig{TabWidth: tabWidth}
			for i, sc := range demoScenarios(tabWidth) {
				if err := runScenario(cmd.Context(), cfg, i+1, sc, r, showEvents); err != nil {
					return fmt.Errorf("scenario %d (%s): %w", i+1, sc.name, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&colorMode, "color", "auto", "colorize output: auto, always or never")
	cmd.Flags().IntVar(&tabWidth, "tab-width", schema.DefaultTabWidth, "headless tab width")
	cmd.Flags().BoolVar(&showEvents, "events", false, "print desktop events")
	return cmd
}

func runScenario(ctx context.Context, cfg schema.DesktopConfig, n int, sc demoScenario, r *renderer, showEvents bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	st, err := tabtear.NewStack(ctx, cfg, tabtear.StackDeps{Logger: pslog.Ctx(ctx)})
	if err != nil {
		return err
	}
	defer st.Close()
	events, unsubscribe := st.Events.Subscribe(eventbus.AllWindows)
	defer unsubscribe()

	seed := make([]schema.TabRecord, 0, len(sc.seed))
	for _, title := range sc.seed {
		seed = append(seed, schema.TabRecord{Title: title, Content: "This is " + title})
	}
	mainID, err := st.Desktop.OpenMain(ctx, seed)
	if err != nil {
		return err
	}
	if err := st.Platform.Sync(ctx); err != nil {
		return err
	}
	r.heading(n, sc.name)
	if err := r.windows(ctx, st, "before"); err != nil {
		return err
	}
	drain(events)
	if err := sc.run(ctx, st, mainID); err != nil {
		return err
	}
	if err := st.Platform.Sync(ctx); err != nil {
		return err
	}
	if showEvents {
		for _, ev := range drain(events) {
			r.event(ev)
		}
	}
	return r.windows(ctx, st, "after")
}

func drain(events <-chan schema.DesktopEvent) []schema.DesktopEvent {
	var out []schema.DesktopEvent
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func wantColor(mode string, out io.Writer) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		f, ok := out.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("unknown color mode %q", mode)
	}
}

type renderer struct {
	out      io.Writer
	title    *color.Color
	marker   *color.Color
	selected *color.Color
	dim      *color.Color
}

func newRenderer(out io.Writer, colorize bool) *renderer {
	r := &renderer{
		out:      out,
		title:    color.New(color.Bold, color.FgCyan),
		marker:   color.New(color.FgHiMagenta),
		selected: color.New(color.FgGreen, color.Bold),
		dim:      color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{r.title, r.marker, r.selected, r.dim} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *renderer) heading(n int, name string) {
	_, _ = fmt.Fprintf(r.out, "%s\n", r.title.Sprintf("scenario %d: %s", n, name))
}

func (r *renderer) windows(ctx context.Context, st *tabtear.Stack, label string) error {
	snaps, err := st.Desktop.Windows(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.dim.Sprint(label))
	for _, snap := range snaps {
		_, _ = fmt.Fprintf(r.out, "    %s\n", r.window(snap))
	}
	return nil
}

func (r *renderer) window(snap schema.WindowSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "window %d %q", snap.ID, snap.Title)
	if snap.Main {
		b.WriteString(r.marker.Sprint(" [main]"))
	}
	if snap.Active {
		b.WriteString(r.marker.Sprint(" [active]"))
	}
	b.WriteString(": ")
	if len(snap.Tabs) == 0 {
		b.WriteString(r.dim.Sprint("(empty)"))
		return b.String()
	}
	for i, tab := range snap.Tabs {
		if i > 0 {
			b.WriteString(" | ")
		}
		if tab.Selected {
			b.WriteString(r.selected.Sprintf("*%s*", tab.Title))
		} else {
			b.WriteString(tab.Title)
		}
	}
	return b.String()
}

func (r *renderer) event(ev schema.DesktopEvent) {
	line := fmt.Sprintf("event %s window=%d", ev.Type, ev.Window)
	switch ev.Type {
	case schema.DesktopEventTabInserted, schema.DesktopEventTabRemoved, schema.DesktopEventTabSelected:
		line += fmt.Sprintf(" index=%d", ev.Index)
	}
	if ev.Tab != nil {
		line += fmt.Sprintf(" tab=%q", ev.Tab.Title)
	}
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.dim.Sprint(line))
}
