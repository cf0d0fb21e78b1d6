package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danielpatrickdp/signal-audit/internal/eval"
	"github.com/danielpatrickdp/signal-audit/internal/logging"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
	"github.com/danielpatrickdp/signal-audit/internal/replay"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printView(w io.Writer, view orchestrator.SystemView) error {
	if a.jsonOut {
		return writeJSON(w, view)
	}
	fmt.Fprintf(w, "decisions: %d total, %d clear, %d partial, %d blind\n\n",
		view.Stats.Total, view.Stats.Clear, view.Stats.Partial, view.Stats.Blind)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCATEGORY\tSIGNALS")
	for _, d := range view.Decisions {
		sigs := make([]string, len(d.RequiredSignals))
		for i, s := range d.RequiredSignals {
			sigs[i] = fmt.Sprintf("%s=%s", s.ID, s.CurrentStatus)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Status, d.Category, strings.Join(sigs, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(view.RecentEvents) > 0 {
		fmt.Fprintln(w, "\nrecent events:")
		for _, e := range view.RecentEvents {
			fmt.Fprintf(w, "  %s  %-28s %g\n", time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339), e.Name, e.Value)
		}
	}
	if view.LastScan != nil {
		fmt.Fprintf(w, "\nlast scan: %s score=%d status=%s\n", view.LastScan.URL, view.LastScan.Score, view.LastScan.Status)
	}
	return nil
}

func (a *app) printScan(w io.Writer, res scan.Result, view orchestrator.SystemView) error {
	if a.jsonOut {
		return writeJSON(w, map[string]any{"result": res, "system": view})
	}
	if res.Timed() {
		fmt.Fprintf(w, "%s: score %d in %dms\n", res.URL, res.Score, res.Duration)
	} else {
		fmt.Fprintf(w, "%s: score %d (untimed)\n", res.URL, res.Score)
	}
	for _, ev := range res.Events(0) {
		if ev.Value == 1 {
			fmt.Fprintf(w, "  + %s\n", ev.Name)
		}
	}
	fmt.Fprintln(w)
	return a.printView(w, view)
}

func (a *app) printEval(w io.Writer, res eval.EvalResult) error {
	if a.jsonOut {
		return writeJSON(w, res)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tVALUE\tPASS")
	for _, m := range res.Metrics {
		fmt.Fprintf(tw, "%s\t%g\t%v\n", m.Name, m.Value, m.Pass)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, res.Reason)
	return nil
}

func (a *app) printVersions(w io.Writer, versions []state.Version, active string) error {
	if a.jsonOut {
		return writeJSON(w, versions)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tVERSION\tCREATED\tEVENTS\tCLEAR\tPARTIAL\tBLIND")
	for _, v := range versions {
		mark := ""
		if v.VersionID == active {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n", mark, v.VersionID,
			v.CreatedAt.Format(time.RFC3339), len(v.Snapshot.Events),
			v.Stats.Clear, v.Stats.Partial, v.Stats.Blind)
	}
	return tw.Flush()
}

func (a *app) printPasses(w io.Writer, passes []logging.PassEntry) error {
	if a.jsonOut {
		return writeJSON(w, passes)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTRIGGER\tEVENTS\tVERSION\tSTATS")
	for _, p := range passes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.CreatedAt.Format(time.RFC3339), p.Trigger,
			p.EventsAppended, p.VersionID, p.StatsJSON)
	}
	return tw.Flush()
}

func (a *app) printReplay(w io.Writer, path, desc string, results []replay.ReplayResult, summary replay.ReplaySummary) error {
	if a.jsonOut {
		return writeJSON(w, map[string]any{"fixture": path, "results": results, "passed": summary.Passed, "failed": summary.Failed})
	}
	fmt.Fprintf(w, "%s: %s\n", path, desc)
	for i, r := range results {
		mark := "ok"
		if !r.Passed() {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  [%d] %-4s %s (events=%d clear=%d partial=%d blind=%d)\n",
			i+1, mark, r.Label, r.EventCount, r.Stats.Clear, r.Stats.Partial, r.Stats.Blind)
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "         %s\n", m)
		}
		if !r.EvalResult.Passed {
			fmt.Fprintf(w, "         %s\n", r.EvalResult.Reason)
		}
	}
	fmt.Fprintf(w, "  %d/%d steps passed\n", summary.Passed, summary.TotalSteps)
	return nil
}
