package orchestrator

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/randomizedcoder/go-sidecar-shell/internal/health"
)

// printExitSummary prints a summary of the session.
func (o *Orchestrator) printExitSummary(w io.Writer) {
	summary := o.metrics.GenerateSummary()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                     go-sidecar-shell Exit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Run Duration:           %s\n", formatDuration(summary.Duration))
	fmt.Fprintf(w, "Port:                   %d\n", o.port)
	fmt.Fprintf(w, "Launcher:               %s\n", o.launcher.Name())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Resolution:")
	switch {
	case summary.Failure != "":
		fmt.Fprintf(w, "  Outcome:              failed (%s)\n", firstLine(summary.Failure))
	case summary.Endpoint != "":
		fmt.Fprintf(w, "  Outcome:              ok\n")
		fmt.Fprintf(w, "  Endpoint:             %s\n", summary.Endpoint)
	default:
		fmt.Fprintf(w, "  Outcome:              unresolved\n")
	}
	if summary.ResolutionTime > 0 {
		fmt.Fprintf(w, "  Took:                 %s\n", summary.ResolutionTime.Round(time.Millisecond))
	}
	for _, d := range sortedKeys(summary.Decisions) {
		fmt.Fprintf(w, "  Decision %-12s %d\n", d+":", summary.Decisions[d])
	}
	fmt.Fprintln(w)

	if o.prober != nil {
		printed := false
		for _, kind := range []health.Kind{health.KindTCP, health.KindHTTP} {
			lat := o.prober.Latency(kind)
			if lat.Count == 0 {
				continue
			}
			if !printed {
				fmt.Fprintln(w, "Probe Latency:")
				printed = true
			}
			fmt.Fprintf(w, "  %-4s n=%-5d P50 %-8s P95 %-8s P99 %s\n", kind, lat.Count,
				formatMs(lat.P50), formatMs(lat.P95), formatMs(lat.P99))
		}
		if printed {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, "Sidecar:")
	fmt.Fprintf(w, "  Total Starts:         %d\n", summary.Starts)
	if pid := o.lastPID.Load(); pid > 0 {
		fmt.Fprintf(w, "  Last PID:             %d\n", pid)
	}
	if summary.UptimeMax > 0 {
		fmt.Fprintf(w, "  Longest Uptime:       %s\n", formatDuration(summary.UptimeMax))
	}
	for _, stream := range sortedKeys(summary.Lines) {
		fmt.Fprintf(w, "  Lines (%s):%s%d\n", stream, pad(len(stream)), summary.Lines[stream])
	}
	fmt.Fprintln(w)

	if len(summary.ExitCodes) > 0 {
		codes := make([]int, 0, len(summary.ExitCodes))
		for code := range summary.ExitCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		fmt.Fprintln(w, "Exit Codes:")
		for _, code := range codes {
			fmt.Fprintf(w, "  %3d %-16s %d\n", code, exitCodeLabel(code), summary.ExitCodes[code])
		}
		fmt.Fprintln(w)
	}

	if o.metricsServer != nil {
		fmt.Fprintf(w, "Metrics endpoint was: http://%s/metrics\n", o.metricsServer.Addr())
	}
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatMs formats a duration as milliseconds.
func formatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%dms", ms)
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	case -1:
		return "(signaled)"
	default:
		return ""
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// pad aligns "Lines (stream):" with the other rows.
func pad(streamLen int) string {
	n := 14 - streamLen
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("%*s", n, "")
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
