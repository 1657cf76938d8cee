package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Status is what another process can learn about a running shell from its
// metrics endpoint.
type Status struct {
	State          string
	Ready          bool
	SidecarRunning bool
	Starts         int64
	Exits          int64
	Resolutions    map[string]int64
}

// Scrape fetches url and decodes the Prometheus text exposition.
func Scrape(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return DecodeText(resp.Body)
}

// DecodeText parses the Prometheus text format into families keyed by name.
func DecodeText(r io.Reader) (map[string]*dto.MetricFamily, error) {
	decoder := expfmt.NewDecoder(r, expfmt.FmtText)
	families := make(map[string]*dto.MetricFamily)

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		families[mf.GetName()] = &mf
	}
	return families, nil
}

// StatusFrom extracts the shell's status from scraped families.
func StatusFrom(families map[string]*dto.MetricFamily) Status {
	s := Status{Resolutions: make(map[string]int64)}

	if mf, ok := families[namespace+"_resolver_state"]; ok {
		for _, m := range mf.GetMetric() {
			if m.GetGauge().GetValue() == 1 {
				s.State = labelValue(m, "state")
			}
		}
	}
	s.Ready = gaugeValue(families, namespace+"_ready") == 1
	s.SidecarRunning = gaugeValue(families, namespace+"_sidecar_running") == 1
	s.Starts = counterSum(families, namespace+"_sidecar_starts_total")
	s.Exits = counterSum(families, namespace+"_sidecar_exits_total")

	if mf, ok := families[namespace+"_resolutions_total"]; ok {
		for _, m := range mf.GetMetric() {
			s.Resolutions[labelValue(m, "result")] += int64(m.GetCounter().GetValue())
		}
	}
	return s
}

func gaugeValue(families map[string]*dto.MetricFamily, name string) float64 {
	mf, ok := families[name]
	if !ok || len(mf.GetMetric()) == 0 {
		return 0
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func counterSum(families map[string]*dto.MetricFamily, name string) int64 {
	mf, ok := families[name]
	if !ok {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return int64(total)
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
