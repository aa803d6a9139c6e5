package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(ResolutionEvents, StrategySelected, ActiveResolutions)

	ResolutionEvents.WithLabelValues("start").Inc()
	StrategySelected.WithLabelValues("http").Add(2)
	ActiveResolutions.Set(3)

	expectedEvents := `# HELP docdock_resolution_events_total Count of resolution events processed by the reconciler.
# TYPE docdock_resolution_events_total counter
docdock_resolution_events_total{type="start"} 1
`
	if err := testutil.CollectAndCompare(ResolutionEvents, strings.NewReader(expectedEvents)); err != nil {
		t.Fatalf("unexpected events metric: %v", err)
	}

	expectedStrategies := `# HELP docdock_strategy_selected_total Acquisition strategies selected by the scheme dispatcher.
# TYPE docdock_strategy_selected_total counter
docdock_strategy_selected_total{scheme="http"} 2
`
	if err := testutil.CollectAndCompare(StrategySelected, strings.NewReader(expectedStrategies)); err != nil {
		t.Fatalf("unexpected strategy metric: %v", err)
	}

	expectedGauge := `# HELP docdock_active_resolutions Number of in-flight resolution tasks.
# TYPE docdock_active_resolutions gauge
docdock_active_resolutions 3
`
	if err := testutil.CollectAndCompare(ActiveResolutions, strings.NewReader(expectedGauge)); err != nil {
		t.Fatalf("unexpected active resolutions gauge: %v", err)
	}
}
