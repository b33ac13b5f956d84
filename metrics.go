package qnode

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	transitionsMetric = "qnode_state_transitions_total"
	occupancyMetric   = "qnode_nodes_in_state"
	stepsMetric       = "qnode_simulation_steps_total"
	clockMetric       = "qnode_simulation_clock"
)

/*
Metrics tracks how the cluster evolves: how many state changes happened,
between which states, how many nodes currently sit in each state, and how far
the clock has advanced. Collectors live on a private registry so several
clusters can coexist, and every report is read back from that registry.
*/
type Metrics struct {
	Registry    *prometheus.Registry
	Transitions *prometheus.CounterVec
	Occupancy   *prometheus.GaugeVec
	Steps       prometheus.Counter
	Clock       prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: transitionsMetric,
				Help: "Total number of recorded node state changes",
			},
			[]string{"from", "to"},
		),
		Occupancy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: occupancyMetric,
				Help: "Number of nodes currently in each state",
			},
			[]string{"state"},
		),
		Steps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: stepsMetric,
				Help: "Total number of simulation steps driven",
			},
		),
		Clock: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: clockMetric,
				Help: "Timestamp of the last completed simulation step",
			},
		),
	}

	m.Registry.MustRegister(m.Transitions, m.Occupancy, m.Steps, m.Clock)
	return m
}

// Track seeds the occupancy gauge with the current state of every node.
func (m *Metrics) Track(cluster *Cluster) {
	for _, s := range States {
		m.Occupancy.WithLabelValues(s.String()).Set(0)
	}
	for _, node := range cluster.Nodes() {
		m.Occupancy.WithLabelValues(node.State().String()).Inc()
	}
}

// Observe matches the Node state observer signature.
func (m *Metrics) Observe(_ *Node, from, to State, _ float64) {
	m.Transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.Occupancy.WithLabelValues(from.String()).Dec()
	m.Occupancy.WithLabelValues(to.String()).Inc()
}

func (m *Metrics) recordStep(timestamp float64) {
	m.Steps.Inc()
	m.Clock.Set(timestamp)
}

/*
Snapshot is the gathered content of the registry. Transitions are keyed
"from->to" and only hold pairs that actually occurred.
*/
type Snapshot struct {
	Transitions map[string]float64
	Occupancy   map[State]float64
	Steps       float64
	Clock       float64
}

// Total sums every recorded transition.
func (s Snapshot) Total() float64 {
	total := 0.0
	for _, v := range s.Transitions {
		total += v
	}
	return total
}

// Snapshot gathers the registry and folds it into plain values.
func (m *Metrics) Snapshot() (Snapshot, error) {
	families, err := m.Registry.Gather()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gathering metrics: %w", err)
	}

	snap := Snapshot{
		Transitions: make(map[string]float64),
		Occupancy:   make(map[State]float64),
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}

			switch family.GetName() {
			case transitionsMetric:
				snap.Transitions[labels["from"]+"->"+labels["to"]] = metric.GetCounter().GetValue()
			case occupancyMetric:
				snap.Occupancy[State(labels["state"])] = metric.GetGauge().GetValue()
			case stepsMetric:
				snap.Steps = metric.GetCounter().GetValue()
			case clockMetric:
				snap.Clock = metric.GetGauge().GetValue()
			}
		}
	}

	return snap, nil
}

// ExportMetrics flattens the gathered registry for printing.
func (m *Metrics) ExportMetrics() (map[string]interface{}, error) {
	snap, err := m.Snapshot()
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{
		"steps":       snap.Steps,
		"clock":       snap.Clock,
		"transitions": snap.Total(),
	}
	for pair, v := range snap.Transitions {
		out["transitions."+pair] = v
	}
	for state, v := range snap.Occupancy {
		out["nodes."+state.String()] = v
	}
	return out, nil
}

// WriteText encodes the registry in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return err
		}
	}
	return nil
}
