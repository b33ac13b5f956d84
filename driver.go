package qnode

/*
Driver advances a cluster through discrete time steps. Each step moves the
clock forward by a fixed amount and gives every node, in cluster order, one
chance to change state. Everything runs synchronously on the caller's
goroutine.
*/
type Driver struct {
	cluster  *Cluster
	timeStep float64
	clock    float64

	// OnStep is called with the new timestamp before the nodes are visited.
	OnStep func(step int, timestamp float64)

	metrics *Metrics
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

func WithStepHook(fn func(step int, timestamp float64)) DriverOption {
	return func(d *Driver) {
		d.OnStep = fn
	}
}

func WithMetrics(m *Metrics) DriverOption {
	return func(d *Driver) {
		d.metrics = m
	}
}

func NewDriver(cluster *Cluster, timeStep float64, opts ...DriverOption) *Driver {
	d := &Driver{
		cluster:  cluster,
		timeStep: timeStep,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Clock returns the timestamp of the last completed step.
func (d *Driver) Clock() float64 {
	return d.clock
}

// Run drives the given number of steps, stopping at the first node error.
func (d *Driver) Run(steps int) error {
	for step := 1; step <= steps; step++ {
		d.clock += d.timeStep

		if d.OnStep != nil {
			d.OnStep(step, d.clock)
		}

		for _, node := range d.cluster.nodes {
			if err := node.SimulateActivity(d.clock); err != nil {
				return err
			}
		}

		if d.metrics != nil {
			d.metrics.recordStep(d.clock)
		}
	}

	return nil
}

// Run is shorthand for driving a cluster from timestamp 0.0.
func Run(cluster *Cluster, steps int, timeStep float64) error {
	return NewDriver(cluster, timeStep).Run(steps)
}
