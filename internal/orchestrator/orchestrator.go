// Package orchestrator composes the health monitor, cluster controller and
// workload driver into a failure-injection-and-recovery certification run.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"chaoscert/internal/cluster"
	"chaoscert/internal/config"
	"chaoscert/internal/driver"
	"chaoscert/internal/journal"
	"chaoscert/internal/logging"
	"chaoscert/internal/verify"
)

// Phase is a state of the certification run
type Phase string

const (
	PhaseInit          Phase = "init"
	PhaseBaselineWrite Phase = "baseline_write"
	PhaseRestartAll    Phase = "restart_all"
	PhaseAwaitHealthy  Phase = "await_healthy"
	PhaseFinalVerify   Phase = "final_verify"
	PhaseDone          Phase = "done"
	PhaseFailed        Phase = "failed"
)

// Containers is the cluster controller surface the orchestrator drives
type Containers interface {
	Resolve(ctx context.Context, nodes []*cluster.Node) (map[int]string, error)
	Stop(ctx context.Context, containerID string) error
	Start(ctx context.Context, containerID string) error
	ListExited(ctx context.Context) ([]string, error)
}

// Driver runs one workload against the cluster
type Driver interface {
	Run(ctx context.Context, w driver.Workload) (driver.Result, error)
}

// Health gates progress on every node reporting ready
type Health interface {
	AwaitHealthy(ctx context.Context, nodes []*cluster.Node) error
}

// Recorder receives run events for the journal
type Recorder interface {
	Record(event journal.Event) error
}

// RunState is the orchestrator's mutable context. Written only increases
// within a run.
type RunState struct {
	Phase   Phase
	Written uint64
	// Down maps stopped node indexes to their container handles
	Down map[int]string
}

// Orchestrator executes the certification state machine. It is strictly
// sequential: one blocking step at a time, failing fast on the first hard
// stop.
type Orchestrator struct {
	cfg        *config.Config
	topo       *cluster.Topology
	containers Containers
	driver     Driver
	health     Health
	recorder   Recorder
	logger     *logging.Logger

	sleep func(time.Duration)
	state RunState
}

// New creates an orchestrator over the given collaborators
func New(cfg *config.Config, topo *cluster.Topology, containers Containers, drv Driver, health Health, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		topo:       topo,
		containers: containers,
		driver:     drv,
		health:     health,
		logger:     logger,
		sleep:      time.Sleep,
		state: RunState{
			Phase: PhaseInit,
			Down:  make(map[int]string),
		},
	}
}

// WithRecorder attaches a run journal recorder
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// State returns a copy of the current run state
func (o *Orchestrator) State() RunState {
	state := o.state
	state.Down = make(map[int]string, len(o.state.Down))
	for k, v := range o.state.Down {
		state.Down[k] = v
	}
	return state
}

func (o *Orchestrator) enterPhase(phase Phase) {
	o.state.Phase = phase
	o.logger.Phase(string(phase), o.state.Written)
	o.record(journal.Event{
		Phase:   string(phase),
		Message: "phase entered",
		Details: map[string]string{"written": fmt.Sprintf("%d", o.state.Written)},
	})
}

func (o *Orchestrator) record(event journal.Event) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(event); err != nil {
		o.logger.Warn("Failed to record journal event", "error", err)
	}
}

func (o *Orchestrator) fail(err error) error {
	o.state.Phase = PhaseFailed
	o.record(journal.Event{
		Phase:   string(PhaseFailed),
		Message: err.Error(),
	})
	return err
}

// Run executes the full failover certification: write a baseline while
// stopping nodes one by one, restart everything, wait for health, then
// verify every written record is readable and enumerable
func (o *Orchestrator) Run(ctx context.Context) error {
	nodes := o.topo.Nodes()
	nodesAmount := o.topo.Size()

	// Init: resolve container identities and gate the record budget
	o.enterPhase(PhaseInit)
	if o.cfg.Driver.Count < uint64(nodesAmount) {
		return o.fail(fmt.Errorf("record count %d cannot be less than node count %d",
			o.cfg.Driver.Count, nodesAmount))
	}
	containers, err := o.containers.Resolve(ctx, nodes)
	if err != nil {
		return o.fail(err)
	}

	// Remainder of the integer division is dropped, not redistributed
	quota := o.cfg.Driver.Count / uint64(nodesAmount)

	// BaselineWrite: put the per-node quota into each node in turn,
	// stopping every node but the last after its write settles
	o.enterPhase(PhaseBaselineWrite)
	for _, node := range nodes {
		result, err := o.driver.Run(ctx, o.workload(driver.BehaviorPut, quota, o.state.Written, node.TransportPort))
		if err != nil {
			return o.fail(err)
		}
		if err := verify.PutGet(result.Output); err != nil {
			return o.fail(fmt.Errorf("put on node %d: %w", node.Index, err))
		}
		o.state.Written += quota
		o.record(journal.Event{
			Phase:   string(PhaseBaselineWrite),
			Message: "baseline put verified",
			Details: map[string]string{
				"node":    fmt.Sprintf("%d", node.Index),
				"written": fmt.Sprintf("%d", o.state.Written),
			},
		})

		if node.Index < nodesAmount-1 {
			o.sleep(o.cfg.Run.SettleDelay)
			if err := o.stopNode(ctx, node); err != nil {
				return o.fail(err)
			}
		}
	}

	// RestartAll: start every stopped container; map iteration order is
	// deliberately unspecified
	o.enterPhase(PhaseRestartAll)
	for port, containerID := range containers {
		o.logger.Info("Starting node container", "port", port, "container_id", containerID)
		if err := o.containers.Start(ctx, containerID); err != nil {
			return o.fail(err)
		}
	}
	o.state.Down = make(map[int]string)
	// Handles may have been reassigned by the runtime; they must be
	// re-resolved before any further lifecycle command
	o.topo.InvalidateContainers()

	// AwaitHealthy: every node must report ready before verification
	o.enterPhase(PhaseAwaitHealthy)
	if err := o.health.AwaitHealthy(ctx, nodes); err != nil {
		return o.fail(err)
	}
	o.sleep(o.cfg.Run.StartWait)

	// FinalVerify: read the whole written range back through the last
	// node, then check existence tallies
	o.enterPhase(PhaseFinalVerify)
	if err := o.finalVerify(ctx); err != nil {
		return o.fail(err)
	}

	o.enterPhase(PhaseDone)
	return nil
}

func (o *Orchestrator) stopNode(ctx context.Context, node *cluster.Node) error {
	if err := o.containers.Stop(ctx, node.ContainerID); err != nil {
		return err
	}
	node.SetHealth(cluster.HealthDown)
	o.state.Down[node.Index] = node.ContainerID
	o.logger.NodeEvent("stopped", node.Index, node.ContainerID)

	exited, err := o.containers.ListExited(ctx)
	if err != nil {
		return err
	}
	o.logger.Info("Exited containers", "containers", exited)

	o.record(journal.Event{
		Phase:   string(PhaseBaselineWrite),
		Message: "node stopped",
		Details: map[string]string{"node": fmt.Sprintf("%d", node.Index)},
	})
	return nil
}

func (o *Orchestrator) finalVerify(ctx context.Context) error {
	written := o.state.Written
	port := o.topo.Last().TransportPort

	result, err := o.driver.Run(ctx, o.workload(driver.BehaviorGet, written, 0, port))
	if err != nil {
		return err
	}
	if err := verify.PutGet(result.Output); err != nil {
		return fmt.Errorf("get over %d written records: %w", written, err)
	}

	result, err = o.driver.Run(ctx, o.workload(driver.BehaviorExist, written, 0, port))
	if err != nil {
		return err
	}
	if err := verify.Exist(result.Output); err != nil {
		return fmt.Errorf("exist over %d written records: %w", written, err)
	}

	if o.cfg.Run.DoubledExist {
		// Request a range past the written keys; only the written ones
		// may be reported as present
		result, err = o.driver.Run(ctx, o.workload(driver.BehaviorExist, 2*written+1, o.cfg.Run.DoubledExistFirst, port))
		if err != nil {
			return err
		}
		if err := verify.DoubledExist(result.Output, written); err != nil {
			return fmt.Errorf("doubled exist over %d written records: %w", written, err)
		}
	}

	return nil
}

func (o *Orchestrator) workload(behavior driver.Behavior, count, first uint64, port int) driver.Workload {
	return driver.Workload{
		Behavior: behavior,
		Count:    count,
		Payload:  o.cfg.Driver.Payload,
		Host:     o.cfg.Cluster.Host,
		First:    first,
		Threads:  o.cfg.Driver.Threads,
		Mode:     o.cfg.Driver.Mode,
		KeySize:  o.cfg.Driver.KeySize,
		Port:     port,
		User:     o.cfg.Driver.User,
		Password: o.cfg.Driver.Password,
	}
}
