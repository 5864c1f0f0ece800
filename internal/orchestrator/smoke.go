package orchestrator

import (
	"context"
	"fmt"

	"chaoscert/internal/driver"
	"chaoscert/internal/verify"
)

// smokeBehaviors is the fixed put, get, exist sequence of a smoke run.
// Each behavior targets its own node so a basic replication path is
// exercised even without failure injection.
var smokeBehaviors = []driver.Behavior{
	driver.BehaviorPut,
	driver.BehaviorGet,
	driver.BehaviorExist,
}

// RunSmoke drives the put/get/exist sequence against a healthy cluster
// with no failure injection. Put and get fail on the driver's per-behavior
// error marker; exist fails on an incomplete existence tally.
func (o *Orchestrator) RunSmoke(ctx context.Context) error {
	count := o.cfg.Driver.Count

	for i, behavior := range smokeBehaviors {
		nodeIndex := i
		if nodeIndex >= o.topo.Size() {
			nodeIndex = o.topo.Size() - 1
		}
		node, err := o.topo.Node(nodeIndex)
		if err != nil {
			return err
		}

		w := o.workload(behavior, count, 0, node.TransportPort)
		w.StartFlag = behavior != driver.BehaviorExist

		result, err := o.driver.Run(ctx, w)
		if err != nil {
			return err
		}

		switch behavior {
		case driver.BehaviorExist:
			err = verify.Exist(result.Output)
		default:
			err = verify.BehaviorMarker(string(behavior), result.Output)
		}
		if err != nil {
			return fmt.Errorf("smoke %s on node %d: %w", behavior, node.Index, err)
		}

		o.logger.Info("Smoke check passed", "behavior", behavior, "node", node.Index)
	}

	return nil
}
