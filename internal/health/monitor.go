// Package health polls each node's metrics endpoint until its storage
// backend reports ready, with bounded exponential backoff.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chaoscert/internal/cluster"
	"chaoscert/internal/logging"
)

// backendStateMetric is the health signal inside the metrics payload;
// readySentinel is the value meaning the backend is initialized and serving
const (
	backendStateMetric = "backend.backend_state"
	readySentinel      = 1
)

// metricsPayload is the subset of the node's /metrics JSON the monitor reads
type metricsPayload struct {
	Metrics map[string]metricValue `json:"metrics"`
}

type metricValue struct {
	Value *int `json:"value"`
}

// Monitor polls node metrics endpoints for readiness
type Monitor struct {
	policy Policy
	client *http.Client
	logger *logging.Logger

	// sleep is swappable so tests can observe the backoff schedule
	// without waiting it out
	sleep func(time.Duration)
}

// NewMonitor creates a monitor with the given retry policy
func NewMonitor(policy Policy, timeout time.Duration, logger *logging.Logger) *Monitor {
	return &Monitor{
		policy: policy,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		sleep:  time.Sleep,
	}
}

// AwaitHealthy blocks until every node reports ready, checking nodes
// strictly in index order. Exhausting the retry budget on any node aborts
// the whole run.
func (m *Monitor) AwaitHealthy(ctx context.Context, nodes []*cluster.Node) error {
	for _, node := range nodes {
		if err := m.awaitNode(ctx, node); err != nil {
			node.SetHealth(cluster.HealthDown)
			return fmt.Errorf("node %d did not become healthy: %w", node.Index, err)
		}
		m.logger.Info("Node is ready", "node", node.Index)
	}
	m.logger.Info("All nodes are ready", "nodes", len(nodes))
	return nil
}

func (m *Monitor) awaitNode(ctx context.Context, node *cluster.Node) error {
	node.SetHealth(cluster.HealthPolling)

	lastReason := "not polled"
	for attempt := 0; attempt < m.policy.Tries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := m.probe(ctx, node)
		switch res.outcome {
		case OutcomeReady:
			node.SetHealth(cluster.HealthHealthy)
			return nil
		case OutcomeFatal:
			return res.err
		case OutcomeRetry:
			lastReason = res.reason
			m.logger.Warn("Node not ready, waiting",
				"node", node.Index, "attempt", attempt+1, "reason", res.reason)
		}

		if attempt < m.policy.Tries-1 {
			m.sleep(m.policy.Backoff(attempt))
		}
	}

	return fmt.Errorf("not ready after %d attempts: %s", m.policy.Tries, lastReason)
}

// probe performs one readiness check against the node's metrics endpoint.
// All classification lives here: connection failures, non-200 statuses,
// unparsable payloads, a missing backend-state metric and a not-ready value
// are all retryable. Only a malformed request URL is fatal.
func (m *Monitor) probe(ctx context.Context, node *cluster.Node) probeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, node.MetricsURL(), nil)
	if err != nil {
		return fatal(fmt.Errorf("failed to build metrics request: %w", err))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return retry(fmt.Sprintf("failed to get metrics: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return retry(fmt.Sprintf("metrics endpoint returned HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry(fmt.Sprintf("failed to read metrics body: %v", err))
	}

	var payload metricsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return retry(fmt.Sprintf("failed to decode metrics: %v", err))
	}

	state, ok := payload.Metrics[backendStateMetric]
	if !ok || state.Value == nil {
		return retry("no backend state metric")
	}

	if *state.Value != readySentinel {
		return retry(fmt.Sprintf("backend state is %d", *state.Value))
	}

	return ready()
}
