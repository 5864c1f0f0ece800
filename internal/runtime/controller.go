// Package runtime resolves nodes to their containers and drives container
// lifecycle through the Docker Engine API.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"chaoscert/internal/cluster"
	"chaoscert/internal/logging"
)

// ErrContainerNotFound indicates a node's published port maps to no running
// container. It is a misconfiguration, distinct from a runtime
// communication failure.
var ErrContainerNotFound = errors.New("container not found")

// API is the slice of the Docker Engine client the controller uses
type API interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
}

// Controller issues stop/start lifecycle commands against the container
// runtime. Lifecycle errors are never retried: the commands are assumed
// idempotent but unrecoverable on failure.
type Controller struct {
	api    API
	logger *logging.Logger
}

// NewController connects to the Docker daemon from the environment
func NewController(logger *logging.Logger) (*Controller, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to container runtime: %w", err)
	}
	return &Controller{api: cli, logger: logger}, nil
}

// NewControllerWithAPI creates a controller over an existing API client
func NewControllerWithAPI(api API, logger *logging.Logger) *Controller {
	return &Controller{api: api, logger: logger}
}

// Resolve maps every node's transport port to the container publishing it
// and records the handle on the node. The mapping is computed once per run
// and never revalidated: if the runtime reassigns containers between
// resolution and use, behavior is undefined.
func (c *Controller) Resolve(ctx context.Context, nodes []*cluster.Node) (map[int]string, error) {
	containers := make(map[int]string, len(nodes))

	for _, node := range nodes {
		port := strconv.Itoa(node.TransportPort)
		list, err := c.api.ContainerList(ctx, container.ListOptions{
			Filters: filters.NewArgs(filters.Arg("publish", port)),
		})
		if err != nil {
			return nil, fmt.Errorf("container runtime query for port %s failed: %w", port, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: no running container publishes port %s", ErrContainerNotFound, port)
		}

		node.ContainerID = list[0].ID
		containers[node.TransportPort] = list[0].ID
		c.logger.NodeEvent("resolved", node.Index, node.ContainerID)
	}

	return containers, nil
}

// Stop stops a container. Any runtime error is fatal.
func (c *Controller) Stop(ctx context.Context, containerID string) error {
	if err := c.api.ContainerStop(ctx, containerID, container.StopOptions{}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", containerID, err)
	}
	return nil
}

// Start starts a container. Any runtime error is fatal.
func (c *Controller) Start(ctx context.Context, containerID string) error {
	if err := c.api.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", containerID, err)
	}
	return nil
}

// ListExited returns the IDs of all exited containers
func (c *Controller) ListExited(ctx context.Context) ([]string, error) {
	list, err := c.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("status", "exited")),
	})
	if err != nil {
		return nil, fmt.Errorf("container runtime query for exited containers failed: %w", err)
	}

	ids := make([]string, 0, len(list))
	for _, item := range list {
		ids = append(ids, item.ID)
	}
	return ids, nil
}
