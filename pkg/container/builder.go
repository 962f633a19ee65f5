package container

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

type ContainerType string

const (
	ContainerTypeMongoDB ContainerType = "mongodb"
)

type ContainerInfo struct {
	Name string
	Type ContainerType
}

// ContainerBuilder starts test dependencies in docker and remembers them so
// PruneAll can remove them after the suite.
type ContainerBuilder struct {
	*dockertest.Pool

	mu         sync.Mutex
	containers map[string]ContainerInfo
}

// NewContainerBuilder connects to the docker daemon at endpoint. An empty
// endpoint uses DOCKER_HOST or the platform default.
func NewContainerBuilder(endpoint string) (*ContainerBuilder, error) {
	pool, err := dockertest.NewPool(endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect docker, err: %w", err)
	}
	if err := pool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("ping docker, err: %w", err)
	}
	pool.MaxWait = 2 * time.Minute
	return &ContainerBuilder{
		Pool:       pool,
		containers: map[string]ContainerInfo{},
	}, nil
}

// FindContainer returns the container named name, or nil when none exists.
func (b *ContainerBuilder) FindContainer(name string) (*docker.APIContainers, error) {
	containers, err := b.Client.ListContainers(docker.ListContainersOptions{
		All:     true,
		Filters: map[string][]string{"name": {name}},
	})
	if err != nil {
		return nil, fmt.Errorf("list containers, err: %w", err)
	}
	for i := range containers {
		for _, n := range containers[i].Names {
			if strings.TrimPrefix(n, "/") == name {
				return &containers[i], nil
			}
		}
	}
	return nil, nil
}

func (b *ContainerBuilder) AddContainer(id string, info ContainerInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.containers[id] = info
}

// PruneAll force removes every container registered with AddContainer.
func (b *ContainerBuilder) PruneAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, info := range b.containers {
		err := b.Client.RemoveContainer(docker.RemoveContainerOptions{
			ID:            id,
			Force:         true,
			RemoveVolumes: true,
		})
		var noSuch *docker.NoSuchContainer
		if err != nil && !errors.As(err, &noSuch) {
			return fmt.Errorf("remove container %s (%s), err: %w", info.Name, info.Type, err)
		}
		delete(b.containers, id)
	}
	return nil
}
