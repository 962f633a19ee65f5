package container

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	mongo "go.mongodb.org/mongo-driver/v2/mongo"
	mongooption "go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoContainerConnection struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// URI is the mongodb:// connection string for the container.
func (c MongoContainerConnection) URI() string {
	u := url.URL{
		Scheme: "mongodb",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   c.Host + ":" + c.Port,
	}
	return u.String()
}

const (
	mongoDBPort     = 27017
	mongoDBImageTag = "8.2.2"
)

// RunMongoContainer starts a MongoDB container named name, or reuses a
// running container of that name, and waits until it answers ping.
func RunMongoContainer(builder *ContainerBuilder, name string, options MongoContainerConnection) (MongoContainerConnection, error) {
	container, err := builder.FindContainer(name)
	if err != nil {
		return MongoContainerConnection{}, err
	}
	if container != nil && container.State == "running" {
		conn, err := existingMongoConnection(container, options)
		if err != nil {
			return MongoContainerConnection{}, fmt.Errorf("reuse mongo container (%s): %w", name, err)
		}
		builder.AddContainer(container.ID, ContainerInfo{Name: name, Type: ContainerTypeMongoDB})
		return conn, nil
	}

	runOptions := dockertest.RunOptions{
		Name:       name,
		Repository: "mongo",
		Tag:        mongoDBImageTag,
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=" + options.Username,
			"MONGO_INITDB_ROOT_PASSWORD=" + options.Password,
		},
	}
	if options.Database != "" {
		runOptions.Env = append(runOptions.Env, "MONGO_INITDB_DATABASE="+options.Database)
	}
	if options.Port != "" {
		runOptions.PortBindings = map[docker.Port][]docker.PortBinding{
			docker.Port(strconv.Itoa(mongoDBPort) + "/tcp"): {{HostIP: "127.0.0.1", HostPort: options.Port}},
		}
	}
	resource, err := builder.RunWithOptions(&runOptions, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
	})
	if err != nil {
		return MongoContainerConnection{}, err
	}
	builder.AddContainer(resource.Container.ID, ContainerInfo{Name: name, Type: ContainerTypeMongoDB})

	conn := MongoContainerConnection{
		Host:     resource.GetBoundIP(strconv.Itoa(mongoDBPort) + "/tcp"),
		Port:     resource.GetPort(strconv.Itoa(mongoDBPort) + "/tcp"),
		Username: options.Username,
		Password: options.Password,
		Database: options.Database,
	}
	err = builder.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		client, err := mongo.Connect(mongooption.Client().ApplyURI(conn.URI()))
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		return client.Ping(ctx, nil)
	})
	if err != nil {
		return MongoContainerConnection{}, fmt.Errorf("wait for mongo container (%s): %w", name, err)
	}
	return conn, nil
}

func existingMongoConnection(container *docker.APIContainers, options MongoContainerConnection) (MongoContainerConnection, error) {
	for _, bind := range container.Ports {
		if bind.PrivatePort != mongoDBPort || bind.PublicPort == 0 {
			continue
		}
		return MongoContainerConnection{
			Host:     bind.IP,
			Port:     strconv.FormatInt(bind.PublicPort, 10),
			Username: options.Username,
			Password: options.Password,
			Database: options.Database,
		}, nil
	}
	return MongoContainerConnection{}, fmt.Errorf("no public port for %d", mongoDBPort)
}
