package discovery

import (
	"fmt"
	"os"

	"github.com/hashicorp/consul/api"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/flarexio/movielist/conf"
)

type Registrar struct {
	agent *api.Agent
	reg   *api.AgentServiceRegistration
	log   *zap.Logger
}

// NewConsulRegistrar registers the HTTP service listening on port
// with a health check against /health.
func NewConsulRegistrar(cfg conf.Consul, port int, log *zap.Logger) (*Registrar, error) {
	config := api.DefaultConfig()
	if cfg.Address != "" {
		config.Address = cfg.Address
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}

	name := cfg.Service
	if name == "" {
		name = "movielist"
	}

	host := cfg.Host
	if host == "" {
		host, err = os.Hostname()
		if err != nil {
			return nil, err
		}
	}

	reg := &api.AgentServiceRegistration{
		ID:      name + "-" + ulid.Make().String(),
		Name:    name,
		Address: host,
		Port:    port,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", host, port),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	return &Registrar{
		agent: client.Agent(),
		reg:   reg,
		log: log.With(
			zap.String("infra", "discovery"),
			zap.String("provider", "consul"),
			zap.String("service_id", reg.ID),
		),
	}, nil
}

func (r *Registrar) ID() string {
	return r.reg.ID
}

func (r *Registrar) Register() error {
	if err := r.agent.ServiceRegister(r.reg); err != nil {
		r.log.Error(err.Error())
		return err
	}

	r.log.Info("service registered")
	return nil
}

func (r *Registrar) Deregister() error {
	if err := r.agent.ServiceDeregister(r.reg.ID); err != nil {
		r.log.Error(err.Error())
		return err
	}

	r.log.Info("service deregistered")
	return nil
}
