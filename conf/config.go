package conf

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/movielist/resilience"
)

var (
	Path string
	Port int
)

func LoadEnv(cli *cli.Context) error {
	path := cli.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = homeDir + "/.flarex/movielist"
	}

	Path = path
	Port = cli.Int("port")
	return nil
}

func LoadConfig() (*Config, error) {
	f, err := os.Open(Path + "/config.yaml")
	if err != nil {
		f, err = os.Open(Path + "/config.example.yaml")
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()

	r := NewEnvExpandedReader(f)

	var cfg *Config
	if err := decode(r, &cfg); err != nil {
		return nil, err
	}

	if cfg == nil {
		return nil, errors.New("empty configuration")
	}

	return cfg, nil
}

func decode(r io.Reader, cfg **Config) error {
	return yaml.NewDecoder(r).Decode(cfg)
}

type Config struct {
	Name        string      `yaml:"name"`
	BaseURL     string      `yaml:"baseUrl"`
	Persistence Persistence `yaml:"persistence"`
	TMDB        TMDB        `yaml:"tmdb"`
	Resilience  Resilience  `yaml:"resilience"`
	EventBus    EventBus    `yaml:"eventBus"`
	Discovery   Discovery   `yaml:"discovery"`
	CORS        CORS        `yaml:"cors"`
}

type PersistenceDriver int

const (
	SQLite PersistenceDriver = iota
	BadgerDB
)

func ParsePersistenceDriver(driver string) (PersistenceDriver, error) {
	switch driver {
	case "sqlite", "":
		return SQLite, nil
	case "badger":
		return BadgerDB, nil
	default:
		return -1, errors.New("driver not supported")
	}
}

func (driver PersistenceDriver) String() string {
	switch driver {
	case SQLite:
		return "sqlite"
	case BadgerDB:
		return "badger"
	default:
		return "unknown"
	}
}

type Persistence struct {
	Driver PersistenceDriver
	Name   string
	Host   string
	InMem  bool
}

func (p *Persistence) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Driver string `yaml:"driver"`
		Name   string `yaml:"name"`
		Host   string `yaml:"host"`
		InMem  bool   `yaml:"inmem"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	driver, err := ParsePersistenceDriver(raw.Driver)
	if err != nil {
		return err
	}

	p.Driver = driver
	p.Name = raw.Name
	if p.Name == "" {
		p.Name = "movielist"
	}

	p.Host = raw.Host
	if raw.Host == "" {
		p.Host = Path
	}

	p.InMem = raw.InMem

	return nil
}

type TMDB struct {
	API     Upstream
	Image   Upstream
	Timeout time.Duration
	Cache   Cache
}

func (t *TMDB) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		API     Upstream `yaml:"api"`
		Image   Upstream `yaml:"image"`
		Timeout string   `yaml:"timeout"`
		Cache   Cache    `yaml:"cache"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.API.URI == "" {
		raw.API.URI = "https://api.themoviedb.org"
	}

	if raw.Image.URI == "" {
		raw.Image.URI = "https://image.tmdb.org"
	}

	t.API = raw.API
	t.Image = raw.Image
	t.Cache = raw.Cache

	if raw.Timeout == "" {
		t.Timeout = 10 * time.Second
	} else {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return err
		}

		t.Timeout = timeout
	}

	return nil
}

type Upstream struct {
	URI           string `yaml:"uri"`
	ReadAccessKey string `yaml:"readAccessKey"`
}

type Cache struct {
	Expiration time.Duration `yaml:"expiration"`
	Cleanup    time.Duration `yaml:"cleanup"`
}

// Resilience holds the named resilience instances. The names match
// the instances created in cmd: "proxy" guards the TMDB proxy routes,
// "list" guards the movie list routes.
type Resilience struct {
	Proxy resilience.Config `yaml:"proxy"`
	List  resilience.Config `yaml:"list"`
}

type EventBus struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type Discovery struct {
	Consul Consul `yaml:"consul"`
}

type Consul struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Service string `yaml:"service"`
	Host    string `yaml:"host"`
}

type CORS struct {
	Origins []string `yaml:"origins"`
}
