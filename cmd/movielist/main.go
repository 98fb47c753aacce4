package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flarexio/core/model"
	"github.com/flarexio/movielist"
	"github.com/flarexio/movielist/conf"
	"github.com/flarexio/movielist/discovery"
	"github.com/flarexio/movielist/list"
	"github.com/flarexio/movielist/persistence"
	"github.com/flarexio/movielist/resilience"
	"github.com/flarexio/movielist/tmdb"

	transHTTP "github.com/flarexio/movielist/transport/http"
	transPubSub "github.com/flarexio/movielist/transport/pubsub"
)

var (
	Version   string = "0.0.0"
	BuildTime string
	GitCommit string
)

var versionCmd = &cli.Command{
	Name:    "version",
	Aliases: []string{"ver", "v"},
	Usage:   "Show version",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "Show all information (include: Version, BuildTime, GitCommit)",
			Value:   false,
		},
	},
	Action: func(ctx *cli.Context) error {
		if !ctx.Bool("all") {
			fmt.Println(ctx.App.Version)
		} else {
			cli.ShowVersion(ctx)
		}
		return nil
	},
}

func main() {
	// variables in .env are visible to the flags and the config file
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal(err)
	}

	cli.VersionPrinter = func(cli *cli.Context) {
		fmt.Println("Version: " + cli.App.Version)
		fmt.Println("BuildTime: " + BuildTime)
		fmt.Println("GitCommit: " + GitCommit)
	}

	app := &cli.App{
		Name:     "movielist",
		Usage:    "Resilient TMDB proxy and movie list backend",
		Version:  Version,
		Commands: []*cli.Command{versionCmd},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Specifies the working directory",
				EnvVars: []string{"MOVIELIST_PATH"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Specifies the HTTP service port",
				Value:   8080,
				EnvVars: []string{"MOVIELIST_HTTP_PORT"},
			},
			&cli.BoolFlag{
				Name:    "datagen",
				Usage:   "Seed a sample movie list on startup",
				Value:   false,
				EnvVars: []string{"MOVIELIST_DATAGEN"},
			},
			&cli.BoolFlag{
				Name:    "log-production",
				Usage:   "Log JSON at info level",
				Value:   false,
				EnvVars: []string{"MOVIELIST_LOG_PRODUCTION"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

type application struct {
	svc       movielist.Service
	endpoints movielist.EndpointSet
	router    *gin.Engine
	lists     list.Repository
}

func newApplication(cfg *conf.Config, publisher list.EventPublisher, reg *prometheus.Registry, log *zap.Logger) (*application, error) {
	// Add Persistence
	lists, err := persistence.NewListRepository(cfg.Persistence)
	if err != nil {
		log.Error(err.Error(),
			zap.String("infra", "persistence"),
			zap.String("driver", cfg.Persistence.Driver.String()),
		)
		return nil, err
	}

	// Add TMDB
	client, err := tmdb.NewClient(cfg.TMDB, log)
	if err != nil {
		lists.Close()
		return nil, err
	}

	media := tmdb.NewMediaRepository(client, cfg.TMDB.Cache)

	// Add Service and Middlewares
	svc := movielist.NewService(lists, media)
	svc = movielist.LoggingMiddleware(log)(svc)
	svc = movielist.EventMiddleware(publisher, log)(svc)

	// Add Endpoints and Resilience
	metrics := resilience.NewMetrics(reg)
	proxyPolicy := resilience.NewPolicy("proxy", cfg.Resilience.Proxy, metrics)
	listPolicy := resilience.NewPolicy("list", cfg.Resilience.List, metrics)

	endpoints := movielist.NewEndpointSet(svc, client).
		WithProxyMiddleware(proxyPolicy.Middleware()).
		WithListMiddleware(listPolicy.Middleware())

	// Add HTTP Transport
	router := transHTTP.NewRouter(endpoints, log, transHTTP.RouterOptions{
		Origins:  cfg.CORS.Origins,
		Gatherer: reg,
		Health: func() map[string]string {
			return map[string]string{
				"persistence":         cfg.Persistence.Driver.String(),
				"circuitBreakerProxy": proxyPolicy.State(),
				"circuitBreakerList":  listPolicy.State(),
			}
		},
	})

	return &application{
		svc:       svc,
		endpoints: endpoints,
		router:    router,
		lists:     lists,
	}, nil
}

func (app *application) Close() error {
	return app.lists.Close()
}

func run(cli *cli.Context) error {
	err := conf.LoadEnv(cli)
	if err != nil {
		return err
	}

	cfg, err := conf.LoadConfig()
	if err != nil {
		return err
	}

	production := cli.Bool("log-production")
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := newLogger(production)
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	ctx := context.WithValue(context.Background(), model.Logger, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Add PubSub
	var nc *nats.Conn
	publisher := transPubSub.NopPublisher()
	if cfg.EventBus.Enabled {
		log := log.With(zap.String("infra", "pubsub"))

		nc, err = transPubSub.Connect(cfg.EventBus.URL, cfg.Name, log)
		if err != nil {
			log.Error(err.Error())
			return err
		}
		defer nc.Drain()

		log.Info("connected")

		publisher = transPubSub.NewPublisher(nc, cfg.EventBus.Subject)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := newApplication(cfg, publisher, reg, log)
	if err != nil {
		log.Error(err.Error(), zap.String("phase", "startup"))
		return err
	}
	defer app.Close()

	// Add PubSub Transport
	if nc != nil {
		srv, err := micro.AddService(nc, micro.Config{
			Name:        "movielist",
			Version:     Version,
			Description: "Resilient TMDB proxy and movie list backend",
			Metadata: map[string]string{
				"id": cfg.Name,
			},
		})
		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup("movielist")

		// SUB movielist.list
		root.AddEndpoint("list", transPubSub.ListHandler(app.endpoints.List))
	}

	if cli.Bool("datagen") {
		l, err := movielist.GenerateSampleData(ctx, app.svc)
		if err != nil {
			log.Warn("sample data not generated", zap.Error(err))
		} else {
			log.Info("sample data generated", zap.Int64("list_id", l.ID))
		}
	}

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(conf.Port),
		Handler: app.router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err.Error(), zap.String("transport", "http"))
			cancel()
		}
	}()

	// Add Discovery
	if consul := cfg.Discovery.Consul; consul.Enabled {
		registrar, err := discovery.NewConsulRegistrar(consul, conf.Port, log)
		if err != nil {
			return err
		}

		if err := registrar.Register(); err != nil {
			return err
		}
		defer registrar.Deregister()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sign := <-quit:
		log.Info("shutdown", zap.String("signal", sign.String()))
	case <-ctx.Done():
		log.Info("shutdown", zap.String("reason", "server stopped"))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}
