package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"yatube/cache"
	"yatube/crud"
	"yatube/database"
	"yatube/domain"
	"yatube/events"
	"yatube/http"
	"yatube/log"
	"yatube/paginate"
)

// Version is set via ldflags during build.
var Version = "dev"

// main is the app's entry point.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the state shared by all commands: the flags of the root
// command and the configuration loaded from them.
type cli struct {
	configPath string
	prod       bool
	cfg        Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "yatube",
		Short: "Yatube - a small blogging platform",
		Long: `Yatube is a blogging platform where users write posts, sort them
into groups, comment on each other's posts and follow their favourite
authors.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./config.yaml)")
	// In production a config file is required and the app refuses to
	// start without one.
	root.PersistentFlags().BoolVar(&c.prod, "prod", false, "run in production mode, requires a config file")

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.resetCmd())
	root.AddCommand(c.groupsCmd())
	root.AddCommand(c.usersCmd())
	return root
}

func (c *cli) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(c.configPath, c.prod)
	if err != nil {
		return err
	}
	c.cfg = cfg
	log.Init(cfg.logConfig())
	return nil
}

// open connects to the database and starts the crud services on top of it.
func (c *cli) open() (*database.DB, *crud.Services, error) {
	db := database.NewDB(c.cfg.Database)
	if err := database.Open(db, c.cfg.IsProd()); err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	services, err := crud.NewServices(
		db.Gorm,
		crud.WithUser(c.cfg.Pepper, c.cfg.HMACKey),
		crud.WithGroup(),
		crud.WithPost(),
		crud.WithComment(),
		crud.WithFollow(),
		crud.WithImage(c.cfg.MediaRoot),
	)
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	return db, services, nil
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the web server. Migrations are applied before the server starts
listening. The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, services, err := c.open()
			if err != nil {
				return err
			}
			defer database.Close(db)
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrating database: %w", err)
			}

			index := cache.NewInstrumented[*paginate.Page[domain.Post]]("index",
				cache.NewMemory[*paginate.Page[domain.Post]](c.cfg.CacheSize, c.cfg.CacheTTL))

			var publisher events.Publisher = events.NopPublisher{}
			if len(c.cfg.Kafka.Brokers) > 0 {
				publisher = events.NewKafkaPublisher(events.KafkaConfig{
					Brokers: c.cfg.Kafka.Brokers,
					Topic:   c.cfg.Kafka.Topic,
				})
				log.Logger.Info().Strs("brokers", c.cfg.Kafka.Brokers).Str("topic", c.cfg.Kafka.Topic).Msg("publishing events to kafka")
			}
			defer publisher.Close()

			server, err := http.NewServer(http.Config{
				IsProd:    c.cfg.IsProd(),
				CSRFKey:   c.cfg.CSRFKey,
				MediaRoot: c.cfg.MediaRoot,
			}, services, index, publisher)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, c.cfg.Addr())
		},
	}
}
