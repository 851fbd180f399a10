package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/bodysim/internal/board"
	"github.com/udisondev/bodysim/internal/body"
	"github.com/udisondev/bodysim/internal/config"
	"github.com/udisondev/bodysim/internal/data"
	"github.com/udisondev/bodysim/internal/db"
	"github.com/udisondev/bodysim/internal/entity"
	"github.com/udisondev/bodysim/internal/script"
)

const ConfigPath = "config/bodysim.yaml"

// hazardInterval is how often each board strikes one random creature.
const hazardInterval = time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// population is one board with the creatures living on it.
type population struct {
	board     *board.Manager
	creatures []*entity.Creature
	hazard    *board.Hazard
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("BODYSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadSimulation(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel, err := cfg.SlogLevel()
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("bodysim starting",
		"log_level", cfg.LogLevel,
		"mode", cfg.Mode,
		"script_engine", cfg.ScriptEngine,
		"ticks_per_second", cfg.TicksPerSecond)

	provider, err := script.ForMode(cfg.SimMode(), cfg.ScriptEngine)
	if err != nil {
		return fmt.Errorf("creating script provider: %w", err)
	}

	catalog, err := data.LoadCatalog(data.Paths{
		InjuryTypes: cfg.Data.InjuryTypes,
		DamageTypes: cfg.Data.DamageTypes,
		Templates:   cfg.Data.Templates,
	}, provider)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	slog.Info("catalog loaded",
		"injury_types", len(catalog.Registry.InjuryTypes()),
		"damage_types", len(catalog.Registry.DamageTypes()),
		"templates", len(catalog.Templates))

	tpl, ok := catalog.Template(cfg.Template)
	if !ok {
		return fmt.Errorf("template %q not found", cfg.Template)
	}

	pops := make([]*population, 0, cfg.Boards)
	for i := range cfg.Boards {
		pop, err := populate(cfg, catalog, tpl, fmt.Sprintf("board-%d", i+1), uint64(i+1))
		if err != nil {
			return err
		}
		pops = append(pops, pop)
	}

	var snapshots *db.SnapshotService
	if cfg.Database.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if _, err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		snapshots = db.NewSnapshotService(database.Pool(), db.NewBodyRepository(database.Pool()), body.Resolver{Registry: catalog.Registry})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pop := range pops {
		g.Go(func() error {
			if err := pop.board.Start(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("board %s: %w", pop.board.Name(), err)
			}
			return nil
		})
		g.Go(func() error {
			return strikeLoop(gctx, pop)
		})
		if snapshots != nil {
			g.Go(func() error {
				return snapshotLoop(gctx, pop, snapshots, cfg.Template, cfg.SnapshotInterval)
			})
		}
	}

	slog.Info("bodysim running", "boards", len(pops), "creatures_per_board", cfg.CreaturesPerBoard)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	slog.Info("bodysim stopped")
	return nil
}

// populate builds a board with cfg.CreaturesPerBoard creatures from tpl.
func populate(cfg config.Simulation, catalog *data.Catalog, tpl *body.Template, name string, seed uint64) (*population, error) {
	pop := &population{
		board:  board.NewManager(name, cfg.TicksPerSecond),
		hazard: board.NewHazard(catalog.Registry.DamageTypes(), 1, 15, seed),
	}
	for i := range cfg.CreaturesPerBoard {
		b, err := tpl.Build(nil,
			body.WithRegistry(catalog.Registry),
			body.WithMode(cfg.SimMode()),
			body.WithTicksPerSecond(cfg.TicksPerSecond),
		)
		if err != nil {
			return nil, fmt.Errorf("building %s creature %d: %w", name, i, err)
		}
		c := entity.New(fmt.Sprintf("%s-%s-%d", tpl.Name, name, i+1))
		c.AttachBody(b)
		c.OnDied().Subscribe(func(d entity.Death) {
			slog.Info("creature died", "board", name, "creature", d.Creature.Name(), "reason", d.Reason)
		})
		pop.board.Register(c.ID().String(), b)
		pop.creatures = append(pop.creatures, c)
	}
	return pop, nil
}

// strikeLoop periodically damages one random living creature of pop.
func strikeLoop(ctx context.Context, pop *population) error {
	ticker := time.NewTicker(hazardInterval)
	defer ticker.Stop()

	next := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pop.board.Done():
			return nil
		case <-ticker.C:
		}
		if len(pop.creatures) == 0 {
			continue
		}
		c := pop.creatures[next%len(pop.creatures)]
		next++
		err := pop.board.Submit(ctx, func() {
			if c.IsDead() {
				return
			}
			if part, dealt := pop.hazard.Strike(c.Body()); part != nil && dealt > 0 {
				slog.Debug("hazard strike", "creature", c.Name(), "part", part.Path(), "damage", dealt)
			}
		})
		if err != nil {
			return nil
		}
	}
}

// snapshotLoop stores the bodies of pop every interval. Rows are encoded on
// the board loop and written outside it; the loop ends with the board.
func snapshotLoop(ctx context.Context, pop *population, svc *db.SnapshotService, template string, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pop.board.Done():
			return nil
		case <-ticker.C:
		}

		var rows []db.SnapshotRow
		err := pop.board.Do(ctx, func() {
			rows = make([]db.SnapshotRow, 0, len(pop.creatures))
			for _, c := range pop.creatures {
				row, err := db.Row(c, template, pop.board.Name())
				if err != nil {
					slog.Warn("encoding snapshot", "creature", c.Name(), "error", err)
					continue
				}
				rows = append(rows, row)
			}
		})
		if err != nil {
			return nil
		}
		if err := svc.SaveAll(ctx, rows); err != nil {
			slog.Error("saving snapshots", "board", pop.board.Name(), "error", err)
		}
	}
}
