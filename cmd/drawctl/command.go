package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/urfave/cli/v2"

	"draw-service/internal/app"
	"draw-service/internal/config"
	"draw-service/internal/database"
	"draw-service/internal/logger"
	"draw-service/internal/services"
)

type drawctl struct {
	cfg *config.Config
	svc *app.Services
}

func (d *drawctl) newApp() *cli.App {
	a := cli.NewApp()
	a.Name = "drawctl"
	a.Usage = "Operate the lucky draw service"
	a.Before = d.load
	a.Commands = []*cli.Command{
		{
			Name:        "migrate",
			Usage:       "Create or update the schema",
			Category:    "Database",
			Action:      d.migrate,
			Description: `Runs AutoMigrate and seeds the default daily tasks.`,
		},
		{
			Name:        "audit",
			Usage:       "Check every balance against its ledger",
			Category:    "Ledger",
			Action:      d.audit,
			Description: `Replays completed transactions per user and lists users whose balance disagrees.`,
		},
		{
			Name:     "create-draw",
			Usage:    "Create a draw",
			Category: "Draws",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "number", Usage: "draw number", Required: true},
				&cli.TimestampFlag{Name: "at", Usage: "draw time (2006-01-02T15:04:05)", Layout: "2006-01-02T15:04:05"},
				&cli.StringFlag{Name: "description"},
			},
			Action: d.createDraw,
		},
		{
			Name:      "select-winners",
			Usage:     "Run winner selection for a draw",
			Category:  "Draws",
			ArgsUsage: "<drawId>",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "seed", Usage: "replay with a fixed random seed"},
			},
			Action: d.selectWinners,
		},
		{
			Name:        "scan",
			Usage:       "Close every due draw once",
			Category:    "Draws",
			Action:      d.scan,
			Description: `Runs one scanner pass and handles the close signals in-process.`,
		},
	}
	return a
}

func (d *drawctl) load(c *cli.Context) error {
	d.cfg = config.Load()
	logger.InitLogger(d.cfg.LogLevel)

	db, err := database.Open(d.cfg.DB)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	database.DB = db

	node, err := snowflake.NewNode(d.cfg.NodeID)
	if err != nil {
		return fmt.Errorf("invalid NODE_ID: %w", err)
	}

	var locks services.Locker = services.NewLocalLocker()
	rdb := app.RedisClient(d.cfg)
	ctx, cancel := context.WithTimeout(c.Context, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err == nil {
		locks = services.NewRedisLocker(rdb, d.cfg.Lock.TTL)
	} else {
		logger.Warningf("redis unavailable, using in-process locks: %v", err)
	}

	d.svc = app.NewServices(db, locks, node, services.LogDispatcher{}, app.RulesFromConfig(d.cfg))
	return nil
}

func (d *drawctl) migrate(c *cli.Context) error {
	if err := database.AutoMigrate(database.DB); err != nil {
		return err
	}
	logger.Info("Migrations completed successfully!")
	return nil
}

func (d *drawctl) audit(c *cli.Context) error {
	mismatches, err := d.svc.Ledger.Audit(c.Context)
	if err != nil {
		return err
	}
	if len(mismatches) == 0 {
		fmt.Println("ledger consistent")
		return nil
	}
	for _, m := range mismatches {
		fmt.Printf("%s\tbalance=%d\treplayed=%d\n", m.UserID, m.Balance, m.Replayed)
	}
	return cli.Exit(fmt.Sprintf("%d users out of balance", len(mismatches)), 1)
}

func (d *drawctl) createDraw(c *cli.Context) error {
	drawTime := time.Now().UTC()
	if ts := c.Timestamp("at"); ts != nil {
		drawTime = *ts
	}
	draw, err := d.svc.Draws.CreateDraw(c.Context, services.CreateDrawDTO{
		DrawNumber:  c.Int("number"),
		DrawTime:    drawTime,
		Description: c.String("description"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("draw #%d created: %s (closes %s)\n", draw.DrawNumber, draw.ID, draw.EndTime.Format(time.RFC3339))
	return nil
}

func (d *drawctl) selectWinners(c *cli.Context) error {
	drawID := c.Args().First()
	if drawID == "" {
		return cli.Exit("drawId is required", 2)
	}
	if c.IsSet("seed") {
		seed := c.Uint64("seed")
		d.svc.Draws.NewRandom = func() services.RandomSource { return services.SeededSource(seed) }
	}

	winners, err := d.svc.Draws.SelectWinners(c.Context, drawID)
	if err != nil {
		return err
	}
	for _, w := range winners {
		fmt.Printf("%2d\t%s\t%s\t%d\n", w.Place, w.TicketID, w.UserID, w.Prize)
	}
	return nil
}

func (d *drawctl) scan(c *cli.Context) error {
	scanner := services.NewDrawScanner(d.svc.Draws, services.InlineDispatcher{Draws: d.svc.Draws}, d.cfg.Draw.ScanInterval, d.cfg.Draw.ScanMaxBackoff)
	n, err := scanner.Scan(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("%d draws closed\n", n)
	return nil
}
