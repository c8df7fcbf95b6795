package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/bzimmer/bloodliner"
)

func config(c *cli.Context) (*bloodliner.Config, error) {
	if !c.IsSet("config") {
		log.Debug().Str("file", "etc/bloodliner.json").Msg("config")
		return bloodliner.DefaultConfig()
	}
	log.Info().Str("file", c.String("config")).Msg("config")
	fp, err := os.Open(c.String("config"))
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return bloodliner.ReadConfig(fp)
}

// token produces a random token of length `n`
func token(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func withEngine(c *cli.Context, f func(*bloodliner.Engine) error) error {
	cfg, err := config(c)
	if err != nil {
		return err
	}
	store, err := bloodliner.OpenStore(c.Context, c.String("driver"), c.String("dsn"))
	if err != nil {
		return err
	}
	defer store.Close()
	engine, err := bloodliner.NewEngine(c.Context, cfg, store)
	if err != nil {
		return err
	}
	return f(engine)
}

func encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dayArg(c *cli.Context, e *bloodliner.Engine) int {
	if c.IsSet("day") {
		return c.Int("day")
	}
	return e.Season().CurrentDay
}

func newServer(c *cli.Context, engine *bloodliner.Engine) (http.Handler, error) {
	state, err := token(16)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	metrics := bloodliner.NewMetrics(reg)
	engine.Subscribe(metrics.Observe)
	e, err := bloodliner.NewServer(engine, bloodliner.ServerConfig{
		BaseURL:      c.String("base-url"),
		SessionKey:   c.String("session-key"),
		ClientID:     c.String("client-id"),
		ClientSecret: c.String("client-secret"),
		State:        state,
		Gatherer:     reg,
	})
	if err != nil {
		return nil, err
	}
	if c.Bool("netlify") {
		log.Info().Msg("running function")
		lambda.Start(bloodliner.LambdaHandler(echoadapter.New(e)))
		return nil, nil
	}
	return e, nil
}

func serve(c *cli.Context) error {
	return withEngine(c, func(engine *bloodliner.Engine) error {
		handler, err := newServer(c, engine)
		if err != nil || handler == nil {
			return err
		}
		u, err := url.Parse(c.String("base-url"))
		if err != nil {
			return err
		}
		_, port, _ := net.SplitHostPort(u.Host)
		address := fmt.Sprintf("0.0.0.0:%s", port)
		srv := &http.Server{Addr: address, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		grp, ctx := errgroup.WithContext(ctx)
		grp.Go(func() error {
			log.Info().Str("address", address).Msg("serving")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		grp.Go(func() error {
			<-ctx.Done()
			log.Info().Msg("shutdown")
			timeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(timeout)
		})
		return grp.Wait()
	})
}

var dayFlag = &cli.IntFlag{
	Name:  "day",
	Usage: "day of the season, defaults to the current day",
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "serve",
			Usage: "Serve the http api",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "client-id",
					Usage:   "strava client id",
					EnvVars: []string{"STRAVA_CLIENT_ID"},
				},
				&cli.StringFlag{
					Name:    "client-secret",
					Usage:   "strava client secret",
					EnvVars: []string{"STRAVA_CLIENT_SECRET"},
				},
				&cli.StringFlag{
					Name:     "session-key",
					Required: true,
					Usage:    "session keypair",
					EnvVars:  []string{"BLOODLINER_SESSION_KEY"},
				},
				&cli.StringFlag{
					Name:    "base-url",
					Value:   "http://localhost:9001",
					Usage:   "Base URL",
					EnvVars: []string{"BASE_URL"},
				},
				&cli.BoolFlag{
					Name:    "netlify",
					Value:   false,
					Usage:   "run as a netlify function",
					EnvVars: []string{"NETLIFY"},
				},
			},
			Action: serve,
		},
		{
			Name:  "status",
			Usage: "Show the season review",
			Action: func(c *cli.Context) error {
				return withEngine(c, func(e *bloodliner.Engine) error {
					return encode(c.App.Writer, e.Review())
				})
			},
		},
		{
			Name:      "show",
			Usage:     "Show a day",
			Flags:     []cli.Flag{dayFlag},
			ArgsUsage: " ",
			Action: func(c *cli.Context) error {
				return withEngine(c, func(e *bloodliner.Engine) error {
					d, err := e.Day(dayArg(c, e))
					if err != nil {
						return err
					}
					return encode(c.App.Writer, d)
				})
			},
		},
		{
			Name:      "log",
			Usage:     "Log an energy or behavior event",
			ArgsUsage: "CATEGORY [MODE]",
			Flags:     []cli.Flag{dayFlag},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					return errors.New("category required")
				}
				return withEngine(c, func(e *bloodliner.Engine) error {
					cat := bloodliner.Category(c.Args().Get(0))
					mode := bloodliner.MoveMode(c.Args().Get(1))
					d, err := e.LogEvent(c.Context, dayArg(c, e), cat, mode)
					if err != nil {
						return err
					}
					return encode(c.App.Writer, d.Scores)
				})
			},
		},
		{
			Name:      "wake",
			Usage:     "Set the wake time",
			ArgsUsage: "HH:MM",
			Flags:     []cli.Flag{dayFlag},
			Action: func(c *cli.Context) error {
				minutes, err := bloodliner.ParseClock(c.Args().First())
				if err != nil {
					return err
				}
				return withEngine(c, func(e *bloodliner.Engine) error {
					d, err := e.SetWakeTime(c.Context, dayArg(c, e), minutes)
					if err != nil {
						return err
					}
					return encode(c.App.Writer, d.Scores)
				})
			},
		},
		{
			Name:  "habit",
			Usage: "Manage habits",
			Subcommands: []*cli.Command{
				{
					Name:      "add",
					ArgsUsage: "NAME",
					Action: func(c *cli.Context) error {
						return withEngine(c, func(e *bloodliner.Engine) error {
							s, err := e.AddHabit(c.Context, c.Args().First())
							if err != nil {
								return err
							}
							return encode(c.App.Writer, s.Habits)
						})
					},
				},
				{
					Name:      "rm",
					ArgsUsage: "NAME",
					Action: func(c *cli.Context) error {
						return withEngine(c, func(e *bloodliner.Engine) error {
							s, err := e.RemoveHabit(c.Context, c.Args().First())
							if err != nil {
								return err
							}
							return encode(c.App.Writer, s.Habits)
						})
					},
				},
				{
					Name:      "done",
					ArgsUsage: "NAME",
					Flags: []cli.Flag{
						dayFlag,
						&cli.BoolFlag{Name: "undo", Usage: "mark the habit not done"},
					},
					Action: func(c *cli.Context) error {
						return withEngine(c, func(e *bloodliner.Engine) error {
							d, err := e.SetHabit(c.Context, dayArg(c, e), c.Args().First(), !c.Bool("undo"))
							if err != nil {
								return err
							}
							return encode(c.App.Writer, d.Scores)
						})
					},
				},
			},
		},
		{
			Name:      "tap",
			Usage:     "Record a tap test",
			ArgsUsage: "morning|evening COUNT",
			Flags:     []cli.Flag{dayFlag},
			Action: func(c *cli.Context) error {
				var count int
				if _, err := fmt.Sscan(c.Args().Get(1), &count); err != nil {
					return fmt.Errorf("%w: %q", bloodliner.ErrInvalidTap, c.Args().Get(1))
				}
				return withEngine(c, func(e *bloodliner.Engine) error {
					d, err := e.RecordTap(c.Context, dayArg(c, e), bloodliner.TapSlot(c.Args().First()), count)
					if err != nil {
						return err
					}
					return encode(c.App.Writer, d.Scores)
				})
			},
		},
		{
			Name:      "goal",
			Usage:     "Set the day's goal percentage",
			ArgsUsage: "PCT",
			Flags:     []cli.Flag{dayFlag},
			Action: func(c *cli.Context) error {
				var pct int
				if _, err := fmt.Sscan(c.Args().First(), &pct); err != nil {
					return fmt.Errorf("%w: %q", bloodliner.ErrInvalidGoal, c.Args().First())
				}
				return withEngine(c, func(e *bloodliner.Engine) error {
					d, err := e.SetGoal(c.Context, dayArg(c, e), pct)
					if err != nil {
						return err
					}
					return encode(c.App.Writer, d)
				})
			},
		},
		{
			Name:  "shot",
			Usage: "Count a shot against the season",
			Action: func(c *cli.Context) error {
				return withEngine(c, func(e *bloodliner.Engine) error {
					n, err := e.GlobalShot(c.Context)
					if err != nil {
						return err
					}
					return encode(c.App.Writer, map[string]int{"globalShots": n})
				})
			},
		},
		{
			Name:  "finalize",
			Usage: "Finalize a day",
			Flags: []cli.Flag{
				dayFlag,
				&cli.BoolFlag{Name: "confirm", Usage: "finalize even if nothing was recorded"},
				&cli.IntFlag{Name: "mood", Usage: "mood 1-10"},
				&cli.IntFlag{Name: "focus", Usage: "focus 1-10"},
			},
			Action: func(c *cli.Context) error {
				opts := bloodliner.FinalizeOptions{Confirm: c.Bool("confirm")}
				if c.IsSet("mood") {
					v := c.Int("mood")
					opts.Mood = &v
				}
				if c.IsSet("focus") {
					v := c.Int("focus")
					opts.Focus = &v
				}
				return withEngine(c, func(e *bloodliner.Engine) error {
					res, err := e.Finalize(c.Context, dayArg(c, e), opts)
					if err != nil {
						return err
					}
					return encode(c.App.Writer, res)
				})
			},
		},
		{
			Name:  "sync",
			Usage: "Import strava activities as movement",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "client-id", Required: true, EnvVars: []string{"STRAVA_CLIENT_ID"}},
				&cli.StringFlag{Name: "client-secret", Required: true, EnvVars: []string{"STRAVA_CLIENT_SECRET"}},
				&cli.StringFlag{Name: "access-token", Required: true, EnvVars: []string{"STRAVA_ACCESS_TOKEN"}},
				&cli.StringFlag{Name: "refresh-token", Required: true, EnvVars: []string{"STRAVA_REFRESH_TOKEN"}},
			},
			Action: func(c *cli.Context) error {
				return withEngine(c, func(e *bloodliner.Engine) error {
					src, err := bloodliner.NewStravaSource(c.Context, c.String("client-id"), c.String("client-secret"),
						&oauth2.Token{AccessToken: c.String("access-token"), RefreshToken: c.String("refresh-token")})
					if err != nil {
						return err
					}
					res, err := bloodliner.NewMovement(e.Config()).Sync(c.Context, e, src)
					if err != nil {
						return err
					}
					return encode(c.App.Writer, res)
				})
			},
		},
	}
}

func main() {
	// flags read their EnvVars so the environment must be loaded first
	_ = godotenv.Load()
	app := &cli.App{
		Name:     "bloodliner",
		HelpName: "bloodliner",
		Usage:    "90 day habit and energy season",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "driver",
				Value:   "sqlite",
				Usage:   "storage driver (memory, sqlite, postgres)",
				EnvVars: []string{"BLOODLINER_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Value:   "bloodliner.db",
				Usage:   "storage data source name",
				EnvVars: []string{"BLOODLINER_DSN"},
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "file with scoring configuration parameters",
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Value: "info",
				Usage: "log level (trace, debug, info, warn, error)",
			},
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			log.Error().Err(err).Msg(c.App.Name)
		},
		Before: func(c *cli.Context) error {
			level, err := zerolog.ParseLevel(c.String("verbosity"))
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(level)
			zerolog.DurationFieldUnit = time.Millisecond
			zerolog.DurationFieldInteger = false
			log.Logger = log.Output(
				zerolog.ConsoleWriter{
					Out:        c.App.ErrWriter,
					NoColor:    false,
					TimeFormat: time.RFC3339,
				},
			)
			return nil
		},
		Commands: commands(),
	}
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
