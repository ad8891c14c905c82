package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/thunder33345/koi"
)

type config struct {
	Token   string `env:"DISCORD_TOKEN,required"`
	GuildID string `env:"GUILD_ID"`
	Debug   bool   `env:"DEBUG" envDefault:"false"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, using system environment")
	}
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("bad config: %v\n", err)
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if cfg.Debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	d := koi.New(koi.WithLogger(log))
	d.SetErrorHandler(func(ctx *koi.Ctx, err error) {
		log.Error().Err(err).Msg("command failed")
		if ctx != nil && !ctx.Responded() {
			_ = ctx.Say("Something went wrong running that command.")
		}
	})

	if err := addModules(d, cfg.GuildID, log); err != nil {
		log.Fatal().Err(err).Msg("command registration failed")
	}

	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("session creation failed")
	}
	d.RegisterSession(s)

	s.AddHandlerOnce(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Msg("ready, syncing commands")
		for _, cmd := range d.ApplicationCommands(cfg.GuildID) {
			if _, err := s.ApplicationCommandCreate(s.State.User.ID, cfg.GuildID, cmd); err != nil {
				log.Error().Err(err).Str("command", cmd.Name).Msg("sync failed")
			}
		}
	})

	if err := s.Open(); err != nil {
		log.Fatal().Err(err).Msg("cannot open session")
	}
	defer s.Close()
	defer d.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	log.Info().Msg("interrupt received, stopping")
}

func addModules(d *koi.Koi, guild string, log zerolog.Logger) error {
	//a shared bundle: anything attaching it gets the same gate and audit trail
	audited := koi.NewBundle("audited").
		AddCheck(koi.CooldownCheck("cooldown", rate.Every(2*time.Second), 3)).
		PreRun(func(ctx *koi.Ctx) error {
			log.Info().Strs("path", ctx.Path()).Str("user", ctx.User().ID).Msg("invoked")
			return nil
		})

	util := koi.NewModule("util").
		Attach(audited).
		AutoDefer(1500 * time.Millisecond)

	util.AddCommand(koi.NewCommand("ping", "Measure the bot's response latency").
		Handle(func(ctx *koi.Ctx) error {
			start := time.Now()
			if err := ctx.Defer(); err != nil {
				return err
			}
			content := fmt.Sprintf("Pong! Acknowledged in %v.", time.Since(start))
			return ctx.Respond(&discordgo.InteractionResponseData{Content: content})
		}))

	colors := []string{"red", "orange", "yellow", "green", "blue", "violet"}
	util.AddCommand(koi.NewCommand("paint", "Pick a color").
		Options(
			koi.NewOption(koi.OptionString, "color", "The color to paint with").
				Required().
				Autocomplete(func(ctx *koi.AutocompleteCtx) ([]koi.Choice, error) {
					var out []koi.Choice
					for _, c := range colors {
						if strings.HasPrefix(c, strings.ToLower(ctx.Partial())) {
							out = append(out, koi.Choice{Name: c, Value: c})
						}
					}
					return out, nil
				}),
			koi.NewOption(koi.OptionInteger, "coats", "How many coats to apply").
				Bounds(1, 5).
				Default(int64(1)),
		).
		Handle(func(ctx *koi.Ctx) error {
			return ctx.Say(fmt.Sprintf("Painting %s, %d coat(s).",
				ctx.Options().String("color"), ctx.Options().Int("coats")))
		}))

	debug := koi.NewModule("debug").
		AddCheck(koi.NewCheck("owner-only", func(ctx *koi.Ctx) (bool, error) {
			return ctx.Interaction().Member != nil &&
				ctx.Interaction().Member.Permissions&discordgo.PermissionAdministrator != 0, nil
		}))

	debug.AddCommand(koi.NewCommand("debug", "Engine introspection").
		Permissions(discordgo.PermissionAdministrator).
		AddSubcommand(koi.NewSubcommand("commands", "Dump the registered command trees").
			Handle(func(ctx *koi.Ctx) error {
				dump := d.DumpCommands(guild)
				if len(dump) > 1900 {
					dump = dump[:1900]
				}
				return ctx.Say("```go\n" + dump + "\n```")
			})))

	if err := d.AttachModule(util, guild); err != nil {
		return err
	}
	return d.AttachModule(debug, guild)
}
