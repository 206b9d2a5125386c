package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/hirewaynemartinjr/PixelB0T/internal/avail"
	"github.com/hirewaynemartinjr/PixelB0T/internal/bot"
	"github.com/hirewaynemartinjr/PixelB0T/internal/config"
	"github.com/hirewaynemartinjr/PixelB0T/internal/export"
	appLog "github.com/hirewaynemartinjr/PixelB0T/internal/log"
	"github.com/hirewaynemartinjr/PixelB0T/internal/poll"
	"github.com/hirewaynemartinjr/PixelB0T/internal/storage"
	"github.com/hirewaynemartinjr/PixelB0T/internal/summary"
	"github.com/hirewaynemartinjr/PixelB0T/internal/transport"
)

type flagConfig struct {
	configPath string
	dataDir    string
	console    bool
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.dataDir != "" {
		conf.DataDir = flags.dataDir
	}
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	if conf.LogFile != "" {
		if err := appLog.SetFile(conf.LogFile); err != nil {
			appLog.Error("failed to open log file", err, "log_file", conf.LogFile)
			os.Exit(1)
		}
		defer appLog.Close()
	}

	appLog.Info("pixelbot starting",
		"config_path", flags.configPath,
		"data_dir", conf.DataDir,
		"activities", len(conf.Activities),
		"default_timezone", conf.DefaultTimezone,
		"console", flags.console,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("pixelbot exited with error", err)
		os.Exit(1)
	}
	appLog.Info("pixelbot exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	files, err := storage.NewFileStore(conf.DataDir)
	if err != nil {
		return err
	}

	store, err := avail.Open(files, conf.DefaultActivity())
	if err != nil {
		return err
	}

	quickStart, err := avail.ParseClockTime(conf.QuickStart)
	if err != nil {
		return err
	}
	quickEnd, err := avail.ParseClockTime(conf.QuickEnd)
	if err != nil {
		return err
	}

	activities := make([]poll.Activity, 0, len(conf.Activities))
	for _, a := range conf.Activities {
		activities = append(activities, poll.Activity{
			ID:        a.ID,
			Channel:   a.Channel,
			PollTitle: a.PollTitle,
		})
	}

	// The concrete chat binding plugs in here; until then the in-memory
	// messenger backs the console mode and scheduled runs.
	msgr := transport.NewMemory()

	polls := poll.NewManager(msgr, activities, nil)
	handler := bot.New(bot.Params{
		Messenger:       msgr,
		Polls:           polls,
		Store:           store,
		Summaries:       summary.New(store, conf.DefaultTimezone, nil),
		Exports:         export.New(store, conf.DefaultTimezone, nil),
		DefaultActivity: conf.DefaultActivity(),
		DefaultZone:     conf.DefaultTimezone,
		QuickStart:      quickStart,
		QuickEnd:        quickEnd,
	})

	// Startup backup mirrors the on-ready backup of the record files.
	if err := files.Backup(conf.BackupDir); err != nil {
		appLog.Error("startup backup failed", err)
	}

	sched := cron.New()
	if _, err := sched.AddFunc(conf.PollCheckCron, func() { polls.MaybeAutoOpenAll(ctx) }); err != nil {
		return err
	}
	if _, err := sched.AddFunc(conf.BackupCron, func() {
		if err := files.Backup(conf.BackupDir); err != nil {
			appLog.Error("scheduled backup failed", err)
		}
	}); err != nil {
		return err
	}
	sched.Start()

	if flags.console {
		go consoleLoop(ctx, msgr, polls, handler, conf.DefaultActivity())
	}

	<-ctx.Done()

	stopCtx := sched.Stop()
	<-stopCtx.Done()

	// Final flush is mandatory and blocking on orderly shutdown.
	if err := store.Flush(); err != nil {
		return err
	}
	if err := files.Backup(conf.BackupDir); err != nil {
		appLog.Error("shutdown backup failed", err)
	}
	appLog.Info("data saved on exit")
	return nil
}

// consoleLoop feeds stdin lines through the handler against the default
// activity's channel: commands as-is, anything else as a reply to the
// open poll. Local testing only.
func consoleLoop(ctx context.Context, mem *transport.Memory, polls *poll.Manager, handler *bot.Handler, activityID string) {
	act, ok := polls.Activity(activityID)
	if !ok {
		appLog.Error("console: no default activity configured", errors.New("empty activity list"))
		return
	}

	if _, err := polls.ManualOpen(ctx, act.ID); err != nil {
		appLog.Error("console: opening poll failed", err)
		return
	}

	seenDMs := 0
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		var replyTo *transport.MessageRef
		if ref, open := polls.CurrentRef(act.ID); open {
			replyTo = &ref
		}
		msg := mem.Post(act.Channel, "console", line, replyTo)
		handler.HandleMessage(ctx, msg)

		dms := mem.Directs("console")
		for _, dm := range dms[seenDMs:] {
			appLog.Info("console dm", "body", dm.Body)
		}
		seenDMs = len(dms)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./pixelbot.yaml", "Path to config file")
	flag.StringVar(&cfg.dataDir, "data", "", "Data directory (overrides config if set)")
	flag.BoolVar(&cfg.console, "console", false, "Read availability input from stdin against the default activity")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
