// Command argus runs the whitelist bridge: it loads configuration,
// opens the Discord bridge, restores the cache store from its JSON
// snapshot, and serves slash commands until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/small-frappuccino/argus/pkg/audit"
	"github.com/small-frappuccino/argus/pkg/bridge"
	"github.com/small-frappuccino/argus/pkg/discordbridge"
	"github.com/small-frappuccino/argus/pkg/discordcmd"
	"github.com/small-frappuccino/argus/pkg/discordcmd/core"
	"github.com/small-frappuccino/argus/pkg/engine"
	"github.com/small-frappuccino/argus/pkg/errutil"
	"github.com/small-frappuccino/argus/pkg/log"
	"github.com/small-frappuccino/argus/pkg/service"
	"github.com/small-frappuccino/argus/pkg/storage"
	"github.com/small-frappuccino/argus/pkg/util"
)

// dispatcherAdapter bridges audit.Dispatcher to the Discord Bridge's
// bridge.AuditDispatcher, the two audit-entry shapes being identical in
// substance but independently declared to keep pkg/audit and pkg/bridge
// free of a dependency on each other.
type dispatcherAdapter struct {
	bridge *discordbridge.Bridge
}

func (a dispatcherAdapter) Dispatch(e audit.Entry) error {
	return a.bridge.Dispatch(bridge.AuditEntry{
		Action:      e.Action,
		Subject:     e.Subject,
		Actor:       e.Actor,
		Description: e.Description,
		Metadata:    e.Metadata,
	})
}

func main() {
	util.LoadDotEnv()

	if err := log.SetupLogger(util.EnvString("ARGUS_LOG_DIR", "logs")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logger: %v\n", err)
		os.Exit(1)
	}
	if err := errutil.InitializeGlobalErrorHandler(log.GlobalLogger); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize error handler: %v\n", err)
		os.Exit(1)
	}

	log.Info().Applicationf("starting argus")

	settingsPath := util.EnvString("ARGUS_CONFIG_PATH", "config/argus.json")
	eng := engine.NewCore(settingsPath)
	if err := eng.Initialize(); err != nil {
		log.Error().Fatalf("failed to initialize core: %v", err)
	}

	mirror := storage.NewStore(util.EnvString("ARGUS_SQLITE_PATH", "data/argus.db"))
	if err := mirror.Init(); err != nil {
		log.Error().Fatalf("failed to initialize durable store: %v", err)
	}
	defer func() { _ = mirror.Close() }()

	if lastHB, ok, err := mirror.LastHeartbeat(); err != nil {
		log.Warn().Applicationf("failed to read last heartbeat: %v", err)
	} else if ok {
		downtime := storage.DowntimeSince(lastHB, time.Now())
		if downtime > 30*time.Minute {
			log.Info().Applicationf("detected downtime of %s; a role re-sync pass may be warranted", downtime)
		}
	}
	_ = mirror.SetHeartbeat(time.Now())

	settings := eng.Settings.Current()
	if !settings.IsConfigured() {
		log.Warn().Applicationf("bot token, guild id, whitelist role, or admin role not configured; Discord bridge will stay offline until restart")
	}

	var discordBridge *discordbridge.Bridge
	if settings.IsConfigured() {
		var err error
		discordBridge, err = discordbridge.New(
			settings.BotToken,
			strconv.FormatUint(*settings.GuildID, 10),
			strconv.FormatUint(*settings.WhitelistRoleID, 10),
			strconv.FormatUint(*settings.AdminRoleID, 10),
			uintPtrToString(settings.LogChannelID),
		)
		if err != nil {
			log.Error().Fatalf("failed to construct discord bridge: %v", err)
		}
		discordBridge.SetEventSink(eng)
		eng.SetBridge(discordBridge)
		eng.Audit.SetDispatcher(dispatcherAdapter{bridge: discordBridge})
		eng.SetBridgeLifecycle(discordBridge.Open, discordBridge.Close)
	}

	manager := service.NewManager()

	cacheService := service.NewServiceWrapper(
		"cache_store", service.TypeCache, service.PriorityHigh, nil,
		func() error { eng.Store.Start(); return nil },
		func() error { eng.Store.Stop(); return nil },
		func() bool { return true },
	)
	if err := manager.Register(cacheService); err != nil {
		log.Error().Fatalf("failed to register cache store service: %v", err)
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sweepService := service.NewServiceWrapper(
		"link_token_sweep", service.TypeLinkSweep, service.PriorityNormal, nil,
		func() error { go eng.Tokens.Sweep(sweepCtx, 5*time.Minute); return nil },
		func() error { sweepCancel(); return nil },
		func() bool { return true },
	)
	if err := manager.Register(sweepService); err != nil {
		log.Error().Fatalf("failed to register link-token sweep service: %v", err)
	}

	if discordBridge != nil {
		bridgeService := service.NewServiceWrapper(
			"discord_bridge", service.TypeBridge, service.PriorityHigh, nil,
			eng.StartDiscord,
			eng.StopDiscord,
			func() bool { return true },
		)
		if err := manager.Register(bridgeService); err != nil {
			log.Error().Fatalf("failed to register discord bridge service: %v", err)
		}
	}

	if err := manager.StartAll(); err != nil {
		log.Error().Fatalf("failed to start services: %v", err)
	}

	if discordBridge != nil {
		router := core.NewRouter(discordcmd.AdminCheckerFor(eng, discordBridge.Session(), strconv.FormatUint(*settings.GuildID, 10)))
		router.Register(discordcmd.NewLinkCommand(eng))
		router.Register(discordcmd.NewWhitelistCommand(eng, mirror))
		discordBridge.Session().AddHandler(router.HandleInteraction)
		if err := core.SyncCommands(discordBridge.Session(), router); err != nil {
			log.Warn().Applicationf("failed to sync slash commands: %v", err)
		}
	}

	log.Info().Applicationf("argus is running")
	util.WaitForInterrupt()

	log.Info().Applicationf("shutting down")
	if err := manager.StopAll(); err != nil {
		log.Error().Errorf("error during shutdown: %v", err)
	}
	eng.Store.FlushSaves(5 * time.Second)
	_ = mirror.SetHeartbeat(time.Now())
}

func uintPtrToString(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}
