package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propdesk/internal/audit"
	"propdesk/internal/auth"
	"propdesk/internal/calllog"
	"propdesk/internal/config"
	"propdesk/internal/contacts"
	"propdesk/internal/device"
	"propdesk/internal/dispatch"
	"propdesk/internal/expenses"
	"propdesk/internal/httpapi"
	"propdesk/internal/incoming"
	"propdesk/internal/owners"
	"propdesk/internal/push"
	"propdesk/internal/session"
	"propdesk/internal/summary"
	"propdesk/internal/telephony"
	"propdesk/internal/uploads"
	"propdesk/internal/vendors"
	"propdesk/pkg/logger"
	"propdesk/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Domain services over postgres.
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	contactSvc := contacts.NewService(contacts.NewPostgresRepo(db))
	ownerSvc := owners.NewService(owners.NewPostgresRepo(db))
	vendorSvc := vendors.NewService(vendors.NewPostgresRepo(db))
	expenseSvc := expenses.NewService(expenses.NewPostgresRepo(db))
	callLogSvc := calllog.NewService(calllog.NewPostgresRepo(db))

	store, err := mediaStore(rootCtx, cfg, log)
	if err != nil {
		log.Error("media store init failed", "err", err)
		os.Exit(1)
	}
	uploadSvc := uploads.NewService(store, log)

	summarySvc := summary.NewService(openai.NewClient(cfg.OpenAI.APIKey), cfg.OpenAI.Model)

	dispatchSvc := dispatch.NewService(
		dispatch.NewTwilioMessenger(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken),
		cfg.Twilio.FromNumber, log)

	hub := push.NewHub(log)
	defer hub.Close()

	// The console serves the workspace this deployment is provisioned for.
	// Workspaces beyond the first come from provisioning, not env config.
	workspaceID := os.Getenv("WORKSPACE_ID")
	if workspaceID == "" {
		workspaceID = "default"
	}

	transport := device.NewTwilioTransport(device.TwilioTransportConfig{
		AccountSID:        cfg.Twilio.AccountSID,
		AuthToken:         cfg.Twilio.AuthToken,
		VoiceURL:          cfg.Twilio.VoiceURL,
		StatusCallbackURL: cfg.Twilio.StatusCallbackURL,
	})

	console := buildConsole(consoleDeps{
		cfg:         cfg,
		workspaceID: workspaceID,
		transport:   transport,
		rdb:         rdb,
		hub:         hub,
		callLog:     callLogSvc,
		log:         log,
	})
	console.Device.Start()
	defer console.Device.Stop()

	if err := console.Notifier.Start(rootCtx); err != nil {
		log.Error("incoming notifier start failed", "err", err)
		os.Exit(1)
	}
	defer console.Notifier.Stop()

	registry := httpapi.NewConsoleRegistry()
	registry.Put(workspaceID, console)

	handlers := httpapi.Handlers{
		Auth:     authManager,
		Consoles: registry,
		Contacts: contactSvc,
		Owners:   ownerSvc,
		Vendors:  vendorSvc,
		Expenses: expenseSvc,
		CallLog:  callLogSvc,
		Uploads:  uploadSvc,
		Dispatch: dispatchSvc,
		Summary:  summarySvc,
		Hub:      hub,
		Audit:    auditSvc,
	}

	webhooks := telephony.WebhookHandler{
		ResolveWorkspace: func(ctx context.Context, toNumber string) (string, error) {
			// Single-workspace deployment: every number this Twilio account
			// owns belongs to the provisioned workspace.
			if toNumber == "" {
				return "", errors.New("missing dialed number")
			}
			return workspaceID, nil
		},
		IdentifyCaller: func(ctx context.Context, wsID, number string) string {
			t, err := contactSvc.Identify(ctx, wsID, number)
			if err != nil {
				return ""
			}
			return t.Name
		},
		PublishRing: func(ctx context.Context, wsID string, r incoming.Ring) error {
			return incoming.PublishRing(ctx, rdb, wsID, r)
		},
		DeliverStatus: transport.DeliverStatus,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, webhooks, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "workspace_id", workspaceID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

func mediaStore(ctx context.Context, cfg config.Config, log *slog.Logger) (uploads.Store, error) {
	if cfg.Firebase.StorageBucket != "" {
		return uploads.NewFirebaseStore(ctx, cfg.Firebase.StorageBucket, cfg.Firebase.SignedURLTTL)
	}
	log.Warn("no storage bucket configured, recordings go to local disk")
	return uploads.NewLocalStore("")
}

type consoleDeps struct {
	cfg         config.Config
	workspaceID string
	transport   *device.TwilioTransport
	rdb         *redis.Client
	hub         *push.Hub
	callLog     *calllog.Service
	log         *slog.Logger
}

// buildConsole assembles the per-workspace call surface: device controller,
// incoming notifier, and the push/call-log side effects that tie them to the
// rest of the system.
func buildConsole(d consoleDeps) *httpapi.Console {
	capKey := "callcap:" + d.workspaceID
	capTTL := time.Hour

	onChange := func(s *session.Session) {
		d.hub.Broadcast(d.workspaceID, push.NewCallStatusEvent(s, time.Now().UTC()))
		if s.Status.Terminal() {
			if _, err := d.callLog.Record(context.Background(), *s); err != nil {
				d.log.Error("call log record failed", "session_id", s.ID, "err", err)
			}
		}
	}

	ctrl := device.NewController(d.transport, device.Options{
		Identity:    "console-" + d.workspaceID,
		WorkspaceID: d.workspaceID,
		From:        d.cfg.Twilio.FromNumber,
		OnChange:    onChange,
		AcquireCap: func(ctx context.Context) (bool, error) {
			return utils.AcquireConcurrencyCap(ctx, d.rdb, capKey, d.cfg.Ring.MaxConcurrentCalls, capTTL)
		},
		ReleaseCap: func(ctx context.Context) error {
			return utils.ReleaseConcurrencyCap(ctx, d.rdb, capKey)
		},
		Logger: d.log,
	})

	notifier := incoming.NewNotifier(incoming.Options{
		Config: incoming.Config{
			RingTimeout:  d.cfg.Ring.Timeout,
			RingInterval: d.cfg.Ring.Interval,
		},
		Channel: incoming.NewRedisChannel(d.rdb, d.workspaceID, d.log),
		Device:  ctrl,
		Answer: func(ctx context.Context, callSID string) (device.Conn, error) {
			xml, err := telephony.BridgeTwiML("console-" + d.workspaceID)
			if err != nil {
				return nil, err
			}
			return d.transport.Answer(ctx, callSID, xml)
		},
		Reject: d.transport.Reject,
		OnRing: func(ev incoming.Event) {
			d.hub.Broadcast(d.workspaceID, push.IncomingCallEvent{
				Type:       push.TypeIncomingCall,
				CallSID:    ev.CallSID,
				FromNumber: ev.FromNumber,
				FromName:   ev.FromName,
				RingCount:  ev.RingCount,
				ReceivedAt: ev.ReceivedAt,
			})
		},
		OnCleared: func(ev incoming.Event, reason incoming.ClearReason) {
			d.hub.Broadcast(d.workspaceID, push.IncomingClearedEvent{
				Type:    push.TypeIncomingCleared,
				CallSID: ev.CallSID,
				Reason:  string(reason),
			})
			if reason == incoming.ClearDeclined || reason == incoming.ClearBusyDeclined {
				if _, err := d.callLog.RecordDeclined(context.Background(),
					d.workspaceID, ev.CallSID, ev.FromNumber, ev.FromName); err != nil {
					d.log.Error("declined call log failed", "call_sid", ev.CallSID, "err", err)
				}
			}
		},
		Logger: d.log,
	})

	return &httpapi.Console{Device: ctrl, Notifier: notifier}
}
