package router

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "caregiver-access/docs"
	mem "caregiver-access/internal/adapters/storage/memory"
	pg "caregiver-access/internal/adapters/storage/postgres"
	"caregiver-access/internal/domain/accesscontrol"
	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/domain/auditlog"
	"caregiver-access/internal/domain/caregiverlinks"
	"caregiver-access/internal/domain/elders"
	"caregiver-access/internal/middleware"
	"caregiver-access/internal/platform/config"
	"caregiver-access/internal/platform/keylock"
	"caregiver-access/internal/platform/logger"
	"caregiver-access/internal/platform/metrics"
	"caregiver-access/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Config config.Config

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcionales: lock distribuido, destino de auditoría y registro externo de residentes.
	Locker    keylock.Locker
	AuditSink auditlog.Sink
	Directory elders.Repository

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// App es el servicio armado: el handler HTTP y el confirmador que main corre aparte.
type App struct {
	Handler   http.Handler
	Service   *accesscontrol.Service
	Audit     *auditlog.Log
	Confirmer *auditlog.Confirmer
}

type stores struct {
	requests accessrequests.Repository
	links    caregiverlinks.Repository
	audit    auditlog.Repository
	elders   elders.Repository
	seeder   elders.Writer
	tx       accesscontrol.Transactor
}

func NewApp(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	lg := opts.Logger
	if lg == nil {
		lg = logger.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	st := newStores(opts.DB)
	if err := seedElders(ctx, st.seeder, cfg.Directory.Seed); err != nil {
		return nil, err
	}

	// el registro externo reemplaza al directorio local
	elderRepo := st.elders
	if opts.Directory != nil {
		elderRepo = opts.Directory
	}

	perms, err := defaultPermissions(cfg.Access.DefaultPermissions)
	if err != nil {
		return nil, err
	}

	dir := elders.NewDirectory(elderRepo)
	auditLog := auditlog.NewLog(st.audit, auditlog.WithQueueSize(cfg.Audit.QueueSize))

	svc := accesscontrol.New(accesscontrol.Deps{
		Requests:         accessrequests.NewRegistry(st.requests, dir),
		Links:            caregiverlinks.NewRegistry(st.links, caregiverlinks.WithDefaultPermissions(perms)),
		Evaluator:        caregiverlinks.NewEvaluator(st.links),
		Elders:           dir,
		Audit:            auditLog,
		Locker:           opts.Locker,
		Tx:               st.tx,
		Logger:           lg,
		Metrics:          m,
		OperationTimeout: cfg.Access.OperationTimeout,
	})

	confirmer := auditlog.NewConfirmer(auditLog, opts.AuditSink, lg, m, auditlog.ConfirmerConfig{
		SweepInterval: cfg.Audit.SweepInterval,
		MaxAttempts:   cfg.Audit.MaxAttempts,
	})

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RequestLog(lg))

	r.Get("/health", healthHandler(opts.DB))
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	accesscontrol.RegisterRoutes(r, svc, accesscontrol.HandlerOptions{RequireAuth: cfg.Server.RequireAuth})
	auditlog.RegisterRoutes(r, auditLog)

	return &App{
		Handler:   r,
		Service:   svc,
		Audit:     auditLog,
		Confirmer: confirmer,
	}, nil
}

// NewRouter arma la app con config por defecto; útil para dev y tests.
func NewRouter(opts Options) http.Handler {
	if opts.Config.Access.OperationTimeout == 0 {
		opts.Config = config.Default()
	}
	app, err := NewApp(context.Background(), opts)
	if err != nil {
		panic(err)
	}
	return app.Handler
}

func newStores(db *sql.DB) stores {
	if db != nil {
		eldersRepo := pg.NewEldersRepo(db)
		return stores{
			requests: pg.NewAccessRequestsRepo(db),
			links:    pg.NewCaregiverLinksRepo(db),
			audit:    pg.NewAuditLogRepo(db),
			elders:   eldersRepo,
			seeder:   eldersRepo,
			tx:       pg.NewTransactor(db),
		}
	}

	eldersRepo := mem.NewEldersRepo()
	return stores{
		requests: mem.NewAccessRequestsRepo(),
		links:    mem.NewCaregiverLinksRepo(),
		audit:    mem.NewAuditLogRepo(),
		elders:   eldersRepo,
		seeder:   eldersRepo,
		tx:       mem.NewTransactor(),
	}
}

func seedElders(ctx context.Context, w elders.Writer, seed []config.SeedElder) error {
	for _, s := range seed {
		e := elders.Elder{
			ID:                strings.TrimSpace(s.ID),
			Name:              strings.TrimSpace(s.Name),
			Identifier:        s.Identifier,
			Phone:             s.Phone,
			Address:           s.Address,
			EmergencyContact:  s.EmergencyContact,
			PreferredLanguage: s.PreferredLanguage,
		}
		if s.DateOfBirth != "" {
			dob, err := time.Parse("2006-01-02", s.DateOfBirth)
			if err != nil {
				return fmt.Errorf("seed elder %s: date_of_birth: %w", s.ID, err)
			}
			e.DateOfBirth = &dob
		}
		if err := w.Upsert(ctx, e); err != nil {
			return fmt.Errorf("seed elder %s: %w", s.ID, err)
		}
	}
	return nil
}

func defaultPermissions(in []config.PermissionConfig) ([]caregiverlinks.Permission, error) {
	out := make([]caregiverlinks.Permission, 0, len(in))
	for _, p := range in {
		action := caregiverlinks.Action(strings.ToLower(strings.TrimSpace(p.Action)))
		if !action.Valid() {
			return nil, fmt.Errorf("access.default_permissions: invalid action %q", p.Action)
		}
		resource := strings.TrimSpace(p.Resource)
		if resource == "" {
			return nil, fmt.Errorf("access.default_permissions: resource required")
		}
		out = append(out, caregiverlinks.Permission{Resource: resource, Action: action, IsGranted: true})
	}
	return out, nil
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
