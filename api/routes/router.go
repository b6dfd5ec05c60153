package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/energypractice/enrollment-backend/api/controllers"
	webhookcontrollers "github.com/energypractice/enrollment-backend/api/controllers/webhooks"
	"github.com/energypractice/enrollment-backend/api/middleware"
	"github.com/energypractice/enrollment-backend/internal/invites"
	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/internal/payments"
	"github.com/energypractice/enrollment-backend/internal/promo"
	"github.com/energypractice/enrollment-backend/pkg/config"
	"github.com/energypractice/enrollment-backend/pkg/db"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	pkgredis "github.com/energypractice/enrollment-backend/pkg/redis"
)

// Store is the Redis surface used by rate limiting, idempotency and readiness.
type Store interface {
	pkgredis.IdempotencyStore
	pkgredis.Pinger
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store Store,
	gatherer prometheus.Gatherer,
	participantService participants.Service,
	promoService promo.Service,
	paymentService payments.Service,
	inviteService invites.Service,
	inviteIssuer invites.Issuer,
	callbackService webhookcontrollers.RobokassaCallbackService,
	telegramService webhookcontrollers.TelegramUpdateService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Site.AllowedOrigins),
	)

	registerPolicy := middleware.NewRateLimitPolicy(
		"register",
		cfg.RateLimit.RegisterWindow,
		cfg.RateLimit.RegisterIPLimit,
		cfg.RateLimit.RegisterEmailLimit,
	)
	paymentLinkPolicy := middleware.NewRateLimitPolicy(
		"payment_link",
		cfg.RateLimit.PaymentLinkWindow,
		cfg.RateLimit.PaymentLinkIPLimit,
		0,
	)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, store))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Get("/robokassa/result", webhookcontrollers.RobokassaResult(callbackService, logg))
		r.Post("/robokassa/result", webhookcontrollers.RobokassaResult(callbackService, logg))
		r.Post("/telegram", webhookcontrollers.TelegramUpdate(telegramService, logg))
	})

	replay := middleware.Idempotency(store, logg, cfg.Idempotency.ReplayTTL)
	adminReplay := middleware.Idempotency(store, logg, cfg.Idempotency.AdminReplayTTL)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(registerPolicy, store, logg), replay).Post("/participants", controllers.ParticipantRegister(participantService, logg))
		r.With(middleware.RateLimit(paymentLinkPolicy, store, logg), replay).Post("/payments/link", controllers.PaymentLink(paymentService, logg))
		r.Post("/promo/validate", controllers.PromoValidate(promoService, logg))
		r.Get("/invites", controllers.InviteLookup(inviteService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin.Password, logg))
		r.Get("/participants", controllers.AdminParticipantList(participantService, logg))
		r.With(adminReplay).Post("/participants/{participantId}/invite", controllers.AdminInviteReissue(inviteIssuer, logg))
	})

	return r
}
