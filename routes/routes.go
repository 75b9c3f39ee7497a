package routes

import (
	_ "embed"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Dosada05/tennis-standings/handlers"
	"github.com/Dosada05/tennis-standings/middleware"
)

//go:embed swagger.json
var swaggerDoc []byte

// Handlers собирает все HTTP обработчики приложения.
type Handlers struct {
	Match     *handlers.MatchHandler
	Team      *handlers.TeamHandler
	Player    *handlers.PlayerHandler
	Season    *handlers.SeasonHandler
	Ingest    *handlers.IngestHandler
	Health    *handlers.HealthHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, allowedOrigins []string, logger *slog.Logger) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(swaggerDoc)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Get("/health", h.Health.Health)
	router.Delete("/health/cache", h.Health.ClearCache)

	// Вебсокеты не должны попадать под таймаут запросов.
	router.Route("/ws", func(r chi.Router) {
		r.Get("/teams/{teamID}", h.WebSocket.ServeTeam)
		r.Get("/matches/{matchID}", h.WebSocket.ServeMatch)
	})

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.Match.ListMatches)
			r.Route("/{matchID}", func(r chi.Router) {
				r.Get("/", h.Match.GetMatch)
				r.Get("/lineup", h.Match.GetMatchLineup)
				r.Get("/score", h.Match.GetMatchScore)
			})
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.Team.ListTeams)
			r.Get("/{teamID}", h.Team.GetTeam)
		})

		r.Get("/stats/teams/{teamID}", h.Team.GetTeamStats)
		r.Get("/stats/players/{playerID}", h.Player.GetPlayerStats)

		r.Post("/batch/match-scores", h.Match.GetMatchScores)

		r.Route("/seasons", func(r chi.Router) {
			r.Get("/", h.Season.ListSeasons)
			r.Post("/{season}/snapshots", h.Season.PublishSnapshots)
			r.Delete("/{season}/snapshots/{conference}", h.Season.DeleteSnapshot)
		})

		// Загрузка данных сборщиком результатов.
		r.Route("/ingest", func(r chi.Router) {
			r.Put("/teams/{teamID}", h.Ingest.PutTeam)
			r.Put("/matches/{matchID}", h.Ingest.PutMatch)
			r.Put("/matches/{matchID}/lineup", h.Ingest.PutLineup)
		})
	})
}
