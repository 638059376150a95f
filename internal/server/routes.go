package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Blindtest API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(deps.Logger, deps.DB, deps.Redis))

	// Host auth, cookie session in SQLite.
	r.Post("/api/host/login", handleHostLogin(deps.DB))
	r.Post("/api/host/logout", handleHostLogout(deps.DB))
	r.Get("/api/host/me", handleHostMe(deps.DB))

	// Read-only game surface: the projector display needs no login.
	r.Get("/api/teams", handleTeamList(deps.Teams))
	r.Get("/api/config", handleConfigGet(deps.Game))
	r.Get("/api/playlist", handlePlaylistGet(deps.Game))
	r.Get("/api/game/state", handleGameState(deps.Game))
	r.Get("/api/game/stats", handleGameStats(deps.Game))
	r.Get("/api/game/events", handleEvents(deps.Broker))

	// Everything that mutates the game requires the host session.
	r.Group(func(r chi.Router) {
		r.Use(hostAuthMiddleware(deps.DB))

		r.Post("/api/teams", handleTeamCreate(deps.Teams, deps.Game))
		r.Delete("/api/teams/{id}", handleTeamDelete(deps.Teams, deps.Game))
		r.Put("/api/config", handleConfigPut(deps.Game))
		r.Put("/api/playlist", handlePlaylistPut(deps.Game))
		r.Get("/api/search", handleSearch(deps.Search))

		r.Post("/api/game/start", handleGameStart(deps.Game))
		r.Post("/api/game/pause", handleGamePause(deps.Game))
		r.Post("/api/game/resume", handleGameResume(deps.Game))
		r.Post("/api/game/answer", handleGameAnswer(deps.Game))
		r.Post("/api/game/reset", handleGameReset(deps.Game))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			deps.Logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
