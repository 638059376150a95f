package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/stereoclub/blindtest/internal/game"
	"github.com/stereoclub/blindtest/internal/round"
	"github.com/stereoclub/blindtest/internal/team"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Blindtest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Local API driving the music blind-test party game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/host/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/host/login")
	postLogin.SetSummary("Host login")
	postLogin.SetDescription("Authenticate with the host password. Sets host_session cookie.")
	postLogin.AddReqStructure(HostLoginRequest{})
	postLogin.AddRespStructure(HostMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/host/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/host/logout")
	postLogout.SetSummary("Host logout")
	postLogout.SetDescription("Clears the host session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/host/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/host/me")
	getMe.SetSummary("Current host")
	getMe.SetDescription("Returns the authenticated host. Requires host_session cookie.")
	getMe.AddRespStructure(HostMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/teams
	listTeams, _ := r.NewOperationContext(http.MethodGet, "/api/teams")
	listTeams.SetSummary("List teams")
	listTeams.SetDescription("Returns all teams with scores and streaks.")
	listTeams.AddRespStructure([]team.Team{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listTeams)

	// POST /api/teams
	createTeam, _ := r.NewOperationContext(http.MethodPost, "/api/teams")
	createTeam.SetSummary("Create team")
	createTeam.SetDescription("Creates a team. Names are unique; at most four teams. Requires host session.")
	createTeam.AddReqStructure(TeamCreateRequest{})
	createTeam.AddRespStructure(team.Team{}, openapi.WithHTTPStatus(http.StatusCreated))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createTeam)

	// DELETE /api/teams/{id}
	deleteTeam, _ := r.NewOperationContext(http.MethodDelete, "/api/teams/{id}")
	deleteTeam.SetSummary("Delete team")
	deleteTeam.SetDescription("Removes a team. Blocked during a game. Requires host session.")
	deleteTeam.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(deleteTeam)

	// GET /api/config
	getConfig, _ := r.NewOperationContext(http.MethodGet, "/api/config")
	getConfig.SetSummary("Get game config")
	getConfig.AddRespStructure(game.Config{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getConfig)

	// PUT /api/config
	putConfig, _ := r.NewOperationContext(http.MethodPut, "/api/config")
	putConfig.SetSummary("Update game config")
	putConfig.SetDescription("Replaces the game config. Rejected while a game is running. Requires host session.")
	putConfig.AddReqStructure(game.Config{})
	putConfig.AddRespStructure(game.Config{}, openapi.WithHTTPStatus(http.StatusOK))
	putConfig.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putConfig.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(putConfig)

	// GET /api/search
	getSearch, _ := r.NewOperationContext(http.MethodGet, "/api/search")
	getSearch.SetSummary("Search tracks")
	getSearch.SetDescription("Searches the track provider. Only songs with a playable preview are returned. Requires host session.")
	getSearch.AddRespStructure(SearchResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSearch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getSearch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(getSearch)

	// GET /api/playlist
	getPlaylist, _ := r.NewOperationContext(http.MethodGet, "/api/playlist")
	getPlaylist.SetSummary("Get playlist")
	getPlaylist.AddRespStructure(PlaylistResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getPlaylist)

	// PUT /api/playlist
	putPlaylist, _ := r.NewOperationContext(http.MethodPut, "/api/playlist")
	putPlaylist.SetSummary("Replace playlist")
	putPlaylist.SetDescription("Replaces the playlist. Every song must have a preview URL. Requires host session.")
	putPlaylist.AddReqStructure(PlaylistRequest{})
	putPlaylist.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	putPlaylist.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putPlaylist.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(putPlaylist)

	// POST /api/game/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/game/start")
	postStart.SetSummary("Start game")
	postStart.SetDescription("Starts a new game: scores reset, playlist shuffled, round one begins. Requires host session.")
	postStart.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postStart)

	// POST /api/game/pause
	postPause, _ := r.NewOperationContext(http.MethodPost, "/api/game/pause")
	postPause.SetSummary("Pause round")
	postPause.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postPause.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postPause)

	// POST /api/game/resume
	postResume, _ := r.NewOperationContext(http.MethodPost, "/api/game/resume")
	postResume.SetSummary("Resume round")
	postResume.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postResume.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postResume)

	// POST /api/game/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/game/answer")
	postAnswer.SetSummary("Submit adjudicated answer")
	postAnswer.SetDescription("Records the host's verdict for the buzzing team. First submission wins the window. Requires host session.")
	postAnswer.AddReqStructure(AnswerRequest{})
	postAnswer.AddRespStructure(round.Outcome{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// POST /api/game/reset
	postReset, _ := r.NewOperationContext(http.MethodPost, "/api/game/reset")
	postReset.SetSummary("Reset game")
	postReset.SetDescription("Abandons any game in progress and returns to the home phase. Requires host session.")
	postReset.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postReset)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the full observable state: phase, config, teams, and the active round.")
	getState.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getState)

	// GET /api/game/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/game/stats")
	getStats.SetSummary("Get game stats")
	getStats.SetDescription("Returns the finished game's aggregate, or the persisted one from a previous session.")
	getStats.AddRespStructure(game.Stats{}, openapi.WithHTTPStatus(http.StatusOK))
	getStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getStats)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of phase, round, tick, volume, reveal, error, and finished events.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
