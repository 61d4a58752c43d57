package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

// Archiver persists finished games. A nil Archiver disables archiving.
type Archiver interface {
	ArchiveGame(ctx context.Context, id string, g *engine.GameState) error
}

// Handlers holds the HTTP handlers, the evaluation engine and the
// session registry.
type Handlers struct {
	engine   *engine.Engine
	registry *Registry
	version  string
	pool     *WorkerPool
	store    Archiver
	log      zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHandlers creates a Handlers instance. pool and store may be nil.
func NewHandlers(e *engine.Engine, reg *Registry, version string, pool *WorkerPool, store Archiver, log zerolog.Logger) *Handlers {
	return &Handlers{
		engine:   e,
		registry: reg,
		version:  version,
		pool:     pool,
		store:    store,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// writeEngineError maps the engine error taxonomy to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidMove):
		writeError(w, http.StatusBadRequest, err.Error(), "ILLEGAL_MOVE")
	case errors.Is(err, engine.ErrWrongPhase):
		writeError(w, http.StatusConflict, err.Error(), "WRONG_PHASE")
	case errors.Is(err, engine.ErrGameFinished):
		writeError(w, http.StatusConflict, err.Error(), "GAME_FINISHED")
	case errors.Is(err, engine.ErrInvalidState):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_STATE")
	case errors.Is(err, engine.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_CONFIG")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL")
	}
}

// gameResponse builds the standard snapshot payload. Caller must hold
// the session lock.
func gameResponse(s *Session) GameResponse {
	return GameResponse{
		ID:    s.ID,
		Key:   s.Game.Key().String(),
		State: s.Game,
	}
}

// broadcastState pushes the current snapshot to every WebSocket client
// of the session. Caller must hold the session lock; the payload is a
// clone so encoding happens outside it.
func (h *Handlers) broadcastState(s *Session) {
	s.hub.Broadcast(WSResponse{
		Type: "state",
		Payload: GameResponse{
			ID:    s.ID,
			Key:   s.Game.Key().String(),
			State: s.Game.Clone(),
		},
	})
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Games:   h.registry.Count(),
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateGame handles POST /api/games.
func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	configs := make([]engine.PlayerConfig, 0, len(req.Players))
	for _, spec := range req.Players {
		color, err := parseColor(spec.Color)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_COLOR")
			return
		}
		diff, err := parseDifficulty(spec.Difficulty)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_DIFFICULTY")
			return
		}
		configs = append(configs, engine.PlayerConfig{
			Name:       spec.Name,
			Color:      color,
			AI:         spec.AI,
			Difficulty: diff,
		})
	}

	s, err := h.registry.Create(configs, req.Seed)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.log.Info().Str("game", s.ID).Int("players", len(configs)).Msg("game created")

	s.Lock()
	defer s.Unlock()
	writeJSON(w, http.StatusCreated, gameResponse(s))
}

// session resolves the {id} path value, writing a 404 on failure.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), "GAME_NOT_FOUND")
		return nil, false
	}
	return s, true
}

// GetGame handles GET /api/games/{id}.
func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	writeJSON(w, http.StatusOK, gameResponse(s))
}

// Roll handles POST /api/games/{id}/roll. The body may carry explicit
// dice; otherwise the session's own dice stream is used.
func (h *Handlers) Roll(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req RollRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
			return
		}
	}

	s.Lock()
	defer s.Unlock()

	var dice engine.DiceResult
	if req.Dice != nil {
		dice = engine.DiceResult{Die1: req.Dice[0], Die2: req.Dice[1]}
		if !dice.Valid() {
			writeError(w, http.StatusBadRequest, "dice must be 1-6", "INVALID_DICE")
			return
		}
	} else {
		dice = s.Roller.Roll()
	}

	moves, err := s.Game.Roll(dice)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.broadcastState(s)

	writeJSON(w, http.StatusOK, RollResponse{
		Dice:  dice,
		Moves: moves,
		Game:  gameResponse(s),
	})
}

// Moves handles GET /api/games/{id}/moves.
func (h *Handlers) Moves(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	writeJSON(w, http.StatusOK, MovesResponse{
		Moves: s.Game.LegalMoves(),
		Key:   s.Game.Key().String(),
	})
}

// Move handles POST /api/games/{id}/move. The move is validated against
// the server's own legal-move set; an out-of-date or fabricated move is
// rejected without state change.
func (h *Handlers) Move(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	s.Lock()
	defer s.Unlock()

	if err := s.Game.Apply(req.Move); err != nil {
		writeEngineError(w, err)
		return
	}
	h.afterMutation(s)
	writeJSON(w, http.StatusOK, gameResponse(s))
}

// AIMove handles POST /api/games/{id}/ai-move: the server selects and
// applies one move for the player on turn using that seat's difficulty.
func (h *Handlers) AIMove(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Lock()
	defer s.Unlock()

	moves := s.Game.LegalMoves()
	if len(moves) == 0 {
		writeError(w, http.StatusConflict, "no legal moves in current state", "NO_MOVES")
		return
	}
	player := s.Game.CurrentPlayer()

	h.rngMu.Lock()
	move := h.engine.ChooseMove(h.rng, s.Game, moves, player.Difficulty)
	h.rngMu.Unlock()

	if err := s.Game.Apply(move); err != nil {
		writeEngineError(w, err)
		return
	}
	h.afterMutation(s)
	writeJSON(w, http.StatusOK, gameResponse(s))
}

// afterMutation broadcasts the new state and archives the game when it
// just finished. Caller must hold the session lock.
func (h *Handlers) afterMutation(s *Session) {
	h.broadcastState(s)
	if s.Game.Phase != engine.PhaseFinished || h.store == nil {
		return
	}
	snapshot := s.Game.Clone()
	id := s.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.store.ArchiveGame(ctx, id, snapshot); err != nil {
			h.log.Error().Err(err).Str("game", id).Msg("archive failed")
			return
		}
		h.log.Info().Str("game", id).Msg("game archived")
	}()
}

// AnalyzeMoves handles POST /api/analyze/moves: ranked look-ahead
// evaluation of an arbitrary snapshot's legal moves.
func (h *Handlers) AnalyzeMoves(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	var req AnalyzeMovesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if req.State == nil {
		writeError(w, http.StatusBadRequest, "state is required", "MISSING_STATE")
		return
	}
	if err := req.State.Validate(); err != nil {
		writeEngineError(w, err)
		return
	}

	ranked := h.engine.RankMoves(req.State, req.State.LegalMoves())
	writeJSON(w, http.StatusOK, AnalyzeMovesResponse{
		Moves: ranked,
		Key:   req.State.Key().String(),
	})
}

// Rollout request caps. A rollout runs synchronously in the handler, so
// oversized requests would pin a slow-pool slot until done; anything
// above these limits is clamped.
const (
	maxRolloutTrials   = 10000
	maxRolloutMaxTurns = 10000
)

// AnalyzeRollout handles POST /api/analyze/rollout. Rollouts are
// CPU-bound and go through the slow worker pool.
func (h *Handlers) AnalyzeRollout(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	var req RolloutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if req.State == nil {
		writeError(w, http.StatusBadRequest, "state is required", "MISSING_STATE")
		return
	}
	if err := req.State.Validate(); err != nil {
		writeEngineError(w, err)
		return
	}
	target, err := parseColor(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_COLOR")
		return
	}

	opts := engine.DefaultRolloutOptions()
	if req.Trials > 0 {
		opts.Trials = req.Trials
	}
	if opts.Trials > maxRolloutTrials {
		opts.Trials = maxRolloutTrials
	}
	if req.MaxTurns > 0 {
		opts.MaxTurns = req.MaxTurns
	}
	if opts.MaxTurns > maxRolloutMaxTurns {
		opts.MaxTurns = maxRolloutMaxTurns
	}
	opts.Seed = req.Seed

	result, err := h.engine.Rollout(req.State, target, opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	winProb := make(map[string]float64, engine.NumColors)
	for c := engine.Color(0); c < engine.NumColors; c++ {
		if req.State.PlayerByColor(c) != nil {
			winProb[c.String()] = result.WinProb[c]
		}
	}
	writeJSON(w, http.StatusOK, RolloutResponse{
		WinProb:    winProb,
		TargetWin:  result.TargetWin,
		StdDev:     result.TargetStdDev,
		CI95:       result.TargetCI,
		Trials:     result.TrialsCompleted,
		Unfinished: result.Unfinished,
	})
}
