package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng := engine.NewEngine(engine.EngineOptions{CacheSize: 1 << 10})
	return NewServer(eng, DefaultConfig(), "test", nil, zerolog.Nop())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func createTestGame(t *testing.T, handler http.Handler, seed int64) GameResponse {
	t.Helper()
	w := doJSON(t, handler, "POST", "/api/games", CreateGameRequest{
		Players: []PlayerSpec{
			{Name: "alice", Color: "red"},
			{Name: "bob", Color: "blue", AI: true, Difficulty: "hard"},
		},
		Seed: seed,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var game GameResponse
	decode(t, w, &game)
	return game
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()

	w := doJSON(t, handler, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	decode(t, w, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	require.NotNil(t, health.Pool)
	assert.Equal(t, 100, health.Pool.MaxFast)
}

func TestCreateAndGetGame(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()

	game := createTestGame(t, handler, 1)
	assert.NotEmpty(t, game.ID)
	assert.NotEmpty(t, game.Key)
	require.NotNil(t, game.State)
	assert.Len(t, game.State.Players, 2)
	assert.Equal(t, engine.PhaseRolling, game.State.Phase)

	w := doJSON(t, handler, "GET", "/api/games/"+game.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got GameResponse
	decode(t, w, &got)
	assert.Equal(t, game.Key, got.Key)
}

func TestCreateGameRejectsBadColor(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()

	w := doJSON(t, handler, "POST", "/api/games", CreateGameRequest{
		Players: []PlayerSpec{{Name: "a", Color: "purple"}, {Name: "b", Color: "red"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "INVALID_COLOR", errResp.Code)
}

func TestGameNotFound(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()

	w := doJSON(t, handler, "GET", "/api/games/no-such-game", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRollAndMove(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()
	game := createTestGame(t, handler, 1)

	// Explicit dice with a 5: every red token can enter.
	w := doJSON(t, handler, "POST", "/api/games/"+game.ID+"/roll",
		RollRequest{Dice: &[2]int{5, 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var roll RollResponse
	decode(t, w, &roll)
	assert.Equal(t, engine.DiceResult{Die1: 5, Die2: 2}, roll.Dice)
	require.NotEmpty(t, roll.Moves)
	assert.Equal(t, engine.PhaseMoving, roll.Game.State.Phase)

	// The moves endpoint agrees with the roll response.
	w = doJSON(t, handler, "GET", "/api/games/"+game.ID+"/moves", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var moves MovesResponse
	decode(t, w, &moves)
	assert.Equal(t, roll.Moves, moves.Moves)

	// Apply the first legal move.
	w = doJSON(t, handler, "POST", "/api/games/"+game.ID+"/move",
		MoveRequest{Move: roll.Moves[0]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var after GameResponse
	decode(t, w, &after)
	assert.NotEqual(t, game.Key, after.Key)
}

func TestRollRejectsBadDice(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()
	game := createTestGame(t, handler, 1)

	w := doJSON(t, handler, "POST", "/api/games/"+game.ID+"/roll",
		RollRequest{Dice: &[2]int{0, 9}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMoveRejectsFabricatedMove(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()
	game := createTestGame(t, handler, 1)

	w := doJSON(t, handler, "POST", "/api/games/"+game.ID+"/roll",
		RollRequest{Dice: &[2]int{5, 2}})
	require.Equal(t, http.StatusOK, w.Code)

	bad := engine.LegalMove{TokenIndex: 0, Value: 2, From: -1, To: 40, Type: engine.MoveNormal}
	w = doJSON(t, handler, "POST", "/api/games/"+game.ID+"/move", MoveRequest{Move: bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "ILLEGAL_MOVE", errResp.Code)
}

func TestMoveInRollingPhaseConflicts(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()
	game := createTestGame(t, handler, 1)

	move := engine.LegalMove{TokenIndex: 0, Value: 5, From: -1, To: 0, Type: engine.MoveEnter}
	w := doJSON(t, handler, "POST", "/api/games/"+game.ID+"/move", MoveRequest{Move: move})
	assert.Equal(t, http.StatusConflict, w.Code)

	var errResp ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "WRONG_PHASE", errResp.Code)
}

func TestAIMove(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()
	game := createTestGame(t, handler, 1)

	w := doJSON(t, handler, "POST", "/api/games/"+game.ID+"/roll",
		RollRequest{Dice: &[2]int{5, 2}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, "POST", "/api/games/"+game.ID+"/ai-move", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var after GameResponse
	decode(t, w, &after)
	assert.NotEqual(t, game.Key, after.Key)
}

func TestAnalyzeMoves(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()

	g, err := engine.NewGame([]engine.PlayerConfig{
		{Name: "a", Color: engine.Red},
		{Name: "b", Color: engine.Blue},
	})
	require.NoError(t, err)
	if _, err := g.Roll(engine.DiceResult{Die1: 5, Die2: 2}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, handler, "POST", "/api/analyze/moves", AnalyzeMovesRequest{State: g})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AnalyzeMovesResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Moves)
	for i := 1; i < len(resp.Moves); i++ {
		assert.GreaterOrEqual(t, resp.Moves[i-1].Score, resp.Moves[i].Score)
	}
}

func TestAnalyzeMovesRejectsInvalidState(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()

	g, err := engine.NewGame([]engine.PlayerConfig{
		{Name: "a", Color: engine.Red},
		{Name: "b", Color: engine.Blue},
	})
	require.NoError(t, err)
	g.Current = 7 // corrupt

	w := doJSON(t, handler, "POST", "/api/analyze/moves", AnalyzeMovesRequest{State: g})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeRollout(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()

	g, err := engine.NewGame([]engine.PlayerConfig{
		{Name: "a", Color: engine.Red},
		{Name: "b", Color: engine.Blue},
	})
	require.NoError(t, err)

	w := doJSON(t, handler, "POST", "/api/analyze/rollout", RolloutRequest{
		State:  g,
		Target: "red",
		Trials: 40,
		Seed:   7,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RolloutResponse
	decode(t, w, &resp)
	assert.Equal(t, 40, resp.Trials)
	assert.Contains(t, resp.WinProb, "red")
	assert.Contains(t, resp.WinProb, "blue")
	assert.GreaterOrEqual(t, resp.TargetWin, 0.0)
	assert.LessOrEqual(t, resp.TargetWin, 1.0)
}

func TestAnalyzeRolloutClampsTrials(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()

	g, err := engine.NewGame([]engine.PlayerConfig{
		{Name: "a", Color: engine.Red},
		{Name: "b", Color: engine.Blue},
	})
	require.NoError(t, err)

	// Red one square from winning so each trial ends within a few turns.
	red := g.PlayerByColor(engine.Red)
	for i := 0; i < 3; i++ {
		red.Tokens[i].State = engine.Finished
		red.Tokens[i].Position = engine.FinalPosition
		red.Tokens[i].Finished = true
	}
	red.Tokens[3].State = engine.InHomeColumn
	red.Tokens[3].Position = engine.FinalPosition - 1

	w := doJSON(t, handler, "POST", "/api/analyze/rollout", RolloutRequest{
		State:  g,
		Target: "red",
		Trials: 500000,
		Seed:   3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RolloutResponse
	decode(t, w, &resp)
	assert.Equal(t, maxRolloutTrials, resp.Trials)
	assert.Equal(t, 0, resp.Unfinished)
}

func TestWebSocketRollAndBroadcast(t *testing.T) {
	s := newTestServer(t)
	handler := s.setupRoutes()
	game := createTestGame(t, handler, 1)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/games/" + game.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Initial snapshot arrives without being asked.
	var initial WSResponse
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, "state", initial.Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "ping", ID: "1"}))
	var pong WSResponse
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "1", pong.ID)

	// Roll over the socket; expect the broadcast and the direct reply,
	// in either order.
	payload, err := json.Marshal(RollRequest{Dice: &[2]int{5, 2}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(WSMessage{Type: "roll", ID: "2", Payload: payload}))

	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		var msg WSResponse
		require.NoError(t, conn.ReadJSON(&msg))
		types[msg.Type] = true
	}
	assert.True(t, types["state"], "missing state broadcast")
	assert.True(t, types["roll"], "missing roll reply")
}
