package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/emberfall-games/emberfall/internal/game/actionqueue"
	"github.com/emberfall-games/emberfall/internal/game/battlemap"
	"github.com/emberfall-games/emberfall/internal/game/dice"
	"github.com/emberfall-games/emberfall/internal/game/narrator"
	"github.com/emberfall-games/emberfall/internal/game/participant"
	"github.com/emberfall-games/emberfall/internal/platform/timeouts"
	"github.com/emberfall-games/emberfall/internal/storage"
)

var tracer = otel.Tracer("github.com/emberfall-games/emberfall/internal/game/session")

// recentStoryWindow bounds how much of the story log is replayed to the
// narrator each turn.
const recentStoryWindow = 10

// Orchestrator owns one session's state and drives the turn-phase cycle.
//
// All state is guarded by a single mutex that is never held across I/O:
// narrator calls, broadcasts, and snapshot writes all happen outside the
// critical section. Phase transitions are driven by timers; a generation
// counter invalidates timer fires that raced a Stop or an earlier
// transition.
type Orchestrator struct {
	sessionID string
	cfg       Config

	broadcaster Broadcaster
	narrator    narrator.Narrator
	fallback    narrator.Narrator
	store       storage.SnapshotStore

	mu          sync.Mutex
	phase       Phase
	phaseEndsAt time.Time
	timer       *time.Timer
	timerGen    uint64
	registry    *participant.Registry
	queue       *actionqueue.Queue
	battleMap   *battlemap.Map
	scene       Scene
	storyLog    []StoryEntry
	rng         *rand.Rand
	clock       func() time.Time
	started     bool
	stopped     bool

	baseCtx context.Context
}

// New creates an orchestrator for one session. The store may be nil, in which
// case snapshots are disabled and the session always cold-starts.
func New(sessionID string, cfg Config, b Broadcaster, n narrator.Narrator, store storage.SnapshotStore) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		sessionID:   sessionID,
		cfg:         cfg,
		broadcaster: b,
		narrator:    n,
		fallback:    narrator.NewScriptNarrator(nil),
		store:       store,
		registry:    participant.NewRegistry(),
		queue:       actionqueue.New(),
		battleMap:   battlemap.New(cfg.MapWidth, cfg.MapHeight),
		scene: Scene{
			Location:    "The Crossroads",
			Description: "A weathered signpost leans over a fork in the road. The session has not yet begun.",
		},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:   time.Now,
		baseCtx: context.Background(),
	}
}

// Start restores any persisted snapshot and opens the first player turn.
// Calling Start twice is an error.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return errors.New("session already started")
	}
	o.started = true
	o.baseCtx = ctx
	o.mu.Unlock()

	o.restoreSnapshot(ctx)

	o.mu.Lock()
	payload := o.enterPlayerTurnsLocked()
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventTurnPhaseChange, payload)
	return nil
}

// Stop halts the phase cycle and writes a final snapshot.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.timerGen++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	encoded, err := o.encodeSnapshotLocked()
	o.mu.Unlock()

	if err != nil {
		log.Printf("[SESSION] encode final snapshot: %v", err)
		return
	}
	o.writeSnapshot(encoded)
}

// Connect registers a participant and sends them a full state sync.
func (o *Orchestrator) Connect(participantID, displayName string, character *participant.Character) (participant.Participant, error) {
	o.mu.Lock()
	p, err := o.registry.Connect(participantID, displayName, character)
	if err != nil {
		o.mu.Unlock()
		return participant.Participant{}, err
	}
	payload := JoinedPayload{
		ParticipantID: p.ID,
		DisplayName:   p.DisplayName,
		Phase:         o.phase.String(),
		PhaseEndsIn:   o.phaseRemainingLocked(),
		Scene:         o.scene,
		StoryLog:      append([]StoryEntry(nil), o.storyLog...),
		GameState:     o.gameStateLocked(),
		BattleMap:     o.battleMap.Snapshot(),
	}
	o.mu.Unlock()

	o.broadcaster.SendTo(p.ID, EventJoined, payload)
	return p, nil
}

// Disconnect removes the participant from the roster and the battle map.
// An action they already queued this turn stays in the batch: the world
// resolves what was declared, even if the declarer dropped.
func (o *Orchestrator) Disconnect(participantID string) {
	o.mu.Lock()
	removed := o.registry.Disconnect(participantID)
	if removed {
		o.battleMap.RemovePlayer(participantID)
	}
	var payload BattleMapUpdatePayload
	if removed {
		payload = BattleMapUpdatePayload{BattleMap: o.battleMap.Snapshot()}
	}
	o.mu.Unlock()

	if removed {
		o.broadcaster.BroadcastAll(EventBattleMapUpdate, payload)
	}
}

// SubmitAction queues the participant's free-text action for the current
// turn. It is only accepted during the player-turns phase, and at most once
// per participant per turn.
func (o *Orchestrator) SubmitAction(participantID, text string) (actionqueue.QueuedAction, error) {
	o.mu.Lock()
	if o.phase != PhasePlayerTurns {
		o.mu.Unlock()
		return actionqueue.QueuedAction{}, ErrWrongPhase
	}
	p, ok := o.registry.Get(participantID)
	if !ok {
		o.mu.Unlock()
		return actionqueue.QueuedAction{}, ErrParticipantNotFound
	}
	action, err := o.queue.Submit(participantID, text, o.clock())
	if err != nil {
		o.mu.Unlock()
		return actionqueue.QueuedAction{}, err
	}
	o.registry.Touch(participantID)
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventPlayerActionQueued, PlayerActionQueuedPayload{
		PlayerName: p.DisplayName,
		Action:     action.Text,
	})
	return action, nil
}

// RollDice evaluates a dice expression for the participant and broadcasts
// the result. Rolls are allowed in any phase.
func (o *Orchestrator) RollDice(participantID, expression string) (dice.Result, error) {
	o.mu.Lock()
	p, ok := o.registry.Get(participantID)
	if !ok {
		o.mu.Unlock()
		return dice.Result{}, ErrParticipantNotFound
	}
	result := dice.Evaluate(expression, o.rng)
	o.registry.Touch(participantID)
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventDiceRolled, DiceRolledPayload{
		PlayerName: p.DisplayName,
		Expression: expression,
		Rolls:      result.Rolls,
		Total:      result.Total,
		Valid:      result.Valid,
	})
	return result, nil
}

// MovePlayer places the participant on the battle-map grid.
func (o *Orchestrator) MovePlayer(participantID string, x, y int) error {
	o.mu.Lock()
	if _, ok := o.registry.Get(participantID); !ok {
		o.mu.Unlock()
		return ErrParticipantNotFound
	}
	if err := o.battleMap.MovePlayer(participantID, x, y); err != nil {
		o.mu.Unlock()
		return err
	}
	payload := BattleMapUpdatePayload{BattleMap: o.battleMap.Snapshot()}
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventBattleMapUpdate, payload)
	return nil
}

// ActivateBattleMap enables the grid sub-state.
func (o *Orchestrator) ActivateBattleMap() {
	o.mu.Lock()
	o.battleMap.Activate()
	payload := BattleMapUpdatePayload{BattleMap: o.battleMap.Snapshot()}
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventBattleMapUpdate, payload)
}

// DeactivateBattleMap disables the grid sub-state, preserving its layout.
func (o *Orchestrator) DeactivateBattleMap() {
	o.mu.Lock()
	o.battleMap.Deactivate()
	payload := BattleMapUpdatePayload{BattleMap: o.battleMap.Snapshot()}
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventBattleMapUpdate, payload)
}

// AddEnemy places an enemy on the grid.
func (o *Orchestrator) AddEnemy(enemy battlemap.Enemy) error {
	o.mu.Lock()
	if err := o.battleMap.AddEnemy(enemy); err != nil {
		o.mu.Unlock()
		return err
	}
	payload := BattleMapUpdatePayload{BattleMap: o.battleMap.Snapshot()}
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventBattleMapUpdate, payload)
	return nil
}

// RemoveEnemy deletes an enemy from the grid.
func (o *Orchestrator) RemoveEnemy(enemyID string) {
	o.mu.Lock()
	o.battleMap.RemoveEnemy(enemyID)
	payload := BattleMapUpdatePayload{BattleMap: o.battleMap.Snapshot()}
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventBattleMapUpdate, payload)
}

// AddHazard places a hazard on the grid.
func (o *Orchestrator) AddHazard(hazard battlemap.Hazard) error {
	o.mu.Lock()
	if err := o.battleMap.AddHazard(hazard); err != nil {
		o.mu.Unlock()
		return err
	}
	payload := BattleMapUpdatePayload{BattleMap: o.battleMap.Snapshot()}
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventBattleMapUpdate, payload)
	return nil
}

// SetEnvironment updates the grid's lighting and weather flags.
func (o *Orchestrator) SetEnvironment(lighting, weather string) {
	o.mu.Lock()
	o.battleMap.SetEnvironment(lighting, weather)
	payload := BattleMapUpdatePayload{BattleMap: o.battleMap.Snapshot()}
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventBattleMapUpdate, payload)
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Participants returns the connected roster.
func (o *Orchestrator) Participants() []participant.Participant {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registry.List()
}

// StateSnapshot returns the current shared state, shaped like the join sync
// without a participant identity.
func (o *Orchestrator) StateSnapshot() JoinedPayload {
	o.mu.Lock()
	defer o.mu.Unlock()
	return JoinedPayload{
		Phase:       o.phase.String(),
		PhaseEndsIn: o.phaseRemainingLocked(),
		Scene:       o.scene,
		StoryLog:    append([]StoryEntry(nil), o.storyLog...),
		GameState:   o.gameStateLocked(),
		BattleMap:   o.battleMap.Snapshot(),
	}
}

// enterPlayerTurnsLocked opens a player turn and schedules its deadline.
// Callers hold the mutex and broadcast the returned payload after unlocking.
func (o *Orchestrator) enterPlayerTurnsLocked() TurnPhaseChangePayload {
	o.phase = PhasePlayerTurns
	o.phaseEndsAt = o.clock().Add(o.cfg.PlayerTurnDuration)
	o.scheduleTimerLocked(o.cfg.PlayerTurnDuration)
	return TurnPhaseChangePayload{
		Phase:     o.phase.String(),
		Duration:  o.cfg.PlayerTurnDuration.Seconds(),
		GameState: o.gameStateLocked(),
	}
}

// scheduleTimerLocked arms the phase timer, invalidating any prior fire.
func (o *Orchestrator) scheduleTimerLocked(d time.Duration) {
	o.timerGen++
	gen := o.timerGen
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(d, func() {
		o.onPhaseTimer(gen)
	})
}

// onPhaseTimer advances the cycle when the armed timer fires. Stale fires,
// recognizable by a generation mismatch, are dropped.
func (o *Orchestrator) onPhaseTimer(gen uint64) {
	o.mu.Lock()
	if o.stopped || gen != o.timerGen {
		o.mu.Unlock()
		return
	}
	switch o.phase {
	case PhasePlayerTurns:
		o.mu.Unlock()
		o.processTurn(gen)
	case PhaseDmResponse:
		payload := o.enterPlayerTurnsLocked()
		o.mu.Unlock()
		o.broadcaster.BroadcastAll(EventTurnPhaseChange, payload)
	default:
		o.mu.Unlock()
	}
}

// processTurn runs the dm-processing phase: it closes submissions, resolves
// the batch with the narrator, applies the result, and opens the response
// window. The timer deadline is authoritative; the turn closes even when not
// every participant acted, and an empty batch becomes a continuation beat.
func (o *Orchestrator) processTurn(gen uint64) {
	o.mu.Lock()
	if o.stopped || gen != o.timerGen || o.phase != PhasePlayerTurns {
		o.mu.Unlock()
		return
	}
	o.phase = PhaseDmProcessing
	o.phaseEndsAt = time.Time{}
	batch := o.queue.Actions()
	req := o.narratorRequestLocked(batch)
	processingPayload := TurnPhaseChangePayload{
		Phase:     o.phase.String(),
		GameState: o.gameStateLocked(),
	}
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventTurnPhaseChange, processingPayload)

	ctx, cancel := context.WithTimeout(o.baseCtx, o.cfg.NarratorTimeout)
	ctx, span := tracer.Start(ctx, "session.narrate", trace.WithAttributes(
		attribute.String("session.id", o.sessionID),
		attribute.Int("session.batch_size", len(req.Actions)),
		attribute.Bool("session.continuation", req.Continuation),
	))
	res, err := o.narrator.Narrate(ctx, req)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	cancel()
	if err != nil {
		log.Printf("[SESSION] narrator failed, using scripted fallback: %v", err)
		res, _ = o.fallback.Narrate(context.Background(), req)
	}

	o.mu.Lock()
	if o.stopped || gen != o.timerGen || o.phase != PhaseDmProcessing {
		o.mu.Unlock()
		return
	}
	drained := o.queue.Drain()
	now := o.clock().UTC()
	for _, action := range drained {
		actor := ""
		if p, ok := o.registry.Get(action.ParticipantID); ok {
			actor = p.DisplayName
		}
		o.appendStoryLocked(StoryEntry{Kind: StoryKindAction, Actor: actor, Text: action.Text, At: action.SubmittedAt})
	}
	o.appendStoryLocked(StoryEntry{Kind: StoryKindNarration, Text: res.Narration, At: now})
	if res.NPCResponse != nil {
		o.appendStoryLocked(StoryEntry{Kind: StoryKindDialogue, Actor: res.NPCResponse.Name, Text: res.NPCResponse.Dialogue, At: now})
	}
	o.applySceneUpdateLocked(res.SceneUpdate)

	o.phase = PhaseDmResponse
	o.phaseEndsAt = o.clock().Add(o.cfg.ResponseDuration)
	o.scheduleTimerLocked(o.cfg.ResponseDuration)

	storyPayload := DmStoryUpdatePayload{
		Narration:   res.Narration,
		SceneUpdate: res.SceneUpdate,
		NPCResponse: res.NPCResponse,
	}
	responsePayload := TurnPhaseChangePayload{
		Phase:     o.phase.String(),
		Duration:  o.cfg.ResponseDuration.Seconds(),
		GameState: o.gameStateLocked(),
	}
	encoded, encodeErr := o.encodeSnapshotLocked()
	o.mu.Unlock()

	o.broadcaster.BroadcastAll(EventDmStoryUpdate, storyPayload)
	o.broadcaster.BroadcastAll(EventTurnPhaseChange, responsePayload)

	if encodeErr != nil {
		log.Printf("[SESSION] encode snapshot: %v", encodeErr)
	} else {
		go o.writeSnapshot(encoded)
	}
}

// narratorRequestLocked builds the turn context handed to the narrator.
func (o *Orchestrator) narratorRequestLocked(batch []actionqueue.QueuedAction) narrator.Request {
	req := narrator.Request{
		Scene:        o.scene.Description,
		Location:     o.scene.Location,
		Continuation: len(batch) == 0,
	}
	start := len(o.storyLog) - recentStoryWindow
	if start < 0 {
		start = 0
	}
	for _, entry := range o.storyLog[start:] {
		req.RecentStory = append(req.RecentStory, entry.Text)
	}
	for _, p := range o.registry.List() {
		req.Participants = append(req.Participants, p.DisplayName)
	}
	for _, action := range batch {
		name := ""
		if p, ok := o.registry.Get(action.ParticipantID); ok {
			name = p.DisplayName
		}
		req.Actions = append(req.Actions, narrator.Action{ParticipantName: name, Text: action.Text})
	}
	return req
}

func (o *Orchestrator) applySceneUpdateLocked(update *narrator.SceneUpdate) {
	if update == nil {
		return
	}
	if update.Location != "" {
		o.scene.Location = update.Location
	}
	if update.Description != "" {
		o.scene.Description = update.Description
	}
	if len(update.AvailableActions) > 0 {
		o.scene.AvailableActions = append([]string(nil), update.AvailableActions...)
	}
}

func (o *Orchestrator) appendStoryLocked(entry StoryEntry) {
	o.storyLog = append(o.storyLog, entry)
	if excess := len(o.storyLog) - o.cfg.StoryLogLimit; excess > 0 {
		o.storyLog = append([]StoryEntry(nil), o.storyLog[excess:]...)
	}
}

func (o *Orchestrator) gameStateLocked() GameState {
	return GameState{
		ActedCount:        o.queue.ActedCount(),
		TotalParticipants: o.registry.Count(),
		QueueLength:       o.queue.Len(),
	}
}

func (o *Orchestrator) phaseRemainingLocked() float64 {
	if o.phaseEndsAt.IsZero() {
		return 0
	}
	remaining := o.phaseEndsAt.Sub(o.clock())
	if remaining < 0 {
		return 0
	}
	return remaining.Seconds()
}

func (o *Orchestrator) encodeSnapshotLocked() ([]byte, error) {
	state := persistedState{
		Scene:     o.scene,
		StoryLog:  append([]StoryEntry(nil), o.storyLog...),
		BattleMap: o.battleMap.Snapshot(),
		SavedAt:   o.clock().UTC(),
	}
	return json.Marshal(state)
}

// writeSnapshot persists an encoded snapshot. Failures are logged, never
// surfaced: losing a save costs at most one turn of recoverable state.
func (o *Orchestrator) writeSnapshot(encoded []byte) {
	if o.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.SnapshotSave)
	defer cancel()
	if err := o.store.Save(ctx, o.sessionID, encoded, o.cfg.SnapshotTTL); err != nil {
		log.Printf("[SESSION] save snapshot: %v", err)
	}
}

// restoreSnapshot loads persisted state on start. A missing snapshot is a
// normal cold start; any other failure is logged and the session starts
// fresh.
func (o *Orchestrator) restoreSnapshot(ctx context.Context) {
	if o.store == nil {
		return
	}
	loadCtx, cancel := context.WithTimeout(ctx, timeouts.SnapshotSave)
	defer cancel()
	encoded, err := o.store.Load(loadCtx, o.sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[SESSION] load snapshot: %v", err)
		}
		return
	}
	var state persistedState
	if err := json.Unmarshal(encoded, &state); err != nil {
		log.Printf("[SESSION] decode snapshot: %v", err)
		return
	}

	o.mu.Lock()
	o.scene = state.Scene
	o.storyLog = state.StoryLog
	o.battleMap.Restore(state.BattleMap)
	o.mu.Unlock()
	log.Printf("[SESSION] restored snapshot for session %s (%d story entries)", o.sessionID, len(state.StoryLog))
}
