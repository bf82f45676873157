package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"chat-game-bot/internal/model"
	"chat-game-bot/internal/pkg/lock"
	"chat-game-bot/internal/store"
	"chat-game-bot/internal/timer"
)

const (
	// DefaultLockTimeout bounds how long a handler waits for a busy session.
	// It must exceed the dictionary lookup timeout.
	DefaultLockTimeout = 15 * time.Second

	// DefaultRetryDelay is how long an expiry waits before trying again when
	// the session lock is busy.
	DefaultRetryDelay = time.Second

	// callbackTimeout bounds the work done by a timer callback.
	callbackTimeout = 30 * time.Second
)

// Dependencies holds everything the engine needs.
type Dependencies struct {
	Registry *Registry
	Stores   map[model.GameType]store.Store
	Notifier Notifier

	Recorder    Recorder         // optional, finished games are not recorded if nil
	Timers      *timer.Registry  // optional
	Locks       *lock.ChatLock   // optional
	Now         func() time.Time // optional
	LockTimeout time.Duration    // optional
	RetryDelay  time.Duration    // optional
}

// Engine is the session state machine shared by all games. Every operation
// on one game in one chat runs under that session's lock, so handlers and
// timer callbacks never interleave their read-modify-write cycles.
type Engine struct {
	registry    *Registry
	stores      map[model.GameType]store.Store
	notifier    Notifier
	recorder    Recorder
	timers      *timer.Registry
	locks       *lock.ChatLock
	now         func() time.Time
	lockTimeout time.Duration
	retryDelay  time.Duration
}

// NewEngine creates an engine. Every registered game needs a store.
func NewEngine(deps *Dependencies) (*Engine, error) {
	if deps == nil || deps.Registry == nil {
		return nil, fmt.Errorf("game registry is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	for _, r := range deps.Registry.List() {
		if deps.Stores[r.Type()] == nil {
			return nil, fmt.Errorf("no store configured for game %s", r.Type())
		}
	}

	e := &Engine{
		registry:    deps.Registry,
		stores:      deps.Stores,
		notifier:    deps.Notifier,
		recorder:    deps.Recorder,
		timers:      deps.Timers,
		locks:       deps.Locks,
		now:         deps.Now,
		lockTimeout: deps.LockTimeout,
		retryDelay:  deps.RetryDelay,
	}
	if e.timers == nil {
		e.timers = timer.NewRegistry()
	}
	if e.locks == nil {
		e.locks = lock.NewChatLock()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.lockTimeout <= 0 {
		e.lockTimeout = DefaultLockTimeout
	}
	if e.retryDelay <= 0 {
		e.retryDelay = DefaultRetryDelay
	}
	return e, nil
}

// SessionKey identifies one game in one chat for locks and timers.
func SessionKey(t model.GameType, chatID string) string {
	return string(t) + ":" + chatID
}

// Stop cancels all pending timers.
func (e *Engine) Stop() {
	e.timers.Stop()
}

// Resume arms the timers of the sessions persisted by a previous run. Lobby
// and turn deadlines count from when the lobby opened and from the last
// move; deadlines that already passed fire right away. Call it once before
// serving updates.
func (e *Engine) Resume(ctx context.Context) error {
	now := e.now()
	for _, rules := range e.registry.List() {
		t := rules.Type()
		sessions, err := e.stores[t].Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load %s sessions: %w", t, err)
		}

		lobbies, active := 0, 0
		for chatID, s := range sessions {
			key := SessionKey(t, chatID)
			switch s.Phase {
			case model.PhaseLobby:
				d := rules.LobbyTimeout()
				if d <= 0 {
					continue
				}
				e.timers.Arm(key, timer.Lobby, remaining(s.CreatedAt.Add(d), now), e.onLobbyExpired(t, chatID))
				lobbies++
			case model.PhaseActive:
				e.timers.Arm(key, timer.Turn, remaining(turnStarted(s, now).Add(rules.TurnTimeout()), now), e.onTurnExpired(t, chatID))
				active++
			}
		}

		if lobbies+active > 0 {
			log.Info().
				Str("game", string(t)).
				Int("lobbies", lobbies).
				Int("active", active).
				Msg("Resumed persisted games")
		}
	}
	return nil
}

// remaining returns the time left until deadline, never negative.
func remaining(deadline, now time.Time) time.Duration {
	return max(deadline.Sub(now), 0)
}

// turnStarted returns when the current turn began. Sessions that do not
// track their last move get a full turn from now.
func turnStarted(s *model.Session, now time.Time) time.Time {
	if s.LastMoveTime > 0 {
		return time.UnixMilli(s.LastMoveTime)
	}
	return now
}

// Start opens a lobby with player as its first participant.
func (e *Engine) Start(ctx context.Context, t model.GameType, chatID, player string) (*Reply, error) {
	rules, st, err := e.game(t)
	if err != nil {
		return nil, err
	}
	key := SessionKey(t, chatID)

	var reply *Reply
	err = e.locks.WithLockContext(ctx, key, e.lockTimeout, func() error {
		sessions, err := st.Load(ctx)
		if err != nil {
			return err
		}
		if existing, ok := sessions[chatID]; ok {
			if existing.Phase == model.PhaseLobby {
				return Reject(ErrSessionWaiting, "⚠️ A %s game is already waiting for players. Send <b>join-%s</b> to join it.", rules.Name(), t)
			}
			return Reject(ErrSessionExists, "⚠️ A %s game is already active here. Finish it before starting a new one.", rules.Name())
		}

		s := rules.NewSession(chatID, player, e.now())
		if err := e.put(ctx, st, s); err != nil {
			return err
		}
		if d := rules.LobbyTimeout(); d > 0 {
			e.timers.Arm(key, timer.Lobby, d, e.onLobbyExpired(t, chatID))
		}

		log.Info().
			Str("game", string(t)).
			Str("chat_id", chatID).
			Str("user_id", player).
			Msg("Game lobby opened")

		reply = &Reply{Text: rules.Created(s, e.notifier.Mention), Mentions: []string{player}}
		return nil
	})
	return reply, err
}

// Join adds player to the lobby. Games that start on a full lobby begin
// immediately; the others wait for the lobby timer.
func (e *Engine) Join(ctx context.Context, t model.GameType, chatID, player string) (*Reply, error) {
	rules, st, err := e.game(t)
	if err != nil {
		return nil, err
	}
	key := SessionKey(t, chatID)

	var reply *Reply
	err = e.locks.WithLockContext(ctx, key, e.lockTimeout, func() error {
		sessions, err := st.Load(ctx)
		if err != nil {
			return err
		}
		current, ok := sessions[chatID]
		if !ok {
			return Reject(ErrNoLobby, "❌ No %s game is waiting for players here. Send <b>%s</b> to start one.", rules.Name(), t)
		}
		if current.Phase != model.PhaseLobby {
			return Reject(ErrAlreadyStarted, "⚠️ Game already started.")
		}
		if current.HasPlayer(player) {
			return Reject(ErrAlreadyJoined, "⚠️ You already joined the game.")
		}
		if len(current.Players) >= rules.MaxPlayers() {
			return Reject(ErrLobbyFull, "⚠️ Player limit reached (%d).", rules.MaxPlayers())
		}

		s := current.Clone()
		s.Players = append(s.Players, player)
		began := rules.StartsOnFull() && len(s.Players) >= rules.MaxPlayers()
		if began {
			e.begin(rules, s)
		}
		if err := e.put(ctx, st, s); err != nil {
			return err
		}
		if began {
			e.timers.Cancel(key, timer.Lobby)
			e.armTurn(rules, s)
		}

		log.Info().
			Str("game", string(t)).
			Str("chat_id", chatID).
			Str("user_id", player).
			Int("players", len(s.Players)).
			Bool("began", began).
			Msg("Player joined game")

		reply = &Reply{Text: rules.Joined(s, player, e.notifier.Mention), Mentions: s.Players}
		return nil
	})
	return reply, err
}

// Cancel removes a lobby. Only the player who opened it may cancel, and only
// before the game begins.
func (e *Engine) Cancel(ctx context.Context, t model.GameType, chatID, player string) (*Reply, error) {
	rules, st, err := e.game(t)
	if err != nil {
		return nil, err
	}
	key := SessionKey(t, chatID)

	var reply *Reply
	err = e.locks.WithLockContext(ctx, key, e.lockTimeout, func() error {
		sessions, err := st.Load(ctx)
		if err != nil {
			return err
		}
		s, ok := sessions[chatID]
		if !ok {
			return Reject(ErrNoSession, "⚠️ No ongoing %s game to cancel.", rules.Name())
		}
		if starter(s) != player {
			return Reject(ErrNotStarter, "⚠️ Only the game starter can cancel the game.")
		}
		if s.Phase != model.PhaseLobby {
			return Reject(ErrAlreadyStarted, "⚠️ The game already started. Send <b>leave-%s</b> to leave it.", t)
		}

		if err := e.remove(ctx, st, chatID); err != nil {
			return err
		}
		e.timers.CancelAll(key)

		log.Info().Str("game", string(t)).Str("chat_id", chatID).Msg("Game lobby cancelled")

		reply = &Reply{Text: rules.Cancelled(s, e.notifier.Mention), Mentions: s.Players}
		return nil
	})
	return reply, err
}

// Leave ends the game because one of its participants left.
func (e *Engine) Leave(ctx context.Context, t model.GameType, chatID, player string) (*Reply, error) {
	rules, st, err := e.game(t)
	if err != nil {
		return nil, err
	}
	key := SessionKey(t, chatID)

	var reply *Reply
	err = e.locks.WithLockContext(ctx, key, e.lockTimeout, func() error {
		sessions, err := st.Load(ctx)
		if err != nil {
			return err
		}
		s, ok := sessions[chatID]
		if !ok {
			return Reject(ErrNoSession, "⚠️ No active %s game to leave.", rules.Name())
		}
		if !s.HasPlayer(player) {
			return Reject(ErrNotParticipant, "⚠️ You are not part of the game.")
		}

		if err := e.remove(ctx, st, chatID); err != nil {
			return err
		}
		e.timers.CancelAll(key)

		log.Info().
			Str("game", string(t)).
			Str("chat_id", chatID).
			Str("user_id", player).
			Str("phase", string(s.Phase)).
			Msg("Player left game")

		reply = &Reply{Text: rules.Left(s, player, e.notifier.Mention), Mentions: s.Players}
		return nil
	})
	return reply, err
}

// Move offers an inbound text to every game with an active session in the
// chat. It returns ErrNoActiveSession (or ErrNotParticipant) when no game
// claims the text; callers should ignore those silently.
func (e *Engine) Move(ctx context.Context, chatID, player, text string) (*Reply, error) {
	lastErr := ErrNoActiveSession
	for _, rules := range e.registry.List() {
		move, ok := rules.ParseMove(text)
		if !ok {
			continue
		}
		reply, err := e.move(ctx, rules, chatID, player, move)
		if errors.Is(err, ErrNoActiveSession) || errors.Is(err, ErrNotParticipant) {
			if errors.Is(err, ErrNotParticipant) {
				lastErr = err
			}
			continue
		}
		return reply, err
	}
	return nil, lastErr
}

func (e *Engine) move(ctx context.Context, rules Rules, chatID, player, move string) (*Reply, error) {
	t := rules.Type()
	st := e.stores[t]
	key := SessionKey(t, chatID)

	var reply *Reply
	err := e.locks.WithLockContext(ctx, key, e.lockTimeout, func() error {
		sessions, err := st.Load(ctx)
		if err != nil {
			return err
		}
		current, ok := sessions[chatID]
		if !ok || current.Phase != model.PhaseActive {
			return ErrNoActiveSession
		}
		if !current.HasPlayer(player) {
			return ErrNotParticipant
		}
		if current.CurrentPlayer() != player {
			return Reject(ErrNotYourTurn, "⛔️ It is not your turn.")
		}
		if err := rules.ValidateMove(ctx, current, player, move); err != nil {
			log.Debug().
				Err(err).
				Str("game", string(t)).
				Str("chat_id", chatID).
				Str("user_id", player).
				Str("move", move).
				Msg("Move rejected")
			return err
		}

		s := current.Clone()
		rules.ApplyMove(s, player, move, e.now())
		outcome := rules.CheckTerminal(s, player)
		if outcome != nil {
			if err := e.finish(ctx, st, s, outcome); err != nil {
				return err
			}
			reply = &Reply{Text: rules.Finished(s, outcome, e.notifier.Mention), Mentions: s.Players}
			return nil
		}

		s.AdvanceTurn()
		if err := e.put(ctx, st, s); err != nil {
			return err
		}
		e.armTurn(rules, s)

		log.Debug().
			Str("game", string(t)).
			Str("chat_id", chatID).
			Str("user_id", player).
			Str("move", move).
			Int("turn", s.Turn).
			Msg("Move accepted")

		reply = &Reply{Text: rules.Moved(s, player, move, e.notifier.Mention), Mentions: s.Players}
		return nil
	})
	return reply, err
}

// Reset removes every game in the chat regardless of phase. It returns how
// many sessions were removed.
func (e *Engine) Reset(ctx context.Context, chatID string) (int, error) {
	removed := 0
	for _, rules := range e.registry.List() {
		t := rules.Type()
		st := e.stores[t]
		key := SessionKey(t, chatID)

		err := e.locks.WithLockContext(ctx, key, e.lockTimeout, func() error {
			sessions, err := st.Load(ctx)
			if err != nil {
				return err
			}
			e.timers.CancelAll(key)
			if _, ok := sessions[chatID]; !ok {
				return nil
			}
			if err := e.remove(ctx, st, chatID); err != nil {
				return err
			}
			removed++
			return nil
		})
		if err != nil {
			return removed, err
		}
	}
	if removed > 0 {
		log.Info().Str("chat_id", chatID).Int("removed", removed).Msg("Chat games reset")
	}
	return removed, nil
}

// onLobbyExpired closes the lobby: the game begins if enough players joined,
// otherwise the session is dropped.
func (e *Engine) onLobbyExpired(t model.GameType, chatID string) func(*timer.Timer) {
	return func(h *timer.Timer) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		rules, st, err := e.game(t)
		if err != nil {
			return
		}
		err = e.locks.WithLockContext(ctx, h.Key(), e.lockTimeout, func() error {
			if !e.timers.Claim(h) {
				return nil
			}
			sessions, err := st.Load(ctx)
			if err != nil {
				return err
			}
			current, ok := sessions[chatID]
			if !ok || current.Phase != model.PhaseLobby {
				return nil
			}

			if len(current.Players) < rules.MinPlayers() {
				if err := e.remove(ctx, st, chatID); err != nil {
					return err
				}
				e.timers.CancelAll(h.Key())
				log.Info().
					Str("game", string(t)).
					Str("chat_id", chatID).
					Int("players", len(current.Players)).
					Msg("Game lobby expired")
				e.notify(ctx, chatID, rules.LobbyExpired(current, e.notifier.Mention), current.Players)
				return nil
			}

			s := current.Clone()
			e.begin(rules, s)
			if err := e.put(ctx, st, s); err != nil {
				return err
			}
			e.armTurn(rules, s)
			log.Info().
				Str("game", string(t)).
				Str("chat_id", chatID).
				Int("players", len(s.Players)).
				Msg("Game began")
			e.notify(ctx, chatID, rules.Began(s, e.notifier.Mention), s.Players)
			return nil
		})
		if errors.Is(err, lock.ErrLockTimeout) {
			e.retry(h, e.onLobbyExpired(t, chatID))
			return
		}
		if err != nil {
			log.Error().Err(err).Str("game", string(t)).Str("chat_id", chatID).Msg("Failed to close game lobby")
		}
	}
}

// onTurnExpired forfeits the current turn holder.
func (e *Engine) onTurnExpired(t model.GameType, chatID string) func(*timer.Timer) {
	return func(h *timer.Timer) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		rules, st, err := e.game(t)
		if err != nil {
			return
		}
		err = e.locks.WithLockContext(ctx, h.Key(), e.lockTimeout, func() error {
			if !e.timers.Claim(h) {
				return nil
			}
			sessions, err := st.Load(ctx)
			if err != nil {
				return err
			}
			s, ok := sessions[chatID]
			if !ok || s.Phase != model.PhaseActive {
				return nil
			}

			outcome := rules.TimeoutOutcome(s)
			if err := e.finish(ctx, st, s, outcome); err != nil {
				return err
			}
			log.Info().
				Str("game", string(t)).
				Str("chat_id", chatID).
				Str("loser", outcome.Loser).
				Msg("Turn timed out")
			e.notify(ctx, chatID, rules.Finished(s, outcome, e.notifier.Mention), s.Players)
			return nil
		})
		if errors.Is(err, lock.ErrLockTimeout) {
			e.retry(h, e.onTurnExpired(t, chatID))
			return
		}
		if err != nil {
			log.Error().Err(err).Str("game", string(t)).Str("chat_id", chatID).Msg("Failed to expire turn")
		}
	}
}

// retry schedules the expiry again after the session lock stayed busy. A
// timer that was cancelled or replaced meanwhile is not revived.
func (e *Engine) retry(h *timer.Timer, fn func(*timer.Timer)) {
	if !e.timers.Rearm(h, e.retryDelay, fn) {
		return
	}
	log.Warn().
		Str("key", h.Key()).
		Str("kind", h.Kind().String()).
		Dur("retry_in", e.retryDelay).
		Msg("Session busy, expiry postponed")
}

func (e *Engine) game(t model.GameType) (Rules, store.Store, error) {
	rules, ok := e.registry.Get(t)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownGame, t)
	}
	st, ok := e.stores[t]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s has no store", ErrUnknownGame, t)
	}
	return rules, st, nil
}

func (e *Engine) begin(rules Rules, s *model.Session) {
	s.Phase = model.PhaseActive
	s.Turn = 0
	rules.Begin(s, e.now())
}

func (e *Engine) armTurn(rules Rules, s *model.Session) {
	e.timers.Arm(SessionKey(rules.Type(), s.ChatID), timer.Turn, rules.TurnTimeout(), e.onTurnExpired(rules.Type(), s.ChatID))
}

// finish deletes the session, clears its timers and records the outcome.
func (e *Engine) finish(ctx context.Context, st store.Store, s *model.Session, outcome *Outcome) error {
	if err := e.remove(ctx, st, s.ChatID); err != nil {
		return err
	}
	e.timers.CancelAll(SessionKey(s.Type, s.ChatID))
	s.Phase = model.PhaseTerminal

	log.Info().
		Str("game", string(s.Type)).
		Str("chat_id", s.ChatID).
		Str("outcome", outcome.Kind).
		Strs("winners", outcome.Winners).
		Msg("Game finished")

	e.record(ctx, s, outcome)
	return nil
}

func (e *Engine) record(ctx context.Context, s *model.Session, outcome *Outcome) {
	if e.recorder == nil || outcome.Kind == "" {
		return
	}
	result := &model.GameResult{
		ChatID:     s.ChatID,
		GameType:   s.Type,
		Outcome:    outcome.Kind,
		Players:    append([]string(nil), s.Players...),
		Winners:    append([]string{}, outcome.Winners...),
		Words:      len(s.Words),
		StartedAt:  s.CreatedAt,
		FinishedAt: e.now(),
	}
	if outcome.Loser != "" {
		loser := outcome.Loser
		result.Loser = &loser
	}
	if err := e.recorder.Record(ctx, result); err != nil {
		log.Warn().Err(err).Str("chat_id", s.ChatID).Msg("Failed to record game result")
	}
}

func (e *Engine) notify(ctx context.Context, chatID, text string, mentions []string) {
	if err := e.notifier.Send(ctx, chatID, text, mentions); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("Failed to send game announcement")
	}
}

func (e *Engine) put(ctx context.Context, st store.Store, s *model.Session) error {
	return st.Update(ctx, func(all store.Sessions) error {
		all[s.ChatID] = s
		return nil
	})
}

func (e *Engine) remove(ctx context.Context, st store.Store, chatID string) error {
	return st.Update(ctx, func(all store.Sessions) error {
		delete(all, chatID)
		return nil
	})
}

// starter returns the player allowed to cancel the lobby.
func starter(s *model.Session) string {
	if s.StartedBy != "" {
		return s.StartedBy
	}
	if len(s.Players) > 0 {
		return s.Players[0]
	}
	return ""
}
