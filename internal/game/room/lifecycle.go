package room

import (
	"github.com/palemoky/europe-conquest/internal/apperrors"
	"github.com/palemoky/europe-conquest/internal/game/state"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

// RequestPhase 房主请求阶段切换
// countdown: 所有玩家已准备时开始倒计时；ended: 提前结束本局；waiting: 结束后立即重置
func (r *Room) RequestPhase(playerID string, phase string) error {
	var err error
	if execErr := r.exec(func() { err = r.requestPhase(playerID, state.Phase(phase)) }); execErr != nil {
		return execErr
	}
	return err
}

func (r *Room) requestPhase(playerID string, phase state.Phase) error {
	if _, ok := r.state.Player(playerID); !ok {
		return apperrors.ErrUnknownPlayer
	}
	if playerID != r.state.HostID {
		r.log.Debug().Str("player", playerID).Str("phase", string(phase)).Msg("non-host phase request ignored")
		return apperrors.ErrNotHost
	}

	switch phase {
	case state.PhaseCountdown:
		return r.startCountdown()
	case state.PhaseEnded:
		if r.state.Phase != state.PhasePlaying {
			return apperrors.ErrWrongPhase
		}
		r.endGame()
		return nil
	case state.PhaseWaiting:
		if r.state.Phase != state.PhaseEnded {
			return apperrors.ErrWrongPhase
		}
		r.resetRound()
		return nil
	}
	return apperrors.ErrWrongPhase
}

// startCountdown waiting → countdown，立即广播初始值，之后每秒递减
func (r *Room) startCountdown() error {
	if r.state.Phase != state.PhaseWaiting {
		return apperrors.ErrWrongPhase
	}
	if !r.state.AllReady() {
		return apperrors.ErrNotReady
	}

	r.round++
	round := r.round
	r.state.Phase = state.PhaseCountdown
	r.state.Countdown = r.settings.CountdownSeconds

	r.broadcastPhase()
	r.log.Info().Int("countdown", r.state.Countdown).Msg("⏳ countdown started")

	if r.state.Countdown <= 0 {
		r.startPlaying()
		return nil
	}
	r.countdownTimer = r.deps.Scheduler.Every(countdownTick, func() {
		r.post(func() { r.countdownStep(round) })
	})
	return nil
}

func (r *Room) countdownStep(round uint64) {
	if round != r.round || r.state.Phase != state.PhaseCountdown {
		return
	}

	r.state.Countdown--
	r.broadcastPhase()

	if r.state.Countdown <= 0 {
		stopTimer(&r.countdownTimer)
		r.startPlaying()
	}
}

// startPlaying countdown → playing，分配领土并启动兵力、经济和结束计时器
func (r *Room) startPlaying() {
	round := r.round
	r.state.StartPlaying(r.deps.Clock(), r.settings.SessionLength)

	r.broadcast(codec.MustNewMessage(protocol.MsgGameState, r.state.Snapshot()))
	r.log.Info().Int("provinces", len(r.state.Provinces)).Msg("🎮 game started")
	r.changed()
	r.saveMeta()

	r.powerTimer = r.deps.Scheduler.Every(r.settings.PowerInterval, func() {
		r.post(func() { r.powerStep(round) })
	})
	r.economyTimer = r.deps.Scheduler.Every(r.settings.EconomyInterval, func() {
		r.post(func() { r.economyStep(round) })
	})
	r.endTimer = r.deps.Scheduler.After(r.settings.SessionLength, func() {
		r.post(func() {
			if round == r.round && r.state.Phase == state.PhasePlaying {
				r.endGame()
			}
		})
	})
}

func (r *Room) powerStep(round uint64) {
	if round != r.round || r.state.Phase != state.PhasePlaying {
		return
	}
	r.state.TickPower()
	r.broadcast(codec.MustNewMessage(protocol.MsgGameStateUpdate, r.state.PlayersUpdate()))
	r.changed()
}

func (r *Room) economyStep(round uint64) {
	if round != r.round || r.state.Phase != state.PhasePlaying {
		return
	}
	r.state.TickEconomy()
	r.broadcast(codec.MustNewMessage(protocol.MsgGameStateUpdate, r.state.PlayersUpdate()))
	r.changed()
}

// endGame playing → ended，广播排行并在延迟后重置
func (r *Room) endGame() {
	stopTimer(&r.powerTimer)
	stopTimer(&r.economyTimer)
	stopTimer(&r.endTimer)

	round := r.round
	r.state.Phase = state.PhaseEnded
	board := r.state.Leaderboard()

	r.broadcastPhase()
	r.broadcast(codec.MustNewMessage(protocol.MsgGameOver, protocol.GameOverPayload{
		Leaderboard: board,
		ResetInSecs: int(r.settings.ResetDelay.Seconds()),
	}))
	if len(board) > 0 {
		r.log.Info().Str("winner", board[0].PlayerID).Int("score", board[0].Score).Msg("🏆 game over")
	}
	if r.deps.Recorder != nil {
		r.deps.Recorder.RecordRound(r.code, board)
	}
	r.saveMeta()

	r.resetTimer = r.deps.Scheduler.After(r.settings.ResetDelay, func() {
		r.post(func() {
			if round == r.round && r.state.Phase == state.PhaseEnded {
				r.resetRound()
			}
		})
	})
}

// resetRound ended → waiting，保留玩家名单，要求重新准备
func (r *Room) resetRound() {
	stopTimer(&r.resetTimer)
	r.round++
	r.state.ResetRound(r.settings.CountdownSeconds)

	r.broadcast(codec.MustNewMessage(protocol.MsgGameState, r.state.Snapshot()))
	r.log.Info().Msg("🔄 round reset")
	r.changed()
	r.saveMeta()
}

// broadcastPhase 广播阶段与倒计时增量
func (r *Room) broadcastPhase() {
	r.broadcast(codec.MustNewMessage(protocol.MsgGameStateUpdate, r.state.PhaseUpdate()))
	r.changed()
}

// stopTimers 停止本房间的所有计时器
func (r *Room) stopTimers() {
	stopTimer(&r.countdownTimer)
	stopTimer(&r.powerTimer)
	stopTimer(&r.economyTimer)
	stopTimer(&r.endTimer)
	stopTimer(&r.resetTimer)
	r.round++
}
