package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"pitstop/models"
	"pitstop/services/dialogue"
	"pitstop/services/extraction"

	"go.uber.org/zap"
)

// historyWindow is the number of trailing messages handed to extractors as
// context.
const historyWindow = 6

// SubmitMessage runs one full conversation turn: current-turn extraction,
// fusion, retroactive scan, sentiment, state transition and persistence. All
// turns for one conversation id are strictly serialized.
func (s *DefaultConversationService) SubmitMessage(ctx context.Context, conversationID, text string) (*models.ChatResponse, error) {
	lock := s.locks.get(conversationID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.loadOrCreate(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if session.State.Terminal() {
		rej := dialogue.NewTerminalError(session.State)
		return s.chatResponse(session, nil, rej), nil
	}

	session.TurnCount++
	turn := session.TurnCount
	now := time.Now()
	session.Messages = append(session.Messages, models.Message{
		Role:      "user",
		Text:      text,
		TurnIndex: turn,
		Timestamp: now,
	})
	session.LastMessageAt = now

	history := tailMessages(session.Messages, historyWindow)

	// Current-turn extraction across all strategies and fields, in parallel.
	// A timed-out or failed call yields zero candidates for that field; it
	// never aborts the turn.
	candidates := s.extractCurrentTurn(ctx, text, history, turn)

	// Client disconnect cancels the turn before anything is committed.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audit := s.Fusion.ApplyAll(session.FieldStore, candidates)

	// Retroactive scan only for fields still missing after the current turn.
	if missing := session.FieldStore.Missing(models.RequiredFields); len(missing) > 0 {
		prior := session.Messages[:len(session.Messages)-1]
		retro := s.Scanner.Scan(ctx, missing, userMessages(prior), turn)
		audit = append(audit, s.Fusion.ApplyAll(session.FieldStore, retro)...)
	}

	sentiment := s.scoreSentiment(ctx, text, history)

	result, trErr := dialogue.Transition(session.State, session.FieldStore, dialogue.Input{
		Text:      text,
		Sentiment: sentiment,
	})
	if trErr == nil && result.Next != session.State {
		session.RecordTransition(result.Next, result.Reason)
	}

	session.AuditTrail = append(session.AuditTrail, audit...)

	if session.State == models.StateCompleted {
		if _, err := s.emitBooking(ctx, session); err != nil {
			return nil, err
		}
	}
	if session.State == models.StateCancelled {
		session.FieldStore.Frozen = true
	}

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}

	return s.chatResponse(session, audit, trErr), nil
}

// loadOrCreate resolves the session for an id, creating a fresh one in
// GREETING on first contact.
func (s *DefaultConversationService) loadOrCreate(ctx context.Context, id string) (*models.ConversationSession, error) {
	session, err := s.Store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		s.Logger.Info("starting conversation", zap.String("conversationID", id))
		return models.NewConversationSession(id), nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// extractCurrentTurn fans the (strategy, field) pairs out concurrently under
// one bounded timeout and collects whatever candidates come back in time.
func (s *DefaultConversationService) extractCurrentTurn(ctx context.Context, text string, history []models.Message, turn int) []models.CandidateMutation {
	extractCtx, cancel := context.WithTimeout(ctx, s.ExtractionTimeout)
	defer cancel()

	var (
		mu         sync.Mutex
		candidates []models.CandidateMutation
		wg         sync.WaitGroup
	)
	for _, ext := range s.Registry.Extractors() {
		for _, field := range models.AllFields {
			wg.Add(1)
			go func(ext extraction.FieldExtractor, field models.FieldName) {
				defer wg.Done()
				c, err := ext.Extract(extractCtx, field, text, history)
				if err != nil {
					// Infrastructure failure degrades to no extraction.
					s.Logger.Warn("extractor failed",
						zap.String("strategy", ext.Name()),
						zap.String("field", string(field)),
						zap.Error(err))
					return
				}
				if c == nil {
					return
				}
				c.TurnIndex = turn
				mu.Lock()
				candidates = append(candidates, *c)
				mu.Unlock()
			}(ext, field)
		}
	}
	wg.Wait()
	return candidates
}

// scoreSentiment asks the sentiment backend, degrading to the neutral default
// on any failure.
func (s *DefaultConversationService) scoreSentiment(ctx context.Context, text string, history []models.Message) models.SentimentScores {
	if s.Sentiment == nil {
		return models.NeutralSentiment()
	}
	scoreCtx, cancel := context.WithTimeout(ctx, s.ExtractionTimeout)
	defer cancel()

	scores, err := s.Sentiment.Score(scoreCtx, text, history)
	if err != nil {
		s.Logger.Warn("sentiment backend failed, using neutral default", zap.Error(err))
		return models.NeutralSentiment()
	}
	return scores
}

// persist saves the session; terminal sessions are additionally archived to
// Mongo but stay in the live store until their TTL lapses, so a late message
// still meets a terminal-state rejection rather than a silent restart.
func (s *DefaultConversationService) persist(ctx context.Context, session *models.ConversationSession) error {
	if session.State.Terminal() && s.ArchiveRepo != nil {
		if err := s.ArchiveRepo.Archive(ctx, session); err != nil {
			s.Logger.Error("failed to archive conversation",
				zap.String("conversationID", session.ID), zap.Error(err))
		}
	}
	return s.Store.Save(ctx, session)
}

func (s *DefaultConversationService) chatResponse(session *models.ConversationSession, audit []models.AuditEntry, trErr *dialogue.TransitionError) *models.ChatResponse {
	resp := &models.ChatResponse{
		ConversationID:    session.ID,
		State:             session.State,
		Fields:            session.FieldStore.Snapshot(),
		ConfirmationReady: IsConfirmationReady(session.State, session.FieldStore),
		MissingFields:     session.FieldStore.Missing(models.RequiredFields),
		TurnAudit:         audit,
	}
	if trErr != nil {
		resp.Rejection = trErr.Error()
	}
	return resp
}

func tailMessages(msgs []models.Message, n int) []models.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

func userMessages(msgs []models.Message) []models.Message {
	var out []models.Message
	for _, m := range msgs {
		if m.Role == "user" {
			out = append(out, m)
		}
	}
	return out
}
