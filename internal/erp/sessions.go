package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

var (
	ErrUnknownExercise = errors.New("erp: unknown exercise")
	ErrSessionNotFound = errors.New("erp: session not found")
	ErrAlreadyComplete = errors.New("erp: session already completed")
)

// SessionService owns the ERP session lifecycle: start a timed run,
// complete it with the anxiety curve, persist locally, sync remotely.
type SessionService struct {
	store   domain.Store
	syncer  domain.Syncer
	catalog *Catalog
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewSessionService(store domain.Store, syncer domain.Syncer, catalog *Catalog, logger *zerolog.Logger) *SessionService {
	return &SessionService{
		store:   store,
		syncer:  syncer,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Start opens a new session for an exercise. The write is local-first:
// the remote create rides the sync queue.
func (s *SessionService) Start(ctx context.Context, userID, exerciseID string, anxietyStart int) (*models.ERPSession, error) {
	exercise, ok := s.catalog.ByID(exerciseID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExercise, exerciseID)
	}

	session := models.ERPSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		ExerciseID:   exercise.ID,
		Category:     exercise.Category,
		AnxietyStart: anxietyStart,
		StartedAt:    s.now(),
	}

	sessions, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions = append(sessions, session)
	if err := s.persist(ctx, userID, sessions); err != nil {
		return nil, err
	}

	snapshot := session
	s.syncer.Enqueue(ctx, models.OpCreate, models.EntityERPSession, models.SyncPayload{ERPSession: &snapshot})
	s.logger.Info().Str("user", userID).Str("exercise", exercise.ID).Msg("erp session started")
	return &session, nil
}

// Complete closes the session, computes the elapsed duration and queues
// the completion for the backend.
func (s *SessionService) Complete(ctx context.Context, userID, sessionID string, anxietyPeak, anxietyEnd int) (*models.ERPSession, error) {
	sessions, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range sessions {
		if sessions[i].ID == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if sessions[idx].Completed {
		return nil, ErrAlreadyComplete
	}

	now := s.now()
	sessions[idx].Completed = true
	sessions[idx].CompletedAt = &now
	sessions[idx].Duration = int(now.Sub(sessions[idx].StartedAt).Seconds())
	sessions[idx].AnxietyPeak = anxietyPeak
	sessions[idx].AnxietyEnd = anxietyEnd

	if err := s.persist(ctx, userID, sessions); err != nil {
		return nil, err
	}

	snapshot := sessions[idx]
	s.syncer.Enqueue(ctx, models.OpUpdate, models.EntityERPSession, models.SyncPayload{ERPSession: &snapshot})
	s.logger.Info().Str("user", userID).Str("session", sessionID).Int("duration", snapshot.Duration).Msg("erp session completed")
	return &sessions[idx], nil
}

// List returns the user's sessions in start order.
func (s *SessionService) List(ctx context.Context, userID string) ([]models.ERPSession, error) {
	raw, ok, err := s.store.Get(ctx, models.KeyERPSessions(userID))
	if err != nil {
		return nil, fmt.Errorf("get erp sessions: %w", err)
	}
	if !ok {
		return []models.ERPSession{}, nil
	}
	var sessions []models.ERPSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("decode erp sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionService) persist(ctx context.Context, userID string, sessions []models.ERPSession) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode erp sessions: %w", err)
	}
	if err := s.store.Set(ctx, models.KeyERPSessions(userID), string(data)); err != nil {
		return fmt.Errorf("persist erp sessions: %w", err)
	}
	return nil
}
