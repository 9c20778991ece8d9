// Package rooms creates rooms and issues join tokens for them.
package rooms

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/internal/token"
	"github.com/soundtech/meeting-backend/pkg/apperr"
)

// Store is the slice of the persistence gateway the registry needs.
type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
}

// Service is the room registry.
type Service struct {
	store  Store
	issuer token.Issuer
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a room registry.
func NewService(store Store, issuer token.Issuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, issuer: issuer, logger: logger, now: time.Now}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateRoom persists a new room and issues a token for subjectID in it.
// An empty name gets a generated one.
func (s *Service) CreateRoom(ctx context.Context, name, subjectID string, role token.Role) (*models.Room, token.Token, error) {
	now := s.now().UTC()
	room := &models.Room{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		Status:    models.RoomStatusActive,
	}
	if room.Name == "" {
		room.Name = "room_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}

	// Sign before writing so an issuer failure leaves no room behind.
	tok, err := s.issuer.Issue(room.ID, subjectID, role, now)
	if err != nil {
		return nil, token.Token{}, apperr.Issuer(err)
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, token.Token{}, err
	}
	s.logger.Info("room created", zap.String("room_id", room.ID), zap.String("name", room.Name))
	return room, tok, nil
}

// JoinRoom issues a fresh token for subjectID in an existing room. It never writes.
func (s *Service) JoinRoom(ctx context.Context, roomID, subjectID string, role token.Role) (token.Token, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return token.Token{}, err
	}
	tok, err := s.issuer.Issue(roomID, subjectID, role, s.now().UTC())
	if err != nil {
		return token.Token{}, apperr.Issuer(err)
	}
	return tok, nil
}

// GetRoom returns a room by ID.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.store.GetRoom(ctx, roomID)
}
