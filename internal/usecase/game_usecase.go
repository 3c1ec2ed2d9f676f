package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/iho/pokersettle/internal/domain"
)

// GameUseCase manages the minimal game lifecycle the settlement engine needs.
type GameUseCase struct {
	txManager TxManager
	gameRepo  GameRepository
	audit     *AuditRecorder
	idGen     IDGenerator
}

// NewGameUseCase creates a new GameUseCase.
func NewGameUseCase(txManager TxManager, gameRepo GameRepository, audit *AuditRecorder, idGen IDGenerator) *GameUseCase {
	return &GameUseCase{
		txManager: txManager,
		gameRepo:  gameRepo,
		audit:     audit,
		idGen:     idGen,
	}
}

// CreateGameInput represents input for creating a game.
type CreateGameInput struct {
	// ID is optional; one is generated when empty.
	ID          string
	Name        string
	ScheduledAt *time.Time
}

// CreateGame creates a scheduled game.
func (uc *GameUseCase) CreateGame(ctx context.Context, input CreateGameInput) (*domain.Game, error) {
	id := input.ID
	if id == "" {
		id = uc.idGen.Generate()
	}

	if err := domain.ValidateGameID(id); err != nil {
		return nil, err
	}

	if err := domain.ValidateGameName(input.Name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	game := &domain.Game{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Status:      domain.GameStatusScheduled,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.NewPersistenceError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.gameRepo.Create(txCtx, tx, game); err != nil {
		return nil, domain.NewPersistenceError("insert game", err)
	}

	if err := uc.audit.Record(txCtx, tx, AuditChange{
		Table:    domain.AuditTableGames,
		RecordID: game.ID,
		GameID:   game.ID,
		Action:   domain.AuditActionInsert,
		After:    game,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.NewPersistenceError("commit game", err)
	}

	return game, nil
}

// GetGame returns a game by id.
func (uc *GameUseCase) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	if err := domain.ValidateGameID(id); err != nil {
		return nil, err
	}

	game, err := uc.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("load game", err)
	}

	return game, nil
}

// StartGame opens a scheduled game for buy-ins and cash-outs.
func (uc *GameUseCase) StartGame(ctx context.Context, id string) (*domain.Game, error) {
	return uc.transition(ctx, id, func(g *domain.Game, now time.Time) error { return g.Start(now) })
}

// EndGame closes an active game.
func (uc *GameUseCase) EndGame(ctx context.Context, id string) (*domain.Game, error) {
	return uc.transition(ctx, id, func(g *domain.Game, now time.Time) error { return g.End(now) })
}

func (uc *GameUseCase) transition(ctx context.Context, id string, apply func(*domain.Game, time.Time) error) (*domain.Game, error) {
	if err := domain.ValidateGameID(id); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.NewPersistenceError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	game, err := uc.gameRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("load game", err)
	}

	before := game.Clone()
	if err := apply(game, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := uc.gameRepo.UpdateStatus(txCtx, tx, game); err != nil {
		return nil, domain.NewPersistenceError("update game", err)
	}

	if err := uc.audit.Record(txCtx, tx, AuditChange{
		Table:    domain.AuditTableGames,
		RecordID: game.ID,
		GameID:   game.ID,
		Action:   domain.AuditActionUpdate,
		Before:   before,
		After:    game,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.NewPersistenceError("commit game", err)
	}

	return game, nil
}
