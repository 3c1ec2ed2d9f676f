package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/pokersettle/internal/adapter/repository/memory"
	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
	"github.com/iho/pokersettle/internal/usecase/mocks"
)

func TestSettlementUseCase_Calculate(t *testing.T) {
	tests := []struct {
		name     string
		sessions map[string][2]string
		want     []transfer
	}{
		{
			name: "one winner two losers",
			sessions: map[string][2]string{
				"A": {"10", "40"},
				"B": {"10", "0"},
				"C": {"20", "0"},
			},
			want: []transfer{{"C", "A", "20.00"}, {"B", "A", "10.00"}},
		},
		{
			name: "two winners one loser",
			sessions: map[string][2]string{
				"A": {"5", "20"},
				"B": {"5", "10"},
				"C": {"25", "5"},
			},
			want: []transfer{{"C", "A", "15.00"}, {"C", "B", "5.00"}},
		},
		{
			name: "everyone breaks even",
			sessions: map[string][2]string{
				"A": {"10", "10"},
				"B": {"25.50", "25.50"},
			},
			want: []transfer{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t, envOptions{})
			env.activeGame(t, "game-1")
			env.play(t, "game-1", tc.sessions)

			result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
			require.NoError(t, err)

			assert.Equal(t, usecase.CalculateStatusCreated, result.Status)
			assert.Equal(t, tc.want, transfersOf(result.Settlements))
			assert.True(t, result.Validation.IsValid)
			assert.Empty(t, result.Unresolved)
			assert.Equal(t, len(tc.want), result.Run.TransferCount)
			for _, s := range result.Settlements {
				assert.Equal(t, domain.SettlementStatusPending, s.Status)
			}

			stored, err := env.settlementUC.ListByGame(ctx, "game-1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, transfersOf(stored))
		})
	}
}

func TestSettlementUseCase_CalculateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "40"}, "B": {"10", "0"}, "C": {"20", "0"}})

	first, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	require.Equal(t, usecase.CalculateStatusCreated, first.Status)

	// A late buy-in must not change an existing settlement.
	env.record(t, "game-1", "D", domain.TransactionTypeBuyin, "50")

	second, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	assert.Equal(t, usecase.CalculateStatusExisting, second.Status)
	require.Len(t, second.Settlements, len(first.Settlements))
	for i := range first.Settlements {
		assert.Equal(t, first.Settlements[i].ID, second.Settlements[i].ID)
		assert.True(t, first.Settlements[i].Amount.Equal(second.Settlements[i].Amount))
	}

	stored, err := env.settlementUC.ListByGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SettlementCalculations.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SettlementCalculations.WithLabelValues("existing")))
}

func TestSettlementUseCase_CalculateZeroTransfersIsRecorded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "10"}, "B": {"5", "5"}})

	_, err := env.settlementUC.ListByGame(ctx, "game-1")
	require.ErrorIs(t, err, domain.ErrSettlementRunNotFound)

	for i := 0; i < 2; i++ {
		result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
		require.NoError(t, err)
		assert.Empty(t, result.Settlements)
	}

	stored, err := env.settlementUC.ListByGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSettlementUseCase_CalculateImbalanced(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"100", "0"}, "B": {"0", "99.50"}})

	result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	assert.Equal(t, usecase.CalculateStatusImbalanced, result.Status)
	assert.False(t, result.Validation.IsValid)
	assert.Equal(t, "0.50", result.Validation.Difference.String())
	assert.Empty(t, result.Settlements)

	_, err = env.runs.GetByGame(ctx, "game-1")
	require.ErrorIs(t, err, domain.ErrSettlementRunNotFound)

	forced, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1", Force: true})
	require.NoError(t, err)
	assert.Equal(t, usecase.CalculateStatusCreated, forced.Status)
	assert.True(t, forced.Run.Forced)
	assert.Equal(t, []transfer{{"A", "B", "99.50"}}, transfersOf(forced.Settlements))
	assert.Equal(t, []domain.NetResult{{UserID: "A", Net: -50}}, forced.Unresolved)

	entries, err := env.auditUC.History(ctx, domain.AuditTableSettlementRuns, "game-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionCalculate, entries[0].Action)

	validation, ok := entries[0].AfterState["validation"].(map[string]any)
	require.True(t, ok, "run audit entry should carry the validation snapshot")
	assert.Equal(t, false, validation["is_valid"])
	assert.Equal(t, "0.50", validation["difference"])
	assert.NotNil(t, entries[0].AfterState["unresolved"])
}

func TestSettlementUseCase_CalculateErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "empty")

	_, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "missing"})
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "bad id!"})
	assert.ErrorIs(t, err, domain.ErrInvalidGameID)
	assert.Equal(t, domain.KindInput, domain.KindOf(err))

	_, err = env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "empty"})
	assert.ErrorIs(t, err, domain.ErrNoParticipants)
	assert.Equal(t, domain.KindInput, domain.KindOf(err))
}

func TestSettlementUseCase_ConcurrentCalculate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{
		"A": {"10", "40"}, "B": {"10", "0"}, "C": {"20", "0"}, "D": {"30", "35"}, "E": {"15", "10"},
	})

	const callers = 16

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]*usecase.CalculateResult, callers)
		errs    = make([]error, callers)
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
		}(i)
	}
	close(start)
	wg.Wait()

	stored, err := env.settlements.ListByGame(ctx, "game-1")
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	created := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			require.ErrorIs(t, errs[i], domain.ErrSettlementBusy)
			assert.True(t, domain.KindOf(errs[i]).Retryable())
			continue
		}

		if results[i].Status == usecase.CalculateStatusCreated {
			created++
		}
		require.Len(t, results[i].Settlements, len(stored))
		for j := range stored {
			assert.Equal(t, stored[j].ID, results[i].Settlements[j].ID)
		}
	}

	assert.Equal(t, 1, created)

	// A retry after the contention clears returns the stored rows.
	again, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	assert.Equal(t, usecase.CalculateStatusExisting, again.Status)
	assert.Len(t, again.Settlements, len(stored))
}

func TestSettlementUseCase_ConcurrentCalculateAcrossGames(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})

	games := []string{"g1", "g2", "g3", "g4"}
	for _, id := range games {
		env.activeGame(t, id)
		env.play(t, id, map[string][2]string{"A": {"10", "15"}, "B": {"10", "5"}})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(games))
	for i, id := range games {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: id})
		}(i, id)
	}
	wg.Wait()

	for i := range games {
		assert.NoError(t, errs[i])
	}
}

func TestSettlementUseCase_AuditFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	auditErr := errors.New("audit table unavailable")
	failing := true

	env := newTestEnv(t, envOptions{
		auditRepo: func(repo usecase.AuditRepository) usecase.AuditRepository {
			return &failingAuditRepo{AuditRepository: repo, fail: &failing, table: domain.AuditTableSettlements, err: auditErr}
		},
	})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	_, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuditFailure)
	assert.ErrorIs(t, err, auditErr)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))

	_, err = env.runs.GetByGame(ctx, "game-1")
	assert.ErrorIs(t, err, domain.ErrSettlementRunNotFound)
	stored, err := env.settlements.ListByGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Empty(t, stored)

	// The lock was released and nothing half-written blocks a retry.
	failing = false
	result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	assert.Equal(t, usecase.CalculateStatusCreated, result.Status)
	assert.Len(t, result.Settlements, 1)
}

func TestSettlementUseCase_OpenCalculationIsNotVisible(t *testing.T) {
	ctx := context.Background()

	var (
		env        *testEnv
		listed     []*domain.Settlement
		listErr    error
		runErr     error
		totalsSeen []*domain.ParticipantTotals
	)
	env = newTestEnv(t, envOptions{
		auditRepo: func(repo usecase.AuditRepository) usecase.AuditRepository {
			return &hookedAuditRepo{AuditRepository: repo, table: domain.AuditTableSettlementRuns, before: func() {
				listed, listErr = env.settlementUC.ListByGame(ctx, "game-1")
				_, runErr = env.runs.GetByGame(ctx, "game-1")
				totalsSeen, _ = env.participants.ListByGame(ctx, "game-1")
			}}
		},
	})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	require.Len(t, result.Settlements, 1)

	// Read while the settlement rows and run were written but not committed.
	assert.ErrorIs(t, listErr, domain.ErrSettlementRunNotFound)
	assert.Empty(t, listed)
	assert.ErrorIs(t, runErr, domain.ErrSettlementRunNotFound)
	assert.Len(t, totalsSeen, 2)

	stored, err := env.settlementUC.ListByGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, transfersOf(result.Settlements), transfersOf(stored))
}

func TestSettlementUseCase_CalculateAboveTransactionCap(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")

	for i := 0; i < 2; i++ {
		env.record(t, "game-1", "A", domain.TransactionTypeBuyin, domain.MaxAmount)
		env.record(t, "game-1", "B", domain.TransactionTypeCashout, domain.MaxAmount)
	}

	validation, err := env.settlementUC.Validate(ctx, "game-1")
	require.NoError(t, err)
	require.True(t, validation.IsValid)

	result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	assert.Equal(t, usecase.CalculateStatusCreated, result.Status)
	assert.Equal(t, []transfer{{"A", "B", "2000000.00"}}, transfersOf(result.Settlements))
}

func TestSettlementUseCase_ExistingSurvivesCorruptTotals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	first, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)

	// Drive A's stored buy-in total negative behind the use cases' back.
	tx, err := memory.NewTxManager(env.store).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, env.participants.Increment(ctx, tx, &domain.Transaction{
		GameID: "game-1", UserID: "A", Type: domain.TransactionTypeBuyin, Amount: decimal.NewFromInt(-100),
	}))
	require.NoError(t, tx.Commit(ctx))

	_, err = env.settlementUC.Validate(ctx, "game-1")
	require.Error(t, err)

	second, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	assert.Equal(t, usecase.CalculateStatusExisting, second.Status)
	assert.Equal(t, transfersOf(first.Settlements), transfersOf(second.Settlements))
	assert.Nil(t, second.Validation)
	assert.Contains(t, env.logs.String(), "settled game totals failed validation")
}

func TestSettlementUseCase_PersistenceFailureLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{
		settleRepo: func(repo usecase.SettlementRepository) usecase.SettlementRepository {
			return &failingSettlementRepo{SettlementRepository: repo, err: errors.New("disk full")}
		},
	})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	_, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.Error(t, err)

	var pErr *domain.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "insert settlements", pErr.Op)

	_, err = env.runs.GetByGame(ctx, "game-1")
	assert.ErrorIs(t, err, domain.ErrSettlementRunNotFound)

	entries, err := env.auditUC.History(ctx, domain.AuditTableSettlementRuns, "game-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSettlementUseCase_BusyLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	locker := mocks.NewMockSettlementLocker(ctrl)
	locker.EXPECT().TryLock(gomock.Any(), gomock.Any(), "game-1").Return(nil, domain.ErrSettlementBusy)

	env := newTestEnv(t, envOptions{locker: locker})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	_, err := env.settlementUC.Calculate(context.Background(), usecase.CalculateInput{GameID: "game-1"})
	require.ErrorIs(t, err, domain.ErrSettlementBusy)
	assert.Equal(t, domain.KindBusy, domain.KindOf(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SettlementLockBusy))
}

func TestSettlementUseCase_ReleaseFailureIsLoggedOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	lease := mocks.NewMockLease(ctrl)
	lease.EXPECT().Release(gomock.Any()).Return(usecase.ErrLeaseLost)

	locker := mocks.NewMockSettlementLocker(ctrl)
	locker.EXPECT().TryLock(gomock.Any(), gomock.Any(), "game-1").Return(lease, nil)

	env := newTestEnv(t, envOptions{locker: locker})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	result, err := env.settlementUC.Calculate(context.Background(), usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	assert.Equal(t, usecase.CalculateStatusCreated, result.Status)

	_, err = env.runs.GetByGame(context.Background(), "game-1")
	require.NoError(t, err, "committed calculation must survive a failed release")

	assert.True(t, strings.Contains(env.logs.String(), "failed to release settlement lock"))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LockReleaseFailures))
}

func TestSettlementUseCase_ReleasedOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	lease := mocks.NewMockLease(ctrl)
	lease.EXPECT().Release(gomock.Any()).Return(nil).Times(1)

	locker := mocks.NewMockSettlementLocker(ctrl)
	locker.EXPECT().TryLock(gomock.Any(), gomock.Any(), "game-1").Return(lease, nil)

	env := newTestEnv(t, envOptions{locker: locker})
	env.activeGame(t, "game-1")

	_, err := env.settlementUC.Calculate(context.Background(), usecase.CalculateInput{GameID: "game-1"})
	require.ErrorIs(t, err, domain.ErrNoParticipants)
}

func TestSettlementUseCase_Validate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")
	env.activeGame(t, "empty")
	env.play(t, "game-1", map[string][2]string{"A": {"60", "0"}, "B": {"40", "99.50"}})

	v, err := env.settlementUC.Validate(ctx, "game-1")
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Equal(t, "100.00", v.TotalBuyins.String())
	assert.Equal(t, "99.50", v.TotalCashouts.String())
	assert.Equal(t, "Imbalance of 0.50: more buy-ins than cash-outs.", v.Message)

	v, err = env.settlementUC.Validate(ctx, "empty")
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Equal(t, "No participants found.", v.Message)

	_, err = env.settlementUC.Validate(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestSettlementUseCase_MarkComplete(t *testing.T) {
	ctx := domain.ContextWithActor(context.Background(), "alice")
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	id := result.Settlements[0].ID

	completed, err := env.settlementUC.MarkComplete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	_, err = env.settlementUC.MarkComplete(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSettlementAlreadyCompleted)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	history, err := env.auditUC.History(ctx, domain.AuditTableSettlements, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.AuditActionUpdate, history[1].Action)
	assert.Equal(t, "pending", history[1].BeforeState["status"])
	assert.Equal(t, "completed", history[1].AfterState["status"])
	assert.Equal(t, "alice", history[1].ActorID)

	logs := env.logs.String()
	assert.Contains(t, logs, "settlement status changed")
	assert.Contains(t, logs, `"settlement_id":"`+id+`"`)
	assert.Contains(t, logs, `"actor":"alice"`)

	events, err := env.outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeSettlementCompleted, events[len(events)-1].EventType)

	_, err = env.settlementUC.MarkComplete(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSettlementNotFound)
}

func TestSettlementUseCase_Cancel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, envOptions{})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	id := result.Settlements[0].ID

	cancelled, err := env.settlementUC.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCancelled, cancelled.Status)

	_, err = env.settlementUC.MarkComplete(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSettlementCancelled)
}

func TestSettlementUseCase_TransitionAuditFailure(t *testing.T) {
	ctx := context.Background()
	failing := false
	env := newTestEnv(t, envOptions{
		auditRepo: func(repo usecase.AuditRepository) usecase.AuditRepository {
			return &failingAuditRepo{AuditRepository: repo, fail: &failing, table: domain.AuditTableSettlements, err: errors.New("down")}
		},
	})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	id := result.Settlements[0].ID

	failing = true
	_, err = env.settlementUC.MarkComplete(ctx, id)
	require.ErrorIs(t, err, domain.ErrAuditFailure)

	s, err := env.settlementUC.GetSettlement(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusPending, s.Status)
}

func TestSettlementUseCase_Cache(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMockCache()
	env := newTestEnv(t, envOptions{cache: cache})
	env.activeGame(t, "game-1")
	env.play(t, "game-1", map[string][2]string{"A": {"10", "30"}, "B": {"20", "0"}})

	result, err := env.settlementUC.Calculate(ctx, usecase.CalculateInput{GameID: "game-1"})
	require.NoError(t, err)
	id := result.Settlements[0].ID

	_, err = env.settlementUC.ListByGame(ctx, "game-1")
	require.NoError(t, err)
	_, err = env.settlementUC.GetSettlement(ctx, id)
	require.NoError(t, err)
	assert.True(t, cache.Has("settlements:game:game-1"))
	assert.True(t, cache.Has("settlements:id:"+id))

	cached, err := env.settlementUC.ListByGame(ctx, "game-1")
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, id, cached[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CacheRequests.WithLabelValues("hit")))

	_, err = env.settlementUC.MarkComplete(ctx, id)
	require.NoError(t, err)
	assert.False(t, cache.Has("settlements:game:game-1"))
	assert.False(t, cache.Has("settlements:id:"+id))

	fresh, err := env.settlementUC.GetSettlement(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCompleted, fresh.Status)
}
