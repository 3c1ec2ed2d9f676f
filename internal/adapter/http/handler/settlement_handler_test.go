package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pokersettle/internal/adapter/http/dto"
	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

func TestSettlementHandler_Calculate(t *testing.T) {
	settlement := &domain.Settlement{
		ID: "s-1", GameID: "game-1", PayerID: "B", PayeeID: "A",
		Amount: decimal.NewFromInt(20), Status: domain.SettlementStatusPending,
	}
	validation := &domain.SettlementValidation{IsValid: true, TotalBuyins: 3000, TotalCashouts: 3000, ParticipantCount: 2}

	tests := []struct {
		name       string
		query      string
		result     *usecase.CalculateResult
		err        error
		wantStatus int
		wantForce  bool
	}{
		{
			name:       "created",
			result:     &usecase.CalculateResult{Status: usecase.CalculateStatusCreated, GameID: "game-1", Settlements: []*domain.Settlement{settlement}, Validation: validation},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "existing",
			result:     &usecase.CalculateResult{Status: usecase.CalculateStatusExisting, GameID: "game-1", Settlements: []*domain.Settlement{settlement}, Validation: validation},
			wantStatus: http.StatusOK,
		},
		{
			name:       "imbalanced",
			result:     &usecase.CalculateResult{Status: usecase.CalculateStatusImbalanced, GameID: "game-1", Validation: &domain.SettlementValidation{Difference: 50}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "forced",
			query:      "?force=true",
			result:     &usecase.CalculateResult{Status: usecase.CalculateStatusCreated, GameID: "game-1", Run: &domain.SettlementRun{Forced: true}},
			wantStatus: http.StatusCreated,
			wantForce:  true,
		},
		{
			name:       "busy",
			err:        domain.ErrSettlementBusy,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "no participants",
			err:        domain.ErrNoParticipants,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured usecase.CalculateInput
			h := NewSettlementHandler(&settlementServiceStub{
				calculateFn: func(ctx context.Context, input usecase.CalculateInput) (*usecase.CalculateResult, error) {
					captured = input
					return tc.result, tc.err
				},
			})

			req := withURLParams(httptest.NewRequest(http.MethodPost, "/api/v1/games/game-1/settlement"+tc.query, nil), "id", "game-1")
			rec := httptest.NewRecorder()
			h.Calculate(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if captured.GameID != "game-1" || captured.Force != tc.wantForce {
				t.Fatalf("unexpected input: %+v", captured)
			}
			if tc.err != nil {
				return
			}

			var resp dto.CalculateResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tc.result.Status) {
				t.Fatalf("expected status %s, got %s", tc.result.Status, resp.Status)
			}
		})
	}
}

func TestSettlementHandler_BusySetsRetryAfter(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		calculateFn: func(ctx context.Context, input usecase.CalculateInput) (*usecase.CalculateResult, error) {
			return nil, domain.ErrSettlementConflict
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/api/v1/games/game-1/settlement", nil), "id", "game-1")
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	if rec.Code != http.StatusConflict || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 409 with Retry-After, got %d %v", rec.Code, rec.Header())
	}
}

func TestSettlementHandler_Validate(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		validateFn: func(ctx context.Context, gameID string) (*domain.SettlementValidation, error) {
			return &domain.SettlementValidation{
				IsValid:          false,
				TotalBuyins:      3000,
				TotalCashouts:    2950,
				Difference:       50,
				Message:          "Imbalance of 0.50: more buy-ins than cash-outs.",
				ParticipantCount: 2,
			}, nil
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/games/game-1/settlement/validation", nil), "id", "game-1")
	rec := httptest.NewRecorder()
	h.Validate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.ValidationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IsValid || resp.Difference != "0.50" || resp.TotalCashouts != "29.50" {
		t.Fatalf("unexpected validation: %+v", resp)
	}
}

func TestSettlementHandler_Transitions(t *testing.T) {
	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	h := NewSettlementHandler(&settlementServiceStub{
		completeFn: func(ctx context.Context, id string) (*domain.Settlement, error) {
			switch id {
			case "missing":
				return nil, domain.ErrSettlementNotFound
			case "done":
				return nil, domain.ErrSettlementAlreadyCompleted
			}
			return &domain.Settlement{ID: id, Amount: decimal.NewFromInt(5), Status: domain.SettlementStatusCompleted, CompletedAt: &now}, nil
		},
		cancelFn: func(ctx context.Context, id string) (*domain.Settlement, error) {
			return nil, domain.ErrSettlementAlreadyCompleted
		},
	})

	tests := []struct {
		id     string
		action http.HandlerFunc
		want   int
	}{
		{"s-1", h.Complete, http.StatusOK},
		{"missing", h.Complete, http.StatusNotFound},
		{"done", h.Complete, http.StatusConflict},
		{"s-1", h.Cancel, http.StatusConflict},
	}

	for _, tc := range tests {
		req := withURLParams(httptest.NewRequest(http.MethodPost, "/api/v1/settlements/"+tc.id+"/complete", nil), "id", tc.id)
		rec := httptest.NewRecorder()
		tc.action(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.id, tc.want, rec.Code)
		}
	}
}

func TestSettlementHandler_ListByGame(t *testing.T) {
	h := NewSettlementHandler(&settlementServiceStub{
		listFn: func(ctx context.Context, gameID string) ([]*domain.Settlement, error) {
			if gameID == "fresh" {
				return nil, domain.ErrSettlementRunNotFound
			}
			return nil, nil
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/games/game-1/settlements", nil), "id", "game-1")
	rec := httptest.NewRecorder()
	h.ListByGame(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("expected empty array, got %d %q", rec.Code, rec.Body.String())
	}

	req = withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/games/fresh/settlements", nil), "id", "fresh")
	rec = httptest.NewRecorder()
	h.ListByGame(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before calculation, got %d", rec.Code)
	}
}
