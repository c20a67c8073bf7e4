package auction

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/Shamsear/ssleague-sub021/internal/auction/mock"
	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
)

var settleReq = SettlementRequest{
	TeamID:       7,
	SeasonID:     1,
	PlayerID:     42,
	Position:     "ST",
	Amount:       250,
	Currency:     models.CurrencyFootball,
	RoundID:      3,
	TiebreakerID: 9,
}

func Test_settler_Settle(t *testing.T) {
	notFound := &repositories.NotFoundError{Entity: "transaction", ID: int64(42)}

	tests := []struct {
		name       string
		setup      func(txns *mock.MockTransactionRepository, ledgers *mock.MockLedgerStore)
		wantErr    func(error) bool
		wantStatus models.TransactionStatus
	}{
		{
			name: "FreshWin",
			setup: func(txns *mock.MockTransactionRepository, ledgers *mock.MockLedgerStore) {
				txns.EXPECT().
					GetByReference(gomock.Any(), int64(3), int64(9), int64(42)).
					Return(nil, notFound)
				txns.EXPECT().CreatePending(gomock.Any(), gomock.Any()).Return(nil)
				ledgers.EXPECT().ApplySettlement(gomock.Any(), gomock.Any()).
					Return(ledger.ApplyApplied, nil)
				txns.EXPECT().MarkCompleted(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: models.TransactionStatusCompleted,
		},
		{
			name: "AlreadyCompletedIsNoOp",
			setup: func(txns *mock.MockTransactionRepository, ledgers *mock.MockLedgerStore) {
				txns.EXPECT().
					GetByReference(gomock.Any(), int64(3), int64(9), int64(42)).
					Return(&models.Transaction{
						TransactionID: "txn-1",
						Status:        models.TransactionStatusCompleted,
					}, nil)
			},
			wantStatus: models.TransactionStatusCompleted,
		},
		{
			name: "LedgerAlreadyAppliedStillCompletesIntent",
			setup: func(txns *mock.MockTransactionRepository, ledgers *mock.MockLedgerStore) {
				txns.EXPECT().
					GetByReference(gomock.Any(), int64(3), int64(9), int64(42)).
					Return(&models.Transaction{
						TransactionID: "txn-1",
						Status:        models.TransactionStatusPending,
					}, nil)
				ledgers.EXPECT().ApplySettlement(gomock.Any(), gomock.Any()).
					Return(ledger.ApplyAlreadyApplied, nil)
				txns.EXPECT().MarkCompleted(gomock.Any(), "txn-1", gomock.Any()).Return(nil)
			},
			wantStatus: models.TransactionStatusCompleted,
		},
		{
			name: "InsufficientBudgetFailsIntent",
			setup: func(txns *mock.MockTransactionRepository, ledgers *mock.MockLedgerStore) {
				txns.EXPECT().
					GetByReference(gomock.Any(), int64(3), int64(9), int64(42)).
					Return(nil, notFound)
				txns.EXPECT().CreatePending(gomock.Any(), gomock.Any()).Return(nil)
				ledgers.EXPECT().ApplySettlement(gomock.Any(), gomock.Any()).
					Return(ledger.ApplyResult(0), ledger.ErrInsufficientBudget)
				txns.EXPECT().MarkFailed(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: IsInsufficientBudget,
		},
		{
			name: "MissingLedgerFailsIntent",
			setup: func(txns *mock.MockTransactionRepository, ledgers *mock.MockLedgerStore) {
				txns.EXPECT().
					GetByReference(gomock.Any(), int64(3), int64(9), int64(42)).
					Return(nil, notFound)
				txns.EXPECT().CreatePending(gomock.Any(), gomock.Any()).Return(nil)
				ledgers.EXPECT().ApplySettlement(gomock.Any(), gomock.Any()).
					Return(ledger.ApplyResult(0), ledger.ErrNotFound)
				txns.EXPECT().MarkFailed(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: IsLedgerNotFound,
		},
		{
			name: "CompletionFailureIsPartialWrite",
			setup: func(txns *mock.MockTransactionRepository, ledgers *mock.MockLedgerStore) {
				txns.EXPECT().
					GetByReference(gomock.Any(), int64(3), int64(9), int64(42)).
					Return(&models.Transaction{
						TransactionID: "txn-1",
						Status:        models.TransactionStatusPending,
					}, nil)
				ledgers.EXPECT().ApplySettlement(gomock.Any(), gomock.Any()).
					Return(ledger.ApplyApplied, nil)
				txns.EXPECT().MarkCompleted(gomock.Any(), "txn-1", gomock.Any()).
					Return(&repositories.RepositoryError{Operation: "mark_completed", Entity: "transaction"})
			},
			wantErr: IsPartialWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			txns := mock.NewMockTransactionRepository(ctrl)
			ledgers := mock.NewMockLedgerStore(ctrl)
			tt.setup(txns, ledgers)

			s := NewSettler(txns, ledgers, &recordingNotifier{})
			got, err := s.Settle(context.Background(), settleReq)

			if tt.wantErr != nil {
				if err == nil || !tt.wantErr(err) {
					t.Fatalf("Settle() error = %v, want matcher to pass", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Settle() error = %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Settle() status = %s, want %s", got.Status, tt.wantStatus)
			}
		})
	}
}
