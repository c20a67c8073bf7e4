package mock

import (
	context "context"
	reflect "reflect"
	time "time"

	bun "github.com/uptrace/bun"
	gomock "go.uber.org/mock/gomock"

	models "github.com/Shamsear/ssleague-sub021/internal/database/models"
	ledger "github.com/Shamsear/ssleague-sub021/internal/ledger"
)

// MockTransactionRepository is a mock of TransactionRepository interface.
type MockTransactionRepository struct {
	ctrl     *gomock.Controller
	recorder *MockTransactionRepositoryMockRecorder
	isgomock struct{}
}

// MockTransactionRepositoryMockRecorder is the mock recorder for MockTransactionRepository.
type MockTransactionRepositoryMockRecorder struct {
	mock *MockTransactionRepository
}

// NewMockTransactionRepository creates a new mock instance.
func NewMockTransactionRepository(ctrl *gomock.Controller) *MockTransactionRepository {
	mock := &MockTransactionRepository{ctrl: ctrl}
	mock.recorder = &MockTransactionRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTransactionRepository) EXPECT() *MockTransactionRepositoryMockRecorder {
	return m.recorder
}

// CreatePending mocks base method.
func (m *MockTransactionRepository) CreatePending(ctx context.Context, txn *models.Transaction) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreatePending", ctx, txn)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreatePending indicates an expected call of CreatePending.
func (mr *MockTransactionRepositoryMockRecorder) CreatePending(ctx, txn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreatePending", reflect.TypeOf((*MockTransactionRepository)(nil).CreatePending), ctx, txn)
}

// DB mocks base method.
func (m *MockTransactionRepository) DB() *bun.DB {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DB")
	ret0, _ := ret[0].(*bun.DB)
	return ret0
}

// DB indicates an expected call of DB.
func (mr *MockTransactionRepositoryMockRecorder) DB() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DB", reflect.TypeOf((*MockTransactionRepository)(nil).DB))
}

// GetByReference mocks base method.
func (m *MockTransactionRepository) GetByReference(ctx context.Context, roundID, tiebreakerID, playerID int64) (*models.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByReference", ctx, roundID, tiebreakerID, playerID)
	ret0, _ := ret[0].(*models.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByReference indicates an expected call of GetByReference.
func (mr *MockTransactionRepositoryMockRecorder) GetByReference(ctx, roundID, tiebreakerID, playerID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByReference", reflect.TypeOf((*MockTransactionRepository)(nil).GetByReference), ctx, roundID, tiebreakerID, playerID)
}

// GetByTransactionID mocks base method.
func (m *MockTransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByTransactionID", ctx, transactionID)
	ret0, _ := ret[0].(*models.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByTransactionID indicates an expected call of GetByTransactionID.
func (mr *MockTransactionRepositoryMockRecorder) GetByTransactionID(ctx, transactionID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByTransactionID", reflect.TypeOf((*MockTransactionRepository)(nil).GetByTransactionID), ctx, transactionID)
}

// ListBySeason mocks base method.
func (m *MockTransactionRepository) ListBySeason(ctx context.Context, seasonID int64) ([]*models.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListBySeason", ctx, seasonID)
	ret0, _ := ret[0].([]*models.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListBySeason indicates an expected call of ListBySeason.
func (mr *MockTransactionRepositoryMockRecorder) ListBySeason(ctx, seasonID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListBySeason", reflect.TypeOf((*MockTransactionRepository)(nil).ListBySeason), ctx, seasonID)
}

// ListStalePending mocks base method.
func (m *MockTransactionRepository) ListStalePending(ctx context.Context, olderThan time.Time) ([]*models.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListStalePending", ctx, olderThan)
	ret0, _ := ret[0].([]*models.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListStalePending indicates an expected call of ListStalePending.
func (mr *MockTransactionRepositoryMockRecorder) ListStalePending(ctx, olderThan any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListStalePending", reflect.TypeOf((*MockTransactionRepository)(nil).ListStalePending), ctx, olderThan)
}

// MarkCompleted mocks base method.
func (m *MockTransactionRepository) MarkCompleted(ctx context.Context, transactionID string, at time.Time) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkCompleted", ctx, transactionID, at)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkCompleted indicates an expected call of MarkCompleted.
func (mr *MockTransactionRepositoryMockRecorder) MarkCompleted(ctx, transactionID, at any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkCompleted", reflect.TypeOf((*MockTransactionRepository)(nil).MarkCompleted), ctx, transactionID, at)
}

// MarkFailed mocks base method.
func (m *MockTransactionRepository) MarkFailed(ctx context.Context, transactionID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkFailed", ctx, transactionID)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkFailed indicates an expected call of MarkFailed.
func (mr *MockTransactionRepositoryMockRecorder) MarkFailed(ctx, transactionID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkFailed", reflect.TypeOf((*MockTransactionRepository)(nil).MarkFailed), ctx, transactionID)
}

// MockLedgerStore is a mock of ledger.Store interface.
type MockLedgerStore struct {
	ctrl     *gomock.Controller
	recorder *MockLedgerStoreMockRecorder
	isgomock struct{}
}

// MockLedgerStoreMockRecorder is the mock recorder for MockLedgerStore.
type MockLedgerStoreMockRecorder struct {
	mock *MockLedgerStore
}

// NewMockLedgerStore creates a new mock instance.
func NewMockLedgerStore(ctrl *gomock.Controller) *MockLedgerStore {
	mock := &MockLedgerStore{ctrl: ctrl}
	mock.recorder = &MockLedgerStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockLedgerStore) EXPECT() *MockLedgerStoreMockRecorder {
	return m.recorder
}

// ApplySettlement mocks base method.
func (m *MockLedgerStore) ApplySettlement(ctx context.Context, d ledger.Delta) (ledger.ApplyResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ApplySettlement", ctx, d)
	ret0, _ := ret[0].(ledger.ApplyResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ApplySettlement indicates an expected call of ApplySettlement.
func (mr *MockLedgerStoreMockRecorder) ApplySettlement(ctx, d any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ApplySettlement", reflect.TypeOf((*MockLedgerStore)(nil).ApplySettlement), ctx, d)
}

// Close mocks base method.
func (m *MockLedgerStore) Close(ctx context.Context) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close", ctx)
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockLedgerStoreMockRecorder) Close(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockLedgerStore)(nil).Close), ctx)
}

// Create mocks base method.
func (m *MockLedgerStore) Create(ctx context.Context, l *ledger.Ledger) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, l)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockLedgerStoreMockRecorder) Create(ctx, l any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockLedgerStore)(nil).Create), ctx, l)
}

// Get mocks base method.
func (m *MockLedgerStore) Get(ctx context.Context, teamID, seasonID int64) (*ledger.Ledger, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, teamID, seasonID)
	ret0, _ := ret[0].(*ledger.Ledger)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockLedgerStoreMockRecorder) Get(ctx, teamID, seasonID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockLedgerStore)(nil).Get), ctx, teamID, seasonID)
}

// Revert mocks base method.
func (m *MockLedgerStore) Revert(ctx context.Context, d ledger.Delta) (ledger.ApplyResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Revert", ctx, d)
	ret0, _ := ret[0].(ledger.ApplyResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Revert indicates an expected call of Revert.
func (mr *MockLedgerStoreMockRecorder) Revert(ctx, d any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Revert", reflect.TypeOf((*MockLedgerStore)(nil).Revert), ctx, d)
}
