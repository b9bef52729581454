package transfer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// MockLoadAccountPort is a mock implementation of LoadAccountPort for testing
type MockLoadAccountPort struct {
	mock.Mock
}

func (m *MockLoadAccountPort) LoadAccount(ctx context.Context, accountID domain.AccountID, baselineDate time.Time) (*domain.Account, error) {
	args := m.Called(ctx, accountID, baselineDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// MockUpdateAccountStatePort is a mock implementation of UpdateAccountStatePort for testing
type MockUpdateAccountStatePort struct {
	mock.Mock
}

func (m *MockUpdateAccountStatePort) UpdateActivities(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockAccountLock is a mock implementation of AccountLock that also records the call sequence
type MockAccountLock struct {
	mock.Mock

	mu    sync.Mutex
	calls []string
}

func (m *MockAccountLock) LockAccount(ctx context.Context, accountID domain.AccountID) error {
	m.record("lock:" + accountID.String())
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountLock) ReleaseAccount(ctx context.Context, accountID domain.AccountID) error {
	m.record("release:" + accountID.String())
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountLock) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockAccountLock) sequence() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

var testNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	load   *MockLoadAccountPort
	lock   *MockAccountLock
	update *MockUpdateAccountStatePort
	svc    *SendMoneyService
}

func newFixture(maxTransfer domain.Money) *fixture {
	f := &fixture{
		load:   new(MockLoadAccountPort),
		lock:   new(MockAccountLock),
		update: new(MockUpdateAccountStatePort),
	}
	f.svc = NewSendMoneyService(f.load, f.lock, f.update, domain.NewTransferPolicy(maxTransfer), nil)
	f.svc.Now = func() time.Time { return testNow }
	return f
}

func unlimited() domain.Money {
	return domain.MoneyOf(math.MaxInt64)
}

// givenAnAccountWithID registers an account with the given balance on the load mock
func (f *fixture) givenAnAccountWithID(id domain.AccountID, balance int64, opts ...domain.AccountOption) *domain.Account {
	account := domain.NewAccount(id, domain.MoneyOf(balance), nil, opts...)
	f.load.On("LoadAccount", mock.Anything, id, testNow.Add(-DefaultBaselineWindow)).Return(account, nil)
	return account
}

func (f *fixture) givenLocksSucceed() {
	f.lock.On("LockAccount", mock.Anything, mock.Anything).Return(nil)
	f.lock.On("ReleaseAccount", mock.Anything, mock.Anything).Return(nil)
}

func (f *fixture) assertLocksBalanced(t *testing.T, ids ...domain.AccountID) {
	t.Helper()
	for _, id := range ids {
		locks := 0
		releases := 0
		for _, c := range f.lock.sequence() {
			switch c {
			case "lock:" + id.String():
				locks++
			case "release:" + id.String():
				releases++
			}
		}
		assert.Equal(t, locks, releases, "lock/release mismatch for %s", id)
	}
}

func TestSendMoney_ThresholdExceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.MoneyOf(1000))

	req, err := domain.NewTransferRequest(domain.NewAccountID(), domain.NewAccountID(), domain.MoneyOf(2000))
	require.NoError(t, err)

	ok, err := f.svc.SendMoney(ctx, req)

	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrThresholdExceeded)
	assert.True(t, domain.IsPrecondition(err))
	assert.Equal(t, "Maximum threshold for transferring money exceeded: tried to transfer 2000 but threshold is 1000!", err.Error())

	f.load.AssertNotCalled(t, "LoadAccount", mock.Anything, mock.Anything, mock.Anything)
	f.lock.AssertNotCalled(t, "LockAccount", mock.Anything, mock.Anything)
	f.update.AssertNotCalled(t, "UpdateActivities", mock.Anything, mock.Anything)
}

func TestSendMoney_AmountAtThresholdIsAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.MoneyOf(1000))

	sourceID := domain.NewAccountID()
	targetID := domain.NewAccountID()
	f.givenAnAccountWithID(sourceID, 5000)
	f.givenAnAccountWithID(targetID, 0)
	f.givenLocksSucceed()
	f.update.On("UpdateActivities", mock.Anything, mock.Anything).Return(nil)

	ok, err := f.svc.SendMoney(ctx, domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(1000)})

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSendMoney_MissingAccountID(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture) domain.TransferRequest
		wantErr error
		wantMsg string
	}{
		{
			name: "Empty source ID in request",
			setup: func(f *fixture) domain.TransferRequest {
				return domain.TransferRequest{TargetAccountID: domain.NewAccountID(), Amount: domain.MoneyOf(100)}
			},
			wantErr: domain.ErrSourceAccountIDEmpty,
			wantMsg: "expected source account ID not to be empty",
		},
		{
			name: "Empty target ID in request",
			setup: func(f *fixture) domain.TransferRequest {
				return domain.TransferRequest{SourceAccountID: domain.NewAccountID(), Amount: domain.MoneyOf(100)}
			},
			wantErr: domain.ErrTargetAccountIDEmpty,
			wantMsg: "expected target account ID not to be empty",
		},
		{
			name: "Loaded source account has no ID",
			setup: func(f *fixture) domain.TransferRequest {
				sourceID := domain.NewAccountID()
				targetID := domain.NewAccountID()
				f.load.On("LoadAccount", mock.Anything, sourceID, mock.Anything).
					Return(domain.NewAccountWithoutID(domain.MoneyOf(5000), nil), nil)
				f.givenAnAccountWithID(targetID, 0)
				return domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(100)}
			},
			wantErr: domain.ErrSourceAccountIDEmpty,
			wantMsg: "expected source account ID not to be empty",
		},
		{
			name: "Loaded target account has no ID",
			setup: func(f *fixture) domain.TransferRequest {
				sourceID := domain.NewAccountID()
				targetID := domain.NewAccountID()
				f.givenAnAccountWithID(sourceID, 5000)
				f.load.On("LoadAccount", mock.Anything, targetID, mock.Anything).
					Return(domain.NewAccountWithoutID(domain.ZeroMoney, nil), nil)
				return domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(100)}
			},
			wantErr: domain.ErrTargetAccountIDEmpty,
			wantMsg: "expected target account ID not to be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(unlimited())
			req := tt.setup(f)

			ok, err := f.svc.SendMoney(context.Background(), req)

			assert.False(t, ok)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.EqualError(t, err, tt.wantMsg)
			assert.True(t, domain.IsPrecondition(err))
			f.lock.AssertNotCalled(t, "LockAccount", mock.Anything, mock.Anything)
			f.update.AssertNotCalled(t, "UpdateActivities", mock.Anything, mock.Anything)
		})
	}
}

func TestSendMoney_WithdrawalFails_OnlySourceLockedAndReleased(t *testing.T) {
	ctx := context.Background()
	f := newFixture(unlimited())

	sourceID := domain.NewAccountID()
	targetID := domain.NewAccountID()
	source := f.givenAnAccountWithID(sourceID, 100)
	f.givenAnAccountWithID(targetID, 0)
	f.givenLocksSucceed()

	ok, err := f.svc.SendMoney(ctx, domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(300)})

	require.NoError(t, err)
	assert.False(t, ok)

	f.lock.AssertNumberOfCalls(t, "LockAccount", 1)
	f.lock.AssertNumberOfCalls(t, "ReleaseAccount", 1)
	f.lock.AssertCalled(t, "LockAccount", mock.Anything, sourceID)
	f.lock.AssertCalled(t, "ReleaseAccount", mock.Anything, sourceID)
	f.lock.AssertNotCalled(t, "LockAccount", mock.Anything, targetID)
	f.update.AssertNotCalled(t, "UpdateActivities", mock.Anything, mock.Anything)

	assert.Empty(t, source.ActivityWindow().Activities())
}

func TestSendMoney_DepositFails_BothLockedAndReleased(t *testing.T) {
	ctx := context.Background()
	f := newFixture(unlimited())

	sourceID := domain.NewAccountID()
	targetID := domain.NewAccountID()
	f.givenAnAccountWithID(sourceID, 1000)
	f.givenAnAccountWithID(targetID, 0, domain.WithDepositGuard(func(*domain.Account, domain.Money) bool {
		return false
	}))
	f.givenLocksSucceed()

	ok, err := f.svc.SendMoney(ctx, domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(300)})

	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{
		"lock:" + sourceID.String(),
		"lock:" + targetID.String(),
		"release:" + targetID.String(),
		"release:" + sourceID.String(),
	}, f.lock.sequence())
	f.update.AssertNotCalled(t, "UpdateActivities", mock.Anything, mock.Anything)
}

func TestSendMoney_Succeeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(unlimited())

	sourceID := domain.NewAccountID()
	targetID := domain.NewAccountID()
	source := f.givenAnAccountWithID(sourceID, 1000)
	target := f.givenAnAccountWithID(targetID, 50)
	f.givenLocksSucceed()

	var persisted []domain.AccountID
	f.update.On("UpdateActivities", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			id, _ := args.Get(1).(*domain.Account).ID()
			persisted = append(persisted, id)
			// Persistence happens while both locks are held
			assert.Len(t, f.lock.sequence(), 2)
		}).
		Return(nil)

	ok, err := f.svc.SendMoney(ctx, domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(500)})

	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{
		"lock:" + sourceID.String(),
		"lock:" + targetID.String(),
		"release:" + targetID.String(),
		"release:" + sourceID.String(),
	}, f.lock.sequence())
	assert.Equal(t, []domain.AccountID{sourceID, targetID}, persisted)

	assert.Equal(t, "500", source.CalculateBalance().String())
	assert.Equal(t, "550", target.CalculateBalance().String())

	withdrawal := source.ActivityWindow().NewActivities()
	require.Len(t, withdrawal, 1)
	assert.Equal(t, targetID, withdrawal[0].TargetAccountID)

	deposit := target.ActivityWindow().NewActivities()
	require.Len(t, deposit, 1)
	assert.Equal(t, sourceID, deposit[0].SourceAccountID)

	f.load.AssertExpectations(t)
	f.update.AssertNumberOfCalls(t, "UpdateActivities", 2)
}

func TestSendMoney_LoadFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(unlimited())

	sourceID := domain.NewAccountID()
	targetID := domain.NewAccountID()
	f.givenAnAccountWithID(sourceID, 1000)
	f.load.On("LoadAccount", mock.Anything, targetID, mock.Anything).
		Return(nil, domain.ErrAccountNotFound)

	ok, err := f.svc.SendMoney(ctx, domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(10)})

	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	f.lock.AssertNotCalled(t, "LockAccount", mock.Anything, mock.Anything)
}

func TestSendMoney_LockFailures(t *testing.T) {
	errBusy := errors.New("lock busy")

	tests := []struct {
		name         string
		failOnTarget bool
		wantSequence func(source, target domain.AccountID) []string
	}{
		{
			name:         "Source lock not acquired",
			failOnTarget: false,
			wantSequence: func(source, target domain.AccountID) []string {
				return []string{"lock:" + source.String()}
			},
		},
		{
			name:         "Target lock not acquired",
			failOnTarget: true,
			wantSequence: func(source, target domain.AccountID) []string {
				return []string{
					"lock:" + source.String(),
					"lock:" + target.String(),
					"release:" + source.String(),
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(unlimited())
			sourceID := domain.NewAccountID()
			targetID := domain.NewAccountID()
			f.givenAnAccountWithID(sourceID, 1000)
			f.givenAnAccountWithID(targetID, 0)

			if tt.failOnTarget {
				f.lock.On("LockAccount", mock.Anything, sourceID).Return(nil)
				f.lock.On("LockAccount", mock.Anything, targetID).Return(errBusy)
			} else {
				f.lock.On("LockAccount", mock.Anything, sourceID).Return(errBusy)
			}
			f.lock.On("ReleaseAccount", mock.Anything, mock.Anything).Return(nil)

			ok, err := f.svc.SendMoney(context.Background(), domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(10)})

			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, tt.wantSequence(sourceID, targetID), f.lock.sequence())
			f.update.AssertNotCalled(t, "UpdateActivities", mock.Anything, mock.Anything)
		})
	}
}

func TestSendMoney_PersistFailureReleasesLocks(t *testing.T) {
	errDB := errors.New("connection reset")

	tests := []struct {
		name        string
		failOnCall  int
		wantUpdates int
	}{
		{name: "Source persist fails", failOnCall: 1, wantUpdates: 1},
		{name: "Target persist fails", failOnCall: 2, wantUpdates: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(unlimited())
			sourceID := domain.NewAccountID()
			targetID := domain.NewAccountID()
			f.givenAnAccountWithID(sourceID, 1000)
			f.givenAnAccountWithID(targetID, 0)
			f.givenLocksSucceed()

			if tt.failOnCall == 1 {
				f.update.On("UpdateActivities", mock.Anything, mock.Anything).Return(errDB).Once()
			} else {
				f.update.On("UpdateActivities", mock.Anything, mock.Anything).Return(nil).Once()
				f.update.On("UpdateActivities", mock.Anything, mock.Anything).Return(errDB).Once()
			}

			ok, err := f.svc.SendMoney(context.Background(), domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(10)})

			assert.False(t, ok)
			assert.ErrorIs(t, err, errDB)
			assert.False(t, domain.IsPrecondition(err))
			f.update.AssertNumberOfCalls(t, "UpdateActivities", tt.wantUpdates)
			f.assertLocksBalanced(t, sourceID, targetID)
			f.lock.AssertNumberOfCalls(t, "ReleaseAccount", 2)
		})
	}
}

func TestSendMoney_LockBalanceForAllFailurePoints(t *testing.T) {
	errBoom := errors.New("boom")

	// Each case injects a failure at a different step of the protocol.
	failures := map[string]func(f *fixture, sourceID, targetID domain.AccountID){
		"source lock": func(f *fixture, sourceID, targetID domain.AccountID) {
			f.lock.On("LockAccount", mock.Anything, sourceID).Return(errBoom)
		},
		"withdraw": func(f *fixture, sourceID, targetID domain.AccountID) {
			f.lock.On("LockAccount", mock.Anything, mock.Anything).Return(nil)
		},
		"target lock": func(f *fixture, sourceID, targetID domain.AccountID) {
			f.lock.On("LockAccount", mock.Anything, sourceID).Return(nil)
			f.lock.On("LockAccount", mock.Anything, targetID).Return(errBoom)
		},
		"deposit": func(f *fixture, sourceID, targetID domain.AccountID) {
			f.lock.On("LockAccount", mock.Anything, mock.Anything).Return(nil)
		},
		"persist": func(f *fixture, sourceID, targetID domain.AccountID) {
			f.lock.On("LockAccount", mock.Anything, mock.Anything).Return(nil)
			f.update.On("UpdateActivities", mock.Anything, mock.Anything).Return(errBoom)
		},
		"release": func(f *fixture, sourceID, targetID domain.AccountID) {
			f.lock.On("LockAccount", mock.Anything, mock.Anything).Return(nil)
			f.update.On("UpdateActivities", mock.Anything, mock.Anything).Return(nil)
		},
	}

	for name, inject := range failures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(unlimited())
			sourceID := domain.NewAccountID()
			targetID := domain.NewAccountID()

			sourceBalance := int64(1000)
			if name == "withdraw" {
				sourceBalance = 0
			}
			f.givenAnAccountWithID(sourceID, sourceBalance)

			var targetOpts []domain.AccountOption
			if name == "deposit" {
				targetOpts = append(targetOpts, domain.WithDepositGuard(func(*domain.Account, domain.Money) bool { return false }))
			}
			f.givenAnAccountWithID(targetID, 0, targetOpts...)

			inject(f, sourceID, targetID)
			if name == "release" {
				f.lock.On("ReleaseAccount", mock.Anything, mock.Anything).Return(errBoom)
			} else {
				f.lock.On("ReleaseAccount", mock.Anything, mock.Anything).Return(nil)
			}

			_, _ = f.svc.SendMoney(context.Background(), domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(10)})

			f.assertLocksBalanced(t, sourceID, targetID)
		})
	}
}

func TestSendMoney_ReleaseErrorDoesNotFailTransfer(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	f := newFixture(unlimited())
	f.svc.Logger = zap.New(core)

	sourceID := domain.NewAccountID()
	targetID := domain.NewAccountID()
	f.givenAnAccountWithID(sourceID, 1000)
	f.givenAnAccountWithID(targetID, 0)
	f.lock.On("LockAccount", mock.Anything, mock.Anything).Return(nil)
	f.lock.On("ReleaseAccount", mock.Anything, mock.Anything).Return(errors.New("lock expired"))
	f.update.On("UpdateActivities", mock.Anything, mock.Anything).Return(nil)

	ok, err := f.svc.SendMoney(context.Background(), domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(10)})

	require.NoError(t, err)
	assert.True(t, ok)
	f.lock.AssertNumberOfCalls(t, "ReleaseAccount", 2)
	assert.Equal(t, 2, logs.FilterMessage("failed to release account lock").Len())
}

func TestSendMoney_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	f := newFixture(domain.MoneyOf(1))
	f.svc.Tracer = provider.Tracer("test")

	_, err := f.svc.SendMoney(context.Background(), domain.TransferRequest{
		SourceAccountID: domain.NewAccountID(),
		TargetAccountID: domain.NewAccountID(),
		Amount:          domain.MoneyOf(2),
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "transfer.SendMoney", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1, "the error is recorded as a span event")
}

func TestSendMoney_WithdrawalDecidedOnStateReadUnderLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(unlimited())

	sourceID := domain.NewAccountID()
	targetID := domain.NewAccountID()
	baselineDate := testNow.Add(-DefaultBaselineWindow)

	// Another transfer drained the source between the first read and the lock.
	f.load.On("LoadAccount", mock.Anything, sourceID, baselineDate).
		Return(domain.NewAccount(sourceID, domain.MoneyOf(500), nil), nil).Once()
	f.load.On("LoadAccount", mock.Anything, sourceID, baselineDate).
		Return(domain.NewAccount(sourceID, domain.ZeroMoney, nil), nil).Once()
	f.givenAnAccountWithID(targetID, 0)
	f.givenLocksSucceed()

	ok, err := f.svc.SendMoney(ctx, domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(100)})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"lock:" + sourceID.String(), "release:" + sourceID.String()}, f.lock.sequence())
	f.update.AssertNotCalled(t, "UpdateActivities", mock.Anything, mock.Anything)
}

func TestSendMoney_ReloadFailsReleasesLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(unlimited())

	sourceID := domain.NewAccountID()
	targetID := domain.NewAccountID()
	errDB := errors.New("connection reset")

	f.load.On("LoadAccount", mock.Anything, sourceID, mock.Anything).
		Return(domain.NewAccount(sourceID, domain.MoneyOf(500), nil), nil).Once()
	f.load.On("LoadAccount", mock.Anything, sourceID, mock.Anything).
		Return(nil, errDB).Once()
	f.givenAnAccountWithID(targetID, 0)
	f.givenLocksSucceed()

	ok, err := f.svc.SendMoney(ctx, domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: targetID, Amount: domain.MoneyOf(100)})

	assert.False(t, ok)
	assert.ErrorIs(t, err, errDB)
	assert.False(t, domain.IsPrecondition(err))
	f.assertLocksBalanced(t, sourceID, targetID)
	f.lock.AssertNumberOfCalls(t, "LockAccount", 1)
}

func TestSendMoney_SameAccount(t *testing.T) {
	tests := []struct {
		name     string
		maxAmt   domain.Money
		setup    func(f *fixture) domain.TransferRequest
		wantErr  error
		wantLoad bool
	}{
		{
			name:   "Same ID in request",
			maxAmt: unlimited(),
			setup: func(f *fixture) domain.TransferRequest {
				id := domain.NewAccountID()
				return domain.TransferRequest{SourceAccountID: id, TargetAccountID: id, Amount: domain.MoneyOf(10)}
			},
			wantErr: domain.ErrSameAccount,
		},
		{
			name:   "Threshold is still checked first",
			maxAmt: domain.MoneyOf(5),
			setup: func(f *fixture) domain.TransferRequest {
				id := domain.NewAccountID()
				return domain.TransferRequest{SourceAccountID: id, TargetAccountID: id, Amount: domain.MoneyOf(10)}
			},
			wantErr: domain.ErrThresholdExceeded,
		},
		{
			name:   "Both requested IDs load the same account",
			maxAmt: unlimited(),
			setup: func(f *fixture) domain.TransferRequest {
				sourceID := domain.NewAccountID()
				aliasID := domain.NewAccountID()
				f.givenAnAccountWithID(sourceID, 1000)
				f.load.On("LoadAccount", mock.Anything, aliasID, mock.Anything).
					Return(domain.NewAccount(sourceID, domain.ZeroMoney, nil), nil)
				return domain.TransferRequest{SourceAccountID: sourceID, TargetAccountID: aliasID, Amount: domain.MoneyOf(10)}
			},
			wantErr:  domain.ErrSameAccount,
			wantLoad: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.maxAmt)
			req := tt.setup(f)

			ok, err := f.svc.SendMoney(context.Background(), req)

			assert.False(t, ok)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domain.IsPrecondition(err))
			assert.Empty(t, f.lock.sequence(), "no lock may be taken")
			f.lock.AssertNotCalled(t, "LockAccount", mock.Anything, mock.Anything)
			f.update.AssertNotCalled(t, "UpdateActivities", mock.Anything, mock.Anything)
			if !tt.wantLoad {
				f.load.AssertNotCalled(t, "LoadAccount", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}
