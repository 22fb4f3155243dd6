package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/library-system/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LatestBalanceEntry(ctx context.Context, memberID int64) (*model.BalanceEntry, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BalanceEntry), args.Error(1)
}

func (m *mockStore) InsertBalanceEntry(ctx context.Context, entry *model.BalanceEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func TestCurrentBalance_NoEntries(t *testing.T) {
	ctx := context.Background()
	s := new(mockStore)
	s.On("LatestBalanceEntry", ctx, int64(1)).Return(nil, nil)

	got, err := CurrentBalance(ctx, s, 1)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCurrentBalance_LatestEntry(t *testing.T) {
	ctx := context.Background()
	s := new(mockStore)
	s.On("LatestBalanceEntry", ctx, int64(1)).Return(&model.BalanceEntry{Balance: 125}, nil)

	got, err := CurrentBalance(ctx, s, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(125), got)
}

func TestAppend_AddsDeltaToCurrentBalance(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	txID := int64(9)

	s := new(mockStore)
	s.On("LatestBalanceEntry", ctx, int64(1)).Return(&model.BalanceEntry{Balance: 100}, nil)
	s.On("InsertBalanceEntry", ctx, mock.MatchedBy(func(e *model.BalanceEntry) bool {
		return e.MemberID == 1 && e.Balance == 25 && e.DateOfEntry.Equal(at) && *e.TransactionID == txID
	})).Return(nil)

	c := NewCalculator(nil)
	entry, err := c.Append(ctx, s, model.TransactionReturned, 1, -75, &txID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(25), entry.Balance)
	s.AssertExpectations(t)
}

func TestAppend_CreditCeilingRejectsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	s := new(mockStore)
	s.On("LatestBalanceEntry", ctx, int64(1)).Return(&model.BalanceEntry{Balance: 450}, nil)

	c := NewCalculator(CreditCeiling{Limit: 500})
	_, err := c.Append(ctx, s, model.TransactionBorrowed, 1, 100, nil, time.Now())
	require.ErrorIs(t, err, model.ErrCreditLimitExceeded)
	s.AssertNotCalled(t, "InsertBalanceEntry", mock.Anything, mock.Anything)
}

func TestAppend_CreditCeilingIgnoresReturns(t *testing.T) {
	ctx := context.Background()
	s := new(mockStore)
	s.On("LatestBalanceEntry", ctx, int64(1)).Return(&model.BalanceEntry{Balance: 450}, nil)
	s.On("InsertBalanceEntry", ctx, mock.MatchedBy(func(e *model.BalanceEntry) bool {
		return e.Balance == 550
	})).Return(nil)

	c := NewCalculator(CreditCeiling{Limit: 500})
	entry, err := c.Append(ctx, s, model.TransactionReturned, 1, 100, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(550), entry.Balance)
	s.AssertExpectations(t)
}

func TestAppend_PropagatesStoreError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := new(mockStore)
	s.On("LatestBalanceEntry", ctx, int64(1)).Return(nil, boom)

	_, err := NewCalculator(nil).Append(ctx, s, model.TransactionBorrowed, 1, 100, nil, time.Now())
	require.ErrorIs(t, err, boom)
}

func TestCreditCeiling_Check(t *testing.T) {
	tests := []struct {
		name       string
		limit      int64
		newBalance int64
		wantErr    bool
	}{
		{name: "disabled", limit: 0, newBalance: 10_000},
		{name: "under limit", limit: 500, newBalance: 400},
		{name: "exactly at limit", limit: 500, newBalance: 500},
		{name: "over limit", limit: 500, newBalance: 600, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CreditCeiling{Limit: tt.limit}.Check(tt.newBalance)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrCreditLimitExceeded)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPolicyFromLimit(t *testing.T) {
	assert.IsType(t, NoLimit{}, PolicyFromLimit(0))
	assert.IsType(t, NoLimit{}, PolicyFromLimit(-1))
	assert.Equal(t, CreditCeiling{Limit: 500}, PolicyFromLimit(500))
}
