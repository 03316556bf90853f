package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/store/memory"
)

var testNow = time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)

func newTokenService(st *memory.Store, src SignalSource, pageSize, maxOffset int) *TokenService {
	return &TokenService{
		Store:     st,
		Source:    src,
		NetworkID: 8453,
		PageSize:  pageSize,
		MaxOffset: maxOffset,
	}
}

func TestTokenRefreshStopsOnShortPage(t *testing.T) {
	st := memory.New()
	src := newFakeSource(sourceTokens(5)...)

	n, err := newTokenService(st, src, 2, 100).Refresh(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, src.callCount())

	tokens, err := st.ListTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	assert.Equal(t, testNow, tokens[0].UpdatedAt)
	assert.Equal(t, 8453, src.calls[0].NetworkID)
}

func TestTokenRefreshStopsOnEmptyPage(t *testing.T) {
	src := newFakeSource(sourceTokens(4)...)

	n, err := newTokenService(memory.New(), src, 2, 100).Refresh(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	// two full pages and one empty page
	assert.Equal(t, 3, src.callCount())
}

func TestTokenRefreshResumesAfterOffsetCeiling(t *testing.T) {
	all := sourceTokens(7)
	src := newFakeSource(all...)

	tokens, err := newTokenService(memory.New(), src, 2, 4).Fetch(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, tokens, 7)

	var resumed []int64
	for _, c := range src.calls {
		assert.LessOrEqual(t, c.Offset+c.Limit, 4)
		if c.Offset == 0 {
			resumed = append(resumed, c.CreatedAfter)
		}
	}
	assert.Equal(t, []int64{0, all[3].CreatedAt - 1, all[6].CreatedAt - 1}, resumed)
}

func TestTokenRefreshStopsWithoutCursorProgress(t *testing.T) {
	same := sourceTokens(10)
	for i := range same {
		same[i].CreatedAt = 1_700_000_000
	}
	src := newFakeSource(same...)

	tokens, err := newTokenService(memory.New(), src, 2, 4).Fetch(context.Background(), testNow)
	require.NoError(t, err)
	assert.Len(t, tokens, 4)
	assert.Equal(t, 4, src.callCount())
}

func TestTokenRefreshErrorsKeepTable(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.ReplaceTokens(context.Background(), []models.Token{testToken("old", 1)}))

	src := newFakeSource()
	src.err = errors.New("upstream down")
	_, err := newTokenService(st, src, 2, 100).Refresh(context.Background(), testNow)
	require.Error(t, err)

	_, err = newTokenService(st, newFakeSource(), 2, 100).Refresh(context.Background(), testNow)
	assert.ErrorIs(t, err, ErrNoTokens)

	tokens, _ := st.ListTokens(context.Background())
	require.Len(t, tokens, 1)
	assert.Equal(t, "old", tokens[0].Address)
}
