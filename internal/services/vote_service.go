package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/store"
)

// AutoVoteWalletPrefix prefixes the wallet of system votes; the hour slot follows.
const AutoVoteWalletPrefix = "system:auto:"

// VoteStore is the persistence VoteService needs.
type VoteStore interface {
	store.VoteStore
	store.ScoreStore
}

// VoteService records votes and turns the vote log into vote partial scores.
type VoteService struct {
	Store VoteStore
}

func NewVoteService(st VoteStore) *VoteService {
	return &VoteService{Store: st}
}

// Partials scores the votes of the last 7 days.
func (s *VoteService) Partials(ctx context.Context, now time.Time) (map[string]scoring.VotePartial, error) {
	votes, err := s.Store.VotesSince(ctx, now.Add(-scoring.VoteWindow7d))
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	return scoring.ScoreVotes(votes, now), nil
}

// Cast appends one vote.
func (s *VoteService) Cast(ctx context.Context, tokenAddress, wallet string, at time.Time) (*models.Vote, error) {
	tokenAddress = models.NormalizeAddress(tokenAddress)
	wallet = strings.TrimSpace(wallet)
	if tokenAddress == "" || wallet == "" {
		return nil, fmt.Errorf("vote needs a token and a wallet: %w", store.ErrInvalidInput)
	}
	v := &models.Vote{TokenAddress: tokenAddress, WalletAddress: wallet, CreatedAt: at}
	if err := s.Store.AppendVote(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to append vote: %w", err)
	}
	return v, nil
}

// AutoVoteWallet returns the system wallet used for the hour slot of at.
func AutoVoteWallet(at time.Time) string {
	return AutoVoteWalletPrefix + at.UTC().Format("2006010215")
}

// AutoVote casts one system vote for each of the topK scored tokens. Tokens that
// already got a system vote in the current hour slot are skipped, so reruns are no-ops.
func (s *VoteService) AutoVote(ctx context.Context, now time.Time, topK int) (int, error) {
	if topK <= 0 {
		return 0, nil
	}
	scores, err := s.Store.ListScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load scores: %w", err)
	}
	if len(scores) > topK {
		scores = scores[:topK]
	}

	wallet := AutoVoteWallet(now)
	recent, err := s.Store.VotesSince(ctx, models.HourBucket(now))
	if err != nil {
		return 0, fmt.Errorf("failed to load votes: %w", err)
	}
	voted := make(map[string]struct{})
	for _, v := range recent {
		if v.WalletAddress == wallet {
			voted[models.NormalizeAddress(v.TokenAddress)] = struct{}{}
		}
	}

	cast := 0
	for _, sc := range scores {
		if _, ok := voted[models.NormalizeAddress(sc.TokenAddress)]; ok {
			continue
		}
		if _, err := s.Cast(ctx, sc.TokenAddress, wallet, now); err != nil {
			return cast, err
		}
		cast++
	}
	logger.Info("VoteService: Cast %d automatic votes as %s", cast, wallet)
	return cast, nil
}
