package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"contabile/internal/cache"
	"contabile/internal/core"
	"contabile/internal/storage"
)

const (
	summaryCacheSize = 256
	summaryCacheTTL  = 5 * time.Minute
	dashboardRecent  = 10
	evolutionMonths  = 6
)

// Dashboard is the month view the UI renders: the summary plus the
// latest movements and a short history of monthly flows.
type Dashboard struct {
	Summary   core.MonthlySummary `json:"summary"`
	Recent    []core.Transaction  `json:"recent"`
	Evolution []core.MonthlyFlow  `json:"evolution"`
}

// SummaryService computes monthly aggregates with a small LRU cache in
// front. Cache keys carry a per-owner generation counter, so
// invalidation is one atomic bump instead of a scan.
type SummaryService struct {
	store       *storage.Store
	summaries   *cache.LRUCache[core.MonthlySummary]
	generations sync.Map // ownerID -> *atomic.Int64
}

func NewSummaryService(store *storage.Store, manager *cache.Manager) *SummaryService {
	c := cache.NewLRUCache[core.MonthlySummary](summaryCacheSize, summaryCacheTTL)
	if manager != nil {
		manager.Register(c)
	}
	return &SummaryService{store: store, summaries: c}
}

// InvalidateOwner drops every cached summary for the owner.
func (s *SummaryService) InvalidateOwner(ownerID int64) {
	s.generation(ownerID).Add(1)
}

// Monthly returns the aggregate view of one calendar month.
func (s *SummaryService) Monthly(ctx context.Context, ownerID int64, year, month int) (core.MonthlySummary, error) {
	key := s.cacheKey(ownerID, year, month)
	if cached, ok := s.summaries.Get(key); ok {
		return cached, nil
	}

	summary, err := s.build(ctx, ownerID, year, month)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	s.summaries.Set(key, summary)
	return summary, nil
}

// Dashboard assembles the month summary, the most recent transactions
// and the income/expense evolution of the trailing months. The three
// parts are independent, so they load concurrently.
func (s *SummaryService) Dashboard(ctx context.Context, ownerID int64, year, month int) (Dashboard, error) {
	var dash Dashboard

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.Monthly(gctx, ownerID, year, month)
		if err != nil {
			return fmt.Errorf("month summary: %w", err)
		}
		dash.Summary = summary
		return nil
	})

	g.Go(func() error {
		recent, err := s.store.ListTransactions(gctx, ownerID, storage.TransactionFilter{Limit: dashboardRecent})
		if err != nil {
			return fmt.Errorf("recent transactions: %w", err)
		}
		dash.Recent = recent
		return nil
	})

	months := core.LastMonths(year, month, evolutionMonths)
	flows := make([]core.MonthlyFlow, len(months))
	for i, ym := range months {
		g.Go(func() error {
			summary, err := s.Monthly(gctx, ownerID, ym.Year, ym.Month)
			if err != nil {
				return fmt.Errorf("evolution %d-%02d: %w", ym.Year, ym.Month, err)
			}
			flows[i] = core.MonthlyFlow{
				Year:    ym.Year,
				Month:   ym.Month,
				Income:  summary.TotalIncome,
				Expense: summary.TotalExpense,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	dash.Evolution = flows
	return dash, nil
}

func (s *SummaryService) build(ctx context.Context, ownerID int64, year, month int) (core.MonthlySummary, error) {
	txs, err := s.store.ListTransactions(ctx, ownerID, storage.TransactionFilter{Year: year, Month: month})
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("load transactions: %w", err)
	}
	cards, err := s.store.ListCards(ctx, ownerID)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("load cards: %w", err)
	}
	payments, err := s.store.ListCardPayments(ctx, ownerID, year, month, 0)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("load card payments: %w", err)
	}

	return core.BuildMonthlySummary(year, month, txs, cards, payments), nil
}

func (s *SummaryService) cacheKey(ownerID int64, year, month int) string {
	gen := s.generation(ownerID).Load()
	return fmt.Sprintf("%d/%d/%d-%02d", ownerID, gen, year, month)
}

func (s *SummaryService) generation(ownerID int64) *atomic.Int64 {
	if g, ok := s.generations.Load(ownerID); ok {
		return g.(*atomic.Int64)
	}
	g, _ := s.generations.LoadOrStore(ownerID, &atomic.Int64{})
	return g.(*atomic.Int64)
}
