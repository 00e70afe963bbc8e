package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"perpdesk/internal/model"
	"perpdesk/internal/tradeerr"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// Source provides the balances and positions behind a snapshot.
type Source interface {
	WalletBalance(ctx context.Context, userAddress string) (decimal.Decimal, error)
	ProfileBalance(ctx context.Context, address string) (decimal.Decimal, error)
	Positions(ctx context.Context, address string) ([]model.Position, error)
}

// idleTTL is how long an address nobody asks about keeps its snapshot.
const idleTTL = 15 * time.Minute

type slot struct {
	state    atomic.Pointer[model.AccountState]
	refresh  sync.Mutex
	lastSeen time.Time
}

// Service keeps the latest AccountState per address. Snapshots are swapped
// wholesale; a failed refresh leaves the previous snapshot in place.
type Service struct {
	src Source
	log *slog.Logger
	now func() time.Time

	mu        sync.Mutex
	slots     map[string]*slot
	lastPrune time.Time
}

func NewService(src Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		src:       src,
		log:       logger,
		now:       time.Now,
		slots:     make(map[string]*slot),
	}
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// slot returns the entry for address, creating it when create is set.
// Entries unused for idleTTL are dropped on the way.
func (s *Service) slot(address string, create bool) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastPrune) > time.Minute {
		for key, sl := range s.slots {
			if now.Sub(sl.lastSeen) > idleTTL {
				delete(s.slots, key)
			}
		}
		s.lastPrune = now
	}
	sl, ok := s.slots[address]
	if !ok {
		if !create {
			return nil
		}
		sl = &slot{}
		s.slots[address] = sl
	}
	sl.lastSeen = now
	return sl
}

// Current returns the cached snapshot without I/O.
func (s *Service) Current(address string) (model.AccountState, bool) {
	sl := s.slot(normalize(address), false)
	if sl == nil {
		return model.AccountState{}, false
	}
	st := sl.state.Load()
	if st == nil {
		return model.AccountState{}, false
	}
	return *st, true
}

// Snapshot returns the cached snapshot, fetching one if none exists yet.
func (s *Service) Snapshot(ctx context.Context, address string) (model.AccountState, error) {
	if st, ok := s.Current(address); ok {
		return st, nil
	}
	return s.Refresh(ctx, address)
}

// Refresh fetches balances and positions concurrently and installs the new
// snapshot only if every lookup succeeded.
func (s *Service) Refresh(ctx context.Context, address string) (model.AccountState, error) {
	address = normalize(address)
	if address == "" {
		return model.AccountState{}, errors.New("account address is required")
	}
	sl := s.slot(address, true)
	sl.refresh.Lock()
	defer sl.refresh.Unlock()

	var (
		wallet, profile decimal.Decimal
		positions       []model.Position
	)
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		v, err := s.src.WalletBalance(ctx, address)
		if err != nil {
			return tradeerr.Transport("fetch wallet balance", err)
		}
		wallet = v
		return nil
	})
	p.Go(func(ctx context.Context) error {
		v, err := s.src.ProfileBalance(ctx, address)
		if err != nil {
			return tradeerr.Transport("fetch profile balance", err)
		}
		profile = v
		return nil
	})
	p.Go(func(ctx context.Context) error {
		v, err := s.src.Positions(ctx, address)
		if err != nil {
			return tradeerr.Transport("fetch positions", err)
		}
		positions = v
		return nil
	})
	if err := p.Wait(); err != nil {
		s.log.Warn("account refresh failed", "account", address, "error", err)
		return model.AccountState{}, err
	}

	st := model.NewAccountState(address, wallet, profile, positions, s.now())
	sl.state.Store(&st)
	s.log.Debug("account refreshed", "account", address,
		"wallet", wallet.String(), "profile", profile.String(), "positions", len(st.Positions))
	return st, nil
}
