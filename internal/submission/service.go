// Package submission drives an order ticket from validation to an on-chain
// result: Idle → Validating → Encoding → Submitting → Confirming →
// Succeeded | Failed. Once an attempt ends the form is Idle again.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"perpdesk/internal/encoder"
	"perpdesk/internal/events"
	"perpdesk/internal/model"
	"perpdesk/internal/risk"
	"perpdesk/internal/sizing"
	"perpdesk/internal/telemetry"
	"perpdesk/internal/tradeerr"
	"perpdesk/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultConfirmTimeout = 30 * time.Second
	refreshTimeout        = 10 * time.Second
	outcomeTTL            = 15 * time.Minute
	maxOutcomes           = 4096
)

var ErrForeignAccount = errors.New("orders can only be placed for the signing account")

type Markets interface {
	Lookup(symbol string) (model.Market, error)
	Resolve(ctx context.Context, m model.Market) model.MarketParams
	Effective(m model.Market) model.MarketParams
}

type Accounts interface {
	Snapshot(ctx context.Context, address string) (model.AccountState, error)
	Refresh(ctx context.Context, address string) (model.AccountState, error)
}

type Chain interface {
	Account() string
	SubmitOrder(ctx context.Context, p model.EncodedOrderPayload) (model.TxHandle, error)
	AwaitConfirmation(ctx context.Context, h model.TxHandle) (model.Confirmation, error)
}

// Recorder stores finished submissions.
type Recorder interface {
	Record(ctx context.Context, res model.OrderResult) error
}

type Publisher interface {
	Publish(evt events.Event)
}

type Options struct {
	ConfirmTimeout time.Duration
	Recorder       Recorder
	Events         Publisher
	Metrics        *telemetry.SubmissionMetrics
	Logger         *slog.Logger
}

type form struct {
	state atomic.Value
}

type outcome struct {
	state        types.SubmissionState
	kind         string
	submissionID string
	at           time.Time
}

// FormStatus is what a form shows between and during attempts. State is the
// live state while an attempt runs and Idle otherwise; the Last fields
// describe the most recent finished attempt.
type FormStatus struct {
	FormID           string                `json:"form_id"`
	State            types.SubmissionState `json:"state"`
	LastOutcome      types.SubmissionState `json:"last_outcome,omitempty"`
	LastErrorKind    string                `json:"last_error_kind,omitempty"`
	LastSubmissionID string                `json:"last_submission_id,omitempty"`
}

type Service struct {
	markets  Markets
	accounts Accounts
	chain    Chain
	calc     *risk.Calculator

	confirmTimeout time.Duration
	recorder       Recorder
	events         Publisher
	metrics        *telemetry.SubmissionMetrics
	log            *slog.Logger
	now            func() time.Time

	mu        sync.Mutex
	inFlight  map[string]*form
	outcomes  map[string]outcome
	lastPrune time.Time
}

func NewService(markets Markets, accounts Accounts, chain Chain, opts Options) *Service {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		markets:        markets,
		accounts:       accounts,
		chain:          chain,
		calc:           risk.NewCalculator(),
		confirmTimeout: opts.ConfirmTimeout,
		recorder:       opts.Recorder,
		events:         opts.Events,
		metrics:        opts.Metrics,
		log:            opts.Logger,
		now:            time.Now,
		inFlight:       make(map[string]*form),
		outcomes:       make(map[string]outcome),
	}
}

// Account is the address submissions are signed for.
func (s *Service) Account() string {
	return s.chain.Account()
}

// begin claims formID for one attempt. Only in-flight forms are held here;
// a form with no running attempt is Idle and may be submitted again.
func (s *Service) begin(formID string) (*form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[formID]; busy {
		return nil, false
	}
	f := &form{}
	f.state.Store(types.SubmissionIdle)
	s.inFlight[formID] = f
	return f, true
}

// end releases formID and remembers how the attempt finished.
func (s *Service) end(res model.OrderResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, res.FormID)
	now := s.now()
	if now.Sub(s.lastPrune) > time.Minute || len(s.outcomes) >= maxOutcomes {
		s.pruneOutcomes(now)
	}
	s.outcomes[res.FormID] = outcome{state: res.State, kind: res.ErrorKind, submissionID: res.SubmissionID, at: now}
}

func (s *Service) pruneOutcomes(now time.Time) {
	var oldestID string
	var oldest time.Time
	for id, o := range s.outcomes {
		if now.Sub(o.at) > outcomeTTL {
			delete(s.outcomes, id)
			continue
		}
		if oldestID == "" || o.at.Before(oldest) {
			oldestID, oldest = id, o.at
		}
	}
	if len(s.outcomes) >= maxOutcomes {
		delete(s.outcomes, oldestID)
	}
	s.lastPrune = now
}

// FormState reports where a form stands. Unknown and forgotten forms are idle.
func (s *Service) FormState(formID string) FormStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := FormStatus{FormID: formID, State: types.SubmissionIdle}
	if f, ok := s.inFlight[formID]; ok {
		st.State = f.state.Load().(types.SubmissionState)
	}
	if o, ok := s.outcomes[formID]; ok && s.now().Sub(o.at) <= outcomeTTL {
		st.LastOutcome = o.state
		st.LastErrorKind = o.kind
		st.LastSubmissionID = o.submissionID
	}
	return st
}

type Request struct {
	FormID  string
	Account string
	Intent  model.OrderIntent
}

// Submit runs one submission attempt. The returned result is populated even
// when err is non-nil, up to the state the attempt reached.
func (s *Service) Submit(ctx context.Context, req Request) (model.OrderResult, error) {
	if !sameAddress(req.Account, s.chain.Account()) {
		return model.OrderResult{}, ErrForeignAccount
	}
	if strings.TrimSpace(req.FormID) == "" {
		req.FormID = uuid.NewString()
	}
	f, ok := s.begin(req.FormID)
	if !ok {
		return model.OrderResult{}, tradeerr.New(tradeerr.KindSubmissionInFlight,
			tradeerr.WithMessage("a submission for this form is already in flight"),
			tradeerr.WithField("form_id", req.FormID))
	}

	a := &attempt{
		svc:  s,
		form: f,
		res: model.OrderResult{
			SubmissionID: uuid.NewString(),
			FormID:       req.FormID,
			Account:      s.chain.Account(),
			Market:       strings.ToUpper(strings.TrimSpace(req.Intent.Market)),
			State:        types.SubmissionIdle,
			StartedAt:    s.now().UTC(),
		},
	}
	res, err := a.run(ctx, req.Intent)
	s.end(res)
	return res, err
}

type attempt struct {
	svc  *Service
	form *form
	res  model.OrderResult
}

func (a *attempt) run(ctx context.Context, intent model.OrderIntent) (model.OrderResult, error) {
	s := a.svc

	a.transition(ctx, types.SubmissionValidating)
	market, err := s.markets.Lookup(intent.Market)
	if err != nil {
		return a.fail(ctx, err)
	}
	account, err := s.accounts.Snapshot(ctx, a.res.Account)
	if err != nil {
		return a.fail(ctx, tradeerr.Transport("load account snapshot", err))
	}
	params := s.markets.Resolve(ctx, market)
	ev, err := s.calc.Evaluate(intent, account, params)
	if !ev.Size.IsZero() {
		summary := ev.Summary
		a.res.Summary = &summary
	}
	if err != nil {
		return a.fail(ctx, err)
	}

	a.transition(ctx, types.SubmissionEncoding)
	payload, err := encoder.Encode(encoder.Input{
		Kind:       intent.Kind,
		IsLong:     intent.IsLong(),
		IsClose:    intent.IsClose(),
		Size:       ev.Size,
		Exact:      ev.Exact,
		Price:      ev.Price,
		Leverage:   intent.Leverage,
		TakeProfit: ev.TakeProfit,
		StopLoss:   ev.StopLoss,
	}, params)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.res.Payload = &payload

	a.transition(ctx, types.SubmissionSubmitting)
	handle, err := s.chain.SubmitOrder(ctx, payload)
	if err != nil {
		return a.fail(ctx, tradeerr.Transport("submit order", err))
	}
	a.res.TxHash = handle.Hash

	a.transition(ctx, types.SubmissionConfirming)
	confirmCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	conf, err := s.chain.AwaitConfirmation(confirmCtx, handle)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !tradeerr.IsKind(err, tradeerr.KindTimeout) {
			err = tradeerr.New(tradeerr.KindTimeout,
				tradeerr.WithMessage("transaction not confirmed in time"),
				tradeerr.WithField("tx_hash", handle.Hash),
				tradeerr.WithCause(err))
		}
		return a.fail(ctx, tradeerr.Transport("confirm order", err))
	}
	a.res.VMStatus = conf.VMStatus
	if !conf.Success {
		return a.fail(ctx, tradeerr.New(tradeerr.KindOnChainFailure,
			tradeerr.WithMessage("transaction failed on chain"),
			tradeerr.WithField("tx_hash", handle.Hash),
			tradeerr.WithField("vm_status", conf.VMStatus)))
	}

	a.finish(ctx, types.SubmissionSucceeded, nil)
	s.refreshAfterFill(ctx, a.res.Account)
	return a.res, nil
}

func (a *attempt) transition(ctx context.Context, state types.SubmissionState) {
	a.res.State = state
	a.form.state.Store(state)
	a.svc.metrics.Transition(ctx, a.res.Market, string(state))
	a.svc.log.Debug("submission state", "submission_id", a.res.SubmissionID, "form_id", a.res.FormID,
		"market", a.res.Market, "state", state)
	a.publish()
}

func (a *attempt) fail(ctx context.Context, err error) (model.OrderResult, error) {
	a.finish(ctx, types.SubmissionFailed, err)
	return a.res, err
}

func (a *attempt) finish(ctx context.Context, state types.SubmissionState, err error) {
	s := a.svc
	a.res.State = state
	a.res.FinishedAt = s.now().UTC()
	if err != nil {
		a.res.ErrorKind = string(tradeerr.KindOf(err))
		a.res.Error = err.Error()
	}
	a.form.state.Store(state)
	elapsed := a.res.FinishedAt.Sub(a.res.StartedAt)
	s.metrics.Finished(ctx, a.res.Market, string(state), a.res.ErrorKind, elapsed)
	a.publish()

	attrs := []any{"submission_id", a.res.SubmissionID, "form_id", a.res.FormID, "market", a.res.Market,
		"state", state, "elapsed", elapsed}
	if a.res.TxHash != "" {
		attrs = append(attrs, "tx_hash", a.res.TxHash)
	}
	switch {
	case err == nil:
		s.log.Info("order submitted", attrs...)
	case tradeerr.KindOf(err).Validation():
		s.log.Info("order rejected", append(attrs, "error", err)...)
	default:
		s.log.Warn("order submission failed", append(attrs, "error", err)...)
	}

	if s.recorder == nil {
		return
	}
	if rerr := s.recorder.Record(context.WithoutCancel(ctx), a.res); rerr != nil {
		s.log.Error("journal record failed", "submission_id", a.res.SubmissionID, "error", rerr)
	}
}

func (a *attempt) publish() {
	if a.svc.events == nil {
		return
	}
	a.svc.events.Publish(events.Event{
		Type:    events.TypeSubmissionState,
		Account: a.res.Account,
		Data:    a.res,
	})
}

// refreshAfterFill reloads the account in the background once an order has
// landed.
func (s *Service) refreshAfterFill(ctx context.Context, account string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	go func() {
		defer cancel()
		st, err := s.accounts.Refresh(ctx, account)
		if err != nil {
			s.log.Warn("post-submit account refresh failed", "account", account, "error", err)
			return
		}
		if s.events != nil {
			s.events.Publish(events.Event{Type: events.TypeAccountSnapshot, Account: account, Data: st})
		}
	}()
}

// Preview computes the risk summary of intent against the account's cached
// snapshot and the market's last known parameters. It never submits.
func (s *Service) Preview(ctx context.Context, account string, intent model.OrderIntent) (model.RiskSummary, model.MarketParams, error) {
	market, err := s.markets.Lookup(intent.Market)
	if err != nil {
		return model.RiskSummary{}, model.MarketParams{}, err
	}
	st, err := s.accounts.Snapshot(ctx, account)
	if err != nil {
		return model.RiskSummary{}, model.MarketParams{}, tradeerr.Transport("load account snapshot", err)
	}
	params := s.markets.Effective(market)
	ev, err := s.calc.Evaluate(intent, st, params)
	return ev.Summary, params, err
}

type PresetRequest struct {
	Market   string
	Tab      types.Tab
	Currency types.AmountCurrency
	Percent  decimal.Decimal
	Price    string
	Leverage int64
}

// Preset fills the amount field with a share of the available margin or of
// the open position.
func (s *Service) Preset(ctx context.Context, account string, req PresetRequest) (decimal.Decimal, error) {
	market, err := s.markets.Lookup(req.Market)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := sizing.ParsePrice(req.Price)
	if err != nil {
		return decimal.Zero, err
	}
	st, err := s.accounts.Snapshot(ctx, account)
	if err != nil {
		return decimal.Zero, tradeerr.Transport("load account snapshot", err)
	}
	in := sizing.PresetInput{
		Tab:            req.Tab,
		Currency:       req.Currency,
		Percent:        req.Percent,
		ProfileBalance: st.ProfileBalance,
		Price:          price,
		Leverage:       req.Leverage,
	}
	if p, ok := st.Position(market.ID); ok {
		in.Position = &p
	}
	return sizing.PresetAmount(in)
}

func sameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
