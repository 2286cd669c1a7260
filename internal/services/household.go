// Package services holds the household operations the HTTP layer exposes:
// record writes, the monthly rollover and the derived views.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"roomfund/internal/amqp"
	"roomfund/internal/core"
	applog "roomfund/internal/log"
	"roomfund/internal/storage"
)

var (
	ErrDuplicateRoommate = errors.New("roommate already exists")
	ErrAdminNotRemovable = errors.New("admin roommate cannot be removed")
)

const (
	MsgNewPeriod     = "New month started. Last month's data cleared."
	MsgBudgetUpdated = "Budget updated"
)

// NotificationLevel is the severity shown with a notification.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
	LevelWarning NotificationLevel = "warning"
	LevelInfo    NotificationLevel = "info"
)

// Notification is user feedback attached to an operation's result.
type Notification struct {
	Level   NotificationLevel `json:"type"`
	Message string            `json:"message"`
}

// Result pairs an operation's value with the feedback it produced.
type Result[T any] struct {
	Value         T
	Notifications []Notification
}

func (r *Result[T]) notify(level NotificationLevel, msg string) {
	r.Notifications = append(r.Notifications, Notification{Level: level, Message: msg})
}

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishChange(ctx context.Context, event amqp.ChangeEvent) error
}

// Observer receives service outcomes; *metrics.Metrics implements it.
type Observer interface {
	ObserveRollover()
	ObservePublish(err error)
}

type noopObserver struct{}

func (noopObserver) ObserveRollover()     {}
func (noopObserver) ObservePublish(error) {}

// Household orchestrates record writes against the store and announces
// each successful write on the event publisher.
type Household struct {
	records   *storage.Records
	publisher EventPublisher
	observer  Observer
	now       func() time.Time
	loc       *time.Location
	logger    *slog.Logger
	journal   *applog.StructuredLogger
}

type Option func(*Household)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p EventPublisher) Option {
	return func(h *Household) { h.publisher = p }
}

func WithObserver(o Observer) Option {
	return func(h *Household) { h.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(h *Household) { h.now = now }
}

// WithLocation sets the zone period boundaries are computed in.
func WithLocation(loc *time.Location) Option {
	return func(h *Household) { h.loc = loc }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Household) { h.logger = l }
}

func NewHousehold(records *storage.Records, opts ...Option) *Household {
	h := &Household{
		records:  records,
		observer: noopObserver{},
		now:      time.Now,
		loc:      time.Local,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.journal = applog.NewStructuredLogger(applog.New(applog.Config{
		Component: applog.ComponentHousehold,
		Handler:   h.logger.Handler(),
	}))
	return h
}

func (h *Household) clock() time.Time {
	return h.now().In(h.loc)
}

func (h *Household) today() core.Date {
	return core.DateOf(h.clock())
}

// Session is what a client needs after signing in.
type Session struct {
	RolledOver bool
	Dashboard  core.Dashboard
}

// StartSession makes sure the owner is on the roster, then applies the
// monthly rollover when the stored budget belongs to another period.
func (h *Household) StartSession(ctx context.Context, account, owner string) (Result[Session], error) {
	var res Result[Session]

	if err := h.ensureAdmin(ctx, account, owner); err != nil {
		return res, err
	}

	budget, err := h.records.GetBudget(ctx, account)
	if err != nil {
		return res, fmt.Errorf("load budget: %w", err)
	}

	if decision, ok := core.CheckRollover(budget, h.clock()); ok {
		failed, err := h.applyRollover(ctx, account, budget.Month.String(), decision)
		if err != nil {
			return res, err
		}
		res.Value.RolledOver = true
		if failed > 0 {
			res.notify(LevelWarning, partialRolloverMessage(failed))
		} else {
			res.notify(LevelSuccess, MsgNewPeriod)
		}
	}

	dash, err := h.Dashboard(ctx, account)
	if err != nil {
		return res, err
	}
	res.Value.Dashboard = dash
	return res, nil
}

func (h *Household) ensureAdmin(ctx context.Context, account, owner string) error {
	roommates, err := h.records.ListRoommates(ctx, account)
	if err != nil {
		return fmt.Errorf("load roommates: %w", err)
	}
	if len(roommates) > 0 {
		return nil
	}

	name := strings.TrimSpace(owner)
	if name == "" {
		name = "Admin"
	}
	admin := core.Roommate{
		ID:       uuid.NewString(),
		Name:     name,
		IsAdmin:  true,
		Initials: core.Initials(name),
	}
	if err := h.records.PutRoommate(ctx, account, admin); err != nil {
		return fmt.Errorf("create admin roommate: %w", err)
	}
	h.publish(ctx, account, storage.KindRoommates, amqp.OpPut, admin.ID)
	h.logger.InfoContext(ctx, "Created admin roommate", "account", account, "name", name)
	return nil
}

// applyRollover writes the new budget first so a failed clear never leaves
// the account on the old period. It returns how many collections failed to
// clear; those failures are logged and not rolled back.
func (h *Household) applyRollover(ctx context.Context, account, from string, d core.RolloverDecision) (int, error) {
	if err := h.records.PutBudget(ctx, account, d.Budget); err != nil {
		return 0, fmt.Errorf("save rolled over budget: %w", err)
	}
	h.observer.ObserveRollover()
	h.publish(ctx, account, storage.KindBudget, amqp.OpRollover, storage.BudgetDocumentID)

	if !d.ClearRecords {
		h.journal.LogRollover(ctx, account, from, d.Budget.Month.String(), 0)
		return 0, nil
	}

	kinds := []storage.Kind{storage.KindExpenses, storage.KindChores}
	errs := make([]error, len(kinds))
	counts := make([]int, len(kinds))
	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			counts[i], errs[i] = h.records.DeleteAll(ctx, account, kind)
			return nil
		})
	}
	_ = g.Wait()

	failed, cleared := 0, 0
	for i, err := range errs {
		cleared += counts[i]
		if err != nil {
			failed++
			h.logger.ErrorContext(ctx, "Failed to clear records for new period",
				"account", account, "kind", kinds[i], "error", err)
			continue
		}
		h.publish(ctx, account, kinds[i], amqp.OpClear, "")
	}
	h.journal.LogRollover(ctx, account, from, d.Budget.Month.String(), cleared)
	return failed, nil
}

func partialRolloverMessage(failed int) string {
	if failed == 1 {
		return "New month started, but 1 record collection could not be cleared."
	}
	return fmt.Sprintf("New month started, but %d record collections could not be cleared.", failed)
}

// ExpenseInput is a new expense before an id is assigned. A zero Date means today.
type ExpenseInput struct {
	Amount      core.Money
	Description string
	SpentBy     string
	Category    string
	Date        core.Date
}

func (h *Household) AddExpense(ctx context.Context, account string, in ExpenseInput) (Result[core.Expense], error) {
	var res Result[core.Expense]
	e := core.Expense{
		ID:          uuid.NewString(),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		SpentBy:     strings.TrimSpace(in.SpentBy),
		Category:    strings.TrimSpace(in.Category),
		Date:        in.Date,
	}
	if e.Date.IsZero() {
		e.Date = h.today()
	}
	if err := e.Validate(); err != nil {
		return res, err
	}
	if err := h.records.PutExpense(ctx, account, e); err != nil {
		return res, fmt.Errorf("save expense: %w", err)
	}
	h.publish(ctx, account, storage.KindExpenses, amqp.OpPut, e.ID)
	res.Value = e
	return res, nil
}

func (h *Household) DeleteExpense(ctx context.Context, account, id string) error {
	if err := h.records.DeleteExpense(ctx, account, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	h.publish(ctx, account, storage.KindExpenses, amqp.OpDelete, id)
	return nil
}

func (h *Household) ListExpenses(ctx context.Context, account string) ([]core.Expense, error) {
	expenses, err := h.records.ListExpenses(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Budget returns nil when no budget has been set.
func (h *Household) Budget(ctx context.Context, account string) (*core.Budget, error) {
	b, err := h.records.GetBudget(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}
	return b, nil
}

// SetBudget supersedes the stored budget with a new one for the current period.
func (h *Household) SetBudget(ctx context.Context, account string, amount core.Money) (Result[core.Budget], error) {
	var res Result[core.Budget]
	now := h.clock()
	b := core.Budget{
		ID:          uuid.NewString(),
		Month:       core.PeriodOf(now),
		Year:        now.Year(),
		TotalAmount: amount,
		SetDate:     core.DateOf(now),
		IsActive:    true,
	}
	if err := b.Validate(); err != nil {
		return res, err
	}
	if err := h.records.PutBudget(ctx, account, b); err != nil {
		return res, fmt.Errorf("save budget: %w", err)
	}
	h.publish(ctx, account, storage.KindBudget, amqp.OpPut, storage.BudgetDocumentID)
	res.Value = b
	res.notify(LevelSuccess, MsgBudgetUpdated)
	return res, nil
}

func (h *Household) ResetBudget(ctx context.Context, account string) error {
	if err := h.records.DeleteBudget(ctx, account); err != nil {
		return fmt.Errorf("reset budget: %w", err)
	}
	h.publish(ctx, account, storage.KindBudget, amqp.OpDelete, storage.BudgetDocumentID)
	return nil
}

// ChoreInput is a new chore. Empty Emoji and zero Points take the defaults.
type ChoreInput struct {
	Title      string
	AssignedTo string
	DueDate    core.Date
	Emoji      string
	Points     int
}

func (h *Household) AddChore(ctx context.Context, account string, in ChoreInput) (Result[core.Chore], error) {
	var res Result[core.Chore]
	c := core.Chore{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(in.Title),
		AssignedTo: strings.TrimSpace(in.AssignedTo),
		DueDate:    in.DueDate,
		Emoji:      in.Emoji,
		Points:     in.Points,
	}
	if c.Emoji == "" {
		c.Emoji = core.DefaultChoreEmoji
	}
	if c.Points == 0 {
		c.Points = core.DefaultChorePoints
	}
	if err := c.Validate(); err != nil {
		return res, err
	}
	if err := h.records.PutChore(ctx, account, c); err != nil {
		return res, fmt.Errorf("save chore: %w", err)
	}
	h.publish(ctx, account, storage.KindChores, amqp.OpPut, c.ID)
	res.Value = c
	return res, nil
}

// CompleteChore marks the chore done. Completing a completed chore is a no-op write.
func (h *Household) CompleteChore(ctx context.Context, account, id string) (Result[core.Chore], error) {
	var res Result[core.Chore]
	chores, err := h.records.ListChores(ctx, account)
	if err != nil {
		return res, fmt.Errorf("load chores: %w", err)
	}
	idx := -1
	for i, c := range chores {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return res, fmt.Errorf("complete chore %s: %w", id, storage.ErrNotFound)
	}

	c := chores[idx]
	c.Completed = true
	if err := h.records.PutChore(ctx, account, c); err != nil {
		return res, fmt.Errorf("save chore: %w", err)
	}
	h.publish(ctx, account, storage.KindChores, amqp.OpPut, c.ID)
	res.Value = c
	return res, nil
}

func (h *Household) DeleteChore(ctx context.Context, account, id string) error {
	if err := h.records.DeleteChore(ctx, account, id); err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	h.publish(ctx, account, storage.KindChores, amqp.OpDelete, id)
	return nil
}

func (h *Household) ListChores(ctx context.Context, account string) ([]core.Chore, error) {
	chores, err := h.records.ListChores(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	return chores, nil
}

// ChoreTemplate is a quick-add preset.
type ChoreTemplate struct {
	Title  string `json:"title"`
	Emoji  string `json:"emoji"`
	Points int    `json:"points"`
}

var choreTemplates = []ChoreTemplate{
	{Title: "Buy Milk", Emoji: "🥛", Points: 5},
	{Title: "Clean Living Room", Emoji: "🧹", Points: 10},
	{Title: "Take Out Trash", Emoji: "🗑️", Points: 5},
	{Title: "Clean Kitchen", Emoji: "🧽", Points: 15},
	{Title: "Wash Dishes", Emoji: "🍽️", Points: 8},
	{Title: "Grocery Shopping", Emoji: "🛒", Points: 12},
	{Title: "Pay Utility Bills", Emoji: "💡", Points: 10},
	{Title: "Clean Bathroom", Emoji: "🚿", Points: 15},
}

// ChoreTemplates returns a copy of the quick-add presets.
func ChoreTemplates() []ChoreTemplate {
	return append([]ChoreTemplate(nil), choreTemplates...)
}

// RoommateInput is a new roster entry. Initials are derived when empty.
type RoommateInput struct {
	Name     string
	Avatar   string
	Initials string
}

func (h *Household) AddRoommate(ctx context.Context, account string, in RoommateInput) (Result[core.Roommate], error) {
	var res Result[core.Roommate]
	r := core.Roommate{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(in.Name),
		Avatar:   strings.TrimSpace(in.Avatar),
		Initials: strings.ToUpper(strings.TrimSpace(in.Initials)),
	}
	if err := r.Validate(); err != nil {
		return res, err
	}
	if r.Initials == "" {
		r.Initials = core.Initials(r.Name)
	}

	existing, err := h.records.ListRoommates(ctx, account)
	if err != nil {
		return res, fmt.Errorf("load roommates: %w", err)
	}
	for _, other := range existing {
		if core.SameName(other.Name, r.Name) {
			return res, fmt.Errorf("%w: %s", ErrDuplicateRoommate, r.Name)
		}
	}

	if err := h.records.PutRoommate(ctx, account, r); err != nil {
		return res, fmt.Errorf("save roommate: %w", err)
	}
	h.publish(ctx, account, storage.KindRoommates, amqp.OpPut, r.ID)
	res.Value = r
	return res, nil
}

func (h *Household) RemoveRoommate(ctx context.Context, account, id string) error {
	roommates, err := h.records.ListRoommates(ctx, account)
	if err != nil {
		return fmt.Errorf("load roommates: %w", err)
	}
	for _, r := range roommates {
		if r.ID == id && r.IsAdmin {
			return ErrAdminNotRemovable
		}
	}
	if err := h.records.DeleteRoommate(ctx, account, id); err != nil {
		return fmt.Errorf("delete roommate: %w", err)
	}
	h.publish(ctx, account, storage.KindRoommates, amqp.OpDelete, id)
	return nil
}

// ListRoommates returns the roster with spend and points recomputed.
func (h *Household) ListRoommates(ctx context.Context, account string) ([]core.Roommate, error) {
	s, err := h.load(ctx, account)
	if err != nil {
		return nil, err
	}
	return core.WithDerivedTotals(s.roommates, s.expenses, s.chores), nil
}

// ClearData removes every expense and chore. Roommates and budget stay.
func (h *Household) ClearData(ctx context.Context, account string) (Result[int], error) {
	var res Result[int]
	for _, kind := range []storage.Kind{storage.KindExpenses, storage.KindChores} {
		n, err := h.records.DeleteAll(ctx, account, kind)
		res.Value += n
		if err != nil {
			return res, fmt.Errorf("clear %s: %w", kind, err)
		}
		h.publish(ctx, account, kind, amqp.OpClear, "")
	}
	res.notify(LevelSuccess, "All expenses and chores cleared")
	return res, nil
}

func (h *Household) Dashboard(ctx context.Context, account string) (core.Dashboard, error) {
	s, err := h.load(ctx, account)
	if err != nil {
		return core.Dashboard{}, err
	}
	return core.BuildDashboard(s.budget, s.expenses, s.chores, s.roommates, h.clock()), nil
}

func (h *Household) Report(ctx context.Context, account string) (core.Report, error) {
	s, err := h.load(ctx, account)
	if err != nil {
		return core.Report{}, err
	}
	return core.BuildReport(s.budget, s.expenses, s.roommates, h.clock()), nil
}

// ReportFilename names the export downloaded today.
func (h *Household) ReportFilename() string {
	return core.ReportFilename(h.today())
}

// Subscribe streams full snapshots of one collection until cancelled.
func (h *Household) Subscribe(ctx context.Context, account string, kind storage.Kind, fn func([]storage.Document)) (storage.Subscription, error) {
	return h.records.Store().Subscribe(ctx, account, kind, fn)
}

// Ping reports whether the record store is reachable.
func (h *Household) Ping(ctx context.Context) error {
	return h.records.Store().Ping(ctx)
}

type snapshot struct {
	budget    *core.Budget
	expenses  []core.Expense
	chores    []core.Chore
	roommates []core.Roommate
}

func (h *Household) load(ctx context.Context, account string) (snapshot, error) {
	var s snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.budget, err = h.records.GetBudget(gctx, account)
		return err
	})
	g.Go(func() (err error) {
		s.expenses, err = h.records.ListExpenses(gctx, account)
		return err
	})
	g.Go(func() (err error) {
		s.chores, err = h.records.ListChores(gctx, account)
		return err
	})
	g.Go(func() (err error) {
		s.roommates, err = h.records.ListRoommates(gctx, account)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, fmt.Errorf("load account %s: %w", account, err)
	}
	return s, nil
}

func (h *Household) publish(ctx context.Context, account string, kind storage.Kind, op amqp.Op, id string) {
	h.journal.LogRecordWrite(ctx, string(op), account, string(kind), id)
	if h.publisher == nil {
		return
	}
	err := h.publisher.PublishChange(ctx, *amqp.NewChangeEvent(account, string(kind), op, id))
	h.observer.ObservePublish(err)
	if err != nil {
		// The write already succeeded; the mirror catches up on its next resync.
		h.logger.ErrorContext(ctx, "Failed to publish change event",
			"account", account, "kind", kind, "op", op, "id", id, "error", err)
	}
}
