package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roomfund/internal/core"
)

// BudgetDocumentID is the single document an account's budget lives under.
const BudgetDocumentID = "current"

type expenseJSON struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	SpentBy     string  `json:"spentBy,omitempty"`
	Date        string  `json:"date"`
	Category    string  `json:"category,omitempty"`
}

type choreJSON struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	AssignedTo string `json:"assignedTo"`
	DueDate    string `json:"dueDate"`
	Completed  bool   `json:"completed"`
	Emoji      string `json:"emoji"`
	Points     int    `json:"points"`
}

type roommateJSON struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	IsAdmin     bool    `json:"isAdmin"`
	TotalSpent  float64 `json:"totalSpent"`
	ChorePoints int     `json:"chorePoints"`
	Avatar      string  `json:"avatar,omitempty"`
	Initials    string  `json:"initials,omitempty"`
}

type budgetJSON struct {
	ID          string  `json:"id"`
	Month       string  `json:"month"`
	Year        int     `json:"year"`
	TotalAmount float64 `json:"totalAmount"`
	SetDate     string  `json:"setDate"`
	IsActive    bool    `json:"isActive"`
}

func EncodeExpense(e core.Expense) (Document, error) {
	return encode(e.ID, expenseJSON{
		ID:          e.ID,
		Amount:      e.Amount.Rupees(),
		Description: e.Description,
		SpentBy:     e.SpentBy,
		Date:        e.Date.String(),
		Category:    e.Category,
	})
}

func DecodeExpense(doc Document) (core.Expense, error) {
	var v expenseJSON
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return core.Expense{}, fmt.Errorf("decode expense %s: %w", doc.ID, err)
	}
	date, err := core.ParseDate(v.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode expense %s date %q: %w", doc.ID, v.Date, err)
	}
	amount, err := core.MoneyFromRupees(v.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode expense %s amount %v: %w", doc.ID, v.Amount, err)
	}
	return core.Expense{
		ID:          orID(v.ID, doc.ID),
		Amount:      amount,
		Description: v.Description,
		SpentBy:     v.SpentBy,
		Date:        date,
		Category:    v.Category,
	}, nil
}

func EncodeChore(c core.Chore) (Document, error) {
	return encode(c.ID, choreJSON{
		ID:         c.ID,
		Title:      c.Title,
		AssignedTo: c.AssignedTo,
		DueDate:    c.DueDate.String(),
		Completed:  c.Completed,
		Emoji:      c.Emoji,
		Points:     c.Points,
	})
}

func DecodeChore(doc Document) (core.Chore, error) {
	var v choreJSON
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return core.Chore{}, fmt.Errorf("decode chore %s: %w", doc.ID, err)
	}
	due, err := core.ParseDate(v.DueDate)
	if err != nil {
		return core.Chore{}, fmt.Errorf("decode chore %s due date %q: %w", doc.ID, v.DueDate, err)
	}
	return core.Chore{
		ID:         orID(v.ID, doc.ID),
		Title:      v.Title,
		AssignedTo: v.AssignedTo,
		DueDate:    due,
		Completed:  v.Completed,
		Emoji:      v.Emoji,
		Points:     v.Points,
	}, nil
}

func EncodeRoommate(r core.Roommate) (Document, error) {
	return encode(r.ID, roommateJSON{
		ID:          r.ID,
		Name:        r.Name,
		IsAdmin:     r.IsAdmin,
		TotalSpent:  r.TotalSpent.Rupees(),
		ChorePoints: r.ChorePoints,
		Avatar:      r.Avatar,
		Initials:    r.Initials,
	})
}

func DecodeRoommate(doc Document) (core.Roommate, error) {
	var v roommateJSON
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return core.Roommate{}, fmt.Errorf("decode roommate %s: %w", doc.ID, err)
	}
	// Spend is recomputed from expenses; an unreadable stored total is dropped.
	spent, _ := core.MoneyFromRupees(v.TotalSpent)
	return core.Roommate{
		ID:          orID(v.ID, doc.ID),
		Name:        v.Name,
		IsAdmin:     v.IsAdmin,
		TotalSpent:  spent,
		ChorePoints: v.ChorePoints,
		Avatar:      v.Avatar,
		Initials:    v.Initials,
	}, nil
}

// EncodeBudget always writes the canonical YYYY-MM month label.
func EncodeBudget(b core.Budget) (Document, error) {
	return encode(BudgetDocumentID, budgetJSON{
		ID:          b.ID,
		Month:       b.Month.String(),
		Year:        b.Year,
		TotalAmount: b.TotalAmount.Rupees(),
		SetDate:     b.SetDate.String(),
		IsActive:    b.IsActive,
	})
}

// DecodeBudget accepts legacy "July 2025" month labels. A label that cannot
// be read leaves Month zero, which every period comparison treats as a
// different period.
func DecodeBudget(doc Document) (core.Budget, error) {
	var v budgetJSON
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return core.Budget{}, fmt.Errorf("decode budget: %w", err)
	}
	total, err := core.MoneyFromRupees(v.TotalAmount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("decode budget amount %v: %w", v.TotalAmount, err)
	}
	b := core.Budget{
		ID:          v.ID,
		Year:        v.Year,
		TotalAmount: total,
		IsActive:    v.IsActive,
	}
	if p, err := core.ParsePeriod(v.Month); err == nil {
		b.Month = p
		if b.Year == 0 {
			b.Year = p.Year
		}
	}
	if v.SetDate != "" {
		if d, err := core.ParseDate(v.SetDate); err == nil {
			b.SetDate = d
		}
	}
	return b, nil
}

func encode(id string, v any) (Document, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s: %w", id, err)
	}
	return Document{ID: id, Body: body}, nil
}

func orID(bodyID, docID string) string {
	if bodyID != "" {
		return bodyID
	}
	return docID
}

func decodeAll[T any](docs []Document, decode func(Document) (T, error)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func DecodeExpenses(docs []Document) ([]core.Expense, error) {
	return decodeAll(docs, DecodeExpense)
}

func DecodeChores(docs []Document) ([]core.Chore, error) {
	return decodeAll(docs, DecodeChore)
}

func DecodeRoommates(docs []Document) ([]core.Roommate, error) {
	return decodeAll(docs, DecodeRoommate)
}

// Records is the typed view over a RecordStore used by the services.
type Records struct {
	store RecordStore
}

func NewRecords(store RecordStore) *Records {
	return &Records{store: store}
}

func (r *Records) Store() RecordStore {
	return r.store
}

func (r *Records) ListExpenses(ctx context.Context, account string) ([]core.Expense, error) {
	docs, err := r.store.List(ctx, account, KindExpenses)
	if err != nil {
		return nil, err
	}
	return DecodeExpenses(docs)
}

func (r *Records) PutExpense(ctx context.Context, account string, e core.Expense) error {
	doc, err := EncodeExpense(e)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, account, KindExpenses, doc)
}

func (r *Records) DeleteExpense(ctx context.Context, account, id string) error {
	return r.store.Delete(ctx, account, KindExpenses, id)
}

func (r *Records) ListChores(ctx context.Context, account string) ([]core.Chore, error) {
	docs, err := r.store.List(ctx, account, KindChores)
	if err != nil {
		return nil, err
	}
	return DecodeChores(docs)
}

func (r *Records) PutChore(ctx context.Context, account string, c core.Chore) error {
	doc, err := EncodeChore(c)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, account, KindChores, doc)
}

func (r *Records) DeleteChore(ctx context.Context, account, id string) error {
	return r.store.Delete(ctx, account, KindChores, id)
}

func (r *Records) ListRoommates(ctx context.Context, account string) ([]core.Roommate, error) {
	docs, err := r.store.List(ctx, account, KindRoommates)
	if err != nil {
		return nil, err
	}
	return DecodeRoommates(docs)
}

func (r *Records) PutRoommate(ctx context.Context, account string, rm core.Roommate) error {
	doc, err := EncodeRoommate(rm)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, account, KindRoommates, doc)
}

func (r *Records) DeleteRoommate(ctx context.Context, account, id string) error {
	return r.store.Delete(ctx, account, KindRoommates, id)
}

// GetBudget returns nil when the account has no budget yet.
func (r *Records) GetBudget(ctx context.Context, account string) (*core.Budget, error) {
	docs, err := r.store.List(ctx, account, KindBudget)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.ID != BudgetDocumentID {
			continue
		}
		b, err := DecodeBudget(doc)
		if err != nil {
			return nil, err
		}
		return &b, nil
	}
	return nil, nil
}

func (r *Records) PutBudget(ctx context.Context, account string, b core.Budget) error {
	doc, err := EncodeBudget(b)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, account, KindBudget, doc)
}

// DeleteBudget removes the budget; a missing budget is not an error.
func (r *Records) DeleteBudget(ctx context.Context, account string) error {
	err := r.store.Delete(ctx, account, KindBudget, BudgetDocumentID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// DeleteAll removes every document of kind and returns how many went.
func (r *Records) DeleteAll(ctx context.Context, account string, kind Kind) (int, error) {
	docs, err := r.store.List(ctx, account, kind)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, doc := range docs {
		if err := r.store.Delete(ctx, account, kind, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return n, fmt.Errorf("delete %s %s: %w", kind, doc.ID, err)
		}
		n++
	}
	return n, nil
}
