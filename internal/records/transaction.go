package records

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sanctum/internal/storage"
)

// TransactionType separates money in from money out.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Categories lists the valid categories per transaction type.
var Categories = map[TransactionType][]string{
	Expense: {"food", "transport", "utilities", "entertainment", "shopping", "health", "other"},
	Income:  {"salary", "freelance", "investment", "gift", "other"},
}

// Transaction is one finance entry.
type Transaction struct {
	Meta
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

func (t *Transaction) summary() string { return string(t.Type) + " - " + t.Description }

func (t *Transaction) required() error {
	if t.Type == "" || t.Amount == 0 || t.Description == "" {
		return errors.New("type, amount and description are required")
	}
	return nil
}

func (t *Transaction) defaults(now time.Time) {
	if t.Date == "" {
		t.Date = now.Format(DateLayout)
	}
}

func (t *Transaction) normalize() {
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.ToLower(strings.TrimSpace(t.Category))
	if t.Category == "" {
		t.Category = "other"
	}
}

func (t *Transaction) validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Type, validation.Required, validation.In(Income, Expense)),
		validation.Field(&t.Amount, validation.Required, validation.Min(0.0).Exclusive(), validation.By(finite)),
		validation.Field(&t.Description, validation.Required),
		validation.Field(&t.Category, validation.By(t.categoryForType)),
		validation.Field(&t.Date, validation.Required, validation.Date(DateLayout)),
	)
}

func (t *Transaction) categoryForType(value any) error {
	c, _ := value.(string)
	valid, ok := Categories[t.Type]
	if !ok {
		return nil // the type rule reports this
	}
	if !slices.Contains(valid, c) {
		return fmt.Errorf("must be one of %s for %s", strings.Join(valid, ", "), t.Type)
	}
	return nil
}

func finite(value any) error {
	if f, ok := value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return errors.New("must be a finite number")
	}
	return nil
}

// TransactionStore is the finance adapter.
type TransactionStore struct {
	*Repository[Transaction, *Transaction]
}

// Recent returns the n most recently updated transactions.
func (s *TransactionStore) Recent(ctx context.Context, n int) ([]Transaction, error) {
	txs, err := s.List(ctx, storage.DefaultSort)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(txs) > n {
		txs = txs[:n]
	}
	return txs, nil
}

// Stats lists all transactions and reduces them.
func (s *TransactionStore) Stats(ctx context.Context) (FinanceStats, error) {
	txs, err := s.List(ctx, "")
	if err != nil {
		return FinanceStats{}, err
	}
	return SummarizeFinances(txs), nil
}
