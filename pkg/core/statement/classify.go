package statement

import (
	"errors"
	"strings"
)

// ErrClassification is matched by every *ClassificationError.
var ErrClassification = errors.New("statement classification failed")

// ClassificationError reports which statements could not be located among a
// page's tables.
type ClassificationError struct {
	MissingBalanceSheet bool
	MissingProfitLoss   bool
}

func (e *ClassificationError) Error() string {
	var missing []string
	if e.MissingBalanceSheet {
		missing = append(missing, "Balance Sheet")
	}
	if e.MissingProfitLoss {
		missing = append(missing, "P&L")
	}
	return "could not find " + strings.Join(missing, " or ") + " tables"
}

func (e *ClassificationError) Is(target error) bool {
	return target == ErrClassification
}

// Predicate is a keyword test over a table's cleaned label set. Every group
// must be satisfied; a group is satisfied when any of its labels is present.
type Predicate struct {
	AllOf [][]string
}

// Match evaluates the predicate against a label set.
func (p Predicate) Match(labels map[string]struct{}) bool {
	if len(p.AllOf) == 0 {
		return false
	}
	for _, group := range p.AllOf {
		found := false
		for _, l := range group {
			if _, ok := labels[l]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Rule binds a predicate to a statement kind. When several tables match,
// PreferLast selects the last one instead of the first.
type Rule struct {
	Kind       Kind
	Predicate  Predicate
	PreferLast bool
}

// DefaultRules are evaluated in order and the first matching rule claims a
// table. Pages often surface a summary P&L before the detailed one, hence
// PreferLast on the P&L rule.
var DefaultRules = []Rule{
	{
		Kind: KindBalanceSheet,
		Predicate: Predicate{AllOf: [][]string{
			{"Equity Capital", "Equity Share Capital"},
			{"Borrowings", "Total Liabilities"},
		}},
	},
	{
		Kind: KindProfitLoss,
		Predicate: Predicate{AllOf: [][]string{
			{"Sales", "Revenue"},
			{"Operating Profit"},
		}},
		PreferLast: true,
	},
}

// Classifier locates the statement tables of a page.
type Classifier struct {
	Rules []Rule
}

// NewClassifier returns a classifier using DefaultRules.
func NewClassifier() *Classifier {
	return &Classifier{Rules: DefaultRules}
}

// Verdict returns the kind of the first rule matching labels.
func (c *Classifier) Verdict(labels map[string]struct{}) (Kind, bool) {
	for _, r := range c.Rules {
		if r.Predicate.Match(labels) {
			return r.Kind, true
		}
	}
	return "", false
}

// Select picks the raw table for each kind without normalising it.
func (c *Classifier) Select(tables []RawTable) map[Kind]RawTable {
	preferLast := make(map[Kind]bool, len(c.Rules))
	for _, r := range c.Rules {
		preferLast[r.Kind] = preferLast[r.Kind] || r.PreferLast
	}

	picked := make(map[Kind]RawTable, 2)
	for _, t := range tables {
		if t.dataRows() == 0 {
			continue
		}
		kind, ok := c.Verdict(t.labelSet())
		if !ok {
			continue
		}
		if _, seen := picked[kind]; seen && !preferLast[kind] {
			continue
		}
		picked[kind] = t
	}
	return picked
}

// Classify finds and normalises the Balance Sheet and P&L tables.
func (c *Classifier) Classify(tables []RawTable) (*Statements, error) {
	picked := c.Select(tables)

	bs, hasBS := picked[KindBalanceSheet]
	pl, hasPL := picked[KindProfitLoss]
	if !hasBS || !hasPL {
		return nil, &ClassificationError{
			MissingBalanceSheet: !hasBS,
			MissingProfitLoss:   !hasPL,
		}
	}

	return &Statements{
		BalanceSheet: Normalize(bs, KindBalanceSheet),
		ProfitLoss:   Normalize(pl, KindProfitLoss),
	}, nil
}

// Classify runs the default classifier.
func Classify(tables []RawTable) (*Statements, error) {
	return NewClassifier().Classify(tables)
}
