package core

// CategoryTotal is an aggregated amount and count for one (kind, category)
// pair.
type CategoryTotal struct {
	Amount Money `json:"amount"`
	Count  int   `json:"count"`
}

// Summary is the full aggregation over a filtered transaction set.
// CategoryBreakdown is keyed "{kind}-{category}"; DivisionBreakdown always
// carries both divisions and counts expense amounts only.
type Summary struct {
	TotalIncome       Money                    `json:"totalIncome"`
	TotalExpense      Money                    `json:"totalExpense"`
	NetBalance        Money                    `json:"netBalance"`
	TransactionCount  int                      `json:"transactionCount"`
	CategoryBreakdown map[string]CategoryTotal `json:"categoryBreakdown"`
	DivisionBreakdown map[Division]Money       `json:"divisionBreakdown"`
}

// NewSummary returns an empty summary with both division keys present, so
// callers always see office and personal even over an empty set.
func NewSummary() Summary {
	return Summary{
		CategoryBreakdown: make(map[string]CategoryTotal),
		DivisionBreakdown: map[Division]Money{Office: {}, Personal: {}},
	}
}

// Summarize reduces a transaction set into totals and breakdowns. All sums
// run in int64 cents, so the result is exact and independent of input order.
func Summarize(txs []Transaction) Summary {
	s := NewSummary()
	for _, t := range txs {
		s.add(t)
	}
	return s
}

func (s *Summary) add(t Transaction) {
	switch t.Kind {
	case Income:
		s.TotalIncome.Cents += t.Amount.Cents
	case Expense:
		s.TotalExpense.Cents += t.Amount.Cents
		d := s.DivisionBreakdown[t.Division]
		d.Cents += t.Amount.Cents
		s.DivisionBreakdown[t.Division] = d
	}
	s.NetBalance.Cents = s.TotalIncome.Cents - s.TotalExpense.Cents
	s.TransactionCount++

	key := string(t.Kind) + "-" + t.Category
	ct := s.CategoryBreakdown[key]
	ct.Amount.Cents += t.Amount.Cents
	ct.Count++
	s.CategoryBreakdown[key] = ct
}

// Add combines another summary into s. Summarizing two disjoint sets and
// adding the results equals summarizing their union.
func (s *Summary) Add(other Summary) {
	s.TotalIncome.Cents += other.TotalIncome.Cents
	s.TotalExpense.Cents += other.TotalExpense.Cents
	s.NetBalance.Cents = s.TotalIncome.Cents - s.TotalExpense.Cents
	s.TransactionCount += other.TransactionCount
	for key, ct := range other.CategoryBreakdown {
		cur := s.CategoryBreakdown[key]
		cur.Amount.Cents += ct.Amount.Cents
		cur.Count += ct.Count
		s.CategoryBreakdown[key] = cur
	}
	for div, amt := range other.DivisionBreakdown {
		cur := s.DivisionBreakdown[div]
		cur.Cents += amt.Cents
		s.DivisionBreakdown[div] = cur
	}
}
