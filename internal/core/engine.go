package core

// Snapshot is the full set of ledger entities visible to one family at
// the moment of query. It is read-only input: every derivation below is
// a deterministic, side-effect-free function of (snapshot, target date),
// so the same snapshot always yields the same output.
type Snapshot struct {
	Accounts     []Account
	Transactions []Transaction
	Cards        []CreditCard
	Statements   []CardStatement
}

// AccountBalance is an account plus its derived current balance.
type AccountBalance struct {
	Account
	CurrentBalance Money
}

// CardUtilization is a credit card plus its derived limit usage.
// LimitAvailable may go negative when the card is over limit; the value
// is not clamped so callers can surface the overrun.
type CardUtilization struct {
	CreditCard
	LimitUsed      Money
	LimitAvailable Money
}

// DayBalance is one point of the monthly cumulative flow series.
type DayBalance struct {
	Day     int
	Balance Money
}

// StatementPeriod identifies the billing statement a charge belongs to.
type StatementPeriod struct {
	Month int
	Year  int
}

// Overview bundles every derivation for one snapshot and target date.
type Overview struct {
	AccountBalances  []AccountBalance
	AvailableNow     Money
	CardUtilizations []CardUtilization
	ProjectedBalance Money
	DailyCumulative  []DayBalance
}

// Derive computes the full overview, calculating account balances once
// and feeding them into the aggregate and the projection.
func Derive(s Snapshot, target Date) Overview {
	balances := AccountBalances(s)
	available := AvailableNow(balances)
	return Overview{
		AccountBalances:  balances,
		AvailableNow:     available,
		CardUtilizations: CardUtilizations(s),
		ProjectedBalance: ProjectedBalance(s, available, target),
		DailyCumulative:  MonthlyCumulativeBalance(s, target),
	}
}

// AccountBalances derives the current balance of every account: initial
// balance plus the sum of its paid transactions. Pending and reversed
// movements never count. Transactions referencing an unknown account are
// ignored; referential integrity belongs to the storage layer.
func AccountBalances(s Snapshot) []AccountBalance {
	sums := make(map[string]int64, len(s.Accounts))
	for _, t := range s.Transactions {
		if t.AccountID == "" || t.Status != StatusPaid {
			continue
		}
		sums[t.AccountID] += t.Amount.Cents
	}
	out := make([]AccountBalance, len(s.Accounts))
	for i, a := range s.Accounts {
		out[i] = AccountBalance{
			Account:        a,
			CurrentBalance: Money{Cents: a.InitialBalance.Cents + sums[a.ID]},
		}
	}
	return out
}

// AvailableNow sums per-account current balances: money actually sitting
// in accounts right now. Callers should compute AccountBalances once and
// pass the result here rather than recomputing.
func AvailableNow(balances []AccountBalance) Money {
	var total int64
	for _, b := range balances {
		total += b.CurrentBalance.Cents
	}
	return Money{Cents: total}
}

// CardUtilizations derives the outstanding usage of every card. A charge
// counts toward the live limit while it is not reversed and its statement
// (if any) is unpaid: once a statement is paid its charges stop weighing
// on the limit. Charges with no statement yet are treated as outstanding,
// as are charges pointing at a statement missing from the snapshot.
func CardUtilizations(s Snapshot) []CardUtilization {
	stmts := make(map[string]CardStatement, len(s.Statements))
	for _, st := range s.Statements {
		stmts[st.ID] = st
	}
	used := make(map[string]int64, len(s.Cards))
	for _, t := range s.Transactions {
		if t.CardID == "" || t.Status == StatusReversed {
			continue
		}
		if t.StatementID != "" {
			if st, ok := stmts[t.StatementID]; ok && st.Status == StatementPaid {
				continue
			}
		}
		used[t.CardID] += t.Amount.Abs().Cents
	}
	out := make([]CardUtilization, len(s.Cards))
	for i, c := range s.Cards {
		u := used[c.ID]
		out[i] = CardUtilization{
			CreditCard:     c,
			LimitUsed:      Money{Cents: u},
			LimitAvailable: Money{Cents: c.CreditLimit.Cents - u},
		}
	}
	return out
}

// ProjectedBalance answers "if every pending movement through month-end
// clears, what will the balance be": available now plus all pending
// transactions dated on or before the last day of the target month.
func ProjectedBalance(s Snapshot, available Money, target Date) Money {
	horizon := target.EndOfMonth()
	total := available.Cents
	for _, t := range s.Transactions {
		if t.Status != StatusPending {
			continue
		}
		if t.Date.After(horizon.Time) {
			continue
		}
		total += t.Amount.Cents
	}
	return Money{Cents: total}
}

// MonthlyCumulativeBalance builds the daily net-flow series for the
// target month: one entry per calendar day, value = running sum of all
// non-reversed movements (paid and pending) from day 1 through that day.
// The sum starts at zero, so the series shows the shape of the month
// relative to its start, not the absolute account balance.
func MonthlyCumulativeBalance(s Snapshot, target Date) []DayBalance {
	days := target.DaysInMonth()
	flow := make([]int64, days+1)
	for _, t := range s.Transactions {
		if t.Status == StatusReversed {
			continue
		}
		if !t.Date.SameMonth(target) {
			continue
		}
		flow[t.Date.Day()] += t.Amount.Cents
	}
	out := make([]DayBalance, days)
	var running int64
	for day := 1; day <= days; day++ {
		running += flow[day]
		out[day-1] = DayBalance{Day: day, Balance: Money{Cents: running}}
	}
	return out
}

// StatementPeriodFor computes which statement a card charge belongs to
// given the card's closing day: past the closing day the charge rolls
// into the following month, wrapping December into January of the next
// year. This is pure date arithmetic; whether the statement row exists
// yet is irrelevant.
func StatementPeriodFor(date Date, closingDay int) StatementPeriod {
	month := date.Month()
	year := date.Year()
	if date.Day() > closingDay {
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return StatementPeriod{Month: month, Year: year}
}
