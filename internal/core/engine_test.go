package core

import (
	"reflect"
	"testing"
)

func snapshotFixture() Snapshot {
	return Snapshot{
		Accounts: []Account{
			{ID: "acc-1", FamilyID: "fam-1", Name: "Conto", Type: AccountChecking, InitialBalance: Money{Cents: 100000}},
		},
		Transactions: []Transaction{
			{ID: "t1", AccountID: "acc-1", Amount: Money{Cents: -20000}, Date: NewDate(2026, 3, 5), Status: StatusPaid},
			{ID: "t2", AccountID: "acc-1", Amount: Money{Cents: 50000}, Date: NewDate(2026, 3, 20), Status: StatusPending},
		},
	}
}

func TestAccountBalances(t *testing.T) {
	s := snapshotFixture()
	balances := AccountBalances(s)
	if len(balances) != 1 {
		t.Fatalf("expected 1 balance, got %d", len(balances))
	}
	// 1000.00 initial - 200.00 paid; the pending 500.00 must not count
	if got := balances[0].CurrentBalance.Cents; got != 80000 {
		t.Fatalf("expected 80000 cents, got %d", got)
	}
}

func TestAccountBalancesIgnoresReversedAndOrphans(t *testing.T) {
	s := snapshotFixture()
	s.Transactions = append(s.Transactions,
		Transaction{ID: "t3", AccountID: "acc-1", Amount: Money{Cents: -9999}, Date: NewDate(2026, 3, 6), Status: StatusReversed},
		Transaction{ID: "t4", AccountID: "acc-ghost", Amount: Money{Cents: -7777}, Date: NewDate(2026, 3, 7), Status: StatusPaid},
	)
	balances := AccountBalances(s)
	if got := balances[0].CurrentBalance.Cents; got != 80000 {
		t.Fatalf("expected 80000 cents, got %d", got)
	}
}

func TestAvailableNow(t *testing.T) {
	s := snapshotFixture()
	s.Accounts = append(s.Accounts, Account{ID: "acc-2", InitialBalance: Money{Cents: -5000}})
	available := AvailableNow(AccountBalances(s))
	if available.Cents != 75000 {
		t.Fatalf("expected 75000 cents, got %d", available.Cents)
	}
}

func TestProjectedBalance(t *testing.T) {
	s := snapshotFixture()
	balances := AccountBalances(s)
	available := AvailableNow(balances)

	// pending +500.00 inside the target month lifts the projection
	got := ProjectedBalance(s, available, NewDate(2026, 3, 1))
	if got.Cents != 130000 {
		t.Fatalf("expected 130000 cents, got %d", got.Cents)
	}

	// a pending movement dated after month-end stays out
	s.Transactions = append(s.Transactions,
		Transaction{ID: "t5", AccountID: "acc-1", Amount: Money{Cents: 100000}, Date: NewDate(2026, 4, 1), Status: StatusPending})
	got = ProjectedBalance(s, available, NewDate(2026, 3, 1))
	if got.Cents != 130000 {
		t.Fatalf("expected 130000 cents with out-of-month pending, got %d", got.Cents)
	}

	// pending on the last day of the month is inside the horizon
	s.Transactions = append(s.Transactions,
		Transaction{ID: "t6", AccountID: "acc-1", Amount: Money{Cents: 1}, Date: NewDate(2026, 3, 31), Status: StatusPending})
	got = ProjectedBalance(s, available, NewDate(2026, 3, 15))
	if got.Cents != 130001 {
		t.Fatalf("expected 130001 cents, got %d", got.Cents)
	}
}

func TestCardUtilizations(t *testing.T) {
	s := Snapshot{
		Cards: []CreditCard{
			{ID: "card-1", Name: "Visa", CreditLimit: Money{Cents: 100000}, ClosingDay: 15, DueDay: 22},
		},
		Statements: []CardStatement{
			{ID: "st-paid", CardID: "card-1", Month: 2, Year: 2026, Status: StatementPaid},
			{ID: "st-open", CardID: "card-1", Month: 3, Year: 2026, Status: StatementOpen},
		},
		Transactions: []Transaction{
			// unfiled charges count at absolute value
			{ID: "c1", CardID: "card-1", Amount: Money{Cents: -30000}, Date: NewDate(2026, 3, 2), Status: StatusPaid},
			{ID: "c2", CardID: "card-1", Amount: Money{Cents: -15000}, Date: NewDate(2026, 3, 3), Status: StatusPending},
			// filed into an unpaid statement: still outstanding
			{ID: "c3", CardID: "card-1", StatementID: "st-open", Amount: Money{Cents: -5000}, Date: NewDate(2026, 3, 4), Status: StatusPaid},
			// filed into a paid statement: released from the limit
			{ID: "c4", CardID: "card-1", StatementID: "st-paid", Amount: Money{Cents: -40000}, Date: NewDate(2026, 2, 1), Status: StatusPaid},
			// reversed: never counts
			{ID: "c5", CardID: "card-1", Amount: Money{Cents: -25000}, Date: NewDate(2026, 3, 5), Status: StatusReversed},
			// statement id pointing nowhere: treated as outstanding
			{ID: "c6", CardID: "card-1", StatementID: "st-ghost", Amount: Money{Cents: -1000}, Date: NewDate(2026, 3, 6), Status: StatusPaid},
		},
	}
	utils := CardUtilizations(s)
	if len(utils) != 1 {
		t.Fatalf("expected 1 utilization, got %d", len(utils))
	}
	if got := utils[0].LimitUsed.Cents; got != 51000 {
		t.Fatalf("expected used 51000 cents, got %d", got)
	}
	if got := utils[0].LimitAvailable.Cents; got != 49000 {
		t.Fatalf("expected available 49000 cents, got %d", got)
	}
}

func TestCardUtilizationOverLimit(t *testing.T) {
	s := Snapshot{
		Cards: []CreditCard{{ID: "card-1", CreditLimit: Money{Cents: 10000}, ClosingDay: 10, DueDay: 20}},
		Transactions: []Transaction{
			{ID: "c1", CardID: "card-1", Amount: Money{Cents: -15000}, Date: NewDate(2026, 3, 2), Status: StatusPaid},
		},
	}
	utils := CardUtilizations(s)
	if got := utils[0].LimitAvailable.Cents; got != -5000 {
		t.Fatalf("expected available -5000 cents (not clamped), got %d", got)
	}
}

func TestMonthlyCumulativeBalance(t *testing.T) {
	target := NewDate(2026, 3, 15)
	s := Snapshot{
		Transactions: []Transaction{
			{ID: "t1", AccountID: "a", Amount: Money{Cents: 10000}, Date: NewDate(2026, 3, 1), Status: StatusPaid},
			{ID: "t2", AccountID: "a", Amount: Money{Cents: -4000}, Date: NewDate(2026, 3, 1), Status: StatusPending},
			{ID: "t3", AccountID: "a", Amount: Money{Cents: -1000}, Date: NewDate(2026, 3, 10), Status: StatusPaid},
			// reversed and out-of-month movements stay out of the series
			{ID: "t4", AccountID: "a", Amount: Money{Cents: -99999}, Date: NewDate(2026, 3, 5), Status: StatusReversed},
			{ID: "t5", AccountID: "a", Amount: Money{Cents: 5000}, Date: NewDate(2026, 2, 28), Status: StatusPaid},
		},
	}
	series := MonthlyCumulativeBalance(s, target)
	if len(series) != 31 {
		t.Fatalf("expected 31 entries for March, got %d", len(series))
	}
	if series[0].Day != 1 || series[0].Balance.Cents != 6000 {
		t.Fatalf("day 1 expected 6000 cents, got %+v", series[0])
	}
	if series[8].Balance.Cents != 6000 {
		t.Fatalf("day 9 expected carried 6000 cents, got %d", series[8].Balance.Cents)
	}
	if series[9].Balance.Cents != 5000 {
		t.Fatalf("day 10 expected 5000 cents, got %d", series[9].Balance.Cents)
	}
	if last := series[30]; last.Day != 31 || last.Balance.Cents != 5000 {
		t.Fatalf("last entry expected day 31 at 5000 cents, got %+v", last)
	}
}

func TestMonthlyCumulativeBalanceEmptyMonth(t *testing.T) {
	series := MonthlyCumulativeBalance(Snapshot{}, NewDate(2028, 2, 1))
	if len(series) != 29 {
		t.Fatalf("expected 29 entries for a leap February, got %d", len(series))
	}
	for _, p := range series {
		if p.Balance.Cents != 0 {
			t.Fatalf("day %d expected zero, got %d", p.Day, p.Balance.Cents)
		}
	}
}

func TestStatementPeriodFor(t *testing.T) {
	cases := []struct {
		date       Date
		closingDay int
		month      int
		year       int
	}{
		{NewDate(2026, 3, 10), 15, 3, 2026}, // before closing: same month
		{NewDate(2026, 3, 15), 15, 3, 2026}, // on closing day: same month
		{NewDate(2026, 3, 20), 15, 4, 2026}, // after closing: next month
		{NewDate(2026, 12, 28), 15, 1, 2027}, // December wraps into next year
		{NewDate(2026, 12, 10), 15, 12, 2026},
	}
	for _, tc := range cases {
		got := StatementPeriodFor(tc.date, tc.closingDay)
		if got.Month != tc.month || got.Year != tc.year {
			t.Fatalf("%s closing %d expected %d/%d, got %d/%d",
				tc.date, tc.closingDay, tc.month, tc.year, got.Month, got.Year)
		}
	}
}

func TestDerive(t *testing.T) {
	s := snapshotFixture()
	s.Cards = []CreditCard{{ID: "card-1", CreditLimit: Money{Cents: 100000}, ClosingDay: 15, DueDay: 22}}
	s.Transactions = append(s.Transactions,
		Transaction{ID: "c1", CardID: "card-1", Amount: Money{Cents: -30000}, Date: NewDate(2026, 3, 2), Status: StatusPaid},
		Transaction{ID: "c2", CardID: "card-1", Amount: Money{Cents: -15000}, Date: NewDate(2026, 3, 3), Status: StatusPending},
	)

	ov := Derive(s, NewDate(2026, 3, 1))
	if ov.AvailableNow.Cents != 80000 {
		t.Fatalf("available expected 80000, got %d", ov.AvailableNow.Cents)
	}
	// projection counts every pending movement, card charges included
	if ov.ProjectedBalance.Cents != 80000+50000-15000 {
		t.Fatalf("projected expected 115000, got %d", ov.ProjectedBalance.Cents)
	}
	if len(ov.CardUtilizations) != 1 || ov.CardUtilizations[0].LimitUsed.Cents != 45000 {
		t.Fatalf("unexpected card utilization %+v", ov.CardUtilizations)
	}
	if len(ov.DailyCumulative) != 31 {
		t.Fatalf("expected 31 daily entries, got %d", len(ov.DailyCumulative))
	}
}

func TestDeriveRepeatable(t *testing.T) {
	s := snapshotFixture()
	s.Cards = []CreditCard{{ID: "card-1", CreditLimit: Money{Cents: 100000}, ClosingDay: 15, DueDay: 22}}
	s.Statements = []CardStatement{{ID: "st-open", CardID: "card-1", Month: 3, Year: 2026, Status: StatementOpen}}
	s.Transactions = append(s.Transactions,
		Transaction{ID: "c1", CardID: "card-1", Amount: Money{Cents: -30000}, Date: NewDate(2026, 3, 2), Status: StatusPaid},
		Transaction{ID: "c2", CardID: "card-1", StatementID: "st-open", Amount: Money{Cents: -15000}, Date: NewDate(2026, 3, 3), Status: StatusPending},
	)

	target := NewDate(2026, 3, 1)
	first := Derive(s, target)
	second := Derive(s, target)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two runs over the same snapshot diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
