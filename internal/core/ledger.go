package core

import (
	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryRevenue     EntryKind = "REVENUE"
	EntryMaterial    EntryKind = "MATERIAL"
	EntryProduction  EntryKind = "PRODUCTION"
	EntryLogistics   EntryKind = "LOGISTICS"
	EntryMarketing   EntryKind = "MARKETING"
	EntryHolding     EntryKind = "HOLDING"
	EntryInterest    EntryKind = "INTEREST"
	EntryPenalty     EntryKind = "PENALTY"
	EntryCreditDraw  EntryKind = "CREDIT_DRAW"
	EntryCreditRepay EntryKind = "CREDIT_REPAY"
)

// LedgerEntry records one movement through the cash waterfall and the balances after it.
type LedgerEntry struct {
	Kind        EntryKind       `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	CashAfter   decimal.Decimal `json:"cash_after"`
	CreditAfter decimal.Decimal `json:"credit_after"`
}

// CashLedger applies a week's inflows and outflows against cash with an automatic
// credit line. It never lets cash go negative or credit exceed the limit; any amount
// that cannot be financed is accumulated in Shortfall.
type CashLedger struct {
	cash      decimal.Decimal
	credit    decimal.Decimal
	limit     decimal.Decimal
	shortfall decimal.Decimal
	entries   []LedgerEntry
}

func NewCashLedger(cash, credit, limit decimal.Decimal) *CashLedger {
	return &CashLedger{cash: cash, credit: credit, limit: limit}
}

func (l *CashLedger) Cash() decimal.Decimal      { return l.cash }
func (l *CashLedger) Credit() decimal.Decimal    { return l.credit }
func (l *CashLedger) Shortfall() decimal.Decimal { return l.shortfall }
func (l *CashLedger) Entries() []LedgerEntry     { return l.entries }

// Receive credits an inflow to cash.
func (l *CashLedger) Receive(kind EntryKind, amount decimal.Decimal) {
	amount = amount.Round(2)
	if amount.IsZero() {
		return
	}
	l.cash = l.cash.Add(amount)
	l.record(kind, amount)
}

// Pay debits cash first and draws the remainder on the credit line.
func (l *CashLedger) Pay(kind EntryKind, amount decimal.Decimal) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return
	}
	if l.cash.GreaterThanOrEqual(amount) {
		l.cash = l.cash.Sub(amount)
		l.record(kind, amount)
		return
	}
	remainder := amount.Sub(l.cash)
	l.cash = decimal.Zero
	l.record(kind, amount)

	headroom := l.limit.Sub(l.credit)
	draw := decimal.Min(remainder, headroom)
	if draw.IsPositive() {
		l.credit = l.credit.Add(draw)
		l.record(EntryCreditDraw, draw)
	}
	if remainder.GreaterThan(draw) {
		l.shortfall = l.shortfall.Add(remainder.Sub(draw))
	}
}

// AccrueInterest charges interest on the current credit balance through the waterfall.
func (l *CashLedger) AccrueInterest(weeklyRate decimal.Decimal) decimal.Decimal {
	interest := l.credit.Mul(weeklyRate).Round(2)
	l.Pay(EntryInterest, interest)
	return interest
}

// PayDown repays as much credit as cash allows.
func (l *CashLedger) PayDown() decimal.Decimal {
	repay := decimal.Min(l.cash, l.credit)
	if !repay.IsPositive() {
		return decimal.Zero
	}
	l.cash = l.cash.Sub(repay)
	l.credit = l.credit.Sub(repay)
	l.record(EntryCreditRepay, repay)
	return repay
}

func (l *CashLedger) record(kind EntryKind, amount decimal.Decimal) {
	l.entries = append(l.entries, LedgerEntry{
		Kind:        kind,
		Amount:      amount,
		CashAfter:   l.cash,
		CreditAfter: l.credit,
	})
}
