// Package amortization resolves the APR that applies to a loan term and
// computes fixed-rate annuity payments.
package amortization

import (
	"math"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/money"
)

// MaxTermMonths bounds standalone loan calculations (50 years).
const MaxTermMonths = 600

// interestEpsilon absorbs floating-point noise in payment*n - principal.
const interestEpsilon = 1e-6

// MonthlyPayment returns the fixed monthly payment for principal borrowed at
// annualRatePct (percent, e.g. 6.9) over termMonths. A zero rate is paid off
// straight-line. Non-finite results, a non-positive principal and a
// non-positive term all yield 0.
func MonthlyPayment(principal, annualRatePct float64, termMonths int) float64 {
	if principal <= 0 || termMonths <= 0 {
		return 0
	}

	n := float64(termMonths)
	i := annualRatePct / 100 / 12

	var payment float64
	if i == 0 {
		payment = principal / n
	} else {
		growth := math.Pow(1+i, n)
		payment = principal * (i * growth) / (growth - 1)
	}

	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return 0
	}
	return payment
}

// TotalInterest is payment*n - principal, floored at 0.
func TotalInterest(payment, principal float64, termMonths int) float64 {
	interest := payment*float64(termMonths) - principal
	if interest < interestEpsilon || math.IsNaN(interest) {
		return 0
	}
	return interest
}

// Summarize computes payment, total paid and total interest for one loan.
func Summarize(principal, annualRatePct float64, termMonths int) domain.LoanSummary {
	payment := MonthlyPayment(principal, annualRatePct, termMonths)
	total := 0.0
	if termMonths > 0 {
		total = payment * float64(termMonths)
	}
	return domain.LoanSummary{
		Principal:      principal,
		RatePct:        annualRatePct,
		TermMonths:     termMonths,
		MonthlyPayment: payment,
		TotalPayments:  total,
		TotalInterest:  TotalInterest(payment, principal, termMonths),
	}
}

// Schedule returns the month-by-month amortization schedule with payments
// rounded to cents. The last installment absorbs the rounding residue so the
// balance ends at exactly zero.
func Schedule(principal, annualRatePct float64, termMonths int) []domain.Installment {
	payment := money.RoundCents(MonthlyPayment(principal, annualRatePct, termMonths))
	if payment <= 0 {
		return []domain.Installment{}
	}

	i := annualRatePct / 100 / 12
	balance := principal
	out := make([]domain.Installment, 0, termMonths)

	for month := 1; month <= termMonths; month++ {
		interest := money.RoundCents(balance * i)
		principalPart := payment - interest
		pay := payment
		if month == termMonths || principalPart > balance {
			principalPart = balance
			pay = money.RoundCents(balance + interest)
		}
		balance = money.RoundCents(balance - principalPart)
		if balance < 0 {
			balance = 0
		}

		out = append(out, domain.Installment{
			Month:     month,
			Payment:   pay,
			Principal: money.RoundCents(principalPart),
			Interest:  interest,
			Balance:   balance,
		})

		if balance == 0 {
			break
		}
	}
	return out
}
