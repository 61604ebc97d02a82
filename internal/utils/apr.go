package utils

import (
	"fmt"
	"math"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/shopspring/decimal"
)

const (
	aprMaxIterations = 100
	aprTolerance     = 1e-7
	aprDigits        = 6
)

// AnnuityFactor is r(1+r)^n / ((1+r)^n - 1), the level payment per unit of principal
func AnnuityFactor(rate float64, n int) float64 {
	growth := math.Pow(1+rate, float64(n))
	if math.IsInf(growth, 1) {
		return rate
	}
	return rate * growth / (growth - 1)
}

// MonthlyPayment returns the level payment amortizing principal over n months
func MonthlyPayment(principal, annualRate float64, n int) float64 {
	return principal * AnnuityFactor(annualRate/12, n)
}

// CalculateAPR finds the annual rate that reproduces, on loanAmount alone, the
// payment of loanAmount+originationFee at the nominal rate. The result has six
// fraction digits.
func CalculateAPR(loanAmount float64, termMonths int, annualInterestRate, originationFee float64) (string, error) {
	if loanAmount <= 0 {
		return "", fmt.Errorf("%w: loan amount must be positive, got %v", models.ErrInvalidInput, loanAmount)
	}
	if termMonths <= 0 {
		return "", fmt.Errorf("%w: term must be positive, got %d", models.ErrInvalidInput, termMonths)
	}
	if annualInterestRate <= 0 {
		return "", fmt.Errorf("%w: interest rate must be positive, got %v", models.ErrInvalidInput, annualInterestRate)
	}
	if originationFee < 0 {
		return "", fmt.Errorf("%w: origination fee must not be negative, got %v", models.ErrInvalidInput, originationFee)
	}

	rate := annualInterestRate / 12
	payment := (loanAmount + originationFee) * AnnuityFactor(rate, termMonths)
	target := payment / loanAmount

	// bracket the root: f(lo) <= 0 <= f(hi), doubling hi until the fee is covered
	lo, hi := rate, rate
	for AnnuityFactor(hi, termMonths) < target {
		lo = hi
		hi *= 2
		if math.IsInf(hi, 0) {
			return "", fmt.Errorf("%w: apr out of range", models.ErrInvalidInput)
		}
	}

	var testRate float64
	converged := false
	for i := 0; i < aprMaxIterations; i++ {
		testRate = (lo + hi) / 2
		f := AnnuityFactor(testRate, termMonths) - target
		if math.Abs(f) < aprTolerance {
			converged = true
			break
		}
		if f < 0 {
			lo = testRate
		} else {
			hi = testRate
		}
	}
	if !converged || math.IsNaN(testRate) {
		return "", fmt.Errorf("%w: apr did not converge in %d iterations", models.ErrInvalidInput, aprMaxIterations)
	}

	return decimal.NewFromFloat(testRate * 12).StringFixed(aprDigits), nil
}

// CalculateLoanWeightFactor is loanAmount × interestRate, a size/risk weighting signal
func CalculateLoanWeightFactor(loanAmount, interestRate float64) float64 {
	return loanAmount * interestRate
}

// TotalOriginationFee converts a percentage fee into a currency amount
func TotalOriginationFee(loanAmount, feePercent float64) float64 {
	return loanAmount * (feePercent / 100)
}
