package calc

import (
	"math"
	"time"

	"github.com/conneroisu/toolshed/internal/errors"
)

func builtins() []*Calculator {
	return []*Calculator{
		{
			ID:          "bmi",
			Name:        "BMI calculator",
			Description: "Body mass index from weight and height.",
			Fields: []Field{
				{Name: "weight_kg", Label: "Weight", Unit: "kg", Min: 1, Max: 500},
				{Name: "height_cm", Label: "Height", Unit: "cm", Min: 30, Max: 300},
			},
			compute: bmi,
		},
		{
			ID:          "percentage-of",
			Name:        "Percentage of a value",
			Description: "What is X percent of Y.",
			Fields: []Field{
				{Name: "percent", Label: "Percent", Unit: "%"},
				{Name: "value", Label: "Value"},
			},
			compute: percentageOf,
		},
		{
			ID:          "percentage-change",
			Name:        "Percentage change",
			Description: "Relative change between two values.",
			Fields: []Field{
				{Name: "from", Label: "From"},
				{Name: "to", Label: "To"},
			},
			compute: percentageChange,
		},
		{
			ID:          "loan",
			Name:        "Loan calculator",
			Description: "Monthly repayment and total interest of an amortised loan.",
			Fields: []Field{
				{Name: "principal", Label: "Loan amount", Min: 1, Max: 1e9},
				{Name: "annual_rate", Label: "Annual interest rate", Unit: "%", Min: 0, Max: 100},
				{Name: "years", Label: "Term", Unit: "years", Min: 1, Max: 50},
			},
			compute: loan,
		},
		{
			ID:          "compound-interest",
			Name:        "Compound interest",
			Description: "Future value of a deposit with compounding.",
			Fields: []Field{
				{Name: "principal", Label: "Deposit", Min: 0, Max: 1e12},
				{Name: "annual_rate", Label: "Annual interest rate", Unit: "%", Min: 0, Max: 100},
				{Name: "years", Label: "Years", Min: 0, Max: 100},
				{Name: "compounds_per_year", Label: "Compounds per year", Min: 1, Max: 365, Default: 12, Optional: true},
			},
			compute: compoundInterest,
		},
		{
			ID:          "tip",
			Name:        "Tip calculator",
			Description: "Tip and per-person share of a bill.",
			Fields: []Field{
				{Name: "bill", Label: "Bill", Min: 0, Max: 1e7},
				{Name: "tip_percent", Label: "Tip", Unit: "%", Min: 0, Max: 100, Default: 15, Optional: true},
				{Name: "people", Label: "People", Min: 1, Max: 100, Default: 1, Optional: true},
			},
			compute: tip,
		},
		{
			ID:          "age",
			Name:        "Age calculator",
			Description: "Age in full years from a date of birth.",
			Fields: []Field{
				{Name: "birth_year", Label: "Birth year", Min: 1800, Max: 9999},
				{Name: "birth_month", Label: "Birth month", Min: 1, Max: 12},
				{Name: "birth_day", Label: "Birth day", Min: 1, Max: 31},
			},
			compute: age,
		},
	}
}

func bmi(e *env, in Inputs) (Result, error) {
	h := in["height_cm"] / 100
	v := round2(in["weight_kg"] / (h * h))

	category := "obese"
	switch {
	case v < 18.5:
		category = "underweight"
	case v < 25:
		category = "normal weight"
	case v < 30:
		category = "overweight"
	}

	return Result{
		Value:   v,
		Unit:    "kg/m²",
		Summary: e.p.Sprintf("BMI %.1f (%s)", v, category),
		Details: []Detail{{Label: "Category", Value: category}},
	}, nil
}

func percentageOf(e *env, in Inputs) (Result, error) {
	v := round2(in["percent"] / 100 * in["value"])
	return Result{
		Value:   v,
		Summary: e.p.Sprintf("%v%% of %v is %v", in["percent"], in["value"], v),
	}, nil
}

func percentageChange(e *env, in Inputs) (Result, error) {
	from, to := in["from"], in["to"]
	if from == 0 {
		return Result{}, errors.Invalid("percentage change from zero is undefined")
	}

	v := round2((to - from) / math.Abs(from) * 100)
	direction := "increase"
	if v < 0 {
		direction = "decrease"
	}
	return Result{
		Value:   v,
		Unit:    "%",
		Summary: e.p.Sprintf("%.2f%% %s", math.Abs(v), direction),
	}, nil
}

func loan(e *env, in Inputs) (Result, error) {
	p := in["principal"]
	n := in["years"] * 12
	r := in["annual_rate"] / 100 / 12

	payment := p / n
	if r > 0 {
		payment = p * r / (1 - math.Pow(1+r, -n))
	}
	total := payment * n

	payment = round2(payment)
	return Result{
		Value:   payment,
		Summary: e.p.Sprintf("Monthly payment %.2f", payment),
		Details: []Detail{
			{Label: "Payments", Value: e.p.Sprintf("%d", int(n))},
			{Label: "Total paid", Value: e.p.Sprintf("%.2f", round2(total))},
			{Label: "Total interest", Value: e.p.Sprintf("%.2f", round2(total-p))},
		},
	}, nil
}

func compoundInterest(e *env, in Inputs) (Result, error) {
	p, t, n := in["principal"], in["years"], in["compounds_per_year"]
	r := in["annual_rate"] / 100

	amount := round2(p * math.Pow(1+r/n, n*t))
	return Result{
		Value:   amount,
		Summary: e.p.Sprintf("Future value %.2f", amount),
		Details: []Detail{
			{Label: "Interest earned", Value: e.p.Sprintf("%.2f", round2(amount-p))},
		},
	}, nil
}

func tip(e *env, in Inputs) (Result, error) {
	bill, people := in["bill"], math.Floor(in["people"])
	t := round2(bill * in["tip_percent"] / 100)
	total := bill + t
	each := round2(total / people)

	return Result{
		Value:   t,
		Summary: e.p.Sprintf("Tip %.2f, total %.2f", t, total),
		Details: []Detail{
			{Label: "Total", Value: e.p.Sprintf("%.2f", round2(total))},
			{Label: "Per person", Value: e.p.Sprintf("%.2f", each)},
		},
	}, nil
}

func age(e *env, in Inputs) (Result, error) {
	y, m, d := int(in["birth_year"]), time.Month(in["birth_month"]), int(in["birth_day"])
	birth := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if birth.Year() != y || birth.Month() != m || birth.Day() != d {
		return Result{}, errors.Invalid("%04d-%02d-%02d is not a valid date", y, m, d)
	}

	now := e.now.UTC()
	if birth.After(now) {
		return Result{}, errors.Invalid("date of birth is in the future")
	}

	years := now.Year() - y
	if now.Month() < m || (now.Month() == m && now.Day() < d) {
		years--
	}
	days := int(now.Sub(birth).Hours() / 24)

	return Result{
		Value:   float64(years),
		Unit:    "years",
		Summary: e.p.Sprintf("%d years old", years),
		Details: []Detail{{Label: "Days lived", Value: e.p.Sprintf("%d", days)}},
	}, nil
}
