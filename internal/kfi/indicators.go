package kfi

import "github.com/mtwest2718/ukhe-finances/internal/aggregate"

var daysPerYear = Defined(365)

// inputs gives indicator expressions access to one wide row plus the
// intermediates several indicators share.
type inputs struct {
	wide *aggregate.WideTable
	row  *aggregate.WideRow

	income          Value
	pensionAdjust   Value
	expenditure     Value
	staffCosts      Value
	staffFTE        Value
	avgSalary       Value
	avgRemuneration Value
	basic           Value
}

func newInputs(wide *aggregate.WideTable, row *aggregate.WideRow) *inputs {
	in := &inputs{wide: wide, row: row}
	in.income = in.col(catTotalIncome)
	in.pensionAdjust = in.either(catPensionChanges, catTotalPensionAdjust)
	in.expenditure = in.col(catTotalExpenditure).Sub(in.pensionAdjust)
	in.staffCosts = in.col(catStaffCosts).Sub(in.pensionAdjust)
	in.staffFTE = in.either(catAvgStaffFTE, catTotalStaffFTE)
	in.avgSalary = in.col(catSalaries).Div(in.staffFTE)
	in.avgRemuneration = in.staffCosts.Div(in.staffFTE)
	in.basic = in.either(catBasicBeforeSacrifice, catBasicSalary)
	return in
}

// col reads a category cell. Absent columns, and filled cells under the
// undefined fill policy, are Undefined.
func (in *inputs) col(category string) Value {
	cell, ok := in.wide.Lookup(in.row, category)
	if !ok || in.wide.Undefined(cell) {
		return Undefined
	}
	return Defined(cell.Value)
}

// either sums two labels a category was published under in different years.
// A year reports one of them, so a missing partner counts as 0. The sum is
// Undefined only when neither is present.
func (in *inputs) either(current, previous string) Value {
	a, b := in.col(current), in.col(previous)
	switch {
	case !a.IsDefined() && !b.IsDefined():
		return Undefined
	case !a.IsDefined():
		return b
	case !b.IsDefined():
		return a
	}
	return a.Add(b)
}

func (in *inputs) perIncome(category string) Value {
	return in.col(category).Div(in.income)
}

func (in *inputs) perExpenditure(category string) Value {
	return in.col(category).Div(in.expenditure)
}

type indicator struct {
	name string
	eval func(in *inputs) Value
}

var indicators = []indicator{
	{"surplus_vs_income", func(in *inputs) Value {
		return in.col(catSurplus).Add(in.pensionAdjust).Div(in.income)
	}},
	{"staff_vs_income", func(in *inputs) Value {
		return in.staffCosts.Div(in.income)
	}},
	{"unrestricted_vs_income", func(in *inputs) Value {
		return in.col(catUnrestrictedReserve).Add(in.col(catRevaluationReserve)).Div(in.income)
	}},
	{"ext_borrow_vs_income", func(in *inputs) Value {
		excluded := in.col(catBankOverdrafts).Add(in.col(catDeferredFees)).Add(in.col(catOtherShort))
		borrow := in.col(catCreditorsShort).Sub(excluded).
			Add(in.col(catCreditorsLong)).Sub(in.col(catOtherLong))
		return borrow.Div(in.income)
	}},
	{"net_assets_vs_expend", func(in *inputs) Value {
		return daysPerYear.Mul(in.col(catNetAssets)).Div(in.expenditure)
	}},
	{"current_assets_vs_liability", func(in *inputs) Value {
		return in.col(catCurrentAssets).Div(in.col(catCreditorsShort))
	}},
	{"ops_cash_vs_income", func(in *inputs) Value {
		return in.perIncome(catOpsCash)
	}},
	{"net_liquidity_days", func(in *inputs) Value {
		liquidity := in.col(catInvestments).Add(in.col(catCash)).Sub(in.col(catBankOverdrafts))
		return daysPerYear.Mul(liquidity).Div(in.expenditure.Sub(in.col(catDepreciation)))
	}},
	{"debt_service_ratio", func(in *inputs) Value {
		financing := in.col(catInterestPaid).Add(in.col(catRepayments)).
			Add(in.col(catLeaseInterest)).Add(in.col(catLeaseCapital))
		return in.col(catOpsCash).Div(financing.Abs())
	}},
	{"avg_salary", func(in *inputs) Value {
		return in.avgSalary
	}},
	{"avg_remuneration", func(in *inputs) Value {
		return in.avgRemuneration
	}},
	{"academic_salary", func(in *inputs) Value {
		return in.col(catAcademicSalaries).Div(in.col(catAcademicFTE))
	}},
	{"ps_staff_salary", func(in *inputs) Value {
		return in.col(catNonAcademicSalaries).Div(in.col(catNonAcademicFTE))
	}},
	{"tuition_fees", func(in *inputs) Value {
		return in.col(catTuitionFees)
	}},
	{"total_fees_vs_income", func(in *inputs) Value {
		return in.perIncome(catTuitionFees)
	}},
	{"uk_vs_total_fees", func(in *inputs) Value {
		return in.col(catHECourseFees).Div(in.col(catUKFees))
	}},
	{"fbg_vs_income", func(in *inputs) Value {
		return in.perIncome(catFundingBodyGrants)
	}},
	{"research_vs_income", func(in *inputs) Value {
		return in.perIncome(catResearch)
	}},
	{"donate_vs_income", func(in *inputs) Value {
		return in.perIncome(catDonations)
	}},
	{"reside_cater_vs_income", func(in *inputs) Value {
		return in.perIncome(catResidences)
	}},
	{"total_income", func(in *inputs) Value {
		return in.income
	}},
	{"finance_vs_expend", func(in *inputs) Value {
		return in.perExpenditure(catFinanceCosts)
	}},
	{"depreciate_amort_vs_expend", func(in *inputs) Value {
		return in.perExpenditure(catDepreciationAmort)
	}},
	{"staff_vs_expend", func(in *inputs) Value {
		return in.staffCosts.Div(in.expenditure)
	}},
	{"capital_vs_expend", func(in *inputs) Value {
		return in.perExpenditure(catCapitalSpend)
	}},
	{"capital_internal_vs_spend", func(in *inputs) Value {
		return in.col(catCapitalInternal).Div(in.col(catCapitalSpend))
	}},
	{"capital_fbg_vs_spend", func(in *inputs) Value {
		return in.col(catCapitalFBG).Div(in.col(catCapitalSpend))
	}},
	{"total_expenditure", func(in *inputs) Value {
		return in.expenditure
	}},
	{"vc_bonus_vs_salary", func(in *inputs) Value {
		return in.col(catBonus).Div(in.basic)
	}},
	{"galt_index_salary", func(in *inputs) Value {
		return in.basic.Div(in.avgSalary)
	}},
	{"galt_index_total", galtIndexTotal},
	// Same quantity under the name the plotting tool reads
	{"vc_avg_remunerate", galtIndexTotal},
}

func galtIndexTotal(in *inputs) Value {
	return in.col(catTotalRemuneration).Div(in.avgRemuneration)
}

// inputCategories is every category read above, for missing-input warnings
var inputCategories = []string{
	catTotalIncome, catTotalExpenditure, catStaffCosts, catSurplus, catDepreciationAmort, catFinanceCosts,
	catNetAssets, catCurrentAssets, catBankOverdrafts, catInvestments, catCreditorsShort, catCash,
	catDeferredFees, catOtherShort, catCreditorsLong, catOtherLong, catUnrestrictedReserve, catRevaluationReserve,
	catOpsCash, catDepreciation, catInterestPaid, catRepayments, catLeaseInterest, catLeaseCapital,
	catTuitionFees, catHECourseFees, catUKFees,
	catResearch, catDonations, catResidences, catFundingBodyGrants,
	catCapitalSpend, catCapitalInternal, catCapitalFBG,
	catBonus, catTotalRemuneration, catBasicBeforeSacrifice, catBasicSalary,
	catAvgStaffFTE, catTotalStaffFTE, catTotalPensionAdjust, catPensionChanges, catSalaries,
	catAcademicSalaries, catNonAcademicSalaries, catAcademicFTE, catNonAcademicFTE,
}
