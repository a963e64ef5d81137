package kfi

// Wide-table category names read by the indicators. Trailing spaces are part
// of the published labels.
const (
	catTotalIncome       = "Total income"
	catTotalExpenditure  = "Total expenditure"
	catStaffCosts        = "Staff costs"
	catSurplus           = "Surplus/(deficit) before other gains/losses and share of surplus/(deficit) in joint ventures and associates"
	catDepreciationAmort = "Depreciation and amortisation"
	catFinanceCosts      = "Interest and other finance costs"

	catNetAssets           = "Total net assets/(liabilities)"
	catCurrentAssets       = "Total current assets"
	catBankOverdrafts      = "Bank overdrafts "
	catInvestments         = "Investments "
	catCreditorsShort      = "Total creditors (amounts falling due within one year)"
	catCash                = "Cash and cash equivalents "
	catDeferredFees        = "Deferred course fees"
	catOtherShort          = "Other (including grant claw back)"
	catCreditorsLong       = "Total creditors (amounts falling due after more than one year)"
	catOtherLong           = "Other (including grant claw back) "
	catUnrestrictedReserve = "Income and expenditure reserve - unrestricted "
	catRevaluationReserve  = "Revaluation reserve"

	catOpsCash       = "Net cash inflow from operating activities"
	catDepreciation  = "Depreciation"
	catInterestPaid  = "Interest paid"
	catRepayments    = "Repayments of amounts borrowed"
	catLeaseInterest = "Interest element of finance lease and service concession payments"
	catLeaseCapital  = "Capital element of finance lease and service concession payments"

	catTuitionFees  = "Total tuition fees and education contracts"
	catHECourseFees = "Total HE course fees"
	catUKFees       = "Total UK fees"

	catResearch          = "Total research grants and contracts"
	catDonations         = "Total donations and endowments"
	catResidences        = "Total residences and catering operations (including conferences)"
	catFundingBodyGrants = "Funding body grants"

	catCapitalSpend    = "Total actual spend"
	catCapitalInternal = "Internal funds"
	catCapitalFBG      = "Funding body grants (capital)"

	catBonus                = "Performance related pay and other bonuses"
	catTotalRemuneration    = "Total remuneration (before salary sacrifice)"
	catBasicBeforeSacrifice = "Basic salary paid before salary sacrifice arrangements"
	catBasicSalary          = "Basic salary"

	catAvgStaffFTE         = "Average staff numbers (FTE) as disclosed in accounts"
	catTotalStaffFTE       = "Total staff numbers (FTE) as disclosed in accounts"
	catTotalPensionAdjust  = "Total changes to pension provisions/ pension adjustments"
	catPensionChanges      = "Changes to pension provisions"
	catSalaries            = "Total salaries and wages"
	catAcademicSalaries    = "Salaries and wages academic staff"
	catNonAcademicSalaries = "Salaries and wages non-academic staff"
	catAcademicFTE         = "Average academic staff numbers (FTE)"
	catNonAcademicFTE      = "Average non-academic staff numbers (FTE)"
)
