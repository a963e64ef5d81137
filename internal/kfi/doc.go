// Package kfi derives the Key Financial Indicators from the wide table.
//
// Every indicator is a pure function of one wide row. Inputs that are absent
// (or zero-filled under the undefined fill policy), zero denominators and
// non-finite results produce the Undefined sentinel rather than an error.
// Defined values are rounded half-to-even to three decimal places as the last
// step.
//
// Intermediates shared across indicators:
//
//	income           = Total income
//	pension_adjust   = Changes to pension provisions + Total changes to pension provisions/ pension adjustments
//	expenditure      = Total expenditure - pension_adjust
//	staff_costs      = Staff costs - pension_adjust
//	staff_fte        = Average staff numbers (FTE) + Total staff numbers (FTE)
//	avg_salary       = Total salaries and wages / staff_fte
//	avg_remuneration = staff_costs / staff_fte
//	basic            = Basic salary paid before salary sacrifice arrangements + Basic salary
package kfi
