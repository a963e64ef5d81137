package kfi

import (
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtwest2718/ukhe-finances/internal/aggregate"
	"github.com/mtwest2718/ukhe-finances/internal/config"
	"github.com/mtwest2718/ukhe-finances/internal/shared/testutil"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

type cells map[string]float64

func pivot(t *testing.T, fill string, rows map[int64]cells) *aggregate.WideTable {
	t.Helper()
	var records []domain.LongRecord
	for ukprn, cs := range rows {
		for cat, v := range cs {
			records = append(records, domain.LongRecord{
				RowKey:   domain.RowKey{UKPRN: ukprn, Provider: "P", AcademicYear: "2019/20"},
				Category: cat,
				Value:    v,
				TableID:  1,
			})
		}
	}
	wide, err := aggregate.New(fill, nil).Pivot(records)
	require.NoError(t, err)
	return wide
}

func valueOf(t *testing.T, table *Table, row int, column string) Value {
	t.Helper()
	for i, c := range table.Columns {
		if c == column {
			return table.Rows[row].Values[i]
		}
	}
	t.Fatalf("no column %s", column)
	return Undefined
}

func assertValue(t *testing.T, want float64, got Value) {
	t.Helper()
	v, ok := got.Float()
	require.True(t, ok, "expected defined value %v", want)
	assert.InDelta(t, want, v, 1e-9)
}

func TestColumns(t *testing.T) {
	cols := Columns()
	assert.Len(t, cols, 32)
	assert.Equal(t, "surplus_vs_income", cols[0])
	assert.Equal(t, "staff_vs_income", cols[1])
	assert.Equal(t, "vc_avg_remunerate", cols[len(cols)-1])

	seen := make(map[string]bool)
	for _, c := range cols {
		assert.False(t, seen[c], "duplicate column %s", c)
		seen[c] = true
	}
}

func TestCompute_StaffVsIncome(t *testing.T) {
	wide := pivot(t, config.FillZero, map[int64]cells{
		10: {
			catTotalIncome:        1000,
			catStaffCosts:         400,
			catPensionChanges:     0,
			catTotalPensionAdjust: 0,
		},
	})

	table := New(Options{}, nil).Compute(wide)
	require.Len(t, table.Rows, 1)
	assertValue(t, 0.4, valueOf(t, table, 0, "staff_vs_income"))
	assertValue(t, 1000, valueOf(t, table, 0, "total_income"))
	assert.False(t, table.HasPeerGroup())
}

func TestCompute_PensionAdjustment(t *testing.T) {
	wide := pivot(t, config.FillZero, map[int64]cells{
		10: {
			catTotalIncome:        1000,
			catTotalExpenditure:   900,
			catStaffCosts:         500,
			catSurplus:            100,
			catPensionChanges:     60,
			catTotalPensionAdjust: 40,
			catFinanceCosts:       16,
		},
	})

	table := New(Options{}, nil).Compute(wide)
	// pension_adjust = 100, expenditure = 800, staff_costs = 400
	assertValue(t, 0.2, valueOf(t, table, 0, "surplus_vs_income"))
	assertValue(t, 0.4, valueOf(t, table, 0, "staff_vs_income"))
	assertValue(t, 800, valueOf(t, table, 0, "total_expenditure"))
	assertValue(t, 0.5, valueOf(t, table, 0, "staff_vs_expend"))
	assertValue(t, 0.02, valueOf(t, table, 0, "finance_vs_expend"))
}

func TestCompute_BalanceSheetAndCash(t *testing.T) {
	wide := pivot(t, config.FillZero, map[int64]cells{
		10: {
			catTotalIncome:         1000,
			catTotalExpenditure:    730,
			catNetAssets:           200,
			catCurrentAssets:       300,
			catCreditorsShort:      150,
			catBankOverdrafts:      10,
			catDeferredFees:        20,
			catOtherShort:          30,
			catCreditorsLong:       100,
			catOtherLong:           40,
			catInvestments:         50,
			catCash:                60,
			catDepreciation:        0,
			catOpsCash:             90,
			catInterestPaid:        -10,
			catRepayments:          -20,
			catLeaseInterest:       -5,
			catLeaseCapital:        -10,
			catUnrestrictedReserve: 250,
			catRevaluationReserve:  50,
			catPensionChanges:      0,
			catTotalPensionAdjust:  0,
		},
	})

	table := New(Options{}, nil).Compute(wide)
	assertValue(t, 0.3, valueOf(t, table, 0, "unrestricted_vs_income"))
	// 150 - (10+20+30) + 100 - 40 = 150
	assertValue(t, 0.15, valueOf(t, table, 0, "ext_borrow_vs_income"))
	assertValue(t, 100, valueOf(t, table, 0, "net_assets_vs_expend"))
	assertValue(t, 2, valueOf(t, table, 0, "current_assets_vs_liability"))
	assertValue(t, 0.09, valueOf(t, table, 0, "ops_cash_vs_income"))
	// 365 * (50 + 60 - 10) / 730
	assertValue(t, 50, valueOf(t, table, 0, "net_liquidity_days"))
	// financing is negative; the ratio uses its magnitude
	assertValue(t, 2, valueOf(t, table, 0, "debt_service_ratio"))
}

func TestCompute_StaffAndHeadOfProvider(t *testing.T) {
	wide := pivot(t, config.FillZero, map[int64]cells{
		10: {
			catStaffCosts:           1200,
			catAvgStaffFTE:          20,
			catTotalStaffFTE:        0,
			catSalaries:             1000,
			catAcademicSalaries:     600,
			catAcademicFTE:          10,
			catNonAcademicSalaries:  400,
			catNonAcademicFTE:       10,
			catBasicBeforeSacrifice: 0,
			catBasicSalary:          250,
			catBonus:                25,
			catTotalRemuneration:    300,
			catPensionChanges:       0,
			catTotalPensionAdjust:   0,
		},
	})

	table := New(Options{}, nil).Compute(wide)
	assertValue(t, 50, valueOf(t, table, 0, "avg_salary"))
	assertValue(t, 60, valueOf(t, table, 0, "avg_remuneration"))
	assertValue(t, 60, valueOf(t, table, 0, "academic_salary"))
	assertValue(t, 40, valueOf(t, table, 0, "ps_staff_salary"))
	assertValue(t, 0.1, valueOf(t, table, 0, "vc_bonus_vs_salary"))
	assertValue(t, 5, valueOf(t, table, 0, "galt_index_salary"))
	assertValue(t, 5, valueOf(t, table, 0, "galt_index_total"))
	assert.Equal(t, valueOf(t, table, 0, "galt_index_total"), valueOf(t, table, 0, "vc_avg_remunerate"))
}

func TestCompute_IncomeMixAndCapital(t *testing.T) {
	wide := pivot(t, config.FillZero, map[int64]cells{
		10: {
			catTotalIncome:        2000,
			catTotalExpenditure:   1000,
			catTuitionFees:        800,
			catHECourseFees:       300,
			catUKFees:             600,
			catFundingBodyGrants:  200,
			catResearch:           400,
			catDonations:          20,
			catResidences:         100,
			catCapitalSpend:       250,
			catCapitalInternal:    100,
			catCapitalFBG:         50,
			catDepreciationAmort:  70,
			catPensionChanges:     0,
			catTotalPensionAdjust: 0,
		},
	})

	table := New(Options{}, nil).Compute(wide)
	assertValue(t, 800, valueOf(t, table, 0, "tuition_fees"))
	assertValue(t, 0.4, valueOf(t, table, 0, "total_fees_vs_income"))
	assertValue(t, 0.5, valueOf(t, table, 0, "uk_vs_total_fees"))
	assertValue(t, 0.1, valueOf(t, table, 0, "fbg_vs_income"))
	assertValue(t, 0.2, valueOf(t, table, 0, "research_vs_income"))
	assertValue(t, 0.01, valueOf(t, table, 0, "donate_vs_income"))
	assertValue(t, 0.05, valueOf(t, table, 0, "reside_cater_vs_income"))
	assertValue(t, 0.25, valueOf(t, table, 0, "capital_vs_expend"))
	assertValue(t, 0.4, valueOf(t, table, 0, "capital_internal_vs_spend"))
	assertValue(t, 0.2, valueOf(t, table, 0, "capital_fbg_vs_spend"))
	assertValue(t, 0.07, valueOf(t, table, 0, "depreciate_amort_vs_expend"))
}

func TestCompute_Undefined(t *testing.T) {
	t.Run("zero denominator", func(t *testing.T) {
		wide := pivot(t, config.FillZero, map[int64]cells{
			10: {catTotalIncome: 0, catStaffCosts: 400},
		})
		table := New(Options{}, nil).Compute(wide)
		assert.False(t, valueOf(t, table, 0, "staff_vs_income").IsDefined())
		assertValue(t, 0, valueOf(t, table, 0, "total_income"))
	})

	t.Run("absent category column", func(t *testing.T) {
		wide := pivot(t, config.FillZero, map[int64]cells{
			10: {catTotalIncome: 1000},
		})
		table := New(Options{}, nil).Compute(wide)
		assert.False(t, valueOf(t, table, 0, "staff_vs_income").IsDefined())
		assert.False(t, valueOf(t, table, 0, "research_vs_income").IsDefined())
		counts := table.UndefinedCounts()
		assert.Equal(t, 1, counts["staff_vs_income"])
		assert.Zero(t, counts["total_income"])
	})

	t.Run("filled cell under undefined policy", func(t *testing.T) {
		rows := map[int64]cells{
			10: {catTotalIncome: 1000, catStaffCosts: 400, catPensionChanges: 0, catTotalPensionAdjust: 0},
			20: {catTotalIncome: 1000, catPensionChanges: 0, catTotalPensionAdjust: 0},
		}

		zero := New(Options{}, nil).Compute(pivot(t, config.FillZero, rows))
		assertValue(t, 0, valueOf(t, zero, 1, "staff_vs_income"))

		undef := New(Options{}, nil).Compute(pivot(t, config.FillUndefined, rows))
		assertValue(t, 0.4, valueOf(t, undef, 0, "staff_vs_income"))
		assert.False(t, valueOf(t, undef, 1, "staff_vs_income").IsDefined())
	})

	t.Run("overflow", func(t *testing.T) {
		wide := pivot(t, config.FillZero, map[int64]cells{
			10: {catNetAssets: math.MaxFloat64, catTotalExpenditure: 1, catPensionChanges: 0, catTotalPensionAdjust: 0},
		})
		table := New(Options{}, nil).Compute(wide)
		assert.False(t, valueOf(t, table, 0, "net_assets_vs_expend").IsDefined())
	})
}

func TestCompute_RelabelledCategories(t *testing.T) {
	tests := []struct {
		name string
		fill string
	}{
		{"zero fill", config.FillZero},
		{"undefined fill", config.FillUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// each institution reports only one label of each pair
			wide := pivot(t, tt.fill, map[int64]cells{
				10: {
					catTotalIncome:          1000,
					catTotalExpenditure:     900,
					catStaffCosts:           500,
					catSalaries:             400,
					catPensionChanges:       100,
					catAvgStaffFTE:          10,
					catBasicBeforeSacrifice: 200,
					catTotalRemuneration:    300,
				},
				11: {
					catTotalIncome:        1000,
					catTotalExpenditure:   900,
					catStaffCosts:         500,
					catSalaries:           400,
					catTotalPensionAdjust: 100,
					catTotalStaffFTE:      10,
					catBasicSalary:        200,
					catTotalRemuneration:  300,
				},
			})

			table := New(Options{}, nil).Compute(wide)
			require.Len(t, table.Rows, 2)
			for row := range table.Rows {
				assertValue(t, 0.4, valueOf(t, table, row, "staff_vs_income"))
				assertValue(t, 800, valueOf(t, table, row, "total_expenditure"))
				assertValue(t, 0.5, valueOf(t, table, row, "staff_vs_expend"))
				assertValue(t, 40, valueOf(t, table, row, "avg_salary"))
				assertValue(t, 40, valueOf(t, table, row, "avg_remuneration"))
				assertValue(t, 5, valueOf(t, table, row, "galt_index_salary"))
			}
		})
	}

	t.Run("both labels missing", func(t *testing.T) {
		wide := pivot(t, config.FillUndefined, map[int64]cells{
			10: {catTotalIncome: 1000, catStaffCosts: 400, catPensionChanges: 0},
			11: {catTotalIncome: 1000, catStaffCosts: 400},
		})
		table := New(Options{}, nil).Compute(wide)
		assertValue(t, 0.4, valueOf(t, table, 0, "staff_vs_income"))
		assert.False(t, valueOf(t, table, 1, "staff_vs_income").IsDefined())
	})
}

func TestCompute_Rounding(t *testing.T) {
	wide := pivot(t, config.FillZero, map[int64]cells{
		10: {catTotalIncome: 3, catStaffCosts: 1, catResearch: 2, catPensionChanges: 0, catTotalPensionAdjust: 0},
	})
	table := New(Options{}, nil).Compute(wide)
	v, _ := valueOf(t, table, 0, "staff_vs_income").Float()
	assert.Equal(t, 0.333, v)
	v, _ = valueOf(t, table, 0, "research_vs_income").Float()
	assert.Equal(t, 0.667, v)

	coarse := New(Options{Places: 1}, nil).Compute(wide)
	v, _ = valueOf(t, coarse, 0, "staff_vs_income").Float()
	assert.Equal(t, 0.3, v)
}

func TestCompute_PeerGroup(t *testing.T) {
	wide := pivot(t, config.FillZero, map[int64]cells{
		10: {catTotalIncome: 1},
		20: {catTotalIncome: 2},
	})
	table := New(Options{PeerGroup: []int64{20}, PeerGroupColumn: "russell group filter"}, nil).Compute(wide)

	require.True(t, table.HasPeerGroup())
	assert.Equal(t, "russell group filter", table.PeerGroupColumn)
	assert.False(t, table.Rows[0].PeerGroup)
	assert.True(t, table.Rows[1].PeerGroup)
}

func TestValue(t *testing.T) {
	assert.False(t, Defined(math.NaN()).IsDefined())
	assert.False(t, Defined(math.Inf(1)).IsDefined())
	assert.False(t, Defined(1).Div(Defined(0)).IsDefined())
	assert.False(t, Undefined.Add(Defined(1)).IsDefined())
	assert.False(t, Defined(1).Mul(Undefined).IsDefined())
	assert.False(t, Undefined.Abs().IsDefined())
	assert.False(t, Undefined.Round(3).IsDefined())

	assertValue(t, 3, Defined(-3).Abs())
	assertValue(t, -1, Defined(1).Sub(Defined(2)))

	tests := []struct {
		in   Value
		want string
	}{
		{Defined(0.4), "0.4"},
		{Defined(-123), "-123"},
		{Defined(1000), "1000"},
		{Defined(0.0015).Round(3), "0.002"},
		{Defined(0.0025).Round(3), "0.002"},
		{Defined(-0.0001).Round(3), "0"},
		{Undefined, "undefined"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Format("undefined"))
	}
}

func TestCompute_WarnsOnMissingInputs(t *testing.T) {
	wide := pivot(t, config.FillZero, map[int64]cells{
		10: {catTotalIncome: 1000, catStaffCosts: 400},
	})

	logger, logs := testutil.NewTestLogger(t)
	New(Options{}, logger).Compute(wide)

	testutil.AssertLogContains(t, logs, slog.LevelWarn, "absent from wide table")
	testutil.AssertLogAttr(t, logs, "category", catPensionChanges)
	assert.False(t, logs.ContainsAttr("category", catTotalIncome))
	testutil.AssertLogAttr(t, logs, "component", "kfi")
}
