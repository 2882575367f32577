package features

import (
	"fmt"

	"dessertcpi/internal/macro"
	"dessertcpi/internal/sales"
)

// Panel feature columns.
const (
	ColSalesAmount  = sales.SalesAmount
	ColTotalSales   = sales.TotalSalesAmount
	ColDessertRatio = "dessert_ratio"
	ColLogSales     = "log_" + sales.SalesAmount
	ColLag1         = "lag1"
	ColLag4         = "lag4"
	ColLag1Ratio    = "lag1_ratio"
	ColLag4Ratio    = "lag4_ratio"
	ColGrowth       = "growth_rate"
	ColMonth        = "month"
	ColMonthSin     = "month_sin"
	ColMonthCos     = "month_cos"
)

// Macro-derived columns.
const (
	ColCPI                   = macro.ColCPI
	ColCPIQoQ                = macro.ColCPIQoQ
	ColCPIYoY                = macro.ColCPIYoY
	ColInflationMoM          = macro.ColInflationMoM
	ColExpectedInflation     = macro.ColExpected
	ColInflationRate         = "inflation_rate"
	ColInflationXLag1Ratio   = "inflation_x_lag1_ratio"
	ColInflationXGrowth      = "inflation_x_growth"
	ColInflationXRatioChange = "inflation_x_ratio_change"
)

// Shock columns.
const (
	ColInflShockMA     = "infl_shock_ma"
	ColInflShockZ      = "infl_shock_z"
	ColInflAccel       = "infl_accel"
	ColExpShockMA      = "exp_shock_ma"
	ColInflShockMALag1 = ColInflShockMA + LagSuffix
	ColInflShockZLag1  = ColInflShockZ + LagSuffix
	ColInflAccelLag1   = ColInflAccel + LagSuffix
	ColExpShockMALag1  = ColExpShockMA + LagSuffix

	LagSuffix = "_lag1"
)

// Target columns.
const (
	ColTarget          = "target"
	ColTargetDelta     = "target_delta_ratio"
	ColTargetDeltaBack = "target_delta_ratio_back"
	ColTargetPctGrowth = "target_pct_growth"
)

// SalesLagName names the lag-k sales column, e.g. lag1.
func SalesLagName(k int) string { return fmt.Sprintf("lag%d", k) }

// RatioLagName names the lag-k dessert ratio column, e.g. lag4_ratio.
func RatioLagName(k int) string { return fmt.Sprintf("lag%d_ratio", k) }

// TargetColumns lists every column derived from the current or future ratio.
var TargetColumns = []string{ColTarget, ColTargetDelta, ColTargetDeltaBack, ColTargetPctGrowth}
