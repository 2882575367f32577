package config

// Application constants for the dessert-share pipeline
const (
	// Application Info
	AppName    = "dessertcpi"
	AppVersion = "1.2.0"

	// Environment variable prefix, e.g. DESSERT_MODEL_COV_TYPE
	EnvPrefix = "DESSERT"

	// Config file names searched when no explicit path is given
	DefaultConfigFile = "config.yaml"

	// Default macro workbook names
	DefaultCPIFile      = "소비자물가지수_10년.xlsx"
	DefaultMoMFile      = "월별_소비자물가_등락률_10년.xlsx"
	DefaultExpectedFile = "기대인플레이션율_전국_10년.xlsx"

	// Output artifacts
	MLReadyCSV         = "dessert_ml_ready.csv"
	MacroQuarterlyCSV  = "macro_quarterly.csv"
	ComparisonCSV      = "baseline_vs_full.csv"
	CoefficientsCSV    = "fe_coefficients.csv"
	RollingBaselineCSV = "rolling_cv_baseline.csv"
	RollingFullCSV     = "rolling_cv_full.csv"
	VIFCSV             = "vif_results.csv"
	CorrelationCSV     = "dessert_cpi_correlation.csv"
	MergedQuarterlyCSV = "dessert_cpi_merged_quarterly.csv"
	ModelSuiteCSV      = "model_suite.csv"
	MetricsTextfile    = "dessertcpi.prom"
	TraceFile          = "trace.json"
	LogFile            = "dessertcpi.log"

	// Modeling floors
	DefaultMinFitRows     = 50
	DefaultMinTrainRows   = 10
	DefaultMinTestRows    = 1
	DefaultMinFEValidRows = 10
	DefaultTestYear       = 2024
	DefaultIQRFactor      = 1.5
	DefaultShockWindow    = 4
)
