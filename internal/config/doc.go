// Package config provides configuration loading for the dessert-share pipeline.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later ones winning:
//
//	1. Default() values
//	2. A YAML file (explicit path, else config.yaml or configs/config.yaml)
//	3. Environment variables with the DESSERT_ prefix
//
// # Environment Variables
//
// Nested sections map to underscored names:
//
//	DESSERT_LOGGING_LEVEL=debug
//	DESSERT_PATHS_BASE_DIR=/srv/dessert
//	DESSERT_PIPELINE_TEST_YEAR=2024
//	DESSERT_PIPELINE_CLIP_COLUMNS=growth_rate,dessert_ratio
//	DESSERT_MODEL_COV_TYPE=cluster
//
// # Validation
//
// Struct tags are checked with go-playground/validator; enumerations such as
// model.cov_type (HC1 or cluster) and pipeline.clip_fit_scope (train or all)
// are rejected at load time rather than when a stage first reads them.
//
// # Path Management
//
// Config.ResolvePaths turns the configured directories into absolute paths
// and names every artifact the pipeline writes.
package config
