package shared

import (
	om "github.com/cevaris/ordered_map"
)

func FixSqlStatementGeneratorConfig(cfg *SqlStatementGeneratorConfig) {
	if cfg.OutputTable == "" {
		cfg.Log.Fatal("Error, missing output table name.")
	}
	if cfg.TargetKeyCols == nil {
		cfg.TargetKeyCols = om.NewOrderedMap()
	}
	if cfg.TargetOtherCols == nil {
		cfg.TargetOtherCols = om.NewOrderedMap()
	}
	if cfg.OutputSchema == "" {
		cfg.Log.Debug("No output schema supplied; table names will be unqualified.")
	}
}
