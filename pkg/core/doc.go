// Package core defines the shared language of the meldbuild system.
//
// This package contains:
//   - Tabular data (Value, DataSet, DataSetRow, DataSetCollection)
//   - Code fragments (CodeBlockInfo, NamedCodeBlock)
//   - Marker audit records (MarkerValue, MarkerChange)
//   - The Document being compiled and the shared name normalisation
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
