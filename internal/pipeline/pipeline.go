package pipeline

// Result is the output of one pipeline run: the dataset itself plus
// advisory state that is surfaced to callers but is not part of the
// Dataset contract.
type Result struct {
	Dataset     *Dataset
	Schema      *ColumnSchema
	Diagnostics []RowDiagnostic
	Warnings    []string
}

// Build runs the full transformation: schema detection, row validation,
// grouping and sorting. It either returns a complete Result or an error
// (SchemaError or DataError); it never returns a partial dataset. Build is
// a pure function of its input and may be re-run freely.
func Build(table Table) (*Result, error) {
	if len(table.Rows) == 0 {
		return nil, &DataError{Reason: "input table has no data rows"}
	}

	schema, err := DetectSchema(table.Headers)
	if err != nil {
		return nil, err
	}

	genes, diags, err := ValidateRows(table, schema)
	if err != nil {
		return nil, err
	}

	sorted := GroupAndSort(genes)

	res := &Result{
		Dataset: &Dataset{
			Genes:           sorted,
			ComparisonNames: schema.ComparisonNames(),
			Segments:        Segments(sorted),
		},
		Schema:      schema,
		Diagnostics: diags,
	}

	if len(schema.PValueColumns) == 0 {
		res.Warnings = append(res.Warnings, "no p-value columns detected; significance markers disabled")
	}
	if schema.CategoryColumn == "" {
		res.Warnings = append(res.Warnings, "no category column detected; all genes grouped under "+UncategorizedLabel)
	}

	return res, nil
}
