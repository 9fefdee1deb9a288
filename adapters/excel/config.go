package excel

// Field names a column the reader understands
type Field string

const (
	FieldID       Field = "id"
	FieldDate     Field = "breach_date"
	FieldCause    Field = "cause"
	FieldSector   Field = "sector"
	FieldAffected Field = "records_affected"
	FieldAmount   Field = "total_amount"
)

// ReaderConfig holds configuration for breach table ingestion
type ReaderConfig struct {
	Sheet       string             `json:"sheet"` // empty means the first sheet
	DateLayouts []string           `json:"date_layouts"`
	Columns     map[Field][]string `json:"columns"`
}

// DefaultReaderConfig returns the header aliases and date layouts seen in public breach datasets
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		DateLayouts: []string{"2006-01-02", "01/02/2006", "1/2/2006", "2006/01/02", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"},
		Columns: map[Field][]string{
			FieldID:       {"id", "breach_id", "record_id"},
			FieldDate:     {"breach_date", "date", "date_of_breach", "breach_start"},
			FieldCause:    {"cause", "breach_cause", "type_of_breach", "breach_type"},
			FieldSector:   {"sector", "industry", "organization_type"},
			FieldAffected: {"records_affected", "affected_count", "individuals_affected", "records"},
			FieldAmount:   {"total_amount", "total_cost", "cost", "amount"},
		},
	}
}
