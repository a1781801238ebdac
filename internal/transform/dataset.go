package transform

// LoadStrategy selects how a batch is written to its target table.
type LoadStrategy int

const (
	// Append adds rows without touching existing ones. Datasets with
	// ConflictKeys set upgrade to insert-or-update on those keys.
	Append LoadStrategy = iota
	// Replace swaps the entire table contents for the new batch.
	Replace
)

// FieldKind is the declared semantic type of an upstream field.
type FieldKind int

const (
	// Int is a nullable 64-bit integer; non-numeric upstream values
	// coerce to null (the exchange emits non-numeric sentinels in
	// trade-count fields).
	Int FieldKind = iota
	// Float is a decimal value; unparseable values coerce to null.
	Float
	// String is passed through as text.
	String
	// Date is a business date, parsed tolerantly and stored as
	// YYYY-MM-DD text.
	Date
	// DateTime is a last-updated timestamp in the exchange's
	// YYYY-MM-DDTHH:MM:SS.ffffff format, stored as text, null on
	// parse failure.
	DateTime
)

// Field declares one expected upstream field and its semantic type.
type Field struct {
	Upstream string
	Kind     FieldKind
}

// Dataset describes one upstream dataset end to end: the declared field
// schema, the target table, and the load strategy. The ingestion pipeline is
// parameterized entirely by these descriptors.
//
// Upstream fields not declared here never reach storage. In particular the
// synthetic row identifier "id" the exchange attaches to every record is
// stripped; it carries no meaning in storage.
type Dataset struct {
	Name   string
	Table  string
	Fields []Field

	// DateField is the upstream name of the business-date field used for
	// sort ordering, when the dataset has one.
	DateField string

	// AddCreatedAt appends a created_at column set to the ingestion-run
	// date.
	AddCreatedAt bool

	Strategy LoadStrategy

	// ConflictKeys are storage column names forming the uniqueness key for
	// insert-or-update loads.
	ConflictKeys []string
}

// Columns returns the storage column names in declared order, including
// created_at when the dataset adds one.
func (d *Dataset) Columns() []string {
	cols := make([]string, 0, len(d.Fields)+1)
	for _, f := range d.Fields {
		cols = append(cols, SnakeCase(f.Upstream))
	}
	if d.AddCreatedAt {
		cols = append(cols, "created_at")
	}
	return cols
}

// PriceVolume describes the daily price/volume history dataset.
var PriceVolume = &Dataset{
	Name:  "price_volume",
	Table: "stock_prices",
	Fields: []Field{
		{"securityId", Int},
		{"symbol", String},
		{"securityName", String},
		{"businessDate", Date},
		{"openPrice", Float},
		{"highPrice", Float},
		{"lowPrice", Float},
		{"closePrice", Float},
		{"previousDayClosePrice", Float},
		{"fiftyTwoWeekHigh", Float},
		{"fiftyTwoWeekLow", Float},
		{"totalTradedQuantity", Float},
		{"totalTradedValue", Float},
		{"lastUpdatedTime", DateTime},
		{"lastUpdatedPrice", Float},
		{"totalTrades", Int},
		{"averageTradedPrice", Float},
		{"marketCapitalization", Float},
	},
	DateField:    "businessDate",
	Strategy:     Append,
	ConflictKeys: []string{"security_id", "business_date"},
}

// SectorSummary describes the sector-wise turnover summary dataset.
var SectorSummary = &Dataset{
	Name:  "sector_summary",
	Table: "stock_sector_wise_summary",
	Fields: []Field{
		{"businessDate", Date},
		{"sectorName", String},
		{"totalTransaction", Float},
		{"turnOverValues", Float},
		{"turnOverVolume", Float},
	},
	DateField:    "businessDate",
	AddCreatedAt: true,
	Strategy:     Append,
}

// SymbolSectors describes the symbol-to-sector mapping. The provider returns
// the complete current mapping on each fetch, so the table is replaced, not
// appended.
var SymbolSectors = &Dataset{
	Name:  "symbol_sectors",
	Table: "stock_symbol_sectors",
	Fields: []Field{
		{"symbol", String},
		{"securityName", String},
		{"sectorName", String},
	},
	Strategy: Replace,
}
