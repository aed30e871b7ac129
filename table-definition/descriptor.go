package tabledefinition

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relloyd/totes/constants"
)

// TableDescriptor describes one warehouse table and the CSV files that feed it.
type TableDescriptor struct {
	Name      string          `json:"name" errorTxt:"table name" mandatory:"yes"`
	Columns   []string        `json:"columns" errorTxt:"table columns" mandatory:"yes"`
	KeyColumn string          `json:"keyColumn" errorTxt:"table key column" mandatory:"yes"`
	LoadOrder int             `json:"loadOrder"`
	Filter    json.RawMessage `json:"filter,omitempty"` // optional JSON logic applied to transformed rows.
}

// KeyOffset returns the position of KeyColumn in Columns, or -1.
func (d *TableDescriptor) KeyOffset() int {
	for i, c := range d.Columns {
		if c == d.KeyColumn {
			return i
		}
	}
	return -1
}

// FileName returns the name of the CSV file for this table inside a batch.
func (d *TableDescriptor) FileName() string {
	return d.Name + constants.BatchFileExtension
}

// Validate checks that the descriptor is usable for loading.
func (d *TableDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("table descriptor is missing a name")
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("table descriptor %q has no columns", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		if strings.TrimSpace(c) == "" || strings.ContainsRune(c, 0) {
			return fmt.Errorf("table descriptor %q has an invalid column name %q", d.Name, c)
		}
		if _, ok := seen[c]; ok {
			return fmt.Errorf("table descriptor %q has duplicate column %q", d.Name, c)
		}
		seen[c] = struct{}{}
	}
	if d.KeyOffset() < 0 {
		return fmt.Errorf("table descriptor %q key column %q is not one of its columns", d.Name, d.KeyColumn)
	}
	if len(d.Filter) > 0 && !json.Valid(d.Filter) {
		return fmt.Errorf("table descriptor %q has an invalid filter", d.Name)
	}
	return nil
}

// Star schema tables. Dimensions load before the fact table.
var builtInDescriptors = []TableDescriptor{
	{
		Name:      constants.DimDateTable,
		Columns:   []string{"date_id", "year", "month", "day", "day_of_week", "day_name", "month_name", "quarter"},
		KeyColumn: "date_id",
		LoadOrder: 0,
	},
	{
		Name:      "dim_location",
		Columns:   []string{"location_id", "address_line_1", "address_line_2", "district", "city", "postal_code", "country", "phone"},
		KeyColumn: "location_id",
		LoadOrder: 10,
	},
	{
		Name:      "dim_staff",
		Columns:   []string{"staff_id", "first_name", "last_name", "email_address", "department_name", "location"},
		KeyColumn: "staff_id",
		LoadOrder: 10,
	},
	{
		Name:      "dim_design",
		Columns:   []string{"design_id", "design_name", "file_location", "file_name"},
		KeyColumn: "design_id",
		LoadOrder: 10,
	},
	{
		Name:      "dim_currency",
		Columns:   []string{"currency_id", "currency_code", "currency_name"},
		KeyColumn: "currency_id",
		LoadOrder: 10,
	},
	{
		Name: "dim_counterparty",
		Columns: []string{
			"counterparty_id",
			"counterparty_legal_name",
			"counterparty_legal_address_line_1",
			"counterparty_legal_address_line_2",
			"counterparty_legal_district",
			"counterparty_legal_city",
			"counterparty_legal_postal_code",
			"counterparty_legal_country",
			"counterparty_legal_phone_number",
		},
		KeyColumn: "counterparty_id",
		LoadOrder: 10,
	},
	{
		Name: "fact_sales_order",
		Columns: []string{
			"sales_record_id",
			"sales_order_id",
			"created_date",
			"created_time",
			"last_updated_date",
			"last_updated_time",
			"sales_staff_id",
			"counterparty_id",
			"units_sold",
			"unit_price",
			"currency_id",
			"design_id",
			"agreed_payment_date",
			"agreed_delivery_date",
			"agreed_delivery_location_id",
		},
		KeyColumn: "sales_order_id",
		LoadOrder: 100,
	},
}
