package transform

import (
	"strings"
)

// MappingFunc builds the records of a star table from a batch.
type MappingFunc func(b *Batch) ([]Record, error)

// StarMapping describes how one star table is derived.
type StarMapping struct {
	Table   string
	Sources []string // the star table is rebuilt when any of these arrive in a batch.
	Map     MappingFunc
}

// StarMappings lists the star tables built by the transformer. dim_date is generated separately.
var StarMappings = []StarMapping{
	{Table: "dim_location", Sources: []string{"address"}, Map: MapDimLocation},
	{Table: "dim_staff", Sources: []string{"staff", "department"}, Map: MapDimStaff},
	{Table: "dim_design", Sources: []string{"design"}, Map: MapDimDesign},
	{Table: "dim_currency", Sources: []string{"currency"}, Map: MapDimCurrency},
	{Table: "dim_counterparty", Sources: []string{"counterparty", "address"}, Map: MapDimCounterparty},
	{Table: "fact_sales_order", Sources: []string{"sales_order"}, Map: MapFactSalesOrder},
}

func MapDimLocation(b *Batch) ([]Record, error) {
	t, err := b.table("address", "address_id", "address_line_1", "address_line_2", "district", "city", "postal_code", "country", "phone")
	if err != nil || t == nil {
		return nil, err
	}
	retval := make([]Record, 0, len(t.Records))
	for _, r := range t.Records {
		retval = append(retval, Record{
			"location_id":    r["address_id"],
			"address_line_1": r["address_line_1"],
			"address_line_2": r["address_line_2"],
			"district":       r["district"],
			"city":           r["city"],
			"postal_code":    r["postal_code"],
			"country":        r["country"],
			"phone":          r["phone"],
		})
	}
	return retval, nil
}

// MapDimStaff joins staff to department.
// Staff are re-emitted when only their department changed.
func MapDimStaff(b *Batch) ([]Record, error) {
	if _, err := b.table("staff", "staff_id", "first_name", "last_name", "department_id", "email_address"); err != nil {
		return nil, err
	}
	if _, err := b.table("department", "department_id", "department_name", "location"); err != nil {
		return nil, err
	}
	staff := b.changedRecords("staff", "department_id", "department")
	retval := make([]Record, 0, len(staff))
	for _, r := range staff {
		d := b.lookup("department", r["department_id"])
		retval = append(retval, Record{
			"staff_id":        r["staff_id"],
			"first_name":      r["first_name"],
			"last_name":       r["last_name"],
			"email_address":   r["email_address"],
			"department_name": d["department_name"],
			"location":        d["location"],
		})
	}
	return retval, nil
}

func MapDimDesign(b *Batch) ([]Record, error) {
	t, err := b.table("design", "design_id", "design_name", "file_location", "file_name")
	if err != nil || t == nil {
		return nil, err
	}
	retval := make([]Record, 0, len(t.Records))
	for _, r := range t.Records {
		retval = append(retval, Record{
			"design_id":     r["design_id"],
			"design_name":   r["design_name"],
			"file_location": r["file_location"],
			"file_name":     r["file_name"],
		})
	}
	return retval, nil
}

func MapDimCurrency(b *Batch) ([]Record, error) {
	t, err := b.table("currency", "currency_id", "currency_code")
	if err != nil || t == nil {
		return nil, err
	}
	retval := make([]Record, 0, len(t.Records))
	for _, r := range t.Records {
		retval = append(retval, Record{
			"currency_id":   r["currency_id"],
			"currency_code": r["currency_code"],
			"currency_name": CurrencyName(r["currency_code"]),
		})
	}
	return retval, nil
}

// MapDimCounterparty joins counterparty to its legal address.
// Counterparties are re-emitted when only their address changed.
func MapDimCounterparty(b *Batch) ([]Record, error) {
	t, err := b.table("counterparty", "counterparty_id", "legal_address_id")
	if err != nil {
		return nil, err
	}
	if t != nil {
		if err = t.Require("counterparty_legal_name"); err != nil && t.Require("name") != nil {
			return nil, err
		}
	}
	if _, err = b.table("address", "address_id", "address_line_1", "address_line_2", "district", "city", "postal_code", "country", "phone"); err != nil {
		return nil, err
	}
	counterparties := b.changedRecords("counterparty", "legal_address_id", "address")
	retval := make([]Record, 0, len(counterparties))
	for _, r := range counterparties {
		a := b.lookup("address", r["legal_address_id"])
		name, ok := r["counterparty_legal_name"]
		if !ok {
			name = r["name"]
		}
		retval = append(retval, Record{
			"counterparty_id":                   r["counterparty_id"],
			"counterparty_legal_name":           name,
			"counterparty_legal_address_line_1": a["address_line_1"],
			"counterparty_legal_address_line_2": a["address_line_2"],
			"counterparty_legal_district":       a["district"],
			"counterparty_legal_city":           a["city"],
			"counterparty_legal_postal_code":    a["postal_code"],
			"counterparty_legal_country":        a["country"],
			"counterparty_legal_phone_number":   a["phone"],
		})
	}
	return retval, nil
}

func MapFactSalesOrder(b *Batch) ([]Record, error) {
	t, err := b.table("sales_order",
		"sales_order_id", "created_at", "last_updated", "design_id", "staff_id", "counterparty_id",
		"units_sold", "unit_price", "currency_id", "agreed_delivery_date", "agreed_payment_date", "agreed_delivery_location_id")
	if err != nil || t == nil {
		return nil, err
	}
	retval := make([]Record, 0, len(t.Records))
	for _, r := range t.Records {
		createdDate, createdTime := SplitTimestamp(r["created_at"])
		updatedDate, updatedTime := SplitTimestamp(r["last_updated"])
		retval = append(retval, Record{
			"sales_record_id":             r["sales_order_id"],
			"sales_order_id":              r["sales_order_id"],
			"created_date":                createdDate,
			"created_time":                createdTime,
			"last_updated_date":           updatedDate,
			"last_updated_time":           updatedTime,
			"sales_staff_id":              r["staff_id"],
			"counterparty_id":             r["counterparty_id"],
			"units_sold":                  r["units_sold"],
			"unit_price":                  r["unit_price"],
			"currency_id":                 r["currency_id"],
			"design_id":                   r["design_id"],
			"agreed_payment_date":         r["agreed_payment_date"],
			"agreed_delivery_date":        r["agreed_delivery_date"],
			"agreed_delivery_location_id": r["agreed_delivery_location_id"],
		})
	}
	return retval, nil
}

// SplitTimestamp splits "2022-11-03 14:20:52.186" into its date and time.
// A value without a time of day gets midnight.
func SplitTimestamp(s string) (date string, clock string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	i := strings.IndexAny(s, " T")
	if i < 0 {
		return s, "00:00:00"
	}
	return s[:i], s[i+1:]
}
