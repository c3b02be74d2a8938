// model/product.go
package model

// Product is one row of the products table. The table is owned by the remote
// store, so we keep the raw row and only lift out the fields this service
// needs. Column names are the Swedish ones the store actually uses, with the
// fallbacks older rows were seen with.
type Product struct {
	ID           string
	Name         string
	TotalQty     int
	AvailableQty int
	Fields       map[string]any
}

func ProductFromRow(row map[string]any) Product {
	return Product{
		ID:           scalarString(firstField(row, "Id", "id")),
		Name:         stringField(row, "Produkt", "Product", "Name"),
		TotalQty:     intField(row, 0, "Totalantal", "TotalAntal", "Total"),
		AvailableQty: intField(row, 0, "Antal tillgängliga", "Antal tillgangliga", "Available", "Quantity"),
		Fields:       row,
	}
}

func firstField(row map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(row map[string]any, keys ...string) string {
	s, _ := firstField(row, keys...).(string)
	return s
}

func intField(row map[string]any, def int, keys ...string) int {
	if n, ok := asInt(firstField(row, keys...)); ok {
		return n
	}
	return def
}
