package catalog

// Index provides id lookups over supplier and product reference data.
type Index struct {
	suppliers map[int64]Supplier
	products  map[int64]Product
}

// BuildIndex builds lookup maps from reference lists. A duplicate id
// overwrites the earlier entry rather than raising an error.
func BuildIndex(suppliers []Supplier, products []Product) *Index {
	idx := &Index{
		suppliers: make(map[int64]Supplier, len(suppliers)),
		products:  make(map[int64]Product, len(products)),
	}
	for _, s := range suppliers {
		idx.suppliers[s.ID] = s
	}
	for _, p := range products {
		idx.products[p.ID] = p
	}
	return idx
}

// Supplier returns the supplier for id.
func (i *Index) Supplier(id int64) (Supplier, bool) {
	s, ok := i.suppliers[id]
	return s, ok
}

// Product returns the product for id.
func (i *Index) Product(id int64) (Product, bool) {
	p, ok := i.products[id]
	return p, ok
}

// Suppliers returns all indexed suppliers.
func (i *Index) Suppliers() []Supplier {
	out := make([]Supplier, 0, len(i.suppliers))
	for _, s := range i.suppliers {
		out = append(out, s)
	}
	return out
}

// Products returns all indexed products.
func (i *Index) Products() []Product {
	out := make([]Product, 0, len(i.products))
	for _, p := range i.products {
		out = append(out, p)
	}
	return out
}
