// Package mapper translates the heterogeneous product shapes produced by
// historical spreadsheets and snapshot exports into one canonical record.
// All field-name synonym knowledge lives here; every other component assumes
// the mapped schema.
package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/centremart/catalog-service/internal/model"
)

// Raw is a product record of unknown shape, typically decoded from a snapshot
// document or a parsed spreadsheet row.
type Raw map[string]any

// Record is the canonical mapped product shape served by the storefront cache.
type Record struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Price            float64  `json:"price"`
	SP               float64  `json:"sp"`
	MRP              float64  `json:"mrp"`
	Stock            float64  `json:"stock"`
	Category         string   `json:"category"`
	Unit             string   `json:"unit"`
	Margin           float64  `json:"margin"`
	LastPurchaseDate string   `json:"last_purchase_date"`
	LastPurchaseQty  float64  `json:"last_purchase_qty"`
	SalesQty         float64  `json:"sales_qty"`
	SupplierName     string   `json:"supplier_name"`
	InStock          bool     `json:"in_stock"`
	ItemCode         string   `json:"item_code"`
	ImageURL         string   `json:"image_url"`
	ImageURLs        []string `json:"image_urls"`
}

// Ordered candidate keys per canonical field. The first present key wins.
var (
	idKeys           = []string{"id", "ID"}
	itemCodeKeys     = []string{"Item Code", "item_code", "itemCode", "Code", "code"}
	descriptionKeys  = []string{"Description", "description", "name"}
	baseUnitKeys     = []string{"Base Unit", "base_unit", "baseUnit"}
	groupIDKeys      = []string{"Group ID", "group_id", "groupId"}
	groupNameKeys    = []string{"Group Name", "group_name", "groupName", "Category", "category"}
	subGroupKeys     = []string{"Sub Group", "sub_group", "subGroup"}
	supplierKeys     = []string{"Supplier Name", "supplier_name", "supplierName"}
	lastCPKeys       = []string{"Last CP", "last_cp", "lastCp"}
	taxableCPKeys    = []string{"Taxable CP", "taxable_cp", "taxableCp"}
	spKeys           = []string{"SP", "sp", "price"}
	stockKeys        = []string{"Stock", "stock"}
	lastPurcMitiKeys = []string{"Last Purc Miti", "last_purc_miti", "lastPurcMiti"}
	lastPurcQtyKeys  = []string{"Last Purc Qty", "last_purc_qty", "lastPurcQty"}
	salesQtyKeys     = []string{"Sales Qty", "sales_qty", "salesQty"}
	itemNumberKeys   = []string{"#", "item_number", "itemNumber"}
	marginKeys       = []string{"Margin %", "margin_percent", "marginPercent"}
	mrpKeys          = []string{"MRP", "mrp"}

	imageListKeys     = []string{"image_urls", "images", "imageUrls"}
	imageSingularKeys = []string{"image_url", "imageUrl", "image"}
)

// DefaultCategory is assigned when a record carries no group name.
const DefaultCategory = "Uncategorized"

// Map returns the canonical record for a raw product of unknown shape.
// It is total: absent numeric fields default to 0, absent text fields to "",
// and no input shape causes an error.
func Map(raw Raw) Record {
	stock := number(raw, stockKeys)
	primary, all := MergeImages(raw)

	category := text(raw, groupNameKeys)
	if category == "" {
		category = DefaultCategory
	}

	return Record{
		ID:               text(raw, idKeys),
		Name:             text(raw, descriptionKeys),
		Price:            number(raw, spKeys),
		SP:               number(raw, spKeys),
		MRP:              number(raw, mrpKeys),
		Stock:            stock,
		Category:         category,
		Unit:             text(raw, baseUnitKeys),
		Margin:           number(raw, marginKeys),
		LastPurchaseDate: text(raw, lastPurcMitiKeys),
		LastPurchaseQty:  number(raw, lastPurcQtyKeys),
		SalesQty:         number(raw, salesQtyKeys),
		SupplierName:     text(raw, supplierKeys),
		InStock:          stock > 0,
		ItemCode:         text(raw, itemCodeKeys),
		ImageURL:         primary,
		ImageURLs:        all,
	}
}

// MergeImages resolves the image fields from whichever legacy array or
// singular key is present, returning the primary reference and a de-duplicated
// ordered list of all references.
func MergeImages(raw Raw) (primary string, all []string) {
	seen := map[string]struct{}{}
	add := func(url string) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		all = append(all, url)
	}

	for _, key := range imageListKeys {
		if list, ok := raw[key]; ok {
			for _, item := range toStrings(list) {
				add(item)
			}
		}
	}
	for _, key := range imageSingularKeys {
		if v, ok := raw[key]; ok {
			add(asText(v))
		}
	}

	if len(all) > 0 {
		primary = all[0]
	}
	return primary, all
}

// SanitizeRow converts a parsed spreadsheet row (header name -> cell text)
// into canonical product fields. Numeric cells that do not parse become nil so
// a deliberately cleared cell is stored as NULL rather than zero.
func SanitizeRow(row map[string]string) *model.Product {
	get := func(keys []string) string {
		for _, key := range keys {
			if v, ok := row[key]; ok && v != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	num := func(keys []string) *float64 {
		return NumberOrNull(get(keys))
	}

	return &model.Product{
		ItemCode:     get(itemCodeKeys),
		Description:  get(descriptionKeys),
		BaseUnit:     get(baseUnitKeys),
		GroupID:      get(groupIDKeys),
		GroupName:    get(groupNameKeys),
		SubGroup:     get(subGroupKeys),
		SupplierName: get(supplierKeys),
		LastCP:       num(lastCPKeys),
		TaxableCP:    num(taxableCPKeys),
		SP:           num(spKeys),
		Stock:        num(stockKeys),
		LastPurcMiti: get(lastPurcMitiKeys),
		LastPurcQty:  num(lastPurcQtyKeys),
		SalesQty:     num(salesQtyKeys),
		ItemNumber:   get(itemNumberKeys),
		MarginPct:    num(marginKeys),
		MRP:          num(mrpKeys),
	}
}

// ToRaw serializes a canonical store row into the snapshot wire shape:
// spreadsheet-style keys, numeric fields as plain numbers, NULL numerics
// omitted. Map(ToRaw(p)) round-trips to the cache record for p.
func ToRaw(p *model.Product) Raw {
	raw := Raw{
		"id":             p.ID.String(),
		"Item Code":      p.ItemCode,
		"Description":    p.Description,
		"Base Unit":      p.BaseUnit,
		"Group ID":       p.GroupID,
		"Group Name":     p.GroupName,
		"Sub Group":      p.SubGroup,
		"Supplier Name":  p.SupplierName,
		"Last Purc Miti": p.LastPurcMiti,
		"#":              p.ItemNumber,
	}
	setNum := func(key string, v *float64) {
		if v != nil {
			raw[key] = *v
		}
	}
	setNum("Last CP", p.LastCP)
	setNum("Taxable CP", p.TaxableCP)
	setNum("SP", p.SP)
	setNum("Stock", p.Stock)
	setNum("Last Purc Qty", p.LastPurcQty)
	setNum("Sales Qty", p.SalesQty)
	setNum("Margin %", p.MarginPct)
	setNum("MRP", p.MRP)

	if p.ImageURL != nil && *p.ImageURL != "" {
		raw["image_url"] = *p.ImageURL
	}
	if len(p.ImageURLs) > 0 {
		urls := make([]string, len(p.ImageURLs))
		copy(urls, p.ImageURLs)
		raw["image_urls"] = urls
	}
	return raw
}

// NumberOrNull coerces cell text to a number after stripping whitespace and
// thousands separators. Empty or unparseable input yields nil, never an error.
func NumberOrNull(value string) *float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	if cleaned == "" {
		return nil
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

func firstPresent(raw Raw, keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func text(raw Raw, keys []string) string {
	v, ok := firstPresent(raw, keys)
	if !ok {
		return ""
	}
	return asText(v)
}

func number(raw Raw, keys []string) float64 {
	v, ok := firstPresent(raw, keys)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if parsed := NumberOrNull(n); parsed != nil {
			return *parsed
		}
		return 0
	default:
		return 0
	}
}

func asText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, asText(item))
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	default:
		return nil
	}
}
