// Package extract parses structured product records out of vision-model
// responses and collapses duplicates across recognizers and frames.
package extract

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/wangpeng1017/demoocr/internal/models"
)

// DedupedBy names the aggregation key reported alongside deduplicated items.
const DedupedBy = "name+price"

// ParseProducts extracts a product list from a model's textual response.
// Models are asked for a bare JSON array but often wrap it in prose or code
// fences, so the first '[' through the last ']' is taken as the candidate
// array. Invalid or missing fields degrade to empty strings; a response with
// no parseable array yields an empty list, never an error.
func ParseProducts(text string) []models.ProductRecord {
	if text == "" {
		return nil
	}

	candidate := text
	if i := strings.Index(text, "["); i >= 0 {
		if j := strings.LastIndex(text, "]"); j > i {
			candidate = text[i : j+1]
		}
	}

	var raw []map[string]any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil
	}

	records := make([]models.ProductRecord, 0, len(raw))
	for _, obj := range raw {
		records = append(records, models.ProductRecord{
			Name:  stringField(obj, "product_name"),
			Price: stringField(obj, "price"),
		})
	}
	return records
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

// Dedupe collapses duplicate product records, keeping the first occurrence
// of each normalized name|price key and preserving input order.
func Dedupe(items []models.ProductRecord) []models.ProductRecord {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.ProductRecord, 0, len(items))
	for _, it := range items {
		key := dedupeKey(it)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

func dedupeKey(it models.ProductRecord) string {
	return normalizeName(it.Name) + "|" + normalizePrice(it.Price)
}

// normalizeName lowercases, strips punctuation and symbol runes, and
// collapses whitespace runs to a single space. Coarse on purpose: it only
// needs to absorb casing/spacing/punctuation differences between providers.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// normalizePrice strips whitespace and thousands-separator commas. Currency
// symbols and decimal points are kept, so "9,99" and "9.99" stay distinct
// after comma removal ("999" vs "9.99").
func normalizePrice(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ',' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
