package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ashureev/fabric-console/internal/domain"
)

const (
	reorderIDPrefix    = "reorder:"
	maxSuggestions     = 3
	suggestionTitleFmt = "Reorder %s (%s)"
)

var appliedSuggestionPattern = regexp.MustCompile(`^` + regexp.QuoteMeta(domain.SuggestionConfirmPrefix) + `"(.+)"$`)

// reorderSuggestions proposes a reorder for each short item, deduplicated by SKU.
func reorderSuggestions(items []*domain.InventoryItem) []domain.Suggestion {
	var out []domain.Suggestion
	seen := make(map[string]bool)
	for _, item := range items {
		if item == nil || !item.NeedsReorder() || seen[item.SKUCode] {
			continue
		}
		seen[item.SKUCode] = true
		out = append(out, domain.Suggestion{
			ID:    reorderIDPrefix + item.SKUCode,
			Title: fmt.Sprintf(suggestionTitleFmt, item.ProductName, item.SKUCode),
		})
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// inventoryFromResult extracts inventory rows carried by a tool result.
func inventoryFromResult(r ToolResult) []*domain.InventoryItem {
	switch data := r.Data.(type) {
	case *domain.InventoryItem:
		return []*domain.InventoryItem{data}
	case []*domain.InventoryItem:
		return data
	default:
		return nil
	}
}

// appliedSuggestion returns the title inside a suggestion confirmation message.
func appliedSuggestion(content string) (string, bool) {
	m := appliedSuggestionPattern.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// skuFromSuggestionTitle extracts the trailing "(SKU)" of a reorder title.
func skuFromSuggestionTitle(title string) string {
	open := strings.LastIndex(title, "(")
	if open < 0 || !strings.HasSuffix(title, ")") {
		return ""
	}
	return strings.TrimSpace(title[open+1 : len(title)-1])
}
