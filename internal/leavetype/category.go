package leavetype

import (
	"strings"

	"go.uber.org/zap"
)

// Category is the balance bucket a leave type charges against.
type Category string

const (
	CategoryAnnual  Category = "annual"
	CategorySick    Category = "sick"
	CategoryCasual  Category = "casual"
	CategoryMedical Category = "medical"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryAnnual, CategorySick, CategoryCasual, CategoryMedical:
		return true
	}
	return false
}

// categoryAliases maps external leave type codes to balance categories.
// Medical charges the sick bucket; the medical category exists only for
// employers that track it separately.
var categoryAliases = map[string]Category{
	"ANNUAL":  CategoryAnnual,
	"AL":      CategoryAnnual,
	"SICK":    CategorySick,
	"SL":      CategorySick,
	"CASUAL":  CategoryCasual,
	"CL":      CategoryCasual,
	"MEDICAL": CategorySick,
	"ML":      CategorySick,
}

// ParseCategory resolves a leave type code to its balance category.
// Unknown codes fall back to casual so approved days are never dropped;
// the fallback is logged because it usually means a misconfigured type.
func ParseCategory(code string, logger *zap.Logger) Category {
	if cat, ok := categoryAliases[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return cat
	}

	if logger != nil {
		logger.Warn("unknown leave type code, defaulting to casual",
			zap.String("code", code),
		)
	}
	return CategoryCasual
}
