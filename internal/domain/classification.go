package domain

import (
	"strings"
	"time"
)

// CategoryCode is the Salcobrand packaging/handling category of a product.
type CategoryCode string

const (
	CategoryPrimaryContainer CategoryCode = "CosMe"
	CategorySecondaryBoxed   CategoryCode = "CosCa"
	CategorySmallRigid       CategoryCode = "CosPe"
	CategoryFragileBagged    CategoryCode = "DumMa"
	CategoryFlammable        CategoryCode = "InFla"
)

// Categories lists every valid category code in routing order.
var Categories = []CategoryCode{
	CategoryPrimaryContainer,
	CategorySecondaryBoxed,
	CategorySmallRigid,
	CategoryFragileBagged,
	CategoryFlammable,
}

var categoryLabels = map[CategoryCode]string{
	CategoryPrimaryContainer: "Primary container",
	CategorySecondaryBoxed:   "Secondary boxed",
	CategorySmallRigid:       "Small rigid",
	CategoryFragileBagged:    "Fragile bagged",
	CategoryFlammable:        "Flammable/Aerosol",
}

func (c CategoryCode) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

func (c CategoryCode) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategoryCode matches s case-insensitively against the known codes.
func ParseCategoryCode(s string) (CategoryCode, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

type ShrinkageRisk string

const (
	RiskHigh   ShrinkageRisk = "High"
	RiskMedium ShrinkageRisk = "Medium"
	RiskLow    ShrinkageRisk = "Low"
)

// ParseShrinkageRisk accepts the English values and the Spanish ones the
// model sometimes echoes back (Alto/Medio/Bajo).
func ParseShrinkageRisk(s string) (ShrinkageRisk, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "alto", "alta":
		return RiskHigh, true
	case "medium", "medio", "media":
		return RiskMedium, true
	case "low", "bajo", "baja":
		return RiskLow, true
	default:
		return "", false
	}
}

const (
	SecondaryYes = "Yes"
	SecondaryNo  = "No"
)

func ParseSecondaryPackaging(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "sí", "si", "true", "y":
		return SecondaryYes, true
	case "no", "false", "n":
		return SecondaryNo, true
	default:
		return "", false
	}
}

const (
	NoManufacturer   = "N/A"
	DefaultSubmitter = "usuario"
)

// NormalizeManufacturer trims m and substitutes NoManufacturer when empty.
func NormalizeManufacturer(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return NoManufacturer
	}
	return m
}

// Result is what the reasoning service decided for one product.
type Result struct {
	CategoryCode          CategoryCode  `json:"category_code"`
	PackagingType         string        `json:"packaging_type"`
	HasSecondaryPackaging string        `json:"has_secondary_packaging"`
	Reasoning             string        `json:"reasoning"`
	ShrinkageRisk         ShrinkageRisk `json:"shrinkage_risk"`
	WebSourceNote         string        `json:"web_source_note"`
}

// NewRecord is a record before the store assigns id and timestamp.
type NewRecord struct {
	Product      string
	Manufacturer string
	SubmittedBy  string
	Result
}

type ClassificationRecord struct {
	ID           int64  `json:"id"`
	Product      string `json:"product"`
	Manufacturer string `json:"manufacturer"`
	Result
	SubmittedBy  string    `json:"submitted_by"`
	ClassifiedAt time.Time `json:"classified_at"`
}

type CategoryCount struct {
	CategoryCode CategoryCode `json:"category_code"`
	Count        int          `json:"count"`
}
