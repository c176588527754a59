package domain

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Product document field names used by filters and projections.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldDescription = "descriptionHtmlSimple"
	FieldCategory    = "category"
)

// Document is a product as stored and served: an opaque JSON object that
// read paths filter, project and paginate without interpreting.
type Document map[string]any

// ID returns the document's "id" field, or "" when absent.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// Product is the typed catalog record used on write paths so its
// constraints can be checked before persistence.
type Product struct {
	ID                    string         `json:"id" validate:"required"`
	IsClearance           bool           `json:"isClearance"`
	Category              string         `json:"category" validate:"required"`
	IsNew                 bool           `json:"isNew"`
	URL                   string         `json:"url" validate:"required"`
	Reviews               Reviews        `json:"reviews"`
	NameWithoutBrand      string         `json:"nameWithoutBrand" validate:"required"`
	Name                  string         `json:"name" validate:"required"`
	Images                Images         `json:"images"`
	SizesAvailable        SizesAvailable `json:"sizesAvailable"`
	Colors                []Color        `json:"colors" validate:"dive"`
	DescriptionHtmlSimple string         `json:"descriptionHtmlSimple"`
	SuggestedRetailPrice  float64        `json:"suggestedRetailPrice" validate:"gte=0"`
	Brand                 Brand          `json:"brand"`
	ListPrice             float64        `json:"listPrice" validate:"gte=0"`
	FinalPrice            float64        `json:"finalPrice" validate:"gte=0"`
}

// Reviews summarizes a product's reviews.
type Reviews struct {
	ReviewsURL    string  `json:"reviewsUrl" validate:"required"`
	ReviewCount   float64 `json:"reviewCount" validate:"gte=0"`
	AverageRating float64 `json:"averageRating" validate:"gte=0,lte=5"`
}

// Images holds the product image set.
type Images struct {
	PrimarySmall      string       `json:"primarySmall" validate:"required"`
	PrimaryMedium     string       `json:"primaryMedium" validate:"required"`
	PrimaryLarge      string       `json:"primaryLarge" validate:"required"`
	PrimaryExtraLarge string       `json:"primaryExtraLarge" validate:"required"`
	ExtraImages       []ExtraImage `json:"extraImages" validate:"dive"`
}

// ExtraImage is an additional titled image.
type ExtraImage struct {
	Title string `json:"title" validate:"required"`
	Src   string `json:"src" validate:"required"`
}

// SizesAvailable lists purchasable size options.
type SizesAvailable struct {
	Zipper []string `json:"zipper"`
}

// Color is one color variant.
type Color struct {
	ColorCode            string `json:"colorCode" validate:"required"`
	ColorName            string `json:"colorName" validate:"required"`
	ColorChipImageSrc    string `json:"colorChipImageSrc" validate:"required"`
	ColorPreviewImageSrc string `json:"colorPreviewImageSrc" validate:"required"`
}

// Brand identifies the manufacturer.
type Brand struct {
	ID          string `json:"id" validate:"required"`
	URL         string `json:"url" validate:"required"`
	ProductsURL string `json:"productsUrl" validate:"required"`
	LogoSrc     string `json:"logoSrc" validate:"required"`
	Name        string `json:"name" validate:"required"`
}

// ReviewsPath returns the canonical reviews URL for a product id.
func ReviewsPath(id string) string {
	return "/products/" + id + "/reviews/"
}

// Document converts p to its stored document form.
func (p *Product) Document() (Document, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product %s: %w", p.ID, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal product %s: %w", p.ID, err)
	}
	return doc, nil
}
