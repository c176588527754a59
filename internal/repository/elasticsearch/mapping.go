package elasticsearch

import "github.com/Uchennem/sleepoutsideServer/internal/domain"

// DefaultIndexName is the default index holding product documents.
const DefaultIndexName = "sleepoutside_products"

// keywordFields are mapped as keyword and compared exactly.
var keywordFields = map[string]bool{
	domain.FieldID:       true,
	domain.FieldCategory: true,
}

// wildcardFields are mapped with the wildcard type so case-insensitive
// substring queries stay cheap.
var wildcardFields = map[string]bool{
	domain.FieldName:        true,
	domain.FieldDescription: true,
}

// buildIndexMapping returns the products index definition. Fields not listed
// are mapped dynamically (strings get a .keyword subfield).
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "dynamic": true,
    "properties": {
      "id":                    { "type": "keyword" },
      "category":              { "type": "keyword" },
      "name":                  { "type": "wildcard" },
      "descriptionHtmlSimple": { "type": "wildcard" },
      "nameWithoutBrand":      { "type": "text" },
      "listPrice":             { "type": "double" },
      "finalPrice":            { "type": "double" },
      "suggestedRetailPrice":  { "type": "double" }
    }
  }
}`
}
