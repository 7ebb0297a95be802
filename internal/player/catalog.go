package player

import "github.com/slotheather55/webspark-sub000/internal/models"

// Built-in interaction catalogs per page type, used by audits that probe
// a page's tracking without a recorded macro. Text-qualified targets use
// XPath since CSS cannot match on text.
var pageTypeCatalogs = map[string][]models.CatalogInteraction{
	"Product Detail Page": {
		{
			Description: "Add to Cart Button (Main Format)",
			Selector:    `//div[starts-with(@id,"collapse") and contains(@class,"in")]//form[contains(@action,"prhcart.php")]//button[contains(normalize-space(.),"Add to cart")]`,
		},
		{
			Description: "Amazon Retailer Link (Main Format)",
			Selector:    `//div[starts-with(@id,"collapse") and contains(@class,"in")]//*[contains(@class,"affiliate-buttons")]//a[contains(normalize-space(.),"Amazon")]`,
		},
		{
			Description: "Barnes & Noble Retailer Link (Main Format)",
			Selector:    `//div[starts-with(@id,"collapse") and contains(@class,"in")]//*[contains(@class,"affiliate-buttons")]//a[contains(normalize-space(.),"Barnes & Noble")]`,
		},
		{
			Description: "Look Inside Link (PDP)",
			Selector:    `//a[contains(@class,"insight") and contains(normalize-space(.),"Look Inside")]`,
		},
		{
			Description: "Add to Bookshelf (PDP)",
			Selector:    "div.book-shelf-add",
		},
	},
	"List Detail Page": {
		{
			Description: "Add to Cart Button (First Book on List)",
			Selector:    `//ol[contains(@class,"awesome-list")]/li[1]//*[contains(@class,"cart-bttns")]//button[contains(normalize-space(.),"Add to cart")]`,
		},
		{
			Description: "Amazon Retailer Link (First Book on List)",
			Selector:    `//ol[contains(@class,"awesome-list")]/li[1]//div[contains(@class,"buy_clmn") and not(contains(@class,"buy_small"))]//a[contains(normalize-space(.),"Amazon")]`,
		},
		{
			Description: "Barnes & Noble Retailer Link (First Book on List)",
			Selector:    `//ol[contains(@class,"awesome-list")]/li[1]//div[contains(@class,"buy_clmn") and not(contains(@class,"buy_small"))]//a[contains(normalize-space(.),"Barnes & Noble")]`,
		},
		{
			Description: "Add to Bookshelf (First Book on List)",
			Selector:    "ol.awesome-list > li:first-child .book-shelf-add",
		},
	},
	"DEFAULT": {
		{
			Description: "Click Main Logo (Default Fallback)",
			Selector:    "div.logo a > img.condensed-logo-image",
		},
	},
}

// CatalogFor returns the interaction catalog for a page type, falling
// back to the DEFAULT catalog for unknown types.
func CatalogFor(pageType string) []models.CatalogInteraction {
	if interactions, ok := pageTypeCatalogs[pageType]; ok {
		return interactions
	}
	return pageTypeCatalogs["DEFAULT"]
}

// PageTypes lists the known catalog names.
func PageTypes() []string {
	names := make([]string, 0, len(pageTypeCatalogs))
	for name := range pageTypeCatalogs {
		names = append(names, name)
	}
	return names
}
