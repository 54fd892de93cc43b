package configs

import (
	"gorm.io/gorm"

	"github.com/heritageplates/backend/entity"
)

var seedCountries = []entity.Country{
	{Code: "TH", Name: "Thailand", Flag: "🇹🇭", Region: "Southeast Asia", Description: "Balance of sweet, sour, salty and heat.", Featured: true},
	{Code: "JP", Name: "Japan", Flag: "🇯🇵", Region: "East Asia", Description: "Seasonality and umami first.", Featured: true},
	{Code: "MX", Name: "Mexico", Flag: "🇲🇽", Region: "North America", Description: "Corn, chiles and slow-cooked salsas.", Featured: true},
	{Code: "IT", Name: "Italy", Flag: "🇮🇹", Region: "Southern Europe", Description: "Regional pasta, bread and produce."},
	{Code: "IN", Name: "India", Flag: "🇮🇳", Region: "South Asia", Description: "Layered spice blends and breads."},
	{Code: "ET", Name: "Ethiopia", Flag: "🇪🇹", Region: "East Africa", Description: "Injera and berbere-spiced stews."},
	{Code: "LB", Name: "Lebanon", Flag: "🇱🇧", Region: "Middle East", Description: "Mezze, grills and fresh herbs."},
	{Code: "PE", Name: "Peru", Flag: "🇵🇪", Region: "South America", Description: "Ceviche, potatoes and Nikkei fusion."},
}

// SeedLookups inserts order statuses and the starter country list. Idempotent.
func SeedLookups(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, name := range entity.OrderStatusNames {
			if err := tx.FirstOrCreate(&entity.OrderStatus{}, entity.OrderStatus{StatusName: name}).Error; err != nil {
				return err
			}
		}
		for _, c := range seedCountries {
			c := c
			if err := tx.Where(entity.Country{Code: c.Code}).FirstOrCreate(&c).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
