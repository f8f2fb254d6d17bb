package ingest

// OrderColumns names the source columns of the orders export.
type OrderColumns struct {
	Date        string
	Merchandise string
	Shipment    string
	Total       string
	Commission  string
	Country     string
}

type ArticleColumns struct {
	Price  string
	Name   string
	Set    string
	Rarity string
}

type ExpenseColumns struct {
	Date        string
	Price       string
	Category    string
	Country     string
	Store       string
	Description string
}

// Schema maps canonical fields to the header names used by the exports.
type Schema struct {
	Orders   OrderColumns
	Articles ArticleColumns
	Expenses ExpenseColumns
}

// DefaultSchema returns the header names CardMarket and the expenses
// workbook use today.
func DefaultSchema() Schema {
	return Schema{
		Orders: OrderColumns{
			Date:        "Date of Purchase",
			Merchandise: "Merchandise Value",
			Shipment:    "Shipment Costs",
			Total:       "Total Value",
			Commission:  "Commission",
			Country:     "Country",
		},
		Articles: ArticleColumns{
			Price:  "card_prices",
			Name:   "name",
			Set:    "set_names",
			Rarity: "card_rarities",
		},
		Expenses: ExpenseColumns{
			Date:        "Order_Date",
			Price:       "Item_Price",
			Category:    "Cost_Category",
			Country:     "Store_Country",
			Store:       "Store_Name",
			Description: "Description",
		},
	}
}
