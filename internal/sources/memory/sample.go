package memory

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// File names used by the sample data set and the default memory URLs.
const (
	OrdersFile   = "cardmarket_orders_data.csv"
	ArticlesFile = "cardmarket_articles_sold.csv"
	ExpensesFile = "monthly_expenses.xlsx"
)

const sampleOrders = `Date of Purchase,Merchandise Value,Shipment Costs,Total Value,Commission,Country
2024-01-05 10:12:00,"12,50","1,25","13,75","0,63",Germany
2024-01-19 18:40:00,"3,10","1,25","4,35","0,16",France
2024-02-02 09:05:00,"45,00","2,50","47,50","2,25",Germany
2024-02-14 21:30:00,"7,80","1,25","9,05","0,39",Italy
2024-03-03 12:00:00,"120,00","6,00","126,00","6,00",Spain
2024-03-21 15:45:00,"19,99","1,25","21,24","1,00",Germany
2024-04-08 11:11:00,"2,40","1,25","3,65","0,12",Austria
`

const sampleArticles = `card_prices,name,set_names,card_rarities
"0,25",Llanowar Elves,Dominaria,Common
"1,10",Counterspell,Dominaria Remastered,Uncommon
"4,80",Thoughtseize,Theros,Rare
"55,00",Ragavan,Modern Horizons 2,Mythic
"0,50",Lightning Bolt,Magic 2010,Common
"12,00",Fable of the Mirror-Breaker,Kamigawa: Neon Dynasty,Rare
`

type sampleExpense struct {
	date     time.Time
	price    float64
	category string
	country  string
	store    string
	desc     string
}

var sampleExpenses = []sampleExpense{
	{time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 89.90, "Sealed", "Germany", "Card Shop Berlin", "Booster box"},
	{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 12.00, "Supplies", "Italy", "Amazon", "Sleeves"},
	{time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC), 150.00, "Singles", "Germany", "CardMarket", "Collection buyout"},
	{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 9.50, "Shipping", "Italy", "Poste", "Envelopes and stamps"},
}

// SampleFiles returns a small self-consistent data set, including a real
// workbook for the expenses export.
func SampleFiles() (map[string][]byte, error) {
	xlsx, err := sampleWorkbook()
	if err != nil {
		return nil, err
	}
	return map[string][]byte{
		OrdersFile:   []byte(sampleOrders),
		ArticlesFile: []byte(sampleArticles),
		ExpensesFile: xlsx,
	}, nil
}

func sampleWorkbook() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	headers := []any{"Order_Date", "Item_Price", "Cost_Category", "Store_Country", "Store_Name", "Description"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, e := range sampleExpenses {
		row := []any{e.date.Format("02/01/2006"), e.price, e.category, e.country, e.store, e.desc}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
