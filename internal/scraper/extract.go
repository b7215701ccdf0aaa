package scraper

import (
	"fmt"
	"strings"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// contentSelector is the totals block the portal renders last; its presence
// means the receipt data is in the DOM.
const contentSelector = "#totalNota"

// receiptScript pulls the header and totals fields out of the rendered page
// in one round trip. Missing nodes yield empty strings so the shape is
// always complete.
const receiptScript = `(() => {
	const text = (el) => el ? (el.textContent || '') : '';
	const totals = document.querySelectorAll('#totalNota #linhaTotal');
	const result = {};
	result.itemCount = totals.length > 0 ? text(totals[0].querySelector('span')) : '';
	result.totalAmount = totals.length > 1 ? text(totals[1].querySelector('span')) : '';
	result.accessKey = text(document.querySelector('#infos .chave'));
	result.merchantName = text(document.querySelector('.txtCenter #u20'));
	const labeled = document.querySelectorAll('.txtCenter .text');
	result.taxId = labeled.length > 0 ? text(labeled[0]) : '';
	result.address = labeled.length > 1 ? text(labeled[1]) : '';
	return result;
})()`

// lineItemsScript enumerates the product rows. A field is only present in a
// row's map when its node exists, so structural damage is visible to the
// converter as a missing key.
const lineItemsScript = `(() => {
	const rows = document.querySelectorAll("tr[id^='Item +']");
	const items = [];
	rows.forEach((row) => {
		const item = {};
		const cols = row.querySelectorAll('td');
		if (cols.length > 0) {
			const name = cols[0].querySelector('.txtTit');
			if (name) item.description = name.textContent;
			const qty = cols[0].querySelector('.Rqtd');
			if (qty) item.quantity = qty.textContent;
			const unit = cols[0].querySelector('.RUN');
			if (unit) item.unitType = unit.textContent;
			const unitPrice = cols[0].querySelector('.RvlUnit');
			if (unitPrice) item.unitPrice = unitPrice.textContent;
		}
		if (cols.length > 1) {
			const total = cols[1].querySelector('span');
			if (total) item.totalPrice = total.textContent;
		}
		items.push(item);
	});
	return items;
})()`

// rawReceipt mirrors receiptScript's result, all fields still portal text.
type rawReceipt struct {
	ItemCount    string `json:"itemCount"`
	TotalAmount  string `json:"totalAmount"`
	AccessKey    string `json:"accessKey"`
	MerchantName string `json:"merchantName"`
	TaxID        string `json:"taxId"`
	Address      string `json:"address"`
}

// rawLineItem is one row from lineItemsScript. Map form so missing nodes are
// distinguishable from empty text.
type rawLineItem map[string]string

var requiredItemFields = []string{"description", "quantity", "unitType", "unitPrice", "totalPrice"}

// convertLineItem normalizes one raw row. A row missing any field is
// structurally malformed and fails conversion; the caller drops it.
func convertLineItem(raw rawLineItem) (nfce.LineItem, error) {
	for _, field := range requiredItemFields {
		if _, ok := raw[field]; !ok {
			return nfce.LineItem{}, fmt.Errorf("row missing %s", field)
		}
	}
	// Product names may legitimately contain colons; only the labeled
	// fields get the colon reduction.
	return nfce.LineItem{
		Description: strings.TrimSpace(raw["description"]),
		Quantity:    parseAmount(afterColon(raw["quantity"])),
		UnitType:    afterColon(raw["unitType"]),
		UnitPrice:   parseAmount(afterColon(raw["unitPrice"])),
		TotalPrice:  parseAmount(raw["totalPrice"]),
	}, nil
}
