package mailer

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

var receiptTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ReceiptEmailData feeds the receipt templates. AmountFormatted is the
// display string (e.g. NGN 5,000.00), already localized by the caller.
type ReceiptEmailData struct {
	ReceiptNumber   string
	Reference       string
	FullName        string
	Email           string
	AmountFormatted string
	PaidAt          string
}

func RenderCustomerReceipt(data ReceiptEmailData) (string, error) {
	return renderReceipt("receipt_customer.html", data)
}

func RenderAdminReceipt(data ReceiptEmailData) (string, error) {
	return renderReceipt("receipt_admin.html", data)
}

func renderReceipt(name string, data ReceiptEmailData) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrap(err, "render "+name)
	}
	return buf.String(), nil
}
