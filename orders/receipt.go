package orders

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// receiptQRPayload builds the signed tracking payload embedded in the QR:
// orderID|timestamp|signature.
func (h *Handler) receiptQRPayload(orderID string) string {
	timestamp := time.Now().Unix()
	data := fmt.Sprintf("%s|%d", orderID, timestamp)

	mac := hmac.New(sha256.New, h.ReceiptSecret)
	mac.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("%s|%s", data, sig)
}

// Receipt renders an order receipt PDF with a signed tracking QR. Owner or
// admin only.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, ok := h.loadAuthorized(ctx, w, r, ps.ByName("orderid"))
	if !ok {
		return
	}

	qrPNG, err := qrcode.Encode(h.receiptQRPayload(order.OrderID), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	currency := strings.ToUpper(order.Currency)
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Order: %s", order.OrderID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Date: %s", order.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Status: %s", order.Status))
	pdf.Ln(12)

	for _, item := range order.Items {
		line := fmt.Sprintf("%d x %s  -  %.2f %s", item.Quantity, item.Title,
			float64(item.UnitAmount)/100, currency)
		pdf.Cell(0, 8, line)
		pdf.Ln(8)
	}
	if order.Shipping != nil && order.Shipping.Method != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Shipping (%s): %.2f %s", order.Shipping.Method,
			float64(order.Shipping.Cost)/100, currency))
		pdf.Ln(8)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Total: %.2f %s", float64(order.Total)/100, currency))

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+order.OrderID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
