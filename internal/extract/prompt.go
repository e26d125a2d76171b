package extract

import "strings"

// BuildVisionPrompt asks the model to read a receipt or payment-screen image
// and answer with one JSON object.
func BuildVisionPrompt(defaultCurrency string, categories []string) string {
	return "Analyze this image and extract transaction details. It could be a receipt, " +
		"payment confirmation, bank transfer, or any financial transaction.\n\n" +
		instructions(defaultCurrency, categories)
}

// BuildTextPrompt wraps already-extracted or manually entered text in the
// same instruction set as the vision prompt.
func BuildTextPrompt(text, defaultCurrency string, categories []string) string {
	return "Extract transaction details from the following text.\n\n" +
		instructions(defaultCurrency, categories) +
		"\n\nTransaction text:\n" + text
}

// instructions is the shared response contract. The taxonomy is injected so
// category output stays inside the enum.
func instructions(defaultCurrency string, categories []string) string {
	if defaultCurrency == "" {
		defaultCurrency = "SGD"
	}
	var b strings.Builder
	b.WriteString("Return a JSON object with this structure:\n")
	b.WriteString(`{"amount": "numeric amount (e.g. 12.50)", "currency": "currency code (e.g. ` + defaultCurrency + `)", `)
	b.WriteString(`"description": "brief description ONLY if clearly identifiable (null if unclear)", `)
	b.WriteString(`"merchant": "recipient/merchant/store name", "date": "transaction date in ISO format", `)
	b.WriteString(`"category": "one of: ` + strings.Join(categories, ", ") + `", `)
	b.WriteString(`"payment_method": "payment method if visible", "confidence": "score between 0.0 and 1.0"}` + "\n\n")
	b.WriteString("Guidelines:\n")
	b.WriteString("- 'Transfer', 'Send', 'Payment to' means a money transfer, not a purchase; categorize as Others unless clearly a service.\n")
	b.WriteString("- Use the final/total amount when several amounts are visible.\n")
	b.WriteString("- Set description to null when the evidence is generic or unclear.\n")
	b.WriteString("- Use 'Unknown' for the merchant when it cannot be read.\n")
	b.WriteString("- Confidence: 0.8-1.0 clear text and details, 0.5-0.7 partially readable, 0.1-0.4 poor quality or ambiguous.\n")
	b.WriteString("Return only valid JSON without any additional text.")
	return b.String()
}
