package gemini

import "strings"

const recognizePrompt = `Read every piece of text printed on this business card.
Include the company name, the person's name and job title, phone and fax
numbers, postal address, email address and any other visible text.
Return the complete text exactly as it appears, one item per line.`

func buildClassifyPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Sort the following business card text into fields. ")
	b.WriteString("Answer with a single JSON object and nothing else.\n\n")
	b.WriteString("Card text:\n")
	b.WriteString(text)
	b.WriteString("\n\nUse exactly this shape:\n")
	b.WriteString(`{
  "company": "organization or company name",
  "name": "person name",
  "address": "postal address",
  "phone": "phone numbers",
  "email": "email address",
  "notes": "everything that fits no other field"
}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Use an empty string for any field that is not on the card.\n")
	b.WriteString("2. Put all remaining text, such as job titles or websites, into notes.\n")
	b.WriteString("3. Return valid JSON only.\n")
	return b.String()
}
