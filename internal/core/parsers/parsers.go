// Package parsers holds the regex field extractors for the document
// categories the assistant answers about: donation instructions, event
// announcements and ministry contacts. They are plain pattern matchers
// over already-extracted text.
package parsers

import (
	"regexp"
	"strings"
)

// Category names as they appear on stored documents.
const (
	CategoryDonativo = "donativo"
	CategoryEvento   = "evento"
	CategoryContacto = "contacto"
)

var (
	reBank        = regexp.MustCompile(`(?i)Banco\s*:\s*(.+)`)
	reAccount     = regexp.MustCompile(`(?i)Cuenta\s*:\s*(\d+)`)
	reBeneficiary = regexp.MustCompile(`(?i)Beneficiario\s*:\s*(.+)`)
	reClabe       = regexp.MustCompile(`(?i)CLABE\s*:\s*(\d+)`)
	reContact     = regexp.MustCompile(`(?i)Contacto\s*:\s*(.+)`)
	reContactTel  = regexp.MustCompile(`(?i)Contacto.*?(\+?\d{10,})`)
	reEvent       = regexp.MustCompile(`(?i)Evento\s*:\s*(.+)`)
	reDate        = regexp.MustCompile(`(?i)Fecha\s*:\s*(.+)`)
	rePlace       = regexp.MustCompile(`(?i)Lugar\s*:\s*(.+)`)
	reMinistry    = regexp.MustCompile(`(?i)Ministerio\s*:\s*(.+)`)
)

// ParseDonativo extracts banking fields from a donation document.
func ParseDonativo(text string) map[string]string {
	return map[string]string{
		"bank_name":        extract(reBank, text),
		"account_number":   extract(reAccount, text),
		"beneficiary_name": extract(reBeneficiary, text),
		"clabe_number":     extract(reClabe, text),
		"contact_name":     extract(reContact, text),
		"contact_phone":    extract(reContactTel, text),
	}
}

// ParseEvento extracts name, date and location from an event document.
func ParseEvento(text string) map[string]string {
	return map[string]string{
		"event_name":     extract(reEvent, text),
		"event_date":     extract(reDate, text),
		"event_location": extract(rePlace, text),
	}
}

// ParseContacto extracts ministry contact details.
func ParseContacto(text string) map[string]string {
	return map[string]string{
		"ministry_name": extract(reMinistry, text),
		"contact_name":  extract(reContact, text),
		"contact_phone": extract(reContactTel, text),
	}
}

// FieldsForCategory dispatches to the parser for category; unknown
// categories yield an empty map.
func FieldsForCategory(category, text string) map[string]string {
	switch category {
	case CategoryDonativo:
		return ParseDonativo(text)
	case CategoryEvento:
		return ParseEvento(text)
	case CategoryContacto:
		return ParseContacto(text)
	}
	return map[string]string{}
}

func extract(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
