// Package format renders amounts, percentages and dates for user-facing
// insight and reminder copy.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

type Formatter struct {
	tag      language.Tag
	printer  *message.Printer
	currency currency.Unit
	symbol   string
}

// New builds a Formatter for a BCP 47 locale and an ISO 4217 currency code.
// An empty symbol falls back to the ISO code.
func New(locale, currencyCode, symbol string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, errors.Wrapf(err, "parse locale %q", locale)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, errors.Wrapf(err, "parse currency %q", currencyCode)
	}
	if strings.TrimSpace(symbol) == "" {
		symbol = unit.String() + " "
	}
	return &Formatter{
		tag:      tag,
		printer:  message.NewPrinter(tag),
		currency: unit,
		symbol:   symbol,
	}, nil
}

// CurrencyCode returns the ISO 4217 code amounts are expressed in.
func (f *Formatter) CurrencyCode() string {
	return f.currency.String()
}

// Money rounds amount to whole currency units and groups digits per locale.
func (f *Formatter) Money(amount decimal.Decimal) string {
	whole := amount.Round(0).IntPart()
	if whole < 0 {
		return "-" + f.symbol + f.printer.Sprintf("%d", -whole)
	}
	return f.symbol + f.printer.Sprintf("%d", whole)
}

// Percent rounds pct to a whole number; increases carry an explicit sign.
func (f *Formatter) Percent(pct decimal.Decimal) string {
	whole := pct.Round(0).IntPart()
	if whole > 0 {
		return "+" + f.printer.Sprintf("%d", whole) + "%"
	}
	return f.printer.Sprintf("%d", whole) + "%"
}

// Day renders a calendar day without the year, e.g. "5 de marzo".
func (f *Formatter) Day(t time.Time) string {
	if base, _ := f.tag.Base(); base.String() == "es" {
		return fmt.Sprintf("%d de %s", t.Day(), spanishMonths[t.Month()-1])
	}
	return t.Format("January 2")
}
