package cdr

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperrors "cdrcli/internal/errors"
)

const (
	// dateTokenLayout is the layout of the first six characters of the token
	dateTokenLayout = "060102"
	// DateCodeLayout formats business dates for report names
	DateCodeLayout = "20060102"
)

// BusinessDate is the calendar day a CDR export describes. Exports are cut
// the day after the calls they contain, so Date is Nominal minus one day.
type BusinessDate struct {
	Token   string
	Nominal time.Time
	Date    time.Time
}

// Code returns the business date as YYYYMMDD
func (b BusinessDate) Code() string {
	return b.Date.Format(DateCodeLayout)
}

// String implements fmt.Stringer
func (b BusinessDate) String() string {
	return b.Date.Format("2006-01-02")
}

// Stem returns the base name of path without its extension
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DateToken returns the trailing '-' delimited token of the file stem
func DateToken(path string) string {
	stem := Stem(path)
	if i := strings.LastIndex(stem, "-"); i >= 0 {
		return stem[i+1:]
	}
	return stem
}

// ResolveBusinessDate derives the business date from an export file name
// such as CDR-25120900.csv (nominal 2025-12-09, business date 2025-12-08).
func ResolveBusinessDate(path string) (BusinessDate, error) {
	token := DateToken(path)
	runes := []rune(token)
	if len(runes) < len(dateTokenLayout) {
		return BusinessDate{}, apperrors.NewDateParseError(token,
			fmt.Errorf("token shorter than %d characters", len(dateTokenLayout)))
	}

	nominal, err := time.ParseInLocation(dateTokenLayout, string(runes[:len(dateTokenLayout)]), time.Local)
	if err != nil {
		return BusinessDate{}, apperrors.NewDateParseError(token, err)
	}

	return BusinessDate{
		Token:   token,
		Nominal: nominal,
		Date:    nominal.AddDate(0, 0, -1),
	}, nil
}
