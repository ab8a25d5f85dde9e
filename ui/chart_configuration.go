package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tarkah/tickrs/models"
)

type kagiField int

const (
	fieldReversalKind kagiField = iota
	fieldReversalValue
	fieldPriceType
	kagiFieldCount
)

const maxReversalInput = 20

// kagiForm is the chart configuration input for the selected tab's Kagi options.
type kagiForm struct {
	field     kagiField
	kind      models.ReversalKind
	value     string
	priceType models.PriceType
}

func newKagiForm(options models.KagiOptions) kagiForm {
	return kagiForm{
		field:     fieldReversalKind,
		kind:      options.ReversalKind,
		value:     strconv.FormatFloat(options.ReversalValue, 'f', -1, 64),
		priceType: options.PriceType,
	}
}

func (form *kagiForm) move(step int) {
	n := int(kagiFieldCount)
	form.field = kagiField(((int(form.field)+step)%n + n) % n)
}

// cycle switches the selected choice field to its next value.
func (form *kagiForm) cycle() {
	switch form.field {
	case fieldReversalKind:
		if form.kind == models.ReversalKindPercentage {
			form.kind = models.ReversalKindAmount
		} else {
			form.kind = models.ReversalKindPercentage
		}
	case fieldPriceType:
		if form.priceType == models.PriceTypeClose {
			form.priceType = models.PriceTypeHighLow
		} else {
			form.priceType = models.PriceTypeClose
		}
	}
}

func (form *kagiForm) addChar(c string) {
	if form.field != fieldReversalValue || len(form.value) >= maxReversalInput {
		return
	}
	form.value += c
}

func (form *kagiForm) deleteChar() {
	if form.field != fieldReversalValue || form.value == "" {
		return
	}
	form.value = form.value[:len(form.value)-1]
}

// options parses the form. Range checks are left to KagiOptions.Validate.
func (form kagiForm) options() (models.KagiOptions, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(form.value), 64)
	if err != nil {
		return models.KagiOptions{}, &models.ConfigurationError{Field: "reversal_value", Reason: "must be a valid number"}
	}
	return models.KagiOptions{ReversalKind: form.kind, ReversalValue: value, PriceType: form.priceType}, nil
}

func (form kagiForm) text() string {
	fields := []string{
		fmt.Sprintf("reversal: %s", form.kind),
		fmt.Sprintf("value: %s_", form.value),
		fmt.Sprintf("price: %s", form.priceType),
	}
	fields[form.field] = "[" + fields[form.field] + "](mod:reverse)"
	return "Kagi  " + strings.Join(fields, "  ") + "   ↑/↓ select, tab change, enter apply, esc cancel"
}
