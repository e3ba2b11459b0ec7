package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/models"

	"github.com/shopspring/decimal"
)

func newTestPricing() *PricingEngine {
	return NewPricingEngine(PricingConfig{
		TaxRate:     dec("0.0825"),
		DeliveryFee: dec("5.00"),
		Currency:    "USD",
	})
}

func lineOf(unit string, qty int64) ResolvedLine {
	price := dec(unit)
	return ResolvedLine{
		BasePrice: price,
		UnitPrice: price,
		Quantity:  int(qty),
		LineTotal: price.Mul(decimal.NewFromInt(qty)),
	}
}

func TestPriceBasicPickupCart(t *testing.T) {
	engine := newTestPricing()
	totals, err := engine.Price(PriceInput{
		Lines:           []ResolvedLine{lineOf("4.50", 2), lineOf("5.50", 1)},
		FulfillmentType: constants.FulfillmentPickup,
	})
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	assertMoney(t, "subtotal", totals.Subtotal, "14.50")
	assertMoney(t, "tax", totals.Tax, "1.20")
	assertMoney(t, "delivery fee", totals.DeliveryFee, "0")
	assertMoney(t, "total", totals.Total, "15.70")
}

func TestPricePercentagePromo(t *testing.T) {
	engine := newTestPricing()
	lines := []ResolvedLine{lineOf("100.00", 1)}
	promo := &models.Promo{Type: constants.PromoTypePercentage, Value: money("10")}
	discount := ComputePromoDiscount(promo, engine.Subtotal(lines))

	totals, err := engine.Price(PriceInput{
		Lines:           lines,
		FulfillmentType: constants.FulfillmentPickup,
		Discount:        discount,
	})
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	assertMoney(t, "discount", totals.Discount, "10.00")
	assertMoney(t, "taxable", totals.Taxable, "90.00")
	assertMoney(t, "tax", totals.Tax, "7.43")
	assertMoney(t, "total", totals.Total, "97.43")
}

func TestPriceDeliveryWithTip(t *testing.T) {
	engine := newTestPricing()
	totals, err := engine.Price(PriceInput{
		Lines:           []ResolvedLine{lineOf("50.00", 1)},
		FulfillmentType: constants.FulfillmentDelivery,
		Tip:             dec("5"),
	})
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	assertMoney(t, "tax", totals.Tax, "4.13")
	assertMoney(t, "delivery fee", totals.DeliveryFee, "5.00")
	assertMoney(t, "tip", totals.Tip, "5.00")
	assertMoney(t, "total", totals.Total, "64.13")
}

func TestSubtotalSumsBeforeRounding(t *testing.T) {
	engine := newTestPricing()
	line := ResolvedLine{Quantity: 1, UnitPrice: dec("1.005"), LineTotal: dec("1.005")}
	lines := []ResolvedLine{line, line, line}

	got := engine.Subtotal(lines)
	if !got.Equal(dec("3.02")) {
		t.Fatalf("subtotal want 3.02 got %s", got.String())
	}

	perLine := decimal.Zero
	for _, l := range lines {
		perLine = perLine.Add(models.RoundAmount(l.LineTotal))
	}
	if got.Equal(perLine) {
		t.Fatalf("subtotal must not equal the per-line rounded sum %s", perLine.String())
	}
}

func TestPriceClampsDiscountToSubtotal(t *testing.T) {
	engine := newTestPricing()
	totals, err := engine.Price(PriceInput{
		Lines:           []ResolvedLine{lineOf("8.00", 1)},
		FulfillmentType: constants.FulfillmentPickup,
		Discount:        dec("20.00"),
	})
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	assertMoney(t, "discount", totals.Discount, "8.00")
	assertMoney(t, "tax", totals.Tax, "0")
	assertMoney(t, "total", totals.Total, "0")

	negative, err := engine.Price(PriceInput{
		Lines:           []ResolvedLine{lineOf("8.00", 1)},
		FulfillmentType: constants.FulfillmentPickup,
		Discount:        dec("-3"),
	})
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	assertMoney(t, "negative discount", negative.Discount, "0")
}

func TestPriceRejectsInvalidInput(t *testing.T) {
	engine := newTestPricing()
	lines := []ResolvedLine{lineOf("4.50", 1)}

	if _, err := engine.Price(PriceInput{Lines: lines, FulfillmentType: constants.FulfillmentPickup, Tip: dec("-1")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative tip want validation error got %v", err)
	}
	if _, err := engine.Price(PriceInput{Lines: lines, FulfillmentType: "DRONE"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown fulfillment want validation error got %v", err)
	}
}

func TestPriceWalkInHasNoDeliveryFee(t *testing.T) {
	engine := newTestPricing()
	totals, err := engine.Price(PriceInput{
		Lines:           []ResolvedLine{lineOf("10.00", 1)},
		FulfillmentType: constants.FulfillmentWalkIn,
	})
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	assertMoney(t, "delivery fee", totals.DeliveryFee, "0")
	assertMoney(t, "total", totals.Total, "10.83")
}

func TestPriceIsDeterministic(t *testing.T) {
	engine := newTestPricing()
	input := PriceInput{
		Lines:           []ResolvedLine{lineOf("3.33", 3), lineOf("0.015", 7)},
		FulfillmentType: constants.FulfillmentDelivery,
		Discount:        dec("1.11"),
		Tip:             dec("2.005"),
	}
	first, err := engine.Price(input)
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.Price(input)
		if err != nil {
			t.Fatalf("price failed: %v", err)
		}
		if totalsKey(again) != totalsKey(first) {
			t.Fatalf("price not deterministic: %s vs %s", totalsKey(again), totalsKey(first))
		}
	}
}

func totalsKey(totals *Totals) string {
	return strings.Join([]string{
		totals.Subtotal.String(),
		totals.Discount.String(),
		totals.Taxable.String(),
		totals.Tax.String(),
		totals.DeliveryFee.String(),
		totals.Tip.String(),
		totals.Total.String(),
	}, "|")
}
