package service

import (
	"context"
	"math"
	"testing"

	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/fjod/storefront/pkg/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_CreatesPendingOrder(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())

	customer := "customer-7"
	sub := validSubmission()
	sub.CustomerID = &customer
	sub.PromoCode = "WELCOME10"

	order, err := sut.Submit(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, 4, int(order.ID.Version()))
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(210)), "got %s", order.Subtotal)
	assert.True(t, order.DiscountTotal.Equal(decimal.NewFromInt(40)), "got %s", order.DiscountTotal)
	assert.Equal(t, "WELCOME10", order.PromoCode)
	assert.Equal(t, &customer, order.CustomerID)

	require.Len(t, order.Lines, 2)
	assert.Equal(t, "Sweater", order.Lines[0].DisplayName)
	assert.Equal(t, "img/1.jpg", order.Lines[0].ImageRef)
	assert.True(t, order.Lines[0].UnitFinalPrice.Equal(decimal.NewFromInt(80)))

	stored, err := repo.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
	assert.Equal(t, []string{"OrderPlaced"}, repo.events)
}

func TestSubmit_IgnoresClientPrices(t *testing.T) {
	sut := NewSubmissionService(newMemoryRepository(), testCatalog())

	sub := validSubmission()
	sub.Lines[0].UnitFinalPrice = decimal.NewFromInt(1)
	sub.Total = decimal.NewFromInt(51)

	order, err := sut.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(210)))
}

func TestSubmit_EmptyStreetIsRejectedWithoutWriting(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())

	sub := validSubmission()
	sub.ShippingAddress.Street = "   "

	order, err := sut.Submit(context.Background(), sub)
	assert.Nil(t, order)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"shipping_address.street"}, validationErr.Fields)
	assert.Equal(t, 0, repo.createCalls)
	assert.Equal(t, 0, repo.orderCount())
}

func TestSubmit_ListsEveryInvalidField(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())

	sub := domain.Submission{
		Lines: []domain.OrderLine{
			{ProductID: 1, Quantity: 1, SelectedColor: "pink", SelectedSize: "M"},
			{ProductID: 99, Quantity: 1},
			{ProductID: 2, Quantity: 0},
		},
		ShippingAddress: domain.ShippingAddress{Street: "Main St 1"},
		PaymentMethodID: "bank_transfer",
	}

	_, err := sut.Submit(context.Background(), sub)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ElementsMatch(t, []string{
		"shipping_address.country",
		"shipping_address.city",
		"payment_method_id",
		"lines[0].selected_color",
		"lines[1].product_id",
		"lines[2].quantity",
	}, validationErr.Fields)
	assert.Equal(t, 0, repo.orderCount())
}

func TestSubmit_EmptyCart(t *testing.T) {
	sut := NewSubmissionService(newMemoryRepository(), testCatalog())

	sub := validSubmission()
	sub.Lines = nil
	sub.PaymentMethodID = ""

	_, err := sut.Submit(context.Background(), sub)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ElementsMatch(t, []string{"lines", "payment_method_id"}, validationErr.Fields)
}

func TestSubmit_UnknownPaymentMethod(t *testing.T) {
	sut := NewSubmissionService(newMemoryRepository(), testCatalog())

	sub := validSubmission()
	sub.PaymentMethodID = "crypto"

	_, err := sut.Submit(context.Background(), sub)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"payment_method_id"}, validationErr.Fields)
}

func TestSubmit_CatalogDefect(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())

	sub := validSubmission()
	sub.Lines = append(sub.Lines, domain.OrderLine{ProductID: 3, Quantity: 1})

	_, err := sut.Submit(context.Background(), sub)

	var discountErr *pricing.InvalidDiscountError
	require.ErrorAs(t, err, &discountErr)
	assert.Equal(t, 0, repo.orderCount())
}

func TestSubmit_MergesRepeatedVariants(t *testing.T) {
	sut := NewSubmissionService(newMemoryRepository(), testCatalog())

	sub := validSubmission()
	sub.Lines = append(sub.Lines, domain.OrderLine{ProductID: 1, Quantity: 3, SelectedColor: "navy", SelectedSize: "M"})

	order, err := sut.Submit(context.Background(), sub)
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, 5, order.Lines[0].Quantity)
}

func TestSubmit_IdempotencyKey(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())
	ctx := context.Background()

	sub := validSubmission()
	sub.IdempotencyKey = "retry-me"

	first, err := sut.Submit(ctx, sub)
	require.NoError(t, err)
	second, err := sut.Submit(ctx, sub)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.orderCount())
}

func TestSubmit_WithoutKeyCreatesEachTime(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())
	ctx := context.Background()

	first, err := sut.Submit(ctx, validSubmission())
	require.NoError(t, err)
	second, err := sut.Submit(ctx, validSubmission())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, repo.orderCount())
}

func TestSubmit_QuantityAboveLineCap(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())

	sub := validSubmission()
	sub.Lines[1].Quantity = domain.MaxLineQuantity + 1

	_, err := sut.Submit(context.Background(), sub)
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"lines[1].quantity"}, validationErr.Fields)
	assert.Equal(t, 0, repo.orderCount())
}

func TestSubmit_MergedQuantityCannotOverflow(t *testing.T) {
	tests := []struct {
		name  string
		extra int
	}{
		{name: "max int", extra: math.MaxInt},
		{name: "merged above cap", extra: domain.MaxLineQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			sut := NewSubmissionService(repo, testCatalog())

			sub := validSubmission()
			sub.Lines = append(sub.Lines, domain.OrderLine{ProductID: 2, Quantity: tt.extra})

			_, err := sut.Submit(context.Background(), sub)
			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, []string{"lines[2].quantity"}, validationErr.Fields)
			assert.Equal(t, 0, repo.orderCount())
		})
	}
}

func TestSubmit_MergedQuantityAtCap(t *testing.T) {
	sut := NewSubmissionService(newMemoryRepository(), testCatalog())

	sub := validSubmission()
	sub.Lines = append(sub.Lines, domain.OrderLine{ProductID: 2, Quantity: domain.MaxLineQuantity - 1})

	order, err := sut.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxLineQuantity, order.Lines[1].Quantity)
}

func TestSubmit_KeyReplayMatchesMergedLines(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())
	ctx := context.Background()

	sub := validSubmission()
	sub.IdempotencyKey = "split"
	first, err := sut.Submit(ctx, sub)
	require.NoError(t, err)

	retry := validSubmission()
	retry.IdempotencyKey = "split"
	retry.ShippingAddress.Street = "  " + retry.ShippingAddress.Street
	retry.Lines[0].Quantity = 1
	retry.Lines = append(retry.Lines, retry.Lines[0])

	second, err := sut.Submit(ctx, retry)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSubmit_KeyReplayWithoutLines(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())
	ctx := context.Background()

	sub := validSubmission()
	sub.IdempotencyKey = "cleared-cart"
	first, err := sut.Submit(ctx, sub)
	require.NoError(t, err)

	sub.Lines = nil
	second, err := sut.Submit(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Lines, 2)
}

func TestSubmit_KeyReusedForDifferentSubmission(t *testing.T) {
	other := "customer-9"
	tests := []struct {
		name   string
		modify func(*domain.Submission)
	}{
		{name: "extra line", modify: func(s *domain.Submission) {
			s.Lines = append(s.Lines, domain.OrderLine{ProductID: 1, Quantity: 1, SelectedColor: "grey", SelectedSize: "S"})
		}},
		{name: "different quantity", modify: func(s *domain.Submission) { s.Lines[1].Quantity = 4 }},
		{name: "different variant", modify: func(s *domain.Submission) { s.Lines[0].SelectedColor = "grey" }},
		{name: "different address", modify: func(s *domain.Submission) { s.ShippingAddress.City = "Lisboa" }},
		{name: "different payment", modify: func(s *domain.Submission) { s.PaymentMethodID = "card" }},
		{name: "other customer", modify: func(s *domain.Submission) { s.CustomerID = &other }},
		{name: "other customer without lines", modify: func(s *domain.Submission) {
			s.CustomerID = &other
			s.Lines = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			sut := NewSubmissionService(repo, testCatalog())
			ctx := context.Background()

			sub := validSubmission()
			sub.IdempotencyKey = "k1"
			_, err := sut.Submit(ctx, sub)
			require.NoError(t, err)

			retry := validSubmission()
			retry.IdempotencyKey = "k1"
			tt.modify(&retry)

			order, err := sut.Submit(ctx, retry)
			assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
			assert.Nil(t, order)
			assert.Equal(t, 1, repo.orderCount())
		})
	}
}

func TestSubmit_LostKeyRaceChecksSubmission(t *testing.T) {
	repo := newMemoryRepository()
	sut := NewSubmissionService(repo, testCatalog())
	ctx := context.Background()

	sub := validSubmission()
	sub.IdempotencyKey = "race"
	first, err := sut.Submit(ctx, sub)
	require.NoError(t, err)

	t.Run("same submission returns the stored order", func(t *testing.T) {
		repo.hiddenKeys = 1
		order, err := sut.Submit(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, first.ID, order.ID)
	})

	t.Run("different submission is rejected", func(t *testing.T) {
		repo.hiddenKeys = 1
		changed := sub
		changed.PaymentMethodID = "card"
		_, err := sut.Submit(ctx, changed)
		assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
	})

	assert.Equal(t, 1, repo.orderCount())
}
