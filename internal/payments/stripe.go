package payments

import (
	"context"
	"math"
	"os"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/example/taxi-dispatch/internal/models"
)

// StripeClient collects ride fares through Stripe PaymentIntents.
type StripeClient struct {
	currency string
}

// NewStripeClient initializes the stripe client with the STRIPE_API_KEY env var.
func NewStripeClient(currency string) *StripeClient {
	stripe.Key = os.Getenv("STRIPE_API_KEY")
	if currency == "" {
		currency = "zar"
	}
	return &StripeClient{currency: currency}
}

// CollectFare creates a PaymentIntent for the ride's final fare. The fare
// is converted to minor units (cents).
func (s *StripeClient) CollectFare(ctx context.Context, ride *models.Ride) error {
	amount := int64(math.Round(ride.FinalFare * 100))
	if amount <= 0 {
		return nil
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(s.currency),
	}
	params.AddMetadata("ride_id", ride.ID)
	params.AddMetadata("passenger_id", ride.PassengerID)
	_, err := paymentintent.New(params)
	return err
}
