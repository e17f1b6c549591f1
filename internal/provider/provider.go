package provider

import (
    "context"
)

// SupplyProvider resolves the circulating supply of a base asset (BTC, ETH, ...).
// Resolve never returns an error: an upstream failure or missing value is ok=false.
//
//go:generate mockgen -package=supply -destination=../supply/mock_provider_test.go -source=provider.go SupplyProvider
type SupplyProvider interface {
    Name() string
    Resolve(ctx context.Context, base string) (float64, bool)
}
