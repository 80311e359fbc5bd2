// Package domain contains the core business entities, value objects, and
// domain logic of the studio: generation requests and their pricing, produced
// image artifacts, the credit ledger and analysis plans. It is independent of
// any specific infrastructure or delivery mechanism.
package domain
