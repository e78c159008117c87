// Package ledger provides domain models for the financial ledger core of a
// multi-tenant travel-booking SaaS application.
//
// The ledger is the single source of truth for money and points movement:
//   - Every balance-affecting event is an immutable Transaction in an
//     append-only log
//   - Account balances are derived from the log and cached on the Account
//     aggregate, updated in the same atomic unit as the transaction insert
//   - External events produce at most one ledger entry, enforced by a
//     storage-level uniqueness on (account, idempotency key)
//
// Key Aggregates:
//   - Account: A balance of one kind (CASH wallet, revolving CREDIT line,
//     reward POINTS) belonging to a holder
//   - Milestone: A reward rule achievement with a two-phase detect/payout
//     lifecycle
//   - Redemption: A conversion of points into a booking discount with a
//     PENDING/COMPLETED/CANCELLED state machine
//
// Entities:
//   - Transaction: One signed, immutable ledger entry
//
// The ledger domain integrates with:
//   - Booking context: Wallet debits during checkout, redemption discounts
//   - Trip and referral contexts: As sources of points-earning activity
package ledger
