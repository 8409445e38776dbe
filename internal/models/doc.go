// Package models defines the core domain models for Roommates expense ledgers.
//
// # Models
//
//   - Ledger: one expense group of a roommate group; owns balances and history
//   - Transaction: one payment fronted by a payer and split across owers
//   - Share: the realized debit of one ower position within a transaction
//
// # Design Principles
//
// 1. **Integer cents**: every amount is a money.Cents, never a float
// 2. **Append-only history**: invalidated transactions stay in the ledger, marked
// 3. **Whole-aggregate persistence**: a Ledger is loaded and saved as one unit
// 4. **No behaviour here**: the ledger package owns every state transition
//
// Members are identified by opaque user ID strings supplied by the caller.
package models
