// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain entities so the domain layer carries no
// ORM tags; each model has ToDomain and FromDomain mappers used by the repositories.
//
// Tables:
//   - funding_requests: FundingRequest aggregate
//   - allocations: Allocation aggregate with its derived totals
//   - transactions: expenditures, soft-deleted through deleted_at
//   - transaction_sequences: per-program counter behind transaction numbers
package models
