// Package models defines the core domain models for SplitEasy.
//
// The entities mirror the persisted tables:
//   - User: a registered account, identified by email
//   - Group: a named collection of users sharing expenses
//   - Member: a user's membership in a group, with a role
//   - Expense: a single payment made by one member on behalf of the group
//   - Share: the portion of an expense attributed to one participant
//
// Balances are never persisted. They are derived fresh from expenses and
// shares on every read, so they cannot drift from the source rows.
//
// Relationships use ID strings rather than pointers to avoid circular
// references between models.
package models
