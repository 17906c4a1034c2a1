// Package models contains the GORM persistence models for the sync engine's
// local state, with conversions to and from the domain types.
package models
