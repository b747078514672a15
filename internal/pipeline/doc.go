// Package pipeline runs a media reference through the acquisition stages
// and assembles the resulting MediaRecord.
//
// Failures are isolated per item: each one is appended to the run's
// ErrorLog and the item produces no record. A panic inside a stage is
// recovered and logged the same way.
package pipeline
