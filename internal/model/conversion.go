// Package model contains domain models shared across layers.
package model

import "time"

// ConversionStatus is the final state of a conversion request.
type ConversionStatus string

const (
	ConversionProcessing ConversionStatus = "processing"
	ConversionSucceeded  ConversionStatus = "succeeded"
	ConversionFailed     ConversionStatus = "failed"
)

// Conversion is one ledger entry for a /process request.
// It carries no persistence tags and can be used across layers.
type Conversion struct {
	ID               string           `json:"id"`
	OriginalFilename string           `json:"original_filename"`
	Size             int64            `json:"size"`
	Slides           int              `json:"slides"`
	Status           ConversionStatus `json:"status"`
	ErrorCode        string           `json:"error_code,omitempty"`
	ArchiveObject    string           `json:"archive_object,omitempty"`
	DurationMS       int64            `json:"duration_ms"`
	CreatedAt        time.Time        `json:"created_at"`
}
