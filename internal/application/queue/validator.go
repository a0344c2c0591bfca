package queue

import (
	"fmt"

	"github.com/aescanero/dapipe/pkg/domain"
)

// maxIDLength keeps the file name under common file system limits
const maxIDLength = 200

// Validator checks records before they are queued
type Validator struct{}

// NewValidator creates a new record validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the fields that decide where a record is stored. The
// payload is not inspected.
func (v *Validator) Validate(record *domain.PipelineRecord) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}

	if record.ID == "" {
		return fmt.Errorf("record ID is required")
	}

	if len(record.ID) > maxIDLength {
		return fmt.Errorf("record ID exceeds %d bytes", maxIDLength)
	}

	for i, t := range record.Transformers {
		if t == "" {
			return fmt.Errorf("transformer %d is empty", i)
		}
	}

	return nil
}
