package validation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

type scanPayload struct {
	UID        string `json:"uid" binding:"required,chip_uid" validate:"required,chip_uid"`
	Block4Data string `json:"block4_data" validate:"omitempty,hex16"`
}

func TestChipTags(t *testing.T) {
	v := validator.New()
	if err := RegisterOn(v); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := v.Struct(scanPayload{UID: "04:A1:B2:C3:D4:E5:F6", Block4Data: strings.Repeat("0A", 16)}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	err := v.Struct(scanPayload{UID: "04A1B2", Block4Data: "XYZ"})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	details := FieldErrors(err)
	if details["uid"] == "" || details["block4_data"] == "" {
		t.Fatalf("expected json field names in details, got %v", details)
	}
	if FieldErrors(nil) != nil {
		t.Fatalf("nil error must yield no details")
	}
}
