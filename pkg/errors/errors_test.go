package errors

import (
	stdErrors "errors"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, publicMsg: "resource not found"},
		{code: CodeStateConflict, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeNoPaymentMethod, publicMsg: "no payment method specified"},
		{code: CodeGatewayDeclined, publicMsg: "payment declined", retryable: true, detailsOK: true},
		{code: CodeGatewayTransport, publicMsg: "payment gateway unreachable", retryable: true, detailsOK: true},
		{code: CodeLedgerInconsistency, publicMsg: "ledger inconsistency detected", detailsOK: true},
		{code: CodeInternal, publicMsg: "internal error", retryable: true},
		{code: CodeDependency, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.PublicMessage != "internal error" {
		t.Fatalf("expected internal metadata, got %q", meta.PublicMessage)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("socket closed")
	err := Wrap(CodeGatewayTransport, cause, "charge timed out")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if got := As(err); got == nil || got.Code() != CodeGatewayTransport {
		t.Fatalf("expected typed error with transport code, got %v", got)
	}
	if !HasCode(err, CodeGatewayTransport) {
		t.Fatal("HasCode should match the wrapping code")
	}
	if HasCode(err, CodeGatewayDeclined) {
		t.Fatal("HasCode should not match a different code")
	}
}
