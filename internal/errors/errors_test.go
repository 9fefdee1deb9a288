package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"breachtrend/domain/core"
)

func TestFromDomainCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"model fit", core.NewModelFitError(0.5, "rank deficient"), CodeModelFit, http.StatusUnprocessableEntity},
		{"insufficient", &core.InsufficientSamplesError{Cause: "A", Tau: 0.5}, CodeInsufficientSamples, http.StatusUnprocessableEntity},
		{"invariant", &core.InvariantError{Cause: "A", Missing: "time"}, CodeInvariantViolation, http.StatusInternalServerError},
		{"not found", core.NewNotFoundError("report", "x"), CodeNotFound, http.StatusNotFound},
		{"invalid record", core.NewInvalidRecordError(3, "r3", "negative"), CodeInvalidInput, http.StatusBadRequest},
		{"empty", core.ErrEmptyDataset, CodeInvalidInput, http.StatusBadRequest},
		{"wrapped", fmt.Errorf("loading: %w", core.ErrEmptyDataset), CodeInvalidInput, http.StatusBadRequest},
		{"plain", stderrors.New("boom"), CodeInternalError, http.StatusInternalServerError},
		{"deadline", fmt.Errorf("fit: %w", context.DeadlineExceeded), CodeInternalError, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromDomain(tt.err)
			if got := GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
			if got := HTTPStatus(tt.err); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
			if !stderrors.Is(err, tt.err) {
				t.Error("FromDomain must keep the original error in the chain")
			}
		})
	}
	if FromDomain(nil) != nil {
		t.Error("FromDomain(nil) should be nil")
	}
}

func TestWrapKeepsCode(t *testing.T) {
	base := InvalidInput("bad quantile")
	err := Wrapf(base, "parsing options for %s", "run")
	if GetCode(err) != CodeInvalidInput {
		t.Errorf("code = %s, want %s", GetCode(err), CodeInvalidInput)
	}
	if err.Error() != "parsing options for run: bad quantile" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	coded := WithCode(CodeDatabaseError, stderrors.New("conn refused"))
	if GetCode(coded) != CodeDatabaseError {
		t.Errorf("WithCode lost its code: %s", GetCode(coded))
	}
}
